package dto

import (
	"time"

	"github.com/jhoicas/proveedores-api/internal/domain/entity"
)

// RegisterRequest entrada para registro (auth). El rol siempre es "user".
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72,bcryptlen"`
}

// UpdateUserRequest actualización parcial de un usuario (solo admin). password llega en texto y se hashea.
type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitnil,min=3,max=50"`
	Email    *string `json:"email" validate:"omitnil,email"`
	Password *string `json:"password" validate:"omitnil,min=6,max=72,bcryptlen"`
	Role     *string `json:"role" validate:"omitnil,oneof=admin user"`
	Active   *bool   `json:"active"`
}

// UserResponse salida de un usuario (sin password ni hash).
type UserResponse struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Active    bool       `json:"active"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// LoginRequest entrada para login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse salida con token JWT.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// RegisterResponse salida del registro.
type RegisterResponse struct {
	User UserResponse `json:"user"`
}

// UserFromEntity convierte la entidad en su salida pública; nunca incluye el hash.
func UserFromEntity(u *entity.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: timePtr(u.CreatedAt),
		UpdatedAt: timePtr(u.UpdatedAt),
	}
}
