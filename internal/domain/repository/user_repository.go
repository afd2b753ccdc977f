package repository

import (
	"context"

	"github.com/jhoicas/proveedores-api/internal/domain/entity"
)

// UserPatch campos opcionales de una actualización parcial; Password llega en texto plano y se hashea.
type UserPatch struct {
	Username *string
	Email    *string
	Password *string
	Role     *string
	Active   *bool
}

// NewUser datos de alta; Password en texto plano, nunca se persiste así.
type NewUser struct {
	Username string
	Email    string
	Password string
	Role     string
	Active   bool
}

// UserRepository define el puerto de persistencia para User (DIP).
// Get, GetByUsername, GetByEmail y Update devuelven (nil, nil) cuando no hay coincidencia.
type UserRepository interface {
	List(ctx context.Context) (map[string]*entity.User, error)
	Get(ctx context.Context, id string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Create(ctx context.Context, in NewUser) (*entity.User, error)
	Update(ctx context.Context, id string, patch UserPatch) (*entity.User, error)
	Delete(ctx context.Context, id string) (bool, error)
	// Authenticate devuelve ErrInvalidCredentials tanto si el usuario no existe como si la contraseña falla.
	Authenticate(ctx context.Context, username, password string) (*entity.User, error)
}
