package auth

import (
	"context"

	"github.com/jhoicas/proveedores-api/internal/domain"
	"github.com/jhoicas/proveedores-api/internal/domain/entity"
	"github.com/jhoicas/proveedores-api/internal/domain/repository"
	"github.com/jhoicas/proveedores-api/pkg/jwt"
)

// Gate comprobación de rol sin estado sobre una identidad ya autenticada.
// El rol se resuelve contra el usuario persistido, no contra el claim del token.
type Gate struct {
	users repository.UserRepository
}

// NewGate construye el gate.
func NewGate(users repository.UserRepository) *Gate {
	return &Gate{users: users}
}

// RequireAdmin devuelve el usuario si es admin activo. Identidad ausente, usuario inexistente,
// inactivo o sin rol admin producen el mismo domain.ErrForbidden.
func (g *Gate) RequireAdmin(ctx context.Context, id *jwt.Identity) (*entity.User, error) {
	if id == nil || id.UserID == "" {
		return nil, domain.ErrForbidden
	}
	u, err := g.users.Get(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.Active || !u.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return u, nil
}
