package usecase

import (
	"context"

	"github.com/jhoicas/proveedores-api/internal/application/dto"
	"github.com/jhoicas/proveedores-api/internal/domain/repository"
	"github.com/jhoicas/proveedores-api/internal/domain/validation"
)

// UserUseCase operaciones de administración de usuarios. El gate de admin se aplica antes, en el borde.
type UserUseCase struct {
	repo repository.UserRepository
}

// NewUserUseCase construye el caso de uso con el puerto de persistencia.
func NewUserUseCase(repo repository.UserRepository) *UserUseCase {
	return &UserUseCase{repo: repo}
}

// List devuelve todos los usuarios (sin hash) indexados por id.
func (uc *UserUseCase) List(ctx context.Context) (map[string]dto.UserResponse, error) {
	all, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]dto.UserResponse, len(all))
	for id, u := range all {
		out[id] = *dto.UserFromEntity(u)
	}
	return out, nil
}

// Get obtiene un usuario por ID; (nil, nil) si no existe.
func (uc *UserUseCase) Get(ctx context.Context, id string) (*dto.UserResponse, error) {
	u, err := uc.repo.Get(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	return dto.UserFromEntity(u), nil
}

// Update valida y aplica una actualización parcial; (nil, nil) si no existe.
func (uc *UserUseCase) Update(ctx context.Context, id string, in dto.UpdateUserRequest) (*dto.UserResponse, error) {
	patch, err := validation.ValidateUserPatch(in)
	if err != nil {
		return nil, err
	}
	u, err := uc.repo.Update(ctx, id, patch)
	if err != nil || u == nil {
		return nil, err
	}
	return dto.UserFromEntity(u), nil
}

// Delete elimina un usuario; false si no existía.
func (uc *UserUseCase) Delete(ctx context.Context, id string) (bool, error) {
	return uc.repo.Delete(ctx, id)
}
