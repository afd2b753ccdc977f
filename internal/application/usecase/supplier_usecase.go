package usecase

import (
	"context"

	"github.com/jhoicas/proveedores-api/internal/application/dto"
	"github.com/jhoicas/proveedores-api/internal/domain/repository"
	"github.com/jhoicas/proveedores-api/internal/domain/validation"
)

// SupplierUseCase valida la entrada y delega en el repositorio de proveedores.
type SupplierUseCase struct {
	repo repository.SupplierRepository
}

// NewSupplierUseCase construye el caso de uso con el puerto de persistencia.
func NewSupplierUseCase(repo repository.SupplierRepository) *SupplierUseCase {
	return &SupplierUseCase{repo: repo}
}

// List devuelve todos los proveedores indexados por id.
func (uc *SupplierUseCase) List(ctx context.Context) (map[string]dto.SupplierResponse, error) {
	all, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]dto.SupplierResponse, len(all))
	for id, s := range all {
		out[id] = *dto.SupplierFromEntity(s)
	}
	return out, nil
}

// Get obtiene un proveedor; (nil, nil) si no existe.
func (uc *SupplierUseCase) Get(ctx context.Context, id string) (*dto.SupplierResponse, error) {
	s, err := uc.repo.Get(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	return dto.SupplierFromEntity(s), nil
}

// Create valida, normaliza y persiste un proveedor.
func (uc *SupplierUseCase) Create(ctx context.Context, in dto.CreateSupplierRequest) (*dto.SupplierResponse, error) {
	s, err := validation.ValidateSupplier(in)
	if err != nil {
		return nil, err
	}
	created, err := uc.repo.Create(ctx, s)
	if err != nil {
		return nil, err
	}
	return dto.SupplierFromEntity(created), nil
}

// Update valida los campos presentes y los aplica; (nil, nil) si el id no existe.
func (uc *SupplierUseCase) Update(ctx context.Context, id string, in dto.UpdateSupplierRequest) (*dto.SupplierResponse, error) {
	patch, err := validation.ValidateSupplierPatch(in)
	if err != nil {
		return nil, err
	}
	updated, err := uc.repo.Update(ctx, id, patch)
	if err != nil || updated == nil {
		return nil, err
	}
	return dto.SupplierFromEntity(updated), nil
}

// Delete elimina un proveedor; false si no existía.
func (uc *SupplierUseCase) Delete(ctx context.Context, id string) (bool, error) {
	return uc.repo.Delete(ctx, id)
}
