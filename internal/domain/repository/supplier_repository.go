package repository

import (
	"context"

	"github.com/jhoicas/proveedores-api/internal/domain/entity"
)

// SupplierPatch campos opcionales de una actualización parcial; nil = sin cambios.
type SupplierPatch struct {
	Name  *string
	TaxID *string
	Email *string
	Phone *string
}

// SupplierRepository define el puerto de persistencia para Supplier con la regla de CNPJ único.
// Get y Update devuelven (nil, nil) cuando el id no existe.
type SupplierRepository interface {
	List(ctx context.Context) (map[string]*entity.Supplier, error)
	Get(ctx context.Context, id string) (*entity.Supplier, error)
	Create(ctx context.Context, s *entity.Supplier) (*entity.Supplier, error)
	Update(ctx context.Context, id string, patch SupplierPatch) (*entity.Supplier, error)
	Delete(ctx context.Context, id string) (bool, error)
}
