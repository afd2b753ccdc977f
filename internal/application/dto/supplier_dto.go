package dto

import (
	"time"

	"github.com/jhoicas/proveedores-api/internal/domain/entity"
)

// CreateSupplierRequest entrada para crear un proveedor. tax_id admite puntuación ("12.345.678/0001-90").
type CreateSupplierRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	TaxID string `json:"tax_id" validate:"required,taxid"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,max=40,hasdigit"`
}

// UpdateSupplierRequest actualización parcial: solo se validan y aplican los campos presentes.
type UpdateSupplierRequest struct {
	Name  *string `json:"name" validate:"omitnil,min=1,max=200"`
	TaxID *string `json:"tax_id" validate:"omitnil,taxid"`
	Email *string `json:"email" validate:"omitnil,email"`
	Phone *string `json:"phone" validate:"omitnil,min=1,max=40,hasdigit"`
}

// SupplierResponse salida de un proveedor.
type SupplierResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	TaxID     string     `json:"tax_id"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// SupplierFromEntity convierte la entidad en su salida.
func SupplierFromEntity(s *entity.Supplier) *SupplierResponse {
	if s == nil {
		return nil
	}
	return &SupplierResponse{
		ID:        s.ID,
		Name:      s.Name,
		TaxID:     s.TaxID,
		Email:     s.Email,
		Phone:     s.Phone,
		CreatedAt: timePtr(s.CreatedAt),
		UpdatedAt: timePtr(s.UpdatedAt),
	}
}

// timePtr omite en JSON las marcas de tiempo ausentes (registros antiguos).
func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
