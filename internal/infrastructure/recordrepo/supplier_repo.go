package recordrepo

import (
	"context"
	"time"

	"github.com/jhoicas/proveedores-api/internal/domain"
	"github.com/jhoicas/proveedores-api/internal/domain/entity"
	"github.com/jhoicas/proveedores-api/internal/domain/repository"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
	"github.com/jhoicas/proveedores-api/pkg/logger"
	"github.com/jhoicas/proveedores-api/pkg/taxid"
)

var _ repository.SupplierRepository = (*SupplierRepo)(nil)

var supplierDup = map[string]error{fieldTaxID: domain.ErrDuplicateTaxID}

// SupplierRepo aplica la regla de CNPJ único sobre un store.Store.
//
// La comprobación previa es una vía rápida con mensaje claro; la garantía fuerte ante
// altas concurrentes la da el índice único del backend, que se traduce al mismo error.
type SupplierRepo struct {
	st  store.Store
	log *logger.Logger
	now func() time.Time
}

// NewSupplierRepo construye el repositorio. st debe haberse abierto con SupplierSchema().
func NewSupplierRepo(st store.Store, log *logger.Logger) *SupplierRepo {
	if log == nil {
		log = logger.Nop()
	}
	return &SupplierRepo{st: st, log: log.Named("supplier_repo"), now: time.Now}
}

type supplierRecord struct {
	ID        string    `mapstructure:"id"`
	Name      string    `mapstructure:"name"`
	TaxID     string    `mapstructure:"tax_id"`
	Email     string    `mapstructure:"email"`
	Phone     string    `mapstructure:"phone"`
	CreatedAt time.Time `mapstructure:"created_at"`
	UpdatedAt time.Time `mapstructure:"updated_at"`
}

func (r *SupplierRepo) toEntity(rec store.Record) (*entity.Supplier, error) {
	var sr supplierRecord
	if err := decode(rec, &sr); err != nil {
		return nil, err
	}
	return &entity.Supplier{
		ID:        sr.ID,
		Name:      sr.Name,
		TaxID:     sr.TaxID,
		Email:     sr.Email,
		Phone:     sr.Phone,
		CreatedAt: sr.CreatedAt,
		UpdatedAt: sr.UpdatedAt,
	}, nil
}

// taxIDTaken indica si otro registro (distinto de exceptID) ya usa taxID.
func (r *SupplierRepo) taxIDTaken(ctx context.Context, taxID, exceptID string) bool {
	for id := range r.st.FindBy(ctx, fieldTaxID, taxID) {
		if id != exceptID {
			return true
		}
	}
	return false
}

// List devuelve todos los proveedores indexados por id. Los registros indecodificables se omiten.
func (r *SupplierRepo) List(ctx context.Context) (map[string]*entity.Supplier, error) {
	all := r.st.GetAll(ctx)
	out := make(map[string]*entity.Supplier, len(all))
	for id, rec := range all {
		s, err := r.toEntity(rec)
		if err != nil {
			r.log.Warn().Err(err).Str("id", id).Msg("proveedor indecodificable omitido")
			continue
		}
		out[id] = s
	}
	return out, nil
}

// Get obtiene un proveedor; (nil, nil) si no existe o el id no es de proveedor.
func (r *SupplierRepo) Get(ctx context.Context, id string) (*entity.Supplier, error) {
	if !SupplierIDs.Owns(id) {
		return nil, nil
	}
	rec := r.st.Get(ctx, id)
	if rec == nil {
		return nil, nil
	}
	return r.toEntity(rec)
}

// Create persiste un proveedor ya validado. El CNPJ se normaliza otra vez por si llega sin pasar por validación.
func (r *SupplierRepo) Create(ctx context.Context, s *entity.Supplier) (*entity.Supplier, error) {
	tax := taxid.Normalize(s.TaxID)
	if r.taxIDTaken(ctx, tax, "") {
		return nil, domain.ErrDuplicateTaxID
	}
	now := stamp(r.now())
	rec, err := r.st.Create(ctx, store.Record{
		fieldName:      s.Name,
		fieldTaxID:     tax,
		fieldEmail:     s.Email,
		fieldPhone:     s.Phone,
		fieldCreatedAt: now,
		fieldUpdatedAt: now,
	})
	if err != nil {
		return nil, translate(err, supplierDup)
	}
	return r.toEntity(rec)
}

// Update aplica los campos presentes en patch. (nil, nil) si el id no existe; nunca crea.
func (r *SupplierRepo) Update(ctx context.Context, id string, patch repository.SupplierPatch) (*entity.Supplier, error) {
	if !SupplierIDs.Owns(id) || r.st.Get(ctx, id) == nil {
		return nil, nil
	}
	rec := store.Record{fieldUpdatedAt: stamp(r.now())}
	if patch.Name != nil {
		rec[fieldName] = *patch.Name
	}
	if patch.TaxID != nil {
		tax := taxid.Normalize(*patch.TaxID)
		if r.taxIDTaken(ctx, tax, id) {
			return nil, domain.ErrDuplicateTaxID
		}
		rec[fieldTaxID] = tax
	}
	if patch.Email != nil {
		rec[fieldEmail] = *patch.Email
	}
	if patch.Phone != nil {
		rec[fieldPhone] = *patch.Phone
	}
	updated, err := r.st.Update(ctx, id, rec)
	if err != nil {
		return nil, translate(err, supplierDup)
	}
	if updated == nil {
		return nil, nil
	}
	return r.toEntity(updated)
}

// Delete elimina un proveedor; false si no existía.
func (r *SupplierRepo) Delete(ctx context.Context, id string) (bool, error) {
	if !SupplierIDs.Owns(id) {
		return false, nil
	}
	ok, err := r.st.Delete(ctx, id)
	if err != nil {
		return false, translate(err, supplierDup)
	}
	return ok, nil
}

// Seed da de alta los proveedores dados solo si la colección está vacía. Devuelve cuántos creó.
func (r *SupplierRepo) Seed(ctx context.Context, suppliers []entity.Supplier) (int, error) {
	if len(r.st.GetAll(ctx)) > 0 {
		return 0, nil
	}
	n := 0
	for i := range suppliers {
		if _, err := r.Create(ctx, &suppliers[i]); err != nil {
			return n, err
		}
		n++
	}
	r.log.Info().Int("count", n).Msg("proveedores de ejemplo creados")
	return n, nil
}

// DemoSuppliers proveedores de ejemplo para una instalación nueva.
func DemoSuppliers() []entity.Supplier {
	return []entity.Supplier{
		{Name: "Empresa ABC Ltda", TaxID: "12345678000190", Email: "contato@abcltda.com.br", Phone: "11934567890"},
		{Name: "Distribuidora XYZ", TaxID: "98765432000121", Email: "comercial@xyzltda.com.br", Phone: "21923456789"},
		{Name: "Indústria 123 S.A.", TaxID: "45678901000123", Email: "vendas@123sa.com.br", Phone: "31934567890"},
	}
}
