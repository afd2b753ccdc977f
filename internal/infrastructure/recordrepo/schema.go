// Package recordrepo implementa los repositorios de dominio sobre cualquier store.Store.
// Cada repositorio es dueño de su IDCodec (id externo <-> clave nativa) y de las reglas de unicidad;
// el backend solo persiste registros planos.
package recordrepo

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/jhoicas/proveedores-api/internal/domain"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
)

// Codecs de id por tipo de entidad.
var (
	SupplierIDs = store.IDCodec{Prefix: "sup_"}
	UserIDs     = store.IDCodec{Prefix: "usr_"}
)

// Campos persistidos.
const (
	fieldName         = "name"
	fieldTaxID        = "tax_id"
	fieldEmail        = "email"
	fieldPhone        = "phone"
	fieldUsername     = "username"
	fieldPasswordHash = "password_hash"
	fieldRole         = "role"
	fieldActive       = "active"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
)

// SupplierSchema colección de proveedores: CNPJ único a nivel de almacenamiento, búsqueda por nombre.
func SupplierSchema() store.Schema {
	return store.Schema{
		Collection:   "suppliers",
		IDs:          SupplierIDs,
		UniqueFields: []string{fieldTaxID},
		IndexFields:  []string{fieldName},
		Clean: store.FieldRules{
			DigitsOnly:   []string{fieldPhone},
			Alphanumeric: []string{fieldTaxID},
			Trim:         []string{fieldEmail},
		},
	}
}

// UserSchema colección de usuarios: username y email únicos.
func UserSchema() store.Schema {
	return store.Schema{
		Collection:   "users",
		IDs:          UserIDs,
		UniqueFields: []string{fieldUsername, fieldEmail},
		Clean: store.FieldRules{
			Trim: []string{fieldUsername, fieldEmail},
		},
	}
}

var timeType = reflect.TypeOf(time.Time{})

// timeHook acepta RFC 3339 (archivo, JSONB, SQLite) o time.Time (MongoDB); "" es tiempo cero.
func timeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// decode vuelca un registro en out (struct con tags mapstructure).
func decode(rec store.Record, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       timeHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(rec))
}

func stamp(t time.Time) string {
	return t.UTC().Truncate(time.Millisecond).Format(time.RFC3339Nano)
}

// translate convierte errores del store en errores de dominio. dup asigna campo único -> sentinel.
func translate(err error, dup map[string]error) error {
	if err == nil {
		return nil
	}
	var uv *store.UniqueViolationError
	if errors.As(err, &uv) {
		if d, ok := dup[uv.Field]; ok {
			return d
		}
		return domain.ErrDuplicate
	}
	if errors.Is(err, store.ErrWrite) {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return err
}
