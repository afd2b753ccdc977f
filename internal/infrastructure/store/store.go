// Package store define el contrato genérico de persistencia (CRUD sobre registros planos)
// compartido por los backends de archivo, MongoDB, PostgreSQL y SQLite. No conoce entidades:
// las reglas de negocio viven en los repositorios que lo envuelven.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// FieldID es el campo que todo registro devuelto lleva con su id externo.
const FieldID = "id"

// Record es un registro plano: nombre de campo -> valor.
type Record map[string]any

// Clone copia superficial del registro.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID devuelve el id externo del registro, o "" si no lo tiene.
func (r Record) ID() string {
	s, _ := r[FieldID].(string)
	return s
}

// Store operaciones que todos los backends cumplen de forma idéntica.
//
// Las lecturas nunca fallan: ante un error de E/S registran el fallo, lo anotan con
// MarkDegraded y devuelven vacío.
// Las escrituras propagan cualquier fallo de persistencia envuelto en ErrWrite,
// o un *UniqueViolationError si el backend aplica un índice único.
type Store interface {
	// GetAll devuelve todos los registros indexados por id externo.
	GetAll(ctx context.Context) map[string]Record
	// Get devuelve el registro o nil. Un id mal formado equivale a inexistente.
	Get(ctx context.Context, id string) Record
	// FindBy devuelve los registros cuyo campo field es igual a value.
	FindBy(ctx context.Context, field, value string) map[string]Record
	// Create asigna un id nuevo y persiste el registro; ignora cualquier id del payload.
	Create(ctx context.Context, rec Record) (Record, error)
	// Update fusiona rec sobre el registro existente conservando su id. (nil, nil) si no existe.
	Update(ctx context.Context, id string, rec Record) (Record, error)
	// Delete elimina el registro; false si no existía.
	Delete(ctx context.Context, id string) (bool, error)
	// Close libera los recursos del backend.
	Close(ctx context.Context) error
}

var (
	// ErrWrite envuelve todo fallo de E/S o conectividad durante una escritura.
	ErrWrite = errors.New("store: fallo de escritura")
	// ErrUniqueViolation lo devuelve el backend cuando un índice único rechaza la escritura.
	ErrUniqueViolation = errors.New("store: violación de índice único")
)

// UniqueViolationError indica qué campo único colisionó.
type UniqueViolationError struct {
	Field string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("store: valor duplicado en %q", e.Field)
}

func (e *UniqueViolationError) Unwrap() error { return ErrUniqueViolation }

// WriteError envuelve err en ErrWrite con contexto de la operación.
func WriteError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrWrite, op, err)
}

// Schema describe una colección: nombre, traducción de ids, índices y limpieza de campos.
type Schema struct {
	Collection   string
	IDs          IDCodec
	UniqueFields []string // índice único a nivel de almacenamiento cuando el backend lo soporta
	IndexFields  []string // índices de búsqueda no únicos
	Clean        FieldRules
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate rechaza nombres que no son identificadores seguros; los backends SQL los interpolan en DDL.
func (s Schema) Validate() error {
	if !identRe.MatchString(s.Collection) {
		return fmt.Errorf("store: nombre de colección inválido %q", s.Collection)
	}
	if s.IDs.Prefix == "" {
		return fmt.Errorf("store: la colección %q requiere prefijo de id", s.Collection)
	}
	for _, f := range append(append([]string{}, s.UniqueFields...), s.IndexFields...) {
		if !identRe.MatchString(f) || f == FieldID {
			return fmt.Errorf("store: campo de índice inválido %q", f)
		}
	}
	return nil
}

// UniqueIndexName nombre del índice único de field en la colección; los backends lo usan
// para reconocer qué campo colisionó.
func (s Schema) UniqueIndexName(field string) string {
	return "uniq_" + s.Collection + "_" + field
}

// IndexName nombre del índice de búsqueda de field.
func (s Schema) IndexName(field string) string {
	return "idx_" + s.Collection + "_" + field
}

// FieldForIndex resuelve el campo a partir de un nombre de índice único, o "" si no coincide.
func (s Schema) FieldForIndex(name string) string {
	for _, f := range s.UniqueFields {
		if s.UniqueIndexName(f) == name {
			return f
		}
	}
	return ""
}

// Merge fusiona patch sobre base y fuerza el id. No modifica base.
func Merge(base, patch Record, id string) Record {
	out := base.Clone()
	if out == nil {
		out = Record{}
	}
	for k, v := range patch {
		out[k] = v
	}
	out[FieldID] = id
	return out
}
