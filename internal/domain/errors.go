package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas). Un id inexistente no es error:
// los repositorios devuelven (nil, nil).
var (
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrPersistence  = errors.New("fallo de persistencia")

	// ErrInvalidCredentials es idéntico si el usuario no existe o si la contraseña no coincide.
	ErrInvalidCredentials = errors.New("credenciales inválidas")
	ErrInactiveUser       = errors.New("usuario inactivo")

	// Violaciones de unicidad; todas envuelven ErrDuplicate.
	ErrDuplicateTaxID    = fmt.Errorf("%w: CNPJ ya registrado", ErrDuplicate)
	ErrDuplicateUsername = fmt.Errorf("%w: nombre de usuario ya registrado", ErrDuplicate)
	ErrDuplicateEmail    = fmt.Errorf("%w: email ya registrado", ErrDuplicate)
)

// FieldError describe un campo rechazado por la validación.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError agrupa los campos inválidos de un payload. errors.Is(err, ErrInvalidInput) es true.
type ValidationError struct {
	Errors []FieldError
}

// NewValidationError construye un ValidationError de un solo campo.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Reason: reason}}}
}

// Add agrega un campo inválido.
func (e *ValidationError) Add(field, reason string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Reason: reason})
}

// OrNil devuelve nil si no hay campos inválidos.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, f := range e.Errors {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validación: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
