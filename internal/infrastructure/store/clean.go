package store

import (
	"fmt"
	"strings"
	"unicode"
)

// FieldRules limpieza declarativa aplicada a los campos al escribir y en la reparación inicial.
type FieldRules struct {
	DigitsOnly   []string // elimina todo lo que no sea dígito (teléfonos)
	Alphanumeric []string // mayúsculas y solo [A-Z0-9] (CNPJ alfanumérico)
	Trim         []string // recorta espacios (emails)
}

// Empty indica si no hay reglas.
func (r FieldRules) Empty() bool {
	return len(r.DigitsOnly) == 0 && len(r.Alphanumeric) == 0 && len(r.Trim) == 0
}

// Apply devuelve una copia de rec con las reglas aplicadas. Los campos ausentes no se crean.
func (r FieldRules) Apply(rec Record) Record {
	out := rec.Clone()
	for _, f := range r.DigitsOnly {
		if v, ok := out[f]; ok && v != nil {
			out[f] = keep(toString(v), unicode.IsDigit)
		}
	}
	for _, f := range r.Alphanumeric {
		if v, ok := out[f]; ok && v != nil {
			out[f] = keep(strings.ToUpper(toString(v)), func(c rune) bool {
				return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
			})
		}
	}
	for _, f := range r.Trim {
		if v, ok := out[f]; ok && v != nil {
			out[f] = strings.TrimSpace(toString(v))
		}
	}
	return out
}

func keep(s string, pred func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if pred(c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON decodifica números como float64; %.0f evita notación científica en teléfonos.
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}
