package store

import "strings"

// IDCodec traduce entre el id externo (prefijado, estable) y la clave nativa del backend.
// Los repositorios crean y poseen una instancia por tipo de entidad; los backends solo la aplican.
type IDCodec struct {
	Prefix string // "sup_", "usr_"
}

// New construye el id externo a partir de la clave nativa.
func (c IDCodec) New(native string) string {
	return c.Prefix + native
}

// Native devuelve la clave nativa de un id externo. ok es false si falta el prefijo o la clave está vacía.
func (c IDCodec) Native(external string) (string, bool) {
	if !strings.HasPrefix(external, c.Prefix) {
		return "", false
	}
	native := external[len(c.Prefix):]
	if native == "" {
		return "", false
	}
	return native, true
}

// Owns indica si external pertenece a este tipo de entidad.
func (c IDCodec) Owns(external string) bool {
	_, ok := c.Native(external)
	return ok
}
