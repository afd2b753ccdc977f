package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
)

// ──────────────────────────────────────────────────────────────────────────────
// IDCodec: traducción id externo <-> clave nativa, independiente del backend
// ──────────────────────────────────────────────────────────────────────────────

func TestIDCodec_IdaYVuelta(t *testing.T) {
	c := store.IDCodec{Prefix: "sup_"}
	ext := c.New("65a1f0c2e4b0a1b2c3d4e5f6")
	assert.Equal(t, "sup_65a1f0c2e4b0a1b2c3d4e5f6", ext)

	native, ok := c.Native(ext)
	require.True(t, ok)
	assert.Equal(t, "65a1f0c2e4b0a1b2c3d4e5f6", native)
	assert.True(t, c.Owns(ext))
}

func TestIDCodec_PrefijoAjenoOVacio(t *testing.T) {
	c := store.IDCodec{Prefix: "sup_"}
	for _, in := range []string{"", "sup_", "usr_abc", "abc", "SUP_abc"} {
		_, ok := c.Native(in)
		assert.False(t, ok, "entrada %q no pertenece a proveedores", in)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// FieldRules
// ──────────────────────────────────────────────────────────────────────────────

func TestFieldRules_Apply(t *testing.T) {
	rules := store.FieldRules{
		DigitsOnly:   []string{"phone"},
		Alphanumeric: []string{"tax_id"},
		Trim:         []string{"email"},
	}
	in := store.Record{
		"name":   "ABC",
		"tax_id": "12.345.678/0001-90",
		"email":  " a@b.com ",
		"phone":  "(11) 99999-0000",
	}
	out := rules.Apply(in)

	assert.Equal(t, "12345678000190", out["tax_id"])
	assert.Equal(t, "a@b.com", out["email"])
	assert.Equal(t, "11999990000", out["phone"])
	assert.Equal(t, "ABC", out["name"])
	assert.Equal(t, " a@b.com ", in["email"], "Apply no modifica la entrada")
}

func TestFieldRules_CNPJAlfanumericoYNumeros(t *testing.T) {
	rules := store.FieldRules{DigitsOnly: []string{"phone"}, Alphanumeric: []string{"tax_id"}}
	out := rules.Apply(store.Record{"tax_id": "ab.c12-3def456gh", "phone": float64(11934567890)})

	assert.Equal(t, "ABC123DEF456GH", out["tax_id"], "las letras del CNPJ alfanumérico se conservan")
	assert.Equal(t, "11934567890", out["phone"])
	_, exists := out["email"]
	assert.False(t, exists, "los campos ausentes no se crean")
}

// ──────────────────────────────────────────────────────────────────────────────
// Schema / Merge / errores
// ──────────────────────────────────────────────────────────────────────────────

func TestSchema_Validate(t *testing.T) {
	ok := store.Schema{Collection: "suppliers", IDs: store.IDCodec{Prefix: "sup_"}, UniqueFields: []string{"tax_id"}}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Collection = "suppliers; DROP TABLE x"
	assert.Error(t, bad.Validate())

	bad = ok
	bad.UniqueFields = []string{"data->>'x'"}
	assert.Error(t, bad.Validate())

	bad = ok
	bad.IDs = store.IDCodec{}
	assert.Error(t, bad.Validate())
}

func TestSchema_FieldForIndex(t *testing.T) {
	s := store.Schema{Collection: "users", IDs: store.IDCodec{Prefix: "usr_"}, UniqueFields: []string{"username", "email"}}
	assert.Equal(t, "email", s.FieldForIndex(s.UniqueIndexName("email")))
	assert.Equal(t, "", s.FieldForIndex("otro"))
}

func TestMerge_ConservaID(t *testing.T) {
	base := store.Record{"id": "sup_1", "name": "A", "phone": "1"}
	out := store.Merge(base, store.Record{"name": "B", "id": "sup_hack"}, "sup_1")

	assert.Equal(t, "sup_1", out.ID(), "el id del payload se ignora")
	assert.Equal(t, "B", out["name"])
	assert.Equal(t, "1", out["phone"])
	assert.Equal(t, "A", base["name"], "Merge no modifica la base")
}

func TestErrores_Envoltura(t *testing.T) {
	err := store.WriteError("write suppliers", errors.New("disk full"))
	assert.ErrorIs(t, err, store.ErrWrite)

	var uv error = &store.UniqueViolationError{Field: "tax_id"}
	assert.ErrorIs(t, uv, store.ErrUniqueViolation)
}

func TestTrackDegraded_AnotaSoloConSeguimiento(t *testing.T) {
	store.MarkDegraded(context.Background())

	ctx, degraded := store.TrackDegraded(context.Background())
	assert.False(t, degraded())
	store.MarkDegraded(ctx)
	assert.True(t, degraded())

	_, otro := store.TrackDegraded(context.Background())
	assert.False(t, otro(), "cada seguimiento es independiente")
}
