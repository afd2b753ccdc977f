// Package storetest contiene la batería de contrato que todo backend de store.Store debe pasar.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
)

// Opener abre un store vacío para el schema dado; el backend registra su propio cleanup.
type Opener func(t *testing.T, schema store.Schema) store.Store

// SupplierSchema schema de prueba con índice único y reglas de limpieza.
func SupplierSchema() store.Schema {
	return store.Schema{
		Collection:   "suppliers",
		IDs:          store.IDCodec{Prefix: "sup_"},
		UniqueFields: []string{"tax_id"},
		IndexFields:  []string{"name"},
		Clean: store.FieldRules{
			DigitsOnly:   []string{"phone"},
			Alphanumeric: []string{"tax_id"},
			Trim:         []string{"email"},
		},
	}
}

func sample(taxID string) store.Record {
	return store.Record{
		"name":   "Empresa ABC Ltda",
		"tax_id": taxID,
		"email":  " contato@abcltda.com.br ",
		"phone":  "(11) 93456-7890",
		"active": true,
	}
}

// Run ejecuta el contrato completo contra el backend.
func Run(t *testing.T, open Opener) {
	ctx := context.Background()

	t.Run("Create_AsignaIDConPrefijoYLimpia", func(t *testing.T) {
		s := open(t, SupplierSchema())
		rec := sample("12.345.678/0001-90")
		rec["id"] = "sup_elegido-por-cliente"

		created, err := s.Create(ctx, rec)
		require.NoError(t, err)
		id := created.ID()
		assert.True(t, SupplierSchema().IDs.Owns(id), "id %q debe llevar el prefijo sup_", id)
		assert.NotEqual(t, "sup_elegido-por-cliente", id, "el id del payload se ignora")
		assert.Equal(t, "12345678000190", created["tax_id"])
		assert.Equal(t, "contato@abcltda.com.br", created["email"])
		assert.Equal(t, "11934567890", created["phone"])

		got := s.Get(ctx, id)
		require.NotNil(t, got)
		assert.Equal(t, id, got.ID())
		assert.Equal(t, "Empresa ABC Ltda", got["name"])
		assert.Equal(t, "12345678000190", got["tax_id"])
		assert.Equal(t, true, got["active"])
	})

	t.Run("Create_IDsUnicos", func(t *testing.T) {
		s := open(t, SupplierSchema())
		a, err := s.Create(ctx, sample("AAAAAAAAAAAAAA"))
		require.NoError(t, err)
		b, err := s.Create(ctx, sample("BBBBBBBBBBBBBB"))
		require.NoError(t, err)
		assert.NotEqual(t, a.ID(), b.ID())

		all := s.GetAll(ctx)
		assert.Len(t, all, 2)
		for key, rec := range all {
			assert.Equal(t, key, rec.ID(), "el id interno coincide con la clave")
		}
	})

	t.Run("Get_IDMalFormadoEsInexistente", func(t *testing.T) {
		s := open(t, SupplierSchema())
		for _, id := range []string{"", "sup_", "usr_123", "garbage", "sup_no-existe", "sup_0123456789abcdef01234567"} {
			assert.Nil(t, s.Get(ctx, id), "id %q", id)
		}
	})

	t.Run("FindBy", func(t *testing.T) {
		s := open(t, SupplierSchema())
		a, err := s.Create(ctx, sample("AAAAAAAAAAAAAA"))
		require.NoError(t, err)
		_, err = s.Create(ctx, sample("BBBBBBBBBBBBBB"))
		require.NoError(t, err)

		found := s.FindBy(ctx, "tax_id", "AAAAAAAAAAAAAA")
		require.Len(t, found, 1)
		assert.Contains(t, found, a.ID())
		assert.Empty(t, s.FindBy(ctx, "tax_id", "ZZZZZZZZZZZZZZ"))
	})

	t.Run("Update_FusionaYConservaID", func(t *testing.T) {
		s := open(t, SupplierSchema())
		created, err := s.Create(ctx, sample("AAAAAAAAAAAAAA"))
		require.NoError(t, err)
		id := created.ID()

		updated, err := s.Update(ctx, id, store.Record{"name": "Nuevo Nombre", "phone": "+55 (21) 2345-6789", "id": "sup_otro"})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, id, updated.ID())
		assert.Equal(t, "Nuevo Nombre", updated["name"])
		assert.Equal(t, "552123456789", updated["phone"])
		assert.Equal(t, "AAAAAAAAAAAAAA", updated["tax_id"], "los campos no enviados se conservan")

		got := s.Get(ctx, id)
		require.NotNil(t, got)
		assert.Equal(t, "Nuevo Nombre", got["name"])
		assert.Nil(t, s.Get(ctx, "sup_otro"))
	})

	t.Run("Update_InexistenteNoCrea", func(t *testing.T) {
		s := open(t, SupplierSchema())
		for _, id := range []string{"sup_no-existe", "garbage", "sup_0123456789abcdef01234567"} {
			got, err := s.Update(ctx, id, sample("AAAAAAAAAAAAAA"))
			assert.NoError(t, err)
			assert.Nil(t, got)
		}
		assert.Empty(t, s.GetAll(ctx))
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t, SupplierSchema())
		created, err := s.Create(ctx, sample("AAAAAAAAAAAAAA"))
		require.NoError(t, err)

		ok, err := s.Delete(ctx, created.ID())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Nil(t, s.Get(ctx, created.ID()))

		ok, err = s.Delete(ctx, created.ID())
		require.NoError(t, err)
		assert.False(t, ok, "borrar dos veces informa false")

		ok, err = s.Delete(ctx, "garbage")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("IndiceUnico", func(t *testing.T) {
		s := open(t, SupplierSchema())
		first, err := s.Create(ctx, sample("AAAAAAAAAAAAAA"))
		require.NoError(t, err)

		_, err = s.Create(ctx, sample("aaaaaaaaaaaaaa"))
		require.Error(t, err)
		var uv *store.UniqueViolationError
		require.True(t, errors.As(err, &uv), "error inesperado: %v", err)
		assert.Equal(t, "tax_id", uv.Field)

		second, err := s.Create(ctx, sample("BBBBBBBBBBBBBB"))
		require.NoError(t, err)
		_, err = s.Update(ctx, second.ID(), store.Record{"tax_id": "AAAAAAAAAAAAAA"})
		assert.ErrorIs(t, err, store.ErrUniqueViolation)

		_, err = s.Update(ctx, first.ID(), store.Record{"tax_id": "AAAAAAAAAAAAAA", "name": "Mismo"})
		assert.NoError(t, err, "actualizar el propio registro con su CNPJ no es colisión")
		assert.Len(t, s.GetAll(ctx), 2)
	})
}
