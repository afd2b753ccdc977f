package taxid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/proveedores-api/pkg/taxid"
)

func TestNormalize_QuitaPuntuacionYEspacios(t *testing.T) {
	assert.Equal(t, "12345678000190", taxid.Normalize(" 12.345.678/0001-90 "))
	assert.Equal(t, "ABC123DEF456GH", taxid.Normalize("abc123def456gh"))
	assert.Equal(t, "", taxid.Normalize(" ./- "))
}

func TestValidate_Validos(t *testing.T) {
	cases := map[string]string{
		"ABC123DEF456GH":       "ABC123DEF456GH",
		"12345678000190":       "12345678000190",
		"12.345.678/0001-90":   "12345678000190",
		"  abc123def456gh1234 ": "ABC123DEF456GH1234",
	}
	for in, want := range cases {
		got, err := taxid.Validate(in)
		require.NoError(t, err, "entrada %q", in)
		assert.Equal(t, want, got)
	}
}

func TestValidate_Invalidos(t *testing.T) {
	for _, in := range []string{"", "short", "1234567890123", "ABC123DEF456GH12345"} {
		_, err := taxid.Validate(in)
		assert.Error(t, err, "entrada %q debe ser inválida", in)
	}
}

func TestIsLegacyNumeric(t *testing.T) {
	assert.True(t, taxid.IsLegacyNumeric("12345678000190"))
	assert.False(t, taxid.IsLegacyNumeric("ABC123DEF456GH"))
	assert.False(t, taxid.IsLegacyNumeric("123456780001901"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Dígitos verificadores
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckDigits_CNPJValido(t *testing.T) {
	assert.NoError(t, taxid.CheckDigits("11.222.333/0001-81"))
}

func TestCheckDigits_CNPJInvalido(t *testing.T) {
	assert.Error(t, taxid.CheckDigits("11222333000182"))
	assert.Error(t, taxid.CheckDigits("112223330001"), "longitud distinta de 14")
}

func TestComputeCheckDigits_CoincideConCheck(t *testing.T) {
	dv, err := taxid.ComputeCheckDigits("112223330001")
	require.NoError(t, err)
	assert.Equal(t, "81", dv)

	alnum := "12ABC34501DE"
	dv, err = taxid.ComputeCheckDigits(alnum)
	require.NoError(t, err)
	assert.NoError(t, taxid.CheckDigits(alnum+dv), "el CNPJ alfanumérico completado debe validar")
}
