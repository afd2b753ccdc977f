// Package taxid normaliza y valida el identificador fiscal de proveedores (CNPJ).
// Acepta el formato alfanumérico (A-Z, 0-9, 14 a 18 caracteres) y, por tanto,
// también el CNPJ numérico heredado de 14 dígitos.
package taxid

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	MinLen       = 14
	MaxLen       = 18
	legacyDigits = 14
)

var pattern = regexp.MustCompile(`^[A-Z0-9]{14,18}$`)

// pesos del dígito verificador (módulo 11), aplicados de izquierda a derecha.
var (
	firstWeights  = [12]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	secondWeights = [13]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Normalize recorta, pasa a mayúsculas y elimina todo carácter fuera de [A-Z0-9].
// "12.345.678/0001-90" -> "12345678000190".
func Normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Validate normaliza s y exige el formato [A-Z0-9]{14,18}. Devuelve la forma normalizada.
func Validate(s string) (string, error) {
	n := Normalize(s)
	if n == "" {
		return "", fmt.Errorf("taxid: vacío")
	}
	if !pattern.MatchString(n) {
		return "", fmt.Errorf("taxid: debe contener solo letras mayúsculas y dígitos, %d-%d caracteres (recibidos %d)", MinLen, MaxLen, len(n))
	}
	return n, nil
}

// IsLegacyNumeric indica si s (ya normalizado) es un CNPJ puramente numérico de 14 dígitos.
func IsLegacyNumeric(s string) bool {
	if len(s) != legacyDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// CheckDigits valida los dos dígitos verificadores de un CNPJ de 14 posiciones.
// Las 12 primeras posiciones pueden ser alfanuméricas (valor = ASCII - 48); las dos últimas son dígitos.
// No forma parte de la validación por defecto: los identificadores de 15-18 caracteres no lo admiten.
func CheckDigits(s string) error {
	n := Normalize(s)
	if len(n) != legacyDigits {
		return fmt.Errorf("taxid: el dígito verificador requiere %d caracteres, se recibieron %d", legacyDigits, len(n))
	}
	first, err := computeDigit(n[:12], firstWeights[:])
	if err != nil {
		return err
	}
	second, err := computeDigit(n[:12]+string(first), secondWeights[:])
	if err != nil {
		return err
	}
	if n[12] != first || n[13] != second {
		return fmt.Errorf("taxid: dígitos verificadores inválidos: esperado %c%c, recibido %s", first, second, n[12:])
	}
	return nil
}

// ComputeCheckDigits calcula los dos dígitos verificadores para la base de 12 posiciones.
func ComputeCheckDigits(base string) (string, error) {
	n := Normalize(base)
	if len(n) < 12 {
		return "", fmt.Errorf("taxid: se requieren 12 posiciones base, se encontraron %d", len(n))
	}
	first, err := computeDigit(n[:12], firstWeights[:])
	if err != nil {
		return "", err
	}
	second, err := computeDigit(n[:12]+string(first), secondWeights[:])
	if err != nil {
		return "", err
	}
	return string([]byte{first, second}), nil
}

func computeDigit(base string, weights []int) (byte, error) {
	var sum int
	for i := 0; i < len(base); i++ {
		c := base[i]
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return 0, fmt.Errorf("taxid: carácter inválido %q", c)
		}
		sum += int(c-'0') * weights[i]
	}
	remainder := sum % 11
	if remainder < 2 {
		return '0', nil
	}
	return byte('0' + (11 - remainder)), nil
}
