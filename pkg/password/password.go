// Package password encapsula el hash unidireccional de credenciales (bcrypt, con sal aleatoria).
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxBytes longitud máxima que acepta bcrypt.
const MaxBytes = 72

var (
	// ErrEmpty se devuelve al intentar hashear una contraseña vacía.
	ErrEmpty = errors.New("password: vacía")
	// ErrTooLong la contraseña supera MaxBytes (no caracteres).
	ErrTooLong = errors.New("password: supera 72 bytes")
)

// Hasher genera y verifica digests. Cost permite bajar el coste en tests.
type Hasher struct {
	Cost int
}

// Default usa bcrypt.DefaultCost.
var Default = Hasher{Cost: bcrypt.DefaultCost}

// Hash devuelve el digest bcrypt de plaintext. Dos llamadas con la misma entrada producen digests distintos.
func (h Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmpty
	}
	if len(plaintext) > MaxBytes {
		return "", ErrTooLong
	}
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(digest), nil
}

// Verify compara plaintext con digest. Cualquier error (digest corrupto incluido) es false.
func (h Hasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// Hash usa el Hasher por defecto.
func Hash(plaintext string) (string, error) { return Default.Hash(plaintext) }

// Verify usa el Hasher por defecto.
func Verify(plaintext, digest string) bool { return Default.Verify(plaintext, digest) }
