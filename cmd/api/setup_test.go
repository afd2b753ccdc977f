package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/proveedores-api/internal/infrastructure/filestore"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/recordrepo"
	"github.com/jhoicas/proveedores-api/pkg/config"
	"github.com/jhoicas/proveedores-api/pkg/logger"
	"github.com/jhoicas/proveedores-api/pkg/password"
)

var fastHasher = password.Hasher{Cost: bcrypt.MinCost}

func testConfig(dir string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Name: "proveedores-api", SeedSuppliers: true, MetricsEnabled: true},
		Storage: config.StorageConfig{
			Backend:       config.BackendFile,
			DataDir:       dir,
			SuppliersFile: "suppliers.json",
			UsersFile:     "users.json",
		},
		JWT:   config.JWTConfig{Secret: "secret", Expiration: 60, Issuer: "test"},
		Admin: config.AdminConfig{Username: "admin", Email: "admin@example.com", Password: "admin123"},
	}
}

// openerConCierre abre stores de archivo y cuenta cuántas veces se liberan.
func openerConCierre(released *int) storeOpener {
	return func(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
		st, err := openStores(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		st.release = func() { *released++ }
		return st, nil
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// setup
// ──────────────────────────────────────────────────────────────────────────────

func TestSetup_ArmaAppSobreArchivos(t *testing.T) {
	dir := t.TempDir()
	released := 0
	srv, err := setup(context.Background(), testConfig(dir), logger.Nop(), openerConCierre(&released), fastHasher)
	require.NoError(t, err)
	assert.Equal(t, 0, released, "con éxito los stores siguen abiertos")

	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `{"status":"ok","backend":"file"}`, string(body))

	resp, err = srv.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	srv.stores.Close(context.Background())
	assert.Equal(t, 1, released)

	// Admin y proveedores de ejemplo quedaron persistidos.
	users, _, err := filestore.Open(filepath.Join(dir, "users.json"), recordrepo.UserSchema(), logger.Nop())
	require.NoError(t, err)
	assert.Len(t, users.GetAll(context.Background()), 1)
	sups, _, err := filestore.Open(filepath.Join(dir, "suppliers.json"), recordrepo.SupplierSchema(), logger.Nop())
	require.NoError(t, err)
	assert.Len(t, sups.GetAll(context.Background()), len(recordrepo.DemoSuppliers()))
}

func TestSetup_FalloTrasAbrirLiberaStores(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Admin.Password = ""

	released := 0
	srv, err := setup(context.Background(), cfg, logger.Nop(), openerConCierre(&released), fastHasher)
	require.Error(t, err)
	assert.Nil(t, srv)
	assert.Equal(t, 1, released, "un fallo en la provisión del admin cierra lo abierto")
}

func TestSetup_FalloAlAbrirNoLibera(t *testing.T) {
	boom := errors.New("sin conexión")
	srv, err := setup(context.Background(), testConfig(t.TempDir()), logger.Nop(),
		func(context.Context, *config.Config, *logger.Logger) (*stores, error) { return nil, boom },
		fastHasher)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, srv)
}
