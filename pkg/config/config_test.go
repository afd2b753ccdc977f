package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/proveedores-api/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, config.BackendFile, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join("db", "suppliers.json"), cfg.Storage.SuppliersPath())
	assert.Equal(t, filepath.Join("db", "users.json"), cfg.Storage.UsersPath())
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, 60, cfg.JWT.Expiration)
	assert.Equal(t, "0.0.0.0:5000", cfg.HTTP.Addr())
	assert.NoError(t, cfg.Validate(), "la configuración por defecto es válida en development")
}

func TestLoad_VariablesDeEntorno(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_BACKEND", "Mongo")
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SEED_SUPPLIERS", "true")
	t.Setenv("SUPPLIERS_FILE", "/var/lib/app/sup.json")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.BackendMongo, cfg.Storage.Backend, "el backend se normaliza a minúsculas")
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.True(t, cfg.App.SeedSuppliers)
	assert.Equal(t, "/var/lib/app/sup.json", cfg.Storage.SuppliersPath(), "ruta absoluta ignora DATA_DIR")
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Errores(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("HTTP_PORT", "0")

	cfg, err := config.Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "HTTP_PORT")
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "prov", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/prov?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
