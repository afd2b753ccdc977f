package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/proveedores-api/internal/infrastructure/postgres"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/store/storetest"
	"github.com/jhoicas/proveedores-api/pkg/config"
	"github.com/jhoicas/proveedores-api/pkg/logger"
)

// Integración: requiere TEST_DATABASE_URL apuntando a una base desechable.
func TestDocumentStore_Contrato(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	storetest.Run(t, func(t *testing.T, schema store.Schema) store.Store {
		drop := func() {
			_, _ = pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+pgx.Identifier{schema.Collection}.Sanitize())
		}
		drop()
		t.Cleanup(drop)

		s, err := postgres.NewDocumentStore(ctx, pool, schema, logger.Nop())
		require.NoError(t, err)
		return s
	})
}
