package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/proveedores-api/internal/infrastructure/filestore"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/metrics"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/store/storetest"
	"github.com/jhoicas/proveedores-api/pkg/logger"
)

func openInstrumented(t *testing.T) (*metrics.Metrics, store.Store) {
	t.Helper()
	fs, _, err := filestore.Open(filepath.Join(t.TempDir(), "suppliers.json"), storetest.SupplierSchema(), logger.Nop())
	require.NoError(t, err)
	m := metrics.New()
	return m, m.Instrument(fs, "suppliers")
}

func TestInstrument_CumpleContrato(t *testing.T) {
	storetest.Run(t, func(t *testing.T, schema store.Schema) store.Store {
		fs, _, err := filestore.Open(filepath.Join(t.TempDir(), "data.json"), schema, logger.Nop())
		require.NoError(t, err)
		return metrics.New().Instrument(fs, schema.Collection)
	})
}

func TestInstrument_CuentaResultados(t *testing.T) {
	ctx := context.Background()
	m, s := openInstrumented(t)
	ops := m.StoreOps()

	created, err := s.Create(ctx, store.Record{"name": "ABC", "tax_id": "AAAAAAAAAAAAAA"})
	require.NoError(t, err)
	_, err = s.Create(ctx, store.Record{"name": "Otro", "tax_id": "AAAAAAAAAAAAAA"})
	require.Error(t, err)

	assert.Nil(t, s.Get(ctx, "sup_no-existe"))
	assert.NotNil(t, s.Get(ctx, created.ID()))

	ok, err := s.Delete(ctx, "sup_no-existe")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("suppliers", "create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("suppliers", "create", "duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("suppliers", "get", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("suppliers", "get", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("suppliers", "delete", "miss")))
}

func TestInstrument_LecturaDegradadaNoEsVacioLegitimo(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "suppliers.json")
	fs, _, err := filestore.Open(path, storetest.SupplierSchema(), logger.Nop())
	require.NoError(t, err)
	m := metrics.New()
	s := m.Instrument(fs, "suppliers")
	ops := m.StoreOps()

	assert.Empty(t, s.GetAll(ctx))
	assert.Empty(t, s.FindBy(ctx, "tax_id", "AAAAAAAAAAAAAA"))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("suppliers", "get_all", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("suppliers", "find_by", "ok")))

	require.NoError(t, os.WriteFile(path, []byte("corrupto"), 0o644))

	assert.Empty(t, s.GetAll(ctx))
	assert.Empty(t, s.FindBy(ctx, "tax_id", "AAAAAAAAAAAAAA"))
	assert.Nil(t, s.Get(ctx, "sup_00000000-0000-0000-0000-000000000000"))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("suppliers", "get_all", "degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("suppliers", "find_by", "degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("suppliers", "get", "degraded")))
	assert.Equal(t, 0.0, testutil.ToFloat64(ops.WithLabelValues("suppliers", "get", "miss")))
}

func TestRequestStarted_RegistraPeticion(t *testing.T) {
	m := metrics.New()
	done := m.RequestStarted()
	done(http.MethodGet, "/api/suppliers", http.StatusOK)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests().WithLabelValues("GET", "/api/suppliers", "200")))
}

func TestHandler_ExponeMetricas(t *testing.T) {
	m, s := openInstrumented(t)
	_ = s.GetAll(context.Background())

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `store_operations_total{collection="suppliers",op="get_all",result="ok"} 1`)
}
