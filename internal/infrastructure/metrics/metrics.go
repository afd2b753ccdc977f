// Package metrics expone contadores Prometheus para operaciones de almacenamiento y tráfico HTTP.
//
// Etiquetas con cardinalidad acotada:
//   - collection: nombre de la colección (suppliers, users)
//   - op:         get_all, get, find_by, create, update, delete
//   - result:     ok, miss, degraded, duplicate, error
//   - method/path/status: ruta registrada en fiber, nunca la URL cruda
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
)

// Metrics agrupa los colectores sobre un registro propio (no el global),
// de modo que cada instancia y cada test parten de cero.
type Metrics struct {
	registry *prometheus.Registry

	storeOps *prometheus.CounterVec
	storeLat *prometheus.HistogramVec

	httpReqs     *prometheus.CounterVec
	httpLat      *prometheus.HistogramVec
	httpInflight prometheus.Gauge
}

// New crea y registra los colectores.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_operations_total",
				Help: "Operaciones sobre el almacenamiento por colección, operación y resultado.",
			},
			[]string{"collection", "op", "result"},
		),
		storeLat: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_operation_duration_seconds",
				Help:    "Duración de las operaciones de almacenamiento.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collection", "op"},
		),
		httpReqs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total de peticiones HTTP.",
			},
			[]string{"method", "path", "status"},
		),
		httpLat: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duración de las peticiones HTTP.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Peticiones HTTP en curso.",
		}),
	}
	m.registry.MustRegister(
		m.storeOps, m.storeLat,
		m.httpReqs, m.httpLat, m.httpInflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry devuelve el registro, útil para inspección en tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler sirve el formato de exposición de Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// StoreOps contador de operaciones, expuesto para tests.
func (m *Metrics) StoreOps() *prometheus.CounterVec { return m.storeOps }

// HTTPRequests contador de peticiones, expuesto para tests.
func (m *Metrics) HTTPRequests() *prometheus.CounterVec { return m.httpReqs }

// RequestStarted incrementa el gauge de peticiones en curso y devuelve la función que lo cierra.
func (m *Metrics) RequestStarted() func(method, path string, status int) {
	start := time.Now()
	m.httpInflight.Inc()
	return func(method, path string, status int) {
		m.httpInflight.Dec()
		m.httpReqs.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		m.httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) observe(collection, op, result string, start time.Time) {
	m.storeOps.WithLabelValues(collection, op, result).Inc()
	m.storeLat.WithLabelValues(collection, op).Observe(time.Since(start).Seconds())
}

// Instrument envuelve un store.Store contando cada operación.
func (m *Metrics) Instrument(s store.Store, collection string) store.Store {
	return &instrumented{next: s, m: m, collection: collection}
}

var _ store.Store = (*instrumented)(nil)

type instrumented struct {
	next       store.Store
	m          *Metrics
	collection string
}

func writeResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrUniqueViolation):
		return "duplicate"
	default:
		return "error"
	}
}

// readResult distingue una lectura vacía legítima de una que degradó por un fallo.
func readResult(degraded func() bool, found bool) string {
	switch {
	case degraded():
		return "degraded"
	case !found:
		return "miss"
	default:
		return "ok"
	}
}

func (s *instrumented) GetAll(ctx context.Context) map[string]store.Record {
	start := time.Now()
	ctx, degraded := store.TrackDegraded(ctx)
	out := s.next.GetAll(ctx)
	s.m.observe(s.collection, "get_all", readResult(degraded, true), start)
	return out
}

func (s *instrumented) Get(ctx context.Context, id string) store.Record {
	start := time.Now()
	ctx, degraded := store.TrackDegraded(ctx)
	out := s.next.Get(ctx, id)
	s.m.observe(s.collection, "get", readResult(degraded, out != nil), start)
	return out
}

func (s *instrumented) FindBy(ctx context.Context, field, value string) map[string]store.Record {
	start := time.Now()
	ctx, degraded := store.TrackDegraded(ctx)
	out := s.next.FindBy(ctx, field, value)
	s.m.observe(s.collection, "find_by", readResult(degraded, true), start)
	return out
}

func (s *instrumented) Create(ctx context.Context, rec store.Record) (store.Record, error) {
	start := time.Now()
	out, err := s.next.Create(ctx, rec)
	s.m.observe(s.collection, "create", writeResult(err), start)
	return out, err
}

func (s *instrumented) Update(ctx context.Context, id string, rec store.Record) (store.Record, error) {
	start := time.Now()
	out, err := s.next.Update(ctx, id, rec)
	result := writeResult(err)
	if err == nil && out == nil {
		result = "miss"
	}
	s.m.observe(s.collection, "update", result, start)
	return out, err
}

func (s *instrumented) Delete(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	ok, err := s.next.Delete(ctx, id)
	result := writeResult(err)
	if err == nil && !ok {
		result = "miss"
	}
	s.m.observe(s.collection, "delete", result, start)
	return ok, err
}

func (s *instrumented) Close(ctx context.Context) error { return s.next.Close(ctx) }
