package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
	"github.com/jhoicas/proveedores-api/pkg/logger"
)

var _ store.Store = (*DocumentStore)(nil)

// DocumentStore implementación de store.Store como colección JSONB: una fila por registro,
// clave nativa UUID, índices de expresión sobre data->>'campo'.
type DocumentStore struct {
	pool   *pgxpool.Pool
	schema store.Schema
	table  string // identificador ya saneado
	log    *logger.Logger
}

// NewDocumentStore construye el adaptador y asegura tabla e índices.
func NewDocumentStore(ctx context.Context, pool *pgxpool.Pool, schema store.Schema, log *logger.Logger) (*DocumentStore, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &DocumentStore{
		pool:   pool,
		schema: schema,
		table:  pgx.Identifier{schema.Collection}.Sanitize(),
		log:    log.Named("postgres").WithStr("collection", schema.Collection),
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DocumentStore) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id         UUID PRIMARY KEY,
			data       JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table),
	}
	// Los nombres de campo ya pasaron Schema.Validate ([a-z_][a-z0-9_]*).
	for _, f := range s.schema.UniqueFields {
		stmts = append(stmts, fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s ((data->>'%s'))`,
			pgx.Identifier{s.schema.UniqueIndexName(f)}.Sanitize(), s.table, f))
	}
	for _, f := range s.schema.IndexFields {
		stmts = append(stmts, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s ((data->>'%s'))`,
			pgx.Identifier{s.schema.IndexName(f)}.Sanitize(), s.table, f))
	}
	// Tabla e índices en una sola transacción: un índice único que no se puede crear
	// (datos previos duplicados) no deja la tabla a medio migrar.
	err := NewTxRunner(s.pool).Run(ctx, func(tx pgx.Tx) error {
		for _, q := range stmts {
			if _, err := tx.Exec(ctx, q); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("migrar %s: %w", s.schema.Collection, err)
	}
	return nil
}

func (s *DocumentStore) nativeID(id string) (uuid.UUID, bool) {
	native, ok := s.schema.IDs.Native(id)
	if !ok {
		return uuid.Nil, false
	}
	u, err := uuid.Parse(native)
	if err != nil {
		return uuid.Nil, false
	}
	return u, true
}

func (s *DocumentStore) decode(native uuid.UUID, raw []byte) (store.Record, error) {
	rec := store.Record{}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	rec[store.FieldID] = s.schema.IDs.New(native.String())
	return rec, nil
}

func (s *DocumentStore) encode(rec store.Record) ([]byte, error) {
	doc := s.schema.Clean.Apply(rec)
	delete(doc, store.FieldID)
	return json.Marshal(doc)
}

func (s *DocumentStore) query(ctx context.Context, q string, args ...any) map[string]store.Record {
	out := map[string]store.Record{}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		store.MarkDegraded(ctx)
		s.log.Error().Err(err).Msg("lectura fallida, devolviendo vacío")
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  uuid.UUID
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			store.MarkDegraded(ctx)
			s.log.Error().Err(err).Msg("scan fallido, devolviendo vacío")
			return map[string]store.Record{}
		}
		rec, err := s.decode(id, raw)
		if err != nil {
			s.log.Warn().Err(err).Str("native_id", id.String()).Msg("registro inválido omitido")
			continue
		}
		out[rec.ID()] = rec
	}
	if err := rows.Err(); err != nil {
		store.MarkDegraded(ctx)
		s.log.Error().Err(err).Msg("lectura fallida, devolviendo vacío")
		return map[string]store.Record{}
	}
	return out
}

// GetAll devuelve todas las filas de la colección.
func (s *DocumentStore) GetAll(ctx context.Context) map[string]store.Record {
	return s.query(ctx, fmt.Sprintf(`SELECT id, data FROM %s ORDER BY created_at`, s.table))
}

// Get obtiene una fila por id; ids sin prefijo o con UUID inválido son inexistentes.
func (s *DocumentStore) Get(ctx context.Context, id string) store.Record {
	native, ok := s.nativeID(id)
	if !ok {
		return nil
	}
	var raw []byte
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, s.table), native).Scan(&raw)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			store.MarkDegraded(ctx)
			s.log.Error().Err(err).Str("id", id).Msg("lectura fallida")
		}
		return nil
	}
	rec, err := s.decode(native, raw)
	if err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("registro inválido")
		return nil
	}
	return rec
}

// FindBy busca por data->>field.
func (s *DocumentStore) FindBy(ctx context.Context, field, value string) map[string]store.Record {
	return s.query(ctx, fmt.Sprintf(`SELECT id, data FROM %s WHERE data->>$1 = $2 ORDER BY created_at`, s.table), field, value)
}

// Create inserta una fila con UUID nuevo.
func (s *DocumentStore) Create(ctx context.Context, rec store.Record) (store.Record, error) {
	raw, err := s.encode(rec)
	if err != nil {
		return nil, store.WriteError("codificar", err)
	}
	native := uuid.New()
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (id, data) VALUES ($1, $2::jsonb)`, s.table), native, string(raw)); err != nil {
		return nil, s.writeErr("insertar", err)
	}
	out, err := s.decode(native, raw)
	if err != nil {
		return nil, store.WriteError("decodificar", err)
	}
	s.log.Info().Str("id", out.ID()).Msg("fila creada")
	return out, nil
}

// Update fusiona con el operador || de JSONB en una sola sentencia.
func (s *DocumentStore) Update(ctx context.Context, id string, rec store.Record) (store.Record, error) {
	native, ok := s.nativeID(id)
	if !ok {
		return nil, nil
	}
	patch, err := s.encode(rec)
	if err != nil {
		return nil, store.WriteError("codificar", err)
	}
	var raw []byte
	err = s.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE %s SET data = data || $2::jsonb WHERE id = $1 RETURNING data`, s.table),
		native, string(patch),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.log.Warn().Str("id", id).Msg("fila no encontrada para actualización")
			return nil, nil
		}
		return nil, s.writeErr("actualizar", err)
	}
	return s.decode(native, raw)
}

// Delete elimina una fila por id.
func (s *DocumentStore) Delete(ctx context.Context, id string) (bool, error) {
	native, ok := s.nativeID(id)
	if !ok {
		return false, nil
	}
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table), native)
	if err != nil {
		return false, s.writeErr("eliminar", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Close no cierra el pool: lo comparten todas las colecciones.
func (s *DocumentStore) Close(context.Context) error { return nil }

func (s *DocumentStore) writeErr(op string, err error) error {
	if constraint, ok := isUniqueViolation(err); ok {
		return &store.UniqueViolationError{Field: s.schema.FieldForIndex(constraint)}
	}
	s.log.Error().Err(err).Str("op", op).Msg("fallo de escritura")
	return store.WriteError(op+" en "+s.schema.Collection, err)
}
