// Package sqlite implementa store.Store sobre SQLite embebido (GORM + driver Go puro).
// Cada colección es una tabla con el registro serializado en una columna JSON; los índices
// únicos y de búsqueda son índices de expresión sobre json_extract.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
	"github.com/jhoicas/proveedores-api/pkg/logger"
)

// document fila genérica de una colección.
type document struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Data      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// OpenSQLite abre (o crea) la base y aplica PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Falla pronto si el directorio padre no existe.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// CloseDB cierra la conexión subyacente.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ store.Store = (*Store)(nil)

// Store colección SQLite.
type Store struct {
	db     *gorm.DB
	schema store.Schema
	log    *logger.Logger
}

// Open migra la tabla de la colección y sus índices.
func Open(ctx context.Context, db *gorm.DB, schema store.Schema, log *logger.Logger) (*Store, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{db: db, schema: schema, log: log.Named("sqlite").WithStr("collection", schema.Collection)}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) table(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.schema.Collection)
}

func (s *Store) migrate(ctx context.Context) error {
	if err := s.table(ctx).AutoMigrate(&document{}); err != nil {
		return fmt.Errorf("migrar %s: %w", s.schema.Collection, err)
	}
	// Nombres ya validados por Schema.Validate.
	var stmts []string
	for _, f := range s.schema.UniqueFields {
		stmts = append(stmts, fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (json_extract(data, '$.%s'))`,
			s.schema.UniqueIndexName(f), s.schema.Collection, f))
	}
	for _, f := range s.schema.IndexFields {
		stmts = append(stmts, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (json_extract(data, '$.%s'))`,
			s.schema.IndexName(f), s.schema.Collection, f))
	}
	for _, q := range stmts {
		if err := s.db.WithContext(ctx).Exec(q).Error; err != nil {
			return fmt.Errorf("migrar %s: %w", s.schema.Collection, err)
		}
	}
	return nil
}

func (s *Store) decode(d document) (store.Record, error) {
	rec := store.Record{}
	if err := json.Unmarshal([]byte(d.Data), &rec); err != nil {
		return nil, err
	}
	rec[store.FieldID] = s.schema.IDs.New(d.ID)
	return rec, nil
}

func (s *Store) encode(rec store.Record) (string, error) {
	doc := s.schema.Clean.Apply(rec)
	delete(doc, store.FieldID)
	b, err := json.Marshal(doc)
	return string(b), err
}

func (s *Store) collect(docs []document) map[string]store.Record {
	out := make(map[string]store.Record, len(docs))
	for _, d := range docs {
		rec, err := s.decode(d)
		if err != nil {
			s.log.Warn().Err(err).Str("native_id", d.ID).Msg("registro inválido omitido")
			continue
		}
		out[rec.ID()] = rec
	}
	return out
}

// GetAll devuelve todas las filas.
func (s *Store) GetAll(ctx context.Context) map[string]store.Record {
	var docs []document
	if err := s.table(ctx).Order("created_at").Find(&docs).Error; err != nil {
		store.MarkDegraded(ctx)
		s.log.Error().Err(err).Msg("lectura fallida, devolviendo vacío")
		return map[string]store.Record{}
	}
	return s.collect(docs)
}

// Get devuelve la fila o nil.
func (s *Store) Get(ctx context.Context, id string) store.Record {
	native, ok := s.schema.IDs.Native(id)
	if !ok {
		return nil
	}
	var d document
	if err := s.table(ctx).Where("id = ?", native).Take(&d).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			store.MarkDegraded(ctx)
			s.log.Error().Err(err).Str("id", id).Msg("lectura fallida")
		}
		return nil
	}
	rec, err := s.decode(d)
	if err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("registro inválido")
		return nil
	}
	return rec
}

// FindBy busca por json_extract(data, '$.field').
func (s *Store) FindBy(ctx context.Context, field, value string) map[string]store.Record {
	var docs []document
	err := s.table(ctx).
		Where("json_extract(data, ?) = ?", "$."+field, value).
		Order("created_at").
		Find(&docs).Error
	if err != nil {
		store.MarkDegraded(ctx)
		s.log.Error().Err(err).Str("field", field).Msg("búsqueda fallida, devolviendo vacío")
		return map[string]store.Record{}
	}
	return s.collect(docs)
}

// Create inserta con un UUID nuevo como clave nativa.
func (s *Store) Create(ctx context.Context, rec store.Record) (store.Record, error) {
	data, err := s.encode(rec)
	if err != nil {
		return nil, store.WriteError("codificar", err)
	}
	d := document{ID: uuid.NewString(), Data: data, CreatedAt: time.Now().UTC()}
	if err := s.table(ctx).Create(&d).Error; err != nil {
		return nil, s.writeErr("insertar", err)
	}
	out, err := s.decode(d)
	if err != nil {
		return nil, store.WriteError("decodificar", err)
	}
	s.log.Info().Str("id", out.ID()).Msg("fila creada")
	return out, nil
}

// Update lee, fusiona y reescribe dentro de una transacción.
func (s *Store) Update(ctx context.Context, id string, rec store.Record) (store.Record, error) {
	native, ok := s.schema.IDs.Native(id)
	if !ok {
		return nil, nil
	}
	var out store.Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d document
		if err := tx.Table(s.schema.Collection).Where("id = ?", native).Take(&d).Error; err != nil {
			return err
		}
		current, err := s.decode(d)
		if err != nil {
			return err
		}
		data, err := s.encode(store.Merge(current, rec, id))
		if err != nil {
			return err
		}
		if err := tx.Table(s.schema.Collection).Where("id = ?", native).Update("data", data).Error; err != nil {
			return err
		}
		d.Data = data
		out, err = s.decode(d)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn().Str("id", id).Msg("fila no encontrada para actualización")
			return nil, nil
		}
		return nil, s.writeErr("actualizar", err)
	}
	return out, nil
}

// Delete elimina una fila.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	native, ok := s.schema.IDs.Native(id)
	if !ok {
		return false, nil
	}
	res := s.table(ctx).Where("id = ?", native).Delete(&document{})
	if res.Error != nil {
		return false, s.writeErr("eliminar", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Close no cierra la base: la comparten todas las colecciones (ver CloseDB).
func (s *Store) Close(context.Context) error { return nil }

// writeErr traduce "UNIQUE constraint failed: index 'uniq_...'" al campo del esquema.
func (s *Store) writeErr(op string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		for _, f := range s.schema.UniqueFields {
			if strings.Contains(msg, s.schema.UniqueIndexName(f)) {
				return &store.UniqueViolationError{Field: f}
			}
		}
		return &store.UniqueViolationError{}
	}
	s.log.Error().Err(err).Str("op", op).Msg("fallo de escritura")
	return store.WriteError(op+" en "+s.schema.Collection, err)
}
