// Package filestore implementa store.Store sobre un único archivo JSON: un mapa id -> registro
// que se reescribe completo en cada escritura.
//
// Las secuencias leer-modificar-escribir se serializan con un mutex por store y la escritura
// se hace sobre un archivo temporal renombrado al final, de modo que un lector nunca ve un
// archivo a medio escribir. Solo una instancia debe poseer una ruta a la vez.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
	"github.com/jhoicas/proveedores-api/pkg/logger"
)

var _ store.Store = (*Store)(nil)

// Store backend de archivo JSON.
type Store struct {
	path   string
	schema store.Schema
	log    *logger.Logger

	mu sync.RWMutex
}

// RepairReport resultado de la pasada de reparación ejecutada al abrir.
type RepairReport struct {
	Dropped  []string // claves con valor vacío o nulo
	Resynced []string // claves cuyo id interno no coincidía
	Total    int
}

// Open abre (o crea vacío) el archivo y ejecuta la reparación: descarta entradas vacías,
// sincroniza el id interno con la clave y aplica la limpieza de campos. Un archivo existente
// que no se puede decodificar es un error: no se sobreescribe.
func Open(path string, schema store.Schema, log *logger.Logger) (*Store, *RepairReport, error) {
	if err := schema.Validate(); err != nil {
		return nil, nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{path: path, schema: schema, log: log.Named("filestore")}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("filestore: crear directorio: %w", err)
	}
	report, err := s.repair()
	if err != nil {
		return nil, nil, err
	}
	if len(report.Dropped) > 0 || len(report.Resynced) > 0 {
		s.log.Warn().
			Str("file", path).
			Strs("dropped", report.Dropped).
			Strs("resynced", report.Resynced).
			Msg("registros reparados al abrir")
	}
	return s, report, nil
}

// Path devuelve la ruta del archivo.
func (s *Store) Path() string { return s.path }

func (s *Store) repair() (*RepairReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info().Str("file", s.path).Msg("archivo no encontrado, creando nuevo")
		return &RepairReport{}, s.write(map[string]store.Record{})
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: leer %s: %w", s.path, err)
	}

	entries := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("filestore: %s no es un mapa JSON válido: %w", s.path, err)
		}
	}

	report := &RepairReport{}
	fixed := make(map[string]store.Record, len(entries))
	for key, msg := range entries {
		var rec store.Record
		if err := json.Unmarshal(msg, &rec); err != nil || len(rec) == 0 {
			report.Dropped = append(report.Dropped, key)
			continue
		}
		if rec.ID() != key {
			report.Resynced = append(report.Resynced, key)
		}
		rec = s.schema.Clean.Apply(rec)
		rec[store.FieldID] = key
		fixed[key] = rec
	}
	report.Total = len(fixed)
	return report, s.write(fixed)
}

// load lee el archivo completo. Las entradas nulas se omiten.
func (s *Store) load() (map[string]store.Record, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	data := map[string]store.Record{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	for k, v := range data {
		if v == nil {
			delete(data, k)
		}
	}
	return data, nil
}

// readDegraded es la lectura tolerante: ante cualquier fallo devuelve un mapa vacío.
func (s *Store) readDegraded(ctx context.Context) map[string]store.Record {
	data, err := s.load()
	if err != nil {
		store.MarkDegraded(ctx)
		s.log.Error().Err(err).Str("file", s.path).Msg("lectura fallida, devolviendo vacío")
		return map[string]store.Record{}
	}
	return data
}

func (s *Store) write(data map[string]store.Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(data); err != nil {
		return store.WriteError("codificar "+s.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return store.WriteError("crear temporal", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return store.WriteError("escribir "+tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return store.WriteError("sync "+tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return store.WriteError("cerrar "+tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return store.WriteError("renombrar a "+s.path, err)
	}
	return nil
}

// GetAll devuelve todos los registros.
func (s *Store) GetAll(ctx context.Context) map[string]store.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readDegraded(ctx)
}

// Get devuelve el registro o nil.
func (s *Store) Get(ctx context.Context, id string) store.Record {
	if !s.schema.IDs.Owns(id) {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readDegraded(ctx)[id]
}

// FindBy busca por igualdad exacta de campo.
func (s *Store) FindBy(ctx context.Context, field, value string) map[string]store.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]store.Record{}
	for id, rec := range s.readDegraded(ctx) {
		if v, ok := rec[field].(string); ok && v == value {
			out[id] = rec
		}
	}
	return out
}

// Create asigna sup_<uuid>/usr_<uuid> y reescribe el archivo.
func (s *Store) Create(_ context.Context, rec store.Record) (store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, store.WriteError("leer antes de crear", err)
	}
	id := s.schema.IDs.New(uuid.NewString())
	clean := store.Merge(nil, s.schema.Clean.Apply(rec), id)
	if err := s.checkUnique(data, id, clean); err != nil {
		return nil, err
	}
	data[id] = clean
	if err := s.write(data); err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("fallo al crear")
		return nil, err
	}
	s.log.Info().Str("id", id).Msg("registro creado")
	return clean.Clone(), nil
}

// Update fusiona rec sobre el registro existente.
func (s *Store) Update(_ context.Context, id string, rec store.Record) (store.Record, error) {
	if !s.schema.IDs.Owns(id) {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, store.WriteError("leer antes de actualizar", err)
	}
	current, ok := data[id]
	if !ok {
		s.log.Warn().Str("id", id).Msg("registro no encontrado para actualización")
		return nil, nil
	}
	merged := store.Merge(current, s.schema.Clean.Apply(rec), id)
	if err := s.checkUnique(data, id, merged); err != nil {
		return nil, err
	}
	data[id] = merged
	if err := s.write(data); err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("fallo al actualizar")
		return nil, err
	}
	s.log.Info().Str("id", id).Msg("registro actualizado")
	return merged.Clone(), nil
}

// Delete elimina el registro si existe.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	if !s.schema.IDs.Owns(id) {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return false, store.WriteError("leer antes de eliminar", err)
	}
	if _, ok := data[id]; !ok {
		s.log.Warn().Str("id", id).Msg("registro no encontrado para eliminación")
		return false, nil
	}
	delete(data, id)
	if err := s.write(data); err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("fallo al eliminar")
		return false, err
	}
	s.log.Info().Str("id", id).Msg("registro eliminado")
	return true, nil
}

// Close no mantiene recursos abiertos.
func (s *Store) Close(context.Context) error { return nil }

// checkUnique emula el índice único de los backends de base de datos; se ejecuta con el lock tomado.
func (s *Store) checkUnique(data map[string]store.Record, id string, rec store.Record) error {
	for _, field := range s.schema.UniqueFields {
		v, ok := rec[field].(string)
		if !ok || v == "" {
			continue
		}
		for otherID, other := range data {
			if otherID == id {
				continue
			}
			if ov, _ := other[field].(string); ov == v {
				return &store.UniqueViolationError{Field: field}
			}
		}
	}
	return nil
}
