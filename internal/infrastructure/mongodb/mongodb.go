// Package mongodb implementa store.Store sobre una colección MongoDB: un documento por registro,
// id externo = prefijo + ObjectID hexadecimal.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
	"github.com/jhoicas/proveedores-api/pkg/config"
	"github.com/jhoicas/proveedores-api/pkg/logger"
)

var _ store.Store = (*Store)(nil)

// Connect abre el cliente y verifica la conexión.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("conectar mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// Store backend de documentos.
type Store struct {
	coll   *mongo.Collection
	schema store.Schema
	log    *logger.Logger
}

// Open prepara la colección y asegura sus índices una sola vez.
func Open(ctx context.Context, db *mongo.Database, schema store.Schema, log *logger.Logger) (*Store, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{
		coll:   db.Collection(schema.Collection),
		schema: schema,
		log:    log.Named("mongodb").WithStr("collection", schema.Collection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	var models []mongo.IndexModel
	for _, f := range s.schema.UniqueFields {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: f, Value: 1}},
			Options: options.Index().SetUnique(true).SetName(s.schema.UniqueIndexName(f)),
		})
	}
	for _, f := range s.schema.IndexFields {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: f, Value: 1}},
			Options: options.Index().SetName(s.schema.IndexName(f)),
		})
	}
	if len(models) == 0 {
		return nil
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("crear índices de %s: %w", s.schema.Collection, err)
	}
	return nil
}

func (s *Store) objectID(id string) (primitive.ObjectID, bool) {
	native, ok := s.schema.IDs.Native(id)
	if !ok {
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(native)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// toRecord convierte un documento en registro: _id -> id prefijado, fechas BSON -> time.Time.
func (s *Store) toRecord(doc bson.M) store.Record {
	rec := make(store.Record, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		if dt, ok := v.(primitive.DateTime); ok {
			v = dt.Time().UTC()
		}
		rec[k] = v
	}
	if oid, ok := doc["_id"].(primitive.ObjectID); ok {
		rec[store.FieldID] = s.schema.IDs.New(oid.Hex())
	}
	return rec
}

// toDocument limpia el registro y elimina los campos de identidad.
func (s *Store) toDocument(rec store.Record) bson.M {
	doc := bson.M(s.schema.Clean.Apply(rec))
	delete(doc, store.FieldID)
	delete(doc, "_id")
	return doc
}

func (s *Store) findMany(ctx context.Context, filter any) map[string]store.Record {
	out := map[string]store.Record{}
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		store.MarkDegraded(ctx)
		s.log.Error().Err(err).Msg("lectura fallida, devolviendo vacío")
		return out
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		store.MarkDegraded(ctx)
		s.log.Error().Err(err).Msg("lectura fallida, devolviendo vacío")
		return out
	}
	for _, d := range docs {
		rec := s.toRecord(d)
		out[rec.ID()] = rec
	}
	return out
}

// GetAll devuelve todos los documentos de la colección.
func (s *Store) GetAll(ctx context.Context) map[string]store.Record {
	return s.findMany(ctx, bson.D{})
}

// Get busca por ObjectID; un id sin prefijo o con hex inválido es inexistente.
func (s *Store) Get(ctx context.Context, id string) store.Record {
	oid, ok := s.objectID(id)
	if !ok {
		return nil
	}
	var doc bson.M
	err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			store.MarkDegraded(ctx)
			s.log.Error().Err(err).Str("id", id).Msg("lectura fallida")
		}
		return nil
	}
	return s.toRecord(doc)
}

// FindBy busca por igualdad de campo (usa los índices declarados).
func (s *Store) FindBy(ctx context.Context, field, value string) map[string]store.Record {
	return s.findMany(ctx, bson.M{field: value})
}

// Create inserta un documento con un ObjectID nuevo.
func (s *Store) Create(ctx context.Context, rec store.Record) (store.Record, error) {
	doc := s.toDocument(rec)
	oid := primitive.NewObjectID()
	doc["_id"] = oid
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, s.writeErr("insertar", err)
	}
	out := s.toRecord(doc)
	s.log.Info().Str("id", out.ID()).Msg("documento creado")
	return out, nil
}

// Update aplica $set de forma atómica y devuelve el documento resultante.
func (s *Store) Update(ctx context.Context, id string, rec store.Record) (store.Record, error) {
	oid, ok := s.objectID(id)
	if !ok {
		return nil, nil
	}
	set := s.toDocument(rec)
	if len(set) == 0 {
		return s.Get(ctx, id), nil
	}
	var doc bson.M
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			s.log.Warn().Str("id", id).Msg("documento no encontrado para actualización")
			return nil, nil
		}
		return nil, s.writeErr("actualizar", err)
	}
	return s.toRecord(doc), nil
}

// Delete elimina por ObjectID.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	oid, ok := s.objectID(id)
	if !ok {
		return false, nil
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, s.writeErr("eliminar", err)
	}
	return res.DeletedCount > 0, nil
}

// Close no desconecta el cliente: lo comparte con otras colecciones y lo cierra quien lo creó.
func (s *Store) Close(context.Context) error { return nil }

func (s *Store) writeErr(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		msg := err.Error()
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
