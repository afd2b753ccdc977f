package main

import (
	"context"
	"fmt"

	"github.com/jhoicas/proveedores-api/internal/infrastructure/filestore"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/mongodb"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/postgres"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/recordrepo"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
	"github.com/jhoicas/proveedores-api/pkg/config"
	"github.com/jhoicas/proveedores-api/pkg/logger"
)

// stores par de colecciones abiertas sobre el backend elegido y el cierre del recurso compartido.
type stores struct {
	suppliers store.Store
	users     store.Store
	release   func()
}

func (s *stores) Close(ctx context.Context) {
	if s.suppliers != nil {
		_ = s.suppliers.Close(ctx)
	}
	if s.users != nil {
		_ = s.users.Close(ctx)
	}
	if s.release != nil {
		s.release()
	}
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	supSchema, usrSchema := recordrepo.SupplierSchema(), recordrepo.UserSchema()

	switch cfg.Storage.Backend {
	case config.BackendFile:
		sup, rep, err := filestore.Open(cfg.Storage.SuppliersPath(), supSchema, log)
		if err != nil {
			return nil, fmt.Errorf("abrir %s: %w", cfg.Storage.SuppliersPath(), err)
		}
		logRepair(log, supSchema.Collection, rep)
		usr, rep, err := filestore.Open(cfg.Storage.UsersPath(), usrSchema, log)
		if err != nil {
			return nil, fmt.Errorf("abrir %s: %w", cfg.Storage.UsersPath(), err)
		}
		logRepair(log, usrSchema.Collection, rep)
		return &stores{suppliers: sup, users: usr}, nil

	case config.BackendMongo:
		client, err := mongodb.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		release := func() { _ = client.Disconnect(context.Background()) }
		db := client.Database(cfg.Mongo.Database)
		sup, err := mongodb.Open(ctx, db, supSchema, log)
		if err != nil {
			release()
			return nil, err
		}
		usr, err := mongodb.Open(ctx, db, usrSchema, log)
		if err != nil {
			release()
			return nil, err
		}
		return &stores{suppliers: sup, users: usr, release: release}, nil

	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		sup, err := postgres.NewDocumentStore(ctx, pool, supSchema, log)
		if err != nil {
			pool.Close()
			return nil, err
		}
		usr, err := postgres.NewDocumentStore(ctx, pool, usrSchema, log)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{suppliers: sup, users: usr, release: pool.Close}, nil

	case config.BackendSQLite:
		db, err := sqlite.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		release := func() { _ = sqlite.CloseDB(db) }
		sup, err := sqlite.Open(ctx, db, supSchema, log)
		if err != nil {
			release()
			return nil, err
		}
		usr, err := sqlite.Open(ctx, db, usrSchema, log)
		if err != nil {
			release()
			return nil, err
		}
		return &stores{suppliers: sup, users: usr, release: release}, nil
	}
	return nil, fmt.Errorf("backend desconocido: %q", cfg.Storage.Backend)
}

func logRepair(log *logger.Logger, collection string, rep *filestore.RepairReport) {
	if rep == nil || (len(rep.Dropped) == 0 && len(rep.Resynced) == 0) {
		return
	}
	log.Warn().
		Str("collection", collection).
		Strs("dropped", rep.Dropped).
		Strs("resynced", rep.Resynced).
		Int("total", rep.Total).
		Msg("archivo reparado al abrir")
}
