package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/proveedores-api/internal/application/auth"
	"github.com/jhoicas/proveedores-api/internal/application/usecase"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/metrics"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/recordrepo"
	httpRouter "github.com/jhoicas/proveedores-api/internal/interfaces/http"
	"github.com/jhoicas/proveedores-api/pkg/config"
	"github.com/jhoicas/proveedores-api/pkg/logger"
	"github.com/jhoicas/proveedores-api/pkg/password"
)

// server app fiber lista para escuchar y los almacenamientos que hay que cerrar al final.
type server struct {
	app    *fiber.App
	stores *stores
}

type storeOpener func(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error)

// setup abre el almacenamiento, provisiona admin y datos de ejemplo y arma la app.
// Si algo falla después de abrir, los almacenamientos se cierran antes de devolver el error.
func setup(ctx context.Context, cfg *config.Config, log *logger.Logger, open storeOpener, hasher password.Hasher) (srv *server, err error) {
	st, err := open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("abrir almacenamiento: %w", err)
	}
	defer func() {
		if err != nil {
			st.Close(context.Background())
		}
	}()

	var m *metrics.Metrics
	supStore, usrStore := st.suppliers, st.users
	if cfg.App.MetricsEnabled {
		m = metrics.New()
		supStore = m.Instrument(supStore, "suppliers")
		usrStore = m.Instrument(usrStore, "users")
	}

	supplierRepo := recordrepo.NewSupplierRepo(supStore, log)
	userRepo := recordrepo.NewUserRepo(usrStore, hasher, log)

	created, err := userRepo.EnsureAdmin(ctx, recordrepo.AdminSeed{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	})
	if err != nil {
		return nil, err
	}
	if created {
		log.Warn().Str("username", cfg.Admin.Username).Msg("administrador inicial creado; cambiar la contraseña")
	}

	if cfg.App.SeedSuppliers {
		n, err := supplierRepo.Seed(ctx, recordrepo.DemoSuppliers())
		if err != nil {
			log.Error().Err(err).Msg("cargar proveedores de ejemplo")
		} else if n > 0 {
			log.Info().Int("count", n).Msg("proveedores de ejemplo cargados")
		}
	}

	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:     authUC,
		SupplierUC: usecase.NewSupplierUseCase(supplierRepo),
		UserUC:     usecase.NewUserUseCase(userRepo),
		Gate:       auth.NewGate(userRepo),
		JWTSecret:  cfg.JWT.Secret,
		Backend:    cfg.Storage.Backend,
		Metrics:    m,
		Log:        log,
	})

	return &server{app: app, stores: st}, nil
}
