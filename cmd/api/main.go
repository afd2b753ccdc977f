package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/proveedores-api/pkg/config"
	"github.com/jhoicas/proveedores-api/pkg/logger"
	"github.com/jhoicas/proveedores-api/pkg/password"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuración inválida")
	}
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("backend", cfg.Storage.Backend).
		Msg("iniciando aplicación")

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	srv, err := setup(initCtx, cfg, log, openStores, password.Default)
	cancelInit()
	if err != nil {
		// setup ya cerró lo que había abierto.
		log.Fatal().Err(err).Msg("inicialización")
	}

	go func() {
		if err := srv.app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	srv.stores.Close(shutdownCtx)

	log.Info().Msg("aplicación detenida")
}
