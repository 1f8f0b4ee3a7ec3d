package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calmatevibes-api/bootstrap"
	"calmatevibes-api/combo"
	"calmatevibes-api/config"
	"calmatevibes-api/router"
	"calmatevibes-api/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogger(production bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if production {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogger(cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store unavailable")
	}

	engine := combo.NewEngine(backend.Stores.Products)
	products := service.NewProductService(backend.Stores.Products, backend.Stores.Movements, engine)
	categories := service.NewCategoryService(backend.Stores.Categories, backend.Stores.Products, engine)
	auth := service.NewAuthService(backend.Stores.Users, []byte(cfg.JWTSecret))

	if err := categories.Seed(ctx); err != nil {
		log.Warn().Err(err).Msg("no se pudieron inicializar las categorías")
	}
	if err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Warn().Err(err).Msg("no se pudo crear el usuario administrador")
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(router.Deps{
			Config:     cfg,
			Products:   products,
			Categories: categories,
			Auth:       auth,
			Limiter:    backend.Limiter,
			Checks:     backend.Checks,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Str("driver", cfg.StoreDriver).Msg("servidor iniciado")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := backend.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("store shutdown")
	}
}
