// Command server runs the catalog HTTP API.
//
// @title        Catalog API
// @version      1.0
// @description  In-memory product catalog with API-key and admin checks.
// @BasePath     /api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-catalog-api/internal/config"
	"github.com/tbourn/go-catalog-api/internal/events"
	httpapi "github.com/tbourn/go-catalog-api/internal/http"
	"github.com/tbourn/go-catalog-api/internal/observability"
	"github.com/tbourn/go-catalog-api/internal/repo"
	"github.com/tbourn/go-catalog-api/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	envErr := godotenv.Load()

	cfg := config.MustLoad()
	ver := sysutil.FirstNonEmpty(os.Getenv("SERVICE_VERSION"), version)
	sysutil.SetupLogger(os.Stdout, sysutil.LoggerOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: ver,
	})
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn().Err(envErr).Msg("could not load .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	deps, closeStore, err := buildDeps(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.StoreDriver).Msg("store setup failed")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.StoreDriver).
			Str("base_path", cfg.APIBasePath).
			Bool("events", len(cfg.Kafka.Brokers) > 0).
			Msg("catalog listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("listen failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := deps.Events.Close(); err != nil {
		log.Error().Err(err).Msg("event publisher close")
	}
	if err := closeStore(); err != nil {
		log.Error().Err(err).Msg("store close")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("catalog stopped")
}

// buildDeps selects the store and event publisher from cfg. The returned
// close function releases the store.
func buildDeps(ctx context.Context, cfg config.Config) (httpapi.Deps, func() error, error) {
	var pub events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	if cfg.StoreDriver != config.StoreSQLite {
		mem := repo.NewSeededMemoryStore()
		return httpapi.Deps{
			Products:    mem,
			Users:       mem,
			Idempotency: repo.NewMemoryIdempotencyStore(),
			Events:      pub,
		}, func() error { return nil }, nil
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return httpapi.Deps{}, nil, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return httpapi.Deps{}, nil, err
	}
	if err := repo.Seed(ctx, db); err != nil {
		return httpapi.Deps{}, nil, err
	}
	closeDB := func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	store := repo.NewSQLStore(db)
	return httpapi.Deps{
		Products:    store,
		Users:       store,
		Idempotency: &repo.SQLIdempotencyStore{DB: db},
		Events:      pub,
	}, closeDB, nil
}
