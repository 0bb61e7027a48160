// Command server runs the car parts inventory API.
//
// @title       Car Parts Inventory API
// @version     1.0
// @description Inventory of car parts with customer and wishlist email notifications.
// @BasePath    /api
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-carparts-backend/docs"
	"github.com/tbourn/go-carparts-backend/internal/config"
	httpapi "github.com/tbourn/go-carparts-backend/internal/http"
	"github.com/tbourn/go-carparts-backend/internal/observability"
	"github.com/tbourn/go-carparts-backend/internal/repo"
	"github.com/tbourn/go-carparts-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	gin.SetMode(cfg.GinMode)

	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	docs.SwaggerInfo.Version = sysutil.FirstNonEmpty(version, docs.SwaggerInfo.Version)

	ctx, stop := sysutil.ShutdownContext(context.Background())
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(cfg.DB.Driver, cfg.DB.DSN())
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open database")
	}
	if err := observability.InstrumentDB(db, cfg.OTEL); err != nil {
		log.Fatal().Err(err).Msg("db tracing")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	dispatcher, closeNotify, err := newDispatcher(cfg.Notify, newMailer(cfg.Notify))
	if err != nil {
		log.Fatal().Err(err).Str("mode", cfg.Notify.Mode).Msg("notification setup failed")
	}

	go purgeIdempotency(ctx, db, cfg.PurgeInterval)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, dispatcher, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("env", cfg.AppEnv).
			Str("db", cfg.DB.Driver).
			Str("notify", cfg.Notify.Mode).
			Str("version", version).
			Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// In-flight requests are done; drain pending notifications.
	closeNotify()

	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}

// purgeIdempotency deletes expired idempotency records every interval until
// ctx is canceled.
func purgeIdempotency(ctx context.Context, db *gorm.DB, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("purged idempotency records")
			}
		}
	}
}
