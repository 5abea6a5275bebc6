// Command server runs the character hub HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tbourn/character-hub/internal/config"
	httpapi "github.com/tbourn/character-hub/internal/http"
	"github.com/tbourn/character-hub/internal/observability"
	"github.com/tbourn/character-hub/internal/provider"
	"github.com/tbourn/character-hub/internal/repo"
	"github.com/tbourn/character-hub/internal/store"
	"github.com/tbourn/character-hub/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

func main() {
	dotenvErr := config.LoadDotEnv()
	cfg := config.MustLoad()

	log := sysutil.NewLogger(os.Stderr, sysutil.LoggerOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev"),
	})

	if dotenvErr != nil {
		log.Warn().Err(dotenvErr).Msg("ignoring unreadable .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, sysutil.FirstNonEmpty(version, "dev"))
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	db, err := repo.OpenSQLite(cfg.Storage.DBPath, repo.WithLogger(log.With().Str("component", "db").Logger()))
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Storage.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	st := store.New()
	if err := observability.RegisterStoreGauges(prometheus.DefaultRegisterer, st); err != nil {
		log.Fatal().Err(err).Msg("register store metrics")
	}
	gw := provider.NewGateway(cfg.Provider, provider.WithLogger(log.With().Str("component", "provider").Logger()))
	svcs := httpapi.NewServices(db, st, gw, cfg, log)

	loaded, err := svcs.Data.Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("saved data not loaded, starting empty")
	}
	if err := svcs.Providers.Load(ctx); err != nil {
		log.Error().Err(err).Msg("saved api keys not loaded")
	}
	counts := st.Counts()
	log.Info().Bool("restored", loaded).
		Int("characters", counts.Characters).
		Int("chats", counts.Chats).
		Int("scenarios", counts.Scenarios).
		Str("provider", string(gw.Current())).
		Msg("store ready")

	if cfg.Storage.AutoSaveEnabled {
		go svcs.Data.Run(ctx, cfg.Storage.AutoSaveInterval)
	}

	gin.SetMode(cfg.GinMode)
	gin.DefaultWriter = sysutil.LineWriter{Log: log, Level: zerolog.DebugLevel}
	gin.DefaultErrorWriter = sysutil.LineWriter{Log: log, Level: zerolog.ErrorLevel}
	r := gin.New()
	httpapi.RegisterRoutes(r, st, svcs, cfg)

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
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := svcs.Data.Save(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("final save")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
}
