// Package main initializes and starts the SecureBank login server,
// setting up configuration, logging, local storage, services, handlers,
// and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"fmt"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/securebank/internal/config"
	"github.com/atinyakov/securebank/internal/db"
	"github.com/atinyakov/securebank/internal/logger"
	"github.com/atinyakov/securebank/internal/middleware"
	"github.com/atinyakov/securebank/internal/repository"
	"github.com/atinyakov/securebank/internal/server/handler/http"
	"github.com/atinyakov/securebank/internal/service"
	"github.com/atinyakov/securebank/internal/storage"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const (
	// cleanInterval is how often stale postgres rows are swept.
	cleanInterval = time.Hour
	// evictInterval is how often idle login forms are dropped.
	evictInterval = time.Minute
)

func main() {
	// Parse command-line, .env, JSON and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log
	warnInsecureDefaults(options, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := openBackend(ctx, options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init storage", zap.String("storage", options.Storage), zap.Error(err))
	}

	// Initialize business-logic services.
	auth := service.NewAuthSimulator(options.Credentials(), time.Duration(options.AuthDelay))
	registry := service.NewSessions(
		backend,
		auth,
		zapLogger,
		time.Duration(options.RedirectDelay),
		service.WithMaxControllers(options.MaxSessions),
	)
	registry.StartIdleEvictor(ctx, evictInterval, time.Duration(options.SessionIdle))
	sessions := http.NewSessions(registry)

	// Create HTTP handlers for the login page, dashboard and JSON API.
	loginHandler := &http.LoginHandler{Sessions: sessions, Log: zapLogger}
	dashboardHandler := &http.DashboardHandler{Sessions: sessions, Log: zapLogger}
	apiHandler := &http.APIHandler{Sessions: sessions, Log: zapLogger}

	profiles := middleware.NewProfiles(options.SecretKey, options.TLSEnabled())

	// Build the router with middleware and routes.
	router := http.NewRouter(loginHandler, dashboardHandler, apiHandler, profiles, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if !options.TLSEnabled() {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Address))
		if err := server.ListenAndServe(); err != nil {
			zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
		}
		return
	}

	server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	zapLogger.Info("starting HTTPS server", zap.String("addr", options.Address))
	if err := server.ListenAndServeTLS(options.TLSCert, options.TLSKey); err != nil {
		zapLogger.Fatal("failed to start HTTPS server", zap.Error(err))
	}
}

// warnInsecureDefaults logs settings that must not reach production.
func warnInsecureDefaults(options *config.Options, log *zap.Logger) {
	if options.UsesDefaultSecret() {
		log.Warn("profile cookies are signed with the built-in default key; set -secret or SECRET_KEY",
			zap.String("default", config.DefaultSecretKey))
	}
}

// openBackend builds the local storage backend selected in options.
func openBackend(ctx context.Context, options *config.Options, log *zap.Logger) (storage.Backend, error) {
	switch options.Storage {
	case config.StorageFile:
		return storage.NewFileStorage(options.StorageFile)
	case config.StoragePostgres:
		postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		db.StartStaleStorageCleaner(ctx, postgresDB,
			cleanInterval,
			time.Duration(options.StorageRetention),
			log,
		)
		return repository.NewPostgresStorageRepository(postgresDB), nil
	default:
		return storage.NewMemoryStorage(), nil
	}
}
