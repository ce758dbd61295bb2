// Package main initializes and starts the StudyMate web server,
// setting up configuration, logging, database connections, repositories,
// services, sessions, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/studymate/studymate/internal/config"
	"github.com/studymate/studymate/internal/db"
	"github.com/studymate/studymate/internal/logger"
	"github.com/studymate/studymate/internal/mail"
	"github.com/studymate/studymate/internal/repository"
	"github.com/studymate/studymate/internal/server/handler/http"
	"github.com/studymate/studymate/internal/service"
	"github.com/studymate/studymate/internal/session"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, file, .env and environment configuration.
	options, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(2)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the database and migrate the schema.
	sqlDB, dialect, err := db.Open(ctx, options.DatabaseDSN, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer sqlDB.Close()
	zapLogger.Info("database ready", zap.String("dialect", string(dialect)))

	// Clear expired password reset tokens.
	db.StartResetTokenCleaner(ctx, sqlDB, 10*time.Minute, zapLogger)

	// Initialize repositories.
	userRepo := repository.NewSQLUserRepository(sqlDB)
	eventRepo := repository.NewSQLEventRepository(sqlDB)

	// Initialize business-logic services.
	authService := service.NewAuthService(userRepo, options.ResetTokenTTL)
	eventService := service.NewEventService(eventRepo, service.EventPolicy{
		RejectPastDatesOnUpdate: options.RejectPastDatesOnEdit,
	})

	// Pick the session store.
	var store session.Store
	if options.RedisURL != "" {
		client, err := session.NewRedisClient(ctx, options.RedisURL)
		if err != nil {
			zapLogger.Fatal("cannot connect to redis", zap.Error(err))
		}
		defer client.Close()
		store = session.NewRedisStore(client, options.SessionTTL)
		zapLogger.Info("using redis session store")
	} else {
		mem := session.NewMemoryStore(options.SessionTTL)
		mem.StartSweeper(ctx, time.Minute, zapLogger)
		store = mem
		zapLogger.Info("using in-memory session store")
	}
	sessions := session.NewManager(store, options.SessionTTL, options.SecureCookies, zapLogger)

	render, err := http.NewRenderer(zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot parse templates", zap.Error(err))
	}

	// Create HTTP handlers.
	authHandler := &http.AuthHandler{
		AuthService: authService,
		Mailer:      mail.NewLogSender(zapLogger),
		BaseURL:     options.BaseURL,
		Render:      render,
		Log:         zapLogger,
	}
	eventHandler := &http.EventHandler{
		EventService: eventService,
		Render:       render,
		Log:          zapLogger,
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, eventHandler, sessions, http.RouterConfig{
		CSRFKey:       []byte(options.CSRFKey),
		SecureCookies: options.SecureCookies,
	}, zapLogger)
	if options.CSRFKey == "" {
		zapLogger.Warn("CSRF protection disabled: CSRF_KEY is not set")
	}

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}

	errCh := make(chan error, 1)
	go func() {
		if options.TLSCert != "" && options.TLSKey != "" {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
			errCh <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
