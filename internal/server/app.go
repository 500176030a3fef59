// Package server initializes and runs the account server: it opens the
// database, wires the account service and serves it over HTTP and gRPC
// until the context is cancelled or a signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/weatherdash/internal/cryptox"
	"github.com/dmitrijs2005/weatherdash/internal/logging"
	"github.com/dmitrijs2005/weatherdash/internal/server/auth"
	"github.com/dmitrijs2005/weatherdash/internal/server/config"
	gs "github.com/dmitrijs2005/weatherdash/internal/server/grpc"
	"github.com/dmitrijs2005/weatherdash/internal/server/observability"
	"github.com/dmitrijs2005/weatherdash/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/weatherdash/internal/server/rest"
	"github.com/dmitrijs2005/weatherdash/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/sethvargo/go-retry"
)

const (
	serviceName     = "weatherdash"
	shutdownTimeout = 5 * time.Second
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *http.Server
	grpc   *gs.GRPCServer
}

// Options tune NewApp for tests.
type Options struct {
	Version   string
	LogOutput io.Writer
	Backoff   retry.Backoff
	Hasher    services.PasswordHasher
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg *config.Config, version string, w io.Writer) (logging.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return logging.NewSlogLogger(logging.Setup(serviceName, version, cfg.LogFormat, level, w)), nil
}

func NewApp(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger, err := NewLogger(cfg, opts.Version, opts.LogOutput)
	if err != nil {
		return nil, err
	}

	backoff := opts.Backoff
	if backoff == nil {
		backoff = repomanager.DefaultBackoff()
	}

	db, rm, err := repomanager.Open(ctx, cfg.DatabaseDSN, backoff)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	issuer, err := auth.NewIssuer([]byte(cfg.SecretKey), cfg.TokenLifetime, auth.WithIssuer(cfg.TokenIssuer))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("token issuer: %w", err)
	}
	gate := auth.NewGate(auth.NewVerifier([]byte(cfg.SecretKey), auth.WithIssuer(cfg.TokenIssuer)))

	registry, metrics := observability.NewRegistry()

	hasher := opts.Hasher
	if hasher == nil {
		hasher = cryptox.NewHasher(cryptox.DefaultParams)
	}

	accounts, err := services.NewAccountService(db, rm, services.NewHashPool(hasher, cfg.HashConcurrency),
		issuer, logger.With("module", "accounts"), metrics)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("account service: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := rest.NewRouter(rest.RouterDeps{
		Accounts:    accounts,
		Gate:        gate,
		Logger:      logger.With("module", "http_server"),
		Metrics:     metrics,
		Registry:    registry,
		Ready:       observability.DatabaseReadiness(db, 2*time.Second),
		CORSOrigins: cfg.CORSOrigins,
	})

	app := &App{
		config: cfg,
		logger: logger,
		db:     db,
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	if cfg.GRPCAddr != "" {
		app.grpc = gs.NewGRPCServer(cfg.GRPCAddr, logger, accounts, gate, metrics)
	}

	return app, nil
}

// Handler returns the HTTP handler, for tests.
func (app *App) Handler() http.Handler {
	return app.http.Handler
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.http.ListenAndServe()
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
		return
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.http.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "http shutdown", "error", err.Error())
	}
	<-errCh
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, SIGINT/SIGTERM/SIGQUIT arrives or a
// listener fails, then shuts everything down and closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.grpc != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err.Error())
	}
	app.logger.Info(context.Background(), "App stopped")
}
