package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/boofmebel/auth/internal/auth/http"
	"github.com/boofmebel/auth/internal/auth/service"
	"github.com/boofmebel/auth/internal/auth/store"
	"github.com/boofmebel/auth/internal/auth/store/drivers/postgres"
	"github.com/boofmebel/auth/internal/auth/store/drivers/sqlite"
	"github.com/boofmebel/auth/pkg/cryptox"
	"github.com/boofmebel/auth/pkg/httpx"
	"github.com/boofmebel/auth/pkg/jwtx"
	"github.com/boofmebel/auth/pkg/ratelimit"
	"github.com/boofmebel/auth/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	limiter ratelimit.Limiter

	authService         *service.AuthService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router

	flushSentry func()
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "auth-service",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Sentry:  cfg.SentryDSN != "",
	})
}

// InitSentry installs the global Sentry client when a DSN is configured. The
// returned func flushes buffered events and is safe to call either way.
func InitSentry(cfg Config) (func(), error) {
	if cfg.SentryDSN == "" {
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Env,
		Release:          "auth-service@" + BuildVersion,
		AttachStacktrace: true,
		EnableTracing:    cfg.SentryTracesSampleRate > 0,
		TracesSampleRate: cfg.SentryTracesSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// OpenStore connects to the configured database and applies migrations.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	switch cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqlite.DSN(cfg.DatabaseFile))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

// NewHasher loads (or creates) the pepper and returns the password hasher.
func NewHasher(cfg Config) (*cryptox.Argon2Hasher, error) {
	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	return cryptox.NewArgon2Hasher(pepper), nil
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	flushSentry, err := InitSentry(cfg)
	if err != nil {
		return nil, err
	}

	app := &Application{
		cfg:         cfg,
		logger:      NewLogger(cfg),
		flushSentry: flushSentry,
	}

	db, err := OpenStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.logger.Info("database ready", "driver", cfg.DatabaseDriver)

	if err := app.initServices(); err != nil {
		_ = db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler exposes the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		_ = app.db.Close()
		app.flushSentry()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	defer app.flushSentry()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initServices() error {
	key, err := jwtx.NewKey(app.cfg.Algorithm, []byte(app.cfg.SecretKey))
	if err != nil {
		return fmt.Errorf("failed to initialize signing key: %w", err)
	}
	if app.cfg.Env == "dev" && app.cfg.SecretKey == devSecretKey {
		app.logger.Warn("using the development signing secret, set AUTH_SECRET_KEY")
	}

	hasher, err := NewHasher(app.cfg)
	if err != nil {
		return err
	}

	app.authService = &service.AuthService{
		Store:      app.db,
		Codec:      jwtx.NewCodec(key, jwtx.WithIssuer(app.cfg.Issuer)),
		Hasher:     hasher,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	var memory service.WindowSweeper
	switch app.cfg.RateLimitBackend {
	case BackendStore:
		app.limiter = &service.StoreLimiter{Store: app.db}
	default:
		m := ratelimit.NewMemory()
		app.limiter = m
		memory = m
	}
	app.logger.Info("rate limiter ready", "backend", app.cfg.RateLimitBackend)

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		memory,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.RateLimitRules.Longest(),
	)
	return nil
}

func (app *Application) initHTTP() {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(service.Collectors()...)
	reg.MustRegister(httpx.RateLimitCollectors()...)

	keyExtractor := httpx.IPKeyExtractor
	if app.cfg.TrustProxy {
		keyExtractor = httpx.ForwardedIPKeyExtractor
	}

	router := httpapi.NewRouter(app.authService, app.db, app.logger, httpapi.Options{
		Limiter:      app.limiter,
		Rules:        app.cfg.RateLimitRules,
		KeyExtractor: keyExtractor,
		CORSOrigins:  app.cfg.CORSOrigins,
		Gatherer:     reg,
		Sentry:       app.cfg.SentryDSN != "",
	})
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
