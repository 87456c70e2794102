package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/api"
	"github.com/Togather-Foundation/eventhub/internal/api/handlers"
	"github.com/Togather-Foundation/eventhub/internal/api/middleware"
	"github.com/Togather-Foundation/eventhub/internal/audit"
	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/config"
	"github.com/Togather-Foundation/eventhub/internal/domain/accounts"
	"github.com/Togather-Foundation/eventhub/internal/domain/admin"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/domain/registrations"
	"github.com/Togather-Foundation/eventhub/internal/email"
	"github.com/Togather-Foundation/eventhub/internal/metrics"
	"github.com/Togather-Foundation/eventhub/internal/notify"
	"github.com/Togather-Foundation/eventhub/internal/storage"
	"github.com/Togather-Foundation/eventhub/internal/storage/postgres"
	"github.com/Togather-Foundation/eventhub/internal/storage/sqlite"
	"github.com/Togather-Foundation/eventhub/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the EventHub HTTP server",
	Long: `Start the EventHub HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (and --config if provided)
- Open PostgreSQL or SQLite according to DATABASE_DRIVER
- Bootstrap an admin account if ADMIN_* env vars are set
- Handle graceful shutdown on SIGINT/SIGTERM, draining pending notifications

Examples:
  # Start with default configuration (from env vars)
  eventhub serve

  # Start on a specific host and port
  eventhub serve --host 127.0.0.1 --port 9090

  # Start with a config file and debug logging
  eventhub serve --config /etc/eventhub/config.yaml --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("driver", cfg.Database.Driver).Msg("starting EventHub server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(context.Background(), cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	app, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.Handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	return gracefulShutdown(server, logger)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

// app is the assembled server: storage, services, notifications and router.
type app struct {
	Handler  http.Handler
	Accounts *accounts.Service

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	repo, err := openStore(ctx, cfg, logger, a)
	if err != nil {
		return nil, err
	}

	mailer, err := email.NewService(cfg.Notify.Email, logger)
	if err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}
	messages, err := notify.NewMessages(cfg.Notify.Locale)
	if err != nil {
		return nil, fmt.Errorf("notification messages: %w", err)
	}
	dispatcher := notify.NewDispatcher(
		repo.Accounts(),
		repo.Events(),
		mailer,
		notify.NewSMSSender(cfg.Notify.SMS, logger),
		messages,
		cfg.Notify.Timeout,
		logger,
	)
	// Runs after the HTTP server has stopped accepting requests.
	a.closers = append(a.closers, func() {
		dispatcher.Wait()
		logger.Info().Msg("pending notifications drained")
	})

	auditLogger := audit.NewLogger(logger)
	accountService := accounts.NewService(repo.Accounts(), auditLogger, logger)
	eventService := events.NewService(repo.Events(), dispatcher, auditLogger, logger)
	ledger := registrations.NewService(repo.Registrations(), dispatcher, logger)
	a.Accounts = accountService

	bootstrapCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	bootstrapAdmin(bootstrapCtx, cfg, accountService, logger)
	cancel()

	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer)
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.Environment)
	a.closers = append(a.closers, limiter.Stop)

	a.Handler = api.NewRouter(cfg, logger, api.Dependencies{
		Accounts:      handlers.NewAuthHandler(accountService, tokens, cfg.Environment),
		Events:        handlers.NewEventsHandler(eventService, cfg.Environment),
		Registrations: handlers.NewRegistrationsHandler(ledger, cfg.Environment),
		Admin:         handlers.NewAdminHandler(admin.NewService(repo.Stats()), accountService, cfg.Environment),
		Health:        handlers.NewHealthChecker(repo, Version),
		Tokens:        tokens,
		Limiter:       limiter,
		Build:         buildInfo(),
	})
	return a, nil
}

// openStore opens the configured backend and starts its pool metrics
// collector. Cleanup is registered on a.
func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger, a *app) (storage.Repository, error) {
	var (
		repo      storage.Repository
		collector *metrics.DBCollector
	)

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if repo, err = sqlite.NewRepository(db); err != nil {
			return nil, err
		}
		collector = metrics.NewSQLCollector(db)
	default:
		pool, err := postgres.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConnections)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if repo, err = postgres.NewRepository(pool); err != nil {
			return nil, err
		}
		collector = metrics.NewPgxCollector(pool)
	}

	collectorCtx, collectorCancel := context.WithCancel(context.Background())
	go collector.Start(collectorCtx, 15*time.Second)
	a.closers = append(a.closers, func() {
		collectorCancel()
		collector.Stop()
	})
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database ready")
	return repo, nil
}

func bootstrapAdmin(ctx context.Context, cfg config.Config, service *accounts.Service, logger zerolog.Logger) {
	bootstrap := cfg.AdminBootstrap
	if bootstrap.Username == "" || bootstrap.Password == "" || bootstrap.Email == "" {
		logger.Warn().Msg("admin bootstrap env vars not fully set; skipping")
		return
	}

	created, err := service.EnsureAdmin(ctx, bootstrap.Username, bootstrap.Email, bootstrap.Password)
	if err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
		return
	}
	if !created {
		return
	}
	// Redact email in production.
	if cfg.Environment == "production" {
		logger.Info().Str("username", bootstrap.Username).Msg("bootstrapped admin user")
	} else {
		logger.Info().Str("email", bootstrap.Email).Str("username", bootstrap.Username).Msg("bootstrapped admin user")
	}
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
