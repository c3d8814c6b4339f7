// Package server builds the storefront auth service from its configuration
// and runs the HTTP API and the gRPC health endpoint until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/minimart/storefront/internal/logging"
	"github.com/minimart/storefront/internal/server/config"
	"github.com/minimart/storefront/internal/server/health"
	"github.com/minimart/storefront/internal/server/httpapi"
	"github.com/minimart/storefront/internal/server/mailer"
	"github.com/minimart/storefront/internal/server/otp"
	"github.com/minimart/storefront/internal/server/ratelimit"
	"github.com/minimart/storefront/internal/server/repositories/repomanager"
	"github.com/minimart/storefront/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const startupTimeout = 30 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger

	db         *sql.DB
	redis      *redis.Client
	dispatcher *mailer.Dispatcher

	httpServer   *httpapi.Server
	healthServer *health.GRPCServer
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)
	warnInsecureDefaults(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	rdb, limiter := newLimiter(cfg)

	sender, err := newMailSender(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "minimart"),
	)
	metrics := httpapi.NewMetrics(registry)

	dispatcher := mailer.NewDispatcher(sender, cfg.MailTimeout, logger)
	dispatcher.OnResult(metrics.ObserveMail)

	codes := otp.NewRandomGenerator()
	checker := health.NewChecker(db, rdb)

	httpServer := httpapi.NewServer(
		httpapi.Options{
			Address:      cfg.HTTPAddr,
			CookieSecure: cfg.CookieSecure,
			SessionTTL:   cfg.SessionTTL,
		},
		httpapi.Deps{
			Registration: services.NewRegistrationService(db, rm, codes, dispatcher, logger),
			Login:        services.NewLoginService(db, rm, codes, dispatcher, cfg, logger),
			Reset:        services.NewPasswordResetService(db, rm, codes, dispatcher, logger),
			Accounts:     services.NewAccountService(db, rm, logger),
			Admin:        services.NewAdminService(db, rm, logger),
			Limiter:      limiter,
			Probes:       checker,
			Metrics:      metrics,
		},
		logger,
	)

	app := &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		redis:      rdb,
		dispatcher: dispatcher,
		httpServer: httpServer,
	}
	if cfg.GRPCHealthAddr != "" {
		app.healthServer = health.NewGRPCServer(cfg.GRPCHealthAddr, checker, 5*time.Second, logger)
	}
	return app, nil
}

// warnInsecureDefaults flags development settings that must not reach
// production.
func warnInsecureDefaults(cfg *config.Config, l logging.Logger) {
	if cfg.UsesDevSecret() {
		l.Warn(context.Background(), "sessions are signed with the built-in development secret key, set -s or MINIMART_SECRET_KEY")
	}
}

// newLimiter returns a Redis-backed limiter, or a no-op one together with a
// nil client when no Redis address is configured.
func newLimiter(cfg *config.Config) (*redis.Client, ratelimit.Limiter) {
	if cfg.RedisAddr == "" {
		return nil, ratelimit.Noop{}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return rdb, ratelimit.NewRedisLimiter(rdb, cfg.ThrottleLimit, cfg.ThrottleWindow, "minimart:throttle")
}

// newMailSender picks SMTP when a relay is configured and the log otherwise.
func newMailSender(cfg *config.Config, l logging.Logger) (mailer.Sender, error) {
	if cfg.SMTPAddr == "" {
		l.Warn(context.Background(), "no SMTP relay configured, mail goes to the log")
		return mailer.NewLogSender(l), nil
	}
	s, err := mailer.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	if err != nil {
		return nil, fmt.Errorf("mailer init error: %w", err)
	}
	return s, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a signal arrives or a server fails.
// Pending mail is flushed before it returns.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.httpServer.Run(gctx)
	})
	if app.healthServer != nil {
		g.Go(func() error {
			return app.healthServer.Run(gctx)
		})
	}

	err := g.Wait()
	app.dispatcher.Wait()

	if err != nil {
		app.logger.Error(ctx, "server stopped with error", "error", err)
		return err
	}
	app.logger.Info(ctx, "App stopped")
	return nil
}

// Close releases the database and Redis connections.
func (app *App) Close() error {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(context.Background(), "redis close failed", "error", err)
		}
	}
	return app.db.Close()
}
