// Package server initializes and runs the calendar backend: it opens the
// database, runs migrations, connects Redis for the notification broker and
// token revocation store, wires the services, and serves the HTTP/WebSocket
// endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"eventcal-backend/internal/logging"
	"eventcal-backend/internal/server/auth"
	"eventcal-backend/internal/server/config"
	"eventcal-backend/internal/server/httpapi"
	"eventcal-backend/internal/server/notify"
	"eventcal-backend/internal/server/repositories/repomanager"
	"eventcal-backend/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	registry *notify.Registry
	listener *notify.Listener
	server   *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	revocation := auth.NewRedisRevocationStore(rdb)
	broker := notify.NewRedisBroker(rdb)
	publisher := notify.NewBrokerPublisher(broker)
	registry := notify.NewRegistry(logger)
	listener := notify.NewListener(broker, registry, logger)

	authSvc := services.NewAuthService(db, rm, revocation, cfg, logger)
	eventSvc := services.NewEventService(db, rm, publisher, logger)
	permSvc := services.NewPermissionService(db, rm, publisher, logger)
	historySvc := services.NewHistoryService(db, rm, logger)

	api := httpapi.NewServer(authSvc, eventSvc, permSvc, historySvc, registry, cfg, logger)

	return &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		redis:    rdb,
		registry: registry,
		listener: listener,
		server: &http.Server{
			Addr:    cfg.EndpointAddrHTTP,
			Handler: api.Router(),
		},
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.listener.Run(ctx); err != nil {
			app.logger.Error(ctx, "notification listener error", "error", err)
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Error(ctx, "http server error", "error", err)
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "http shutdown error", "error", err)
	}

	wg.Wait()

	if err := app.redis.Close(); err != nil {
		app.logger.Error(ctx, "redis close error", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "app stopped")
}
