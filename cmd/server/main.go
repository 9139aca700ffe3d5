package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"precifica/internal/cache"
	"precifica/internal/config"
	"precifica/internal/db"
	"precifica/internal/db/mock"
	applog "precifica/internal/log"
	"precifica/internal/server"
)

// serverLifecycle is the slice of *server.Server used by run, kept as an
// interface so tests can substitute a stub.
type serverLifecycle interface {
	Start() error
	Stop() error
}

var (
	loadConfigFunc      = config.Load
	setLogLevelFunc     = applog.SetLevel
	newMockDatabaseFunc = mock.New
	configureDatabase   = db.Configure
	newCostCacheFunc    = cache.New
	newServerFunc       = func(cfg server.Config) (serverLifecycle, error) {
		return server.New(cfg)
	}
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		return sigCh, func() { signal.Stop(sigCh) }
	}
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		applog.Warn(context.Background(), "failed to load .env file", "error", err)
	}
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	cfg, err := loadConfigFunc()
	if err != nil {
		applog.Error(ctx, "invalid configuration", "error", err)
		return 1
	}
	if err := setLogLevelFunc(cfg.Logging.Level); err != nil {
		applog.Error(ctx, "invalid log level", "level", cfg.Logging.Level, "error", err)
		return 1
	}

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		applog.Error(ctx, "failed to connect to database", "error", err)
		return 1
	}

	costCache, err := newCostCacheFunc(ctx, cfg.Cache)
	if err != nil {
		applog.Error(ctx, "failed to connect to redis", "error", err)
		return 1
	}
	if costCache.Enabled() {
		defer costCache.Close()
	}

	srv, err := newServerFunc(server.Config{
		Addr: cfg.Server.Addr,
		Session: server.SessionConfig{
			Lifetime:     cfg.Auth.Session.Lifetime,
			CookieName:   cfg.Auth.Session.CookieName,
			CookieDomain: cfg.Auth.Session.CookieDomain,
			CookieSecure: cfg.Auth.Session.CookieSecure,
		},
		Database: database,
		Cache:    costCache,
	})
	if err != nil {
		applog.Error(ctx, "failed to build server", "error", err)
		return 1
	}

	startErr := make(chan error, 1)
	go func() {
		applog.Info(ctx, "starting http server", "addr", cfg.Server.Addr)
		startErr <- srv.Start()
	}()

	sigCh, unsubscribe := subscribeShutdownSig()
	defer unsubscribe()

	select {
	case err := <-startErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(ctx, "server encountered an error", "error", err)
			return 1
		}
	case sig := <-sigCh:
		applog.Info(ctx, "shutting down http server", "signal", sig.String())
		if err := srv.Stop(); err != nil {
			applog.Error(ctx, "graceful shutdown failed", "error", err)
			return 1
		}
	}

	return 0
}

func openDatabase(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	if cfg.Database.UseMock {
		applog.Warn(ctx, "using in-memory mock database, data will not persist")
		return newMockDatabaseFunc(ctx)
	}
	return configureDatabase(cfg.Database)
}
