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

	"estate-web/internal/apiclient"
	"estate-web/internal/config"
	"estate-web/internal/database"
	"estate-web/internal/event"
	"estate-web/internal/handler"
	"estate-web/internal/middleware"
	"estate-web/internal/repository"
	"estate-web/internal/router"
	"estate-web/internal/service"
	"estate-web/internal/util"
	"estate-web/internal/websocket"
)

const (
	cleanupInterval = 10 * time.Minute
	sessionMaxIdle  = 2 * time.Hour
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

// expiredCleaner is implemented by token stores that do not expire entries on
// their own.
type expiredCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

type tokenBackend struct {
	store   service.TokenStore
	checks  map[string]handler.HealthCheck
	cleanup []func()
}

func New(cfg *config.Config) (*App, error) {
	keys, err := middleware.DeriveSessionKeys(cfg.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to derive session keys: %w", err)
	}

	tokens, err := openTokenStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	cleanupFuncs := tokens.cleanup

	api := apiclient.New(cfg.BackendBaseURL, cfg.BackendTimeout)
	slog.Info("backend configured", "base_url", cfg.BackendBaseURL)

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	go hub.Run()

	authService := service.NewAuthService(api, tokens.store, cfg.DefaultPageSize)
	listingService := service.NewListingService(api, bus, util.ImageLimits{
		MaxBytes:     cfg.MaxUploadSize,
		MaxDimension: cfg.MaxImageDimension,
		MaxPixels:    cfg.MaxImagePixels,
	})
	adminService := service.NewAdminService(api)

	base := handler.NewBase(authService)

	appRouter := router.New(cfg, middleware.NewSessionMiddleware(keys, cfg.SessionTTL, cfg.CookieSecure), router.Handlers{
		Auth:    handler.NewAuthHandler(base, authService),
		Listing: handler.NewListingHandler(base, listingService, api, cfg.DefaultPageSize),
		Admin:   handler.NewAdminHandler(base, adminService),
		WS:      handler.NewWSHandler(hub, middleware.OriginAllowed(cfg.CORSOrigins)),
		Health:  handler.NewHealthHandler(tokens.checks),
	})

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go startCleanupTicker(cleanupCtx, authService, tokens.store)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		cleanupFuncs: append(cleanupFuncs,
			func() {
				cleanupCancel()
			},
			func() {
				hub.Stop()
			},
		),
	}, nil
}

// openTokenStore picks where session tokens are persisted.
func openTokenStore(ctx context.Context, cfg *config.Config) (tokenBackend, error) {
	switch cfg.SessionStore {
	case config.SessionStorePostgres:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return tokenBackend{}, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return tokenBackend{}, fmt.Errorf("failed to ensure database schema: %w", err)
		}
		slog.Info("database ready")
		return tokenBackend{
			store:   repository.NewSessionRepository(db.Pool, cfg.SessionTTL),
			checks:  map[string]handler.HealthCheck{"database": db.Health},
			cleanup: []func(){db.Close},
		}, nil

	case config.SessionStoreRedis:
		client, err := repository.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return tokenBackend{}, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis ready", "addr", cfg.RedisAddr)
		return tokenBackend{
			store: repository.NewRedisSessionStore(client, cfg.RedisPrefix, cfg.SessionTTL),
			checks: map[string]handler.HealthCheck{"redis": func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}},
			cleanup: []func(){func() { _ = client.Close() }},
		}, nil
	}

	slog.Warn("session tokens are kept in memory and are lost on restart")
	return tokenBackend{
		store:  repository.NewMemorySessionStore(cfg.SessionTTL),
		checks: map[string]handler.HealthCheck{},
	}, nil
}

func startCleanupTicker(ctx context.Context, auth *service.AuthService, store service.TokenStore) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	cleaner, _ := store.(expiredCleaner)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := auth.Sweep(sessionMaxIdle); removed > 0 {
				slog.Debug("idle browser sessions dropped", "count", removed)
			}
			if cleaner == nil {
				continue
			}
			removed, err := cleaner.CleanExpired(ctx)
			if err != nil {
				slog.Error("failed to clean expired session tokens", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("expired session tokens removed", "count", removed)
			}
		}
	}
}

func runAll(funcs []func()) {
	for _, fn := range funcs {
		fn()
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)

	// Run cleanup functions
	runAll(a.cleanupFuncs)

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
