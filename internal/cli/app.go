package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foro/internal/auth"
	"foro/internal/backend"
	"foro/internal/cache"
	"foro/internal/config"
	"foro/internal/gateway"
	"foro/internal/log"
)

const roleCacheCleanupInterval = time.Minute

// App is a fully wired gateway with the resources behind it.
type App struct {
	Gateway *gateway.Gateway
	Session *auth.Static
	Config  *config.Config
	Logger  *log.Logger

	cleanup backend.CleanupFunc
	caches  *cache.Manager
}

// Open builds the configured store and the gateway on top of it.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	logger = log.OrDefault(logger)

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).Create(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bc.Type, err)
	}

	roles := cache.NewLRUCache[gateway.CachedRole](cfg.RoleCacheSize, cfg.RoleCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(roles)
	caches.StartCleanup(roleCacheCleanupInterval)

	session := auth.NewStatic(cfg.UserID, cfg.UserEmail)
	gw := gateway.New(res.Store, session,
		gateway.WithLogger(logger),
		gateway.WithCascadeDeletes(cfg.CascadeEventDeletes),
		gateway.WithRoleCache(roles))

	logger.Debug("Gateway ready",
		log.FieldBackend, string(bc.Type),
		log.FieldUserID, cfg.UserID)

	return &App{
		Gateway: gw,
		Session: session,
		Config:  cfg,
		Logger:  logger,
		cleanup: res.Cleanup,
		caches:  caches,
	}, nil
}

// Close stops background work and releases the store.
func (a *App) Close() error {
	var errs []error
	if a.caches != nil {
		a.caches.Stop()
	}
	if a.cleanup != nil {
		if err := a.cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
