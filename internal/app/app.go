// Package app wires configuration into a runnable service instance.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"stratos/internal/config"
	"stratos/internal/dedup"
	"stratos/internal/engine"
	"stratos/internal/logger"
	"stratos/internal/store/instances"
	transhttp "stratos/internal/transport/http"
)

// App holds the built service and the resources it must release on exit.
type App struct {
	cfg     *config.Config
	server  *transhttp.Server
	gateway *engine.Gateway
	dedup   dedup.Store
	mirror  *instances.Store
}

// NewApp builds the application from config without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	err := group.Wait()
	a.close()
	return err
}

// Gateway exposes the execution gateway for test harnesses.
func (a *App) Gateway() *engine.Gateway {
	if a == nil {
		return nil
	}
	return a.gateway
}

func (a *App) close() {
	if a.dedup != nil {
		if err := a.dedup.Close(); err != nil {
			logger.Warnf("dedup store close: %v", err)
		}
	}
	if a.mirror != nil {
		if err := a.mirror.Close(); err != nil {
			logger.Warnf("instance mirror close: %v", err)
		}
	}
}
