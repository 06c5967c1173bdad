package app

import (
	"context"
	"fmt"

	"stratos/internal/config"
	"stratos/internal/dedup"
	"stratos/internal/engine"
	"stratos/internal/logger"
	"stratos/internal/rules"
	"stratos/internal/store/instances"
	"stratos/internal/strategy"
	transhttp "stratos/internal/transport/http"
)

// AppBuilder assembles the service dependency graph. The *Fn fields default
// to the real constructors; tests replace them to inject fakes.
type AppBuilder struct {
	cfg *config.Config

	dedupFn    func(config.DedupConfig) (dedup.Store, error)
	registryFn func(string) (*strategy.Registry, error)
	rulesFn    func(string) *rules.Service
	mirrorFn   func(string) (*instances.Store, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		dedupFn:    buildDedupStore,
		registryFn: strategy.LoadRegistry,
		rulesFn:    rules.NewService,
		mirrorFn:   instances.Open,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// WithDedupStore replaces the dedup backend constructor.
func WithDedupStore(store dedup.Store) AppBuilderOption {
	return func(b *AppBuilder) {
		b.dedupFn = func(config.DedupConfig) (dedup.Store, error) { return store, nil }
	}
}

func buildDedupStore(cfg config.DedupConfig) (dedup.Store, error) {
	opts := dedup.Options{TTL: cfg.TTL, MaxEntries: cfg.MaxEntries}
	switch cfg.Backend {
	case "", "memory":
		return dedup.NewMemoryStore(opts), nil
	case "sqlite":
		return dedup.NewSqliteStore(cfg.SqlitePath, opts)
	case "redis":
		return dedup.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts)
	default:
		return nil, fmt.Errorf("unknown dedup backend %q", cfg.Backend)
	}
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	rulesSvc := b.rulesFn(cfg.Rules.ConfigDir)
	logger.Infof("descriptor search path: %v", rulesSvc.Dirs())

	store, err := b.dedupFn(cfg.Dedup)
	if err != nil {
		return nil, fmt.Errorf("build dedup store: %w", err)
	}

	registry, err := b.registryFn(cfg.Strategies.RegistryPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load strategy registry: %w", err)
	}
	logger.Infof("registered strategy types: %v", strategy.RegisteredTypes())

	var mirror *instances.Store
	if cfg.Strategies.StorePath != "" {
		mirror, err = b.mirrorFn(cfg.Strategies.StorePath)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("open instance mirror: %w", err)
		}
		if err := mirror.Sync(ctx, registry.All()); err != nil {
			store.Close()
			mirror.Close()
			return nil, fmt.Errorf("sync instance mirror: %w", err)
		}
	}

	gateway := engine.NewGateway(cfg.Exec, registry, rulesSvc, store)

	server, err := transhttp.NewServer(transhttp.Config{
		Addr:     cfg.App.ListenAddr,
		Gateway:  gateway,
		Dedup:    store,
		Rules:    rulesSvc,
		Registry: registry,
		Mirror:   mirror,
	})
	if err != nil {
		store.Close()
		if mirror != nil {
			mirror.Close()
		}
		return nil, fmt.Errorf("build http server: %w", err)
	}

	return &App{cfg: cfg, server: server, gateway: gateway, dedup: store, mirror: mirror}, nil
}

func provideAppBuilder(cfg *config.Config) *AppBuilder {
	return NewAppBuilder(cfg)
}

func provideApp(b *AppBuilder, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}
