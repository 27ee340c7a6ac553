package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/surveytriage/internal/cache"
	"github.com/nao1215/surveytriage/internal/config"
	"github.com/nao1215/surveytriage/internal/contentapi"
	"github.com/nao1215/surveytriage/internal/database"
	"github.com/nao1215/surveytriage/internal/lookup"
	"github.com/nao1215/surveytriage/internal/metrics"
)

// app holds the resources a command opens from its configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	store   *database.Store
	closers []func() error
}

// newApp creates an app. m may be nil.
func newApp(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *app {
	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// Close releases every opened resource in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Store opens the SQLite database on first use.
func (a *app) Store() (*database.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := database.Open(a.cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.logger.Debug("database opened", "db", store.Path())
	a.store = store
	a.closers = append(a.closers, store.Close)
	return store, nil
}

// Resolver builds the lookup resolver: content API client, page cache and
// metrics observer as configured. With NoLookup the resolver only classifies.
func (a *app) Resolver(ctx context.Context) (*lookup.Resolver, error) {
	opts := []lookup.Option{
		lookup.WithConcurrency(a.cfg.Concurrency),
		lookup.WithLogger(a.logger),
	}
	if a.metrics != nil {
		opts = append(opts, lookup.WithObserver(a.metrics))
	}
	if a.cfg.NoLookup {
		return lookup.NewResolver(nil, opts...), nil
	}

	clientOpts := []contentapi.Option{
		contentapi.WithBaseURL(a.cfg.BaseURL),
		contentapi.WithTimeout(a.cfg.Timeout),
		contentapi.WithRetries(a.cfg.Retries, a.cfg.RetryBackoff),
		contentapi.WithRateLimit(a.cfg.RateLimit, a.cfg.RateBurst),
		contentapi.WithUserAgent(config.AppName + "/" + getVersion()),
	}
	if a.cfg.Proxy != "" {
		clientOpts = append(clientOpts, contentapi.WithProxy(a.cfg.Proxy))
	}
	client, err := contentapi.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create content API client: %w", err)
	}

	pageCache, err := a.pageCache(ctx)
	if err != nil {
		return nil, err
	}
	if pageCache != nil {
		opts = append(opts, lookup.WithCache(pageCache))
	}

	a.logger.Debug("content API client ready",
		"base_url", client.BaseURL(),
		"cache", a.cfg.CacheBackend,
		"concurrency", a.cfg.Concurrency,
	)
	return lookup.NewResolver(lookup.FromClient(client), opts...), nil
}

// pageCache returns the configured cache backend, or nil for "none".
func (a *app) pageCache(ctx context.Context) (lookup.Cache, error) {
	switch a.cfg.CacheBackend {
	case config.CacheSQLite:
		store, err := a.Store()
		if err != nil {
			return nil, err
		}
		return store.PageCache(a.cfg.CacheTTL), nil
	case config.CacheRedis:
		client, err := cache.NewClient(ctx, a.cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		rc := cache.NewRedis(client, cache.WithTTL(a.cfg.CacheTTL))
		a.closers = append(a.closers, rc.Close)
		return rc, nil
	default:
		return nil, nil
	}
}
