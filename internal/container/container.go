// Package container provides dependency injection.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marginmind/backend/internal/config"
	"github.com/marginmind/backend/internal/fx"
	"github.com/marginmind/backend/internal/graphstore"
	"github.com/marginmind/backend/internal/jobs"
	"github.com/marginmind/backend/internal/model"
	"github.com/marginmind/backend/internal/pricelist"
	"github.com/marginmind/backend/internal/records"
	"github.com/marginmind/backend/internal/strategy"
)

// Container holds all application dependencies.
type Container struct {
	cfg    *config.Config
	logger *slog.Logger

	graph     *graphstore.Store
	records   *records.Client
	prices    *pricelist.Client
	rates     *fx.CachedProvider
	strategy  *strategy.Service
	scheduler *jobs.Scheduler
}

// New creates a new dependency container. The graph connection is verified
// eagerly; the HTTP collaborators are constructed lazily on first use by
// their own clients.
func New(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		cfg:    cfg,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	graph, err := graphstore.New(ctx, cfg.Graph, logger)
	if err != nil {
		return nil, fmt.Errorf("connect graph store: %w", err)
	}
	c.graph = graph
	logger.Info("graph store connected", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)

	c.records = records.NewClient(cfg.Records, logger)
	c.prices = pricelist.NewClient(cfg.PriceList, cfg.Business.BandwidthTolerance, logger)

	fxClient := fx.NewClient(cfg.FX.BaseURL, cfg.FX.Timeout)
	c.rates = fx.NewCachedProvider(fxClient, cfg.FX.CacheTTL, cfg.FX.FallbackRate, logger)

	c.strategy = strategy.New(c.graph, c.records, c.prices, c.rates, cfg.Business, logger)

	c.scheduler = jobs.NewScheduler(logger)

	return c, nil
}

// Start registers and starts background jobs. The FX cache is warmed
// immediately so the first request does not block on a rate fetch.
func (c *Container) Start(ctx context.Context) error {
	currency := model.Currency(c.cfg.FX.RefreshCurrency)
	if err := c.scheduler.Register(jobs.FXRefreshName, c.cfg.Jobs.FXRefreshSchedule, jobs.FXRefresh(c.rates, currency)); err != nil {
		return fmt.Errorf("register %s job: %w", jobs.FXRefreshName, err)
	}
	if err := c.scheduler.Start(); err != nil {
		return err
	}
	c.scheduler.RunNow(jobs.FXRefreshName)
	return nil
}

// Stop gracefully stops all components.
func (c *Container) Stop(ctx context.Context) error {
	c.logger.Info("stopping container components")

	if c.scheduler != nil {
		c.scheduler.Stop()
	}
	if c.graph != nil {
		if err := c.graph.Close(ctx); err != nil {
			return fmt.Errorf("close graph store: %w", err)
		}
	}
	return nil
}

// Graph returns the graph store.
func (c *Container) Graph() *graphstore.Store { return c.graph }

// Strategy returns the strategy service.
func (c *Container) Strategy() *strategy.Service { return c.strategy }

// Rates returns the cached exchange-rate provider.
func (c *Container) Rates() *fx.CachedProvider { return c.rates }
