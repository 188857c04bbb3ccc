// Package app provides top-level application lifecycle management for the
// dashboard backend. It wires together the exchange client, caches,
// services, scheduled jobs, and the HTTP server, and owns their shutdown
// order.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alexvgr/krakendash/internal/config"
	"github.com/alexvgr/krakendash/internal/domain"
	"github.com/alexvgr/krakendash/internal/server"
	"github.com/alexvgr/krakendash/internal/server/handler"
	"github.com/alexvgr/krakendash/internal/server/ws"
)

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the
// WebSocket hub, scheduled jobs, and the HTTP server, and blocks until the
// context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.Int("port", a.cfg.Server.Port),
		slog.String("cache_backend", a.cfg.Cache.Backend),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	hub := ws.NewHub(a.logger)
	go hub.Run(ctx)

	if err := a.startJobs(ctx, deps, hub); err != nil {
		return err
	}

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(a.logger),
		Positions: handler.NewPositionHandler(deps.Positions, a.logger),
		Analytics: handler.NewAnalyticsHandler(deps.Dashboard, a.logger),
		Market:    handler.NewMarketHandler(deps.Market, a.logger),
		Funding:   handler.NewFundingHandler(deps.Funding, a.logger),
		Auth:      handler.NewAuthHandler(deps.Auth, a.logger),
	}

	srv := server.New(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
	}, handlers, hub, a.logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// startJobs registers the scheduled maintenance jobs: the memory-cache sweep
// and the optional warm dashboard refresh.
func (a *App) startJobs(ctx context.Context, deps *Dependencies, hub *ws.Hub) error {
	c := cron.New()
	registered := false

	if a.cfg.Cache.SweepCron != "" && deps.MemoryCache != nil {
		_, err := c.AddFunc(a.cfg.Cache.SweepCron, func() {
			if removed := deps.MemoryCache.Sweep(); removed > 0 {
				a.logger.Debug("cache sweep", slog.Int("evicted", removed))
			}
		})
		if err != nil {
			return fmt.Errorf("app: schedule cache sweep: %w", err)
		}
		registered = true
	}

	if a.cfg.Cache.WarmRefreshCron != "" {
		creds := domain.Credentials{
			APIKey:    a.cfg.Credentials.APIKey,
			APISecret: a.cfg.Credentials.APISecret,
		}
		days := a.cfg.Cache.WarmRefreshDays
		_, err := c.AddFunc(a.cfg.Cache.WarmRefreshCron, func() {
			refreshCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()
			a.warmRefresh(refreshCtx, deps, hub, creds, days)
		})
		if err != nil {
			return fmt.Errorf("app: schedule warm refresh: %w", err)
		}
		registered = true
	}

	if registered {
		c.Start()
		a.closers = append(a.closers, func() {
			<-c.Stop().Done()
		})
	}
	return nil
}

// publisher fans refresh events out to connected clients. The ws hub is the
// production implementation.
type publisher interface {
	Publish(channel string, payload any)
}

// warmRefresh rebuilds the dashboard for the configured account and pushes
// the fresh dashboard, position snapshots, and tickers to subscribers. A
// dashboard failure aborts the refresh; later steps degrade independently.
func (a *App) warmRefresh(ctx context.Context, deps *Dependencies, pub publisher, creds domain.Credentials, days int) {
	data, err := deps.Dashboard.Data(ctx, creds, days, true)
	if err != nil {
		a.logger.Warn("warm refresh failed", slog.Any("error", err))
		return
	}
	pub.Publish(ws.ChannelDashboard, data)

	snaps, err := deps.Positions.Snapshots(ctx, creds)
	if err != nil {
		a.logger.Warn("warm refresh: position snapshots failed", slog.Any("error", err))
		return
	}
	pub.Publish(ws.ChannelPositions, map[string]any{"positions": snaps})

	symbols := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		symbols = append(symbols, snap.Symbol)
	}
	if len(symbols) > 0 {
		if tickers, err := deps.Market.Tickers(ctx, symbols); err == nil {
			pub.Publish(ws.ChannelTickers, map[string]any{"tickers": tickers})
		}
	}

	a.logger.Info("warm refresh complete",
		slog.Int("days", days),
		slog.Int("trades", data.Summary.TotalTrades),
		slog.Int("positions", len(snaps)),
	)
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
