package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alexvgr/krakendash/internal/cache/memory"
	rediscache "github.com/alexvgr/krakendash/internal/cache/redis"
	"github.com/alexvgr/krakendash/internal/config"
	"github.com/alexvgr/krakendash/internal/domain"
	"github.com/alexvgr/krakendash/internal/platform/kraken"
	"github.com/alexvgr/krakendash/internal/service"
)

// Dependencies bundles everything the server needs to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Exchange  service.ExchangeAPI
	DataCache domain.DataCache
	// MemoryCache is non-nil only when the memory backend is active; the
	// sweep job uses it directly.
	MemoryCache *memory.DataCache

	Positions *service.PositionService
	Dashboard *service.DashboardService
	Market    *service.MarketService
	Funding   *service.FundingService
	Auth      *service.AuthService
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Kraken Futures client ---
	client := kraken.NewClient(kraken.Config{
		BaseURL:        cfg.Kraken.BaseURL,
		HTTPTimeout:    cfg.Kraken.HTTPTimeout.Duration,
		MaxRetries:     cfg.Kraken.MaxRetries,
		RetryBaseDelay: cfg.Kraken.RetryBaseDelay.Duration,
		MinRequestGap:  cfg.Kraken.MinRequestGap.Duration,
	}, logger)
	deps.Exchange = client

	// --- Dashboard data cache ---
	switch strings.ToLower(cfg.Cache.Backend) {
	case "redis":
		redisClient, err := rediscache.New(ctx, rediscache.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: connect redis: %w", err)
		}
		closers = append(closers, func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close failed", slog.Any("error", err))
			}
		})
		deps.DataCache = rediscache.NewDataCache(redisClient)

	default:
		mem := memory.NewDataCache()
		deps.MemoryCache = mem
		deps.DataCache = mem
	}

	// --- Services ---
	deps.Positions = service.NewPositionService(deps.Exchange, logger)
	deps.Dashboard = service.NewDashboardService(deps.Exchange, deps.DataCache, logger)
	deps.Market = service.NewMarketService(deps.Exchange, logger)
	deps.Funding = service.NewFundingService(deps.Exchange, logger)
	deps.Auth = service.NewAuthService(deps.Exchange, logger)

	return deps, cleanup, nil
}
