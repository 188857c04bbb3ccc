package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alexvgr/krakendash/internal/domain"
)

// MarketService exposes public market data and the account's fee schedule.
type MarketService struct {
	api    ExchangeAPI
	logger *slog.Logger
}

// NewMarketService wires a MarketService over api.
func NewMarketService(api ExchangeAPI, logger *slog.Logger) *MarketService {
	return &MarketService{
		api:    api,
		logger: logger.With(slog.String("component", "market")),
	}
}

// Ticker returns the current ticker for symbol.
func (s *MarketService) Ticker(ctx context.Context, symbol string) (domain.Ticker, error) {
	t, err := s.api.Ticker(ctx, strings.ToUpper(symbol))
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("market: fetch ticker %s: %w", symbol, err)
	}
	return t, nil
}

// Tickers fetches tickers for several symbols at once. Symbols that fail to
// resolve are left out of the result rather than failing the batch.
func (s *MarketService) Tickers(ctx context.Context, symbols []string) (map[string]domain.Ticker, error) {
	out := make(map[string]domain.Ticker, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tickerFanout)
	for _, symbol := range symbols {
		sym := strings.ToUpper(symbol)
		g.Go(func() error {
			t, err := s.api.Ticker(gctx, sym)
			if err != nil {
				s.logger.WarnContext(gctx, "ticker lookup failed",
					slog.String("symbol", sym),
					slog.Any("error", err),
				)
				return nil
			}
			mu.Lock()
			out[sym] = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FeeInfo returns the account's 30-day volume and current fee tier.
func (s *MarketService) FeeInfo(ctx context.Context, creds domain.Credentials) (domain.FeeInfo, error) {
	info, err := s.api.FeeInfo(ctx, creds)
	if err != nil {
		return domain.FeeInfo{}, fmt.Errorf("market: fetch fee schedule: %w", err)
	}
	return info, nil
}
