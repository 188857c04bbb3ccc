package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alexvgr/krakendash/internal/cache/memory"
	"github.com/alexvgr/krakendash/internal/config"
	"github.com/alexvgr/krakendash/internal/domain"
	"github.com/alexvgr/krakendash/internal/server/ws"
	"github.com/alexvgr/krakendash/internal/service"
)

// stubExchange satisfies service.ExchangeAPI with one open position and a
// live ticker for it.
type stubExchange struct {
	logsErr error
}

func (s *stubExchange) AccountLogs(ctx context.Context, creds domain.Credentials, since, before int64, limit int) ([]domain.AccountLogEntry, error) {
	return nil, s.logsErr
}

func (s *stubExchange) ExecutionEvents(ctx context.Context, creds domain.Credentials, since, before int64) ([]domain.ExecutionEvent, error) {
	return nil, nil
}

func (s *stubExchange) OpenPositions(ctx context.Context, creds domain.Credentials) ([]domain.Position, error) {
	return []domain.Position{{Symbol: "PF_XBTUSD", Size: 1, EntryPrice: 60000, Side: "long"}}, nil
}

func (s *stubExchange) Ticker(ctx context.Context, symbol string) (domain.Ticker, error) {
	return domain.Ticker{Symbol: symbol, MarkPrice: 60500}, nil
}

func (s *stubExchange) FundingRates(ctx context.Context, symbol string) ([]domain.FundingRate, error) {
	return nil, nil
}

func (s *stubExchange) FeeInfo(ctx context.Context, creds domain.Credentials) (domain.FeeInfo, error) {
	return domain.FeeInfo{MakerFee: 0.0001}, nil
}

// recordingPublisher captures the channels events were published on.
type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
}

func (p *recordingPublisher) Publish(channel string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
}

func newRefreshFixture(api *stubExchange) (*App, *Dependencies) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Defaults()

	deps := &Dependencies{
		Exchange:  api,
		Positions: service.NewPositionService(api, logger),
		Dashboard: service.NewDashboardService(api, memory.NewDataCache(), logger),
		Market:    service.NewMarketService(api, logger),
	}
	return New(&cfg, logger), deps
}

func TestWarmRefreshPublishesAllChannels(t *testing.T) {
	a, deps := newRefreshFixture(&stubExchange{})
	pub := &recordingPublisher{}

	creds := domain.Credentials{APIKey: "warm-key-1234", APISecret: "dGVzdA=="}
	a.warmRefresh(context.Background(), deps, pub, creds, 7)

	assert.Equal(t, []string{ws.ChannelDashboard, ws.ChannelPositions, ws.ChannelTickers}, pub.channels)
}

func TestWarmRefreshAbortsWhenDashboardFails(t *testing.T) {
	a, deps := newRefreshFixture(&stubExchange{logsErr: domain.ErrUnauthorized})
	pub := &recordingPublisher{}

	creds := domain.Credentials{APIKey: "warm-key-1234", APISecret: "dGVzdA=="}
	a.warmRefresh(context.Background(), deps, pub, creds, 7)

	assert.Empty(t, pub.channels)
}
