package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexvgr/krakendash/internal/domain"
)

// fakeExchange implements ExchangeAPI from canned data. Methods not under
// test return zero values.
type fakeExchange struct {
	logs       []domain.AccountLogEntry
	logsErr    error
	events     []domain.ExecutionEvent
	eventsErr  error
	positions  []domain.Position
	posErr     error
	tickers    map[string]domain.Ticker
	tickerErr  error
	rates      []domain.FundingRate
	ratesErr   error
	feeInfo    domain.FeeInfo
	feeInfoErr error

	mu         sync.Mutex
	eventCalls []struct{ since, before int64 }
}

func (f *fakeExchange) AccountLogs(ctx context.Context, creds domain.Credentials, since, before int64, limit int) ([]domain.AccountLogEntry, error) {
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	var out []domain.AccountLogEntry
	for _, e := range f.logs {
		ms := e.Date.UnixMilli()
		if ms >= since && ms <= before {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeExchange) ExecutionEvents(ctx context.Context, creds domain.Credentials, since, before int64) ([]domain.ExecutionEvent, error) {
	f.mu.Lock()
	f.eventCalls = append(f.eventCalls, struct{ since, before int64 }{since, before})
	f.mu.Unlock()
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	var out []domain.ExecutionEvent
	for _, ev := range f.events {
		if ev.Timestamp >= since && ev.Timestamp <= before {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeExchange) OpenPositions(ctx context.Context, creds domain.Credentials) ([]domain.Position, error) {
	if f.posErr != nil {
		return nil, f.posErr
	}
	return f.positions, nil
}

func (f *fakeExchange) Ticker(ctx context.Context, symbol string) (domain.Ticker, error) {
	if f.tickerErr != nil {
		return domain.Ticker{}, f.tickerErr
	}
	t, ok := f.tickers[symbol]
	if !ok {
		return domain.Ticker{}, domain.ErrNotFound
	}
	return t, nil
}

func (f *fakeExchange) FundingRates(ctx context.Context, symbol string) ([]domain.FundingRate, error) {
	if f.ratesErr != nil {
		return nil, f.ratesErr
	}
	return f.rates, nil
}

func (f *fakeExchange) FeeInfo(ctx context.Context, creds domain.Credentials) (domain.FeeInfo, error) {
	if f.feeInfoErr != nil {
		return domain.FeeInfo{}, f.feeInfoErr
	}
	return f.feeInfo, nil
}

var testLogger = slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func msAt(t time.Time) int64 { return t.UnixMilli() }

func TestFindOpenTimeSimpleOpen(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opened := now.Add(-5 * 24 * time.Hour)

	api := &fakeExchange{events: []domain.ExecutionEvent{
		{UID: "a", Timestamp: msAt(opened), Symbol: "PF_XBTUSD", Quantity: 1.5, Price: 60000},
	}}

	r := NewOpenTimeResolver(api, testLogger)
	got, err := r.FindOpenTime(context.Background(), domain.Credentials{}, "pf_xbtusd", 1.5, msAt(now))
	require.NoError(t, err)
	assert.Equal(t, msAt(opened), got)
}

func TestFindOpenTimeSkipsEarlierRoundTrip(t *testing.T) {
	// An older fully closed round trip must not pull the open time further
	// back: the walk stops at the most recent zero crossing.
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	oldOpen := now.Add(-20 * 24 * time.Hour)
	oldClose := now.Add(-15 * 24 * time.Hour)
	curOpen := now.Add(-3 * 24 * time.Hour)

	api := &fakeExchange{events: []domain.ExecutionEvent{
		{UID: "a", Timestamp: msAt(oldOpen), Symbol: "PF_ETHUSD", Quantity: 2},
		{UID: "b", Timestamp: msAt(oldClose), Symbol: "PF_ETHUSD", Quantity: -2},
		{UID: "c", Timestamp: msAt(curOpen), Symbol: "PF_ETHUSD", Quantity: 2},
	}}

	r := NewOpenTimeResolver(api, testLogger)
	got, err := r.FindOpenTime(context.Background(), domain.Credentials{}, "PF_ETHUSD", 2, msAt(now))
	require.NoError(t, err)
	assert.Equal(t, msAt(curOpen), got)
}

func TestFindOpenTimePartialFills(t *testing.T) {
	// Position built in two fills: 1.0 then 0.5. The zero crossing happens at
	// the first (older) fill.
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first := now.Add(-10 * 24 * time.Hour)
	second := now.Add(-4 * 24 * time.Hour)

	api := &fakeExchange{events: []domain.ExecutionEvent{
		{UID: "a", Timestamp: msAt(first), Symbol: "PF_SOLUSD", Quantity: 1.0},
		{UID: "b", Timestamp: msAt(second), Symbol: "PF_SOLUSD", Quantity: 0.5},
	}}

	r := NewOpenTimeResolver(api, testLogger)
	got, err := r.FindOpenTime(context.Background(), domain.Credentials{}, "PF_SOLUSD", 1.5, msAt(now))
	require.NoError(t, err)
	assert.Equal(t, msAt(first), got)
}

func TestFindOpenTimeFallsBackToOldestFill(t *testing.T) {
	// Net never reaches zero (history truncated): oldest matched fill wins.
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	older := now.Add(-40 * 24 * time.Hour)
	newer := now.Add(-2 * 24 * time.Hour)

	api := &fakeExchange{events: []domain.ExecutionEvent{
		{UID: "a", Timestamp: msAt(older), Symbol: "PF_XRPUSD", Quantity: 1},
		{UID: "b", Timestamp: msAt(newer), Symbol: "PF_XRPUSD", Quantity: 1},
	}}

	r := NewOpenTimeResolver(api, testLogger)
	got, err := r.FindOpenTime(context.Background(), domain.Credentials{}, "PF_XRPUSD", 5, msAt(now))
	require.NoError(t, err)
	assert.Equal(t, msAt(older), got)
}

func TestFindOpenTimeFallsBackToDefaultWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	api := &fakeExchange{}
	r := NewOpenTimeResolver(api, testLogger)
	got, err := r.FindOpenTime(context.Background(), domain.Credentials{}, "PF_XBTUSD", 1, msAt(now))
	require.NoError(t, err)
	assert.Equal(t, msAt(now)-int64(resolverFallbackDays)*dayMS, got)
	// Every chunk of the lookback was scanned.
	assert.Len(t, api.eventCalls, resolverLookbackDays/resolverChunkDays)
}

func TestFindOpenTimeIgnoresOtherSymbols(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ethFill := now.Add(-1 * 24 * time.Hour)
	btcFill := now.Add(-6 * 24 * time.Hour)

	api := &fakeExchange{events: []domain.ExecutionEvent{
		{UID: "a", Timestamp: msAt(ethFill), Symbol: "PF_ETHUSD", Quantity: 3},
		{UID: "b", Timestamp: msAt(btcFill), Symbol: "PF_XBTUSD", Quantity: 1},
	}}

	r := NewOpenTimeResolver(api, testLogger)
	got, err := r.FindOpenTime(context.Background(), domain.Credentials{}, "PF_XBTUSD", 1, msAt(now))
	require.NoError(t, err)
	assert.Equal(t, msAt(btcFill), got)
}

func TestFindOpenTimePropagatesFetchError(t *testing.T) {
	api := &fakeExchange{eventsErr: domain.ErrUnauthorized}
	r := NewOpenTimeResolver(api, testLogger)
	_, err := r.FindOpenTime(context.Background(), domain.Credentials{}, "PF_XBTUSD", 1, time.Now().UnixMilli())
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
