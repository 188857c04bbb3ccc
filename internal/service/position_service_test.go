package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexvgr/krakendash/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestPositionService(api *fakeExchange) *PositionService {
	s := NewPositionService(api, testLogger)
	s.now = fixedNow
	return s
}

func TestSnapshotResolvesAndAccumulates(t *testing.T) {
	now := fixedNow()
	opened := now.Add(-3 * 24 * time.Hour)

	api := &fakeExchange{
		events: []domain.ExecutionEvent{
			{UID: "a", Timestamp: opened.UnixMilli(), Symbol: "PF_XBTUSD", Quantity: 1},
		},
		logs: []domain.AccountLogEntry{
			fundingEntry(opened.Add(8*time.Hour), "PF_XBTUSD", -1.5),
			tradeEntry(opened.Add(time.Minute), "PF_XBTUSD", 0.75),
		},
	}

	s := newTestPositionService(api)
	snap := s.Snapshot(context.Background(), domain.Credentials{}, domain.Position{Symbol: "PF_XBTUSD", Size: 1, Side: "long"})
	require.Empty(t, snap.Err)
	require.NotNil(t, snap.OpenedAt)
	assert.Equal(t, opened, snap.OpenedAt.UTC())
	assert.InDelta(t, -1.5, snap.AccumulatedFunding, 1e-9)
	assert.InDelta(t, 0.75, snap.AccumulatedFees, 1e-9)
	assert.False(t, snap.DataCapped)
}

func TestSnapshotDegradesOnMissingFields(t *testing.T) {
	s := newTestPositionService(&fakeExchange{})
	snap := s.Snapshot(context.Background(), domain.Credentials{}, domain.Position{Symbol: "", Size: 0})
	assert.Equal(t, "missing symbol or size", snap.Err)
	assert.Nil(t, snap.OpenedAt)
}

func TestSnapshotDegradesOnUpstreamError(t *testing.T) {
	api := &fakeExchange{eventsErr: domain.ErrRateLimited}
	s := newTestPositionService(api)
	snap := s.Snapshot(context.Background(), domain.Credentials{}, domain.Position{Symbol: "PF_XBTUSD", Size: 1})
	assert.NotEmpty(t, snap.Err)
	assert.Equal(t, "PF_XBTUSD", snap.Symbol)
}

func TestSnapshotsOneBadPositionDoesNotAbortBatch(t *testing.T) {
	now := fixedNow()
	opened := now.Add(-24 * time.Hour)

	api := &fakeExchange{
		positions: []domain.Position{
			{Symbol: "PF_XBTUSD", Size: 1, Side: "long"},
			{Symbol: "", Size: 0},
		},
		events: []domain.ExecutionEvent{
			{UID: "a", Timestamp: opened.UnixMilli(), Symbol: "PF_XBTUSD", Quantity: 1},
		},
	}

	s := newTestPositionService(api)
	snaps, err := s.Snapshots(context.Background(), domain.Credentials{})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Empty(t, snaps[0].Err)
	assert.Equal(t, "missing symbol or size", snaps[1].Err)
}

func TestDetailedPositionsComputesNetProfit(t *testing.T) {
	now := fixedNow()
	opened := now.Add(-24 * time.Hour)

	api := &fakeExchange{
		positions: []domain.Position{
			{Symbol: "PF_XBTUSD", Size: 10, EntryPrice: 100, Side: "long"},
		},
		events: []domain.ExecutionEvent{
			{UID: "a", Timestamp: opened.UnixMilli(), Symbol: "PF_XBTUSD", Quantity: 10},
		},
		tickers: map[string]domain.Ticker{
			"PF_XBTUSD": {Symbol: "PF_XBTUSD", MarkPrice: 110},
		},
		feeInfo: domain.FeeInfo{MakerFee: 0.0001},
	}

	s := newTestPositionService(api)
	details, err := s.DetailedPositions(context.Background(), domain.Credentials{})
	require.NoError(t, err)
	require.Len(t, details, 1)
	d := details[0]
	assert.InDelta(t, 100.0, d.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 0.11, d.EstimatedCloseFee, 1e-9)
	assert.InDelta(t, 99.89, d.NetPnL, 1e-9)
	assert.Equal(t, 110.0, d.CurrentPrice)
}

func TestDetailedPositionsFallsBackToDefaultMakerRate(t *testing.T) {
	now := fixedNow()
	opened := now.Add(-24 * time.Hour)

	api := &fakeExchange{
		positions: []domain.Position{
			{Symbol: "PF_ETHUSD", Size: -5, EntryPrice: 200, Side: "short"},
		},
		events: []domain.ExecutionEvent{
			{UID: "a", Timestamp: opened.UnixMilli(), Symbol: "PF_ETHUSD", Quantity: -5},
		},
		tickers: map[string]domain.Ticker{
			"PF_ETHUSD": {Symbol: "PF_ETHUSD", MarkPrice: 190},
		},
		feeInfoErr: domain.ErrTransient,
	}

	s := newTestPositionService(api)
	details, err := s.DetailedPositions(context.Background(), domain.Credentials{})
	require.NoError(t, err)
	require.Len(t, details, 1)
	// 5 * 190 * 0.0001 = 0.095, rounded to cents at the boundary.
	assert.InDelta(t, 0.10, details[0].EstimatedCloseFee, 1e-9)
	assert.InDelta(t, 50.0, details[0].UnrealizedPnL, 1e-9)
}

func TestDetailedPositionsTickerFailureFallsBackToEntryPrice(t *testing.T) {
	now := fixedNow()
	opened := now.Add(-24 * time.Hour)

	api := &fakeExchange{
		positions: []domain.Position{
			{Symbol: "PF_XRPUSD", Size: 100, EntryPrice: 200, Side: "long"},
		},
		events: []domain.ExecutionEvent{
			{UID: "a", Timestamp: opened.UnixMilli(), Symbol: "PF_XRPUSD", Quantity: 100},
		},
		tickerErr: domain.ErrTransient,
		feeInfo:   domain.FeeInfo{MakerFee: 0.0001},
	}

	s := newTestPositionService(api)
	details, err := s.DetailedPositions(context.Background(), domain.Credentials{})
	require.NoError(t, err)
	require.Len(t, details, 1)
	// Priced at entry: flat P&L, close fee still estimated.
	assert.Equal(t, 200.0, details[0].CurrentPrice)
	assert.Zero(t, details[0].UnrealizedPnL)
	assert.InDelta(t, 2.0, details[0].EstimatedCloseFee, 1e-9)
	assert.InDelta(t, -2.0, details[0].NetPnL, 1e-9)
}

func TestDetailedPositionsEmptyAccount(t *testing.T) {
	s := newTestPositionService(&fakeExchange{})
	details, err := s.DetailedPositions(context.Background(), domain.Credentials{})
	require.NoError(t, err)
	assert.Empty(t, details)
}

func TestPositionsPropagatesError(t *testing.T) {
	s := newTestPositionService(&fakeExchange{posErr: domain.ErrUnauthorized})
	_, err := s.Positions(context.Background(), domain.Credentials{})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
