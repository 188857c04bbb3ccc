package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexvgr/krakendash/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func fundingEntry(at time.Time, contract string, realized float64) domain.AccountLogEntry {
	return domain.AccountLogEntry{
		Date:            at,
		Info:            domain.EntryFundingRateChange,
		Contract:        contract,
		RealizedFunding: fptr(realized),
	}
}

func tradeEntry(at time.Time, contract string, fee float64) domain.AccountLogEntry {
	return domain.AccountLogEntry{
		Date:     at,
		Info:     domain.EntryFuturesTrade,
		Contract: contract,
		Fee:      fptr(fee),
	}
}

func TestAccumulateSignedFundingAndAbsFees(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	open := now.Add(-10 * 24 * time.Hour)

	api := &fakeExchange{logs: []domain.AccountLogEntry{
		fundingEntry(open.Add(8*time.Hour), "PF_XBTUSD", -1.25),
		fundingEntry(open.Add(16*time.Hour), "PF_XBTUSD", 0.40),
		tradeEntry(open.Add(time.Hour), "PF_XBTUSD", 2.50),
		tradeEntry(open.Add(2*time.Hour), "PF_XBTUSD", 1.00),
	}}

	a := NewAccumulator(api, testLogger)
	got, err := a.Accumulate(context.Background(), domain.Credentials{}, "PF_XBTUSD", open.UnixMilli(), now.UnixMilli())
	require.NoError(t, err)
	assert.InDelta(t, -0.85, got.Funding, 1e-9)
	assert.InDelta(t, 3.50, got.Fees, 1e-9)
	assert.False(t, got.Capped)
}

func TestAccumulateSkipsZeroFeeCompanionRows(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	open := now.Add(-2 * 24 * time.Hour)

	api := &fakeExchange{logs: []domain.AccountLogEntry{
		tradeEntry(open.Add(time.Hour), "PF_ETHUSD", 1.75),
		tradeEntry(open.Add(time.Hour), "PF_ETHUSD", 0),
	}}

	a := NewAccumulator(api, testLogger)
	got, err := a.Accumulate(context.Background(), domain.Credentials{}, "PF_ETHUSD", open.UnixMilli(), now.UnixMilli())
	require.NoError(t, err)
	assert.InDelta(t, 1.75, got.Fees, 1e-9)
}

func TestAccumulateIgnoresOtherContractsAndPreOpenEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	open := now.Add(-5 * 24 * time.Hour)

	api := &fakeExchange{logs: []domain.AccountLogEntry{
		fundingEntry(open.Add(time.Hour), "PF_SOLUSD", -9),
		fundingEntry(open.Add(-time.Hour), "PF_XBTUSD", -100),
		fundingEntry(open.Add(time.Hour), "PF_XBTUSD", -2),
	}}

	a := NewAccumulator(api, testLogger)
	got, err := a.Accumulate(context.Background(), domain.Credentials{}, "PF_XBTUSD", open.UnixMilli(), now.UnixMilli())
	require.NoError(t, err)
	assert.InDelta(t, -2, got.Funding, 1e-9)
}

func TestAccumulateCapsLookbackAtOneYear(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	open := now.Add(-2 * 365 * 24 * time.Hour)

	recent := fundingEntry(now.Add(-24*time.Hour), "PF_XBTUSD", -3)
	ancient := fundingEntry(now.Add(-400*24*time.Hour), "PF_XBTUSD", -50)

	api := &fakeExchange{logs: []domain.AccountLogEntry{recent, ancient}}

	a := NewAccumulator(api, testLogger)
	got, err := a.Accumulate(context.Background(), domain.Credentials{}, "PF_XBTUSD", open.UnixMilli(), now.UnixMilli())
	require.NoError(t, err)
	// Fetch window starts a year back, so the 400-day-old row never arrives.
	assert.True(t, got.Capped)
	assert.InDelta(t, -3, got.Funding, 1e-9)
}

func TestAccumulatePropagatesFetchError(t *testing.T) {
	api := &fakeExchange{logsErr: domain.ErrRateLimited}
	a := NewAccumulator(api, testLogger)
	_, err := a.Accumulate(context.Background(), domain.Credentials{}, "PF_XBTUSD", 0, time.Now().UnixMilli())
	require.ErrorIs(t, err, domain.ErrRateLimited)
}
