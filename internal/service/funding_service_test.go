package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexvgr/krakendash/internal/domain"
)

func newTestFundingService(api *fakeExchange) *FundingService {
	s := NewFundingService(api, testLogger)
	s.now = fixedNow
	return s
}

func ratePoint(at time.Time, rate float64) domain.FundingRate {
	return domain.FundingRate{Timestamp: at, Rate: rate}
}

func TestFundingHistoryAccumulatesAbsoluteRates(t *testing.T) {
	now := fixedNow()
	api := &fakeExchange{
		tickers: map[string]domain.Ticker{
			"PF_XBTUSD": {Symbol: "PF_XBTUSD", FundingRate: 0.0002},
		},
		rates: []domain.FundingRate{
			ratePoint(now.Add(-2*time.Hour), 0.0001),
			ratePoint(now.Add(-10*time.Hour), -0.0003),
			ratePoint(now.AddDate(0, 0, -10), 0.0002),
			// Outside the 30-day analysis window.
			ratePoint(now.AddDate(0, 0, -40), 0.05),
		},
	}

	s := newTestFundingService(api)
	hist, err := s.History(context.Background(), "pf_xbtusd")
	require.NoError(t, err)

	require.NotNil(t, hist.Current)
	assert.InDelta(t, 0.0002, hist.Current.Rate, 1e-12)

	// Only the sample inside the last settlement cycle is listed.
	require.Len(t, hist.History, 1)
	assert.InDelta(t, 0.0001, hist.History[0].Rate, 1e-12)

	assert.InDelta(t, 0.0004, hist.Statistics.Accumulated7d, 1e-12)
	assert.InDelta(t, 0.0006, hist.Statistics.Accumulated30d, 1e-12)
	assert.InDelta(t, 0.0006/30*365, hist.Statistics.Accumulated365d, 1e-12)
}

func TestFundingHistoryRecentSamplesNewestFirst(t *testing.T) {
	now := fixedNow()
	api := &fakeExchange{
		rates: []domain.FundingRate{
			ratePoint(now.Add(-7*time.Hour), 0.0001),
			ratePoint(now.Add(-1*time.Hour), 0.0002),
			ratePoint(now.Add(-4*time.Hour), 0.0003),
		},
	}

	s := newTestFundingService(api)
	hist, err := s.History(context.Background(), "PF_XBTUSD")
	require.NoError(t, err)
	require.Len(t, hist.History, 3)
	assert.InDelta(t, 0.0002, hist.History[0].Rate, 1e-12)
	assert.InDelta(t, 0.0003, hist.History[1].Rate, 1e-12)
	assert.InDelta(t, 0.0001, hist.History[2].Rate, 1e-12)
}

func TestFundingHistoryTickerFailureDegradesToNilCurrent(t *testing.T) {
	now := fixedNow()
	api := &fakeExchange{
		tickerErr: domain.ErrTransient,
		rates:     []domain.FundingRate{ratePoint(now.Add(-time.Hour), 0.0001)},
	}

	s := newTestFundingService(api)
	hist, err := s.History(context.Background(), "PF_XBTUSD")
	require.NoError(t, err)
	assert.Nil(t, hist.Current)
	assert.Len(t, hist.History, 1)
}

func TestFundingHistoryEmptyRates(t *testing.T) {
	s := newTestFundingService(&fakeExchange{tickerErr: domain.ErrNotFound})
	hist, err := s.History(context.Background(), "PF_NOPEUSD")
	require.NoError(t, err)
	assert.Nil(t, hist.Current)
	assert.Empty(t, hist.History)
	assert.Zero(t, hist.Statistics.Accumulated30d)
	assert.Zero(t, hist.Predictions.Predicted30d)
}

func TestFundingHistoryRatesFailurePropagates(t *testing.T) {
	s := newTestFundingService(&fakeExchange{ratesErr: domain.ErrRateLimited})
	_, err := s.History(context.Background(), "PF_XBTUSD")
	require.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestPredictProjectsMovingAverage(t *testing.T) {
	now := fixedNow()
	rates := make([]domain.FundingRate, 0, 12)
	for i := 0; i < 12; i++ {
		rates = append(rates, ratePoint(now.Add(-time.Duration(i+1)*8*time.Hour), 0.0001))
	}

	s := newTestFundingService(&fakeExchange{rates: rates})
	res, err := s.Predict(context.Background(), "pf_xbtusd", 30)
	require.NoError(t, err)

	assert.Equal(t, "PF_XBTUSD", res.Symbol)
	assert.Equal(t, 30, res.Days)
	assert.Equal(t, 12, res.DataPointsUsed)
	assert.Equal(t, "moving_average", res.Model)
	assert.InDelta(t, 0.0001*3*7, res.Predictions.Predicted7d, 1e-12)
	assert.InDelta(t, 0.0001*3*30, res.Predictions.Predicted30d, 1e-12)
	assert.InDelta(t, 0.0001*3*365, res.Predictions.Predicted365d, 1e-12)
}

func TestPredictRejectsThinHistory(t *testing.T) {
	now := fixedNow()
	s := newTestFundingService(&fakeExchange{
		rates: []domain.FundingRate{ratePoint(now.Add(-time.Hour), 0.0001)},
	})
	_, err := s.Predict(context.Background(), "PF_XBTUSD", 30)
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestFormatUntilNextFunding(t *testing.T) {
	cases := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC), "1h 30m"},
		{time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), "4h 0m"},
		{time.Date(2026, 3, 1, 23, 15, 0, 0, time.UTC), "0h 45m"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatUntilNextFunding(tc.now))
	}
}
