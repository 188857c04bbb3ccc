package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/alexvgr/krakendash/internal/domain"
)

const (
	// fundingHistoryDays is the trailing window analyzed for statistics and
	// predictions.
	fundingHistoryDays = 30

	// fundingRecentWindow bounds the raw samples returned to clients. One
	// settlement cycle is enough for the "latest rates" table.
	fundingRecentWindow = 8 * time.Hour

	// fundingPeriodsPerDay: settlements happen at 00:00, 08:00 and 16:00 UTC.
	fundingPeriodsPerDay = 3

	// minPredictionSamples is the smallest history a projection is built
	// from.
	minPredictionSamples = 10

	// predictionSampleWindow is how many of the most recent samples feed the
	// moving average.
	predictionSampleWindow = 30

	// fundingTimeLayout renders sample timestamps for display.
	fundingTimeLayout = "2006-01-02 15:04 UTC"
)

// FundingService reports historical funding rates for a contract with
// trailing statistics and moving-average projections. All data comes from
// public endpoints; no credentials are involved.
type FundingService struct {
	api    ExchangeAPI
	logger *slog.Logger
	now    func() time.Time
}

// NewFundingService wires a FundingService over api.
func NewFundingService(api ExchangeAPI, logger *slog.Logger) *FundingService {
	return &FundingService{
		api:    api,
		logger: logger.With(slog.String("component", "funding")),
		now:    time.Now,
	}
}

// History returns the contract's current funding rate, the samples from the
// last settlement cycle, accumulated statistics over trailing windows, and
// forward projections. A missing ticker degrades to a nil Current block; a
// missing rate history fails the call.
func (s *FundingService) History(ctx context.Context, symbol string) (domain.FundingHistory, error) {
	symbol = strings.ToUpper(symbol)
	now := s.now().UTC()

	out := domain.FundingHistory{History: []domain.FundingRatePoint{}}

	if t, err := s.api.Ticker(ctx, symbol); err != nil {
		s.logger.WarnContext(ctx, "live funding rate unavailable",
			slog.String("symbol", symbol),
			slog.Any("error", err),
		)
	} else {
		out.Current = &domain.CurrentFunding{
			Rate:            t.FundingRate,
			NextFundingTime: formatUntilNextFunding(now),
		}
	}

	rates, err := s.ratesWindow(ctx, symbol, now, fundingHistoryDays)
	if err != nil {
		return domain.FundingHistory{}, err
	}
	if len(rates) == 0 {
		return out, nil
	}

	cutoff := now.Add(-fundingRecentWindow)
	for _, r := range rates {
		if !r.Timestamp.Before(cutoff) {
			out.History = append(out.History, domain.FundingRatePoint{
				Time: r.Timestamp.Format(fundingTimeLayout),
				Rate: r.Rate,
			})
		}
	}
	// Most recent first.
	sort.Slice(out.History, func(i, j int) bool {
		return out.History[i].Time > out.History[j].Time
	})

	var acc7, acc30 float64
	week := now.AddDate(0, 0, -7)
	for _, r := range rates {
		rate := math.Abs(r.Rate)
		if !r.Timestamp.Before(week) {
			acc7 += rate
		}
		acc30 += rate
	}
	out.Statistics = domain.FundingStats{
		Accumulated7d:  acc7,
		Accumulated30d: acc30,
		// Extrapolated from the 30-day average daily rate.
		Accumulated365d: acc30 / fundingHistoryDays * 365,
	}

	out.Predictions = projectFunding(absRates(rates))
	return out, nil
}

// PredictionResult is the response of the prediction endpoint: the
// projection together with how it was produced.
type PredictionResult struct {
	Symbol         string                   `json:"symbol"`
	Days           int                      `json:"days"`
	Predictions    domain.FundingPrediction `json:"predictions"`
	Model          string                   `json:"model"`
	DataPointsUsed int                      `json:"data_points_used"`
}

// Predict projects accumulated funding rates for symbol over the next days
// days. Fewer than minPredictionSamples history points is
// domain.ErrInsufficientData.
func (s *FundingService) Predict(ctx context.Context, symbol string, days int) (PredictionResult, error) {
	symbol = strings.ToUpper(symbol)
	if days < 1 {
		days = fundingHistoryDays
	}

	lookback := days
	if lookback < fundingHistoryDays {
		lookback = fundingHistoryDays
	}
	rates, err := s.ratesWindow(ctx, symbol, s.now().UTC(), lookback)
	if err != nil {
		return PredictionResult{}, err
	}
	if len(rates) < minPredictionSamples {
		return PredictionResult{}, fmt.Errorf("funding: predict %s: %w", symbol, domain.ErrInsufficientData)
	}

	samples := absRates(rates)
	return PredictionResult{
		Symbol:         symbol,
		Days:           days,
		Predictions:    projectFunding(samples),
		Model:          "moving_average",
		DataPointsUsed: len(samples),
	}, nil
}

// ratesWindow fetches the rate history and keeps the trailing days window,
// oldest first.
func (s *FundingService) ratesWindow(ctx context.Context, symbol string, now time.Time, days int) ([]domain.FundingRate, error) {
	rates, err := s.api.FundingRates(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("funding: fetch rates %s: %w", symbol, err)
	}

	since := now.AddDate(0, 0, -days)
	var out []domain.FundingRate
	for _, r := range rates {
		if !r.Timestamp.Before(since) && !r.Timestamp.After(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// projectFunding builds the standard 7/30/365-day projection from
// chronological absolute rates.
func projectFunding(samples []float64) domain.FundingPrediction {
	if len(samples) == 0 {
		return domain.FundingPrediction{}
	}
	avg := recentMean(samples, predictionSampleWindow)
	return domain.FundingPrediction{
		Predicted7d:   avg * fundingPeriodsPerDay * 7,
		Predicted30d:  avg * fundingPeriodsPerDay * 30,
		Predicted365d: avg * fundingPeriodsPerDay * 365,
	}
}

// recentMean averages the last n samples, or all of them when fewer exist.
func recentMean(samples []float64, n int) float64 {
	if len(samples) == 0 {
		return 0
	}
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}

func absRates(rates []domain.FundingRate) []float64 {
	out := make([]float64, len(rates))
	for i, r := range rates {
		out[i] = math.Abs(r.Rate)
	}
	return out
}

// formatUntilNextFunding renders the time until the next settlement slot
// (00:00, 08:00 or 16:00 UTC) as "Xh Ym".
func formatUntilNextFunding(now time.Time) string {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for !next.After(now) {
		next = next.Add(8 * time.Hour)
	}
	until := next.Sub(now)
	return fmt.Sprintf("%dh %dm", int(until.Hours()), int(until.Minutes())%60)
}
