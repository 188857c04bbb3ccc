package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alexvgr/krakendash/internal/domain"
)

// dashboardCacheTTL is how long an aggregated dashboard stays fresh.
const dashboardCacheTTL = 5 * time.Minute

// fallbackFeeRate reconstructs an approximate trade volume from its fee when
// no execution record is available to read the real notional from.
const fallbackFeeRate = 0.0001

// DashboardService aggregates account history into daily fee, funding, and
// volume series for charting.
type DashboardService struct {
	api    ExchangeAPI
	cache  domain.DataCache
	logger *slog.Logger
	now    func() time.Time
}

// NewDashboardService wires a DashboardService. cache may not be nil; use
// the memory backend when nothing else is configured.
func NewDashboardService(api ExchangeAPI, cache domain.DataCache, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		api:    api,
		cache:  cache,
		logger: logger.With(slog.String("component", "dashboard")),
		now:    time.Now,
	}
}

// Data returns the aggregated dashboard for the last days days. Cached
// aggregations covering at least the requested window are narrowed and
// served without touching the venue; forceRefresh bypasses the cache.
func (s *DashboardService) Data(ctx context.Context, creds domain.Credentials, days int, forceRefresh bool) (domain.DashboardData, error) {
	if days < 1 {
		days = 1
	}

	key := creds.CacheKeyPrefix()
	if !forceRefresh {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.WarnContext(ctx, "cache read failed", slog.Any("error", err))
		} else if ok && cached.PeriodDays >= days {
			return s.narrowToDays(cached, days), nil
		}
	}

	data, err := s.build(ctx, creds, days)
	if err != nil {
		return domain.DashboardData{}, err
	}

	// A cancelled build may hold a truncated page set; never let it poison
	// the cache.
	if ctx.Err() == nil {
		if err := s.cache.Set(ctx, key, data, dashboardCacheTTL); err != nil {
			s.logger.WarnContext(ctx, "cache write failed", slog.Any("error", err))
		}
	}
	return data, nil
}

// DailySeries returns just the per-day buckets for the last days days.
func (s *DashboardService) DailySeries(ctx context.Context, creds domain.Credentials, days int, forceRefresh bool) ([]domain.DailyBucket, error) {
	data, err := s.Data(ctx, creds, days, forceRefresh)
	if err != nil {
		return nil, err
	}
	return data.Daily, nil
}

// ----- Aggregation internals -----

func (s *DashboardService) build(ctx context.Context, creds domain.Credentials, days int) (domain.DashboardData, error) {
	now := s.now().UTC()
	startDay := midnightUTC(now).AddDate(0, 0, -(days - 1))
	startMS := startDay.UnixMilli()
	endMS := midnightUTC(now).AddDate(0, 0, 1).UnixMilli()

	var (
		logs   []domain.AccountLogEntry
		events []domain.ExecutionEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		logs, err = s.api.AccountLogs(gctx, creds, startMS, endMS, 0)
		if err != nil {
			return fmt.Errorf("dashboard: fetch account log: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		events, err = s.api.ExecutionEvents(gctx, creds, startMS, endMS)
		if err != nil {
			// Executions only refine trade volumes; the dashboard still
			// stands on the account log alone.
			s.logger.WarnContext(gctx, "executions unavailable, volumes will be estimated",
				slog.Any("error", err),
			)
			events = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.DashboardData{}, err
	}

	byExecID := indexExecutions(events)
	trades := buildTradeRows(logs, byExecID)
	daily := buildDailySeries(logs, trades, startDay, days)

	data := domain.DashboardData{
		Daily:       daily,
		Trades:      trades,
		Summary:     summarize(daily, days),
		PeriodDays:  days,
		LastUpdated: now.UnixMilli(),
	}
	s.logger.InfoContext(ctx, "dashboard aggregated",
		slog.Int("days", days),
		slog.Int("trades", len(trades)),
		slog.Int("log_entries", len(logs)),
	)
	return data, nil
}

// indexExecutions maps execution UID to its event, dropping duplicate UIDs
// that paginated fetches can repeat across page boundaries.
func indexExecutions(events []domain.ExecutionEvent) map[string]domain.ExecutionEvent {
	byID := make(map[string]domain.ExecutionEvent, len(events))
	for _, ev := range events {
		if ev.UID == "" {
			continue
		}
		if _, seen := byID[ev.UID]; seen {
			continue
		}
		byID[ev.UID] = ev
	}
	return byID
}

// buildTradeRows turns fee-bearing trade log entries into display rows. The
// USD volume comes from the matched execution when one exists; otherwise it
// is reconstructed from the fee at the basis rate and tagged as an estimate.
func buildTradeRows(logs []domain.AccountLogEntry, byExecID map[string]domain.ExecutionEvent) []domain.TradeRow {
	rows := make([]domain.TradeRow, 0, len(logs))
	seen := make(map[string]struct{}, len(logs))

	for _, e := range logs {
		if !e.IsTrade() || e.Fee == nil || *e.Fee <= 0 {
			continue
		}
		if e.ExecutionID != "" {
			if _, dup := seen[e.ExecutionID]; dup {
				continue
			}
			seen[e.ExecutionID] = struct{}{}
		}

		row := domain.TradeRow{
			Date:        e.Date.UTC(),
			Contract:    e.Contract,
			Asset:       domain.AssetFromContract(e.Contract),
			Fee:         math.Abs(*e.Fee),
			Price:       e.TradePrice,
			ExecutionID: e.ExecutionID,
		}

		ev, matched := byExecID[e.ExecutionID]
		switch {
		case matched && ev.USDValue > 0:
			row.Quantity = ev.Quantity
			row.USDVolume = ev.USDValue
		case matched && ev.Price > 0:
			row.Quantity = ev.Quantity
			row.USDVolume = math.Abs(ev.Quantity) * ev.Price
		default:
			row.USDVolume = row.Fee / fallbackFeeRate
			row.Estimated = true
			row.BasisFeeRate = fallbackFeeRate
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows
}

// buildDailySeries produces one bucket per UTC day from startDay through
// today inclusive, with zero-valued buckets for quiet days. Funding is
// charted as a magnitude regardless of direction.
func buildDailySeries(logs []domain.AccountLogEntry, trades []domain.TradeRow, startDay time.Time, days int) []domain.DailyBucket {
	series := make([]domain.DailyBucket, days)
	index := make(map[string]int, days)
	for i := range series {
		day := startDay.AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		series[i] = domain.DailyBucket{Date: key}
		index[key] = i
	}

	for _, e := range logs {
		i, ok := index[e.Date.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}
		if e.IsFunding() {
			series[i].Funding += math.Abs(*e.RealizedFunding)
		}
	}

	for _, tr := range trades {
		i, ok := index[tr.Date.Format("2006-01-02")]
		if !ok {
			continue
		}
		series[i].Fees += tr.Fee
		series[i].Volume += tr.USDVolume
		series[i].TradeCount++
	}
	return series
}

func summarize(daily []domain.DailyBucket, days int) domain.Summary {
	var sum domain.Summary
	for _, b := range daily {
		sum.TotalFees += b.Fees
		sum.TotalFunding += b.Funding
		sum.TotalVolume += b.Volume
		sum.TotalTrades += b.TradeCount
	}
	sum.TotalCost = sum.TotalFees + sum.TotalFunding
	if days > 0 {
		sum.AvgDailyFees = sum.TotalFees / float64(days)
		sum.AvgDailyFunding = sum.TotalFunding / float64(days)
	}
	return sum
}

// narrowToDays trims a cached wider aggregation down to the requested
// window and recomputes its summary.
func (s *DashboardService) narrowToDays(data domain.DashboardData, days int) domain.DashboardData {
	if data.PeriodDays == days {
		return data
	}

	daily := data.Daily
	if len(daily) > days {
		daily = daily[len(daily)-days:]
	}
	cutoff, _ := time.ParseInLocation("2006-01-02", daily[0].Date, time.UTC)

	trades := make([]domain.TradeRow, 0, len(data.Trades))
	for _, tr := range data.Trades {
		if !tr.Date.Before(cutoff) {
			trades = append(trades, tr)
		}
	}

	return domain.DashboardData{
		Daily:       daily,
		Trades:      trades,
		Summary:     summarize(daily, days),
		PeriodDays:  days,
		LastUpdated: data.LastUpdated,
	}
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
