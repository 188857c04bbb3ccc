package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alexvgr/krakendash/internal/domain"
)

const (
	// tickerFanout bounds concurrent ticker lookups while building detailed
	// positions.
	tickerFanout = 5

	// snapshotFanout bounds concurrent open-time resolutions. Each snapshot
	// walks account history, so this stays low to respect venue rate limits.
	snapshotFanout = 3
)

// PositionService reports open positions with their accumulated funding,
// fees, and profit estimates.
type PositionService struct {
	api         ExchangeAPI
	resolver    *OpenTimeResolver
	accumulator *Accumulator
	logger      *slog.Logger
	now         func() time.Time
}

// NewPositionService wires a PositionService over api.
func NewPositionService(api ExchangeAPI, logger *slog.Logger) *PositionService {
	return &PositionService{
		api:         api,
		resolver:    NewOpenTimeResolver(api, logger),
		accumulator: NewAccumulator(api, logger),
		logger:      logger.With(slog.String("component", "positions")),
		now:         time.Now,
	}
}

// Positions returns the account's raw open positions.
func (s *PositionService) Positions(ctx context.Context, creds domain.Credentials) ([]domain.Position, error) {
	positions, err := s.api.OpenPositions(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("positions: fetch open positions: %w", err)
	}
	return positions, nil
}

// Snapshot resolves one position's open time and accumulates its costs. A
// failure in either step degrades into the Err field rather than an error
// return, so a bad symbol never hides the rest of the account.
func (s *PositionService) Snapshot(ctx context.Context, creds domain.Credentials, pos domain.Position) domain.PositionSnapshot {
	snap := domain.PositionSnapshot{Symbol: pos.Symbol}
	if pos.Symbol == "" || pos.Size == 0 {
		snap.Err = "missing symbol or size"
		return snap
	}

	nowMS := s.now().UnixMilli()
	openMS, err := s.resolver.FindOpenTime(ctx, creds, pos.Symbol, math.Abs(pos.Size), nowMS)
	if err != nil {
		s.logger.WarnContext(ctx, "open time resolution failed",
			slog.String("symbol", pos.Symbol),
			slog.Any("error", err),
		)
		snap.Err = err.Error()
		return snap
	}
	opened := time.UnixMilli(openMS).UTC()
	snap.OpenedAt = &opened

	acc, err := s.accumulator.Accumulate(ctx, creds, pos.Symbol, openMS, nowMS)
	if err != nil {
		s.logger.WarnContext(ctx, "cost accumulation failed",
			slog.String("symbol", pos.Symbol),
			slog.Any("error", err),
		)
		snap.Err = err.Error()
		return snap
	}
	snap.AccumulatedFunding = acc.Funding
	snap.AccumulatedFees = acc.Fees
	snap.DataCapped = acc.Capped
	return snap
}

// Snapshots builds snapshots for all open positions, a few at a time.
// Per-position failures land in each snapshot's Err field; only fetching the
// position list itself can fail the call.
func (s *PositionService) Snapshots(ctx context.Context, creds domain.Credentials) ([]domain.PositionSnapshot, error) {
	positions, err := s.Positions(ctx, creds)
	if err != nil {
		return nil, err
	}

	snaps := make([]domain.PositionSnapshot, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotFanout)
	for i, pos := range positions {
		g.Go(func() error {
			snaps[i] = s.Snapshot(gctx, creds, pos)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}

// DetailedPositions returns positions enriched with marks, snapshots, and
// profit estimates. The account's maker rate is used for the close-fee
// estimate; when the fee schedule is unavailable the default rate stands in
// and the call still succeeds. A position whose ticker cannot be fetched is
// priced at its entry, reading as flat P&L.
func (s *PositionService) DetailedPositions(ctx context.Context, creds domain.Credentials) ([]domain.PositionDetail, error) {
	positions, err := s.Positions(ctx, creds)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return []domain.PositionDetail{}, nil
	}

	makerRate := DefaultMakerFeeRate
	if fees, err := s.api.FeeInfo(ctx, creds); err != nil {
		s.logger.WarnContext(ctx, "fee schedule unavailable, using default maker rate",
			slog.Any("error", err),
		)
	} else if fees.MakerFee > 0 {
		makerRate = fees.MakerFee
	}

	marks := make([]float64, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tickerFanout)
	for i, pos := range positions {
		g.Go(func() error {
			t, err := s.api.Ticker(gctx, pos.Symbol)
			if err != nil {
				s.logger.WarnContext(gctx, "ticker unavailable, falling back to entry price",
					slog.String("symbol", pos.Symbol),
					slog.Any("error", err),
				)
				marks[i] = pos.EntryPrice
				return nil
			}
			marks[i] = t.MarkPrice
			return nil
		})
	}

	snaps := make([]domain.PositionSnapshot, len(positions))
	sg, sgctx := errgroup.WithContext(ctx)
	sg.SetLimit(snapshotFanout)
	for i, pos := range positions {
		sg.Go(func() error {
			snaps[i] = s.Snapshot(sgctx, creds, pos)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := sg.Wait(); err != nil {
		return nil, err
	}

	details := make([]domain.PositionDetail, len(positions))
	for i, pos := range positions {
		details[i] = FormatDetail(pos, snaps[i], marks[i], makerRate)
	}
	return details, nil
}
