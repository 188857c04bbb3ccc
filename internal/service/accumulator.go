package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/alexvgr/krakendash/internal/domain"
)

// accumulatorMaxDays caps how far back the account log is read when
// accumulating funding and fees for a single position. Positions older than
// this are reported with the Capped flag set.
const accumulatorMaxDays = 365

// Accumulator sums realized funding and trading fees for an open position
// from the account log.
type Accumulator struct {
	api    ExchangeAPI
	logger *slog.Logger
}

// NewAccumulator creates an Accumulator on top of api.
func NewAccumulator(api ExchangeAPI, logger *slog.Logger) *Accumulator {
	return &Accumulator{
		api:    api,
		logger: logger.With(slog.String("component", "accumulator")),
	}
}

// Accumulate returns the signed funding total and absolute fee total for
// symbol since openMS, reading at most a year of account log. Funding keeps
// its sign: a negative total means the position has paid more funding than it
// received. Fees are always reported as a positive cost.
//
// Rows a position paid no fee on are companion rows to a fee-bearing entry
// for the same execution, so only rows with fee > 0 count toward the fee
// total.
func (a *Accumulator) Accumulate(ctx context.Context, creds domain.Credentials, symbol string, openMS, nowMS int64) (domain.Accumulated, error) {
	since := openMS
	capped := false
	if floor := nowMS - accumulatorMaxDays*dayMS; since < floor {
		since = floor
		capped = true
	}

	entries, err := a.api.AccountLogs(ctx, creds, since, nowMS, 0)
	if err != nil {
		return domain.Accumulated{}, fmt.Errorf("accumulator: fetch account log: %w", err)
	}

	var acc domain.Accumulated
	acc.Capped = capped

	for _, e := range entries {
		if !e.MatchesContract(symbol) {
			continue
		}
		if ms := e.Date.UnixMilli(); ms < openMS {
			continue
		}
		switch {
		case e.IsFunding():
			acc.Funding += *e.RealizedFunding
		case e.IsTrade() && e.Fee != nil && *e.Fee > 0:
			acc.Fees += math.Abs(*e.Fee)
		}
	}

	a.logger.DebugContext(ctx, "accumulated position costs",
		slog.String("symbol", symbol),
		slog.Float64("funding", acc.Funding),
		slog.Float64("fees", acc.Fees),
		slog.Bool("capped", capped),
	)
	return acc, nil
}
