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
	// resolverLookbackDays bounds the backward search for a position's true
	// open time.
	resolverLookbackDays = 730

	// resolverChunkDays is the window size of each backward search step.
	resolverChunkDays = 30

	// positionEpsilon is the tolerance under which a reconstructed net
	// position counts as flat.
	positionEpsilon = 1e-4

	// resolverFallbackDays is the conservative default open-time offset when
	// no executions are found at all.
	resolverFallbackDays = 30
)

// OpenTimeResolver reconstructs when a currently open position was opened by
// walking execution history backward until the net position reaches zero.
//
// The reconstruction is heuristic when trades repeatedly part-open and
// part-close a position: if several fills could each bring the running net
// within epsilon of zero, the most recent crossing wins and is not
// re-validated against a longer window. This matches the live behavior the
// dashboard has always had and is deliberately left as is.
type OpenTimeResolver struct {
	api    ExchangeAPI
	logger *slog.Logger
}

// NewOpenTimeResolver creates an OpenTimeResolver on top of api.
func NewOpenTimeResolver(api ExchangeAPI, logger *slog.Logger) *OpenTimeResolver {
	return &OpenTimeResolver{
		api:    api,
		logger: logger.With(slog.String("component", "resolver")),
	}
}

// FindOpenTime returns the epoch-ms timestamp at which the position in
// symbol was last flat before reaching absSize. It walks fixed 30-day chunks
// backward from nowMS, newest fill first, subtracting each fill's signed
// quantity from the running net position.
//
// Fallbacks, in order: the oldest matched fill when no zero crossing is
// found inside the lookback; nowMS minus 30 days when the symbol has no
// fills at all. Given a fixed history the result is deterministic.
func (r *OpenTimeResolver) FindOpenTime(ctx context.Context, creds domain.Credentials, symbol string, absSize float64, nowMS int64) (int64, error) {
	symbolUpper := strings.ToUpper(symbol)
	net := absSize
	oldestSeen := int64(0)

	endChunk := nowMS
	for chunk := 0; chunk < resolverLookbackDays/resolverChunkDays; chunk++ {
		startChunk := endChunk - resolverChunkDays*dayMS

		events, err := r.api.ExecutionEvents(ctx, creds, startChunk, endChunk)
		if err != nil {
			return 0, fmt.Errorf("resolver: fetch chunk %d: %w", chunk, err)
		}

		matched := filterSymbolFills(events, symbolUpper)
		if len(matched) > 0 {
			// Newest first: we are walking backward in time.
			sort.Slice(matched, func(i, j int) bool {
				if matched[i].Timestamp != matched[j].Timestamp {
					return matched[i].Timestamp > matched[j].Timestamp
				}
				return matched[i].UID > matched[j].UID
			})

			for _, ev := range matched {
				net -= ev.Quantity
				if math.Abs(net) < positionEpsilon {
					r.logger.DebugContext(ctx, "found position open",
						slog.String("symbol", symbolUpper),
						slog.Time("opened_at", ev.Time()),
					)
					return ev.Timestamp, nil
				}
			}

			last := matched[len(matched)-1]
			if oldestSeen == 0 || last.Timestamp < oldestSeen {
				oldestSeen = last.Timestamp
			}
		}

		endChunk = startChunk
	}

	if oldestSeen != 0 {
		r.logger.WarnContext(ctx, "no zero crossing inside lookback, using oldest fill",
			slog.String("symbol", symbolUpper),
			slog.Time("oldest", time.UnixMilli(oldestSeen).UTC()),
		)
		return oldestSeen, nil
	}

	r.logger.WarnContext(ctx, "no fills found, defaulting open time",
		slog.String("symbol", symbolUpper),
	)
	return nowMS - resolverFallbackDays*dayMS, nil
}

// filterSymbolFills keeps events matching symbol (already uppercased) with a
// non-zero quantity.
func filterSymbolFills(events []domain.ExecutionEvent, symbolUpper string) []domain.ExecutionEvent {
	var out []domain.ExecutionEvent
	for _, ev := range events {
		if ev.Quantity == 0 {
			continue
		}
		if strings.ToUpper(ev.Symbol) != symbolUpper {
			continue
		}
		out = append(out, ev)
	}
	return out
}
