package service

import (
	"math"
	"strings"

	"github.com/alexvgr/krakendash/internal/domain"
)

// DefaultMakerFeeRate is the close-fee rate assumed when the account's fee
// schedule could not be fetched.
const DefaultMakerFeeRate = 0.0001

// UnrealizedPnL returns the mark-to-market profit for a position. Long
// positions gain as the price rises, short positions as it falls. A
// non-positive current or entry price, or a zero size, yields 0.
func UnrealizedPnL(side string, size, entryPrice, currentPrice float64) float64 {
	if currentPrice <= 0 || entryPrice <= 0 || size == 0 {
		return 0
	}
	abs := math.Abs(size)
	if strings.EqualFold(side, "short") || size < 0 {
		return (entryPrice - currentPrice) * abs
	}
	return (currentPrice - entryPrice) * abs
}

// EstimatedCloseFee returns the fee a maker order closing the full position
// at currentPrice would pay.
func EstimatedCloseFee(size, currentPrice, makerRate float64) float64 {
	if currentPrice <= 0 || size == 0 {
		return 0
	}
	if makerRate <= 0 {
		makerRate = DefaultMakerFeeRate
	}
	return math.Abs(size) * currentPrice * makerRate
}

// FormatDetail assembles the display-ready detail row for an open position.
// Net profit nets accumulated funding and fees plus the estimated close fee
// against the unrealized gain. All monetary fields are rounded to cents at
// this boundary and nowhere earlier, so intermediate sums keep full
// precision.
func FormatDetail(pos domain.Position, snap domain.PositionSnapshot, currentPrice, makerRate float64) domain.PositionDetail {
	unrealized := UnrealizedPnL(pos.Side, pos.Size, pos.EntryPrice, currentPrice)
	closeFee := EstimatedCloseFee(pos.Size, currentPrice, makerRate)
	net := unrealized + snap.AccumulatedFunding - snap.AccumulatedFees - closeFee

	return domain.PositionDetail{
		Symbol:             pos.Symbol,
		Size:               pos.Size,
		AvgPrice:           pos.EntryPrice,
		CurrentPrice:       currentPrice,
		Side:               pos.Side,
		UnrealizedPnL:      round2(unrealized),
		AccumulatedFunding: round2(snap.AccumulatedFunding),
		AccumulatedFees:    round2(snap.AccumulatedFees),
		EstimatedCloseFee:  round2(closeFee),
		NetPnL:             round2(net),
		OpenedAt:           snap.OpenedAt,
		DataCapped:         snap.DataCapped,
		Err:                snap.Err,
	}
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
