package domain

import (
	"strings"
	"time"
)

// Account log entry kinds as reported by the exchange's "info" field.
const (
	EntryFuturesTrade      = "futures trade"
	EntryFundingRateChange = "funding rate change"
)

// AccountLogEntry is one immutable row from the account history log. Fee,
// RealizedFunding and FundingRate are pointers because the exchange omits
// them on entry types where they do not apply; absence and zero are distinct.
type AccountLogEntry struct {
	Date            time.Time
	Info            string
	Contract        string
	Fee             *float64
	RealizedFunding *float64
	FundingRate     *float64
	TradePrice      float64
	ExecutionID     string
}

// IsTrade reports whether the entry records a futures trade.
func (e AccountLogEntry) IsTrade() bool {
	return e.Info == EntryFuturesTrade
}

// IsFunding reports whether the entry records a funding rate change with a
// realized funding amount attached.
func (e AccountLogEntry) IsFunding() bool {
	return e.Info == EntryFundingRateChange && e.RealizedFunding != nil
}

// MatchesContract reports whether the entry belongs to the given symbol.
// Contract strings vary in prefix and case ("PF_XBTUSD" vs "pf_xbtusd"), so
// the match is a case-insensitive containment check, mirroring how the
// exchange tags multi-leg contracts.
func (e AccountLogEntry) MatchesContract(symbol string) bool {
	if symbol == "" {
		return false
	}
	return strings.Contains(strings.ToUpper(e.Contract), strings.ToUpper(symbol))
}
