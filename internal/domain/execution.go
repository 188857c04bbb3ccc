package domain

import "time"

// ExecutionEvent is a single fill from the execution history feed, flattened
// from the exchange's nested event envelope. Quantity is signed: buys are
// positive, sells negative. USDValue is the exchange-reported notional and
// may be zero when the venue did not report it.
type ExecutionEvent struct {
	UID       string
	Timestamp int64 // epoch milliseconds
	Symbol    string
	Quantity  float64
	Price     float64
	USDValue  float64
	Fee       float64
}

// Time returns the event timestamp as a UTC time.Time.
func (e ExecutionEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}
