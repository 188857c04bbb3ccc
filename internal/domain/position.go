package domain

import "time"

// Position is an open futures position as reported by the exchange. Size is
// signed: positive for longs, negative for shorts. Positions are ephemeral;
// they are re-read from the exchange on every query and never persisted.
type Position struct {
	Symbol     string  `json:"symbol"`
	Size       float64 `json:"size"`
	EntryPrice float64 `json:"avgPrice"`
	Side       string  `json:"side"`
}

// Accumulated holds the funding and fee totals attributed to a position over
// its (possibly capped) lifetime window. Funding is signed: negative means a
// net cost to the holder, positive a net income. Fees are always a cost and
// therefore accumulated as absolute values.
type Accumulated struct {
	Funding float64
	Fees    float64
	Capped  bool
}

// PositionSnapshot is the per-position result of the lifecycle resolver plus
// accumulation engine. A failure while computing one position is carried in
// Err with zeroed numeric fields so one bad position never aborts a batch.
type PositionSnapshot struct {
	Symbol             string     `json:"symbol"`
	AccumulatedFunding float64    `json:"accumulatedFunding"`
	AccumulatedFees    float64    `json:"accumulatedFees"`
	DataCapped         bool       `json:"dataIsCapped"`
	OpenedAt           *time.Time `json:"openedDate"`
	Err                string     `json:"error,omitempty"`
}

// PositionDetail is the display-ready view of a position: current pricing,
// unrealized and net P&L, and the accumulated figures from the snapshot. All
// monetary fields are rounded to two decimals at this boundary.
type PositionDetail struct {
	Symbol             string     `json:"symbol"`
	Size               float64    `json:"size"`
	AvgPrice           float64    `json:"avgPrice"`
	CurrentPrice       float64    `json:"currentPrice"`
	Side               string     `json:"side"`
	UnrealizedPnL      float64    `json:"unrealizedPnl"`
	AccumulatedFunding float64    `json:"accumulatedFunding"`
	AccumulatedFees    float64    `json:"accumulatedFees"`
	EstimatedCloseFee  float64    `json:"estimatedCloseFee"`
	NetPnL             float64    `json:"netUnrealizedPnl"`
	OpenedAt           *time.Time `json:"openedDate"`
	DataCapped         bool       `json:"dataIsCapped"`
	Err                string     `json:"error,omitempty"`
}
