package domain

import "time"

// DailyBucket aggregates one UTC calendar day of trading activity. Date is
// the day in "2006-01-02" form. Funding is the magnitude of funding charges
// realized that day; Volume is estimated USD notional (see TradeRow.Estimated
// for how much of it is approximate).
type DailyBucket struct {
	Date       string  `json:"date"`
	Fees       float64 `json:"fees"`
	Funding    float64 `json:"funding"`
	Volume     float64 `json:"volume"`
	TradeCount int     `json:"trade_count"`
}

// TradeRow is one fee-bearing trade extracted from the account log, enriched
// with quantity and notional from the matched execution when available.
// When Estimated is true the USDVolume was back-derived from the fee at
// BasisFeeRate and is an approximation, not an exchange-reported figure.
type TradeRow struct {
	Date         time.Time `json:"date"`
	Contract     string    `json:"contract"`
	Asset        string    `json:"asset"`
	Fee          float64   `json:"fee"`
	Price        float64   `json:"trade_price"`
	Quantity     float64   `json:"quantity"`
	USDVolume    float64   `json:"usd_volume"`
	Estimated    bool      `json:"estimated"`
	BasisFeeRate float64   `json:"basis_fee_rate,omitempty"`
	ExecutionID  string    `json:"execution_id,omitempty"`
}

// Summary totals a daily series. TotalCost is fees plus funding charges.
type Summary struct {
	TotalFees       float64 `json:"total_fees"`
	TotalFunding    float64 `json:"total_funding"`
	TotalVolume     float64 `json:"total_volume"`
	TotalTrades     int     `json:"total_trades"`
	TotalCost       float64 `json:"total_cost"`
	AvgDailyFees    float64 `json:"avg_daily_fees"`
	AvgDailyFunding float64 `json:"avg_daily_funding"`
}

// DashboardData is one complete, self-consistent refresh of the chart data:
// a gapless daily series, the trades behind it, and summary totals. It is
// derived purely from the raw log and execution streams for its window and
// recomputed on every refresh.
type DashboardData struct {
	Daily       []DailyBucket `json:"daily_data"`
	Trades      []TradeRow    `json:"trades"`
	Summary     Summary       `json:"summary"`
	PeriodDays  int           `json:"period_days"`
	LastUpdated int64         `json:"last_updated"`
}

// Ticker is the subset of the exchange ticker used by the dashboard.
type Ticker struct {
	Symbol      string  `json:"symbol"`
	MarkPrice   float64 `json:"markPrice"`
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	Last        float64 `json:"last"`
	FundingRate float64 `json:"fundingRate"`
	Volume24h   float64 `json:"vol24h"`
}

// FeeInfo is the caller's current fee tier: 30-day rolling USD volume and
// the maker/taker rates as fractions (0.0001 == 0.01%).
type FeeInfo struct {
	Volume30d float64 `json:"volume_30d"`
	MakerFee  float64 `json:"maker_fee"`
	TakerFee  float64 `json:"taker_fee"`
}
