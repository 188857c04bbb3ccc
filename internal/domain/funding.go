package domain

import "time"

// FundingRate is one historical funding rate observation for a contract.
// Rate is the relative funding rate per funding period.
type FundingRate struct {
	Timestamp time.Time `json:"timestamp"`
	Rate      float64   `json:"rate"`
}

// FundingRatePoint is a display-ready rate sample.
type FundingRatePoint struct {
	Time string  `json:"time"`
	Rate float64 `json:"rate"`
}

// CurrentFunding is the contract's live funding rate together with a
// human-readable countdown to the next funding settlement.
type CurrentFunding struct {
	Rate            float64 `json:"rate"`
	NextFundingTime string  `json:"next_funding_time"`
}

// FundingStats accumulates absolute funding rates over trailing windows.
// The 365-day figure is extrapolated from the 30-day window.
type FundingStats struct {
	Accumulated7d   float64 `json:"accumulated7d"`
	Accumulated30d  float64 `json:"accumulated30d"`
	Accumulated365d float64 `json:"accumulated365d"`
}

// FundingPrediction projects accumulated absolute funding rates forward.
type FundingPrediction struct {
	Predicted7d   float64 `json:"predicted7d"`
	Predicted30d  float64 `json:"predicted30d"`
	Predicted365d float64 `json:"predicted365d"`
}

// FundingHistory is the full funding view for one contract: the current
// rate, the recent rate samples, trailing statistics, and projections.
// Current is nil when the live ticker is unavailable.
type FundingHistory struct {
	Current     *CurrentFunding    `json:"current"`
	History     []FundingRatePoint `json:"history"`
	Statistics  FundingStats       `json:"statistics"`
	Predictions FundingPrediction  `json:"predictions"`
}
