package kraken

import (
	"math"
	"strings"
	"time"

	"github.com/alexvgr/krakendash/internal/domain"
)

// accountLogResponse is the envelope of /api/history/v3/account-log.
type accountLogResponse struct {
	Logs []accountLogRow `json:"logs"`
}

// accountLogRow mirrors one raw account log entry. Date is an ISO-8601
// string; fee and funding fields are omitted on entry types where they do
// not apply.
type accountLogRow struct {
	Date            string   `json:"date"`
	Info            string   `json:"info"`
	Contract        string   `json:"contract"`
	Fee             *float64 `json:"fee"`
	RealizedFunding *float64 `json:"realized_funding"`
	FundingRate     *float64 `json:"funding_rate"`
	TradePrice      *float64 `json:"trade_price"`
	Execution       string   `json:"execution"`
}

// logDateLayouts are the timestamp formats the account log has been observed
// to use, tried in order.
var logDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
}

func parseLogDate(s string) (time.Time, bool) {
	for _, layout := range logDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (r accountLogRow) toDomain() (domain.AccountLogEntry, bool) {
	date, ok := parseLogDate(r.Date)
	if !ok {
		return domain.AccountLogEntry{}, false
	}

	entry := domain.AccountLogEntry{
		Date:            date,
		Info:            r.Info,
		Contract:        r.Contract,
		Fee:             r.Fee,
		RealizedFunding: r.RealizedFunding,
		FundingRate:     r.FundingRate,
		ExecutionID:     r.Execution,
	}
	if r.TradePrice != nil {
		entry.TradePrice = *r.TradePrice
	}
	return entry, true
}

// executionsResponse is the envelope of /api/history/v3/executions. The
// server has used both field names for the continuation token.
type executionsResponse struct {
	Elements           []executionElement `json:"elements"`
	ContinuationToken  string             `json:"continuationToken"`
	ContinuationToken2 string             `json:"continuation_token"`
}

func (r executionsResponse) nextToken() string {
	if r.ContinuationToken != "" {
		return r.ContinuationToken
	}
	return r.ContinuationToken2
}

// executionElement is one element of the execution event stream. The fill
// itself sits behind event.execution, where the payload has been seen both
// nested one level deeper and inlined.
type executionElement struct {
	UID       string `json:"uid"`
	Timestamp int64  `json:"timestamp"`
	Event     struct {
		Execution *executionWrapper `json:"execution"`
	} `json:"event"`
}

// executionWrapper accepts both observed payload shapes: the fill detail
// either nested under "execution" or inlined in the wrapper itself.
type executionWrapper struct {
	executionDetail
	Execution *executionDetail `json:"execution"`
}

func (w executionWrapper) detail() executionDetail {
	if w.Execution != nil {
		return *w.Execution
	}
	return w.executionDetail
}

// executionDetail is the flattened fill payload.
type executionDetail struct {
	UID       string  `json:"uid"`
	Timestamp int64   `json:"timestamp"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	USDValue  float64 `json:"usdValue"`
	Tradeable string  `json:"tradeable"`
	Symbol    string  `json:"symbol"`
	Order     struct {
		Tradeable string `json:"tradeable"`
		Direction string `json:"direction"`
	} `json:"order"`
	OrderData struct {
		Fee float64 `json:"fee"`
	} `json:"orderData"`
}

// toDomain flattens the envelope into a domain.ExecutionEvent. The symbol is
// resolved through the order's tradeable first, then the detail's own
// fields; sells carry a negative quantity.
func (e executionElement) toDomain() (domain.ExecutionEvent, bool) {
	if e.Event.Execution == nil {
		return domain.ExecutionEvent{}, false
	}
	d := e.Event.Execution.detail()

	symbol := d.Order.Tradeable
	if symbol == "" {
		symbol = d.Tradeable
	}
	if symbol == "" {
		symbol = d.Symbol
	}
	if symbol == "" {
		return domain.ExecutionEvent{}, false
	}

	uid := d.UID
	if uid == "" {
		uid = e.UID
	}
	ts := d.Timestamp
	if ts == 0 {
		ts = e.Timestamp
	}

	qty := d.Quantity
	if strings.EqualFold(d.Order.Direction, "sell") {
		qty = -qty
	}

	return domain.ExecutionEvent{
		UID:       uid,
		Timestamp: ts,
		Symbol:    strings.ToUpper(symbol),
		Quantity:  qty,
		Price:     d.Price,
		USDValue:  d.USDValue,
		Fee:       math.Abs(d.OrderData.Fee),
	}, true
}

// openPositionsResponse is the envelope of /derivatives/api/v3/openpositions.
type openPositionsResponse struct {
	Result        string            `json:"result"`
	OpenPositions []openPositionRow `json:"openPositions"`
}

type openPositionRow struct {
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"`
	Size   float64 `json:"size"`
	Price  float64 `json:"price"`
}

// toDomain normalizes the position so Size is signed regardless of whether
// the exchange reported a signed size or a positive size plus side.
func (r openPositionRow) toDomain() domain.Position {
	size := r.Size
	side := strings.ToLower(r.Side)
	if side == "short" && size > 0 {
		size = -size
	}
	if side == "" {
		if size < 0 {
			side = "short"
		} else {
			side = "long"
		}
	}
	return domain.Position{
		Symbol:     strings.ToUpper(r.Symbol),
		Size:       size,
		EntryPrice: r.Price,
		Side:       side,
	}
}

// tickerResponse is the envelope of /derivatives/api/v3/tickers/{symbol}.
type tickerResponse struct {
	Result string    `json:"result"`
	Ticker tickerRow `json:"ticker"`
}

type tickerRow struct {
	Symbol      string  `json:"symbol"`
	MarkPrice   float64 `json:"markPrice"`
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	Last        float64 `json:"last"`
	FundingRate float64 `json:"fundingRate"`
	Vol24h      float64 `json:"vol24h"`
}

func (r tickerRow) toDomain() domain.Ticker {
	return domain.Ticker{
		Symbol:      strings.ToUpper(r.Symbol),
		MarkPrice:   r.MarkPrice,
		Bid:         r.Bid,
		Ask:         r.Ask,
		Last:        r.Last,
		FundingRate: r.FundingRate,
		Volume24h:   r.Vol24h,
	}
}

// fundingRatesResponse is the envelope of
// /derivatives/api/v4/historicalfundingrates.
type fundingRatesResponse struct {
	Result string           `json:"result"`
	Rates  []fundingRateRow `json:"rates"`
}

type fundingRateRow struct {
	Timestamp           string  `json:"timestamp"`
	FundingRate         float64 `json:"fundingRate"`
	RelativeFundingRate float64 `json:"relativeFundingRate"`
}

// toDomain picks the relative rate when present; older history rows only
// carry the absolute per-contract rate.
func (r fundingRateRow) toDomain() (domain.FundingRate, bool) {
	ts, ok := parseLogDate(r.Timestamp)
	if !ok {
		return domain.FundingRate{}, false
	}
	rate := r.RelativeFundingRate
	if rate == 0 {
		rate = r.FundingRate
	}
	return domain.FundingRate{Timestamp: ts, Rate: rate}, true
}

// feeScheduleResponse is the envelope of /derivatives/api/v3/feeschedules.
type feeScheduleResponse struct {
	Result       string        `json:"result"`
	FeeSchedules []feeSchedule `json:"feeSchedules"`
}

type feeSchedule struct {
	UID   string    `json:"uid"`
	Name  string    `json:"name"`
	Tiers []feeTier `json:"tiers"`
}

type feeTier struct {
	MakerFee       float64 `json:"makerFee"` // percent, e.g. 0.0200 == 0.02%
	TakerFee       float64 `json:"takerFee"`
	USDVolumeFloor float64 `json:"usdVolume"`
}

// feeVolumesResponse is the envelope of /derivatives/api/v3/feeschedules/volumes.
type feeVolumesResponse struct {
	Result  string             `json:"result"`
	Volumes map[string]float64 `json:"volumesByFeeSchedule"`
}
