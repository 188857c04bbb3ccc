package kraken

import (
	"context"
	"fmt"
	"net/url"

	"github.com/alexvgr/krakendash/internal/domain"
)

const (
	tickersPath      = "/derivatives/api/v3/tickers"
	feeSchedulePath  = "/derivatives/api/v3/feeschedules"
	feeVolumesPath   = "/derivatives/api/v3/feeschedules/volumes"
	fundingRatesPath = "/derivatives/api/v4/historicalfundingrates"
)

// Ticker returns the current ticker for a single symbol. This is a public
// endpoint and needs no credentials.
func (c *Client) Ticker(ctx context.Context, symbol string) (domain.Ticker, error) {
	path := tickersPath + "/" + url.PathEscape(symbol)

	var resp tickerResponse
	if err := c.get(ctx, domain.Credentials{}, path, nil, &resp); err != nil {
		return domain.Ticker{}, fmt.Errorf("kraken: ticker %s: %w", symbol, err)
	}
	return resp.Ticker.toDomain(), nil
}

// FundingRates returns the historical funding rates for a symbol, oldest
// first. This is a public endpoint and needs no credentials.
func (c *Client) FundingRates(ctx context.Context, symbol string) ([]domain.FundingRate, error) {
	query := url.Values{}
	query.Set("symbol", symbol)

	var resp fundingRatesResponse
	if err := c.get(ctx, domain.Credentials{}, fundingRatesPath, query, &resp); err != nil {
		return nil, fmt.Errorf("kraken: funding rates %s: %w", symbol, err)
	}

	rates := make([]domain.FundingRate, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		if rate, ok := r.toDomain(); ok {
			rates = append(rates, rate)
		}
	}
	return rates, nil
}

// FeeInfo returns the caller's 30-day rolling volume and the maker/taker
// rates of the fee tier that volume lands in. The schedule endpoint reports
// rates as percentages; they are converted to fractions here so 0.01% maker
// comes back as 0.0001.
func (c *Client) FeeInfo(ctx context.Context, creds domain.Credentials) (domain.FeeInfo, error) {
	var vols feeVolumesResponse
	if err := c.get(ctx, creds, feeVolumesPath, nil, &vols); err != nil {
		return domain.FeeInfo{}, fmt.Errorf("kraken: fee volumes: %w", err)
	}

	var volume30d float64
	for _, v := range vols.Volumes {
		volume30d += v
	}

	var schedules feeScheduleResponse
	if err := c.get(ctx, creds, feeSchedulePath, nil, &schedules); err != nil {
		return domain.FeeInfo{}, fmt.Errorf("kraken: fee schedules: %w", err)
	}

	info := domain.FeeInfo{Volume30d: volume30d}

	// Pick the highest tier whose volume floor the caller has reached.
	for _, schedule := range schedules.FeeSchedules {
		best := -1.0
		for _, tier := range schedule.Tiers {
			if volume30d >= tier.USDVolumeFloor && tier.USDVolumeFloor >= best {
				best = tier.USDVolumeFloor
				info.MakerFee = tier.MakerFee / 100
				info.TakerFee = tier.TakerFee / 100
			}
		}
		if best >= 0 {
			break
		}
	}

	return info, nil
}
