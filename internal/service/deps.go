// Package service holds the dashboard's domain logic: position lifecycle
// reconstruction, funding/fee accumulation, daily aggregation, and P&L
// formatting. Services talk to the exchange through the ExchangeAPI
// interface so tests can substitute a stub transport.
package service

import (
	"context"

	"github.com/alexvgr/krakendash/internal/domain"
)

// ExchangeAPI is the read-only upstream surface the services consume.
// Timestamps are epoch milliseconds.
type ExchangeAPI interface {
	AccountLogs(ctx context.Context, creds domain.Credentials, since, before int64, limit int) ([]domain.AccountLogEntry, error)
	ExecutionEvents(ctx context.Context, creds domain.Credentials, since, before int64) ([]domain.ExecutionEvent, error)
	OpenPositions(ctx context.Context, creds domain.Credentials) ([]domain.Position, error)
	Ticker(ctx context.Context, symbol string) (domain.Ticker, error)
	FundingRates(ctx context.Context, symbol string) ([]domain.FundingRate, error)
	FeeInfo(ctx context.Context, creds domain.Credentials) (domain.FeeInfo, error)
}

const dayMS = 24 * 60 * 60 * 1000
