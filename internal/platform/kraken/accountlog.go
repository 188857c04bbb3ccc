package kraken

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/alexvgr/krakendash/internal/domain"
)

const (
	accountLogPath = "/api/history/v3/account-log"

	// accountLogPageLimit is the server-side maximum page size.
	accountLogPageLimit = 500

	// accountLogMaxPages bounds timestamp-cursor pagination so a server that
	// stops making progress cannot loop us forever.
	accountLogMaxPages = 10
)

// AccountLogs fetches account log entries with timestamps in [since, before)
// (epoch milliseconds), newest first. The endpoint pages by timestamp
// cursor: each page's upper bound moves to the oldest returned entry's
// timestamp minus one millisecond.
//
// limit caps the page size; limit=1 is the credential-probe mode and never
// paginates. limit<=0 uses the server maximum.
func (c *Client) AccountLogs(ctx context.Context, creds domain.Credentials, since, before int64, limit int) ([]domain.AccountLogEntry, error) {
	if limit <= 0 || limit > accountLogPageLimit {
		limit = accountLogPageLimit
	}

	var all []domain.AccountLogEntry
	currentBefore := before

	for page := 0; page < accountLogMaxPages; page++ {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(limit))
		query.Set("since", strconv.FormatInt(since, 10))
		query.Set("before", strconv.FormatInt(currentBefore, 10))

		var resp accountLogResponse
		if err := c.get(ctx, creds, accountLogPath, query, &resp); err != nil {
			return nil, fmt.Errorf("kraken: account logs: %w", err)
		}

		if len(resp.Logs) == 0 {
			break
		}

		for _, row := range resp.Logs {
			entry, ok := row.toDomain()
			if !ok {
				c.logger.WarnContext(ctx, "skipping log entry with unparseable date",
					slog.String("date", row.Date),
				)
				continue
			}
			all = append(all, entry)
		}

		// A short page means we have reached the start of the window.
		if len(resp.Logs) < limit {
			break
		}

		// Credential-probe mode: one entry is enough.
		if limit == 1 {
			break
		}

		// Move the cursor to just before the oldest entry on this page.
		// Logs are returned newest to oldest.
		oldest, ok := parseLogDate(resp.Logs[len(resp.Logs)-1].Date)
		if !ok {
			c.logger.WarnContext(ctx, "oldest log entry has no usable date, stopping pagination")
			break
		}
		newBefore := oldest.UnixMilli() - 1

		if newBefore >= currentBefore {
			c.logger.WarnContext(ctx, "account log pagination made no progress",
				slog.Int64("before", currentBefore),
			)
			return all, fmt.Errorf("kraken: account logs: %w", domain.ErrNoProgress)
		}
		currentBefore = newBefore
	}

	return all, nil
}
