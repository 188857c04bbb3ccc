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
	executionsPath = "/api/history/v3/executions"

	// executionsMaxPages is a hard cap on continuation-token pagination.
	executionsMaxPages = 50
)

// ExecutionEvents fetches execution (fill) events with timestamps in
// [since, before) (epoch milliseconds), oldest first. The endpoint pages by
// continuation token. Elements that do not contain a usable fill payload are
// skipped.
func (c *Client) ExecutionEvents(ctx context.Context, creds domain.Credentials, since, before int64) ([]domain.ExecutionEvent, error) {
	var all []domain.ExecutionEvent
	token := ""

	for page := 0; page < executionsMaxPages; page++ {
		query := url.Values{}
		query.Set("since", strconv.FormatInt(since, 10))
		query.Set("before", strconv.FormatInt(before, 10))
		query.Set("sort", "asc")
		if token != "" {
			query.Set("continuation_token", token)
		}

		var resp executionsResponse
		if err := c.get(ctx, creds, executionsPath, query, &resp); err != nil {
			return nil, fmt.Errorf("kraken: executions: %w", err)
		}

		if len(resp.Elements) == 0 {
			break
		}

		for _, el := range resp.Elements {
			ev, ok := el.toDomain()
			if !ok {
				continue
			}
			all = append(all, ev)
		}

		token = resp.nextToken()
		if token == "" {
			break
		}
	}

	if token != "" {
		c.logger.WarnContext(ctx, "execution pagination hit page cap",
			slog.Int("pages", executionsMaxPages),
		)
	}

	return all, nil
}
