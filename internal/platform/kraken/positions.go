package kraken

import (
	"context"
	"fmt"

	"github.com/alexvgr/krakendash/internal/domain"
)

const openPositionsPath = "/derivatives/api/v3/openpositions"

// OpenPositions returns the caller's currently open positions with signed
// sizes (positive long, negative short).
func (c *Client) OpenPositions(ctx context.Context, creds domain.Credentials) ([]domain.Position, error) {
	var resp openPositionsResponse
	if err := c.get(ctx, creds, openPositionsPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("kraken: open positions: %w", err)
	}

	positions := make([]domain.Position, 0, len(resp.OpenPositions))
	for _, row := range resp.OpenPositions {
		positions = append(positions, row.toDomain())
	}
	return positions, nil
}
