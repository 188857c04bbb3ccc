package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexvgr/krakendash/internal/domain"
)

// AuthService checks API credentials against the venue.
type AuthService struct {
	api    ExchangeAPI
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthService wires an AuthService over api.
func NewAuthService(api ExchangeAPI, logger *slog.Logger) *AuthService {
	return &AuthService{
		api:    api,
		logger: logger.With(slog.String("component", "auth")),
		now:    time.Now,
	}
}

// Validate probes the account log with a single-row request to confirm the
// credentials are accepted. It returns (false, nil) for rejected keys and an
// error only when the venue could not be reached.
func (s *AuthService) Validate(ctx context.Context, creds domain.Credentials) (bool, error) {
	if !creds.Valid() {
		return false, nil
	}

	nowMS := s.now().UnixMilli()
	_, err := s.api.AccountLogs(ctx, creds, nowMS-dayMS, nowMS, 1)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrUnauthorized):
		s.logger.InfoContext(ctx, "credentials rejected",
			slog.String("key", creds.String()),
		)
		return false, nil
	default:
		return false, fmt.Errorf("auth: credential probe: %w", err)
	}
}
