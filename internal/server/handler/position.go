package handler

import (
	"log/slog"
	"net/http"

	"github.com/alexvgr/krakendash/internal/service"
)

// PositionHandler serves open positions and their detailed P&L views.
type PositionHandler struct {
	positions *service.PositionService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positions *service.PositionService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		logger:    logHandler(logger, "positions"),
	}
}

// List returns the account's open positions as reported by the exchange:
// symbol, signed size, entry price, and side. No history is walked here;
// clients wanting accumulated costs use the detailed endpoint.
// GET /api/positions
func (h *PositionHandler) List(w http.ResponseWriter, r *http.Request) {
	creds, ok := requireCredentials(w, r)
	if !ok {
		return
	}

	positions, err := h.positions.Positions(r.Context(), creds)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list positions failed", slog.Any("error", err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

// ListDetailed returns open positions enriched with marks and profit
// estimates.
// GET /api/positions/detailed
func (h *PositionHandler) ListDetailed(w http.ResponseWriter, r *http.Request) {
	creds, ok := requireCredentials(w, r)
	if !ok {
		return
	}

	details, err := h.positions.DetailedPositions(r.Context(), creds)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "detailed positions failed", slog.Any("error", err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": details})
}
