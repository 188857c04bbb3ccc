package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexvgr/krakendash/internal/domain"
	"github.com/alexvgr/krakendash/internal/service"
)

// FundingHandler serves public funding rate history and projections.
type FundingHandler struct {
	funding *service.FundingService
	logger  *slog.Logger
}

// NewFundingHandler creates a FundingHandler.
func NewFundingHandler(funding *service.FundingService, logger *slog.Logger) *FundingHandler {
	return &FundingHandler{
		funding: funding,
		logger:  logHandler(logger, "funding"),
	}
}

// GetHistory returns the contract's current funding rate, recent samples,
// trailing statistics, and projections.
// GET /api/funding/history/{symbol}
func (h *FundingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	hist, err := h.funding.History(r.Context(), symbol)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "funding history failed",
			slog.String("symbol", symbol),
			slog.Any("error", err),
		)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// Predict projects accumulated funding rates for the contract.
// GET /api/funding/predict/{symbol}?days=N
func (h *FundingHandler) Predict(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}
	days, err := parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid days parameter")
		return
	}

	res, err := h.funding.Predict(r.Context(), symbol, days)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			writeError(w, http.StatusBadRequest, "insufficient historical data for prediction")
			return
		}
		h.logger.ErrorContext(r.Context(), "funding prediction failed",
			slog.String("symbol", symbol),
			slog.Any("error", err),
		)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
