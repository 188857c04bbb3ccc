package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alexvgr/krakendash/internal/service"
)

// maxBatchTickers bounds how many symbols a single batch request may ask
// for.
const maxBatchTickers = 50

// MarketHandler serves public market data and the account fee schedule.
type MarketHandler struct {
	market *service.MarketService
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(market *service.MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		market: market,
		logger: logHandler(logger, "market"),
	}
}

// GetTicker returns the ticker for one symbol.
// GET /api/market/ticker/{symbol}
func (h *MarketHandler) GetTicker(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	t, err := h.market.Ticker(r.Context(), symbol)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type tickersRequest struct {
	Symbols []string `json:"symbols"`
}

// BatchTickers resolves several tickers in one round trip. Unknown symbols
// are omitted from the response.
// POST /api/market/tickers
func (h *MarketHandler) BatchTickers(w http.ResponseWriter, r *http.Request) {
	var req tickersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Symbols) == 0 {
		writeError(w, http.StatusBadRequest, "no symbols requested")
		return
	}
	if len(req.Symbols) > maxBatchTickers {
		writeError(w, http.StatusBadRequest, "too many symbols")
		return
	}

	tickers, err := h.market.Tickers(r.Context(), req.Symbols)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "batch tickers failed", slog.Any("error", err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tickers": tickers})
}

// GetFees returns the account's 30-day volume and current maker/taker rates.
// GET /api/market/fees
func (h *MarketHandler) GetFees(w http.ResponseWriter, r *http.Request) {
	creds, ok := requireCredentials(w, r)
	if !ok {
		return
	}

	info, err := h.market.FeeInfo(r.Context(), creds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
