package handler

import (
	"log/slog"
	"net/http"

	"github.com/alexvgr/krakendash/internal/service"
)

// AnalyticsHandler serves the aggregated daily fee, funding, and volume
// series.
type AnalyticsHandler struct {
	dashboard *service.DashboardService
	logger    *slog.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(dashboard *service.DashboardService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		dashboard: dashboard,
		logger:    logHandler(logger, "analytics"),
	}
}

// ChartData returns the full dashboard aggregation for the requested window.
// GET /api/analytics/chart-data?days=N
func (h *AnalyticsHandler) ChartData(w http.ResponseWriter, r *http.Request) {
	creds, ok := requireCredentials(w, r)
	if !ok {
		return
	}
	days, err := parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid days parameter")
		return
	}

	data, err := h.dashboard.Data(r.Context(), creds, days, parseForceRefresh(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "chart data failed", slog.Any("error", err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// Volumes returns just the daily buckets for lighter-weight clients.
// GET /api/volumes?days=N
func (h *AnalyticsHandler) Volumes(w http.ResponseWriter, r *http.Request) {
	creds, ok := requireCredentials(w, r)
	if !ok {
		return
	}
	days, err := parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid days parameter")
		return
	}

	daily, err := h.dashboard.DailySeries(r.Context(), creds, days, parseForceRefresh(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "volume series failed", slog.Any("error", err))
		writeServiceError(w, err)
		return
	}

	var total float64
	for _, b := range daily {
		total += b.Volume
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days":         days,
		"volumes":      daily,
		"total_volume": total,
	})
}
