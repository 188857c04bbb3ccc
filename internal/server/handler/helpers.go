package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alexvgr/krakendash/internal/domain"
	"github.com/alexvgr/krakendash/internal/server/middleware"
)

const (
	defaultPeriodDays = 30
	maxPeriodDays     = 90
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps well-known upstream failures onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid API credentials")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "exchange rate limit exceeded")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusBadGateway, "exchange request failed")
	}
}

// requireCredentials fetches the client's API credentials from the request
// context, writing a 401 when none were supplied.
func requireCredentials(w http.ResponseWriter, r *http.Request) (domain.Credentials, bool) {
	creds, ok := middleware.CredentialsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing API credentials")
		return domain.Credentials{}, false
	}
	return creds, true
}

// parseDays reads the days query parameter, clamped to [1, 90] with a
// 30-day default. A malformed value is an error rather than silently
// defaulted so clients notice broken integrations.
func parseDays(r *http.Request) (int, error) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return defaultPeriodDays, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		n = 1
	}
	if n > maxPeriodDays {
		n = maxPeriodDays
	}
	return n, nil
}

// parseForceRefresh reads the force_refresh query flag.
func parseForceRefresh(r *http.Request) bool {
	v := r.URL.Query().Get("force_refresh")
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
