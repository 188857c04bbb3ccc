package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alexvgr/krakendash/internal/domain"
	"github.com/alexvgr/krakendash/internal/server/middleware"
	"github.com/alexvgr/krakendash/internal/service"
)

// AuthHandler validates client API credentials against the venue.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logHandler(logger, "auth"),
	}
}

type validateRequest struct {
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

// Validate probes the venue with the supplied credentials and reports
// whether they work. Credentials may come in the JSON body or via the usual
// header/cookie channel.
// POST /api/auth/validate
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if r.Body != nil {
		// An empty body is fine when credentials came in headers.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	creds := domain.Credentials{APIKey: req.APIKey, APISecret: req.APISecret}
	if !creds.Valid() {
		if ctxCreds, ok := middleware.CredentialsFrom(r.Context()); ok {
			creds = ctxCreds
		}
	}
	if !creds.Valid() {
		writeError(w, http.StatusBadRequest, "missing API credentials")
		return
	}

	valid, err := h.auth.Validate(r.Context(), creds)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "credential probe failed", slog.Any("error", err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": valid})
}
