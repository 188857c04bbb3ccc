// Package server exposes the dashboard's HTTP and WebSocket API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexvgr/krakendash/internal/server/handler"
	"github.com/alexvgr/krakendash/internal/server/middleware"
	"github.com/alexvgr/krakendash/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	RateLimitPerMin int // per client IP; 0 disables rate limiting
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Positions *handler.PositionHandler
	Analytics *handler.AnalyticsHandler
	Market    *handler.MarketHandler
	Funding   *handler.FundingHandler
	Auth      *handler.AuthHandler
}

// Server is the HTTP + WebSocket API server for the dashboard.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// New creates a Server with all routes registered on the ServeMux and the
// middleware chain (CORS, logging, rate limiting, credential extraction)
// wrapped around it.
func New(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no credentials required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Position endpoints.
	mux.HandleFunc("GET /api/positions", handlers.Positions.List)
	mux.HandleFunc("GET /api/positions/detailed", handlers.Positions.ListDetailed)

	// Analytics endpoints.
	mux.HandleFunc("GET /api/analytics/chart-data", handlers.Analytics.ChartData)
	mux.HandleFunc("GET /api/volumes", handlers.Analytics.Volumes)

	// Market data endpoints.
	mux.HandleFunc("GET /api/market/ticker/{symbol}", handlers.Market.GetTicker)
	mux.HandleFunc("POST /api/market/tickers", handlers.Market.BatchTickers)
	mux.HandleFunc("GET /api/market/fees", handlers.Market.GetFees)

	// Funding rate endpoints (public).
	mux.HandleFunc("GET /api/funding/history/{symbol}", handlers.Funding.GetHistory)
	mux.HandleFunc("GET /api/funding/predict/{symbol}", handlers.Funding.Predict)

	// Credential validation.
	mux.HandleFunc("POST /api/auth/validate", handlers.Auth.Validate)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Credentials()(h)
	if cfg.RateLimitPerMin > 0 {
		h = middleware.RateLimit(middleware.NewLimiter(cfg.RateLimitPerMin, time.Minute))(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Handler exposes the fully wrapped handler chain, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
