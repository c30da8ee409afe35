// Package server exposes the accrual engine over HTTP: session control and
// metrics endpoints for the dashboard, plus health and Prometheus scrape
// surfaces.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"earnd/engine"
	"earnd/server/middleware"
)

// WalletHeader carries the caller's wallet address on metrics requests.
const WalletHeader = "X-Wallet-Address"

// Config controls the HTTP surface.
type Config struct {
	ListenAddress  string
	Version        string
	AllowedOrigins []string
	RateLimit      middleware.RateLimit
}

// Server wires the engine behind the HTTP API.
type Server struct {
	cfg     Config
	engine  *engine.Engine
	handler http.Handler
	log     *slog.Logger
}

// New constructs the server and its router.
func New(cfg Config, eng *engine.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{cfg: cfg, engine: eng, log: log}

	r := chi.NewRouter()
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}))
	r.Use(middleware.NewRateLimiter(cfg.RateLimit).Middleware())

	r.Get("/", s.handleStatus)
	r.Get("/healthz", s.handleHealth)
	r.Route("/api/engine", func(api chi.Router) {
		api.Post("/start", s.handleStart)
		api.Get("/metrics", s.handleMetrics)
		api.Post("/stop", s.handleStop)
	})
	r.Handle("/metrics", promhttp.Handler())

	s.handler = otelhttp.NewHandler(r, "earnd.http")
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

type startRequest struct {
	WalletAddress string `json:"walletAddress"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	calc := s.engine.Calculator()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "online",
		"service":    "earnd",
		"version":    s.cfg.Version,
		"strategies": calc.Strategies(),
		"boost":      calc.Boost(),
		"minting":    s.engine.MintingEnabled(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.engine.StartSession(r.Context(), req.WalletAddress); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "engine started",
		"boost":   s.engine.Calculator().Boost(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	wallet := strings.TrimSpace(r.Header.Get(WalletHeader))
	snapshot, err := s.engine.Metrics(r.Context(), wallet)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalUnsettled":         snapshot.TotalUnsettled,
		"hourlyRate":             snapshot.HourlyRate,
		"dailyProjection":        snapshot.DailyProjection,
		"activeStrategyCount":    snapshot.ActiveStrategies,
		"pendingRewardsEstimate": snapshot.PendingEstimate,
		"effectiveApyPercent":    snapshot.EffectiveAPYPercent,
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.engine.StopSession(r.Context(), req.WalletAddress); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrWalletRequired) {
		http.Error(w, "wallet address required", http.StatusBadRequest)
		return
	}
	s.log.Error("engine request failed", "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}
