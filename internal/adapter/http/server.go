package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/water-budget-service/internal/domain"
)

const (
	// planTimeout bounds one plan including remote input retrieval.
	planTimeout = 25 * time.Second

	maxRequestBytes = 1 << 20
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Planner computes irrigation plans.
type Planner interface {
	Plan(ctx context.Context, source string, req domain.PlanRequest) (domain.Report, error)
}

// Server exposes the planning API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	planner    Planner
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /v1/plans, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, ready ReadinessChecker, planner Planner, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: planTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		planner: planner,
		logger:  logger,
	}

	mux.HandleFunc("POST /v1/plans", s.handlePlan)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// errorResponse is the body of every non-2xx answer from /v1/plans.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req domain.PlanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "decode plan request: " + err.Error(), Kind: "invalid_input"})
		return
	}
	if req.ID == "" {
		req.ID = r.Header.Get("X-Request-ID")
	}

	ctx, cancel := context.WithTimeout(r.Context(), planTimeout)
	defer cancel()

	report, err := s.planner.Plan(ctx, "http", req)
	if err != nil {
		status, body := planError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("plan request failed", "status", status, "error", err)
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// planError maps a planning failure to a status code and error body.
func planError(err error) (int, errorResponse) {
	body := errorResponse{Error: err.Error()}
	var inputErr *domain.InputError
	if errors.As(err, &inputErr) {
		body.Field = inputErr.Field
	}

	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		body.Kind = "invalid_input"
		return http.StatusBadRequest, body
	case errors.Is(err, domain.ErrNoData):
		body.Kind = "no_data"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, domain.ErrUpstream):
		body.Kind = "upstream"
		return http.StatusBadGateway, body
	default:
		body.Kind = "internal"
		body.Error = "internal error"
		return http.StatusInternalServerError, body
	}
}

// writeJSON encodes v before committing the status so an unencodable body
// becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorResponse{Error: "internal error", Kind: "internal"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n')) //nolint:errcheck // best-effort response
}
