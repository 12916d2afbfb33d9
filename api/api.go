// Package api exposes the sanitizer over HTTP: one sanitize route, a health
// probe, and prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"scrub/config"
	"scrub/core"
	"scrub/metrics"
	"scrub/sanitize"
	"scrub/util/goroutine"
)

// sanitizeResponse is the success body for POST /api/v1/sanitize.
type sanitizeResponse struct {
	Sanitized   interface{} `json:"sanitized"`
	Redactions  int         `json:"redactions"`
	Truncations int         `json:"truncations"`
}

// errorResponse is the failure body; Reason carries the taxonomy category.
type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// API serves the sanitize endpoint.
type API struct {
	sanitizer *sanitize.Sanitizer
	limiter   *rate.Limiter
	server    *http.Server
	logger    *zap.SugaredLogger
	maxBody   int64
}

// New builds the API server from config.
func New(cfg *config.Config, sanitizer *sanitize.Sanitizer, logger *zap.SugaredLogger) *API {
	rps := cfg.API.RateLimit.RequestsPerSecond
	burst := cfg.API.RateLimit.Burst
	if rps <= 0 {
		rps = 100
	}
	if burst <= 0 {
		burst = rps
	}

	a := &API{
		sanitizer: sanitizer,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		logger:    logger,
		maxBody:   int64(cfg.Sanitizer.MaxInputBytes),
	}
	a.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:      a.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return a
}

// Router builds the route table. Exposed for handler tests.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/sanitize", a.handleSanitize).Methods("POST")
	r.HandleFunc("/healthz", a.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return r
}

// Start runs the HTTP server in a background goroutine.
func (a *API) Start() {
	a.logger.Infof("Sanitize API listening on %s", a.server.Addr)
	go func() {
		defer goroutine.Recover("api-http-server", a.logger)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Errorf("API server error: %v", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (a *API) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Errorw("Failed to shutdown API server gracefully", "error", err)
	}
}

func (a *API) handleSanitize(w http.ResponseWriter, r *http.Request) {
	if !a.limiter.Allow() {
		a.writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "rate_limited")
		return
	}

	// Read one byte past the cap to distinguish at-limit from over-limit.
	body, err := io.ReadAll(io.LimitReader(r.Body, a.maxBody+1))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "failed to read request body", "read_error")
		return
	}
	if int64(len(body)) > a.maxBody {
		a.writeError(w, http.StatusRequestEntityTooLarge, "request body too large", core.ReasonMalformed)
		return
	}

	result, err := a.sanitizer.Bytes(body)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrDecode):
			a.writeError(w, http.StatusBadRequest, "input is not valid UTF-8", core.ReasonDecodeError)
		case errors.Is(err, core.ErrMalformed):
			a.writeError(w, http.StatusBadRequest, "input is not valid JSON", core.ReasonMalformed)
		default:
			// Outside the sanitizer's taxonomy. Same class of defect the
			// fuzz harness records as a crash.
			a.logger.Errorw("Unexpected sanitizer failure", "error", err, "input_length", len(body))
			a.writeError(w, http.StatusInternalServerError, "internal error", "internal")
		}
		return
	}

	metrics.RedactionsTotal.Add(float64(result.Redactions))
	a.writeJSON(w, http.StatusOK, sanitizeResponse{
		Sanitized:   result.Value,
		Redactions:  result.Redactions,
		Truncations: result.Truncations,
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) writeError(w http.ResponseWriter, status int, msg, reason string) {
	a.writeJSON(w, status, errorResponse{Error: msg, Reason: reason})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	metrics.APIRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Errorw("Failed to encode response", "error", err)
	}
}
