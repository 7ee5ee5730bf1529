package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HealthServer exposes the worker's probe endpoints:
//   - /health: liveness probe (always 200 OK)
//   - /health/ready: readiness probe (200 once the schedulers are running,
//     503 before that and during shutdown)
//
// The readiness payload names the registered schedulers so an operator can
// see at a glance which loops this worker instance drives.
//
// Example usage:
//
//	healthServer := NewHealthServer(":9091", logger)
//	healthServer.RegisterScheduler("orchestrator")
//	healthServer.RegisterScheduler("sweeper")
//	go func() {
//	    if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
//	        logger.Error("health server failed", slog.Any("error", err))
//	    }
//	}()
//	healthServer.SetReady(true)
type HealthServer struct {
	addr    string
	logger  *slog.Logger
	isReady *atomic.Bool
	server  *http.Server

	mu         sync.Mutex
	schedulers []string
	readySince time.Time
}

// healthResponse is the JSON response for the liveness endpoint.
type healthResponse struct {
	Status string `json:"status"`
}

// readinessResponse is the JSON response for the readiness endpoint.
type readinessResponse struct {
	Status     string   `json:"status"`
	Schedulers []string `json:"schedulers,omitempty"`
	ReadySince string   `json:"ready_since,omitempty"`
}

// NewHealthServer creates a health check server listening on addr
// (e.g. ":9091"). The server starts not-ready; call Start to serve and
// SetReady(true) once the schedulers are running.
func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	isReady := &atomic.Bool{}
	isReady.Store(false)

	return &HealthServer{
		addr:    addr,
		logger:  logger,
		isReady: isReady,
	}
}

// RegisterScheduler adds a scheduler name to the readiness payload.
// Call before SetReady(true).
func (h *HealthServer) RegisterScheduler(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.schedulers = append(h.schedulers, name)
}

// Start serves the probe endpoints. This is a blocking call that runs until
// the context is cancelled or the listener fails; cancellation triggers a
// graceful shutdown with a 5-second timeout and returns http.ErrServerClosed.
func (h *HealthServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/health/ready", h.handleReadiness)

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if err == http.ErrServerClosed {
			return err
		}
		h.logger.Error("health server failed", slog.Any("error", err))
		return err
	}
}

// SetReady flips the readiness state reported by /health/ready. The worker
// marks itself ready after both schedulers have started and not-ready again
// when shutdown begins.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	if ready {
		h.mu.Lock()
		h.readySince = time.Now().UTC()
		h.mu.Unlock()
	}
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

// handleLiveness handles the /health endpoint (liveness probe).
// Always returns 200 OK with {"status":"ok"}; the only failure mode is the
// process being dead, in which case nothing responds at all.
func (h *HealthServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(healthResponse{Status: "ok"}); err != nil {
		h.logger.Error("failed to encode liveness response", slog.Any("error", err))
	}
}

// handleReadiness handles the /health/ready endpoint (readiness probe).
// Ready means the job schedulers are running: a 503 here tells the platform
// this worker instance is not yet (or no longer) claiming render jobs.
func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !h.isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		if err := json.NewEncoder(w).Encode(readinessResponse{Status: "not ready"}); err != nil {
			h.logger.Error("failed to encode not ready response", slog.Any("error", err))
		}
		return
	}

	h.mu.Lock()
	resp := readinessResponse{
		Status:     "ok",
		Schedulers: append([]string(nil), h.schedulers...),
	}
	if !h.readySince.IsZero() {
		resp.ReadySince = h.readySince.Format(time.RFC3339)
	}
	h.mu.Unlock()

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode readiness response", slog.Any("error", err))
	}
}
