// Package api exposes the HTTP surface: the detection endpoint, stored
// analysis lookups, dashboard aggregates and the WebSocket stream.
package api

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"
)

// HealthProbe checks a backing dependency. A nil probe means liveness
// only.
type HealthProbe func(ctx context.Context) error

// RouterOptions collects the dependencies for the HTTP surface.
type RouterOptions struct {
	Handlers *Handlers
	Stream   http.Handler // WebSocket hub, mounted at /ws/mempool
	Metrics  http.Handler // Prometheus handler, mounted at /metrics
	Health   HealthProbe
	Logger   *log.Logger
}

// NewRouter wires all routes behind request logging.
func NewRouter(opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := map[string]any{"status": "ok"}
		if opts.Health != nil {
			if err := opts.Health(ctx); err != nil {
				logger.Printf("health probe failed: %v", err)
				status = http.StatusServiceUnavailable
				payload["status"] = "degraded"
				payload["error"] = err.Error()
			}
		}
		respondJSON(w, status, payload)
	})

	if h := opts.Handlers; h != nil {
		mux.HandleFunc("/api/detect-sandwich", h.handleDetect)
		mux.HandleFunc("/api/transaction-analysis/", h.handleTransactionAnalysis)
		mux.HandleFunc("/api/wallet-analyses/", h.handleWalletAnalyses)
		mux.HandleFunc("/api/mempool/events", h.handleIngestEvent)
		mux.HandleFunc("/api/mempool/stats", h.handleMempoolStats)
		mux.HandleFunc("/api/mempool/alerts", h.handleRecentAlerts)
		mux.HandleFunc("/api/dashboard/token-metrics", h.handleTokenMetrics)
		mux.HandleFunc("/api/dashboard/time-series", h.handleTimeSeries)
		mux.HandleFunc("/api/known-attackers", h.handleKnownAttackers)
	}
	if opts.Stream != nil {
		mux.Handle("/ws/mempool", opts.Stream)
	}
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}

	return loggingMiddleware(logger, mux)
}

func loggingMiddleware(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Printf("%s %s -> %d (%dms)",
			r.Method, r.URL.Path, rec.status, time.Since(start).Milliseconds())
	})
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack delegates to the wrapped writer so the WebSocket upgrade works
// behind the recorder.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}
