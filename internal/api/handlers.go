package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"solana-sandwich-watch/internal/detect"
	"solana-sandwich-watch/internal/domain"
	"solana-sandwich-watch/internal/mempool"
	"solana-sandwich-watch/internal/solident"
	"solana-sandwich-watch/internal/stats"
	"solana-sandwich-watch/internal/storage"
)

const defaultAlertLimit = 20

// Handlers implements the API endpoints.
type Handlers struct {
	responder  *detect.Responder
	monitor    *mempool.Monitor
	records    storage.DetectionRecordStore
	attackers  storage.AttackerStore
	alerts     storage.AlertHistoryStore
	aggregator *stats.Aggregator
	logger     *log.Logger
}

// HandlerOptions collects handler dependencies.
type HandlerOptions struct {
	Responder  *detect.Responder
	Monitor    *mempool.Monitor
	Records    storage.DetectionRecordStore
	Attackers  storage.AttackerStore
	Alerts     storage.AlertHistoryStore
	Aggregator *stats.Aggregator
	Logger     *log.Logger
}

// NewHandlers creates the API handler set.
func NewHandlers(opts HandlerOptions) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{
		responder:  opts.Responder,
		monitor:    opts.Monitor,
		records:    opts.Records,
		attackers:  opts.Attackers,
		alerts:     opts.Alerts,
		aggregator: opts.Aggregator,
		logger:     logger,
	}
}

// handleDetect runs a synchronous detection for a transaction id or
// wallet address.
func (h *Handlers) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req domain.DetectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.responder.Detect(r.Context(), &req)
	if err != nil {
		if ve, ok := domain.AsValidationError(err); ok {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": ve.Fields,
			})
			return
		}
		h.logger.Printf("detect failed: %v", err)
		writeError(w, http.StatusInternalServerError, "detection failed")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleTransactionAnalysis returns the stored analysis for one
// transaction id.
func (h *Handlers) handleTransactionAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/transaction-analysis/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "transaction id required")
		return
	}

	record, err := h.records.GetByTransactionID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no analysis found for transaction")
			return
		}
		h.logger.Printf("load analysis for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, recordView(record))
}

// handleWalletAnalyses returns every stored analysis associated with a
// wallet, in insertion order.
func (h *Handlers) handleWalletAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	wallet := strings.TrimPrefix(r.URL.Path, "/api/wallet-analyses/")
	if wallet == "" || strings.Contains(wallet, "/") {
		writeError(w, http.StatusBadRequest, "wallet address required")
		return
	}

	records, err := h.records.GetByWalletAddress(r.Context(), wallet)
	if err != nil {
		h.logger.Printf("load analyses for wallet %s: %v", wallet, err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	views := make([]*RecordView, 0, len(records))
	for _, record := range records {
		views = append(views, recordView(record))
	}
	respondJSON(w, http.StatusOK, views)
}

// handleIngestEvent feeds one observed transaction into the monitor. This
// is the ingress for replay tooling and external feed adapters.
func (h *Handlers) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var event domain.TransactionEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if event.ObservedAt == 0 {
		event.ObservedAt = time.Now().UnixMilli()
	}

	if err := h.monitor.ProcessEvent(r.Context(), &event); err != nil {
		if ve, ok := domain.AsValidationError(err); ok {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": ve.Fields,
			})
			return
		}
		h.logger.Printf("ingest event %s: %v", event.Signature, err)
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleMempoolStats serves the dashboard summary.
func (h *Handlers) handleMempoolStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, err := h.aggregator.MempoolStats(r.Context())
	if err != nil {
		h.logger.Printf("mempool stats: %v", err)
		writeError(w, http.StatusInternalServerError, "aggregation failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleRecentAlerts serves the newest archived alerts.
func (h *Handlers) handleRecentAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultAlertLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	alerts, err := h.alerts.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Printf("recent alerts: %v", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	views := make([]*AlertView, 0, len(alerts))
	for _, alert := range alerts {
		views = append(views, alertView(alert))
	}
	respondJSON(w, http.StatusOK, views)
}

// handleTokenMetrics serves per-pool attack aggregates.
func (h *Handlers) handleTokenMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	metrics, err := h.aggregator.TokenMetrics(r.Context())
	if err != nil {
		h.logger.Printf("token metrics: %v", err)
		writeError(w, http.StatusInternalServerError, "aggregation failed")
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// handleTimeSeries serves the attack-frequency chart. Supported query
// params: type (only "attacks"), period (Go duration, default 1h).
func (h *Handlers) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if kind := r.URL.Query().Get("type"); kind != "" && kind != "attacks" {
		writeError(w, http.StatusBadRequest, "unsupported series type")
		return
	}

	period := time.Hour
	if raw := r.URL.Query().Get("period"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "period must be a positive duration")
			return
		}
		period = parsed
	}

	points, err := h.aggregator.TimeSeries(r.Context(), time.Now().Add(-period), stats.DefaultTimeSeriesBucket)
	if err != nil {
		h.logger.Printf("time series: %v", err)
		writeError(w, http.StatusInternalServerError, "aggregation failed")
		return
	}
	respondJSON(w, http.StatusOK, points)
}

// handleKnownAttackers manages the known-attacker set: GET lists, POST
// adds, DELETE removes.
func (h *Handlers) handleKnownAttackers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		addresses, err := h.attackers.List(r.Context())
		if err != nil {
			h.logger.Printf("list attackers: %v", err)
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"attackers": addresses})

	case http.MethodPost, http.MethodDelete:
		var body struct {
			Address string `json:"address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Address == "" {
			writeError(w, http.StatusBadRequest, "address required")
			return
		}

		// A program-derived address is off curve and cannot sign, so it
		// can never be an attacker's fee payer.
		if r.Method == http.MethodPost &&
			solident.DecodesToAccountKey(body.Address) && !solident.IsOnCurveWallet(body.Address) {
			writeError(w, http.StatusBadRequest, "address is off-curve (program-derived)")
			return
		}

		var err error
		if r.Method == http.MethodPost {
			err = h.attackers.Add(r.Context(), body.Address)
		} else {
			err = h.attackers.Remove(r.Context(), body.Address)
		}
		if err != nil {
			h.logger.Printf("%s attacker %s: %v", r.Method, body.Address, err)
			writeError(w, http.StatusInternalServerError, "update failed")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}
