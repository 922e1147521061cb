// Package server exposes the optimizer over HTTP for dashboard frontends.
package server

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/operato/eoq-planner/internal/eoq"
	"github.com/operato/eoq-planner/internal/history"
	"github.com/operato/eoq-planner/pkg/constants"
)

//go:embed static/*
var staticFiles embed.FS

type handler struct {
	logger      *zap.Logger
	store       *history.Store
	maxBodySize int64
	version     string
}

// NewHandler constructs the HTTP handler serving the optimization API and the
// embedded dashboard page. store may be nil, disabling history endpoints and
// run recording.
func NewHandler(logger *zap.Logger, store *history.Store, maxBodySize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxBodySize <= 0 {
		maxBodySize = constants.DefaultMaxBodySizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, store: store, maxBodySize: maxBodySize, version: trimmedVersion}

	mux := http.NewServeMux()

	// Optimization API endpoint
	mux.HandleFunc("/api/optimize", h.handleOptimize)

	// Recorded run history
	mux.HandleFunc("/api/history", h.handleHistory)

	// Version endpoint for UI metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	// Static assets (web UI)
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	fileServer := http.FileServer(http.FS(sub))
	mux.Handle("/", fileServer)

	return mux
}

type optimizeRequest struct {
	Demand   *float64                `json:"demand"`
	Policy   string                  `json:"policy"`
	Echelons []eoq.EchelonParameters `json:"echelons"`
	Curve    *eoq.CurveOptions       `json:"curve,omitempty"`
	Record   bool                    `json:"record,omitempty"`
}

type optimizeResponse struct {
	Result   eoq.Result                  `json:"result"`
	Curves   map[string][]eoq.CurvePoint `json:"curves,omitempty"`
	RunID    string                      `json:"runId,omitempty"`
	Duration string                      `json:"duration"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req optimizeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxBodySize))
			return
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse request: %v", err))
		return
	}

	if req.Demand == nil {
		h.respondError(w, http.StatusBadRequest, "demand is required")
		return
	}

	policy, err := eoq.ParsePolicy(req.Policy)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := eoq.Optimize(h.logger, req.Echelons, *req.Demand, policy)
	if err != nil {
		// Validation failures are the client's to fix; certification
		// failures are ours.
		var invalid *eoq.InvalidParameterError
		if errors.As(err, &invalid) {
			h.respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("optimization failed",
			zap.String("op", "server.handleOptimize"),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := optimizeResponse{Result: result}

	if req.Curve != nil {
		curves, err := eoq.SampleResultCurves(req.Echelons, result, *req.Curve)
		if err != nil {
			h.respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		resp.Curves = curves
	}

	if req.Record {
		if h.store == nil {
			h.respondError(w, http.StatusConflict, "run recording requested but history is not configured")
			return
		}
		run, err := h.store.RecordRun(r.Context(), result)
		if err != nil {
			h.logger.Error("failed to record run",
				zap.String("op", "server.handleOptimize"),
				zap.Error(err),
			)
			h.respondError(w, http.StatusInternalServerError, "failed to record run")
			return
		}
		resp.RunID = run.ID
	}

	resp.Duration = time.Since(start).String()
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.store == nil {
		h.respondError(w, http.StatusNotFound, "history is not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs",
			zap.String("op", "server.handleHistory"),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

func (h *handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("failed to encode response",
			zap.String("op", "server.respondJSON"),
			zap.Error(err),
		)
	}
}

func (h *handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, errorResponse{Error: message})
}
