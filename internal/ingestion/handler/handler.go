// Package handler exposes the document ingestion HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dupscan/dupscan/internal/ingestion"
	"github.com/dupscan/dupscan/internal/ingestion/validator"
	apperrors "github.com/dupscan/dupscan/pkg/errors"
	"github.com/dupscan/dupscan/pkg/logger"
	"github.com/dupscan/dupscan/pkg/metrics"
)

// Ingester persists an accepted document and hands it to the pipeline.
// Implemented by publisher.Publisher; handler tests substitute a fake.
type Ingester interface {
	Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error)
}

type Handler struct {
	ingester Ingester
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(ing Ingester, m *metrics.Metrics) *Handler {
	return &Handler{
		ingester: ing,
		metrics:  m,
		logger:   slog.Default().With("component", "ingestion-handler"),
	}
}

// maxRequestBytes bounds the request body: the document body limit plus
// slack for the title, key, and JSON framing.
const maxRequestBytes = validator.MaxBodyBytes + 64<<10

// Ingest handles POST /api/v1/documents. Accepted documents are persisted
// as PENDING and answered with 202; the signature is built asynchronously
// by the signer.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req ingestion.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := validator.ValidateIngestRequest(&req); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": vErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.ingester.Ingest(ctx, &req)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed", "error", err, "status_code", status)
		h.writeError(w, status, "ingestion failed")
		return
	}
	if h.metrics != nil {
		h.metrics.DocsIngestedTotal.Inc()
	}
	log.Info("document accepted", "doc_id", resp.DocumentID, "status", resp.Status)
	h.writeJSON(w, http.StatusAccepted, resp)
}

// Health answers the ingestion service's health endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("writing response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
