package report

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

type Handler struct {
	recorder *Recorder
	logger   *slog.Logger
}

func NewHandler(recorder *Recorder) *Handler {
	return &Handler{
		recorder: recorder,
		logger:   slog.Default().With("component", "report-handler"),
	}
}

func (h *Handler) Matches(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	matches, err := h.recorder.Matches(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to load matches", "error", err)
		http.Error(w, `{"error":"failed to load matches"}`, http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]any{
		"matches": matches,
		"count":   len(matches),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.recorder.Stats(r.Context()))
}

func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write report response", "error", err)
	}
}
