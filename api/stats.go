package api

import (
	"net/http"
	"time"

	"github.com/deltacrown/herald/journal"
)

type statsResponse struct {
	Enabled    bool           `json:"enabled"`
	QueueDepth int            `json:"queue_depth"`
	DLQSize    int64          `json:"dlq_size"`
	Window     *journal.Stats `json:"window"`
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	since := time.Now().Add(-time.Hour)
	if sinceParam := queryParam(r, "since"); sinceParam != "" {
		parsed, err := time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'since' time format (use RFC3339)")
			return
		}
		since = parsed
	}

	window, err := h.herald.Stats(ctx, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dlqCount, err := h.herald.DLQ().Count(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Enabled:    h.herald.Enabled(),
		QueueDepth: h.herald.QueueDepth(),
		DLQSize:    dlqCount,
		Window:     window,
	})
}

func (h *Handler) enableDelivery(w http.ResponseWriter, r *http.Request) {
	h.herald.SetEnabled(true)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) disableDelivery(w http.ResponseWriter, r *http.Request) {
	h.herald.SetEnabled(false)
	w.WriteHeader(http.StatusNoContent)
}
