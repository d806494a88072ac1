package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/deltacrown/herald/id"
	"github.com/deltacrown/herald/journal"
)

func (h *Handler) listEndpointAttempts(w http.ResponseWriter, r *http.Request) {
	epID, err := id.ParseEndpointID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid endpoint ID")
		return
	}

	opts := journal.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}

	attempts, listErr := h.herald.Journal().AttemptsByEndpoint(r.Context(), epID, opts)
	if listErr != nil {
		writeError(w, http.StatusInternalServerError, listErr.Error())
		return
	}

	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) listDeliveryAttempts(w http.ResponseWriter, r *http.Request) {
	deliveryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid delivery ID")
		return
	}

	attempts, listErr := h.herald.Attempts(r.Context(), deliveryID)
	if listErr != nil {
		writeError(w, http.StatusInternalServerError, listErr.Error())
		return
	}

	writeJSON(w, http.StatusOK, attempts)
}
