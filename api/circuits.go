package api

import (
	"net/http"

	"github.com/deltacrown/herald/id"
)

func (h *Handler) listCircuits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.herald.Circuits().Snapshot())
}

func (h *Handler) resetCircuit(w http.ResponseWriter, r *http.Request) {
	epID, err := id.ParseEndpointID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid endpoint ID")
		return
	}

	h.herald.Circuits().Reset(epID.String())
	w.WriteHeader(http.StatusNoContent)
}
