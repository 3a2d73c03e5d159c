package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type resetResponse struct {
	Status    string `json:"status"`
	ContextID string `json:"context_id"`
}

// handleResetThread forgets a conversation so the next message on the same
// context starts fresh.
func (d *Dashboard) handleResetThread(w http.ResponseWriter, r *http.Request) {
	if d.threads == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "conversation reset is not available"})
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "context id is required"})
		return
	}
	if err := d.threads.DeleteThread(r.Context(), id); err != nil {
		d.log.Error("resetting thread", "context_id", id, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Status: "reset", ContextID: id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
