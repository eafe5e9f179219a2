package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/mudra/internal/app"
)

// Controller is the running controller as seen by the API.
type Controller interface {
	IsEnabled() bool
	SetEnabled(enabled bool) error
	Snapshot() app.Snapshot
}

// ControlHandler reports controller state and toggles gesture processing.
//
//	GET  /api/control
//	POST /api/control {"enabled": bool}
type ControlHandler struct {
	controller Controller
}

// NewControlHandler creates a ControlHandler for c.
func NewControlHandler(c Controller) *ControlHandler {
	return &ControlHandler{controller: c}
}

type controlRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.controller.Snapshot())
	case http.MethodPost:
		var req controlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		if err := h.controller.SetEnabled(*req.Enabled); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save setting")
			return
		}
		writeJSON(w, http.StatusOK, h.controller.Snapshot())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
