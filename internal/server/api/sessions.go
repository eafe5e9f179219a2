package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/telemetry"
)

// SessionHandler serves recorded sessions and their outcomes.
//
//	GET    /api/sessions
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	GET    /api/sessions/{id}/outcomes
//	GET    /api/sessions/{id}/outcomes.csv
//	GET    /api/sessions/{id}/stats
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a SessionHandler over s.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes on the path below /api/sessions.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "outcomes", "outcomes.csv", "stats":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !h.exists(w, id) {
			return
		}
		switch sub {
		case "outcomes":
			h.outcomes(w, r, id)
		case "outcomes.csv":
			h.outcomesCSV(w, r, id)
		default:
			h.stats(w, r, id)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type sessionResponse struct {
	ID              string  `json:"id"`
	StartedAt       string  `json:"started_at"`
	EndedAt         string  `json:"ended_at,omitempty"`
	Active          bool    `json:"active"`
	Frames          uint64  `json:"frames"`
	FramesWithHands uint64  `json:"frames_with_hands"`
	AvgFPS          float64 `json:"avg_fps"`
	AvgFrameTimeMs  float64 `json:"avg_frame_time_ms"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type outcomesResponse struct {
	Outcomes []telemetry.Outcome `json:"outcomes"`
}

type statsResponse struct {
	Gestures []store.GestureStats `json:"gestures"`
}

func toResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:              s.ID,
		StartedAt:       s.StartedAt.Format(time.RFC3339),
		Active:          s.Active(),
		Frames:          s.Frames,
		FramesWithHands: s.FramesWithHands,
		AvgFPS:          s.AvgFPS,
		AvgFrameTimeMs:  float64(s.AvgFrameTime) / float64(time.Millisecond),
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format(time.RFC3339)
	}
	return resp
}

// list handles GET /api/sessions, newest first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(session))
}

func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exists writes a 404 and returns false when id is unknown.
func (h *SessionHandler) exists(w http.ResponseWriter, id string) bool {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to get session")
		}
		return false
	}
	return true
}

func (h *SessionHandler) outcomes(w http.ResponseWriter, r *http.Request, id string) {
	outcomes, err := h.store.Outcomes().List(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list outcomes")
		return
	}
	if outcomes == nil {
		outcomes = []telemetry.Outcome{}
	}
	writeJSON(w, http.StatusOK, outcomesResponse{Outcomes: outcomes})
}

func (h *SessionHandler) outcomesCSV(w http.ResponseWriter, r *http.Request, id string) {
	outcomes, err := h.store.Outcomes().List(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list outcomes")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.csv"`)
	telemetry.WriteCSV(w, outcomes)
}

func (h *SessionHandler) stats(w http.ResponseWriter, r *http.Request, id string) {
	stats, err := h.store.Outcomes().Stats(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	if stats == nil {
		stats = []store.GestureStats{}
	}
	writeJSON(w, http.StatusOK, statsResponse{Gestures: stats})
}
