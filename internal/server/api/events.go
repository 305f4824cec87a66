package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/backdrop/internal/store"
)

// MaxEventLimit caps the limit query parameter.
const MaxEventLimit = 1000

// EventsHandler serves the gesture event journal.
type EventsHandler struct {
	store *store.Store
}

// NewEventsHandler creates a new EventsHandler with the given store.
func NewEventsHandler(s *store.Store) *EventsHandler {
	return &EventsHandler{store: s}
}

type listEventsResponse struct {
	Events []*store.Event `json:"events"`
	Total  int            `json:"total"`
}

type clearEventsResponse struct {
	Removed int64 `json:"removed"`
}

// ServeHTTP handles GET and DELETE on /api/events.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodDelete:
		h.clear(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// list handles GET /api/events?limit=N, newest first.
func (h *EventsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxEventLimit)
	}

	events, err := h.store.Events().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	total, err := h.store.Events().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}

	writeJSON(w, http.StatusOK, listEventsResponse{Events: events, Total: total})
}

// clear handles DELETE /api/events.
func (h *EventsHandler) clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.store.Events().Clear()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear events")
		return
	}

	writeJSON(w, http.StatusOK, clearEventsResponse{Removed: removed})
}
