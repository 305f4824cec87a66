package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/backdrop/internal/catalog"
)

// Thumbnail size limits for /api/backgrounds/{n}/thumbnail.
const (
	DefaultThumbWidth  = 160
	DefaultThumbHeight = 90
	MaxThumbSize       = 1024
)

// BackgroundsHandler serves the background catalog.
type BackgroundsHandler struct {
	catalog *catalog.Catalog
}

// NewBackgroundsHandler creates a new BackgroundsHandler over cat.
func NewBackgroundsHandler(cat *catalog.Catalog) *BackgroundsHandler {
	return &BackgroundsHandler{catalog: cat}
}

type backgroundResponse struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Live  bool   `json:"live"`
}

type listBackgroundsResponse struct {
	Backgrounds []backgroundResponse `json:"backgrounds"`
	Count       int                  `json:"count"`
}

// ServeHTTP handles /api/backgrounds and /api/backgrounds/{n}/thumbnail.
func (h *BackgroundsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/backgrounds")
	path = strings.Trim(path, "/")

	if path == "" {
		h.list(w, r)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "thumbnail" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	index, err := strconv.Atoi(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid background index")
		return
	}

	h.thumbnail(w, r, index)
}

func (h *BackgroundsHandler) list(w http.ResponseWriter, r *http.Request) {
	slots := h.catalog.Slots()

	response := listBackgroundsResponse{
		Backgrounds: make([]backgroundResponse, 0, len(slots)),
		Count:       h.catalog.Count(),
	}
	for _, b := range slots {
		response.Backgrounds = append(response.Backgrounds, backgroundResponse{
			Index: b.Index,
			Name:  b.Name,
			Live:  b.Live(),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// thumbnail handles GET /api/backgrounds/{n}/thumbnail?w=W&h=H.
func (h *BackgroundsHandler) thumbnail(w http.ResponseWriter, r *http.Request, index int) {
	width, ok := dimension(r, "w", DefaultThumbWidth)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid width")
		return
	}
	height, ok := dimension(r, "h", DefaultThumbHeight)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid height")
		return
	}

	data, err := h.catalog.Thumbnail(index, width, height)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrSlotRange), errors.Is(err, catalog.ErrNoImage):
			writeError(w, http.StatusNotFound, "Background not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to render thumbnail")
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func dimension(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > MaxThumbSize {
		return 0, false
	}
	return n, true
}
