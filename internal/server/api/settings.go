package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/ayusman/backdrop/internal/store"
)

// Validator checks a set of settings before they are stored. It returns an
// error describing the first unknown key or unparsable value.
type Validator func(settings map[string]string) error

// SettingsHandler serves the persisted settings. Stored settings take
// effect on the next start.
type SettingsHandler struct {
	store    *store.Store
	validate Validator
}

// NewSettingsHandler creates a handler; validate may be nil to accept
// everything.
func NewSettingsHandler(s *store.Store, validate Validator) *SettingsHandler {
	return &SettingsHandler{store: s, validate: validate}
}

type settingsResponse struct {
	Settings map[string]string `json:"settings"`
}

// ServeHTTP handles GET and PUT on /api/settings.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) list(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Settings().All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings")
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{Settings: settings})
}

// update handles PUT /api/settings with a JSON object of key/value pairs.
// Values may be JSON strings, numbers or booleans.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req) == 0 {
		writeError(w, http.StatusBadRequest, "No settings given")
		return
	}

	settings := make(map[string]string, len(req))
	for key, raw := range req {
		value, ok := scalar(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Setting "+key+" must be a string, number or boolean")
			return
		}
		settings[key] = value
	}

	if h.validate != nil {
		if err := h.validate(settings); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := h.store.Settings().SetMany(settings); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	h.list(w, r)
}

// scalar returns the text of a JSON string, number or boolean.
func scalar(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[', 'n':
		return "", false
	default:
		return string(raw), true
	}
}
