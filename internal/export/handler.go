package export

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"github.com/inkroom/inkroom/internal/eventlog"
	"github.com/inkroom/inkroom/internal/render"
)

type Handler struct {
	log eventlog.Log

	// fonts caches faces without locking, so renders take turns.
	mu    sync.Mutex
	fonts *render.Fonts
}

// NewHandler serves room images from the event log. fonts may be nil, in
// which case text shapes render without glyphs.
func NewHandler(log eventlog.Log, fonts *render.Fonts) *Handler {
	return &Handler{log: log, fonts: fonts}
}

// RoomPNG handles GET /api/rooms/{roomId}/export.png?width=&height=.
func (h *Handler) RoomPNG(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	if roomID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "roomId is required"})
		return
	}

	width, ok := dimension(r, "width", DefaultWidth)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid width"})
		return
	}
	height, ok := dimension(r, "height", DefaultHeight)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid height"})
		return
	}

	shapes, skipped, err := eventlog.Snapshot(r.Context(), h.log, roomID)
	if err != nil {
		slog.Error("export snapshot", "room", roomID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if skipped > 0 {
		slog.Warn("export skipped events", "room", roomID, "count", skipped)
	}

	// Render fully before writing so a failure can still become a JSON error.
	var buf bytes.Buffer
	h.mu.Lock()
	err = PNG(&buf, shapes, Options{Width: width, Height: height, Fonts: h.fonts})
	h.mu.Unlock()
	if err != nil {
		slog.Error("export room", "room", roomID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "render failed"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", `inline; filename="`+sanitize(roomID)+`.png"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func dimension(r *http.Request, key string, def int) (int, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > MaxDimension {
		return 0, false
	}
	return n, true
}

func sanitize(name string) string {
	out := []rune(name)
	for i, r := range out {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_') {
			out[i] = '-'
		}
	}
	return string(out)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
