package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/inkroom/inkroom/internal/shape"
)

const maxRoomIDLen = 128

type Handler struct {
	log Log
}

func NewHandler(log Log) *Handler {
	return &Handler{log: log}
}

type shapesResponse struct {
	RoomID string        `json:"roomId"`
	Shapes []shape.Shape `json:"shapes"`
}

type eventsResponse struct {
	RoomID string  `json:"roomId"`
	Events []Event `json:"events"`
	Next   int64   `json:"next"`
}

// Shapes serves the replayed snapshot of a room.
func (h *Handler) Shapes(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomFromRequest(w, r)
	if !ok {
		return
	}

	shapes, skipped, err := Snapshot(r.Context(), h.log, roomID)
	if err != nil {
		handleLogError(w, err)
		return
	}
	if skipped > 0 {
		slog.Warn("skipped undecodable events", "room", roomID, "count", skipped)
	}
	if shapes == nil {
		shapes = []shape.Shape{}
	}

	writeJSON(w, http.StatusOK, shapesResponse{RoomID: roomID, Shapes: shapes})
}

// Events serves one page of the raw log for replay tooling.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomFromRequest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	after, err := parseInt(q.Get("after"), 0)
	if err != nil || after < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid after"})
		return
	}
	limit, err := parseInt(q.Get("limit"), DefaultPageSize)
	if err != nil || limit <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		return
	}

	events, err := h.log.Events(r.Context(), roomID, after, int(limit))
	if err != nil {
		handleLogError(w, err)
		return
	}
	next := after
	if len(events) > 0 {
		next = events[len(events)-1].ID
	}
	if events == nil {
		events = []Event{}
	}

	writeJSON(w, http.StatusOK, eventsResponse{RoomID: roomID, Events: events, Next: next})
}

func roomFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	roomID := mux.Vars(r)["roomId"]
	if roomID == "" || len(roomID) > maxRoomIDLen {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid room id"})
		return "", false
	}
	return roomID, true
}

func parseInt(s string, def int64) (int64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func handleLogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "request canceled"})
	default:
		slog.Error("event log error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
