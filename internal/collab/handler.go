package collab

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inkroom/inkroom/internal/auth"
)

// Authenticator resolves the identity of a socket upgrade request.
type Authenticator interface {
	FromQuery(r *http.Request) (auth.Identity, error)
}

type Handler struct {
	hub     *Hub
	auth    Authenticator
	origins []string
}

func NewHandler(hub *Hub, authn Authenticator, origins []string) *Handler {
	return &Handler{hub: hub, auth: authn, origins: origins}
}

// ServeWS upgrades an authenticated request and runs the connection
// until it closes. Unauthenticated requests are refused before upgrade.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, err := h.auth.FromQuery(r)
	if err != nil {
		if errors.Is(err, auth.ErrMissingToken) {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	name := id.Name
	if name == "" {
		name = id.UserID
	}
	client := NewClient(h.hub, conn, id.UserID, name, uuid.New().String())

	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// Participants reports who is connected to a room right now.
func (h *Handler) Participants(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	if roomID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "roomId is required"})
		return
	}

	list, err := h.hub.Presence(r.Context(), roomID)
	if err != nil {
		slog.Error("list participants", "room", roomID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "room server unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"roomId":       roomID,
		"count":        len(list),
		"participants": list,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
