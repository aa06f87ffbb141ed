package collab

import (
	"context"
	"errors"
	"time"
)

var ErrHubStopped = errors.New("hub stopped")

// Presence describes one connection in a room.
type Presence struct {
	UserID       string     `json:"userId"`
	Name         string     `json:"name,omitempty"`
	Drawing      bool       `json:"isDrawing"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
}

// Presence lists the connections currently joined to roomID, in join
// order.
func (h *Hub) Presence(ctx context.Context, roomID string) ([]Presence, error) {
	reply := make(chan []Presence, 1)
	ok := h.post(func() {
		members := h.reg.InRoom(roomID)
		out := make([]Presence, 0, len(members))
		for _, c := range members {
			p := Presence{UserID: c.UserID, Name: c.DisplayName, Drawing: c.drawing}
			if !c.lastActivity.IsZero() {
				at := c.lastActivity
				p.LastActivity = &at
			}
			out = append(out, p)
		}
		reply <- out
	})
	if !ok {
		return nil, ErrHubStopped
	}
	select {
	case out := <-reply:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
