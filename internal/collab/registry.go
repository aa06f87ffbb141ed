package collab

import (
	"cmp"
	"slices"
)

// Registry tracks the live connections of one server. Only the hub
// goroutine calls it, so implementations need no locking.
type Registry interface {
	Add(c *Client)
	Remove(c *Client)
	Find(connID string) (*Client, bool)
	// InRoom returns the room's members in the order they joined it.
	InRoom(roomID string) []*Client
	All() []*Client
}

// sliceRegistry keeps connections in connection order and scans linearly.
type sliceRegistry struct {
	clients []*Client
}

func NewRegistry() Registry { return &sliceRegistry{} }

func (r *sliceRegistry) Add(c *Client) {
	if _, ok := r.Find(c.ConnID); ok {
		return
	}
	r.clients = append(r.clients, c)
}

func (r *sliceRegistry) Remove(c *Client) {
	for i, x := range r.clients {
		if x.ConnID == c.ConnID {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			return
		}
	}
}

func (r *sliceRegistry) Find(connID string) (*Client, bool) {
	for _, c := range r.clients {
		if c.ConnID == connID {
			return c, true
		}
	}
	return nil, false
}

func (r *sliceRegistry) InRoom(roomID string) []*Client {
	var out []*Client
	for _, c := range r.clients {
		if c.InRoom(roomID) {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b *Client) int {
		return cmp.Compare(a.rooms[roomID], b.rooms[roomID])
	})
	return out
}

func (r *sliceRegistry) All() []*Client {
	return append([]*Client(nil), r.clients...)
}
