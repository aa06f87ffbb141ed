// Package eventlog is the append-only record of shape mutations per room.
// A room's current shapes are rebuilt by replaying its log in id order.
package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inkroom/inkroom/internal/shape"
)

var (
	ErrUnknownDriver = errors.New("unknown database driver")
	ErrInvalidEvent  = errors.New("invalid event")
)

// Kind is the mutation a record describes.
type Kind string

const (
	KindCreate Kind = "shape_create"
	KindUpdate Kind = "shape_update"
	KindDelete Kind = "shape_delete"
)

// DefaultPageSize bounds one Events read.
const DefaultPageSize = 500

// Record is the JSON message stored per event.
type Record struct {
	Type      Kind         `json:"type"`
	Shape     *shape.Shape `json:"shape,omitempty"`
	ShapeID   string       `json:"shapeId,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

func (r Record) id() string {
	if r.Shape != nil {
		return r.Shape.ID
	}
	return r.ShapeID
}

// Event is one stored row. Message is kept raw so a single corrupt row
// cannot fail a whole read.
type Event struct {
	ID        int64           `json:"id"`
	RoomID    string          `json:"roomId"`
	UserID    string          `json:"userId"`
	Message   json.RawMessage `json:"message"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent encodes rec for roomID. The id is assigned by Append.
func NewEvent(roomID, userID string, rec Record) (Event, error) {
	if roomID == "" {
		return Event{}, fmt.Errorf("%w: empty room", ErrInvalidEvent)
	}
	switch rec.Type {
	case KindCreate, KindUpdate:
		if rec.Shape == nil {
			return Event{}, fmt.Errorf("%w: %s without shape", ErrInvalidEvent, rec.Type)
		}
	case KindDelete:
		if rec.ShapeID == "" {
			return Event{}, fmt.Errorf("%w: delete without shape id", ErrInvalidEvent)
		}
	default:
		return Event{}, fmt.Errorf("%w: type %q", ErrInvalidEvent, rec.Type)
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}
	msg, err := json.Marshal(rec)
	if err != nil {
		return Event{}, fmt.Errorf("encode record: %w", err)
	}
	return Event{RoomID: roomID, UserID: userID, Message: msg, CreatedAt: time.Now().UTC()}, nil
}

// Record decodes the stored message with the strict shape codec.
func (e Event) Record() (Record, error) {
	var rec Record
	if err := json.Unmarshal(e.Message, &rec); err != nil {
		return Record{}, fmt.Errorf("decode event %d: %w", e.ID, err)
	}
	return rec, nil
}

// Log is an append-only event store.
type Log interface {
	// Append stores e and returns its id. Ids increase per log.
	Append(ctx context.Context, e Event) (int64, error)
	// Events returns up to limit events of roomID with id > after,
	// ascending.
	Events(ctx context.Context, roomID string, after int64, limit int) ([]Event, error)
	Close() error
}

// Open picks a backend from a database URL: postgres:// and
// postgresql:// use pgx, memory:// keeps events in process, sqlite://path
// or a bare path use SQLite.
func Open(ctx context.Context, dbURL string) (Log, error) {
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return OpenPostgres(ctx, dbURL)
	case dbURL == "memory://":
		return NewMemory(), nil
	case strings.HasPrefix(dbURL, "sqlite://"):
		return OpenSQLite(strings.TrimPrefix(dbURL, "sqlite://"))
	case strings.Contains(dbURL, "://"), dbURL == "":
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, dbURL)
	}
	return OpenSQLite(dbURL)
}

// Replay folds events into the resulting shape list. A create for an id
// already present and an update or delete for an absent id are no-ops,
// matching how clients apply the same messages. Undecodable events are
// counted in skipped.
func Replay(events []Event) (shapes []shape.Shape, skipped int) {
	index := make(map[string]int)
	for _, e := range events {
		rec, err := e.Record()
		if err != nil || rec.id() == "" {
			skipped++
			continue
		}
		id := rec.id()
		i, exists := index[id]
		switch rec.Type {
		case KindCreate:
			if !exists {
				index[id] = len(shapes)
				shapes = append(shapes, *rec.Shape)
			}
		case KindUpdate:
			if exists && rec.Shape != nil {
				shapes[i] = *rec.Shape
			}
		case KindDelete:
			if exists {
				shapes = append(shapes[:i], shapes[i+1:]...)
				delete(index, id)
				for k, j := range index {
					if j > i {
						index[k] = j - 1
					}
				}
			}
		default:
			skipped++
		}
	}
	return shapes, skipped
}

// Snapshot pages through a room's whole log and replays it.
func Snapshot(ctx context.Context, src Log, roomID string) ([]shape.Shape, int, error) {
	var all []Event
	var after int64
	for {
		page, err := src.Events(ctx, roomID, after, DefaultPageSize)
		if err != nil {
			return nil, 0, fmt.Errorf("read room %s: %w", roomID, err)
		}
		all = append(all, page...)
		if len(page) < DefaultPageSize {
			break
		}
		after = page[len(page)-1].ID
	}
	shapes, skipped := Replay(all)
	return shapes, skipped, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > DefaultPageSize {
		return DefaultPageSize
	}
	return limit
}
