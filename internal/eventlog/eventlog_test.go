package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"

	"github.com/inkroom/inkroom/internal/shape"
)

func rect(id string, x float64) *shape.Shape {
	return &shape.Shape{ID: id, Geom: shape.Box{Form: shape.KindRect, X: x, Width: 10, Height: 10}}
}

func mustEvent(t *testing.T, room string, rec Record) Event {
	t.Helper()
	e, err := NewEvent(room, "user_1", rec)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	return e
}

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backends returns every Log implementation that can run without an
// external server. Set INKROOM_TEST_POSTGRES to include Postgres.
func backends(t *testing.T) map[string]Log {
	t.Helper()
	out := map[string]Log{
		"memory": NewMemory(),
		"sqlite": openTestSQLite(t),
	}
	if url := os.Getenv("INKROOM_TEST_POSTGRES"); url != "" {
		p, err := OpenPostgres(context.Background(), url)
		if err != nil {
			t.Fatalf("OpenPostgres: %v", err)
		}
		t.Cleanup(func() { p.Close() })
		out["postgres"] = p
	}
	return out
}

func TestNewEvent_Rejects(t *testing.T) {
	tests := []struct {
		name string
		room string
		rec  Record
	}{
		{"no room", "", Record{Type: KindCreate, Shape: rect("a", 0)}},
		{"create without shape", "r", Record{Type: KindCreate}},
		{"delete without id", "r", Record{Type: KindDelete}},
		{"unknown kind", "r", Record{Type: "shape_rotate", ShapeID: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEvent(tt.room, "u", tt.rec); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("err = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestReplay(t *testing.T) {
	moved := rect("a", 50)
	events := []Event{
		mustEvent(t, "r", Record{Type: KindCreate, Shape: rect("a", 0)}),
		mustEvent(t, "r", Record{Type: KindCreate, Shape: rect("b", 0)}),
		mustEvent(t, "r", Record{Type: KindCreate, Shape: rect("a", 99)}),
		mustEvent(t, "r", Record{Type: KindUpdate, Shape: moved}),
		mustEvent(t, "r", Record{Type: KindUpdate, Shape: rect("ghost", 0)}),
		mustEvent(t, "r", Record{Type: KindDelete, ShapeID: "b"}),
		mustEvent(t, "r", Record{Type: KindCreate, Shape: rect("c", 0)}),
		{RoomID: "r", Message: json.RawMessage(`{"type":"shape_create","shape":{"type":"blob"}}`)},
	}

	shapes, skipped := Replay(events)
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(shapes) != 2 || shapes[0].ID != "a" || shapes[1].ID != "c" {
		t.Fatalf("shapes = %+v, want [a c]", shapes)
	}
	if shapes[0].Geom.(shape.Box).X != 50 {
		t.Errorf("a not updated: %+v", shapes[0].Geom)
	}
}

func TestReplay_EraseDoesNotResurrect(t *testing.T) {
	events := []Event{
		mustEvent(t, "r", Record{Type: KindCreate, Shape: rect("a", 0)}),
		mustEvent(t, "r", Record{Type: KindDelete, ShapeID: "a"}),
		mustEvent(t, "r", Record{Type: KindUpdate, Shape: rect("a", 5)}),
	}
	if shapes, _ := Replay(events); len(shapes) != 0 {
		t.Errorf("shapes = %+v, want none", shapes)
	}
}

func TestLogs_AppendAndPage(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			room := "room_" + name
			var last int64
			for i := range 5 {
				id, err := l.Append(ctx, mustEvent(t, room, Record{Type: KindCreate, Shape: rect(string(rune('a'+i)), 0)}))
				if err != nil {
					t.Fatalf("Append: %v", err)
				}
				if id <= last {
					t.Fatalf("id %d not increasing after %d", id, last)
				}
				last = id
			}
			if _, err := l.Append(ctx, mustEvent(t, "other", Record{Type: KindDelete, ShapeID: "x"})); err != nil {
				t.Fatalf("Append: %v", err)
			}

			page, err := l.Events(ctx, room, 0, 3)
			if err != nil {
				t.Fatalf("Events: %v", err)
			}
			if len(page) != 3 {
				t.Fatalf("page = %d, want 3", len(page))
			}
			rest, err := l.Events(ctx, room, page[2].ID, 10)
			if err != nil {
				t.Fatalf("Events: %v", err)
			}
			if len(rest) != 2 {
				t.Errorf("rest = %d, want 2", len(rest))
			}

			shapes, skipped, err := Snapshot(ctx, l, room)
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			if len(shapes) != 5 || skipped != 0 {
				t.Errorf("snapshot = %d shapes, %d skipped", len(shapes), skipped)
			}
		})
	}
}

func TestOpenSQLite_WAL(t *testing.T) {
	s := openTestSQLite(t)
	mode, err := s.journalMode()
	if err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	l, err := Open(ctx, "memory://")
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	l.Close()

	l, err = Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "a.db"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	l.Close()

	if _, err := Open(ctx, "mysql://localhost/x"); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("err = %v, want ErrUnknownDriver", err)
	}
}

func TestHandler(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()
	for _, rec := range []Record{
		{Type: KindCreate, Shape: rect("a", 0)},
		{Type: KindCreate, Shape: rect("b", 0)},
		{Type: KindDelete, ShapeID: "a"},
	} {
		if _, err := l.Append(ctx, mustEvent(t, "r1", rec)); err != nil {
			t.Fatal(err)
		}
	}

	h := NewHandler(l)
	r := mux.NewRouter()
	r.HandleFunc("/api/rooms/{roomId}/shapes", h.Shapes).Methods("GET")
	r.HandleFunc("/api/rooms/{roomId}/events", h.Events).Methods("GET")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/r1/shapes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap struct {
		RoomID string            `json:"roomId"`
		Shapes []json.RawMessage `json:"shapes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Shapes) != 1 {
		t.Errorf("shapes = %d, want 1", len(snap.Shapes))
	}
	raw, _ := json.Marshal(snap.Shapes)
	list, skipped, err := shape.DecodeList(raw)
	if err != nil || skipped != 0 || len(list) != 1 || list[0].ID != "b" {
		t.Errorf("decoded = %+v, %d, %v", list, skipped, err)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/r1/events?after=1&limit=1", nil))
	var page struct {
		Events []Event `json:"events"`
		Next   int64   `json:"next"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Events) != 1 || page.Next != 2 {
		t.Errorf("page = %+v", page)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/r1/events?limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/empty/shapes", nil))
	if !json.Valid(rec.Body.Bytes()) || !containsEmptyShapes(rec.Body.String()) {
		t.Errorf("empty room body = %s", rec.Body.String())
	}
}

func containsEmptyShapes(body string) bool {
	var v struct {
		Shapes []any `json:"shapes"`
	}
	return json.Unmarshal([]byte(body), &v) == nil && v.Shapes != nil && len(v.Shapes) == 0
}
