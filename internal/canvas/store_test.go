package canvas

import (
	"errors"
	"testing"

	"github.com/inkroom/inkroom/internal/shape"
)

func rect(id string, x, y, w, h float64) shape.Shape {
	return shape.Shape{ID: id, Geom: shape.Box{Form: shape.KindRect, X: x, Y: y, Width: w, Height: h}}
}

func TestAddUpdateDelete(t *testing.T) {
	s := New()
	if err := s.Add(rect("a", 0, 0, 10, 10)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(rect("a", 5, 5, 1, 1)); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate add err = %v, want ErrDuplicateID", err)
	}
	if err := s.Add(shape.Shape{Geom: shape.Circle{Radius: 1}}); !errors.Is(err, shape.ErrInvalidShape) {
		t.Errorf("invalid add err = %v, want ErrInvalidShape", err)
	}

	if !s.Update(rect("a", 1, 1, 10, 10)) {
		t.Error("update of existing id returned false")
	}
	if s.Update(rect("missing", 1, 1, 10, 10)) {
		t.Error("update of missing id returned true")
	}
	got, _ := s.Get("a")
	if got.Geom.(shape.Box).X != 1 {
		t.Errorf("x = %v after update, want 1", got.Geom.(shape.Box).X)
	}

	if !s.Delete("a") || s.Delete("a") {
		t.Error("delete should succeed once then be a no-op")
	}
	if s.Len() != 0 {
		t.Errorf("len = %d, want 0", s.Len())
	}
}

func TestDrawThenErase_Interleaved(t *testing.T) {
	s := New()
	_ = s.Add(rect("x", 0, 0, 1, 1))
	_ = s.Add(rect("other1", 0, 0, 1, 1))
	s.Delete("x")
	_ = s.Add(rect("other2", 0, 0, 1, 1))
	s.Delete("x")

	if s.Has("x") {
		t.Error("erased id still present")
	}
	if s.Len() != 2 {
		t.Errorf("len = %d, want 2", s.Len())
	}
}

func TestUndo_ThreeDrawsTwoUndos(t *testing.T) {
	s := New()
	_ = s.Add(rect("base", 0, 0, 1, 1))
	initial := s.Len()

	for _, id := range []string{"first", "second", "third"} {
		s.PushHistory()
		if err := s.Add(rect(id, 0, 0, 5, 5)); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	s.Undo()
	s.Undo()

	if s.Len() != initial+1 {
		t.Fatalf("len = %d, want %d", s.Len(), initial+1)
	}
	shapes := s.Shapes()
	if shapes[len(shapes)-1].ID != "first" {
		t.Errorf("top shape = %s, want first", shapes[len(shapes)-1].ID)
	}
}

func TestUndo_Empty(t *testing.T) {
	s := New()
	if s.Undo() {
		t.Error("undo on empty history returned true")
	}
}

func TestHistory_Capped(t *testing.T) {
	s := New(WithHistoryDepth(3))
	for i := range 5 {
		s.PushHistory()
		_ = s.Add(rect(string(rune('a'+i)), 0, 0, 1, 1))
	}
	if s.HistoryLen() != 3 {
		t.Fatalf("history = %d, want 3", s.HistoryLen())
	}
	for s.Undo() {
	}
	// Oldest surviving snapshot was taken after two adds.
	if s.Len() != 2 {
		t.Errorf("len after full undo = %d, want 2", s.Len())
	}
}

func TestSnapshot_IsDeep(t *testing.T) {
	s := New()
	_ = s.Add(shape.Shape{ID: "p", Geom: shape.Path{Points: []shape.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}}})
	snap := s.Snapshot()
	snap[0].Geom.(shape.Path).Points[0].X = 42

	got, _ := s.Get("p")
	if got.Geom.(shape.Path).Points[0].X != 0 {
		t.Error("snapshot shares point storage with the store")
	}
}

func TestSweep_DropsInvalid(t *testing.T) {
	s := New()
	s.Restore([]shape.Shape{
		rect("ok", 0, 0, 1, 1),
		{ID: "", Geom: shape.Circle{Radius: 1}},
		{ID: "nogeom"},
	})
	if n := s.Sweep(); n != 2 {
		t.Errorf("swept %d, want 2", n)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestLoad_SkipsDuplicates(t *testing.T) {
	s := New()
	skipped := s.Load([]shape.Shape{rect("a", 0, 0, 1, 1), rect("a", 2, 2, 1, 1), {ID: "b"}})
	if skipped != 2 || s.Len() != 1 {
		t.Errorf("skipped=%d len=%d, want 2 and 1", skipped, s.Len())
	}
}

func TestBounds(t *testing.T) {
	s := New()
	if _, ok := s.Bounds(); ok {
		t.Error("empty store reported bounds")
	}
	_ = s.Add(rect("a", 0, 0, 10, 10))
	_ = s.Add(shape.Shape{ID: "c", Geom: shape.Circle{CenterX: 50, CenterY: 50, Radius: 10}})
	r, ok := s.Bounds()
	if !ok || r != (shape.Rect{X: 0, Y: 0, Width: 60, Height: 60}) {
		t.Errorf("bounds = %+v, %v", r, ok)
	}
}

func TestCommit_RejectLeavesHistory(t *testing.T) {
	s := New()
	if err := s.Commit(rect("a", 0, 0, 10, 10)); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(rect("a", 5, 5, 1, 1)); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate commit err = %v, want ErrDuplicateID", err)
	}
	if err := s.Commit(shape.Shape{Geom: shape.Circle{Radius: 1}}); !errors.Is(err, shape.ErrInvalidShape) {
		t.Errorf("invalid commit err = %v, want ErrInvalidShape", err)
	}
	if s.HistoryLen() != 1 || s.Len() != 1 {
		t.Errorf("history = %d, len = %d, want 1 and 1", s.HistoryLen(), s.Len())
	}
	if !s.Undo() || s.Len() != 0 {
		t.Errorf("len after undo = %d, want 0", s.Len())
	}
}
