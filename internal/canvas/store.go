// Package canvas holds the ordered shape collection of one drawing
// surface together with its undo history.
//
// Store is not safe for concurrent use; the engine owns it from a single
// goroutine.
package canvas

import (
	"errors"
	"fmt"
	"slices"

	"github.com/inkroom/inkroom/internal/shape"
)

const DefaultHistoryDepth = 50

var ErrDuplicateID = errors.New("duplicate shape id")

type Store struct {
	shapes     []shape.Shape
	history    [][]shape.Shape
	maxHistory int
	measure    Measurer
}

type Option func(*Store)

// WithHistoryDepth caps the number of undo snapshots kept.
func WithHistoryDepth(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// WithMeasurer sets the text metrics used for text hit-testing and bounds.
func WithMeasurer(m Measurer) Option {
	return func(s *Store) {
		if m != nil {
			s.measure = m
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		maxHistory: DefaultHistoryDepth,
		measure:    FallbackMeasurer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetMeasurer swaps the text metrics source, e.g. once fonts are loaded.
func (s *Store) SetMeasurer(m Measurer) {
	if m != nil {
		s.measure = m
	}
}

func (s *Store) Measurer() Measurer { return s.measure }

func (s *Store) Len() int { return len(s.shapes) }

// Add appends a shape on top of the z-order.
func (s *Store) Add(sh shape.Shape) error {
	if err := s.checkNew(sh); err != nil {
		return err
	}
	s.shapes = append(s.shapes, sh)
	return nil
}

// Commit is Add preceded by a history snapshot. A rejected shape leaves
// the history as it was.
func (s *Store) Commit(sh shape.Shape) error {
	if err := s.checkNew(sh); err != nil {
		return err
	}
	s.PushHistory()
	s.shapes = append(s.shapes, sh)
	return nil
}

func (s *Store) checkNew(sh shape.Shape) error {
	if err := sh.Validate(); err != nil {
		return fmt.Errorf("add shape: %w", err)
	}
	if s.index(sh.ID) >= 0 {
		return fmt.Errorf("add shape %s: %w", sh.ID, ErrDuplicateID)
	}
	return nil
}

// Update replaces the shape with the same id in place, keeping its
// z-order. It reports false when the id is unknown or sh is invalid.
func (s *Store) Update(sh shape.Shape) bool {
	if !sh.Valid() {
		return false
	}
	i := s.index(sh.ID)
	if i < 0 {
		return false
	}
	s.shapes[i] = sh
	return true
}

// Delete removes the shape with the given id. Deleting an absent id is a
// no-op that reports false.
func (s *Store) Delete(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.shapes = slices.Delete(s.shapes, i, i+1)
	return true
}

func (s *Store) Get(id string) (shape.Shape, bool) {
	i := s.index(id)
	if i < 0 {
		return shape.Shape{}, false
	}
	return s.shapes[i], true
}

func (s *Store) Has(id string) bool { return s.index(id) >= 0 }

// Shapes returns the valid shapes in z-order. The slice is a copy; the
// shapes themselves must be treated as read-only.
func (s *Store) Shapes() []shape.Shape {
	out := make([]shape.Shape, 0, len(s.shapes))
	for _, sh := range s.shapes {
		if sh.Valid() {
			out = append(out, sh)
		}
	}
	return out
}

// Load replaces the contents with a snapshot fetched at room join,
// dropping invalid records and duplicate ids. History is cleared.
func (s *Store) Load(shapes []shape.Shape) (skipped int) {
	s.shapes = s.shapes[:0]
	s.history = nil
	for _, sh := range shapes {
		if err := s.Add(sh); err != nil {
			skipped++
		}
	}
	return skipped
}

// Sweep drops entries that lost their id or geometry and returns how many
// were removed.
func (s *Store) Sweep() int {
	before := len(s.shapes)
	s.shapes = slices.DeleteFunc(s.shapes, func(sh shape.Shape) bool {
		return !sh.Valid()
	})
	return before - len(s.shapes)
}

// Bounds returns the union of all shape bounds; ok is false for an empty
// store.
func (s *Store) Bounds() (r shape.Rect, ok bool) {
	for _, sh := range s.shapes {
		if !sh.Valid() {
			continue
		}
		b := s.ShapeBounds(sh)
		if !ok {
			r, ok = b, true
			continue
		}
		r = r.Union(b)
	}
	return r, ok
}

// ShapeBounds is Geometry.Bounds with text measured.
func (s *Store) ShapeBounds(sh shape.Shape) shape.Rect {
	if t, ok := sh.Geom.(shape.Text); ok {
		return TextBounds(t, s.measure)
	}
	return sh.Geom.Bounds()
}

// Snapshot returns a deep copy of the current shapes.
func (s *Store) Snapshot() []shape.Shape {
	out := make([]shape.Shape, len(s.shapes))
	for i, sh := range s.shapes {
		out[i] = sh.Clone()
	}
	return out
}

// Restore replaces the live shapes wholesale with a copy of snap.
func (s *Store) Restore(snap []shape.Shape) {
	s.shapes = make([]shape.Shape, len(snap))
	for i, sh := range snap {
		s.shapes[i] = sh.Clone()
	}
}

// PushHistory records the current state before a mutating create. The
// oldest snapshot is dropped past the depth cap.
func (s *Store) PushHistory() {
	s.history = append(s.history, s.Snapshot())
	if len(s.history) > s.maxHistory {
		s.history = slices.Delete(s.history, 0, len(s.history)-s.maxHistory)
	}
}

// Undo pops the most recent snapshot and makes it live. There is no redo.
func (s *Store) Undo() bool {
	n := len(s.history)
	if n == 0 {
		return false
	}
	snap := s.history[n-1]
	s.history = s.history[:n-1]
	s.shapes = snap
	return true
}

func (s *Store) HistoryLen() int { return len(s.history) }

func (s *Store) index(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.shapes, func(sh shape.Shape) bool { return sh.ID == id })
}
