package canvas

import (
	"unicode/utf8"

	"github.com/inkroom/inkroom/internal/shape"
)

// HitTolerance is the screen-pixel slack for hitting lines and paths.
const HitTolerance = 6.0

// Measurer reports the advance width and line height of a string set at
// fontSize, in the same units as fontSize.
type Measurer interface {
	Measure(text string, fontSize float64) (w, h float64)
}

// FallbackMeasurer approximates glyph advances when no font is loaded.
type FallbackMeasurer struct{}

func (FallbackMeasurer) Measure(text string, fontSize float64) (float64, float64) {
	return 0.6 * fontSize * float64(utf8.RuneCountInString(text)), fontSize
}

// TextBounds returns the box above the baseline covering the text. Empty
// text still gets a square the size of one em so it remains clickable.
func TextBounds(t shape.Text, m Measurer) shape.Rect {
	w, _ := m.Measure(t.Text, t.FontSize)
	if t.Text == "" {
		w = t.FontSize
	}
	return shape.Rect{X: t.X, Y: t.Y - t.FontSize, Width: w, Height: t.FontSize}
}

// FindAt returns the topmost valid shape under the world point. scale is
// the current zoom, used to keep the line tolerance constant on screen.
func (s *Store) FindAt(x, y, scale float64) (shape.Shape, bool) {
	for i := len(s.shapes) - 1; i >= 0; i-- {
		sh := s.shapes[i]
		if !sh.Valid() {
			continue
		}
		if Hit(sh, x, y, scale, s.measure) {
			return sh, true
		}
	}
	return shape.Shape{}, false
}

// Hit reports whether the world point (x, y) touches sh.
func Hit(sh shape.Shape, x, y, scale float64, m Measurer) bool {
	p := shape.Point{X: x, Y: y}
	tol := HitTolerance / scale

	switch g := sh.Geom.(type) {
	case shape.Box:
		return g.Bounds().Contains(x, y)
	case shape.Circle:
		return p.Dist(shape.Point{X: g.CenterX, Y: g.CenterY}) <= g.Radius
	case shape.Line:
		return shape.SegmentDistance(p, shape.Point{X: g.StartX, Y: g.StartY}, shape.Point{X: g.EndX, Y: g.EndY}) <= tol
	case shape.Path:
		for i := 0; i+1 < len(g.Points); i++ {
			if shape.SegmentDistance(p, g.Points[i], g.Points[i+1]) <= tol {
				return true
			}
		}
	case shape.Text:
		return TextBounds(g, m).Contains(x, y)
	}
	return false
}
