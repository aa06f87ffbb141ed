// Package shape defines the drawable shapes shared by the canvas, the
// renderer and the wire protocol.
//
// A Shape is a strict tagged union: the Geom field holds exactly one of
// Box, Circle, Line, Path or Text, and each visual property has a single
// canonical location.
package shape

import (
	"errors"
	"fmt"

	"github.com/inkroom/inkroom/internal/typeid"
)

// Kind is the wire type tag of a shape.
type Kind string

const (
	KindRect     Kind = "rect"
	KindEllipse  Kind = "ellipse"
	KindTriangle Kind = "triangle"
	KindCircle   Kind = "circle"
	KindLine     Kind = "line"
	KindPath     Kind = "path"
	KindText     Kind = "text"
)

const (
	DefaultFontSize  = 16.0
	DefaultTextColor = "#FFFFFF"
)

var ErrInvalidShape = errors.New("invalid shape")

// Geometry is the kind-specific part of a shape.
type Geometry interface {
	Kind() Kind
	// Bounds returns the world-space bounding box. Text reports a
	// zero-size box at its baseline origin; callers that need glyph
	// extents measure it themselves.
	Bounds() Rect
	// Anchor is the reference point used for dragging and pasting.
	Anchor() Point
	// Translate returns a copy moved by (dx, dy).
	Translate(dx, dy float64) Geometry
	clone() Geometry
}

// Box is a rect, ellipse or triangle spanning (X, Y, Width, Height).
type Box struct {
	Form   Kind
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type Circle struct {
	CenterX float64
	CenterY float64
	Radius  float64
}

type Line struct {
	StartX float64
	StartY float64
	EndX   float64
	EndY   float64
}

type Path struct {
	Points []Point
}

// Text is anchored at its baseline origin.
type Text struct {
	X        float64
	Y        float64
	Text     string
	FontSize float64
	Color    string
}

func (b Box) Kind() Kind         { return b.Form }
func (b Box) Bounds() Rect       { return Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height} }
func (b Box) Anchor() Point      { return Point{X: b.X, Y: b.Y} }
func (b Box) clone() Geometry    { return b }
func (c Circle) Kind() Kind      { return KindCircle }
func (c Circle) Anchor() Point   { return Point{X: c.CenterX, Y: c.CenterY} }
func (c Circle) clone() Geometry { return c }
func (l Line) Kind() Kind        { return KindLine }
func (l Line) Anchor() Point     { return Point{X: l.StartX, Y: l.StartY} }
func (l Line) clone() Geometry   { return l }
func (p Path) Kind() Kind        { return KindPath }
func (t Text) Kind() Kind        { return KindText }
func (t Text) Anchor() Point     { return Point{X: t.X, Y: t.Y} }
func (t Text) Bounds() Rect      { return Rect{X: t.X, Y: t.Y} }
func (t Text) clone() Geometry   { return t }

func (b Box) Translate(dx, dy float64) Geometry {
	b.X += dx
	b.Y += dy
	return b
}

func (c Circle) Bounds() Rect {
	return Rect{X: c.CenterX - c.Radius, Y: c.CenterY - c.Radius, Width: 2 * c.Radius, Height: 2 * c.Radius}
}

func (c Circle) Translate(dx, dy float64) Geometry {
	c.CenterX += dx
	c.CenterY += dy
	return c
}

func (l Line) Bounds() Rect {
	return RectFromPoints(Point{X: l.StartX, Y: l.StartY}, Point{X: l.EndX, Y: l.EndY})
}

func (l Line) Translate(dx, dy float64) Geometry {
	l.StartX += dx
	l.StartY += dy
	l.EndX += dx
	l.EndY += dy
	return l
}

func (p Path) Bounds() Rect { return BoundsOf(p.Points) }

func (p Path) Anchor() Point {
	if len(p.Points) == 0 {
		return Point{}
	}
	return p.Points[0]
}

func (p Path) Translate(dx, dy float64) Geometry {
	pts := make([]Point, len(p.Points))
	for i, pt := range p.Points {
		pts[i] = Point{X: pt.X + dx, Y: pt.Y + dy}
	}
	return Path{Points: pts}
}

func (p Path) clone() Geometry {
	return Path{Points: append([]Point(nil), p.Points...)}
}

func (t Text) Translate(dx, dy float64) Geometry {
	t.X += dx
	t.Y += dy
	return t
}

// Shape is one drawable element on the canvas.
type Shape struct {
	ID    string
	Geom  Geometry
	Style *Style
}

// NewID returns a fresh, time-ordered shape id.
func NewID() string {
	return typeid.NewShapeID()
}

// New builds a shape with a fresh id and a private copy of style.
func New(geom Geometry, style *Style) Shape {
	return Shape{ID: NewID(), Geom: geom, Style: style.Clone()}
}

// Kind returns the type tag, or "" for a shape without geometry.
func (s Shape) Kind() Kind {
	if s.Geom == nil {
		return ""
	}
	return s.Geom.Kind()
}

// Validate reports whether the shape can be stored and rendered.
func (s Shape) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidShape)
	}
	switch g := s.Geom.(type) {
	case nil:
		return fmt.Errorf("%w: %s has no geometry", ErrInvalidShape, s.ID)
	case Box:
		if g.Form != KindRect && g.Form != KindEllipse && g.Form != KindTriangle {
			return fmt.Errorf("%w: %s has box form %q", ErrInvalidShape, s.ID, g.Form)
		}
	case Path:
		if len(g.Points) < 2 {
			return fmt.Errorf("%w: path %s has %d points", ErrInvalidShape, s.ID, len(g.Points))
		}
	}
	return nil
}

// Valid is Validate without the reason.
func (s Shape) Valid() bool {
	return s.Validate() == nil
}

// Clone returns a deep copy sharing no memory with s.
func (s Shape) Clone() Shape {
	out := Shape{ID: s.ID, Style: s.Style.Clone()}
	if s.Geom != nil {
		out.Geom = s.Geom.clone()
	}
	return out
}

// PlacedAt returns a copy with a new id, rigidly translated so its
// anchor lands on p.
func (s Shape) PlacedAt(p Point) Shape {
	out := s.Clone()
	out.ID = NewID()
	if out.Geom == nil {
		return out
	}
	a := out.Geom.Anchor()
	out.Geom = out.Geom.Translate(p.X-a.X, p.Y-a.Y)
	return out
}

// TextColor returns the colour a text shape paints its glyphs with.
func (t Text) TextColor() string {
	if t.Color == "" {
		return DefaultTextColor
	}
	return t.Color
}
