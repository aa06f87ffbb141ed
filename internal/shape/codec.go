package shape

import (
	"encoding/json"
	"fmt"
)

// wireShape is the flat JSON form every client and the event log use:
// {"id", "type", <kind fields>, "style"?}.
type wireShape struct {
	ID    string `json:"id"`
	Type  Kind   `json:"type"`
	Style *Style `json:"style,omitempty"`

	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	CenterX *float64 `json:"centerX,omitempty"`
	CenterY *float64 `json:"centerY,omitempty"`
	Radius  *float64 `json:"radius,omitempty"`

	StartX *float64 `json:"startX,omitempty"`
	StartY *float64 `json:"startY,omitempty"`
	EndX   *float64 `json:"endX,omitempty"`
	EndY   *float64 `json:"endY,omitempty"`

	Points []Point `json:"points,omitempty"`

	Text     *string  `json:"text,omitempty"`
	FontSize *float64 `json:"fontSize,omitempty"`
	Color    *string  `json:"color,omitempty"`
}

func num(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func (s Shape) MarshalJSON() ([]byte, error) {
	w := wireShape{ID: s.ID, Type: s.Kind(), Style: s.Style}
	switch g := s.Geom.(type) {
	case Box:
		w.X, w.Y, w.Width, w.Height = num(g.X), num(g.Y), num(g.Width), num(g.Height)
	case Circle:
		w.CenterX, w.CenterY, w.Radius = num(g.CenterX), num(g.CenterY), num(g.Radius)
	case Line:
		w.StartX, w.StartY, w.EndX, w.EndY = num(g.StartX), num(g.StartY), num(g.EndX), num(g.EndY)
	case Path:
		w.Points = g.Points
		if w.Points == nil {
			w.Points = []Point{}
		}
	case Text:
		w.X, w.Y, w.Text, w.FontSize, w.Color = num(g.X), num(g.Y), str(g.Text), num(g.FontSize), str(g.Color)
	case nil:
		return nil, fmt.Errorf("marshal shape %s: %w: no geometry", s.ID, ErrInvalidShape)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the flat wire form. Records with an empty id, an
// unknown type or a path of fewer than two points are rejected with
// ErrInvalidShape.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var w wireShape
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := Shape{ID: w.ID, Style: w.Style}
	switch w.Type {
	case KindRect, KindEllipse, KindTriangle:
		out.Geom = Box{Form: w.Type, X: val(w.X), Y: val(w.Y), Width: val(w.Width), Height: val(w.Height)}
	case KindCircle:
		out.Geom = Circle{CenterX: val(w.CenterX), CenterY: val(w.CenterY), Radius: val(w.Radius)}
	case KindLine:
		out.Geom = Line{StartX: val(w.StartX), StartY: val(w.StartY), EndX: val(w.EndX), EndY: val(w.EndY)}
	case KindPath:
		out.Geom = Path{Points: w.Points}
	case KindText:
		t := Text{X: val(w.X), Y: val(w.Y), FontSize: val(w.FontSize)}
		if w.Text != nil {
			t.Text = *w.Text
		}
		if w.Color != nil {
			t.Color = *w.Color
		}
		// The top-level color is canonical; older clients only set
		// style.textColor.
		if t.Color == "" && w.Style != nil {
			t.Color = w.Style.TextColor
		}
		if t.FontSize <= 0 {
			t.FontSize = DefaultFontSize
		}
		out.Geom = t
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidShape, w.Type)
	}

	if err := out.Validate(); err != nil {
		return err
	}
	*s = out
	return nil
}

// DecodeList decodes a JSON array of shapes, skipping records that fail
// validation. It returns the number of records skipped.
func DecodeList(data []byte) ([]Shape, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode shape list: %w", err)
	}
	shapes := make([]Shape, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		var s Shape
		if err := json.Unmarshal(r, &s); err != nil {
			skipped++
			continue
		}
		shapes = append(shapes, s)
	}
	return shapes, skipped, nil
}
