package shape

import "encoding/json"

type StrokePattern string

const (
	StrokeSolid   StrokePattern = "solid"
	StrokeDashed  StrokePattern = "dashed"
	StrokeDotted  StrokePattern = "dotted"
	StrokeDashDot StrokePattern = "dash-dot"
)

type GradientType string

const (
	GradientNone   GradientType = "none"
	GradientLinear GradientType = "linear"
	GradientRadial GradientType = "radial"
)

type StrokeStyle struct {
	Type      StrokePattern `json:"type"`
	Width     float64       `json:"width"`
	DashArray []float64     `json:"dashArray,omitempty"`
}

// Dashes returns the dash lengths for the pattern. A custom DashArray
// takes precedence; nil means a solid line.
func (s StrokeStyle) Dashes() []float64 {
	if len(s.DashArray) > 0 {
		return s.DashArray
	}
	switch s.Type {
	case StrokeDashed:
		return []float64{10, 5}
	case StrokeDotted:
		return []float64{2, 3}
	case StrokeDashDot:
		return []float64{10, 5, 2, 5}
	}
	return nil
}

type Gradient struct {
	Type    GradientType `json:"type"`
	Colors  []string     `json:"colors"`
	Stops   []float64    `json:"stops"`
	Angle   *float64     `json:"angle,omitempty"`
	CenterX *float64     `json:"centerX,omitempty"`
	CenterY *float64     `json:"centerY,omitempty"`
}

// Style is the visual snapshot a shape carries from the moment it was
// created.
type Style struct {
	FillColor   string      `json:"fillColor"`
	StrokeColor string      `json:"strokeColor"`
	StrokeWidth float64     `json:"strokeWidth"`
	StrokeStyle StrokeStyle `json:"strokeStyle"`
	Opacity     float64     `json:"opacity"`
	Gradient    *Gradient   `json:"gradient,omitempty"`
	TextColor   string      `json:"textColor,omitempty"`
	DesignColor string      `json:"designColor,omitempty"`
}

// DefaultStyle is the style a fresh session starts drawing with.
func DefaultStyle() *Style {
	return &Style{
		FillColor:   "#E3F2FD",
		StrokeColor: "#1976D2",
		StrokeWidth: 2,
		StrokeStyle: StrokeStyle{Type: StrokeSolid, Width: 2},
		Opacity:     1,
	}
}

// Clone returns a deep copy. A nil style clones to nil.
func (s *Style) Clone() *Style {
	if s == nil {
		return nil
	}
	out := *s
	out.StrokeStyle.DashArray = append([]float64(nil), s.StrokeStyle.DashArray...)
	if s.Gradient != nil {
		g := *s.Gradient
		g.Colors = append([]string(nil), s.Gradient.Colors...)
		g.Stops = append([]float64(nil), s.Gradient.Stops...)
		g.Angle = clonePtr(s.Gradient.Angle)
		g.CenterX = clonePtr(s.Gradient.CenterX)
		g.CenterY = clonePtr(s.Gradient.CenterY)
		out.Gradient = &g
	}
	return &out
}

// HasGradient reports whether fills should use the gradient.
func (s *Style) HasGradient() bool {
	return s != nil && s.Gradient != nil && s.Gradient.Type != GradientNone &&
		len(s.Gradient.Colors) > 0
}

// UnmarshalJSON defaults a missing opacity to fully opaque.
func (s *Style) UnmarshalJSON(data []byte) error {
	type alias Style
	a := alias{Opacity: 1}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = Style(a)
	return nil
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
