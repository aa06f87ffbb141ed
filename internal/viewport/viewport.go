// Package viewport maps between screen pixels and world coordinates.
package viewport

import "github.com/inkroom/inkroom/internal/shape"

const (
	DefaultMinScale = 0.1
	DefaultMaxScale = 5.0

	// fitPadding is the world-space margin added around shapes by Reset.
	fitPadding = 100.0
)

// State is the observable part of a viewport, published to overlay
// widgets whenever it changes.
type State struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// Viewport holds the pan offset and zoom scale of one canvas.
// screen = world*scale + offset.
type Viewport struct {
	scale    float64
	offsetX  float64
	offsetY  float64
	width    float64
	height   float64
	minScale float64
	maxScale float64
}

type Option func(*Viewport)

// WithScaleBounds overrides the zoom clamp.
func WithScaleBounds(minScale, maxScale float64) Option {
	return func(v *Viewport) {
		v.minScale = minScale
		v.maxScale = maxScale
	}
}

// New returns an identity viewport for a canvas of the given pixel size.
func New(width, height float64, opts ...Option) *Viewport {
	v := &Viewport{
		scale:    1,
		width:    width,
		height:   height,
		minScale: DefaultMinScale,
		maxScale: DefaultMaxScale,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Viewport) Scale() float64 { return v.scale }

func (v *Viewport) Size() (float64, float64) { return v.width, v.height }

func (v *Viewport) State() State {
	return State{Scale: v.scale, OffsetX: v.offsetX, OffsetY: v.offsetY}
}

// Resize updates the canvas dimensions without moving the view.
func (v *Viewport) Resize(width, height float64) {
	v.width = width
	v.height = height
}

// Matrix returns the world-to-screen transform.
func (v *Viewport) Matrix() Matrix2D {
	return Translate(v.offsetX, v.offsetY).Multiply(Scale(v.scale, v.scale))
}

func (v *Viewport) WorldToScreen(x, y float64) (float64, float64) {
	return v.Matrix().TransformPoint(x, y)
}

func (v *Viewport) ScreenToWorld(x, y float64) (float64, float64) {
	return v.Matrix().Invert().TransformPoint(x, y)
}

// ScreenPoint converts a screen position into a world point.
func (v *Viewport) ScreenPoint(x, y float64) shape.Point {
	wx, wy := v.ScreenToWorld(x, y)
	return shape.Point{X: wx, Y: wy}
}

// Zoom multiplies the scale by factor, clamped to the bounds, keeping the
// screen point (cx, cy) over the same world point. It reports whether the
// scale changed.
func (v *Viewport) Zoom(factor, cx, cy float64) bool {
	old := v.scale
	v.scale = v.clamp(v.scale * factor)
	if v.scale == old {
		return false
	}
	ratio := v.scale / old
	v.offsetX = cx - (cx-v.offsetX)*ratio
	v.offsetY = cy - (cy-v.offsetY)*ratio
	return true
}

// Pan shifts the view by a screen-space delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.offsetX += dx
	v.offsetY += dy
}

// Reset centers the world origin at scale 1 when there is nothing to
// show; otherwise it fits the padded bounds into the canvas without
// zooming in past 1.
func (v *Viewport) Reset(bounds shape.Rect, empty bool) {
	if empty {
		v.scale = 1
		v.offsetX = v.width / 2
		v.offsetY = v.height / 2
		return
	}

	padded := bounds.Pad(fitPadding)
	v.scale = v.clamp(min(v.width/padded.Width, v.height/padded.Height, 1))

	c := padded.Center()
	v.offsetX = v.width/2 - c.X*v.scale
	v.offsetY = v.height/2 - c.Y*v.scale
}

// Visible returns the world-space rect currently on screen.
func (v *Viewport) Visible() shape.Rect {
	return v.Matrix().Invert().TransformRect(shape.Rect{Width: v.width, Height: v.height})
}

func (v *Viewport) clamp(s float64) float64 {
	return max(v.minScale, min(v.maxScale, s))
}
