package gesture

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/inkroom/inkroom/internal/canvas"
	"github.com/inkroom/inkroom/internal/shape"
)

// HandleSize is the on-screen edge length of a resize handle, in pixels.
const HandleSize = 16.0

const (
	minBoxSize    = 10.0
	minRadius     = 5.0
	minFontSize   = 8.0
	maxFontSize   = 72.0
	fontScaleStep = 200.0
)

// Handle is a resize grip centered on a world-space point.
type Handle struct {
	Name string  `json:"handle"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Handles returns the resize grips for sh. Lines and paths have none.
func Handles(sh shape.Shape, m canvas.Measurer) []Handle {
	switch g := sh.Geom.(type) {
	case shape.Box:
		x0, y0 := g.X, g.Y
		x1, y1 := g.X+g.Width, g.Y+g.Height
		mx, my := g.X+g.Width/2, g.Y+g.Height/2
		return []Handle{
			{"nw", x0, y0}, {"ne", x1, y0}, {"sw", x0, y1}, {"se", x1, y1},
			{"n", mx, y0}, {"s", mx, y1}, {"w", x0, my}, {"e", x1, my},
		}
	case shape.Circle:
		hs := make([]Handle, 8)
		for i := range hs {
			a := float64(i) * math.Pi / 4
			hs[i] = Handle{
				Name: fmt.Sprintf("circle-%d", i),
				X:    g.CenterX + math.Cos(a)*g.Radius,
				Y:    g.CenterY + math.Sin(a)*g.Radius,
			}
		}
		return hs
	case shape.Text:
		b := canvas.TextBounds(g, m)
		return []Handle{
			{"nw", b.X, b.Y}, {"ne", b.X + b.Width, b.Y},
			{"sw", b.X, b.Y + b.Height}, {"se", b.X + b.Width, b.Y + b.Height},
		}
	}
	return nil
}

// HandleAt returns the grip of sh under the world point, if any. The hit
// box is HandleSize screen pixels wide at the given scale.
func HandleAt(sh shape.Shape, p shape.Point, scale float64, m canvas.Measurer) (string, bool) {
	half := HandleSize / 2 / scale
	for _, h := range Handles(sh, m) {
		if math.Abs(p.X-h.X) <= half && math.Abs(p.Y-h.Y) <= half {
			return h.Name, true
		}
	}
	return "", false
}

// Resize applies a drag of (dx, dy) world units on handle to the shape as
// it was when the drag started.
func Resize(orig shape.Shape, handle string, dx, dy float64) shape.Shape {
	out := orig.Clone()
	switch g := orig.Geom.(type) {
	case shape.Box:
		b := g
		if strings.Contains(handle, "w") {
			b.X += dx
			b.Width -= dx
		}
		if strings.Contains(handle, "e") {
			b.Width += dx
		}
		if strings.Contains(handle, "n") {
			b.Y += dy
			b.Height -= dy
		}
		if strings.Contains(handle, "s") {
			b.Height += dy
		}
		b.Width = max(minBoxSize, b.Width)
		b.Height = max(minBoxSize, b.Height)
		out.Geom = b
	case shape.Circle:
		i, err := strconv.Atoi(strings.TrimPrefix(handle, "circle-"))
		if err != nil {
			return out
		}
		a := float64(i) * math.Pi / 4
		c := g
		c.Radius = max(minRadius, g.Radius+math.Cos(a)*dx+math.Sin(a)*dy)
		out.Geom = c
	case shape.Text:
		t := g
		t.FontSize = max(minFontSize, min(maxFontSize, g.FontSize*(1+(dx+dy)/fontScaleStep)))
		out.Geom = t
	}
	return out
}
