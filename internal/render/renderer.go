// Package render paints the shape store, the gesture overlay and remote
// cursors into a raster image with gg.
package render

import (
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"io"
	"log/slog"
	"math"

	"github.com/gogpu/gg"

	"github.com/inkroom/inkroom/internal/canvas"
	"github.com/inkroom/inkroom/internal/gesture"
	"github.com/inkroom/inkroom/internal/shape"
	"github.com/inkroom/inkroom/internal/viewport"
)

const (
	gridStep      = 50.0
	minGridPixels = 4.0
	minTextPixels = 12.0
	cursorMargin  = 50.0
	cursorRadius  = 6.0
	selectionPad  = 2.0
)

var (
	background     = gg.Hex("#0F172A")
	gridLine       = gg.RGBA2(1, 1, 1, 0.03)
	selectionColor = gg.Hex("#FCD34D")
	handleFill     = gg.Hex("#FF6B6B")
	handleBorder   = gg.RGBA2(1, 1, 1, 1)
	previewColor   = gg.Hex("#9CA3AF")
	textBackdrop   = gg.RGBA2(0, 0, 0, 0.25)
	chipColor      = gg.RGBA2(0, 0, 0, 0.7)
	drawingDot     = gg.Hex("#EF4444")

	peerPalette = []string{
		"#F97316", "#22C55E", "#3B82F6", "#A855F7",
		"#EC4899", "#14B8A6", "#EAB308", "#06B6D4",
	}
)

// Cursor is a remote participant's pointer in world coordinates.
type Cursor struct {
	UserID  string
	Name    string
	X       float64
	Y       float64
	Drawing bool
	Color   string
}

// PeerColor picks a stable display color for a user id.
func PeerColor(userID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return peerPalette[h.Sum32()%uint32(len(peerPalette))]
}

// Frame is everything one repaint needs.
type Frame struct {
	Shapes   []shape.Shape
	Viewport *viewport.Viewport
	Overlay  gesture.Overlay
	Cursors  []Cursor
}

// Renderer owns the raster target. It is driven from one goroutine.
type Renderer struct {
	dc    *gg.Context
	fonts *Fonts
	log   *slog.Logger
}

type Option func(*Renderer)

// WithFonts enables text rendering. Without fonts text shapes only get
// their backdrop and the canvas uses the fallback measurer.
func WithFonts(f *Fonts) Option {
	return func(r *Renderer) { r.fonts = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

func New(width, height int, opts ...Option) *Renderer {
	r := &Renderer{dc: gg.NewContext(width, height), log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Measurer returns the text metrics the renderer paints with.
func (r *Renderer) Measurer() canvas.Measurer {
	if r.fonts != nil {
		return r.fonts
	}
	return canvas.FallbackMeasurer{}
}

func (r *Renderer) Size() (int, int) { return r.dc.Width(), r.dc.Height() }

func (r *Renderer) Resize(width, height int) error {
	if err := r.dc.Resize(width, height); err != nil {
		return fmt.Errorf("resize canvas: %w", err)
	}
	return nil
}

func (r *Renderer) Image() image.Image { return r.dc.Image() }

func (r *Renderer) EncodePNG(w io.Writer) error {
	if err := r.dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func (r *Renderer) Close() error { return r.dc.Close() }

// Draw repaints the whole canvas. A shape that fails to paint is logged
// and skipped so one bad record cannot blank the frame.
func (r *Renderer) Draw(f Frame) error {
	vp := f.Viewport
	r.dc.ClearWithColor(background)
	if err := r.paintGrid(vp); err != nil {
		return fmt.Errorf("paint grid: %w", err)
	}

	for _, sh := range f.Shapes {
		if !sh.Valid() {
			continue
		}
		if err := r.paintShape(sh, vp, f.Overlay); err != nil {
			r.log.Warn("paint shape", "id", sh.ID, "error", err)
		}
	}

	var errs []error
	if f.Overlay.Selected != nil {
		errs = append(errs, r.paintSelection(*f.Overlay.Selected, f.Overlay.Handles, vp))
	}
	errs = append(errs, r.paintPreview(f.Overlay, vp))
	for _, c := range f.Cursors {
		errs = append(errs, r.paintCursor(c, vp))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("paint overlay: %w", err)
	}
	return nil
}

func (r *Renderer) paintGrid(vp *viewport.Viewport) error {
	st := vp.State()
	step := gridStep * st.Scale
	if step < minGridPixels {
		return nil
	}
	w, h := float64(r.dc.Width()), float64(r.dc.Height())

	r.dc.SetStrokeBrush(gg.Solid(gridLine))
	r.dc.SetLineWidth(1)
	r.dc.ClearDash()
	for x := math.Mod(st.OffsetX, step); x <= w; x += step {
		if x < 0 {
			continue
		}
		r.dc.MoveTo(x, 0)
		r.dc.LineTo(x, h)
	}
	for y := math.Mod(st.OffsetY, step); y <= h; y += step {
		if y < 0 {
			continue
		}
		r.dc.MoveTo(0, y)
		r.dc.LineTo(w, y)
	}
	return r.dc.Stroke()
}

// tracePath adds the outline of g in screen space to the current path.
// It reports whether the outline is closed and can be filled.
func (r *Renderer) tracePath(g shape.Geometry, vp *viewport.Viewport) (closed bool) {
	s := vp.Scale()
	pt := func(x, y float64) (float64, float64) { return vp.WorldToScreen(x, y) }

	switch g := g.(type) {
	case shape.Box:
		x, y := pt(g.X, g.Y)
		w, h := g.Width*s, g.Height*s
		switch g.Form {
		case shape.KindEllipse:
			r.dc.DrawEllipse(x+w/2, y+h/2, math.Abs(w/2), math.Abs(h/2))
		case shape.KindTriangle:
			r.dc.MoveTo(x+w/2, y)
			r.dc.LineTo(x+w, y+h)
			r.dc.LineTo(x, y+h)
			r.dc.ClosePath()
		default:
			r.dc.DrawRectangle(x, y, w, h)
		}
		return true
	case shape.Circle:
		x, y := pt(g.CenterX, g.CenterY)
		r.dc.DrawCircle(x, y, math.Abs(g.Radius)*s)
		return true
	case shape.Line:
		x0, y0 := pt(g.StartX, g.StartY)
		x1, y1 := pt(g.EndX, g.EndY)
		r.dc.MoveTo(x0, y0)
		r.dc.LineTo(x1, y1)
	case shape.Path:
		r.tracePoints(g.Points, vp)
	}
	return false
}

func (r *Renderer) tracePoints(pts []shape.Point, vp *viewport.Viewport) {
	for i, p := range pts {
		x, y := vp.WorldToScreen(p.X, p.Y)
		if i == 0 {
			r.dc.MoveTo(x, y)
		} else {
			r.dc.LineTo(x, y)
		}
	}
}

func (r *Renderer) paintShape(sh shape.Shape, vp *viewport.Viewport, o gesture.Overlay) error {
	st := sh.Style
	if st == nil {
		st = shape.DefaultStyle()
	}
	if t, ok := sh.Geom.(shape.Text); ok {
		return r.paintText(sh.ID, t, st, vp, o)
	}

	closed := r.tracePath(sh.Geom, vp)
	if closed {
		if brush, ok := r.fillBrush(sh.Geom, st, vp); ok {
			r.dc.SetFillBrush(brush)
			if err := r.dc.FillPreserve(); err != nil {
				r.dc.ClearPath()
				return fmt.Errorf("fill: %w", err)
			}
		}
	}

	stroke, ok := ParseColor(st.StrokeColor)
	if !ok {
		r.dc.ClearPath()
		return nil
	}
	r.dc.SetStrokeBrush(gg.Solid(fade(stroke, st.Opacity)))
	r.setStroke(strokeWidth(st)*vp.Scale(), st.StrokeStyle.Dashes(), vp.Scale())
	if err := r.dc.Stroke(); err != nil {
		return fmt.Errorf("stroke: %w", err)
	}
	return nil
}

func strokeWidth(st *shape.Style) float64 {
	switch {
	case st.StrokeWidth > 0:
		return st.StrokeWidth
	case st.StrokeStyle.Width > 0:
		return st.StrokeStyle.Width
	}
	return shape.DefaultStyle().StrokeWidth
}

// setStroke sets the line width and a dash pattern scaled to the zoom.
func (r *Renderer) setStroke(width float64, dashes []float64, scale float64) {
	r.dc.SetLineWidth(max(width, 0.5))
	if len(dashes) == 0 {
		r.dc.ClearDash()
		return
	}
	scaled := make([]float64, len(dashes))
	for i, d := range dashes {
		scaled[i] = d * scale
	}
	r.dc.SetDash(scaled...)
}

// fillBrush builds the fill for a closed shape: the gradient when the
// style has one, else the solid fill color.
func (r *Renderer) fillBrush(g shape.Geometry, st *shape.Style, vp *viewport.Viewport) (gg.Brush, bool) {
	if !st.HasGradient() {
		c, ok := ParseColor(st.FillColor)
		if !ok {
			return nil, false
		}
		return gg.Solid(fade(c, st.Opacity)), true
	}

	b := vp.Matrix().TransformRect(g.Bounds())
	gr := st.Gradient
	n := len(gr.Colors)
	stop := func(i int) float64 {
		if i < len(gr.Stops) {
			return min(1, max(0, gr.Stops[i]))
		}
		if n == 1 {
			return 0
		}
		return float64(i) / float64(n-1)
	}

	switch gr.Type {
	case shape.GradientRadial:
		cx, cy := 0.5, 0.5
		if gr.CenterX != nil {
			cx = *gr.CenterX
		}
		if gr.CenterY != nil {
			cy = *gr.CenterY
		}
		brush := gg.NewRadialGradientBrush(b.X+b.Width*cx, b.Y+b.Height*cy, 0, max(b.Width, b.Height)/2)
		for i, c := range gr.Colors {
			brush.AddColorStop(stop(i), fade(colorOr(c, background), st.Opacity))
		}
		return brush, true
	default:
		angle := 0.0
		if gr.Angle != nil {
			angle = *gr.Angle * math.Pi / 180
		}
		cx, cy := b.X+b.Width/2, b.Y+b.Height/2
		half := (math.Abs(b.Width*math.Cos(angle)) + math.Abs(b.Height*math.Sin(angle))) / 2
		dx, dy := math.Cos(angle)*half, math.Sin(angle)*half
		brush := gg.NewLinearGradientBrush(cx-dx, cy-dy, cx+dx, cy+dy)
		for i, c := range gr.Colors {
			brush.AddColorStop(stop(i), fade(colorOr(c, background), st.Opacity))
		}
		return brush, true
	}
}

func (r *Renderer) paintText(id string, t shape.Text, st *shape.Style, vp *viewport.Viewport, o gesture.Overlay) error {
	b := vp.Matrix().TransformRect(canvas.TextBounds(t, r.Measurer()))
	r.dc.DrawRectangle(b.X-selectionPad, b.Y-selectionPad, b.Width+2*selectionPad, b.Height+2*selectionPad)
	r.dc.SetFillBrush(gg.Solid(fade(textBackdrop, st.Opacity)))
	if err := r.dc.Fill(); err != nil {
		return fmt.Errorf("fill text backdrop: %w", err)
	}

	x, y := vp.WorldToScreen(t.X, t.Y)
	color := fade(colorOr(t.TextColor(), gg.RGBA2(1, 1, 1, 1)), st.Opacity)
	if r.fonts != nil && t.Text != "" {
		r.dc.SetFont(r.fonts.Face(max(t.FontSize*vp.Scale(), minTextPixels)))
		r.dc.SetFillBrush(gg.Solid(color))
		r.dc.DrawString(t.Text, x, y)
	}

	if o.TypingID == id && o.CaretVisible {
		cx := x
		if t.Text != "" {
			cx = b.X + b.Width
		}
		r.dc.SetStrokeBrush(gg.Solid(color))
		r.setStroke(1.5, nil, 1)
		r.dc.MoveTo(cx+1, b.Y)
		r.dc.LineTo(cx+1, y)
		if err := r.dc.Stroke(); err != nil {
			return fmt.Errorf("stroke caret: %w", err)
		}
	}
	return nil
}

func (r *Renderer) paintSelection(sh shape.Shape, handles []gesture.Handle, vp *viewport.Viewport) error {
	r.dc.SetStrokeBrush(gg.Solid(selectionColor))
	r.setStroke(3, []float64{5, 5}, 1)
	if t, ok := sh.Geom.(shape.Text); ok {
		b := vp.Matrix().TransformRect(canvas.TextBounds(t, r.Measurer()))
		r.dc.DrawRectangle(b.X-selectionPad, b.Y-selectionPad, b.Width+2*selectionPad, b.Height+2*selectionPad)
	} else {
		r.tracePath(sh.Geom, vp)
	}
	if err := r.dc.Stroke(); err != nil {
		return fmt.Errorf("stroke selection: %w", err)
	}

	half := gesture.HandleSize / 2
	r.dc.ClearDash()
	r.dc.SetLineWidth(2)
	for _, h := range handles {
		x, y := vp.WorldToScreen(h.X, h.Y)
		r.dc.DrawRectangle(x-half, y-half, gesture.HandleSize, gesture.HandleSize)
		r.dc.SetFillBrush(gg.Solid(handleFill))
		if err := r.dc.FillPreserve(); err != nil {
			r.dc.ClearPath()
			return fmt.Errorf("fill handle: %w", err)
		}
		r.dc.SetStrokeBrush(gg.Solid(handleBorder))
		if err := r.dc.Stroke(); err != nil {
			return fmt.Errorf("stroke handle: %w", err)
		}
	}
	return nil
}

func (r *Renderer) paintPreview(o gesture.Overlay, vp *viewport.Viewport) error {
	if len(o.PathPreview) > 1 {
		r.dc.SetStrokeBrush(gg.Solid(previewColor))
		r.setStroke(2, nil, 1)
		r.tracePoints(o.PathPreview, vp)
		if err := r.dc.Stroke(); err != nil {
			return fmt.Errorf("stroke path preview: %w", err)
		}
	}
	if o.ShapePreview != nil {
		st := o.PreviewStyle
		if st == nil {
			st = shape.DefaultStyle()
		}
		r.tracePath(o.ShapePreview, vp)
		r.dc.SetStrokeBrush(gg.Solid(fade(colorOr(st.StrokeColor, previewColor), 0.6)))
		r.setStroke(strokeWidth(st)*vp.Scale(), st.StrokeStyle.Dashes(), vp.Scale())
		if err := r.dc.Stroke(); err != nil {
			return fmt.Errorf("stroke shape preview: %w", err)
		}
	}
	return nil
}

func (r *Renderer) paintCursor(c Cursor, vp *viewport.Viewport) error {
	x, y := vp.WorldToScreen(c.X, c.Y)
	w, h := float64(r.dc.Width()), float64(r.dc.Height())
	if x < -cursorMargin || y < -cursorMargin || x > w+cursorMargin || y > h+cursorMargin {
		return nil
	}

	col := c.Color
	if col == "" {
		col = PeerColor(c.UserID)
	}
	r.dc.DrawCircle(x, y, cursorRadius)
	r.dc.SetFillBrush(gg.Solid(colorOr(col, handleFill)))
	if err := r.dc.Fill(); err != nil {
		return fmt.Errorf("fill cursor: %w", err)
	}
	if c.Drawing {
		r.dc.DrawCircle(x+cursorRadius, y-cursorRadius, cursorRadius/2)
		r.dc.SetFillBrush(gg.Solid(drawingDot))
		if err := r.dc.Fill(); err != nil {
			return fmt.Errorf("fill drawing dot: %w", err)
		}
	}

	name := c.Name
	if name == "" {
		name = c.UserID
	}
	if r.fonts == nil || name == "" {
		return nil
	}
	const size, pad = 12.0, 4.0
	tw, _ := r.fonts.Measure(name, size)
	lx, ly := x+cursorRadius+pad, y+cursorRadius+pad
	r.dc.DrawRoundedRectangle(lx, ly, tw+2*pad, size+2*pad, pad)
	r.dc.SetFillBrush(gg.Solid(chipColor))
	if err := r.dc.Fill(); err != nil {
		return fmt.Errorf("fill name chip: %w", err)
	}
	r.dc.SetFont(r.fonts.Face(size))
	r.dc.SetFillBrush(gg.Solid(gg.RGBA2(1, 1, 1, 1)))
	r.dc.DrawString(name, lx+pad, ly+pad+size*0.8)
	return nil
}
