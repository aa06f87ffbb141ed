package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/inkroom/inkroom/internal/gesture"
	"github.com/inkroom/inkroom/internal/shape"
	"github.com/inkroom/inkroom/internal/viewport"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		r, g float64
		b, a float64
	}{
		{in: "#FFFFFF", ok: true, r: 1, g: 1, b: 1, a: 1},
		{in: "#f00", ok: true, r: 1, a: 1},
		{in: "rgba(255, 0, 0, 0.5)", ok: true, r: 1, a: 0.5},
		{in: "rgb(0,0,255)", ok: true, b: 1, a: 1},
		{in: "white", ok: true, r: 1, g: 1, b: 1, a: 1},
		{in: "transparent"},
		{in: ""},
		{in: "#12345"},
		{in: "rgb(1,2)"},
		{in: "chartreuse-ish"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, ok := ParseColor(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if c.R != tt.r || c.G != tt.g || c.B != tt.b || c.A != tt.a {
				t.Errorf("color = %+v", c)
			}
		})
	}
}

func TestPeerColorStable(t *testing.T) {
	a, b := PeerColor("user_1"), PeerColor("user_1")
	if a != b {
		t.Errorf("colors differ: %s vs %s", a, b)
	}
	if _, ok := ParseColor(a); !ok {
		t.Errorf("palette color %q does not parse", a)
	}
}

func TestScheduler_CoalescesFrames(t *testing.T) {
	var queued []func()
	paints := 0
	s := NewScheduler(func(f func()) { queued = append(queued, f) }, func() { paints++ })

	for range 10 {
		s.Invalidate()
	}
	if len(queued) != 1 {
		t.Fatalf("frame requests = %d, want 1", len(queued))
	}
	queued[0]()
	if paints != 1 || s.Dirty() || s.Pending() {
		t.Errorf("paints=%d dirty=%v pending=%v", paints, s.Dirty(), s.Pending())
	}

	s.Invalidate()
	if len(queued) != 2 {
		t.Fatalf("frame requests = %d, want 2", len(queued))
	}
	queued[1]()
	if s.Frames() != 2 {
		t.Errorf("frames = %d, want 2", s.Frames())
	}
}

func rgbaAt(r *Renderer, x, y int) color.RGBA {
	return color.RGBAModel.Convert(r.Image().At(x, y)).(color.RGBA)
}

func near(got, want uint8) bool {
	d := int(got) - int(want)
	return d >= -2 && d <= 2
}

func TestDraw_BackgroundAndFill(t *testing.T) {
	r := New(200, 200)
	defer r.Close()
	vp := viewport.New(200, 200)

	st := shape.DefaultStyle()
	st.FillColor = "#FF0000"
	rect := shape.Shape{ID: "a", Geom: shape.Box{Form: shape.KindRect, X: 60, Y: 60, Width: 80, Height: 80}, Style: st}

	if err := r.Draw(Frame{Shapes: []shape.Shape{rect}, Viewport: vp}); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	bg := rgbaAt(r, 10, 30)
	if !near(bg.R, 0x0F) || !near(bg.G, 0x17) || !near(bg.B, 0x2A) {
		t.Errorf("background = %+v, want #0F172A", bg)
	}
	in := rgbaAt(r, 100, 100)
	if in.R < 200 || in.G > 50 {
		t.Errorf("fill = %+v, want red", in)
	}
}

func TestDraw_ZOrderLaterWins(t *testing.T) {
	r := New(100, 100)
	defer r.Close()
	vp := viewport.New(100, 100)

	red, blue := shape.DefaultStyle(), shape.DefaultStyle()
	red.FillColor, blue.FillColor = "#FF0000", "#0000FF"
	box := shape.Box{Form: shape.KindRect, X: 20, Y: 20, Width: 60, Height: 60}
	shapes := []shape.Shape{
		{ID: "under", Geom: box, Style: red},
		{ID: "over", Geom: box, Style: blue},
	}
	if err := r.Draw(Frame{Shapes: shapes, Viewport: vp}); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	c := rgbaAt(r, 50, 50)
	if c.B < 200 || c.R > 50 {
		t.Errorf("center = %+v, want blue on top", c)
	}
}

func TestDraw_ViewportTransform(t *testing.T) {
	r := New(200, 200)
	defer r.Close()
	vp := viewport.New(200, 200)
	vp.Zoom(2, 0, 0)
	vp.Pan(10, 10)

	st := shape.DefaultStyle()
	st.FillColor = "#00FF00"
	sh := shape.Shape{ID: "a", Geom: shape.Box{Form: shape.KindRect, X: 40, Y: 40, Width: 20, Height: 20}, Style: st}
	if err := r.Draw(Frame{Shapes: []shape.Shape{sh}, Viewport: vp}); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	// World (50, 50) lands at 50*2+10 = 110 on screen.
	if c := rgbaAt(r, 110, 110); c.G < 200 {
		t.Errorf("screen (110,110) = %+v, want green", c)
	}
	if c := rgbaAt(r, 55, 55); c.G > 100 {
		t.Errorf("untransformed position painted: %+v", c)
	}
}

func TestDraw_SelectionHandlesAndCursors(t *testing.T) {
	r := New(300, 300)
	defer r.Close()
	vp := viewport.New(300, 300)

	sh := shape.Shape{ID: "a", Geom: shape.Box{Form: shape.KindRect, X: 100, Y: 100, Width: 100, Height: 100}, Style: shape.DefaultStyle()}
	ov := gesture.Overlay{Selected: &sh, Handles: gesture.Handles(sh, r.Measurer())}
	cursors := []Cursor{
		{UserID: "u1", X: 20, Y: 20, Drawing: true, Color: "#00FF00"},
		{UserID: "far", X: 5000, Y: 5000},
	}
	if err := r.Draw(Frame{Shapes: []shape.Shape{sh}, Viewport: vp, Overlay: ov, Cursors: cursors}); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	// Handle centers sit on the corners; the inside of a handle is the
	// handle fill color.
	h := rgbaAt(r, 100+4, 100+4)
	if h.R < 200 || h.G > 150 {
		t.Errorf("handle = %+v, want #FF6B6B", h)
	}
	c := rgbaAt(r, 18, 22)
	if c.G < 200 {
		t.Errorf("cursor = %+v, want green", c)
	}
}

func TestDraw_GradientAndPreview(t *testing.T) {
	r := New(200, 100)
	defer r.Close()
	vp := viewport.New(200, 100)

	st := shape.DefaultStyle()
	st.StrokeColor = "none"
	st.Gradient = &shape.Gradient{Type: shape.GradientLinear, Colors: []string{"#000000", "#FFFFFF"}}
	sh := shape.Shape{ID: "g", Geom: shape.Box{Form: shape.KindRect, X: 0, Y: 0, Width: 200, Height: 100}, Style: st}

	ov := gesture.Overlay{PathPreview: []shape.Point{{X: 10, Y: 90}, {X: 190, Y: 90}}}
	if err := r.Draw(Frame{Shapes: []shape.Shape{sh}, Viewport: vp, Overlay: ov}); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	left, right := rgbaAt(r, 10, 50), rgbaAt(r, 190, 50)
	if left.R >= right.R {
		t.Errorf("gradient not increasing: left %+v right %+v", left, right)
	}
}

func TestEncodePNG(t *testing.T) {
	r := New(32, 32)
	defer r.Close()
	if err := r.Draw(Frame{Viewport: viewport.New(32, 32)}); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	var buf bytes.Buffer
	if err := r.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 32 {
		t.Errorf("width = %d, want 32", img.Bounds().Dx())
	}
}

func TestFontsMeasure(t *testing.T) {
	f, err := LoadFonts()
	if err != nil {
		t.Fatalf("LoadFonts: %v", err)
	}
	defer f.Close()

	w1, h := f.Measure("hello", 16)
	w2, _ := f.Measure("hello", 32)
	if w1 <= 0 || h != 16 {
		t.Fatalf("measure = (%v, %v)", w1, h)
	}
	if w2 <= w1 {
		t.Errorf("larger font not wider: %v vs %v", w2, w1)
	}
	if f.Face(16) != f.Face(16.1) {
		t.Error("faces at nearly equal sizes not shared")
	}
}
