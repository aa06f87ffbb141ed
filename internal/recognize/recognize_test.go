package recognize

import (
	"math"
	"testing"

	"github.com/inkroom/inkroom/internal/shape"
)

func rectStroke(w, h, step float64, jitter float64) []shape.Point {
	var pts []shape.Point
	for x := 0.0; x < w; x += step {
		pts = append(pts, shape.Point{X: x, Y: 0})
	}
	for y := 0.0; y < h; y += step {
		pts = append(pts, shape.Point{X: w, Y: y})
	}
	for x := w; x > 0; x -= step {
		pts = append(pts, shape.Point{X: x, Y: h})
	}
	for y := h; y > 0; y -= step {
		pts = append(pts, shape.Point{X: 0, Y: y})
	}
	pts = append(pts, shape.Point{X: 0, Y: 0})
	for i := range pts {
		if i%2 == 1 {
			pts[i].X += jitter
			pts[i].Y -= jitter
		} else {
			pts[i].X -= jitter
			pts[i].Y += jitter
		}
	}
	return pts
}

func TestAnalyze_Line(t *testing.T) {
	pts := make([]shape.Point, 20)
	for i := range pts {
		pts[i] = shape.Point{X: float64(i) * 100 / 19, Y: 0}
	}
	r := Analyze(pts)
	if r.Scores.Linearity <= 0.85 {
		t.Errorf("linearity = %v, want > 0.85", r.Scores.Linearity)
	}
	if r.Kind != shape.KindLine {
		t.Fatalf("kind = %s, want line", r.Kind)
	}
	want := shape.Line{StartX: 0, StartY: 0, EndX: 100, EndY: 0}
	if r.Geom != want {
		t.Errorf("geom = %#v, want %#v", r.Geom, want)
	}
	if !r.Committable() {
		t.Error("straight line not committable")
	}
}

func TestAnalyze_Circle(t *testing.T) {
	pts := make([]shape.Point, 40)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / 40
		pts[i] = shape.Point{X: 50 * math.Cos(a), Y: 50 * math.Sin(a)}
	}
	r := Analyze(pts)
	if r.Scores.Circularity <= 0.5 {
		t.Errorf("circularity = %v, want > 0.5", r.Scores.Circularity)
	}
	if r.Kind != shape.KindCircle {
		t.Fatalf("kind = %s, want circle", r.Kind)
	}
	c := r.Geom.(shape.Circle)
	if math.Abs(c.Radius-50) > 5 {
		t.Errorf("radius = %v, want within 10%% of 50", c.Radius)
	}
	if math.Abs(c.CenterX) > 1e-9 || math.Abs(c.CenterY) > 1e-9 {
		t.Errorf("center = (%v, %v), want origin", c.CenterX, c.CenterY)
	}
}

func TestAnalyze_Rect(t *testing.T) {
	tests := []struct {
		name   string
		jitter float64
	}{
		{"clean", 0},
		{"jittered", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Analyze(rectStroke(100, 60, 10, tt.jitter))
			if r.Scores.Rectangularity <= 0.6 {
				t.Errorf("rectangularity = %v, want > 0.6", r.Scores.Rectangularity)
			}
			if r.Kind != shape.KindRect {
				t.Fatalf("kind = %s (scores %+v), want rect", r.Kind, r.Scores)
			}
			b := r.Geom.(shape.Box)
			tol := 2*tt.jitter + 1e-9
			if math.Abs(b.Width-100) > tol || math.Abs(b.Height-60) > tol {
				t.Errorf("size = %vx%v, want 100x60", b.Width, b.Height)
			}
		})
	}
}

func TestAnalyze_TooShort(t *testing.T) {
	r := Analyze([]shape.Point{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if r.Kind != shape.KindPath || r.Confidence != 0 {
		t.Errorf("got %s/%v, want path/0", r.Kind, r.Confidence)
	}
	if len(r.Geom.(shape.Path).Points) != 2 {
		t.Error("raw points not preserved")
	}
}

func TestAnalyze_Scribble(t *testing.T) {
	r := Analyze([]shape.Point{{X: 0, Y: 0}, {X: 50, Y: 40}, {X: 100, Y: 0}})
	if r.Kind != shape.KindPath {
		t.Errorf("kind = %s, want path", r.Kind)
	}
	if r.Committable() {
		t.Error("raw path reported committable")
	}
}

func TestCountCorners_SkipsDuplicates(t *testing.T) {
	pts := []shape.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}
	if got := countCorners(pts); got != 1 {
		t.Errorf("corners = %d, want 1", got)
	}
}

func wobblyCircle(radius float64) []shape.Point {
	pts := make([]shape.Point, 41)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / 40
		r := radius * (1 + 0.1*math.Sin(6*a))
		pts[i] = shape.Point{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return pts
}

func TestAnalyze_CircularityDependsOnSize(t *testing.T) {
	small := Analyze(wobblyCircle(50))
	if small.Kind != shape.KindCircle || small.Scores.Circularity < 0.8 {
		t.Fatalf("r=50: kind = %s, circularity = %v", small.Kind, small.Scores.Circularity)
	}
	mid := Analyze(wobblyCircle(300))
	if mid.Scores.Circularity >= circleThreshold {
		t.Errorf("r=300: circularity = %v, want below %v", mid.Scores.Circularity, circleThreshold)
	}
	large := Analyze(wobblyCircle(1000))
	if large.Kind == shape.KindCircle || large.Scores.Circularity != 0 {
		t.Errorf("r=1000: kind = %s, circularity = %v", large.Kind, large.Scores.Circularity)
	}

	// Without wobble the size does not matter.
	pts := make([]shape.Point, 41)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / 40
		pts[i] = shape.Point{X: 1000 * math.Cos(a), Y: 1000 * math.Sin(a)}
	}
	if r := Analyze(pts); r.Kind != shape.KindCircle {
		t.Errorf("clean r=1000 circle: kind = %s", r.Kind)
	}
}
