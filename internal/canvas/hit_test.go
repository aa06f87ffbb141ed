package canvas

import (
	"testing"

	"github.com/inkroom/inkroom/internal/shape"
)

func TestHit(t *testing.T) {
	m := FallbackMeasurer{}
	line := shape.Shape{ID: "l", Geom: shape.Line{StartX: 0, StartY: 0, EndX: 100, EndY: 0}}
	path := shape.Shape{ID: "p", Geom: shape.Path{Points: []shape.Point{{X: 0, Y: 0}, {X: 0, Y: 100}}}}
	circle := shape.Shape{ID: "c", Geom: shape.Circle{CenterX: 0, CenterY: 0, Radius: 10}}
	text := shape.Shape{ID: "t", Geom: shape.Text{X: 0, Y: 20, Text: "abcd", FontSize: 20}}

	tests := []struct {
		name  string
		sh    shape.Shape
		x, y  float64
		scale float64
		want  bool
	}{
		{"line within tolerance", line, 50, 5, 1, true},
		{"line outside tolerance", line, 50, 7, 1, false},
		{"line tolerance shrinks when zoomed in", line, 50, 5, 2, false},
		{"line tolerance grows when zoomed out", line, 50, 50, 0.1, true},
		{"path second segment", path, 3, 60, 1, true},
		{"circle inside", circle, 6, 6, 1, true},
		{"circle corner of bbox", circle, 9, 9, 1, false},
		{"text inside", text, 10, 10, 1, true},
		{"text below baseline", text, 10, 25, 1, false},
		{"text past width", text, 60, 10, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hit(tt.sh, tt.x, tt.y, tt.scale, m); got != tt.want {
				t.Errorf("Hit = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindAt_Topmost(t *testing.T) {
	s := New()
	_ = s.Add(rect("bottom", 0, 0, 100, 100))
	_ = s.Add(rect("top", 40, 40, 20, 20))

	got, ok := s.FindAt(50, 50, 1)
	if !ok || got.ID != "top" {
		t.Errorf("FindAt = %s, %v; want top", got.ID, ok)
	}
	got, ok = s.FindAt(10, 10, 1)
	if !ok || got.ID != "bottom" {
		t.Errorf("FindAt = %s, %v; want bottom", got.ID, ok)
	}
	if _, ok := s.FindAt(500, 500, 1); ok {
		t.Error("FindAt hit empty space")
	}
}
