// Package recognize classifies a freehand stroke as a line, circle,
// rectangle or leaves it as a raw path.
//
// The scores are heuristics over the stroke's bounding box, length and
// enclosed area. False positives and negatives are expected; callers only
// commit a recognized shape when its confidence clears CommitThreshold.
package recognize

import (
	"math"

	"github.com/inkroom/inkroom/internal/shape"
)

const (
	// CommitThreshold is the confidence a recognized shape needs before it
	// replaces the raw stroke.
	CommitThreshold = 0.6

	lineThreshold   = 0.85
	circleThreshold = 0.5
	rectThreshold   = 0.6

	// cornerAngle is the direction change that counts as a corner.
	cornerAngle = math.Pi / 6
)

// Scores are the raw heuristic values for one stroke.
type Scores struct {
	Linearity      float64
	Circularity    float64
	Rectangularity float64
	Corners        int
}

// Result is the classification of a stroke. Geom is always set: for
// KindPath it is a copy of the input points.
type Result struct {
	Kind       shape.Kind
	Confidence float64
	Geom       shape.Geometry
	Scores     Scores
}

// Committable reports whether the recognized geometry should replace the
// raw path.
func (r Result) Committable() bool {
	return r.Kind != shape.KindPath && r.Confidence > CommitThreshold
}

// Analyze classifies pts. Strokes with fewer than three points come back
// as a path with zero confidence.
func Analyze(pts []shape.Point) Result {
	raw := shape.Path{Points: append([]shape.Point(nil), pts...)}
	if len(pts) < 3 {
		return Result{Kind: shape.KindPath, Geom: raw}
	}

	m := measure(pts)
	sc := Scores{
		Linearity:      m.linearity(),
		Circularity:    m.circularity(),
		Rectangularity: m.rectangularity(),
		Corners:        m.corners,
	}

	first, last := pts[0], pts[len(pts)-1]
	switch {
	case sc.Linearity > lineThreshold:
		return Result{
			Kind:       shape.KindLine,
			Confidence: sc.Linearity,
			Geom:       shape.Line{StartX: first.X, StartY: first.Y, EndX: last.X, EndY: last.Y},
			Scores:     sc,
		}
	case sc.Circularity > circleThreshold:
		c := m.bounds.Center()
		return Result{
			Kind:       shape.KindCircle,
			Confidence: sc.Circularity,
			Geom:       shape.Circle{CenterX: c.X, CenterY: c.Y, Radius: m.meanRadius},
			Scores:     sc,
		}
	case sc.Rectangularity > rectThreshold:
		b := m.bounds
		return Result{
			Kind:       shape.KindRect,
			Confidence: sc.Rectangularity,
			Geom:       shape.Box{Form: shape.KindRect, X: b.X, Y: b.Y, Width: b.Width, Height: b.Height},
			Scores:     sc,
		}
	}
	return Result{Kind: shape.KindPath, Geom: raw, Scores: sc}
}

type metrics struct {
	bounds     shape.Rect
	length     float64
	area       float64
	gap        float64
	meanRadius float64
	radiusVar  float64
	corners    int
}

func measure(pts []shape.Point) metrics {
	m := metrics{bounds: shape.BoundsOf(pts)}
	n := len(pts)

	for i := 1; i < n; i++ {
		m.length += pts[i-1].Dist(pts[i])
	}
	m.gap = pts[0].Dist(pts[n-1])

	// Shoelace over the stroke closed back to its start.
	var twice float64
	for i := range n {
		j := (i + 1) % n
		twice += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	m.area = math.Abs(twice) / 2

	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	centroid := shape.Point{X: cx / float64(n), Y: cy / float64(n)}

	dists := make([]float64, n)
	for i, p := range pts {
		dists[i] = p.Dist(centroid)
		m.meanRadius += dists[i]
	}
	m.meanRadius /= float64(n)
	for _, d := range dists {
		m.radiusVar += (d - m.meanRadius) * (d - m.meanRadius)
	}
	m.radiusVar /= float64(n)

	m.corners = countCorners(pts)
	return m
}

func (m metrics) linearity() float64 {
	return ratio(m.gap, m.length)
}

func (m metrics) circularity() float64 {
	r := max(m.bounds.Width, m.bounds.Height) / 2
	perimeter := ratio(m.length, 2*math.Pi*r)
	area := ratio(m.area, math.Pi*r*r)

	// Variance relative to the mean distance; a wobbly or elongated
	// stroke goes negative here, which is allowed to drag the total down.
	// The term is in world units, so the same relative wobble scores worse
	// on a larger stroke. Dividing by the squared mean instead would pass
	// a 100x60 rectangle as a circle.
	consistency := 0.0
	if m.meanRadius > 0 {
		consistency = 1 - m.radiusVar/m.meanRadius
	}

	closure := 0.0
	if m.length > 0 {
		closure = clamp01(1 - m.gap/m.length)
	}

	return clamp01(0.3*perimeter + 0.3*area + 0.3*consistency + 0.1*closure)
}

func (m metrics) rectangularity() float64 {
	fill := 0.0
	if boxArea := m.bounds.Width * m.bounds.Height; boxArea > 0 {
		fill = min(m.area/boxArea, 1)
	}
	return (fill + float64(min(m.corners, 4))/4) / 2
}

// countCorners counts interior vertices where the stroke turns by more
// than cornerAngle. Zero-length segments are skipped.
func countCorners(pts []shape.Point) int {
	corners := 0
	havePrev := false
	var prev float64
	for i := 1; i < len(pts); i++ {
		dx, dy := pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y
		if dx == 0 && dy == 0 {
			continue
		}
		dir := math.Atan2(dy, dx)
		if havePrev {
			turn := math.Abs(math.Remainder(dir-prev, 2*math.Pi))
			if turn > cornerAngle {
				corners++
			}
		}
		prev, havePrev = dir, true
	}
	return corners
}

// ratio is min(a,b)/max(a,b), 0 when both are 0.
func ratio(a, b float64) float64 {
	hi := max(a, b)
	if hi == 0 {
		return 0
	}
	return min(a, b) / hi
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
