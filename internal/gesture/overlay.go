package gesture

import "github.com/inkroom/inkroom/internal/shape"

// Overlay is the transient state the renderer paints on top of the
// stored shapes.
type Overlay struct {
	Selected     *shape.Shape
	Handles      []Handle
	PathPreview  []shape.Point
	ShapePreview shape.Geometry
	PreviewStyle *shape.Style
	TypingID     string
	CaretVisible bool
}

func (m *Machine) Overlay() Overlay {
	o := Overlay{PreviewStyle: m.style, TypingID: m.TypingID(), CaretVisible: m.caretOn}
	if sh, ok := m.Selected(); ok {
		o.Selected = &sh
		o.Handles = Handles(sh, m.store.Measurer())
	}
	switch m.state {
	case DrawingPath:
		o.PathPreview = m.points
	case DrawingShape:
		o.ShapePreview = m.previewGeometry(m.cursor)
	}
	return o
}
