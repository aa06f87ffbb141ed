package gesture

import (
	"github.com/inkroom/inkroom/internal/shape"
	"github.com/inkroom/inkroom/internal/viewport"
)

// Intent is something the machine wants the rest of the client to do or
// know. Network intents are turned into socket messages by the sync
// client; the rest are UI signals.
type Intent interface {
	intent()
}

// Draw announces a newly created shape.
type Draw struct {
	Shape shape.Shape
}

// Edit announces a changed shape. Dragging is true for every intermediate
// move of a drag or resize and false for the final position.
type Edit struct {
	Shape    shape.Shape
	Dragging bool
}

type Erase struct {
	ShapeID string
}

// Cursor is the local pointer in world coordinates.
type Cursor struct {
	X       float64
	Y       float64
	Drawing bool
}

type TextEditStarted struct {
	ShapeID string
	Text    string
}

type TextChanged struct {
	ShapeID string
	Text    string
}

type TextEditFinished struct {
	ShapeID string
}

type QuickTipsToggled struct {
	Visible bool
}

type ColorPicked struct {
	Color string
}

type ViewportChanged struct {
	State viewport.State
}

type PanningChanged struct {
	Panning bool
}

func (Draw) intent()             {}
func (Edit) intent()             {}
func (Erase) intent()            {}
func (Cursor) intent()           {}
func (TextEditStarted) intent()  {}
func (TextChanged) intent()      {}
func (TextEditFinished) intent() {}
func (QuickTipsToggled) intent() {}
func (ColorPicked) intent()      {}
func (ViewportChanged) intent()  {}
func (PanningChanged) intent()   {}
