package engine

import (
	"github.com/inkroom/inkroom/internal/gesture"
	"github.com/inkroom/inkroom/internal/shape"
)

// Input is one event posted to the engine loop by the host.
type Input interface {
	apply(e *Engine)
}

type PointerDown gesture.PointerEvent
type PointerMove gesture.PointerEvent
type PointerUp gesture.PointerEvent
type Wheel gesture.WheelEvent
type KeyDown gesture.KeyEvent
type KeyUp gesture.KeyEvent

type SetTool struct{ Tool gesture.Tool }

type SetStyle struct{ Style *shape.Style }

// SetText carries the content of the external text input surface.
type SetText struct {
	ShapeID string
	Text    string
}

type FinishTyping struct{}

// Resize changes the canvas size in pixels.
type Resize struct {
	Width  int
	Height int
}

// Load replaces the store with a room snapshot.
type Load struct{ Shapes []shape.Shape }

// ResetView fits all shapes on screen.
type ResetView struct{}

type call struct {
	fn   func(e *Engine)
	done chan struct{}
}

func (in PointerDown) apply(e *Engine) { e.machine.PointerDown(gesture.PointerEvent(in)) }
func (in PointerMove) apply(e *Engine) { e.machine.PointerMove(gesture.PointerEvent(in)) }
func (in PointerUp) apply(e *Engine)   { e.machine.PointerUp(gesture.PointerEvent(in)) }
func (in Wheel) apply(e *Engine)       { e.machine.Wheel(gesture.WheelEvent(in)) }
func (in KeyDown) apply(e *Engine)     { e.machine.KeyDown(gesture.KeyEvent(in)) }
func (in KeyUp) apply(e *Engine)       { e.machine.KeyUp(gesture.KeyEvent(in)) }
func (in SetTool) apply(e *Engine)     { e.machine.SetTool(in.Tool) }
func (in SetStyle) apply(e *Engine)    { e.machine.SetStyle(in.Style) }
func (in SetText) apply(e *Engine)     { e.machine.SetText(in.ShapeID, in.Text) }
func (FinishTyping) apply(e *Engine)   { e.machine.FinishTyping() }
func (ResetView) apply(e *Engine)      { e.machine.ResetView() }

func (in Resize) apply(e *Engine) {
	if in.Width <= 0 || in.Height <= 0 {
		return
	}
	if err := e.renderer.Resize(in.Width, in.Height); err != nil {
		e.log.Warn("resize canvas", "error", err)
		return
	}
	e.vp.Resize(float64(in.Width), float64(in.Height))
}

func (in Load) apply(e *Engine) {
	if skipped := e.store.Load(in.Shapes); skipped > 0 {
		e.log.Warn("snapshot shapes skipped", "count", skipped)
	}
}

func (c call) apply(e *Engine) {
	c.fn(e)
	close(c.done)
}
