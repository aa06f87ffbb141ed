// Package gesture turns pointer, touch, wheel and keyboard input into
// shape store mutations and outbound intents.
package gesture

import (
	"context"
	"log/slog"

	"github.com/inkroom/inkroom/internal/canvas"
	"github.com/inkroom/inkroom/internal/recognize"
	"github.com/inkroom/inkroom/internal/shape"
	"github.com/inkroom/inkroom/internal/viewport"
)

type Tool string

const (
	ToolPencil      Tool = "pencil"
	ToolRect        Tool = "rect"
	ToolEllipse     Tool = "ellipse"
	ToolTriangle    Tool = "triangle"
	ToolCircle      Tool = "circle"
	ToolLine        Tool = "line"
	ToolText        Tool = "text"
	ToolEraser      Tool = "erase"
	ToolColorPicker Tool = "colorpicker"
	ToolSelect      Tool = "select"
)

// drawsShape reports whether the tool sizes a shape by dragging.
func (t Tool) drawsShape() bool {
	switch t {
	case ToolRect, ToolEllipse, ToolTriangle, ToolCircle, ToolLine:
		return true
	}
	return false
}

type State int

const (
	Idle State = iota
	Panning
	DrawingPath
	DrawingShape
	DraggingShape
	Resizing
	Typing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Panning:
		return "panning"
	case DrawingPath:
		return "drawing-path"
	case DrawingShape:
		return "drawing-shape"
	case DraggingShape:
		return "dragging"
	case Resizing:
		return "resizing"
	case Typing:
		return "typing"
	}
	return "unknown"
}

type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// PointerEvent is a mouse or touch sample in screen pixels. For touch
// input X and Y are the first touch and Touches is the number of active
// contacts.
type PointerEvent struct {
	X       float64
	Y       float64
	Button  Button
	Touches int
}

type WheelEvent struct {
	X      float64
	Y      float64
	DeltaY float64
}

// KeyEvent carries a DOM-style key name. Ctrl is set for Control or Meta.
type KeyEvent struct {
	Key  string
	Ctrl bool
}

const (
	palmTouches = 3

	keyZoomStep   = 1.2
	keyZoomOut    = 0.8
	wheelZoomIn   = 1.1
	wheelZoomOut  = 0.9
	textFontSize  = shape.DefaultFontSize
	testRectX     = 100.0
	testRectY     = 100.0
	testRectW     = 150.0
	testRectH     = 100.0
	minPathPoints = 2
	recognizeMin  = 3
)

// Machine is the gesture state machine for one canvas. It is driven from
// a single goroutine and reports everything it does through emit.
type Machine struct {
	store *canvas.Store
	vp    *viewport.Viewport
	emit  func(Intent)
	log   *slog.Logger
	cls   recognize.Classifier

	tool  Tool
	style *shape.Style
	state State

	selected  string
	clipboard *shape.Shape
	quickTips bool
	spaceHeld bool
	palm      bool

	lastScreen shape.Point
	cursor     shape.Point
	press      shape.Point
	dragOffset shape.Point
	moved      bool

	original shape.Shape
	handle   string

	points     []shape.Point
	shapeStart shape.Point

	typingID string
	caretOn  bool
}

type Option func(*Machine)

// WithClassifier replaces the in-process stroke recognizer.
func WithClassifier(c recognize.Classifier) Option {
	return func(m *Machine) {
		if c != nil {
			m.cls = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// New builds a machine over store and vp. emit receives every intent
// synchronously; it must not call back into the machine.
func New(store *canvas.Store, vp *viewport.Viewport, emit func(Intent), opts ...Option) *Machine {
	m := &Machine{
		store: store,
		vp:    vp,
		emit:  emit,
		log:   slog.Default(),
		cls:   recognize.Heuristic{},
		tool:  ToolPencil,
		style: shape.DefaultStyle(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State { return m.state }
func (m *Machine) Tool() Tool   { return m.tool }

func (m *Machine) SetTool(t Tool) {
	if m.state == Typing {
		m.FinishTyping()
	}
	m.tool = t
}

// Style returns a copy of the style new shapes are created with.
func (m *Machine) Style() *shape.Style { return m.style.Clone() }

// SetStyle changes the style for shapes created from now on. Existing
// shapes keep the style they were created with.
func (m *Machine) SetStyle(s *shape.Style) {
	if s != nil {
		m.style = s.Clone()
	}
}

// Selected returns the currently selected shape, if it still exists.
func (m *Machine) Selected() (shape.Shape, bool) {
	if m.selected == "" {
		return shape.Shape{}, false
	}
	return m.store.Get(m.selected)
}

func (m *Machine) Select(id string) {
	if m.store.Has(id) {
		m.selected = id
	}
}

func (m *Machine) ClearSelection() { m.selected = "" }

func (m *Machine) world(x, y float64) shape.Point {
	return m.vp.ScreenPoint(x, y)
}

// PointerDown starts a gesture. The first matching rule wins.
func (m *Machine) PointerDown(ev PointerEvent) {
	p := m.world(ev.X, ev.Y)
	m.lastScreen = shape.Point{X: ev.X, Y: ev.Y}
	m.cursor = p

	if ev.Touches >= palmTouches {
		m.interrupt()
		m.palm = true
		return
	}

	m.press = p
	m.moved = false

	if m.state == Typing {
		m.FinishTyping()
	}

	if ev.Button == ButtonSecondary || m.spaceHeld {
		m.setState(Panning)
		return
	}

	switch m.tool {
	case ToolText:
		m.startText(p)
		return
	case ToolEraser:
		if sh, ok := m.store.FindAt(p.X, p.Y, m.vp.Scale()); ok {
			m.erase(sh.ID)
		}
		return
	case ToolColorPicker:
		if sh, ok := m.store.FindAt(p.X, p.Y, m.vp.Scale()); ok {
			if c := pickColor(sh); c != "" {
				m.emit(ColorPicked{Color: c})
			}
		}
		return
	}

	if sel, ok := m.Selected(); ok {
		if h, ok := HandleAt(sel, p, m.vp.Scale(), m.store.Measurer()); ok {
			m.original = sel.Clone()
			m.handle = h
			m.setState(Resizing)
			return
		}
	}

	if sh, ok := m.store.FindAt(p.X, p.Y, m.vp.Scale()); ok {
		m.selected = sh.ID
		a := sh.Geom.Anchor()
		m.dragOffset = shape.Point{X: a.X - p.X, Y: a.Y - p.Y}
		m.setState(DraggingShape)
		return
	}

	switch {
	case m.tool == ToolPencil:
		m.points = append(m.points[:0], p)
		m.setState(DrawingPath)
	case m.tool.drawsShape():
		m.shapeStart = p
		m.setState(DrawingShape)
	default:
		m.selected = ""
		m.setState(Panning)
	}
}

func (m *Machine) PointerMove(ev PointerEvent) {
	p := m.world(ev.X, ev.Y)
	dx, dy := ev.X-m.lastScreen.X, ev.Y-m.lastScreen.Y
	m.lastScreen = shape.Point{X: ev.X, Y: ev.Y}
	m.cursor = p

	if m.palm {
		m.pan(dx, dy)
		return
	}

	switch m.state {
	case Panning:
		m.pan(dx, dy)
	case DrawingPath:
		if last := m.points[len(m.points)-1]; last != p {
			m.points = append(m.points, p)
		}
	case DrawingShape:
		m.moved = true
	case DraggingShape:
		m.drag(p)
	case Resizing:
		m.resize(p)
	}

	m.emit(Cursor{X: p.X, Y: p.Y, Drawing: m.state == DrawingPath || m.state == DrawingShape})
}

// PointerUp ends the gesture in progress.
func (m *Machine) PointerUp(ev PointerEvent) {
	p := m.world(ev.X, ev.Y)
	m.cursor = p

	if m.palm {
		m.palm = false
		return
	}

	switch m.state {
	case Panning:
		m.setState(Idle)
	case DrawingPath:
		m.finishPath()
		m.setState(Idle)
	case DrawingShape:
		m.finishShape(p)
		m.setState(Idle)
	case DraggingShape, Resizing:
		m.finishEdit()
		m.setState(Idle)
	}
}

// interrupt abandons the pointer gesture in progress when a palm lands.
// A moved drag or resize still gets its final edit; unfinished strokes
// and shapes are dropped. Typing is left alone.
func (m *Machine) interrupt() {
	switch m.state {
	case DraggingShape, Resizing:
		m.finishEdit()
	case DrawingPath:
		m.points = nil
	case Typing, Idle:
		return
	}
	m.moved = false
	m.setState(Idle)
}

func (m *Machine) finishEdit() {
	if m.moved {
		if sh, ok := m.Selected(); ok {
			m.emit(Edit{Shape: sh.Clone(), Dragging: false})
		}
	}
	m.original = shape.Shape{}
	m.handle = ""
}

// Wheel zooms about the cursor.
func (m *Machine) Wheel(ev WheelEvent) {
	factor := wheelZoomIn
	if ev.DeltaY > 0 {
		factor = wheelZoomOut
	}
	if m.vp.Zoom(factor, ev.X, ev.Y) {
		m.emitViewport()
	}
}

func (m *Machine) setState(s State) {
	if s == m.state {
		return
	}
	wasPanning := m.state == Panning
	m.state = s
	if wasPanning != (s == Panning) {
		m.emit(PanningChanged{Panning: s == Panning})
	}
}

func (m *Machine) pan(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	m.vp.Pan(dx, dy)
	m.emitViewport()
}

func (m *Machine) emitViewport() {
	m.emit(ViewportChanged{State: m.vp.State()})
}

func (m *Machine) drag(p shape.Point) {
	sh, ok := m.Selected()
	if !ok {
		m.setState(Idle)
		return
	}
	a := sh.Geom.Anchor()
	target := shape.Point{X: p.X + m.dragOffset.X, Y: p.Y + m.dragOffset.Y}
	if target == a {
		return
	}
	sh.Geom = sh.Geom.Translate(target.X-a.X, target.Y-a.Y)
	m.store.Update(sh)
	m.moved = true
	m.emit(Edit{Shape: sh.Clone(), Dragging: true})
}

func (m *Machine) resize(p shape.Point) {
	sh := Resize(m.original, m.handle, p.X-m.press.X, p.Y-m.press.Y)
	if !m.store.Update(sh) {
		m.setState(Idle)
		return
	}
	m.moved = true
	m.emit(Edit{Shape: sh.Clone(), Dragging: true})
}

func (m *Machine) finishPath() {
	pts := m.points
	m.points = nil
	if len(pts) < minPathPoints {
		return
	}

	var geom shape.Geometry = shape.Path{Points: pts}
	if len(pts) >= recognizeMin {
		res, err := m.cls.Classify(context.Background(), pts)
		if err != nil {
			m.log.Warn("classify stroke", "error", err)
		} else if res.Committable() {
			geom = res.Geom
			m.log.Debug("stroke recognized", "kind", res.Kind, "confidence", res.Confidence)
		}
	}
	m.commit(shape.New(geom, m.style))
}

func (m *Machine) finishShape(end shape.Point) {
	geom := m.previewGeometry(end)
	if geom == nil {
		return
	}
	m.commit(shape.New(geom, m.style))
}

// previewGeometry is the shape spanned by the drag so far, or nil when it
// has no extent.
func (m *Machine) previewGeometry(end shape.Point) shape.Geometry {
	start := m.shapeStart
	switch m.tool {
	case ToolRect, ToolEllipse, ToolTriangle:
		r := shape.RectFromPoints(start, end)
		if r.Width == 0 || r.Height == 0 {
			return nil
		}
		return shape.Box{Form: shape.Kind(m.tool), X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
	case ToolCircle:
		radius := start.Dist(end) / 2
		if radius == 0 {
			return nil
		}
		return shape.Circle{CenterX: (start.X + end.X) / 2, CenterY: (start.Y + end.Y) / 2, Radius: radius}
	case ToolLine:
		if start == end {
			return nil
		}
		return shape.Line{StartX: start.X, StartY: start.Y, EndX: end.X, EndY: end.Y}
	}
	return nil
}

// commit snapshots history, stores sh and announces it.
func (m *Machine) commit(sh shape.Shape) bool {
	if err := m.store.Commit(sh); err != nil {
		m.log.Warn("commit shape", "error", err)
		return false
	}
	m.emit(Draw{Shape: sh.Clone()})
	return true
}

func (m *Machine) erase(id string) {
	if !m.store.Delete(id) {
		return
	}
	if m.selected == id {
		m.selected = ""
	}
	m.emit(Erase{ShapeID: id})
}

func pickColor(sh shape.Shape) string {
	if t, ok := sh.Geom.(shape.Text); ok {
		return t.TextColor()
	}
	if sh.Style != nil {
		return sh.Style.StrokeColor
	}
	return ""
}
