package gesture

import (
	"strings"

	"github.com/inkroom/inkroom/internal/shape"
)

// KeyDown handles shortcuts. While typing, keys belong to the text input
// surface and only Escape is handled here.
func (m *Machine) KeyDown(ev KeyEvent) {
	key := ev.Key
	if len(key) == 1 {
		key = strings.ToLower(key)
	}

	if m.state == Typing {
		if key == "Escape" {
			m.FinishTyping()
		}
		return
	}

	if !ev.Ctrl {
		switch key {
		case " ":
			m.spaceHeld = true
		case "Delete", "Backspace":
			if m.selected != "" {
				m.erase(m.selected)
			}
		case "Escape":
			m.selected = ""
		}
		return
	}

	w, h := m.vp.Size()
	switch key {
	case "0":
		m.ResetView()
	case "=", "+":
		if m.vp.Zoom(keyZoomStep, w/2, h/2) {
			m.emitViewport()
		}
	case "-":
		if m.vp.Zoom(keyZoomOut, w/2, h/2) {
			m.emitViewport()
		}
	case "h":
		m.quickTips = !m.quickTips
		m.emit(QuickTipsToggled{Visible: m.quickTips})
	case "c":
		m.Copy()
	case "x":
		m.Cut()
	case "v":
		m.Paste(m.cursor)
	case "z":
		m.Undo()
	case "r":
		m.dumpHandles()
	case "t":
		m.commit(shape.New(shape.Box{Form: shape.KindRect, X: testRectX, Y: testRectY, Width: testRectW, Height: testRectH}, m.style))
	}
}

func (m *Machine) KeyUp(ev KeyEvent) {
	if ev.Key == " " {
		m.spaceHeld = false
	}
}

// ResetView fits every shape on screen, or recenters an empty canvas.
func (m *Machine) ResetView() {
	b, ok := m.store.Bounds()
	m.vp.Reset(b, !ok)
	m.emitViewport()
}

// Copy deep-clones the selection into the clipboard.
func (m *Machine) Copy() bool {
	sh, ok := m.Selected()
	if !ok {
		return false
	}
	c := sh.Clone()
	m.clipboard = &c
	return true
}

// Cut copies the selection, removes it and announces the erase.
func (m *Machine) Cut() bool {
	if !m.Copy() {
		return false
	}
	m.erase(m.clipboard.ID)
	return true
}

// Paste places a fresh copy of the clipboard with its anchor at p.
func (m *Machine) Paste(p shape.Point) (shape.Shape, bool) {
	if m.clipboard == nil {
		return shape.Shape{}, false
	}
	sh := m.clipboard.PlacedAt(p)
	if !m.commit(sh) {
		return shape.Shape{}, false
	}
	m.selected = sh.ID
	return sh, true
}

// Undo restores the last history snapshot. It is local only; peers are
// not told.
func (m *Machine) Undo() bool {
	if !m.store.Undo() {
		return false
	}
	if m.selected != "" && !m.store.Has(m.selected) {
		m.selected = ""
	}
	return true
}

func (m *Machine) dumpHandles() {
	sh, ok := m.Selected()
	if !ok {
		m.log.Info("no shape selected")
		return
	}
	for _, h := range Handles(sh, m.store.Measurer()) {
		sx, sy := m.vp.WorldToScreen(h.X, h.Y)
		m.log.Info("resize handle", "shape", sh.ID, "handle", h.Name,
			"worldX", h.X, "worldY", h.Y, "screenX", sx, "screenY", sy)
	}
}
