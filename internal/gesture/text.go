package gesture

import "github.com/inkroom/inkroom/internal/shape"

func (m *Machine) startText(p shape.Point) {
	color := shape.DefaultTextColor
	if m.style != nil && m.style.TextColor != "" {
		color = m.style.TextColor
	}
	sh := shape.New(shape.Text{X: p.X, Y: p.Y, FontSize: textFontSize, Color: color}, m.style)
	if !m.commit(sh) {
		return
	}
	m.selected = sh.ID
	m.typingID = sh.ID
	m.caretOn = true
	m.setState(Typing)
	m.emit(TextEditStarted{ShapeID: sh.ID})
}

// TypingID returns the text shape being edited, or "".
func (m *Machine) TypingID() string {
	if m.state != Typing {
		return ""
	}
	return m.typingID
}

// SetText replaces the content of a text shape, typically from the
// external text input surface, and announces the edit.
func (m *Machine) SetText(id, text string) bool {
	sh, ok := m.store.Get(id)
	if !ok {
		return false
	}
	t, ok := sh.Geom.(shape.Text)
	if !ok {
		return false
	}
	if t.Text == text {
		return true
	}
	t.Text = text
	sh.Geom = t
	m.store.Update(sh)
	m.emit(Edit{Shape: sh.Clone(), Dragging: false})
	m.emit(TextChanged{ShapeID: id, Text: text})
	return true
}

// FinishTyping leaves the Typing state. A text shape left empty is erased.
func (m *Machine) FinishTyping() {
	if m.state != Typing {
		return
	}
	id := m.typingID
	m.typingID = ""
	m.caretOn = false
	m.setState(Idle)
	m.emit(TextEditFinished{ShapeID: id})

	if sh, ok := m.store.Get(id); ok {
		if t, ok := sh.Geom.(shape.Text); ok && t.Text == "" {
			m.erase(id)
		}
	}
}

// Blink flips the caret while typing. It reports whether anything
// visible changed.
func (m *Machine) Blink() bool {
	if m.state != Typing {
		return false
	}
	m.caretOn = !m.caretOn
	return true
}
