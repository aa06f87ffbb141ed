// Package protocol defines the room socket messages. Every message is a
// flat JSON object whose "type" field selects the meaning of the rest.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/inkroom/inkroom/internal/shape"
)

type Type string

const (
	TypeJoinRoom            Type = "join_room"
	TypeLeaveRoom           Type = "leave_room"
	TypeDraw                Type = "draw"
	TypeEditShape           Type = "edit_shape"
	TypeErase               Type = "erase"
	TypeCursorUpdate        Type = "cursor_update"
	TypeUserActivity        Type = "user_activity"
	TypeGetParticipantCount Type = "get_participant_count"

	TypeParticipantCount Type = "participant_count_update"
	TypeActivityUpdate   Type = "user_activity_update"
	TypeError            Type = "error"
)

var (
	ErrUnknownType  = errors.New("unknown message type")
	ErrMissingRoom  = errors.New("missing roomId")
	ErrMissingShape = errors.New("missing shape")
)

// Message is the union of all socket messages. Fields not used by a type
// are omitted on the wire.
type Message struct {
	Type   Type   `json:"type"`
	RoomID string `json:"roomId,omitempty"`

	Shape       *shape.Shape `json:"shape,omitempty"`
	ShapeID     string       `json:"shapeId,omitempty"`
	IsDragging  bool         `json:"isDragging,omitempty"`
	DrawingUser string       `json:"drawingUser,omitempty"`

	UserID    string  `json:"userId,omitempty"`
	UserName  string  `json:"userName,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	IsDrawing bool    `json:"isDrawing,omitempty"`

	Activity  string `json:"activity,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`

	Count        int      `json:"count,omitempty"`
	Participants []string `json:"participants,omitempty"`

	Error string `json:"error,omitempty"`
}

// Known reports whether t is a message type this package defines.
func (t Type) Known() bool {
	switch t {
	case TypeJoinRoom, TypeLeaveRoom, TypeDraw, TypeEditShape, TypeErase,
		TypeCursorUpdate, TypeUserActivity, TypeGetParticipantCount,
		TypeParticipantCount, TypeActivityUpdate, TypeError:
		return true
	}
	return false
}

// Validate checks the fields each type requires.
func (m Message) Validate() error {
	if !m.Type.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	if m.Type == TypeError {
		return nil
	}
	if m.RoomID == "" {
		return fmt.Errorf("%s: %w", m.Type, ErrMissingRoom)
	}
	switch m.Type {
	case TypeDraw, TypeEditShape:
		if m.Shape == nil {
			return fmt.Errorf("%s: %w", m.Type, ErrMissingShape)
		}
	case TypeErase:
		if m.ShapeID == "" {
			return fmt.Errorf("erase: %w", ErrMissingShape)
		}
	}
	return nil
}

// Decode parses and validates one frame. Shapes inside are decoded with
// the strict shape codec, so a malformed shape fails the whole message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return m, err
	}
	return m, nil
}

func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type, err)
	}
	return data, nil
}

func Join(roomID string) Message  { return Message{Type: TypeJoinRoom, RoomID: roomID} }
func Leave(roomID string) Message { return Message{Type: TypeLeaveRoom, RoomID: roomID} }

func Draw(roomID string, sh shape.Shape) Message {
	return Message{Type: TypeDraw, RoomID: roomID, Shape: &sh}
}

func Edit(roomID string, sh shape.Shape, dragging bool) Message {
	return Message{Type: TypeEditShape, RoomID: roomID, Shape: &sh, IsDragging: dragging}
}

func Erase(roomID, shapeID string) Message {
	return Message{Type: TypeErase, RoomID: roomID, ShapeID: shapeID}
}

func Cursor(roomID, userID string, x, y float64, drawing bool) Message {
	return Message{Type: TypeCursorUpdate, RoomID: roomID, UserID: userID, X: x, Y: y, IsDrawing: drawing}
}

func Activity(roomID, activity, userName string) Message {
	return Message{Type: TypeUserActivity, RoomID: roomID, Activity: activity, UserName: userName}
}

func CountRequest(roomID string) Message {
	return Message{Type: TypeGetParticipantCount, RoomID: roomID}
}

func ParticipantCount(roomID string, participants []string) Message {
	return Message{Type: TypeParticipantCount, RoomID: roomID, Count: len(participants), Participants: participants}
}

func ActivityUpdate(roomID, userID, userName, activity string, at time.Time) Message {
	return Message{
		Type:      TypeActivityUpdate,
		RoomID:    roomID,
		UserID:    userID,
		UserName:  userName,
		Activity:  activity,
		Timestamp: at.UnixMilli(),
	}
}

func Error(msg string) Message { return Message{Type: TypeError, Error: msg} }
