package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const (
	actionEnter  = "room:enter"
	actionRejoin = "room:rejoin"
	actionMove   = "room:move"
	actionReset  = "room:reset"
	actionLeave  = "room:leave"

	actionSnapshot = "room:snapshot"
	actionError    = "room:error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type enterPayload struct {
	Passcode string `json:"passcode"`
}

type rejoinPayload struct {
	Passcode string `json:"passcode"`
	Role     string `json:"role"`
}

type movePayload struct {
	Cell *int `json:"cell"`
}

type SnapshotPayload struct {
	Room              *entity.Session `json:"room"`
	Role              entity.Role     `json:"role"`
	OpponentConnected bool            `json:"opponentConnected"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

func newMessage(action string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{Action: action, Payload: raw}, nil
}
