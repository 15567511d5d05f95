package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

const (
	RoleNone    Role = ""
	RolePlayer1 Role = "player1"
	RolePlayer2 Role = "player2"
)

// Role is the permanent seat of a participant in a room.
type Role string

func ParseRole(value string) (Role, error) {
	role := Role(value)
	if !role.Valid() {
		return RoleNone, fmt.Errorf("%w: %q", apperror.ErrInvalidRole, value)
	}

	return role, nil
}

func (that Role) Valid() bool {
	return that == RolePlayer1 || that == RolePlayer2
}

func (that Role) Opponent() Role {
	switch that {
	case RolePlayer1:
		return RolePlayer2
	case RolePlayer2:
		return RolePlayer1
	default:
		return RoleNone
	}
}

// Marker - player1 plays X, player2 plays O.
func (that Role) Marker() tictactoe.Marker {
	switch that {
	case RolePlayer1:
		return tictactoe.MarkerX
	case RolePlayer2:
		return tictactoe.MarkerO
	default:
		return tictactoe.Empty
	}
}

func RoleForMarker(marker tictactoe.Marker) Role {
	switch marker {
	case tictactoe.MarkerX:
		return RolePlayer1
	case tictactoe.MarkerO:
		return RolePlayer2
	default:
		return RoleNone
	}
}
