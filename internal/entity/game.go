package entity

import (
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

// Match is the per-round state embedded in a session under "game".
type Match struct {
	Turn      Role            `json:"turn"`
	StartedBy Role            `json:"startedBy"`
	State     tictactoe.Board `json:"state"`
	Winner    Role            `json:"winner"`
	WinLine   *tictactoe.Line `json:"winLine"`
	IsDraw    bool            `json:"isDraw"`
}

func NewMatch(starter Role) Match {
	return Match{
		Turn:      starter,
		StartedBy: starter,
	}
}

func (that Match) Clone() Match {
	clone := that
	if that.WinLine != nil {
		line := *that.WinLine
		clone.WinLine = &line
	}

	return clone
}

// MovesPlayed - the number of occupied cells.
func (that Match) MovesPlayed() int {
	var moves int
	for _, cell := range that.State {
		if cell != tictactoe.Empty {
			moves++
		}
	}

	return moves
}

func (that Match) IsTerminal() bool {
	return that.Winner != RoleNone || that.IsDraw
}
