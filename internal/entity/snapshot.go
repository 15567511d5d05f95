package entity

import (
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

// Snapshot is one event of a room subscription: either the latest record or an error.
type Snapshot struct {
	Session *Session
	Err     error
}

// RoundResult is the archived outcome of a finished round.
type RoundResult struct {
	ID         int64           `json:"id"`
	Passcode   string          `json:"passcode"`
	Winner     Role            `json:"winner"`
	WinLine    *tictactoe.Line `json:"winLine"`
	IsDraw     bool            `json:"isDraw"`
	StartedBy  Role            `json:"startedBy"`
	Moves      int             `json:"moves"`
	Score      Score           `json:"score"`
	FinishedAt time.Time       `json:"finishedAt"`
}

// NewRoundResult - builds the archive entry of a finished session.
func NewRoundResult(session *Session, finishedAt time.Time) *RoundResult {
	game := session.Game.Clone()

	return &RoundResult{
		Passcode:   session.Passcode,
		Winner:     game.Winner,
		WinLine:    game.WinLine,
		IsDraw:     game.IsDraw,
		StartedBy:  game.StartedBy,
		Moves:      game.MovesPlayed(),
		Score:      session.Score,
		FinishedAt: finishedAt,
	}
}
