package entity

import (
	"time"
)

const (
	StatusNone     Status = ""
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

type Status string

type PlayerState struct {
	Connected bool `json:"connected"`
}

type Players struct {
	Player1 PlayerState `json:"player1"`
	Player2 PlayerState `json:"player2"`
}

func (that Players) Get(role Role) PlayerState {
	if role == RolePlayer2 {
		return that.Player2
	}

	return that.Player1
}

func (that *Players) SetConnected(role Role, connected bool) {
	switch role {
	case RolePlayer1:
		that.Player1.Connected = connected
	case RolePlayer2:
		that.Player2.Connected = connected
	}
}

// Score accumulates across rounds and never decreases.
type Score struct {
	Player1Wins  uint `json:"player1Wins"`
	Player2Wins  uint `json:"player2Wins"`
	Draws        uint `json:"draws"`
	TotalMatches uint `json:"totalMatches"`
}

func (that Score) Add(delta Score) Score {
	return Score{
		Player1Wins:  that.Player1Wins + delta.Player1Wins,
		Player2Wins:  that.Player2Wins + delta.Player2Wins,
		Draws:        that.Draws + delta.Draws,
		TotalMatches: that.TotalMatches + delta.TotalMatches,
	}
}

func (that Score) IsZero() bool {
	return that == Score{}
}

func (that Score) WinsOf(role Role) uint {
	switch role {
	case RolePlayer1:
		return that.Player1Wins
	case RolePlayer2:
		return that.Player2Wins
	default:
		return 0
	}
}

func winDelta(role Role) Score {
	delta := Score{TotalMatches: 1}
	if role == RolePlayer1 {
		delta.Player1Wins = 1
	} else {
		delta.Player2Wins = 1
	}

	return delta
}

// Session is the single shared record of a room, keyed by passcode.
type Session struct {
	Passcode  string    `json:"passcode"`
	Status    Status    `json:"status"`
	Players   Players   `json:"players"`
	Game      Match     `json:"game"`
	Score     Score     `json:"score"`
	CreatedAt time.Time `json:"createdAt"`

	// Version is maintained by the store and grows with every committed write.
	Version int64 `json:"version"`
}

// NewSession - a fresh room held by player1 and waiting for an opponent.
func NewSession(passcode string, createdAt time.Time) *Session {
	status, _ := NextStatus(TransitionCreate, StatusNone)

	return &Session{
		Passcode: passcode,
		Status:   status,
		Players: Players{
			Player1: PlayerState{Connected: true},
			Player2: PlayerState{Connected: false},
		},
		Game:      NewMatch(RolePlayer1),
		CreatedAt: createdAt,
	}
}

func (that *Session) Clone() *Session {
	if that == nil {
		return nil
	}

	clone := *that
	clone.Game = that.Game.Clone()

	return &clone
}

func (that *Session) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Session) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Session) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Session) OpponentConnected(role Role) bool {
	return that.Players.Get(role.Opponent()).Connected
}
