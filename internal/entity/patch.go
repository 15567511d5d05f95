package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

// Patch is the partial update a transition produces for one session.
// Nil and zero fields are left untouched; ScoreDelta is added to the score.
type Patch struct {
	Transition Transition
	Status     *Status
	Connected  map[Role]bool
	Game       *Match
	ScoreDelta Score
}

func (that Patch) IsEmpty() bool {
	return that.Status == nil && len(that.Connected) == 0 && that.Game == nil && that.ScoreDelta.IsZero()
}

// Finished reports whether the patch ends a round.
func (that Patch) Finished() bool {
	return that.Transition == TransitionFinish
}

// Apply - mutates the session with the patch. Version is left to the store.
func (that *Session) Apply(patch Patch) {
	if patch.Status != nil {
		that.Status = *patch.Status
	}

	for role, connected := range patch.Connected {
		that.Players.SetConnected(role, connected)
	}

	if patch.Game != nil {
		that.Game = patch.Game.Clone()
	}

	that.Score = that.Score.Add(patch.ScoreDelta)
}

// Join - attaches a second participant as player2.
func (that *Session) Join() (Patch, error) {
	if that.Players.Player2.Connected {
		return Patch{}, apperror.ErrRoomFull
	}

	next, err := NextStatus(TransitionJoin, that.Status)
	if err != nil {
		return Patch{}, err
	}

	patch := Patch{
		Transition: TransitionJoin,
		Connected:  map[Role]bool{RolePlayer2: true},
	}
	if next != that.Status {
		patch.Status = &next
	}

	return patch, nil
}

// Move - validates and plays a marker for role at cell.
// Checks run in order: role and cell, status, turn, free cell.
func (that *Session) Move(role Role, cell int) (Patch, error) {
	if !role.Valid() {
		return Patch{}, fmt.Errorf("%w: %q", apperror.ErrInvalidRole, role)
	}

	if !tictactoe.ValidCell(cell) {
		return Patch{}, fmt.Errorf("%w: %d", apperror.ErrInvalidCell, cell)
	}

	if _, err := NextStatus(TransitionMove, that.Status); err != nil {
		return Patch{}, err
	}

	if that.Game.Turn != role {
		return Patch{}, apperror.ErrNotYourTurn
	}

	if that.Game.State[cell] != tictactoe.Empty {
		return Patch{}, fmt.Errorf("%w: %d", apperror.ErrCellOccupied, cell)
	}

	game := that.Game.Clone()
	game.State[cell] = role.Marker()

	outcome := tictactoe.CheckOutcome(game.State)
	if !outcome.IsTerminal() {
		game.Turn = role.Opponent()
		return Patch{Transition: TransitionMove, Game: &game}, nil
	}

	finished, err := NextStatus(TransitionFinish, that.Status)
	if err != nil {
		return Patch{}, err
	}

	patch := Patch{Transition: TransitionFinish, Status: &finished, Game: &game}

	if outcome.HasWinner() {
		winner := RoleForMarker(outcome.Winner)
		line := outcome.Line

		game.Winner = winner
		game.WinLine = &line
		patch.ScoreDelta = winDelta(winner)
	} else {
		game.IsDraw = true
		patch.ScoreDelta = Score{Draws: 1, TotalMatches: 1}
	}

	return patch, nil
}

// Reset - starts the next round with the role that did not start the last one.
func (that *Session) Reset() (Patch, error) {
	next, err := NextStatus(TransitionReset, that.Status)
	if err != nil {
		return Patch{}, err
	}

	lastStarter := that.Game.StartedBy
	if !lastStarter.Valid() {
		lastStarter = RolePlayer1
	}

	game := NewMatch(lastStarter.Opponent())

	return Patch{Transition: TransitionReset, Status: &next, Game: &game}, nil
}

// SetConnected - flips the connectivity flag of role. Status and game are untouched.
func (that *Session) SetConnected(role Role, connected bool) (Patch, error) {
	if !role.Valid() {
		return Patch{}, fmt.Errorf("%w: %q", apperror.ErrInvalidRole, role)
	}

	if _, err := NextStatus(TransitionConnectivity, that.Status); err != nil {
		return Patch{}, err
	}

	return Patch{
		Transition: TransitionConnectivity,
		Connected:  map[Role]bool{role: connected},
	}, nil
}
