package entity

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

var createdAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newPlayingSession(t *testing.T) *Session {
	t.Helper()

	session := NewSession("7392", createdAt)
	patch, err := session.Join()
	require.NoError(t, err)
	session.Apply(patch)

	return session
}

func play(t *testing.T, session *Session, role Role, cell int) Patch {
	t.Helper()

	patch, err := session.Move(role, cell)
	require.NoError(t, err)
	session.Apply(patch)

	return patch
}

func TestSession_Admission(t *testing.T) {
	t.Run("Creator waits as player1", func(t *testing.T) {
		// Given: nobody has used passcode 7392

		// When: the first client creates the room
		session := NewSession("7392", createdAt)

		// Then: the room is waiting with only player1 connected and an empty match
		assert.Equal(t, StatusWaiting, session.Status)
		assert.True(t, session.Players.Player1.Connected)
		assert.False(t, session.Players.Player2.Connected)
		assert.Equal(t, RolePlayer1, session.Game.Turn)
		assert.Equal(t, RolePlayer1, session.Game.StartedBy)
		assert.Equal(t, tictactoe.Board{}, session.Game.State)
		assert.True(t, session.Score.IsZero())
		assert.Equal(t, createdAt, session.CreatedAt)
	})

	t.Run("Second client joins as player2 and a third is rejected", func(t *testing.T) {
		// Given: a waiting room
		session := NewSession("7392", createdAt)

		// When: a second client joins
		patch, err := session.Join()
		require.NoError(t, err)
		session.Apply(patch)

		// Then: the room is playing with both players connected
		assert.Equal(t, StatusPlaying, session.Status)
		assert.True(t, session.Players.Player2.Connected)

		// When: a third client tries to join
		before := session.Clone()
		_, err = session.Join()

		// Then: the room is full and nothing changed
		require.ErrorIs(t, err, apperror.ErrRoomFull)
		assert.Equal(t, before, session)
	})

	t.Run("Join into a finished room only refills the slot", func(t *testing.T) {
		// Given: a finished round whose player2 dropped out
		session := newPlayingSession(t)
		for i, cell := range []int{0, 3, 1, 4, 2} {
			play(t, session, []Role{RolePlayer1, RolePlayer2}[i%2], cell)
		}
		disconnect, err := session.SetConnected(RolePlayer2, false)
		require.NoError(t, err)
		session.Apply(disconnect)

		// When: someone joins
		patch, err := session.Join()
		require.NoError(t, err)
		session.Apply(patch)

		// Then: the status still reflects the finished round
		assert.Nil(t, patch.Status)
		assert.Equal(t, StatusFinished, session.Status)
		assert.True(t, session.Players.Player2.Connected)
		assert.Equal(t, RolePlayer1, session.Game.Winner)
	})
}

func TestSession_Move(t *testing.T) {
	t.Run("Top row win for player1", func(t *testing.T) {
		// Given: a playing room
		session := newPlayingSession(t)

		// When: moves 0,3,1,4,2 are played alternately
		play(t, session, RolePlayer1, 0)
		play(t, session, RolePlayer2, 3)
		play(t, session, RolePlayer1, 1)
		play(t, session, RolePlayer2, 4)
		last := play(t, session, RolePlayer1, 2)

		// Then: player1 wins on the top row
		assert.True(t, last.Finished())
		assert.Equal(t, StatusFinished, session.Status)
		assert.Equal(t, RolePlayer1, session.Game.Winner)
		require.NotNil(t, session.Game.WinLine)
		assert.Equal(t, tictactoe.Line{0, 1, 2}, *session.Game.WinLine)
		assert.False(t, session.Game.IsDraw)
		assert.Equal(t, Score{Player1Wins: 1, TotalMatches: 1}, session.Score)
		assert.Equal(t, RolePlayer1, session.Game.Turn, "a terminal move keeps the turn")
	})

	t.Run("Full board draw", func(t *testing.T) {
		// Given: a playing room
		session := newPlayingSession(t)

		// When: nine moves fill the board without a line
		cells := []int{0, 1, 2, 4, 3, 5, 7, 6, 8}
		for i, cell := range cells {
			play(t, session, []Role{RolePlayer1, RolePlayer2}[i%2], cell)
		}

		// Then: the round is a draw
		assert.Equal(t, StatusFinished, session.Status)
		assert.True(t, session.Game.IsDraw)
		assert.Equal(t, RoleNone, session.Game.Winner)
		assert.Nil(t, session.Game.WinLine)
		assert.Equal(t, Score{Draws: 1, TotalMatches: 1}, session.Score)
	})

	t.Run("Duplicate move is rejected without changes", func(t *testing.T) {
		// Given: player1 already played cell 4
		session := newPlayingSession(t)
		play(t, session, RolePlayer1, 4)
		before := session.Clone()

		// When: the same move is submitted again
		_, err := session.Move(RolePlayer1, 4)

		// Then: it is rejected as out of turn
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.True(t, apperror.IsMoveRejection(err))
		assert.Equal(t, before, session)

		// When: the opponent targets the occupied cell
		_, err = session.Move(RolePlayer2, 4)

		// Then: it is rejected as occupied
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		assert.Equal(t, before, session)
	})

	t.Run("Move in a waiting room is rejected", func(t *testing.T) {
		// Given: a room without an opponent
		session := NewSession("7392", createdAt)

		// When: player1 tries to move
		_, err := session.Move(RolePlayer1, 0)

		// Then: the game is not in progress
		require.ErrorIs(t, err, apperror.ErrGameNotInProgress)
	})

	t.Run("Move after the round finished is rejected", func(t *testing.T) {
		// Given: a finished round
		session := newPlayingSession(t)
		for i, cell := range []int{0, 3, 1, 4, 2} {
			play(t, session, []Role{RolePlayer1, RolePlayer2}[i%2], cell)
		}

		// When: player2 tries to move
		_, err := session.Move(RolePlayer2, 8)

		// Then: the game is not in progress
		require.ErrorIs(t, err, apperror.ErrGameNotInProgress)
	})

	t.Run("Invalid cell and role", func(t *testing.T) {
		// Given: a playing room
		session := newPlayingSession(t)

		// When: moves outside the board or by an unknown role are submitted
		_, cellErr := session.Move(RolePlayer1, 9)
		_, roleErr := session.Move(Role("player3"), 0)

		// Then: both are rejected
		require.ErrorIs(t, cellErr, apperror.ErrInvalidCell)
		require.ErrorIs(t, roleErr, apperror.ErrInvalidRole)
	})
}

func TestSession_Reset(t *testing.T) {
	t.Run("Starter alternates and score persists", func(t *testing.T) {
		// Given: player1 won a round that player1 started
		session := newPlayingSession(t)
		for i, cell := range []int{0, 3, 1, 4, 2} {
			play(t, session, []Role{RolePlayer1, RolePlayer2}[i%2], cell)
		}

		// When: the round is reset
		patch, err := session.Reset()
		require.NoError(t, err)
		session.Apply(patch)

		// Then: player2 starts a clean round and the score is kept
		assert.Equal(t, StatusPlaying, session.Status)
		assert.Equal(t, RolePlayer2, session.Game.Turn)
		assert.Equal(t, RolePlayer2, session.Game.StartedBy)
		assert.Equal(t, tictactoe.Board{}, session.Game.State)
		assert.Equal(t, RoleNone, session.Game.Winner)
		assert.Nil(t, session.Game.WinLine)
		assert.False(t, session.Game.IsDraw)
		assert.Equal(t, Score{Player1Wins: 1, TotalMatches: 1}, session.Score)

		// When: reset again
		patch, err = session.Reset()
		require.NoError(t, err)
		session.Apply(patch)

		// Then: player1 starts again
		assert.Equal(t, RolePlayer1, session.Game.StartedBy)
	})

	t.Run("Missing starter is treated as player1", func(t *testing.T) {
		// Given: a finished session without startedBy
		session := newPlayingSession(t)
		session.Status = StatusFinished
		session.Game.StartedBy = RoleNone

		// When: the round is reset
		patch, err := session.Reset()
		require.NoError(t, err)

		// Then: player2 starts
		assert.Equal(t, RolePlayer2, patch.Game.StartedBy)
	})

	t.Run("Reset in a waiting room is rejected", func(t *testing.T) {
		// Given: a room without an opponent
		session := NewSession("7392", createdAt)

		// When: reset is requested
		_, err := session.Reset()

		// Then: the game is not started
		require.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
	})
}

func TestSession_SetConnected(t *testing.T) {
	// Given: a playing room with a move on the board
	session := newPlayingSession(t)
	play(t, session, RolePlayer1, 4)
	game := session.Game.Clone()

	// When: player2 disconnects
	patch, err := session.SetConnected(RolePlayer2, false)
	require.NoError(t, err)
	session.Apply(patch)

	// Then: only the flag changed
	assert.False(t, session.Players.Player2.Connected)
	assert.False(t, session.OpponentConnected(RolePlayer1))
	assert.Equal(t, StatusPlaying, session.Status)
	assert.Equal(t, game, session.Game)

	// When: player2 reconnects
	patch, err = session.SetConnected(RolePlayer2, true)
	require.NoError(t, err)
	session.Apply(patch)

	// Then: the opponent is back
	assert.True(t, session.OpponentConnected(RolePlayer1))
}

// TestSession_RandomRounds plays many random rounds and checks the
// invariants that must hold after every accepted move.
func TestSession_RandomRounds(t *testing.T) {
	rnd := rand.New(rand.NewSource(42)) //nolint: gosec // deterministic test data

	session := newPlayingSession(t)

	for round := 0; round < 200; round++ {
		starter := session.Game.StartedBy
		moves := 0

		for session.IsPlaying() {
			mover := session.Game.Turn
			expected := starter
			if moves%2 == 1 {
				expected = starter.Opponent()
			}
			require.Equal(t, expected, mover, "turn alternates")

			cell := rnd.Intn(tictactoe.Size)
			patch, err := session.Move(mover, cell)
			if err != nil {
				require.ErrorIs(t, err, apperror.ErrCellOccupied)
				continue
			}

			session.Apply(patch)
			moves++

			terminal := 0
			if session.Game.Winner != RoleNone {
				terminal++
			}
			if session.Game.IsDraw {
				terminal++
			}
			require.LessOrEqual(t, terminal, 1)
			require.Equal(t, terminal == 1, session.IsFinished())
		}

		score := session.Score
		require.Equal(t, score.TotalMatches, score.Player1Wins+score.Player2Wins+score.Draws)
		require.Equal(t, uint(round+1), score.TotalMatches)

		patch, err := session.Reset()
		require.NoError(t, err)
		session.Apply(patch)
		require.Equal(t, starter.Opponent(), session.Game.StartedBy)
	}
}
