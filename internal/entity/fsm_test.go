package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name       string
		transition Transition
		from       Status
		want       Status
		wantErr    error
	}{
		{"create", TransitionCreate, StatusNone, StatusWaiting, nil},
		{"create twice", TransitionCreate, StatusWaiting, StatusNone, apperror.ErrRoomExists},
		{"join waiting", TransitionJoin, StatusWaiting, StatusPlaying, nil},
		{"join finished keeps status", TransitionJoin, StatusFinished, StatusFinished, nil},
		{"move playing", TransitionMove, StatusPlaying, StatusPlaying, nil},
		{"move waiting", TransitionMove, StatusWaiting, StatusNone, apperror.ErrGameNotInProgress},
		{"move finished", TransitionMove, StatusFinished, StatusNone, apperror.ErrGameNotInProgress},
		{"finish playing", TransitionFinish, StatusPlaying, StatusFinished, nil},
		{"reset finished", TransitionReset, StatusFinished, StatusPlaying, nil},
		{"reset playing", TransitionReset, StatusPlaying, StatusPlaying, nil},
		{"reset waiting", TransitionReset, StatusWaiting, StatusNone, apperror.ErrGameIsNotStarted},
		{"connectivity waiting", TransitionConnectivity, StatusWaiting, StatusWaiting, nil},
		{"unknown", Transition("teleport"), StatusPlaying, StatusNone, ErrUnknownTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When: resolving the transition
			got, err := NextStatus(tt.transition, tt.from)

			// Then: the table decides
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.False(t, CanTransition(tt.transition, tt.from))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, CanTransition(tt.transition, tt.from))
		})
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("player2")
	require.NoError(t, err)
	assert.Equal(t, RolePlayer2, role)
	assert.Equal(t, RolePlayer1, role.Opponent())

	_, err = ParseRole("spectator")
	require.ErrorIs(t, err, apperror.ErrInvalidRole)
}
