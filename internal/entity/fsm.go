package entity

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
)

const (
	TransitionCreate       Transition = "create"
	TransitionJoin         Transition = "join"
	TransitionMove         Transition = "move"
	TransitionFinish       Transition = "finish"
	TransitionReset        Transition = "reset"
	TransitionConnectivity Transition = "connectivity"
)

var ErrUnknownTransition = errors.New("unknown transition")

// Transition names a change of a session's status.
type Transition string

type transitionRule struct {
	// next maps each allowed source status to the resulting status.
	next map[Status]Status
	// rejection is returned when the source status is not allowed.
	rejection error
}

// transitions is the precondition table of the room status machine.
// A join into a running or finished room only refills the player2 slot.
var transitions = map[Transition]transitionRule{
	TransitionCreate: {
		next:      map[Status]Status{StatusNone: StatusWaiting},
		rejection: apperror.ErrRoomExists,
	},
	TransitionJoin: {
		next: map[Status]Status{
			StatusWaiting:  StatusPlaying,
			StatusPlaying:  StatusPlaying,
			StatusFinished: StatusFinished,
		},
		rejection: apperror.ErrRoomNotFound,
	},
	TransitionMove: {
		next:      map[Status]Status{StatusPlaying: StatusPlaying},
		rejection: apperror.ErrGameNotInProgress,
	},
	TransitionFinish: {
		next:      map[Status]Status{StatusPlaying: StatusFinished},
		rejection: apperror.ErrGameNotInProgress,
	},
	TransitionReset: {
		next: map[Status]Status{
			StatusPlaying:  StatusPlaying,
			StatusFinished: StatusPlaying,
		},
		rejection: apperror.ErrGameIsNotStarted,
	},
	TransitionConnectivity: {
		next: map[Status]Status{
			StatusWaiting:  StatusWaiting,
			StatusPlaying:  StatusPlaying,
			StatusFinished: StatusFinished,
		},
		rejection: apperror.ErrRoomNotFound,
	},
}

// NextStatus - resolves the status reached by applying the transition to from.
func NextStatus(transition Transition, from Status) (Status, error) {
	rule, ok := transitions[transition]
	if !ok {
		return StatusNone, fmt.Errorf("%w: %s", ErrUnknownTransition, transition)
	}

	next, ok := rule.next[from]
	if !ok {
		return StatusNone, fmt.Errorf("%w: %s from %q", rule.rejection, transition, from)
	}

	return next, nil
}

func CanTransition(transition Transition, from Status) bool {
	_, err := NextStatus(transition, from)
	return err == nil
}
