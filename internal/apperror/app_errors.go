package apperror

import "errors"

var (
	ErrRoomFull        = errors.New("room is full, try a different passcode")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomExists      = errors.New("room already exists")
	ErrInvalidPasscode = errors.New("invalid passcode")
	ErrInvalidRole     = errors.New("invalid role")
	ErrWriteConflict   = errors.New("room was modified concurrently, retries exhausted")

	ErrGameNotInProgress = errors.New("game is not in progress")
	ErrGameIsNotStarted  = errors.New("game is not started")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrCellOccupied      = errors.New("cell is already occupied")
	ErrInvalidCell       = errors.New("invalid cell index")
)

// IsMoveRejection reports whether err is one of the validation failures
// that a move submission answers with a silent no-op.
func IsMoveRejection(err error) bool {
	return errors.Is(err, ErrGameNotInProgress) ||
		errors.Is(err, ErrNotYourTurn) ||
		errors.Is(err, ErrCellOccupied) ||
		errors.Is(err, ErrInvalidCell)
}
