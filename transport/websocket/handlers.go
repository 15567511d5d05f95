package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const genericErrorMessage = "something went wrong, please try again"

var (
	errUnknownAction  = errors.New("unknown action")
	errBadPayload     = errors.New("malformed payload")
	errNotInRoom      = errors.New("enter a room first")
	errCellIsRequired = errors.New("cell is required")
)

func (that *Server) handleEnter(ctx context.Context, conn *Connection, msg *Message) error {
	var payload enterPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("%w: %w", errBadPayload, err)
	}

	that.leaveSeat(ctx, conn)

	role, session, err := that.sessions.Enter(ctx, payload.Passcode)
	if err != nil {
		return err
	}

	return that.seat(ctx, conn, session.Passcode, role)
}

func (that *Server) handleRejoin(ctx context.Context, conn *Connection, msg *Message) error {
	var payload rejoinPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("%w: %w", errBadPayload, err)
	}

	passcode, err := that.sessions.Normalize(payload.Passcode)
	if err != nil {
		return err
	}

	role, err := entity.ParseRole(payload.Role)
	if err != nil {
		return err
	}

	that.leaveSeat(ctx, conn)

	if err = that.sessions.MarkReconnected(ctx, passcode, role); err != nil {
		return err
	}

	return that.seat(ctx, conn, passcode, role)
}

func (that *Server) handleMove(ctx context.Context, conn *Connection, msg *Message) error {
	passcode, role := conn.Seat()
	if passcode == "" {
		return errNotInRoom
	}

	var payload movePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("%w: %w", errBadPayload, err)
	}

	if payload.Cell == nil {
		return errCellIsRequired
	}

	// a rejected move is silent; the next snapshot shows the unchanged board
	_, err := that.matches.SubmitMove(ctx, passcode, *payload.Cell, role)

	return err
}

func (that *Server) handleReset(ctx context.Context, conn *Connection, _ *Message) error {
	passcode, _ := conn.Seat()
	if passcode == "" {
		return errNotInRoom
	}

	return that.matches.ResetRound(ctx, passcode)
}

func (that *Server) handleLeave(ctx context.Context, conn *Connection, _ *Message) error {
	that.leaveSeat(ctx, conn)
	return nil
}

// seat - binds conn to the room and forwards room events to it.
func (that *Server) seat(ctx context.Context, conn *Connection, passcode string, role entity.Role) error {
	watchCtx, stopWatch := context.WithCancel(ctx)

	events, err := that.watcher.Watch(watchCtx, passcode)
	if err != nil {
		stopWatch()
		return err
	}

	conn.seat(passcode, role, stopWatch)

	go that.forward(conn, role, events)

	return nil
}

func (that *Server) forward(conn *Connection, role entity.Role, events <-chan entity.Snapshot) {
	for event := range events {
		if event.Err != nil {
			that.sendError(conn, event.Err)
			continue
		}

		message, err := newMessage(actionSnapshot, SnapshotPayload{
			Room:              event.Session,
			Role:              role,
			OpponentConnected: event.Session.OpponentConnected(role),
		})
		if err != nil {
			that.logger.Error("failed to marshal snapshot", "error", err)
			continue
		}

		if err = conn.Send(message); err != nil {
			return
		}
	}
}

// leaveSeat - releases the current seat, if any, and flags it disconnected.
func (that *Server) leaveSeat(ctx context.Context, conn *Connection) {
	passcode, role := conn.unseat()
	if passcode == "" {
		return
	}

	if err := that.sessions.MarkDisconnected(ctx, passcode, role); err != nil {
		that.logger.Warn("failed to mark player disconnected", "passcode", passcode, "role", role, "error", err)
	}
}

func (that *Server) sendError(conn *Connection, err error) {
	message, marshalErr := newMessage(actionError, ErrorPayload{Error: errorMessage(err)})
	if marshalErr != nil {
		that.logger.Error("failed to marshal error", "error", marshalErr)
		return
	}

	_ = conn.Send(message)
}

// errorMessage - user facing text; unexpected failures get a generic message.
func errorMessage(err error) string {
	known := []error{
		apperror.ErrRoomFull,
		apperror.ErrRoomNotFound,
		apperror.ErrInvalidPasscode,
		apperror.ErrInvalidRole,
		apperror.ErrWriteConflict,
		errUnknownAction,
		errBadPayload,
		errNotInRoom,
		errCellIsRequired,
	}

	for _, target := range known {
		if errors.Is(err, target) {
			return target.Error()
		}
	}

	return genericErrorMessage
}
