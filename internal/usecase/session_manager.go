package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coder/quartz"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
)

const (
	DefaultPasscodeMinLength = 3

	// a room may vanish between a failed create and the join
	enterAttempts = 2
)

type sessionRepo interface {
	Get(ctx context.Context, passcode string) (*entity.Session, error)
	Create(ctx context.Context, session *entity.Session) (*entity.Session, error)
	Update(ctx context.Context, passcode string, fn repository.UpdateFunc) (*entity.Session, entity.Patch, error)
	Subscribe(ctx context.Context, passcode string) (<-chan entity.Snapshot, error)
	Delete(ctx context.Context, passcode string) error
}

// NormalizePasscode - trims the passcode and enforces the minimum length.
func NormalizePasscode(raw string, minLength int) (string, error) {
	passcode := strings.TrimSpace(raw)
	if passcode == "" || len([]rune(passcode)) < minLength {
		return "", fmt.Errorf("%w: at least %d characters required", apperror.ErrInvalidPasscode, minLength)
	}

	return passcode, nil
}

// SessionManager owns the room lifecycle: creation, admission and connectivity flags.
type SessionManager struct {
	logger   *slog.Logger
	clock    quartz.Clock
	sessions sessionRepo

	minPasscodeLength int
}

func NewSessionManager(logger *slog.Logger, clock quartz.Clock, sessions sessionRepo, minPasscodeLength int) *SessionManager {
	if minPasscodeLength <= 0 {
		minPasscodeLength = DefaultPasscodeMinLength
	}

	return &SessionManager{
		logger:   logger.With("component", "session-manager"),
		clock:    clock,
		sessions: sessions,

		minPasscodeLength: minPasscodeLength,
	}
}

func (that *SessionManager) Normalize(raw string) (string, error) {
	return NormalizePasscode(raw, that.minPasscodeLength)
}

// Enter - creates the room as player1 or joins it as player2.
func (that *SessionManager) Enter(ctx context.Context, rawPasscode string) (entity.Role, *entity.Session, error) {
	log := that.logger.With("method", "Enter")

	passcode, err := that.Normalize(rawPasscode)
	if err != nil {
		return entity.RoleNone, nil, err
	}

	for range enterAttempts {
		created, err := that.sessions.Create(ctx, entity.NewSession(passcode, that.clock.Now()))
		if err == nil {
			log.Info("room created", "passcode", passcode)
			metrics.RoomsEntered.WithLabelValues(string(entity.RolePlayer1)).Inc()

			return entity.RolePlayer1, created, nil
		}

		if !errors.Is(err, apperror.ErrRoomExists) {
			return entity.RoleNone, nil, fmt.Errorf("failed to create room: %w", err)
		}

		joined, _, err := that.sessions.Update(ctx, passcode, func(session *entity.Session) (entity.Patch, error) {
			return session.Join()
		})

		switch {
		case err == nil:
			log.Info("player joined room", "passcode", passcode)
			metrics.RoomsEntered.WithLabelValues(string(entity.RolePlayer2)).Inc()

			return entity.RolePlayer2, joined, nil
		case errors.Is(err, apperror.ErrRoomNotFound):
			log.Debug("room vanished before join, retrying", "passcode", passcode)
			continue
		case errors.Is(err, apperror.ErrRoomFull):
			metrics.RoomsEntered.WithLabelValues("full").Inc()
			return entity.RoleNone, nil, apperror.ErrRoomFull
		default:
			return entity.RoleNone, nil, fmt.Errorf("failed to join room: %w", err)
		}
	}

	return entity.RoleNone, nil, apperror.ErrWriteConflict
}

func (that *SessionManager) MarkDisconnected(ctx context.Context, passcode string, role entity.Role) error {
	return that.setConnected(ctx, passcode, role, false)
}

func (that *SessionManager) MarkReconnected(ctx context.Context, passcode string, role entity.Role) error {
	return that.setConnected(ctx, passcode, role, true)
}

func (that *SessionManager) setConnected(ctx context.Context, passcode string, role entity.Role, connected bool) error {
	_, _, err := that.sessions.Update(ctx, passcode, func(session *entity.Session) (entity.Patch, error) {
		return session.SetConnected(role, connected)
	})
	if err != nil {
		return fmt.Errorf("failed to set %s connected=%t: %w", role, connected, err)
	}

	that.logger.Info("player connectivity changed", "passcode", passcode, "role", role, "connected", connected)

	return nil
}

func (that *SessionManager) Get(ctx context.Context, passcode string) (*entity.Session, error) {
	session, err := that.sessions.Get(ctx, passcode)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return session, nil
}

// Delete - removes the room; hook for external cleanup.
func (that *SessionManager) Delete(ctx context.Context, passcode string) error {
	if err := that.sessions.Delete(ctx, passcode); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	that.logger.Info("room deleted", "passcode", passcode)

	return nil
}
