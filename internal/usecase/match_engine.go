package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coder/quartz"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/metrics"
)

type historyRepo interface {
	Record(ctx context.Context, result *entity.RoundResult) error
	ListByPasscode(ctx context.Context, passcode string, limit int) ([]*entity.RoundResult, error)
}

// MatchEngine drives moves and round resets of a room.
type MatchEngine struct {
	logger   *slog.Logger
	clock    quartz.Clock
	sessions sessionRepo
	history  historyRepo
}

// NewMatchEngine - history may be nil, then finished rounds are not archived.
func NewMatchEngine(logger *slog.Logger, clock quartz.Clock, sessions sessionRepo, history historyRepo) *MatchEngine {
	return &MatchEngine{
		logger:   logger.With("component", "match-engine"),
		clock:    clock,
		sessions: sessions,
		history:  history,
	}
}

// SubmitMove - plays cell for role. Validation failures return false without an error.
func (that *MatchEngine) SubmitMove(ctx context.Context, passcode string, cell int, role entity.Role) (bool, error) {
	log := that.logger.With("method", "SubmitMove", "passcode", passcode, "role", role, "cell", cell)

	session, patch, err := that.sessions.Update(ctx, passcode, func(session *entity.Session) (entity.Patch, error) {
		return session.Move(role, cell)
	})
	if apperror.IsMoveRejection(err) {
		log.Debug("move rejected", "reason", err)
		metrics.Moves.WithLabelValues("rejected").Inc()

		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to submit move: %w", err)
	}

	metrics.Moves.WithLabelValues("accepted").Inc()

	if patch.Finished() {
		that.finishRound(ctx, session)
	}

	return true, nil
}

// ResetRound - starts the next round with the other starter. A room still waiting is left as is.
func (that *MatchEngine) ResetRound(ctx context.Context, passcode string) error {
	log := that.logger.With("method", "ResetRound", "passcode", passcode)

	session, _, err := that.sessions.Update(ctx, passcode, func(session *entity.Session) (entity.Patch, error) {
		return session.Reset()
	})
	if errors.Is(err, apperror.ErrGameIsNotStarted) {
		log.Debug("reset ignored, room is waiting")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to reset round: %w", err)
	}

	log.Info("round reset", "startedBy", session.Game.StartedBy)

	return nil
}

func (that *MatchEngine) History(ctx context.Context, passcode string, limit int) ([]*entity.RoundResult, error) {
	if that.history == nil {
		return []*entity.RoundResult{}, nil
	}

	results, err := that.history.ListByPasscode(ctx, passcode, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	return results, nil
}

func (that *MatchEngine) finishRound(ctx context.Context, session *entity.Session) {
	log := that.logger.With("method", "finishRound", "passcode", session.Passcode)

	outcome := "win"
	if session.Game.IsDraw {
		outcome = "draw"
	}
	metrics.RoundsFinished.WithLabelValues(outcome).Inc()

	log.Info("round finished", "outcome", outcome, "winner", session.Game.Winner, "score", session.Score)

	if that.history == nil {
		return
	}

	// the move is committed already; a lost archive entry is only logged
	if err := that.history.Record(ctx, entity.NewRoundResult(session, that.clock.Now())); err != nil {
		log.Error("failed to record round", "error", err)
	}
}
