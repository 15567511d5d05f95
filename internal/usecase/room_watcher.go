package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// RoomWatcher turns the store subscription into an ordered, de-duplicated event stream.
type RoomWatcher struct {
	logger   *slog.Logger
	sessions sessionRepo
}

func NewRoomWatcher(logger *slog.Logger, sessions sessionRepo) *RoomWatcher {
	return &RoomWatcher{
		logger:   logger.With("component", "room-watcher"),
		sessions: sessions,
	}
}

// Watch - delivers snapshots with strictly growing versions until ctx is done.
// A missing room is delivered once as apperror.ErrRoomNotFound.
func (that *RoomWatcher) Watch(ctx context.Context, passcode string) (<-chan entity.Snapshot, error) {
	log := that.logger.With("method", "Watch", "passcode", passcode)

	source, err := that.sessions.Subscribe(ctx, passcode)
	if err != nil {
		return nil, fmt.Errorf("failed to watch room: %w", err)
	}

	events := make(chan entity.Snapshot, 1)

	go func() {
		defer close(events)

		var (
			lastVersion   int64
			lastCreatedAt time.Time
			missing       bool
		)

		for snapshot := range source {
			switch {
			case errors.Is(snapshot.Err, apperror.ErrRoomNotFound):
				if missing {
					continue
				}
				missing = true
				lastVersion = 0
				lastCreatedAt = time.Time{}
			case snapshot.Err != nil:
				log.Warn("room subscription failed", "error", snapshot.Err)
			default:
				session := snapshot.Session
				// a recreated room starts counting again
				if !session.CreatedAt.Equal(lastCreatedAt) {
					lastVersion = 0
					lastCreatedAt = session.CreatedAt
				}

				if session.Version <= lastVersion {
					continue
				}
				lastVersion = session.Version
				missing = false
			}

			select {
			case events <- snapshot:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
