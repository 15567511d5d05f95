package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const defaultUpdateRetries = 5

// UpdateFunc computes a patch from the current record. It must not keep the session.
type UpdateFunc func(session *entity.Session) (entity.Patch, error)

type SessionRepository interface {
	// Get returns the current record or apperror.ErrRoomNotFound.
	Get(ctx context.Context, passcode string) (*entity.Session, error)
	// Create stores a new record unless one exists (apperror.ErrRoomExists).
	Create(ctx context.Context, session *entity.Session) (*entity.Session, error)
	// Patch applies field sets and score increments to an existing record.
	Patch(ctx context.Context, passcode string, patch entity.Patch) (*entity.Session, error)
	// Update runs fn against a snapshot and commits its patch only if the record
	// did not change in between, retrying a bounded number of times.
	Update(ctx context.Context, passcode string, fn UpdateFunc) (*entity.Session, entity.Patch, error)
	// Subscribe streams the record after every committed write until ctx is done.
	Subscribe(ctx context.Context, passcode string) (<-chan entity.Snapshot, error)
	Delete(ctx context.Context, passcode string) error
}

type redisSessions struct {
	log     *slog.Logger
	client  *redis.Client
	retries int
}

func NewSessionRepository(logger *slog.Logger, client *redis.Client, retries int) SessionRepository {
	if retries <= 0 {
		retries = defaultUpdateRetries
	}

	return &redisSessions{
		log:     logger.With("component", "session-repository"),
		client:  client,
		retries: retries,
	}
}

func (that *redisSessions) Get(ctx context.Context, passcode string) (*entity.Session, error) {
	return readSession(ctx, that.client, passcode)
}

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func readSession(ctx context.Context, client hashReader, passcode string) (*entity.Session, error) {
	fields, err := client.HGetAll(ctx, roomKey(passcode)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(fields) == 0) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	session, err := decodeSession(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to decode room: %w", err)
	}

	return session, nil
}

func (that *redisSessions) Create(ctx context.Context, session *entity.Session) (*entity.Session, error) {
	key := roomKey(session.Passcode)

	created := session.Clone()
	created.Version = 1

	fields, err := encodeSession(created)
	if err != nil {
		return nil, err
	}

	err = that.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to check room: %w", err)
		}

		if exists > 0 {
			return apperror.ErrRoomExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			pipe.Publish(ctx, eventsChannel(created.Passcode), created.Version)
			return nil
		})

		return err
	}, key)

	// a concurrent writer touched the key between EXISTS and EXEC
	if errors.Is(err, redis.TxFailedErr) {
		return nil, apperror.ErrRoomExists
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	return created, nil
}

func (that *redisSessions) Patch(ctx context.Context, passcode string, patch entity.Patch) (*entity.Session, error) {
	session, _, err := that.Update(ctx, passcode, func(*entity.Session) (entity.Patch, error) {
		return patch, nil
	})

	return session, err
}

func (that *redisSessions) Update(ctx context.Context, passcode string, fn UpdateFunc) (*entity.Session, entity.Patch, error) {
	log := that.log.With("method", "Update", "passcode", passcode)
	key := roomKey(passcode)

	for attempt := 1; attempt <= that.retries; attempt++ {
		var (
			updated *entity.Session
			applied entity.Patch
		)

		err := that.client.Watch(ctx, func(tx *redis.Tx) error {
			session, err := readSession(ctx, tx, passcode)
			if err != nil {
				return err
			}

			patch, err := fn(session.Clone())
			if err != nil {
				return err
			}

			if patch.IsEmpty() {
				updated = session
				return nil
			}

			sets, increments, err := encodePatch(patch)
			if err != nil {
				return err
			}

			next := session.Version + 1
			sets[fieldVersion] = next

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, sets)
				for field, by := range increments {
					pipe.HIncrBy(ctx, key, field, by)
				}
				pipe.Publish(ctx, eventsChannel(passcode), strconv.FormatInt(next, 10))
				return nil
			})
			if err != nil {
				return err
			}

			session.Apply(patch)
			session.Version = next

			updated = session
			applied = patch

			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			log.Debug("room changed during transaction, retrying", "attempt", attempt)
			continue
		}

		if err != nil {
			return nil, entity.Patch{}, err
		}

		return updated, applied, nil
	}

	log.Warn("optimistic transaction retries exhausted", "retries", that.retries)

	return nil, entity.Patch{}, apperror.ErrWriteConflict
}

func (that *redisSessions) Subscribe(ctx context.Context, passcode string) (<-chan entity.Snapshot, error) {
	log := that.log.With("method", "Subscribe", "passcode", passcode)

	pubsub := that.client.Subscribe(ctx, eventsChannel(passcode))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room: %w", err)
	}

	snapshots := make(chan entity.Snapshot, 1)

	go func() {
		defer close(snapshots)
		defer func() {
			if err := pubsub.Close(); err != nil {
				log.Debug("failed to close subscription", "error", err)
			}
		}()

		messages := pubsub.Channel()

		// subscribed before the first read, so no committed write is missed
		if !that.emit(ctx, passcode, snapshots) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}

				if !that.emit(ctx, passcode, snapshots) {
					return
				}
			}
		}
	}()

	return snapshots, nil
}

func (that *redisSessions) emit(ctx context.Context, passcode string, out chan<- entity.Snapshot) bool {
	session, err := that.Get(ctx, passcode)
	if ctx.Err() != nil {
		return false
	}

	select {
	case out <- entity.Snapshot{Session: session, Err: err}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (that *redisSessions) Delete(ctx context.Context, passcode string) error {
	var deleted *redis.IntCmd

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, roomKey(passcode))
		pipe.Publish(ctx, eventsChannel(passcode), "deleted")
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	if deleted.Val() == 0 {
		return apperror.ErrRoomNotFound
	}

	return nil
}
