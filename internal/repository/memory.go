package repository

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// memorySessions keeps rooms in process. Writes are serialized by one mutex,
// so Update never conflicts.
type memorySessions struct {
	mu          sync.Mutex
	rooms       map[string]*entity.Session
	subscribers map[string]map[chan struct{}]struct{}
}

func NewMemorySessionRepository() SessionRepository {
	return &memorySessions{
		rooms:       make(map[string]*entity.Session),
		subscribers: make(map[string]map[chan struct{}]struct{}),
	}
}

func (that *memorySessions) Get(_ context.Context, passcode string) (*entity.Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.rooms[passcode]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return session.Clone(), nil
}

func (that *memorySessions) Create(_ context.Context, session *entity.Session) (*entity.Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[session.Passcode]; ok {
		return nil, apperror.ErrRoomExists
	}

	created := session.Clone()
	created.Version = 1
	that.rooms[created.Passcode] = created
	that.notifyLocked(created.Passcode)

	return created.Clone(), nil
}

func (that *memorySessions) Patch(ctx context.Context, passcode string, patch entity.Patch) (*entity.Session, error) {
	session, _, err := that.Update(ctx, passcode, func(*entity.Session) (entity.Patch, error) {
		return patch, nil
	})

	return session, err
}

func (that *memorySessions) Update(_ context.Context, passcode string, fn UpdateFunc) (*entity.Session, entity.Patch, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.rooms[passcode]
	if !ok {
		return nil, entity.Patch{}, apperror.ErrRoomNotFound
	}

	patch, err := fn(session.Clone())
	if err != nil {
		return nil, entity.Patch{}, err
	}

	if patch.IsEmpty() {
		return session.Clone(), patch, nil
	}

	session.Apply(patch)
	session.Version++
	that.notifyLocked(passcode)

	return session.Clone(), patch, nil
}

func (that *memorySessions) Subscribe(ctx context.Context, passcode string) (<-chan entity.Snapshot, error) {
	wake := make(chan struct{}, 1)
	wake <- struct{}{}

	that.mu.Lock()
	if that.subscribers[passcode] == nil {
		that.subscribers[passcode] = make(map[chan struct{}]struct{})
	}
	that.subscribers[passcode][wake] = struct{}{}
	that.mu.Unlock()

	snapshots := make(chan entity.Snapshot, 1)

	go func() {
		defer close(snapshots)
		defer func() {
			that.mu.Lock()
			delete(that.subscribers[passcode], wake)
			if len(that.subscribers[passcode]) == 0 {
				delete(that.subscribers, passcode)
			}
			that.mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-wake:
				session, err := that.Get(ctx, passcode)

				select {
				case snapshots <- entity.Snapshot{Session: session, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return snapshots, nil
}

func (that *memorySessions) Delete(_ context.Context, passcode string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[passcode]; !ok {
		return apperror.ErrRoomNotFound
	}

	delete(that.rooms, passcode)
	that.notifyLocked(passcode)

	return nil
}

// notifyLocked wakes subscribers without blocking; pending wakes coalesce
// because each subscriber re-reads the latest record.
func (that *memorySessions) notifyLocked(passcode string) {
	for wake := range that.subscribers[passcode] {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
}
