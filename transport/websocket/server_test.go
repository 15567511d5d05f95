package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
)

const readTimeout = 5 * time.Second

type testEnv struct {
	url     string
	manager *usecase.SessionManager
}

func newTestEnv(t *testing.T) (context.Context, *testEnv) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := quartz.NewMock(t)
	sessions := repository.NewMemorySessionRepository()

	manager := usecase.NewSessionManager(logger, clock, sessions, usecase.DefaultPasscodeMinLength)
	engine := usecase.NewMatchEngine(logger, clock, sessions, nil)
	watcher := usecase.NewRoomWatcher(logger, sessions)

	server := New(logger, manager, engine, watcher, "*")
	httpServer := httptest.NewServer(server.Handler(ctx))
	t.Cleanup(httpServer.Close)

	return ctx, &testEnv{
		url:     "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws",
		manager: manager,
	}
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func (that *testEnv) dial(t *testing.T) *client {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(that.url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &client{t: t, conn: conn}
}

func (that *client) send(action string, payload any) {
	that.t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(that.t, err)
	require.NoError(that.t, that.conn.WriteJSON(Message{Action: action, Payload: raw}))
}

func (that *client) read() Message {
	that.t.Helper()

	require.NoError(that.t, that.conn.SetReadDeadline(time.Now().Add(readTimeout)))

	var message Message
	require.NoError(that.t, that.conn.ReadJSON(&message))

	return message
}

// awaitSnapshot reads until a snapshot satisfies match.
func (that *client) awaitSnapshot(match func(SnapshotPayload) bool) SnapshotPayload {
	that.t.Helper()

	for {
		message := that.read()
		if message.Action != actionSnapshot {
			continue
		}

		var payload SnapshotPayload
		require.NoError(that.t, json.Unmarshal(message.Payload, &payload))

		if match(payload) {
			return payload
		}
	}
}

func (that *client) awaitError() ErrorPayload {
	that.t.Helper()

	for {
		message := that.read()
		if message.Action != actionError {
			continue
		}

		var payload ErrorPayload
		require.NoError(that.t, json.Unmarshal(message.Payload, &payload))

		return payload
	}
}

func TestServer_Game(t *testing.T) {
	_, env := newTestEnv(t)

	alice := env.dial(t)
	bob := env.dial(t)

	// When: alice and bob enter 7392
	alice.send(actionEnter, enterPayload{Passcode: "7392"})
	waiting := alice.awaitSnapshot(func(p SnapshotPayload) bool { return true })

	// Then: alice is player1 waiting for an opponent
	assert.Equal(t, entity.RolePlayer1, waiting.Role)
	assert.Equal(t, entity.StatusWaiting, waiting.Room.Status)
	assert.False(t, waiting.OpponentConnected)

	bob.send(actionEnter, enterPayload{Passcode: "7392"})
	bobView := bob.awaitSnapshot(func(p SnapshotPayload) bool { return true })
	assert.Equal(t, entity.RolePlayer2, bobView.Role)
	assert.Equal(t, entity.StatusPlaying, bobView.Room.Status)
	assert.True(t, bobView.OpponentConnected)

	aliceView := alice.awaitSnapshot(func(p SnapshotPayload) bool { return p.Room.Status == entity.StatusPlaying })
	assert.True(t, aliceView.OpponentConnected)

	// When: moves 0,3,1,4,2 are played
	players := []*client{alice, bob}
	for i, cell := range []int{0, 3, 1, 4, 2} {
		players[i%2].send(actionMove, movePayload{Cell: &cell})
		moves := i + 1
		alice.awaitSnapshot(func(p SnapshotPayload) bool { return p.Room.Game.MovesPlayed() == moves })
	}

	// Then: both see player1 win
	final := bob.awaitSnapshot(func(p SnapshotPayload) bool { return p.Room.Status == entity.StatusFinished })
	assert.Equal(t, entity.RolePlayer1, final.Room.Game.Winner)
	assert.Equal(t, uint(1), final.Room.Score.Player1Wins)

	// When: bob asks for a new round
	bob.send(actionReset, struct{}{})

	// Then: bob starts the next round
	next := alice.awaitSnapshot(func(p SnapshotPayload) bool { return p.Room.Status == entity.StatusPlaying })
	assert.Equal(t, entity.RolePlayer2, next.Room.Game.StartedBy)
	assert.Equal(t, uint(1), next.Room.Score.TotalMatches)
}

func TestServer_RoomFull(t *testing.T) {
	_, env := newTestEnv(t)

	for _, c := range []*client{env.dial(t), env.dial(t)} {
		c.send(actionEnter, enterPayload{Passcode: "7392"})
		c.awaitSnapshot(func(SnapshotPayload) bool { return true })
	}

	// When: a third client enters
	carol := env.dial(t)
	carol.send(actionEnter, enterPayload{Passcode: "7392"})

	// Then: the room is full
	assert.Equal(t, "room is full, try a different passcode", carol.awaitError().Error)
}

func TestServer_Errors(t *testing.T) {
	_, env := newTestEnv(t)
	c := env.dial(t)

	// When: moving before entering a room
	cell := 0
	c.send(actionMove, movePayload{Cell: &cell})

	// Then: the client is told to enter first
	assert.Equal(t, errNotInRoom.Error(), c.awaitError().Error)

	// When: sending an unknown action
	c.send("room:dance", struct{}{})

	// Then: the action is reported
	assert.Equal(t, errUnknownAction.Error(), c.awaitError().Error)

	// When: entering with a short passcode
	c.send(actionEnter, enterPayload{Passcode: " 12 "})

	// Then: the passcode is rejected
	assert.Equal(t, "invalid passcode", c.awaitError().Error)
}

func TestServer_DisconnectOnClose(t *testing.T) {
	ctx, env := newTestEnv(t)

	alice := env.dial(t)
	bob := env.dial(t)

	alice.send(actionEnter, enterPayload{Passcode: "7392"})
	alice.awaitSnapshot(func(SnapshotPayload) bool { return true })
	bob.send(actionEnter, enterPayload{Passcode: "7392"})
	bob.awaitSnapshot(func(SnapshotPayload) bool { return true })

	// When: bob's socket closes
	require.NoError(t, bob.conn.Close())

	// Then: alice sees the opponent disconnected
	view := alice.awaitSnapshot(func(p SnapshotPayload) bool { return !p.OpponentConnected })
	assert.False(t, view.Room.Players.Player2.Connected)
	assert.Equal(t, entity.StatusPlaying, view.Room.Status)

	// When: bob comes back on a new socket
	bobAgain := env.dial(t)
	bobAgain.send(actionRejoin, rejoinPayload{Passcode: "7392", Role: "player2"})

	// Then: both sides see each other again
	back := bobAgain.awaitSnapshot(func(p SnapshotPayload) bool { return p.OpponentConnected })
	assert.Equal(t, entity.RolePlayer2, back.Role)
	alice.awaitSnapshot(func(p SnapshotPayload) bool { return p.OpponentConnected })

	session, err := env.manager.Get(ctx, "7392")
	require.NoError(t, err)
	assert.True(t, session.Players.Player2.Connected)
}
