package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	sendBufferSize = 64
)

var ErrConnectionClosed = errors.New("connection closed")

// Connection is one client socket, optionally seated in one room.
type Connection struct {
	id     string
	conn   *websocket.Conn
	send   chan *Message
	logger *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu        sync.RWMutex
	passcode  string
	role      entity.Role
	stopWatch context.CancelFunc
}

func newConnection(ctx context.Context, conn *websocket.Conn, logger *slog.Logger) *Connection {
	ctx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()

	return &Connection{
		id:     id,
		conn:   conn,
		send:   make(chan *Message, sendBufferSize),
		logger: logger.With("connection", id),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (that *Connection) ID() string {
	return that.id
}

// Seat returns the room and role the connection plays in, if any.
func (that *Connection) Seat() (string, entity.Role) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.passcode, that.role
}

// seat binds the connection to a room and replaces any running watch.
func (that *Connection) seat(passcode string, role entity.Role, stopWatch context.CancelFunc) {
	that.mu.Lock()
	previous := that.stopWatch
	that.passcode = passcode
	that.role = role
	that.stopWatch = stopWatch
	that.mu.Unlock()

	if previous != nil {
		previous()
	}
}

// unseat clears the binding and returns what it was.
func (that *Connection) unseat() (string, entity.Role) {
	that.mu.Lock()
	passcode, role, stopWatch := that.passcode, that.role, that.stopWatch
	that.passcode, that.role, that.stopWatch = "", entity.RoleNone, nil
	that.mu.Unlock()

	if stopWatch != nil {
		stopWatch()
	}

	return passcode, role
}

// Send queues a message for the write pump without blocking.
func (that *Connection) Send(msg *Message) error {
	select {
	case <-that.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case that.send <- msg:
		return nil
	case <-that.ctx.Done():
		return ErrConnectionClosed
	default:
		that.logger.Warn("connection send buffer full, closing connection")
		that.Close()
		return ErrConnectionClosed
	}
}

func (that *Connection) Close() {
	that.closeOnce.Do(func() {
		that.cancel()
		_ = that.conn.Close()
	})
}

// readPump handles incoming messages until the peer goes away.
func (that *Connection) readPump(handle func(*Connection, *Message)) {
	defer that.Close()

	that.conn.SetReadLimit(maxMessageSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(pongWait))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := that.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				that.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		handle(that, &msg)
	}
}

// writePump drains the send queue and keeps the peer alive with pings.
func (that *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		that.Close()
	}()

	for {
		select {
		case message := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteJSON(message); err != nil {
				that.logger.Warn("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-that.ctx.Done():
			_ = that.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
