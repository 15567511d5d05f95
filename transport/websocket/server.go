package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/metrics"
)

const (
	shutdownTimeout = 10 * time.Second

	// detached calls made after the socket is gone
	cleanupTimeout = 5 * time.Second
)

type sessionService interface {
	Enter(ctx context.Context, passcode string) (entity.Role, *entity.Session, error)
	Normalize(raw string) (string, error)
	MarkDisconnected(ctx context.Context, passcode string, role entity.Role) error
	MarkReconnected(ctx context.Context, passcode string, role entity.Role) error
}

type matchService interface {
	SubmitMove(ctx context.Context, passcode string, cell int, role entity.Role) (bool, error)
	ResetRound(ctx context.Context, passcode string) error
}

type roomWatcher interface {
	Watch(ctx context.Context, passcode string) (<-chan entity.Snapshot, error)
}

type handlerFunc func(ctx context.Context, conn *Connection, message *Message) error

type Server struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	sessions sessionService
	matches  matchService
	watcher  roomWatcher

	handlers map[string]handlerFunc

	mu          sync.RWMutex
	connections map[string]*Connection
}

// New - allowedOrigin "*" accepts any origin.
func New(logger *slog.Logger, sessions sessionService, matches matchService, watcher roomWatcher, allowedOrigin string) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return allowedOrigin == "*" || r.Header.Get("Origin") == allowedOrigin
			},
		},

		sessions: sessions,
		matches:  matches,
		watcher:  watcher,

		handlers:    make(map[string]handlerFunc),
		connections: make(map[string]*Connection),
	}

	server.handlers[actionEnter] = server.handleEnter
	server.handlers[actionRejoin] = server.handleRejoin
	server.handlers[actionMove] = server.handleMove
	server.handlers[actionReset] = server.handleReset
	server.handlers[actionLeave] = server.handleLeave

	return server
}

// Handler - serves the socket endpoint; connections live until ctx is done.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	log := that.logger.With("method", "Start")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down WebSocket server", "error", err)
		}

		that.closeAll()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection and serves it until it closes.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	socket, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	conn := newConnection(ctx, socket, that.logger)
	that.register(conn)

	log.Info("WebSocket connection established", "connection", conn.ID())

	go conn.writePump()
	conn.readPump(that.handleMessage)

	that.unregister(conn)
}

func (that *Server) register(conn *Connection) {
	that.mu.Lock()
	that.connections[conn.ID()] = conn
	that.mu.Unlock()

	metrics.SocketConnections.Inc()
}

// unregister - drops the connection and flags its seat as disconnected.
func (that *Server) unregister(conn *Connection) {
	that.mu.Lock()
	delete(that.connections, conn.ID())
	that.mu.Unlock()

	metrics.SocketConnections.Dec()

	passcode, role := conn.unseat()
	if passcode == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if err := that.sessions.MarkDisconnected(ctx, passcode, role); err != nil {
		that.logger.Warn("failed to mark player disconnected", "passcode", passcode, "role", role, "error", err)
	}

	that.logger.Info("WebSocket connection closed", "connection", conn.ID(), "passcode", passcode, "role", role)
}

func (that *Server) closeAll() {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, conn := range that.connections {
		conn.Close()
	}
}

// handleMessage - dispatches one client message to its action handler.
func (that *Server) handleMessage(conn *Connection, message *Message) {
	log := that.logger.With("method", "handleMessage", "connection", conn.ID(), "action", message.Action)

	handler, ok := that.handlers[message.Action]
	if !ok {
		log.Warn("unknown action")
		that.sendError(conn, fmt.Errorf("%w: %q", errUnknownAction, message.Action))
		return
	}

	if err := handler(conn.ctx, conn, message); err != nil {
		log.Debug("action failed", "error", err)
		that.sendError(conn, err)
	}
}
