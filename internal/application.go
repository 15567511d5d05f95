package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/config"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-rooms/transport/rest"
	"github.com/rocketscienceinc/tictactoe-rooms/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	sessions, checkers, err := initSessions(ctx, logger, conf)
	if err != nil {
		return err
	}

	history, historyChecker, err := initHistory(ctx, log, conf)
	if err != nil {
		return err
	}

	if historyChecker != nil {
		checkers = append(checkers, *historyChecker)
	}

	clock := quartz.NewReal()
	sessionManager := usecase.NewSessionManager(logger, clock, sessions, conf.Room.PasscodeMinLength)
	matchEngine := usecase.NewMatchEngine(logger, clock, sessions, history)
	roomWatcher := usecase.NewRoomWatcher(logger, sessions)

	restServer := rest.New(logger, sessionManager, matchEngine, checkers...)
	wsServer := websocket.New(logger, sessionManager, matchEngine, roomWatcher, conf.WebSocket.AllowedOrigin)

	group, groupCtx := errgroup.WithContext(ctx)

	// run HTTP server
	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := restServer.Start(groupCtx, conf.HTTPPort); httpErr != nil {
			return fmt.Errorf("HTTP server error: %w", httpErr)
		}
		return nil
	})

	// run Websocket server
	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(groupCtx, conf.SocketPort); wsErr != nil {
			return fmt.Errorf("WebSocket server error: %w", wsErr)
		}
		return nil
	})

	// a failing server stops the other one
	go func() {
		<-groupCtx.Done()
		cancel()
	}()

	if err = group.Wait(); err != nil {
		return err
	}

	log.Info("Application context canceled, shutting down")

	return nil
}

// initSessions - picks the room store named by storage.driver.
func initSessions(ctx context.Context, logger *slog.Logger, conf *config.Config) (repository.SessionRepository, []rest.Checker, error) {
	log := logger.With("component", "app")

	if conf.Storage.Driver == config.StorageMemory {
		log.Warn("using in-memory room storage, rooms are lost on restart")
		return repository.NewMemorySessionRepository(), nil, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString, conf.Redis.Password, conf.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	checker := rest.Checker{
		Name: "redis",
		Check: func(ctx context.Context) error {
			return redisStorage.Connection.Ping(ctx).Err()
		},
	}

	return repository.NewSessionRepository(logger, redisStorage.Connection, conf.Room.UpdateRetries), []rest.Checker{checker}, nil
}

// initHistory - an empty DSN disables the round archive.
func initHistory(ctx context.Context, log *slog.Logger, conf *config.Config) (repository.HistoryRepository, *rest.Checker, error) {
	if conf.Postgres.DSN == "" {
		log.Info("postgres dsn is empty, round history disabled")
		return nil, nil, nil
	}

	postgres, err := storage.NewPostgresStorage(ctx, conf.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to postgres storage: %w", err)
	}

	if err = postgres.Init(ctx); err != nil {
		postgres.Close()
		return nil, nil, fmt.Errorf("could not init postgres storage: %w", err)
	}

	go func() {
		<-ctx.Done()
		postgres.Close()
	}()

	checker := &rest.Checker{
		Name: "postgres",
		Check: func(ctx context.Context) error {
			return postgres.Connection.Ping(ctx)
		},
	}

	return repository.NewHistoryRepository(postgres.Connection), checker, nil
}
