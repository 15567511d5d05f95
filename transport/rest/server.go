package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const shutdownTimeout = 10 * time.Second

type sessionService interface {
	Enter(ctx context.Context, passcode string) (entity.Role, *entity.Session, error)
	Normalize(raw string) (string, error)
	Get(ctx context.Context, passcode string) (*entity.Session, error)
	MarkDisconnected(ctx context.Context, passcode string, role entity.Role) error
	MarkReconnected(ctx context.Context, passcode string, role entity.Role) error
	Delete(ctx context.Context, passcode string) error
}

type matchService interface {
	SubmitMove(ctx context.Context, passcode string, cell int, role entity.Role) (bool, error)
	ResetRound(ctx context.Context, passcode string) error
	History(ctx context.Context, passcode string, limit int) ([]*entity.RoundResult, error)
}

// Checker is a named dependency probe used by /readyz.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	logger   *slog.Logger
	sessions sessionService
	matches  matchService
	checkers []Checker
}

func New(logger *slog.Logger, sessions sessionService, matches matchService, checkers ...Checker) *Server {
	return &Server{
		logger:   logger.With("component", "rest"),
		sessions: sessions,
		matches:  matches,
		checkers: checkers,
	}
}

// Handler - builds the gin router with every REST route.
func (that *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), that.requestLogger())

	router.GET("/ping", that.ping)
	router.GET("/healthz", that.liveness)
	router.GET("/readyz", that.readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rooms := router.Group("/rooms/:passcode", that.passcode)
	rooms.POST("/enter", that.enterRoom)
	rooms.GET("", that.getRoom)
	rooms.DELETE("", that.deleteRoom)
	rooms.POST("/moves", that.submitMove)
	rooms.POST("/reset", that.resetRound)
	rooms.POST("/players/:role/disconnect", that.markDisconnected)
	rooms.POST("/players/:role/reconnect", that.markReconnected)
	rooms.GET("/history", that.history)

	return router
}

func (that *Server) Start(ctx context.Context, port string) error {
	log := that.logger.With("method", "Start")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		that.logger.Debug("request served",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
