package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 5 * time.Second

func (that *Server) ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

func (that *Server) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (that *Server) readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string, len(that.checkers))
	status, code := "ready", http.StatusOK

	for _, checker := range that.checkers {
		if err := checker.Check(ctx); err != nil {
			that.logger.Warn("readiness check failed", "check", checker.Name, "error", err)
			checks[checker.Name] = "unavailable"
			status, code = "unavailable", http.StatusServiceUnavailable
			continue
		}

		checks[checker.Name] = "ok"
	}

	c.JSON(code, gin.H{"status": status, "checks": checks})
}
