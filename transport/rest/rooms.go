package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const passcodeKey = "passcode"

type moveRequest struct {
	Role string `json:"role" binding:"required"`
	Cell *int   `json:"cell" binding:"required"`
}

type enterResponse struct {
	Role entity.Role     `json:"role"`
	Room *entity.Session `json:"room"`
}

// passcode - normalizes the path passcode for every room route.
func (that *Server) passcode(c *gin.Context) {
	passcode, err := that.sessions.Normalize(c.Param("passcode"))
	if err != nil {
		that.abortWithError(c, err)
		return
	}

	c.Set(passcodeKey, passcode)
	c.Next()
}

func (that *Server) enterRoom(c *gin.Context) {
	role, session, err := that.sessions.Enter(c.Request.Context(), c.GetString(passcodeKey))
	if err != nil {
		that.abortWithError(c, err)
		return
	}

	code := http.StatusOK
	if role == entity.RolePlayer1 {
		code = http.StatusCreated
	}

	c.JSON(code, enterResponse{Role: role, Room: session})
}

func (that *Server) getRoom(c *gin.Context) {
	session, err := that.sessions.Get(c.Request.Context(), c.GetString(passcodeKey))
	if err != nil {
		that.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (that *Server) deleteRoom(c *gin.Context) {
	if err := that.sessions.Delete(c.Request.Context(), c.GetString(passcodeKey)); err != nil {
		that.abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (that *Server) submitMove(c *gin.Context) {
	var request moveRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "role and cell are required"})
		return
	}

	role, err := entity.ParseRole(request.Role)
	if err != nil {
		that.abortWithError(c, err)
		return
	}

	accepted, err := that.matches.SubmitMove(c.Request.Context(), c.GetString(passcodeKey), *request.Cell, role)
	if err != nil {
		that.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accepted": accepted})
}

func (that *Server) resetRound(c *gin.Context) {
	if err := that.matches.ResetRound(c.Request.Context(), c.GetString(passcodeKey)); err != nil {
		that.abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (that *Server) markDisconnected(c *gin.Context) {
	that.setConnected(c, that.sessions.MarkDisconnected)
}

func (that *Server) markReconnected(c *gin.Context) {
	that.setConnected(c, that.sessions.MarkReconnected)
}

func (that *Server) setConnected(c *gin.Context, mark func(context.Context, string, entity.Role) error) {
	role, err := entity.ParseRole(c.Param("role"))
	if err != nil {
		that.abortWithError(c, err)
		return
	}

	if err = mark(c.Request.Context(), c.GetString(passcodeKey), role); err != nil {
		that.abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (that *Server) history(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}

	results, err := that.matches.History(c.Request.Context(), c.GetString(passcodeKey), limit)
	if err != nil {
		that.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rounds": results})
}

func (that *Server) abortWithError(c *gin.Context, err error) {
	code, message := http.StatusInternalServerError, "something went wrong, please try again"

	switch {
	case errors.Is(err, apperror.ErrInvalidPasscode), errors.Is(err, apperror.ErrInvalidRole):
		code, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperror.ErrRoomNotFound):
		code, message = http.StatusNotFound, apperror.ErrRoomNotFound.Error()
	case errors.Is(err, apperror.ErrRoomFull):
		code, message = http.StatusConflict, apperror.ErrRoomFull.Error()
	case errors.Is(err, apperror.ErrWriteConflict):
		code, message = http.StatusConflict, apperror.ErrWriteConflict.Error()
	default:
		that.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}

	c.AbortWithStatusJSON(code, gin.H{"error": message})
}
