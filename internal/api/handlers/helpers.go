package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/gravpool/internal/game"
	"go.uber.org/zap"
)

// statusFor maps match errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrMatchFinished),
		errors.Is(err, game.ErrAgentTurn),
		errors.Is(err, game.ErrBallsMoving):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidPlacement),
		errors.Is(err, game.ErrInvalidInput),
		errors.Is(err, game.ErrUnknownLayout):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrTooManyMatches):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// point is a table coordinate in a request body. Pointers make both
// components required without rejecting zero.
type point struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

func (p point) vec() game.Vec2 {
	return game.NewVec2(*p.X, *p.Y)
}
