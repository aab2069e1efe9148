package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/gravpool/internal/game"
	"github.com/playmatatu/gravpool/internal/ws"
	"go.uber.org/zap"
)

// MaxStepTicks bounds a single synchronous step request.
const MaxStepTicks = 36000

// CreateMatch starts a new match. An empty body builds the default rack.
func CreateMatch(mm *game.MatchManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var opts game.MatchOptions
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&opts); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match options"})
				return
			}
		}

		m, err := mm.CreateMatch(c.Request.Context(), opts)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.Header("X-Match-ID", m.ID)
		c.JSON(http.StatusCreated, m.Snapshot())
	}
}

func ListMatches(mm *game.MatchManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		frames := mm.ListMatches()
		c.Header("X-Active-Matches", strconv.Itoa(len(frames)))
		c.JSON(http.StatusOK, gin.H{"matches": frames})
	}
}

func GetMatch(mm *game.MatchManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := mm.GetMatch(c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, m.Snapshot())
	}
}

// GetShotHistory returns the logged shots of a match. It works for removed
// matches too as long as the shot log is enabled.
func GetShotHistory(mm *game.MatchManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shots, err := mm.ShotHistory(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		if shots == nil {
			c.JSON(http.StatusOK, gin.H{"shots": []struct{}{}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"shots": shots})
	}
}

// TakeShot applies a force vector to the cue ball.
func TakeShot(mm *game.MatchManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req point
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "x and y are required"})
			return
		}

		ctx := c.Request.Context()
		shot, err := mm.Shoot(ctx, c.Param("id"), req.vec())
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondShot(c, mm, shot)
	}
}

// Drag converts a press/release gesture into a shot. Gestures inside the dead
// zone are acknowledged without shooting.
func Drag(mm *game.MatchManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Press   point `json:"press"`
			Release point `json:"release"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "press and release points are required"})
			return
		}

		shot, ok, err := mm.Drag(c.Request.Context(), c.Param("id"), req.Press.vec(), req.Release.vec())
		if err != nil {
			respondError(c, log, err)
			return
		}
		if !ok {
			c.JSON(http.StatusOK, gin.H{"ignored": true})
			return
		}
		respondShot(c, mm, shot)
	}
}

func respondShot(c *gin.Context, mm *game.MatchManager, shot game.Shot) {
	m, err := mm.GetMatch(shot.MatchID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"shot": shot})
		return
	}
	c.JSON(http.StatusOK, gin.H{"shot": shot, "frame": m.Snapshot()})
}

// Step advances a match synchronously by the requested number of ticks.
func Step(mm *game.MatchManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Ticks int `json:"ticks" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ticks must be a positive integer"})
			return
		}
		if req.Ticks > MaxStepTicks {
			c.JSON(http.StatusBadRequest, gin.H{"error": "too many ticks in one step"})
			return
		}

		res, frame, err := mm.Step(c.Request.Context(), c.Param("id"), req.Ticks)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": res, "frame": frame})
	}
}

func SetAI(mm *game.MatchManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Enabled *bool `json:"enabled" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
			return
		}

		frame, err := mm.SetAI(c.Request.Context(), c.Param("id"), *req.Enabled)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, frame)
	}
}

func Shrink(mm *game.MatchManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			point
			Power float64 `json:"power"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "x and y are required"})
			return
		}

		hit, err := mm.Shrink(c.Request.Context(), c.Param("id"), req.vec(), req.Power)
		if err != nil {
			respondError(c, log, err)
			return
		}
		if hit == nil {
			hit = []int{}
		}
		c.JSON(http.StatusOK, gin.H{"hit": hit})
	}
}

// PlaceCueBall moves the cue ball while every ball is at rest.
func PlaceCueBall(mm *game.MatchManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req point
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "x and y are required"})
			return
		}

		frame, err := mm.PlaceCueBall(c.Request.Context(), c.Param("id"), req.vec())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, frame)
	}
}

func DeleteMatch(mm *game.MatchManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mm.RemoveMatch(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// WatchMatch attaches a spectator websocket. The current frame is sent first.
func WatchMatch(mm *game.MatchManager, hub *ws.Hub, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := mm.GetMatch(c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		initial, err := json.Marshal(m.Snapshot())
		if err != nil {
			respondError(c, log, err)
			return
		}
		if err := hub.ServeMatch(c.Writer, c.Request, m.ID, initial); err != nil {
			log.Warn("websocket upgrade failed", zap.String("match_id", m.ID), zap.Error(err))
		}
	}
}
