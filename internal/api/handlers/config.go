package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/gravpool/internal/config"
)

// GetConfig returns the simulation settings a client needs to render and
// replay matches.
func GetConfig(cfg *config.Config, tuning *config.Tuning) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tick_rate":         cfg.TickRate,
			"frame_every_ticks": cfg.FrameEveryTicks,
			"max_matches":       cfg.MaxMatches,
			"auth_enabled":      cfg.AuthEnabled,
			"tuning":            tuning,
		})
	}
}
