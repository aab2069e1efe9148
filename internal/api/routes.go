package api

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/gravpool/internal/api/handlers"
	"github.com/playmatatu/gravpool/internal/config"
	"github.com/playmatatu/gravpool/internal/game"
	"github.com/playmatatu/gravpool/internal/middleware"
	"github.com/playmatatu/gravpool/internal/ws"
	"go.uber.org/zap"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, mm *game.MatchManager, hub *ws.Hub, cfg *config.Config, tuning *config.Tuning, log *zap.Logger) {
	router.Use(middleware.CORSMiddleware(cfg, log))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Next()
		})
	}

	router.GET("/health", handlers.HealthCheck(mm))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(mm))
		v1.GET("/config", handlers.GetConfig(cfg, tuning))

		matches := v1.Group("/matches")
		matches.Use(middleware.AuthMiddleware(cfg))
		{
			matches.POST("", handlers.CreateMatch(mm, log))
			matches.GET("", handlers.ListMatches(mm))
			matches.GET("/:id", handlers.GetMatch(mm, log))
			matches.GET("/:id/shots", handlers.GetShotHistory(mm, log))
			matches.POST("/:id/shot", handlers.TakeShot(mm, log))
			matches.POST("/:id/drag", handlers.Drag(mm, log))
			matches.POST("/:id/step", handlers.Step(mm, log))
			matches.POST("/:id/ai", handlers.SetAI(mm, log))
			matches.POST("/:id/shrink", handlers.Shrink(mm, log))
			matches.POST("/:id/place", handlers.PlaceCueBall(mm, log))
			matches.DELETE("/:id", handlers.DeleteMatch(mm, log))
			matches.GET("/:id/ws", middleware.WebSocketCORSCheck(cfg), handlers.WatchMatch(mm, hub, log))
		}
	}
}
