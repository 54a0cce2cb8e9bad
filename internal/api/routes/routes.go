package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sentinela-app/sentinela/internal/api/handlers"
	"github.com/sentinela-app/sentinela/internal/api/middleware"
)

type Deps struct {
	Session     *handlers.SessionHandler
	Recording   *handlers.RecordingHandler
	Maintenance *handlers.MaintenanceHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Device-facing routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/monitoring/start", d.Session.Start)
	auth.GET("/monitoring/:session_id", d.Session.Get)
	auth.POST("/monitoring/:session_id/stop", d.Session.Stop)

	auth.GET("/recordings/:recording_id", d.Recording.Get)

	// Scheduler-facing routes (static token)
	internal := r.Group("/internal")
	internal.Use(middleware.SchedulerToken())

	internal.POST("/maintenance/sweep", d.Maintenance.Sweep)
}
