package routes

import (
	"steprecorder/internal/api/handlers"
	"steprecorder/internal/api/middleware"
	"steprecorder/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRoutes(cfg *config.Config, recording *handlers.RecordingHandler, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORSMiddleware())
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		// Public routes
		v1.GET("/health", handlers.HealthCheck)
		v1.GET("/formats", handlers.GetFormats)
		v1.GET("/languages", handlers.GetLanguages)
		v1.GET("/devices", handlers.GetDevices)

		protected := v1.Group("")
		if cfg.JWT.Enabled {
			protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
			protected.GET("/auth/profile", handlers.GetProfile)
		}
		{
			// The websocket takes the token as a query parameter when auth is on.
			protected.GET("/ws/recording", recording.RecordingWebSocket)

			rec := protected.Group("/recording")
			{
				rec.POST("/start", recording.StartRecording)
				rec.POST("/stop", recording.StopRecording)
				rec.POST("/clear", recording.ClearRecording)
				rec.GET("/status", recording.GetRecordingStatus)
				rec.GET("/steps", recording.GetSteps)
				rec.GET("/system-info", recording.GetSystemInfo)
				rec.PUT("/system-info", recording.UpdateSystemInfo)
				rec.GET("/screen", recording.DownloadScreenRecording)
				rec.GET("/pages", recording.GetPages)
				rec.POST("/pages", recording.OpenPage)
			}

			code := protected.Group("/code")
			{
				code.GET("", recording.GetCode)
				code.GET("/export", recording.ExportCode)
			}
		}
	}

	return router
}
