package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/camkit/api/middleware"
)

// RegisterRoutes configures the HTTP routes
func RegisterRoutes(router *gin.Engine, authMiddleware *middleware.AuthMiddleware, cameraHandler *CameraHandler, eventHandler *EventHandler) {
	// API routes group
	api := router.Group("/api")

	// Apply authentication middleware to all API routes
	api.Use(authMiddleware.RequireAPIKey())

	api.GET("/status", cameraHandler.GetStatus)
	api.POST("/session/start", cameraHandler.StartSession)
	api.POST("/session/stop", cameraHandler.StopSession)

	api.GET("/resolutions", cameraHandler.GetResolutions)
	api.GET("/rotation", cameraHandler.GetRotation)
	api.GET("/preview/surface", cameraHandler.GetPreviewSurface)
	api.POST("/orientation", cameraHandler.SetOrientation)
	api.POST("/zoom", cameraHandler.SetZoom)
	api.POST("/focus/tap", cameraHandler.Tap)
	api.POST("/configuration", cameraHandler.ApplyConfiguration)
	api.POST("/capture", cameraHandler.Capture)

	api.GET("/events", eventHandler.GetEvents)
	api.GET("/events/counts", eventHandler.GetEventCounts)
	api.GET("/events/:id", eventHandler.GetEvent)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "camkit",
		})
	})
}
