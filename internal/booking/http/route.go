package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers booking routes. rateLimit guards only booking creation.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, rateLimit gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.GET("/:id/qr", h.Pass)
		group.POST("", rateLimit, h.Create)
		group.POST("/:id/cancel", h.Cancel)
	}

	g.GET("/rooms/availability", authMiddleware, h.Availability)

	// === Public Routes ===
	g.GET("/verify/:reference", h.Verify)
}
