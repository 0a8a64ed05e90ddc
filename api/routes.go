package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/digest"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/notifications"
)

// Handlers holds the dependencies of the HTTP surface
type Handlers struct {
	registry    *digest.Registry
	coordinator *digest.Coordinator
	notif       *notifications.Service
}

// NewHandlers creates the API handlers
func NewHandlers(registry *digest.Registry, coordinator *digest.Coordinator, notif *notifications.Service) *Handlers {
	return &Handlers{
		registry:    registry,
		coordinator: coordinator,
		notif:       notif,
	}
}

// SetupRoutes configures all API routes
func (h *Handlers) SetupRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.Use(gzip.Gzip(gzip.DefaultCompression))

	// Digest routes - static routes first
	api.GET("/digest/digesters", h.GetDigesters)
	api.GET("/digest/stats", h.GetDigestStats)
	// Wildcard routes use /digest/file/* to avoid conflict with static routes
	api.GET("/digest/file/*path", h.GetDigests)
	api.POST("/digest/file/*path", h.TriggerDigest)

	// Notifications (SSE) - no gzip, it buffers the stream
	r.GET("/api/notifications/stream", h.NotificationStream)
}
