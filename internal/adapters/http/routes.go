package http

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes mounts the API on r. hub and queue are optional: without
// them /ws is not served and /metrics omits the ingest counters.
func RegisterRoutes(r *gin.Engine, h *Handler, hub *Hub, queue QueueStats) {
	api := r.Group("/api/v1")
	{
		devicesGroup := api.Group("/devices")
		{
			devicesGroup.GET("", h.ListDevices)
			devicesGroup.POST("/:device_id/heartbeat", h.PostHeartbeat)
			devicesGroup.GET("/:device_id/uptime", h.GetUptime)
			devicesGroup.GET("/:device_id/heartbeats", h.GetHeartbeats)
		}
		api.GET("/config", h.GetConfig)
		api.PUT("/config", h.PutConfig)
		api.GET("/report.xlsx", h.GetReport)
	}

	r.GET("/health", h.Health)
	r.GET("/metrics", h.MetricsHandler(queue))
	if hub != nil {
		r.GET("/ws", gin.WrapH(hub))
	}
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
