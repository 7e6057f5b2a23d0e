package api

import (
	"github.com/gin-gonic/gin"

	"github.com/LahoumaBarik/SchoolBag/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/count", handler.Count)
		group.POST("", handler.Create)
		group.PUT("/:id/read", handler.MarkRead)
		group.PUT("/read-all", handler.MarkAllRead)
		group.DELETE("/:id", handler.Delete)
	}
}
