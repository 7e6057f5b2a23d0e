package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/LahoumaBarik/SchoolBag/internal/auth"
	"github.com/LahoumaBarik/SchoolBag/internal/middleware"
	"github.com/LahoumaBarik/SchoolBag/internal/models"
	"github.com/LahoumaBarik/SchoolBag/internal/notifications"
	"github.com/LahoumaBarik/SchoolBag/internal/services"
	"github.com/LahoumaBarik/SchoolBag/pkg/errors"
	"github.com/LahoumaBarik/SchoolBag/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for notifications.
type NotificationHandler struct {
	service *services.NotificationService
	hub     *notifications.Hub
	jwt     *iauth.JWTService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(service *services.NotificationService, hub *notifications.Hub, jwt *iauth.JWTService) (*NotificationHandler, error) {
	if service == nil {
		return nil, errors.New("missing_service", "notification service is required", http.StatusInternalServerError)
	}
	return &NotificationHandler{
		service: service,
		hub:     hub,
		jwt:     jwt,
	}, nil
}

// listResponse matches the shape the web and mobile clients consume.
type listResponse struct {
	Success     bool                       `json:"success"`
	Count       int                        `json:"count"`
	Total       int64                      `json:"total"`
	UnreadCount int64                      `json:"unreadCount"`
	Data        []services.NotificationDTO `json:"data"`
}

// List returns notifications for the current user, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	result, err := h.service.List(c.Request.Context(), services.ListNotificationsInput{
		UserID:     userID,
		UnreadOnly: parseBoolQuery(c, "unreadOnly"),
		Page:       parseIntQuery(c, "page", 1),
		Limit:      parseIntQuery(c, "limit", 50),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, listResponse{
		Success:     true,
		Count:       len(result.Records),
		Total:       result.Total,
		UnreadCount: result.UnreadCount,
		Data:        result.Records,
	})
}

// Count returns only the unread badge count.
func (h *NotificationHandler) Count(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   count,
	})
}

// Create persists a notification for the current user.
func (h *NotificationHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var payload struct {
		Title       string `json:"title" validate:"required,max=100"`
		Message     string `json:"message" validate:"required,max=500"`
		Type        string `json:"type" validate:"omitempty"`
		RelatedTask string `json:"relatedTask" validate:"omitempty"`
		Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	dto, _, err := h.service.Create(c.Request.Context(), services.CreateNotificationInput{
		UserID:        userID,
		Title:         payload.Title,
		Message:       payload.Message,
		Type:          models.NotificationType(payload.Type),
		RelatedTaskID: payload.RelatedTask,
		Priority:      payload.Priority,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, dto)
}

// MarkRead marks a single notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	dto, err := h.service.MarkRead(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// MarkAllRead marks every unread notification as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if _, err := h.service.MarkAllRead(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "All notifications marked as read")
}

// Delete removes a notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Notification deleted")
}

// Stream upgrades the connection to a WebSocket for live notification events.
// Polling remains the primary transport; the stream is an optimisation for
// clients that keep a connection open.
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.jwt == nil || h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		authz := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}

	if token == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	h.hub.Serve(claims.UserID, c.Writer, c.Request)
}
