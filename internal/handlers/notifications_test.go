package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LahoumaBarik/SchoolBag/internal/database/testutil"
	"github.com/LahoumaBarik/SchoolBag/internal/middleware"
	"github.com/LahoumaBarik/SchoolBag/internal/models"
	"github.com/LahoumaBarik/SchoolBag/internal/notifications"
	"github.com/LahoumaBarik/SchoolBag/internal/services"
	"github.com/LahoumaBarik/SchoolBag/pkg/response"
)

func newTestHandler(t *testing.T) *NotificationHandler {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	testutil.MustSeedUser(t, db, "user-1")
	testutil.MustSeedUser(t, db, "user-2")

	service, err := services.NewNotificationService(db, notifications.NewHub(), nil)
	require.NoError(t, err)

	handler, err := NewNotificationHandler(service, nil, nil)
	require.NoError(t, err)
	return handler
}

func testRequest(t *testing.T, userID, method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	c.Request = httptest.NewRequest(method, target, reader)
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		c.Set(middleware.CtxUserIDKey, userID)
	}
	return c, recorder
}

func seedNotification(t *testing.T, handler *NotificationHandler, userID, title string) services.NotificationDTO {
	t.Helper()

	dto, created, err := handler.service.Create(context.Background(), services.CreateNotificationInput{
		UserID:  userID,
		Title:   title,
		Message: "seeded",
		Type:    models.NotificationTaskReminder,
	})
	require.NoError(t, err)
	require.True(t, created)
	return *dto
}

func TestNotificationHandlerList(t *testing.T) {
	handler := newTestHandler(t)
	seedNotification(t, handler, "user-1", "first")
	seedNotification(t, handler, "user-1", "second")
	seedNotification(t, handler, "user-2", "other owner")

	c, recorder := testRequest(t, "user-1", http.MethodGet, "/api/notifications?limit=20", "")
	handler.List(c)

	require.Equal(t, http.StatusOK, recorder.Code)

	var payload listResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.True(t, payload.Success)
	assert.Equal(t, 2, payload.Count)
	assert.EqualValues(t, 2, payload.Total)
	assert.EqualValues(t, 2, payload.UnreadCount)
	require.Len(t, payload.Data, 2)
}

func TestNotificationHandlerListUnreadOnly(t *testing.T) {
	handler := newTestHandler(t)
	read := seedNotification(t, handler, "user-1", "already read")
	seedNotification(t, handler, "user-1", "still unread")

	_, err := handler.service.MarkRead(context.Background(), "user-1", read.ID)
	require.NoError(t, err)

	c, recorder := testRequest(t, "user-1", http.MethodGet, "/api/notifications?unreadOnly=true", "")
	handler.List(c)

	require.Equal(t, http.StatusOK, recorder.Code)

	var payload listResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 1)
	assert.Equal(t, "still unread", payload.Data[0].Title)
}

func TestNotificationHandlerCount(t *testing.T) {
	handler := newTestHandler(t)
	seedNotification(t, handler, "user-1", "first")

	c, recorder := testRequest(t, "user-1", http.MethodGet, "/api/notifications/count", "")
	handler.Count(c)

	require.Equal(t, http.StatusOK, recorder.Code)

	var payload struct {
		Success bool  `json:"success"`
		Count   int64 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.True(t, payload.Success)
	assert.EqualValues(t, 1, payload.Count)
}

func TestNotificationHandlerCreate(t *testing.T) {
	handler := newTestHandler(t)

	body := `{"title":"Heads up","message":"Essay Draft got feedback","type":"task_updated","priority":"high"}`
	c, recorder := testRequest(t, "user-1", http.MethodPost, "/api/notifications", body)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, recorder.Code)

	var payload response.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.True(t, payload.Success)

	raw, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	var dto services.NotificationDTO
	require.NoError(t, json.Unmarshal(raw, &dto))
	assert.Equal(t, "Heads up", dto.Title)
	assert.Equal(t, "task_updated", dto.Type)
	assert.Equal(t, models.PriorityHigh, dto.Priority)
}

func TestNotificationHandlerCreateValidation(t *testing.T) {
	handler := newTestHandler(t)

	c, recorder := testRequest(t, "user-1", http.MethodPost, "/api/notifications", `{"message":"missing title"}`)
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	c, recorder = testRequest(t, "user-1", http.MethodPost, "/api/notifications", `{"title":"t","message":"m","priority":"urgent"}`)
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestNotificationHandlerMarkReadAndDelete(t *testing.T) {
	handler := newTestHandler(t)
	dto := seedNotification(t, handler, "user-1", "to read")

	c, recorder := testRequest(t, "user-1", http.MethodPut, "/api/notifications/"+dto.ID+"/read", "")
	c.Params = gin.Params{gin.Param{Key: "id", Value: dto.ID}}
	handler.MarkRead(c)

	require.Equal(t, http.StatusOK, recorder.Code)

	var payload response.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	raw, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	var read services.NotificationDTO
	require.NoError(t, json.Unmarshal(raw, &read))
	assert.True(t, read.IsRead)

	c, recorder = testRequest(t, "user-1", http.MethodDelete, "/api/notifications/"+dto.ID, "")
	c.Params = gin.Params{gin.Param{Key: "id", Value: dto.ID}}
	handler.Delete(c)
	require.Equal(t, http.StatusOK, recorder.Code)

	// Gone now.
	c, recorder = testRequest(t, "user-1", http.MethodDelete, "/api/notifications/"+dto.ID, "")
	c.Params = gin.Params{gin.Param{Key: "id", Value: dto.ID}}
	handler.Delete(c)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestNotificationHandlerCrossOwnerLooksMissing(t *testing.T) {
	handler := newTestHandler(t)
	dto := seedNotification(t, handler, "user-1", "private")

	c, recorder := testRequest(t, "user-2", http.MethodPut, "/api/notifications/"+dto.ID+"/read", "")
	c.Params = gin.Params{gin.Param{Key: "id", Value: dto.ID}}
	handler.MarkRead(c)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestNotificationHandlerMarkAllRead(t *testing.T) {
	handler := newTestHandler(t)
	seedNotification(t, handler, "user-1", "a")
	seedNotification(t, handler, "user-1", "b")

	c, recorder := testRequest(t, "user-1", http.MethodPut, "/api/notifications/read-all", "")
	handler.MarkAllRead(c)

	require.Equal(t, http.StatusOK, recorder.Code)

	var payload response.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.True(t, payload.Success)
	assert.Equal(t, "All notifications marked as read", payload.Message)

	count, err := handler.service.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestNotificationHandlerRequiresIdentity(t *testing.T) {
	handler := newTestHandler(t)

	c, recorder := testRequest(t, "", http.MethodGet, "/api/notifications", "")
	handler.List(c)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
