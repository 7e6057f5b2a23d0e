package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LahoumaBarik/SchoolBag/internal/app"
	iauth "github.com/LahoumaBarik/SchoolBag/internal/auth"
	"github.com/LahoumaBarik/SchoolBag/internal/database/testutil"
	"github.com/LahoumaBarik/SchoolBag/internal/models"
	"github.com/LahoumaBarik/SchoolBag/internal/notifications"
	"github.com/LahoumaBarik/SchoolBag/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *services.NotificationService, *iauth.JWTService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	testutil.MustSeedUser(t, db, "user-1")

	service, err := services.NewNotificationService(db, notifications.NewHub(), nil)
	require.NoError(t, err)

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret: "router-test-secret",
		Issuer: "schoolbag",
	})
	require.NoError(t, err)

	cfg := &app.Config{}
	cfg.Server.RateLimit.Max = 1000
	cfg.Server.RateLimit.Window = time.Minute

	router, err := NewRouter(cfg, Deps{
		Notifications: service,
		Hub:           notifications.NewHub(),
		JWT:           jwt,
	})
	require.NoError(t, err)
	return router, service, jwt
}

func TestRouterHealth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRouterMetricsExposed(t *testing.T) {
	router, _, _ := newTestRouter(t)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "go_goroutines")
}

func TestRouterRejectsMissingToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRouterListWithToken(t *testing.T) {
	router, service, jwt := newTestRouter(t)

	_, created, err := service.Create(context.Background(), services.CreateNotificationInput{
		UserID:  "user-1",
		Title:   "Due Soon!",
		Message: "Essay Draft is due in 2 hours",
		Type:    models.NotificationTaskDueSoon,
	})
	require.NoError(t, err)
	require.True(t, created)

	token, err := jwt.GenerateAccessToken("user-1")
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	request.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusOK, recorder.Code)

	var payload struct {
		Success     bool                       `json:"success"`
		UnreadCount int64                      `json:"unreadCount"`
		Data        []services.NotificationDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.True(t, payload.Success)
	assert.EqualValues(t, 1, payload.UnreadCount)
	require.Len(t, payload.Data, 1)
	assert.Equal(t, "Due Soon!", payload.Data[0].Title)
}

func TestRouterUnknownRoute(t *testing.T) {
	router, _, _ := newTestRouter(t)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
