package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LahoumaBarik/SchoolBag/internal/app"
	iauth "github.com/LahoumaBarik/SchoolBag/internal/auth"
	"github.com/LahoumaBarik/SchoolBag/internal/handlers"
	"github.com/LahoumaBarik/SchoolBag/internal/middleware"
	"github.com/LahoumaBarik/SchoolBag/internal/notifications"
	"github.com/LahoumaBarik/SchoolBag/internal/services"
)

// Deps bundles the collaborators the router wires together.
type Deps struct {
	Notifications *services.NotificationService
	Hub           *notifications.Hub
	JWT           *iauth.JWTService
	RateStore     middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(cfg *app.Config, deps Deps) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Notifications == nil {
		return nil, fmt.Errorf("notification service must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if cfg.Server.RateLimit.Max > 0 {
		store := deps.RateStore
		if store == nil {
			store = middleware.NewMemoryRateStore()
		}
		r.Use(middleware.RateLimit(store, cfg.Server.RateLimit.Max, cfg.Server.RateLimit.Window))
	}

	r.NoRoute(middleware.NotFoundHandler)

	// Public endpoints
	r.GET("/health", handlers.Health())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	notificationHandler, err := handlers.NewNotificationHandler(deps.Notifications, deps.Hub, deps.JWT)
	if err != nil {
		return nil, err
	}

	// The stream endpoint authenticates via its token query parameter since
	// browser WebSocket clients cannot set headers.
	r.GET("/api/notifications/stream", notificationHandler.Stream)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	registerNotificationRoutes(api, notificationHandler)

	return r, nil
}

// rate limit defaults used when configuration leaves them unset.
const (
	DefaultRateLimitMax    = 100
	DefaultRateLimitWindow = time.Minute
)
