package routes

import (
	"net/http"

	"helpdesk-realtime-api/internal/auth"
	"helpdesk-realtime-api/internal/handlers"
	"helpdesk-realtime-api/internal/metrics"
	"helpdesk-realtime-api/internal/middleware"
	"helpdesk-realtime-api/internal/presence"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	DB        *gorm.DB
	Tokens    handlers.TokenIssuer
	Verifier  auth.Verifier
	Registry  *presence.Registry
	Sampler   *metrics.Sampler
	// Presence is the shared presence store; nil in single-instance mode.
	Presence  handlers.PresenceLookup
	Notifier  handlers.Notifier
	WebSocket *handlers.WebSocketHandler
	Log       *zap.Logger
}

func SetupRoutes(d Deps) *gin.Engine {
	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery())
	ginRouter.Use(middleware.RequestLogger(d.Log))

	// CORS middleware (for frontend integration)
	ginRouter.Use(middleware.CORS())

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Helpdesk realtime API is running",
		})
	})

	// The gateway authenticates sockets itself so it can close them without a response body
	if d.WebSocket != nil {
		ginRouter.GET("/ws", d.WebSocket.Handle)
	}

	authHandler := handlers.NewAuthHandler(d.DB, d.Tokens, d.Log)
	notificationHandler := handlers.NewNotificationHandler(d.DB, d.Notifier, d.Log)
	networkHandler := handlers.NewNetworkHandler(d.Registry, d.Sampler, d.Presence)

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/login", authHandler.Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware(d.Verifier))
	{
		protectedRoutes.GET("/notifications", notificationHandler.GetNotifications)
		protectedRoutes.POST("/notifications", notificationHandler.CreateNotification)
		protectedRoutes.PATCH("/notifications/:id/read", notificationHandler.MarkNotificationRead)
		protectedRoutes.POST("/alerts", notificationHandler.CreateSystemAlert)
	}

	network := ginRouter.Group("/network")
	network.Use(middleware.JWTAuthMiddleware(d.Verifier))
	{
		network.GET("/stats", networkHandler.GetStats)
		network.GET("/health", networkHandler.GetHealth)
		network.GET("/connections", networkHandler.GetConnections)
		network.GET("/presence/:userId", networkHandler.GetUserPresence)
	}

	return ginRouter
}
