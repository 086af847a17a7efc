package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/questor/service"
)

// Services groups the application services exposed over HTTP
type Services struct {
	Auth     *service.AuthService
	Progress *service.ProgressService
	Users    *service.UserService
}

// SetupRouter sets up the Gin router. metrics may be nil.
func SetupRouter(services Services, logger *slog.Logger, metrics http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	// Clients address the API both at the root and under /api
	registerRoutes(&router.RouterGroup, services, logger)
	registerRoutes(router.Group("/api"), services, logger)

	return router
}

func registerRoutes(group *gin.RouterGroup, services Services, logger *slog.Logger) {
	authHandlers := NewAuthHandlers(services.Auth, logger)
	progressHandlers := NewProgressHandlers(services.Progress, logger)
	userHandlers := NewUserHandlers(services.Users, logger)
	requireSession := AuthMiddleware(services.Auth)

	// Auth routes
	auth := group.Group("/auth")
	{
		auth.POST("/login", authHandlers.Login)
	}

	// Public catalog and leaderboard
	group.GET("/quests", progressHandlers.Quests)
	group.GET("/quests/:id", progressHandlers.Quest)
	group.GET("/users/leaderboard", userHandlers.Leaderboard)

	// Protected routes
	progress := group.Group("/progress", requireSession)
	{
		progress.GET("/user", progressHandlers.Progress)
		progress.POST("/complete", progressHandlers.Complete)
		progress.GET("/history", progressHandlers.History)
	}

	users := group.Group("/users", requireSession)
	{
		users.GET("/profile", userHandlers.Profile)
		users.PUT("/profile", userHandlers.UpdateProfile)
	}
}
