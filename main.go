package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"imovia/marketplace-api/config"
	"imovia/marketplace-api/db"
	"imovia/marketplace-api/handlers"
	"imovia/marketplace-api/middleware"
	"imovia/marketplace-api/models"
	"imovia/marketplace-api/services"
	"imovia/marketplace-api/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize logger
	logger := utils.NewLogger()

	// Connect to database
	database, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	// Connect to redis (reset codes + presence mirror)
	redisClient, err := services.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}
	presence := services.NewPresenceCache(redisClient, cfg.PresenceTTL)
	resetService := services.NewResetService(redisClient, cfg.ResetCodeTTL)

	mailer := services.NewMailer(cfg)

	// Initialize chat core
	store := services.NewMessageStore(database)
	hub := services.NewHub(store, presence, logger)
	hub.Start()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(database, cfg, mailer, logger)
	propertyHandler := handlers.NewPropertyHandler(database, logger)
	favoriteHandler := handlers.NewFavoriteHandler(database, logger)
	simulationHandler := handlers.NewSimulationHandler(database, logger)
	authHandler := handlers.NewAuthHandler(database, resetService, mailer, logger)
	notificationHandler := handlers.NewNotificationHandler(database, mailer, logger)
	dashboardHandler := handlers.NewDashboardHandler(database, logger)
	chatHandler := handlers.NewChatHandler(store, hub, presence, logger)
	wsHandler := handlers.NewWebSocketHandler(hub, cfg.FrontendURL, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(cfg.FrontendURL))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "marketplace-api",
			"version": "1.0.0",
		})
	})

	// Uploaded avatars are served statically
	router.Static("/uploads", cfg.UploadDir)

	v1 := router.Group("/api/v1")
	{
		// Public routes
		v1.POST("/users/register", userHandler.Register)
		v1.POST("/users/login", userHandler.Login)
		v1.POST("/auth/forgot-password", authHandler.ForgotPassword)
		v1.POST("/auth/verify-reset-code", authHandler.VerifyResetCode)
		v1.POST("/auth/reset-password", authHandler.ResetPassword)

		// Public property browsing and lead capture
		v1.GET("/properties", propertyHandler.List)
		v1.GET("/properties/:id", propertyHandler.Get)
		v1.POST("/properties/:id/views", propertyHandler.TrackView)
		v1.POST("/properties/:id/contacts", propertyHandler.TrackContact)

		// Authenticated routes
		auth := v1.Group("")
		auth.Use(middleware.Auth(cfg.JWTSecret))
		{
			users := auth.Group("/users")
			{
				users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.ListUsers)
				users.GET("/me", userHandler.GetMe)
				users.GET("/:id/overview", userHandler.GetOverview)
				users.PUT("/:id", userHandler.Update)
				users.PUT("/:id/email", userHandler.UpdateEmail)
				users.PUT("/:id/password", userHandler.UpdatePassword)
				users.POST("/:id/avatar", userHandler.UploadAvatar)
				users.DELETE("/:id", userHandler.Delete)

				users.GET("/:id/simulations", simulationHandler.ListForUser)
			}

			properties := auth.Group("/properties")
			properties.Use(middleware.RequireRoles(models.RoleCorretor, models.RoleAdmin))
			{
				properties.POST("", propertyHandler.Create)
				properties.PUT("/:id", propertyHandler.Update)
				properties.DELETE("/:id", propertyHandler.Delete)
			}

			favorites := auth.Group("/favorites")
			{
				favorites.GET("", favoriteHandler.List)
				favorites.POST("", favoriteHandler.Create)
				favorites.DELETE("/:id", favoriteHandler.Delete)
			}

			auth.POST("/simulations", simulationHandler.Create)

			notificacoes := auth.Group("/notificacoes")
			{
				notificacoes.GET("/preferencias", notificationHandler.List)
				notificacoes.PUT("/preferencias", notificationHandler.Upsert)
			}

			auth.GET("/dashboard/summary",
				middleware.RequireRoles(models.RoleCorretor, models.RoleAdmin),
				dashboardHandler.Summary)

			chat := auth.Group("/chat")
			{
				chat.GET("/conversas/:userId", chatHandler.ListConversas)
				chat.GET("/mensagens/:usuarioA/:usuarioB", chatHandler.ListMensagens)
			}

			auth.GET("/presence/online", chatHandler.OnlineUsers)
		}
	}

	// WebSocket endpoint, token via Authorization header or ?token=
	router.GET("/ws", middleware.Auth(cfg.JWTSecret), wsHandler.Serve)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting Marketplace API", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop chat hub
	hub.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
