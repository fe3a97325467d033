package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/cache"
	"github.com/hotelpms/hotel-backend/internal/config"
	"github.com/hotelpms/hotel-backend/internal/database"
	"github.com/hotelpms/hotel-backend/internal/events"
	"github.com/hotelpms/hotel-backend/internal/handlers"
	"github.com/hotelpms/hotel-backend/internal/middleware"
	"github.com/hotelpms/hotel-backend/internal/models"
	"github.com/hotelpms/hotel-backend/internal/services"
	"github.com/hotelpms/hotel-backend/pkg/jwt"
	"github.com/hotelpms/hotel-backend/pkg/portone"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting hotel reservation backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Database
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		pg, ok := db.(*database.PostgresDB)
		if !ok {
			logger.Fatal("Failed to cast database connection to PostgresDB")
		}
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := database.Migrate(migrateCtx, pg, logger)
		cancel()
		if err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
	}

	// Redis backs the shared gateway token and the rate limiter; both are optional
	rdb := cache.NewRedisClient(cfg.Redis, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	gateway := portone.NewClient(portone.Config{
		APIURL:    cfg.Payment.APIURL,
		APIKey:    cfg.Payment.APIKey,
		APISecret: cfg.Payment.APISecret,
		Timeout:   cfg.Payment.Timeout,
	}, logger)
	if rdb != nil {
		gateway = gateway.WithTokenStore(cache.NewTokenStore(rdb, "portone:access_token"))
	}

	publisher := events.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
	defer publisher.Close()

	// Repositories
	userRepository := database.NewUserRepository(db)
	refreshTokenRepository := database.NewRefreshTokenRepository(db)
	roomRepository := database.NewRoomRepository(db)
	reservationRepository := database.NewReservationRepository(db)
	paymentRepository := database.NewPaymentRepository(db)
	paymentAuditRepository := database.NewPaymentAuditRepository(db, logger)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	auditService := services.NewAuditService(paymentAuditRepository, logger, cfg.Security.EnableAuditLog)
	authService := services.NewAuthService(
		userRepository,
		refreshTokenRepository,
		jwtService,
		cfg.Security.BcryptCost,
		cfg.JWT.RefreshTokenExpiry,
		cfg.Maintenance.UserDeletionGrace,
		logger,
	)
	roomService := services.NewRoomService(roomRepository, logger)
	reservationService := services.NewReservationService(
		reservationRepository,
		roomRepository,
		userRepository,
		publisher,
		logger,
	)
	paymentService := services.NewPaymentService(
		paymentRepository,
		reservationRepository,
		userRepository,
		gateway,
		auditService,
		publisher,
		logger,
	)
	cleanupService := services.NewUserCleanupService(
		userRepository,
		refreshTokenRepository,
		cfg.Maintenance.UserDeletionGrace,
		logger,
	)

	var rateLimiter *services.RateLimitService
	if cfg.RateLimit.Enabled && rdb != nil {
		rateLimiter = services.NewRateLimitService(
			cache.NewWindowCounter(rdb, "ratelimit"),
			services.RateLimitConfig{
				MaxRequests: cfg.RateLimit.Requests,
				Window:      time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
			},
			logger,
		)
		logger.WithField("requests", cfg.RateLimit.Requests).Info("Rate limiting enabled")
	}

	if cfg.Maintenance.SeedRooms {
		seeded, err := roomService.SeedInitialRooms(context.Background())
		if err != nil {
			logger.WithError(err).Error("Failed to seed initial rooms")
		} else if seeded > 0 {
			logger.WithField("rooms", seeded).Info("Seeded initial rooms")
		}
	}

	cronService := services.NewCronService(cleanupService, cfg.Maintenance.UserCleanupSchedule, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("✓ Cron service started - user purge and token cleanup enabled")

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, logger)
	userHandler := handlers.NewUserHandler(authService, logger)
	roomHandler := handlers.NewRoomHandler(roomService, logger)
	reservationHandler := handlers.NewReservationHandler(reservationService, paymentService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, reservationService, logger)
	adminHandler := handlers.NewAdminHandler(auditService, cronService, cleanupService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}
	router.Use(middleware.ClientInfo())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db))

	requireAuth := middleware.AuthMiddleware(jwtService)
	requireAdmin := middleware.RequireRole(models.RoleAdmin)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		auth.Use(middleware.RateLimit(rateLimiter, "auth"))
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/check-username", authHandler.CheckUsername)
			auth.GET("/check-email", authHandler.CheckEmail)
			auth.POST("/logout", requireAuth, authHandler.Logout)
		}

		users := api.Group("/users/me")
		{
			users.POST("/restore", middleware.RateLimit(rateLimiter, "auth"), userHandler.Restore)

			users.GET("", requireAuth, userHandler.GetProfile)
			users.PUT("", requireAuth, userHandler.UpdateProfile)
			users.DELETE("", requireAuth, userHandler.Withdraw)
			users.PUT("/password", requireAuth, userHandler.ChangePassword)
		}

		rooms := api.Group("/rooms")
		{
			rooms.GET("", roomHandler.ListRooms)
			rooms.GET("/price", roomHandler.ListByPrice)
			rooms.GET("/status/:status", roomHandler.ListByStatus)
			rooms.GET("/type/:type", roomHandler.ListByType)
			rooms.GET("/:id", roomHandler.GetRoom)

			rooms.POST("", requireAuth, requireAdmin, roomHandler.CreateRoom)
			rooms.PUT("/:id", requireAuth, requireAdmin, roomHandler.UpdateRoom)
			rooms.PUT("/:id/status", requireAuth, requireAdmin, roomHandler.UpdateRoomStatus)
			rooms.DELETE("/:id", requireAuth, requireAdmin, roomHandler.DeleteRoom)
		}

		reservations := api.Group("/reservations")
		reservations.Use(requireAuth)
		{
			reservations.POST("", reservationHandler.CreateReservation)
			reservations.GET("/user/:userId", reservationHandler.GetByUser)
			reservations.GET("/admin/all", requireAdmin, reservationHandler.GetAll)
			reservations.GET("/date", reservationHandler.GetByDate)
			reservations.PUT("/:id", reservationHandler.UpdateReservation)
			reservations.PUT("/:id/status", requireAdmin, reservationHandler.UpdateStatus)
			reservations.DELETE("/:id", requireAdmin, reservationHandler.DeleteReservation)
			reservations.POST("/payment-complete", reservationHandler.CompletePayment)
			reservations.POST("/:id/cancel-payment-failure", reservationHandler.CancelOnPaymentFailure)
		}

		payments := api.Group("/payments")
		payments.Use(middleware.RateLimit(rateLimiter, "payments"))
		{
			// Called by the gateway, not by users
			payments.POST("/webhook", paymentHandler.Webhook)

			payments.POST("/verify", requireAuth, paymentHandler.VerifyPayment)
			payments.POST("/:id/cancel", requireAuth, requireAdmin, paymentHandler.CancelPayment)
			payments.GET("/user/:userId", requireAuth, paymentHandler.GetUserPayments)
			payments.GET("/reservation/:id", requireAuth, paymentHandler.GetPaymentsByReservation)
			payments.GET("/:id", requireAuth, paymentHandler.GetPayment)
		}

		admin := api.Group("/admin")
		admin.Use(requireAuth, requireAdmin)
		{
			admin.GET("/payment-audits/mismatches", adminHandler.GetAmountMismatches)
			admin.GET("/payment-audits/imp/:impUid", adminHandler.GetAuditsByIMPUID)
			admin.GET("/payment-audits/reservation/:id", adminHandler.GetAuditsByReservation)
			admin.GET("/jobs", adminHandler.GetJobStatus)
			admin.POST("/jobs/user-purge", adminHandler.RunUserPurge)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
