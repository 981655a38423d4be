package router

import (
	"github.com/resonant-live/resonant/backend/internal/handlers"
	"github.com/resonant-live/resonant/backend/internal/middleware"
	"github.com/resonant-live/resonant/backend/internal/models"
	"github.com/resonant-live/resonant/backend/internal/repositories"
	"github.com/resonant-live/resonant/backend/internal/services"
	"github.com/resonant-live/resonant/backend/internal/ws"
	"github.com/resonant-live/resonant/backend/pkg/config"
	"github.com/resonant-live/resonant/backend/pkg/mailer"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, cfg *config.Config, pgdb *gorm.DB, mgClient *mongo.Client, logger *zap.Logger) error {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Friendship{},
		&models.Notification{},
		&models.UserNotificationSetting{},
		&models.Booking{},
		&models.Like{},
		&models.Comment{},
	)
	if err != nil {
		return err
	}

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Shared infrastructure ---
	hub := ws.NewHub(logger)
	go hub.Run()
	emailNotifier := mailer.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, logger)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	profileRepo := repositories.NewPostgresProfileRepository(pgdb)
	friendshipRepo := repositories.NewPostgresFriendshipRepository(pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)
	settingRepo := repositories.NewPostgresNotificationSettingRepository(pgdb)
	bookingRepo := repositories.NewPostgresBookingRepository(pgdb)
	likeRepo := repositories.NewPostgresLikeRepository(pgdb)
	commentRepo := repositories.NewPostgresCommentRepository(pgdb)
	postRepo := repositories.NewMongoPostRepository(mgClient.Database("resonant"))

	// --- Initialize Services ---
	notificationService := services.NewNotificationService(
		notificationRepo, friendshipRepo, userRepo, settingRepo,
		emailNotifier, hub, logger, cfg.ProfileRestoreWindow)
	friendshipService := services.NewFriendshipService(
		pgdb, profileRepo, friendshipRepo, notificationService, hub, logger)
	profileService := services.NewProfileService(
		profileRepo, friendshipRepo, notificationService, logger)

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())

	userHandler := handlers.NewUserHandler(userRepo)
	userHandler.RegisterUserRoutes(api)

	profileHandler := handlers.NewProfileHandler(profileService, notificationService, profileRepo, userRepo)
	profileHandler.RegisterProfileRoutes(api)

	friendshipHandler := handlers.NewFriendshipHandler(friendshipService, friendshipRepo, profileRepo)
	friendshipHandler.RegisterFriendshipRoutes(api)

	notificationHandler := handlers.NewNotificationHandler(notificationService)
	notificationHandler.RegisterNotificationRoutes(api)

	bookingHandler := handlers.NewBookingHandler(bookingRepo, profileRepo, notificationService)
	bookingHandler.RegisterBookingRoutes(api)

	postHandler := handlers.NewPostHandler(postRepo, profileRepo)
	postHandler.RegisterPostRoutes(api)

	likeHandler := handlers.NewLikeHandler(likeRepo, postRepo, userRepo, notificationService)
	likeHandler.RegisterLikeRoutes(api)

	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo, userRepo, notificationService)
	commentHandler.RegisterCommentRoutes(api)

	wsHandler := handlers.NewWSHandler(hub, logger)
	wsHandler.RegisterWSRoutes(api)

	logger.Info("all routes configured")
	return nil
}
