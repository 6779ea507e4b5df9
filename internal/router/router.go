package router

import (
	"context"
	"log"

	"github.com/CJonesCode/SnapConnect/internal/events"
	"github.com/CJonesCode/SnapConnect/internal/handlers"
	"github.com/CJonesCode/SnapConnect/internal/middleware"
	"github.com/CJonesCode/SnapConnect/internal/repositories"
	"github.com/CJonesCode/SnapConnect/internal/services"
	"github.com/CJonesCode/SnapConnect/pkg/config"
	"github.com/CJonesCode/SnapConnect/pkg/firebase"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies. It
// returns the cleanup service so main can hand it to the expiry sweeper.
func SetupRoutes(e *echo.Echo, db *config.DB, fbApp *firebase.App, bus *events.Bus, cfg *config.Config) *services.CleanupService {
	mongoDB := db.Mongo.Database(cfg.MongoDB)

	if err := repositories.EnsureIndexes(context.Background(), mongoDB); err != nil {
		log.Fatalf("Failed to ensure MongoDB indexes: %v", err)
	}
	log.Println("MongoDB indexes ensured for all collections.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewMongoUserRepository(mongoDB)
	relationshipRepo := repositories.NewMongoRelationshipRepository(mongoDB)
	contentRepo := repositories.NewMongoContentRepository(mongoDB)
	groupRepo := repositories.NewMongoGroupRepository(mongoDB)
	cleanupJobRepo := repositories.NewMongoCleanupJobRepository(mongoDB)
	mediaRepo := repositories.NewGCSMediaRepository(fbApp.Bucket)

	// --- Initialize Services ---
	mediaService := services.NewMediaService(mediaRepo)
	relationshipService := services.NewRelationshipService(relationshipRepo, userRepo, bus)
	groupService := services.NewGroupService(groupRepo, userRepo)
	cleanupService := services.NewCleanupService(
		cleanupJobRepo,
		userRepo,
		relationshipRepo,
		contentRepo,
		groupRepo,
		mediaRepo,
		services.NewFirebaseAuthAdmin(fbApp.AuthClient),
	)
	contentService := services.NewContentService(contentRepo, groupRepo, relationshipService, mediaService, cleanupService, bus, cfg.ContentTTL)
	notifier := services.NewNotifier(userRepo, services.NewFCMPusher(fbApp.MessagingClient))

	cleanupService.Start(bus)
	notifier.Start(bus)
	log.Println("Cleanup orchestrator and notifier subscribed to lifecycle events.")

	// --- Protected routes (require a verified Firebase ID token) ---
	api := e.Group("/api/v1")
	api.Use(middleware.FirebaseAuthMiddleware(fbApp.AuthClient))
	log.Println("Firebase authentication middleware applied to /api/v1 group.")

	authHandler := handlers.NewAuthHandler(userRepo)
	authHandler.RegisterAuthRoutes(api)
	log.Println("Auth routes configured.")

	userHandler := handlers.NewUserHandler(userRepo, bus)
	userHandler.RegisterProfileRoutes(api)
	log.Println("User profile routes configured.")

	friendshipHandler := handlers.NewFriendshipHandler(relationshipService)
	friendshipHandler.RegisterFriendshipRoutes(api)
	log.Println("Friendship routes configured.")

	contentHandler := handlers.NewContentHandler(contentService)
	contentHandler.RegisterContentRoutes(api)
	log.Println("Content routes configured.")

	mediaHandler := handlers.NewMediaHandler(mediaService)
	mediaHandler.RegisterMediaRoutes(api)
	log.Println("Media routes configured.")

	groupHandler := handlers.NewGroupHandler(groupService)
	groupHandler.RegisterGroupRoutes(api)
	log.Println("Group routes configured.")

	// --- Admin routes (Firebase admin custom claim required) ---
	admin := api.Group("/admin")
	admin.Use(middleware.AdminOnlyMiddleware())
	cleanupHandler := handlers.NewCleanupHandler(cleanupService)
	cleanupHandler.RegisterCleanupRoutes(admin)
	log.Println("Admin cleanup routes configured.")

	log.Println("All routes configured.")
	return cleanupService
}
