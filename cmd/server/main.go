package main

import (
	"context"
	"log"

	"github.com/CJonesCode/SnapConnect/internal/events"
	"github.com/CJonesCode/SnapConnect/internal/router"
	"github.com/CJonesCode/SnapConnect/internal/services"
	"github.com/CJonesCode/SnapConnect/pkg/config"
	"github.com/CJonesCode/SnapConnect/pkg/firebase"
	"github.com/CJonesCode/SnapConnect/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	// Initialize Firebase
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.StorageBucket)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Lifecycle event bus shared by services and their subscribers
	bus := events.NewBus()

	// Setup routes and dependencies
	cleanupService := router.SetupRoutes(e, db, firebaseApp, bus, cfg)

	// Validator
	e.Validator = validators.NewValidator()

	// Background expiry sweep
	go services.NewSweeper(cleanupService, cfg.SweepInterval).Run(ctx)

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
