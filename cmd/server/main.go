package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"registryhub/internal/adapters/http/middleware"
	"registryhub/internal/adapters/http/routes"
	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/config"
	"registryhub/internal/pkg/storage"

	"github.com/gofiber/fiber/v2"
)

// @title RegistryHub API
// @version 1.0
// @description Civil registry document management API

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed default admin
	if err := config.NewSeeder(db).Run(); err != nil {
		log.Printf("⚠️ Warning: Failed to seed database: %v", err)
	}

	// File store for uploaded scans
	store, err := storage.NewLocalStore(cfg.Upload.Dir)
	if err != nil {
		log.Fatalf("❌ Failed to initialize file store: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "RegistryHub API v1.0",
		BodyLimit:    int(cfg.Upload.MaxSizeBytes) + (1 << 20),
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db, store and cfg for dependency injection)
	routes.Setup(app, db, store, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
