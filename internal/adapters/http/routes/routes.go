package routes

import (
	"time"

	"registryhub/internal/adapters/http/handlers"
	"registryhub/internal/adapters/http/middleware"
	"registryhub/internal/adapters/persistence/repositories"
	"registryhub/internal/config"
	"registryhub/internal/core/services"
	"registryhub/internal/pkg/storage"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, store storage.Store, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	docRepo := repositories.NewDocumentRepository(db)
	historyRepo := repositories.NewHistoryRepository(db)
	verifRepo := repositories.NewVerificationRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, sessionRepo, historyRepo, cfg)
	userService := services.NewUserService(userRepo)
	docService := services.NewDocumentService(docRepo, historyRepo, userRepo, store, cfg.Upload.MaxSizeBytes)
	extractor := services.NewMockExtractor(500 * time.Millisecond)
	fieldService := services.NewFieldService(db, docRepo, historyRepo, userRepo, extractor)
	verifService := services.NewVerificationService(verifRepo, docRepo, historyRepo, userRepo)
	activityService := services.NewActivityService(historyRepo, userRepo)
	perfService := services.NewPerformanceService(historyRepo, sessionRepo)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	docHandler := handlers.NewDocumentHandler(docService)
	fieldHandler := handlers.NewFieldHandler(fieldService)
	verifHandler := handlers.NewVerificationHandler(verifService)
	activityHandler := handlers.NewActivityHandler(activityService)
	perfHandler := handlers.NewPerformanceHandler(perfService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, healthHandler, authHandler, userHandler, docHandler,
		fieldHandler, verifHandler, activityHandler, perfHandler, cfg)
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	docHandler *handlers.DocumentHandler,
	fieldHandler *handlers.FieldHandler,
	verifHandler *handlers.VerificationHandler,
	activityHandler *handlers.ActivityHandler,
	perfHandler *handlers.PerformanceHandler,
	cfg *config.Config,
) {
	// API Info
	router.Get("/", healthHandler.APIInfo)

	// Auth routes (public)
	authRoutes := router.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// User management routes (Admin only)
	userRoutes := router.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	setupUserRoutes(userRoutes, userHandler, cfg)

	// Document routes (Authenticated users; role checks in services)
	docRoutes := router.Group("/documents")
	docRoutes.Use(middleware.AuthMiddleware(cfg))
	setupDocumentRoutes(docRoutes, docHandler, fieldHandler)

	// Verification routes (Supervisor/Admin)
	verifRoutes := router.Group("/verification")
	verifRoutes.Use(middleware.AuthMiddleware(cfg))
	verifRoutes.Use(middleware.SupervisorOrAdmin())
	setupVerificationRoutes(verifRoutes, verifHandler)

	// Activity routes (Supervisor/Admin; purge is admin only)
	activityRoutes := router.Group("/activity")
	activityRoutes.Use(middleware.AuthMiddleware(cfg))
	activityRoutes.Use(middleware.SupervisorOrAdmin())
	activityRoutes.Get("/", activityHandler.List)
	activityRoutes.Post("/purge", middleware.AdminOnly(), activityHandler.Purge)

	// Notification routes (Authenticated users)
	notifRoutes := router.Group("/notifications")
	notifRoutes.Use(middleware.AuthMiddleware(cfg))
	notifRoutes.Get("/", activityHandler.Notifications)
	notifRoutes.Post("/:id/read", activityHandler.MarkNotificationRead)

	// Performance routes (Supervisor/Admin)
	perfRoutes := router.Group("/performance")
	perfRoutes.Use(middleware.AuthMiddleware(cfg))
	perfRoutes.Use(middleware.SupervisorOrAdmin())
	perfRoutes.Get("/report", perfHandler.Report)
	perfRoutes.Get("/top", perfHandler.Top)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes (rate limited against brute force)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout", middleware.AuthMiddleware(cfg), handler.Logout)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupUserRoutes configures user management routes
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler, cfg *config.Config) {
	// Self-service password change (any authenticated user)
	router.Put("/me/password", handler.ChangePassword)

	// Admin only
	adminRoutes := router.Group("")
	adminRoutes.Use(middleware.AdminOnly())

	adminRoutes.Post("/", handler.Create)
	adminRoutes.Get("/", handler.List)
	adminRoutes.Get("/:id", handler.Get)
	adminRoutes.Put("/:id", handler.Update)
	adminRoutes.Delete("/:id", handler.Delete)
	adminRoutes.Put("/:id/bureaus", handler.AssignBureaus)
	adminRoutes.Post("/:id/reset-password", handler.ResetPassword)
}

// setupDocumentRoutes configures document lifecycle and field routes
func setupDocumentRoutes(router fiber.Router, handler *handlers.DocumentHandler, fieldHandler *handlers.FieldHandler) {
	// Browse
	router.Get("/", handler.List)
	router.Get("/tree", handler.Tree)
	router.Get("/bureaus", handler.Bureaus)
	router.Get("/:id", handler.Get)
	router.Get("/:id/file", handler.File)
	router.Get("/:id/history", handler.History)

	// Lifecycle
	router.Post("/", handler.Upload)
	router.Post("/:id/resubmit", handler.Resubmit)

	// Review transitions (Supervisor/Admin)
	reviewRoutes := router.Group("")
	reviewRoutes.Use(middleware.SupervisorOrAdmin())
	reviewRoutes.Post("/:id/review", handler.StartReview)
	reviewRoutes.Post("/:id/approve", handler.Approve)
	reviewRoutes.Post("/:id/reject", handler.Reject)

	// Fields
	router.Get("/:id/fields", fieldHandler.Get)
	router.Put("/:id/fields", fieldHandler.Save)
	router.Post("/:id/fields/extract", fieldHandler.Extract)
	router.Delete("/:id/fields", middleware.AdminOnly(), fieldHandler.Delete)

	// Admin only
	router.Delete("/:id", middleware.AdminOnly(), handler.Delete)
}

// setupVerificationRoutes configures verification batch routes
func setupVerificationRoutes(router fiber.Router, handler *handlers.VerificationHandler) {
	router.Post("/batches", handler.Upload)
	router.Get("/batches", handler.List)
	router.Get("/batches/:id", handler.Rows)
	router.Get("/batches/:id/compare", handler.Compare)
	router.Delete("/batches/:id", middleware.AdminOnly(), handler.Delete)
}
