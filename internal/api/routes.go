package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/budtender/budtender-backend/internal/api/handlers"
	"github.com/budtender/budtender-backend/internal/api/middleware"
	"github.com/budtender/budtender-backend/internal/services"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, svc *services.Services) {
	jwtService := svc.Auth.JWT()

	api := app.Group("/api")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "budtender-backend",
		})
	})

	// Authentication (locally-provisioned admin accounts)
	authGroup := api.Group("/auth")
	authGroup.Post("/login", middleware.AuthRateLimit(), handlers.Login(svc))
	authGroup.Post("/refresh", handlers.RefreshToken(svc))

	// ========================================
	// Guest-admitting routes: identity is resolved when present but
	// anonymous visitors may chat too
	// ========================================
	open := api.Group("", middleware.Identify(jwtService))

	open.Post("/guest-thread", middleware.DefaultRateLimit(), handlers.CreateGuestThread(svc))
	open.Post("/chat", middleware.ChatRateLimit(), handlers.Chat(svc))
	open.Post("/chat-with-functions", middleware.ChatRateLimit(), handlers.ChatWithFunctions(svc))
	open.Post("/web-search", middleware.DefaultRateLimit(), handlers.WebSearch(svc))
	open.Post("/upload", middleware.DefaultRateLimit(), handlers.UploadImage(svc))
	open.Post("/ensure-user", middleware.DefaultRateLimit(), handlers.EnsureUser(svc))

	// ========================================
	// Protected routes (an identity is required)
	// ========================================
	protected := api.Group("", middleware.AuthRequired(jwtService))

	protected.Post("/threads", handlers.CreateThread(svc))
	protected.Get("/threads", handlers.GetThreads(svc))
	protected.Post("/threads/history", handlers.AddThreadHistory(svc))
	protected.Get("/threads/most-recent", handlers.GetMostRecentThread(svc))
	protected.Get("/threads/:id/messages", handlers.GetThreadMessages(svc))
	protected.Post("/threads/:id/activity", handlers.TouchThread(svc))
	protected.Post("/threads/:id/summary", handlers.GenerateThreadSummary(svc))
	protected.Delete("/threads/:id", handlers.DeleteThread(svc))

	protected.Get("/profile", handlers.GetProfile(svc))
	protected.Put("/profile", handlers.SaveProfile(svc))
	protected.Get("/profile/onboarded", handlers.CheckOnboarded(svc))

	// ========================================
	// Admin routes (JWT with the admin role)
	// ========================================
	admin := api.Group("/admin", middleware.RequireRole(jwtService, "admin"))

	admin.Get("/chats", handlers.AdminChats(svc))
	admin.Get("/messages/:threadId", handlers.AdminThreadMessages(svc))
	admin.Get("/analytics", handlers.AdminAnalytics(svc))

	admin.Get("/users", handlers.AdminListUsers(svc))
	admin.Patch("/users/:id", handlers.AdminUpdateUser(svc))
	admin.Delete("/users/:id", handlers.AdminDeleteUser(svc))
	admin.Post("/users/:id/admin-role", handlers.AdminSetRole(svc))
}
