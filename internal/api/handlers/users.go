package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/budtender/budtender-backend/internal/api/middleware"
	"github.com/budtender/budtender-backend/internal/models"
	"github.com/budtender/budtender-backend/internal/services"
)

type ensureUserRequest struct {
	UserID string `json:"userId" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
}

// EnsureUser creates the mirror row for an externally-authenticated user.
// Idempotent; the front end calls it on every sign-in.
func EnsureUser(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ensureUserRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "userId and a valid email are required",
			})
		}

		existing, err := svc.Users.Get(c.Context(), req.UserID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		if existing != nil {
			// Keep the mirrored email current
			if existing.UserEmail != req.Email {
				if err := svc.Users.Update(c.Context(), req.UserID, map[string]interface{}{
					"user_email": req.Email,
				}); err != nil {
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
						"error": err.Error(),
					})
				}
			}
			return c.JSON(fiber.Map{
				"created": false,
			})
		}

		if err := svc.Users.Create(c.Context(), &models.User{
			UserID:    req.UserID,
			UserEmail: req.Email,
		}); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"created": true,
		})
	}
}

// GetProfile returns the caller's onboarding profile
func GetProfile(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		p, err := svc.Profile.Get(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		onboarded := p != nil && p.Onboarded
		return c.JSON(fiber.Map{
			"profile":   p,
			"onboarded": onboarded,
		})
	}
}

type saveProfileRequest struct {
	Name                string `json:"name" validate:"required"`
	Country             string `json:"country"`
	BusinessName        string `json:"businessName"`
	BusinessDescription string `json:"businessDescription"`
	TeamSize            string `json:"teamSize"`
}

// SaveProfile upserts the caller's onboarding answers
func SaveProfile(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		var req saveProfileRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "name is required",
			})
		}

		p := &models.UserProfile{
			UserID:              userID,
			Name:                req.Name,
			Country:             req.Country,
			BusinessName:        req.BusinessName,
			BusinessDescription: req.BusinessDescription,
			TeamSize:            req.TeamSize,
		}
		if err := svc.Profile.Save(c.Context(), p); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"profile": p,
		})
	}
}

// CheckOnboarded reports whether the caller finished onboarding
func CheckOnboarded(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		onboarded, err := svc.Profile.IsOnboarded(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"onboarded": onboarded,
		})
	}
}
