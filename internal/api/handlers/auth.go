package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/budtender/budtender-backend/internal/auth"
	"github.com/budtender/budtender-backend/internal/services"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates a locally-provisioned account (admins) and issues a
// token pair. Tokens also land in httpOnly cookies for web clients.
func Login(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "email and password are required",
			})
		}

		pair, err := svc.Auth.Login(c.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrNoPassword) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid email or password",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Login failed",
			})
		}

		setTokenCookies(c, pair)
		return c.JSON(pair)
	}
}

// RefreshToken rotates an access/refresh pair
func RefreshToken(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		// Fall back to the cookie when the body carries no token
		_ = c.BodyParser(&req)
		if req.RefreshToken == "" {
			req.RefreshToken = c.Cookies("refresh_token")
		}
		if req.RefreshToken == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "refresh_token is required",
			})
		}

		pair, err := svc.Auth.Refresh(c.Context(), req.RefreshToken)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired refresh token",
			})
		}

		setTokenCookies(c, pair)
		return c.JSON(pair)
	}
}

func setTokenCookies(c *fiber.Ctx, pair *auth.TokenPair) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    pair.AccessToken,
		MaxAge:   int(auth.AccessTokenTTL.Seconds()),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    pair.RefreshToken,
		MaxAge:   int(auth.RefreshTokenTTL.Seconds()),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}
