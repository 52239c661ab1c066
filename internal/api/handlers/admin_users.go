package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/budtender/budtender-backend/internal/models"
	"github.com/budtender/budtender-backend/internal/services"
)

// AdminListUsers returns all users enriched with their onboarding profile.
// A failed profile lookup degrades that row to defaults.
func AdminListUsers(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		emailFilter := c.Query("email")

		users, err := svc.Users.List(c.Context(), emailFilter)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		rows := make([]models.AdminUserRow, 0, len(users))
		for _, u := range users {
			row := models.AdminUserRow{
				UserID:    u.UserID,
				UserEmail: u.UserEmail,
				CreatedAt: u.CreatedAt,
				UpdatedAt: u.UpdatedAt,
				IsAdmin:   u.Role == "admin",
			}
			if p, err := svc.Profiles.Get(c.Context(), u.UserID); err == nil && p != nil {
				row.Name = p.Name
				row.Country = p.Country
				row.Onboarded = p.Onboarded
			}
			rows = append(rows, row)
		}

		return c.JSON(fiber.Map{
			"users": rows,
		})
	}
}

// AdminUpdateUser patches a user's mirror row
func AdminUpdateUser(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Params("id")

		var req struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		updates := make(map[string]interface{})
		if req.Email != "" {
			updates["user_email"] = req.Email
		}
		if len(updates) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No updates provided",
			})
		}

		user, err := svc.Users.Get(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if user == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}

		if err := svc.Users.Update(c.Context(), userID, updates); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"message": "User updated",
		})
	}
}

// AdminDeleteUser removes a user's mirror row. Their chat history document
// is removed by the cascading foreign key.
func AdminDeleteUser(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Params("id")

		user, err := svc.Users.Get(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if user == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}

		if err := svc.Users.Delete(c.Context(), userID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"message": "User deleted",
		})
	}
}

// AdminSetRole grants or revokes the admin role
func AdminSetRole(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Params("id")

		var req struct {
			IsAdmin bool `json:"isAdmin"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		role := "user"
		if req.IsAdmin {
			role = "admin"
		}

		if err := svc.Users.SetRole(c.Context(), userID, role); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "User not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"message": "Role updated",
			"role":    role,
		})
	}
}
