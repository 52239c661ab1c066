package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/budtender/budtender-backend/internal/api/middleware"
	"github.com/budtender/budtender-backend/internal/registry"
	"github.com/budtender/budtender-backend/internal/services"
)

// CreateThread allocates a new conversation thread. Identified callers may
// register it in their history immediately by passing a name.
func CreateThread(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Name string `json:"name"`
		}
		// Body is optional
		_ = c.BodyParser(&req)

		threadID, err := svc.Registry.CreateThread(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create thread",
			})
		}

		userID := middleware.GetUserID(c)
		if userID != "" && req.Name != "" {
			svc.Registry.AddChatHistory(c.Context(), userID, threadID, req.Name)
		}

		return c.JSON(fiber.Map{
			"threadId": threadID,
		})
	}
}

// CreateGuestThread allocates a thread for an anonymous visitor. Nothing is
// persisted locally; the thread id lives only in the visitor's browser.
func CreateGuestThread(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		threadID, err := svc.Registry.CreateGuestThread(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create guest thread",
			})
		}

		return c.JSON(fiber.Map{
			"threadId": threadID,
			"success":  true,
		})
	}
}

// GetThreads returns the caller's thread history. With ?grouped=true the
// records come back bucketed by calendar distance for sidebar display.
func GetThreads(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		chats, err := svc.Registry.GetUserChats(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		if c.QueryBool("grouped") {
			return c.JSON(fiber.Map{
				"groups": registry.GroupChatsByDate(chats, time.Now()),
			})
		}

		return c.JSON(fiber.Map{
			"threads": chats,
		})
	}
}

type addHistoryRequest struct {
	ThreadID string `json:"threadId" validate:"required"`
	Name     string `json:"name" validate:"required"`
}

// AddThreadHistory appends a thread record to the caller's history and marks
// it most recent. Failures come back as an empty list, never an error.
func AddThreadHistory(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		var req addHistoryRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "threadId and name are required",
			})
		}

		threads := svc.Registry.AddChatHistory(c.Context(), userID, req.ThreadID, req.Name)

		return c.JSON(fiber.Map{
			"threads": threads,
		})
	}
}

// GetMostRecentThread returns the caller's most recent thread, or null
func GetMostRecentThread(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		thread, err := svc.Registry.MostRecentThread(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"thread": thread,
		})
	}
}

// TouchThread marks a thread as the most recently active one
func TouchThread(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		threads := svc.Registry.UpdateThreadActivity(c.Context(), userID, c.Params("id"))

		return c.JSON(fiber.Map{
			"threads": threads,
		})
	}
}

// DeleteThread removes a thread from the caller's history
func DeleteThread(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		threads, err := svc.Registry.DeleteThread(c.Context(), userID, c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"threads": threads,
		})
	}
}

// GenerateThreadSummary refreshes a thread's one-sentence summary. Guard
// conditions (short transcript, cooldown) are reported as skips, not errors.
func GenerateThreadSummary(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		err := svc.Registry.GenerateAndStoreSummary(c.Context(), userID, c.Params("id"))
		switch {
		case err == nil:
			return c.JSON(fiber.Map{
				"generated": true,
			})
		case errors.Is(err, registry.ErrThreadNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Thread not found",
			})
		case errors.Is(err, registry.ErrNotEnoughMessages), errors.Is(err, registry.ErrSummaryTooRecent):
			return c.JSON(fiber.Map{
				"generated": false,
				"reason":    err.Error(),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}
}

// GetThreadMessages returns a thread's transcript, oldest first
func GetThreadMessages(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)

		messages, err := svc.Assistant.ListMessages(c.Context(), c.Params("id"), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"messages": messages,
		})
	}
}
