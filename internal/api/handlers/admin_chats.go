package handlers

import (
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/budtender/budtender-backend/internal/models"
	"github.com/budtender/budtender-backend/internal/services"
)

// AdminChats returns every user's threads flattened into one list, newest
// activity first. Rows are enriched with user email and profile name; an
// enrichment miss degrades the row instead of failing the listing.
func AdminChats(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		histories, err := svc.ChatHistory.ListAll(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		users, err := svc.Users.List(c.Context(), "")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		emailByID := make(map[string]string, len(users))
		for _, u := range users {
			emailByID[u.UserID] = u.UserEmail
		}

		rows := make([]models.AdminChatRow, 0, len(histories))
		for _, h := range histories {
			name := ""
			if p, err := svc.Profiles.Get(c.Context(), h.UserID); err == nil && p != nil {
				name = p.Name
			}

			for _, t := range h.Threads {
				rows = append(rows, models.AdminChatRow{
					UserID:        h.UserID,
					UserEmail:     emailByID[h.UserID],
					UserName:      name,
					PlanType:      "free",
					ThreadID:      t.ThreadID,
					ThreadName:    t.Name,
					CreatedAt:     t.CreatedAt,
					LastMessageAt: t.LastMessageAt,
					IsMostRecent:  t.IsMostRecent,
					Summary:       t.Summary,
				})
			}
		}

		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].LastMessageAt.After(rows[j].LastMessageAt)
		})

		return c.JSON(fiber.Map{
			"chats": rows,
		})
	}
}

// AdminThreadMessages returns any thread's transcript for moderation review
func AdminThreadMessages(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 100)

		messages, err := svc.Assistant.ListMessages(c.Context(), c.Params("threadId"), limit)
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

// AdminAnalytics returns usage aggregates for the dashboard
func AdminAnalytics(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		histories, err := svc.ChatHistory.ListAll(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		users, err := svc.Users.List(c.Context(), "")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		now := time.Now()
		dayAgo := now.AddDate(0, 0, -1)
		weekAgo := now.AddDate(0, 0, -7)

		totalThreads := 0
		activeToday := 0
		activeThisWeek := 0
		summarized := 0
		usersWithChats := 0

		for _, h := range histories {
			if len(h.Threads) > 0 {
				usersWithChats++
			}
			totalThreads += len(h.Threads)
			for _, t := range h.Threads {
				if t.LastMessageAt.After(dayAgo) {
					activeToday++
				}
				if t.LastMessageAt.After(weekAgo) {
					activeThisWeek++
				}
				if t.Summary != nil {
					summarized++
				}
			}
		}

		return c.JSON(fiber.Map{
			"total_users":        len(users),
			"users_with_chats":   usersWithChats,
			"total_threads":      totalThreads,
			"threads_active_24h": activeToday,
			"threads_active_7d":  activeThisWeek,
			"threads_summarized": summarized,
		})
	}
}
