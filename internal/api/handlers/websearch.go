package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/budtender/budtender-backend/internal/services"
	"github.com/budtender/budtender-backend/internal/websearch"
)

type webSearchRequest struct {
	Query       string `json:"query" validate:"required"`
	SearchDepth string `json:"searchDepth"`
	MaxResults  int    `json:"maxResults"`
}

// WebSearch runs a standalone web search and returns structured results
func WebSearch(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webSearchRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "query is required",
			})
		}

		if !svc.Searcher.Configured() {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Web search is not configured",
			})
		}

		results, err := svc.Searcher.Search(c.Context(), req.Query, websearch.SearchOptions{
			SearchDepth: req.SearchDepth,
			MaxResults:  req.MaxResults,
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(results)
	}
}
