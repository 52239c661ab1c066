package handlers

import (
	"bufio"
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/budtender/budtender-backend/internal/api/middleware"
	"github.com/budtender/budtender-backend/internal/chat"
	"github.com/budtender/budtender-backend/internal/registry"
	"github.com/budtender/budtender-backend/internal/services"
)

var validate = validator.New()

// streamTimeout bounds one full chat turn including tool calls
const streamTimeout = 5 * time.Minute

type chatRequest struct {
	Prompt          string   `json:"prompt" validate:"required"`
	ThreadID        string   `json:"threadId" validate:"required"`
	AttachmentIDs   []string `json:"attachmentIds"`
	WebSearchEnable *bool    `json:"webSearchEnabled"`
}

// Chat streams an assistant reply for one user message (no tools)
func Chat(svc *services.Services) fiber.Handler {
	return streamChat(svc, false)
}

// ChatWithFunctions streams an assistant reply with the web search tool
// attached. Search defaults on and can be disabled per request.
func ChatWithFunctions(svc *services.Services) fiber.Handler {
	return streamChat(svc, true)
}

func streamChat(svc *services.Services, webSearchDefault bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req chatRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "prompt and threadId are required",
			})
		}

		webSearch := webSearchDefault
		if req.WebSearchEnable != nil {
			webSearch = *req.WebSearchEnable
		}

		userID := middleware.GetUserID(c)
		if userID != "" {
			registerThreadIfNew(c.Context(), svc, userID, req.ThreadID, req.Prompt)
		}

		streamReq := chat.Request{
			UserID:           userID,
			ThreadID:         req.ThreadID,
			Prompt:           req.Prompt,
			AttachmentIDs:    req.AttachmentIDs,
			WebSearchEnabled: webSearch,
		}

		c.Set("Content-Type", "text/plain; charset=utf-8")
		c.Set("Cache-Control", "no-cache")
		c.Set("X-Accel-Buffering", "no")

		// The fiber ctx is recycled once the handler returns, so the stream
		// writer runs against a detached context
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			ctx, cancel := context.WithTimeout(context.Background(), streamTimeout)
			defer cancel()

			svc.Chat.Stream(ctx, streamReq, w)
		})

		return nil
	}
}

// registerThreadIfNew appends the thread to the user's history on their first
// message in it, naming it from the opening words of the prompt
func registerThreadIfNew(ctx context.Context, svc *services.Services, userID, threadID, message string) {
	chats, err := svc.Registry.GetUserChats(ctx, userID)
	if err != nil {
		return
	}
	for _, chat := range chats {
		if chat.ThreadID == threadID {
			return
		}
	}
	svc.Registry.AddChatHistory(ctx, userID, threadID, registry.NameFromPrompt(message))
}
