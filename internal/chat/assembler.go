package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/budtender/budtender-backend/internal/assistant"
	"github.com/budtender/budtender-backend/internal/registry"
	"github.com/budtender/budtender-backend/internal/websearch"
)

// Request is one chat turn to stream
type Request struct {
	UserID           string
	ThreadID         string
	Prompt           string
	AttachmentIDs    []string
	WebSearchEnabled bool
}

// flusher is satisfied by bufio.Writer
type flusher interface {
	Flush() error
}

// Assembler turns an upstream run-event stream into a single outgoing text
// stream, forwarding deltas in arrival order and keeping the response open
// for incremental delivery.
type Assembler struct {
	client   assistant.Client
	searcher *websearch.Searcher
	registry *registry.Service
	now      func() time.Time
	log      *logrus.Entry
}

// NewAssembler creates a new streaming response assembler
func NewAssembler(client assistant.Client, searcher *websearch.Searcher, reg *registry.Service) *Assembler {
	return &Assembler{
		client:   client,
		searcher: searcher,
		registry: reg,
		now:      time.Now,
		log:      logrus.WithField("component", "chat"),
	}
}

// Stream appends the user's message to the thread, runs the assistant, and
// writes raw text chunks to w as they arrive. Upstream failure before any
// content was forwarded yields a single synthetic error chunk so the client
// is never left with a silent empty response.
func (a *Assembler) Stream(ctx context.Context, req Request, w io.Writer) {
	if err := a.client.AddUserMessage(ctx, req.ThreadID, req.Prompt, req.AttachmentIDs); err != nil {
		a.log.WithError(err).Error("failed to append user message")
		a.write(w, fmt.Sprintf("Error: %s", err.Error()))
		return
	}

	opts := assistant.RunOptions{
		Instructions: fmt.Sprintf("In case you need to use it REMEMBER TODAY's DATE AND TIME IS %s",
			a.now().UTC().Format(time.RFC3339)),
		WebSearch: req.WebSearchEnabled,
	}

	var exec assistant.ToolExecutor
	if req.WebSearchEnabled {
		exec = &webSearchExecutor{searcher: a.searcher, log: a.log}
	}

	events, err := a.client.StreamRun(ctx, req.ThreadID, opts, exec)
	if err != nil {
		a.log.WithError(err).Error("failed to open run stream")
		a.write(w, fmt.Sprintf("Error: %s", err.Error()))
		return
	}

	var full strings.Builder
	hasStartedStreaming := false
	writeBroken := false

	for event := range events {
		switch event.Type {
		case assistant.EventDelta:
			full.WriteString(event.Delta)
			if !writeBroken {
				if ok := a.write(w, event.Delta); !ok {
					// Client likely disconnected; keep draining so the
					// upstream goroutine can finish
					writeBroken = true
					continue
				}
				hasStartedStreaming = true
			}

		case assistant.EventToolCall:
			for _, call := range event.ToolCalls {
				a.log.WithField("tool", call.Name).Info("assistant requested tool call")
			}

		case assistant.EventFailed:
			a.log.WithField("error", event.Err).Error("run failed")
			if writeBroken {
				continue
			}
			if !hasStartedStreaming {
				a.write(w, fmt.Sprintf("Error: %s", fallbackError(event.Err)))
			} else {
				a.write(w, fmt.Sprintf("\n\nError: %s", fallbackError(event.Err)))
			}

		case assistant.EventCompleted:
			// Channel closes right after; nothing to do
		}
	}

	a.log.WithFields(logrus.Fields{
		"thread_id": req.ThreadID,
		"chars":     full.Len(),
	}).Info("stream finished")

	a.afterStream(req)
}

// afterStream records activity and opportunistically refreshes the thread
// summary once a turn has completed. Guests (no user id) keep no history.
func (a *Assembler) afterStream(req Request) {
	if a.registry == nil || req.UserID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.registry.UpdateThreadActivity(ctx, req.UserID, req.ThreadID)

	if err := a.registry.GenerateAndStoreSummary(ctx, req.UserID, req.ThreadID); err != nil {
		// Guard conditions (cooldown, short transcript) are routine here
		a.log.WithError(err).Debug("summary not regenerated")
	}
}

// write sends one chunk and flushes it out immediately
func (a *Assembler) write(w io.Writer, chunk string) bool {
	if _, err := io.WriteString(w, chunk); err != nil {
		a.log.WithError(err).Warn("failed to write to output stream")
		return false
	}
	if f, ok := w.(flusher); ok {
		if err := f.Flush(); err != nil {
			a.log.WithError(err).Warn("failed to flush output stream")
			return false
		}
	}
	return true
}

func fallbackError(msg string) string {
	if msg == "" {
		return "Unknown error"
	}
	return msg
}

// webSearchExecutor executes the assistant's web_search tool calls
type webSearchExecutor struct {
	searcher *websearch.Searcher
	log      *logrus.Entry
}

func (e *webSearchExecutor) Execute(ctx context.Context, call assistant.ToolCall) (string, error) {
	if call.Name != "web_search" {
		return "", fmt.Errorf("unsupported tool: %s", call.Name)
	}
	if e.searcher == nil || !e.searcher.Configured() {
		return "", fmt.Errorf("web search is not configured")
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return "", fmt.Errorf("failed to parse tool arguments: %w", err)
	}
	if args.Query == "" {
		return "", fmt.Errorf("tool call provided no query")
	}

	e.log.WithField("query", args.Query).Info("assistant generated search query")

	results, err := e.searcher.Search(ctx, args.Query, websearch.SearchOptions{
		SearchDepth: "advanced",
		MaxResults:  5,
	})
	if err != nil {
		return "", err
	}

	return websearch.FormatForAssistant(args.Query, results), nil
}
