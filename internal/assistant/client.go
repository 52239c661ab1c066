package assistant

import "context"

// Message is a reshaped conversation message from the backend
type Message struct {
	ID          string   `json:"id"`
	Role        string   `json:"role"`
	Content     string   `json:"content"`
	CreatedAt   int64    `json:"created_at"`
	Attachments []string `json:"attachments"`
}

// ToolCall is a backend-initiated request to execute an external action mid-run
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolExecutor runs one tool call and returns the output text to submit back.
// Errors are isolated per call by the run loop and converted into error-string
// outputs so the conversation can continue.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) (string, error)
}

// RunEventType identifies a run lifecycle event
type RunEventType string

const (
	EventDelta     RunEventType = "delta"
	EventToolCall  RunEventType = "tool_call"
	EventCompleted RunEventType = "completed"
	EventFailed    RunEventType = "failed"
)

// RunEvent is one event surfaced from a streaming run
type RunEvent struct {
	Type      RunEventType
	Delta     string
	ToolCalls []ToolCall
	Err       string
}

// RunOptions configures a run against a thread
type RunOptions struct {
	// Instructions are injected alongside the assistant's own, carrying the
	// current wall-clock timestamp so time-relative reasoning is grounded
	Instructions string
	// WebSearch attaches the web_search tool schema to the run
	WebSearch bool
}

// Client is the conversation backend. Implementations must emit deltas in the
// order the backend produces them and always terminate the event channel with
// either EventCompleted or EventFailed.
type Client interface {
	// CreateThread allocates a new opaque thread id
	CreateThread(ctx context.Context, metadata map[string]any) (string, error)
	// AddUserMessage appends a user message, optionally with image attachments
	AddUserMessage(ctx context.Context, threadID, text string, fileIDs []string) error
	// ListMessages returns the thread transcript, oldest first
	ListMessages(ctx context.Context, threadID string, limit int) ([]Message, error)
	// UploadImage stores an image file with the backend and returns its id
	UploadImage(ctx context.Context, name string, data []byte) (string, error)
	// StreamRun starts a run and surfaces its lifecycle as a channel of events.
	// Tool calls requested by the backend are dispatched to exec.
	StreamRun(ctx context.Context, threadID string, opts RunOptions, exec ToolExecutor) (<-chan RunEvent, error)
	// Summarize performs a secondary text-generation call for thread summaries
	Summarize(ctx context.Context, prompt string) (string, error)
}
