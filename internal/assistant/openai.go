package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/budtender/budtender-backend/internal/config"
)

const (
	// runPollInterval is how often an in-flight run is checked
	runPollInterval = 800 * time.Millisecond
	// runTimeout bounds a single run, tool round trips included
	runTimeout = 3 * time.Minute
)

// OpenAIClient implements Client against the OpenAI Assistants API
type OpenAIClient struct {
	client       *openai.Client
	assistantID  string
	summaryModel string
	log          *logrus.Entry
}

// NewOpenAIClient creates a new OpenAI-backed assistant client
func NewOpenAIClient(cfg config.OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.AssistantID == "" {
		return nil, fmt.Errorf("assistant ID is required")
	}

	return &OpenAIClient{
		client:       openai.NewClient(cfg.APIKey),
		assistantID:  cfg.AssistantID,
		summaryModel: cfg.SummaryModel,
		log:          logrus.WithField("component", "assistant"),
	}, nil
}

// CreateThread allocates a new thread
func (c *OpenAIClient) CreateThread(ctx context.Context, metadata map[string]any) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{
		Metadata: metadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return thread.ID, nil
}

// AddUserMessage appends a user message to a thread
func (c *OpenAIClient) AddUserMessage(ctx context.Context, threadID, text string, fileIDs []string) error {
	req := openai.MessageRequest{
		Role:    "user",
		Content: text,
	}
	if len(fileIDs) > 0 {
		req.FileIds = fileIDs
	}

	_, err := c.client.CreateMessage(ctx, threadID, req)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListMessages returns the thread transcript, oldest first
func (c *OpenAIClient) ListMessages(ctx context.Context, threadID string, limit int) ([]Message, error) {
	list, err := c.client.ListMessage(ctx, threadID, &limit, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, msg := range list.Messages {
		role := "user"
		if msg.AssistantID != nil && *msg.AssistantID != "" {
			role = "assistant"
		}

		messages = append(messages, Message{
			ID:          msg.ID,
			Role:        role,
			Content:     messageText(msg),
			CreatedAt:   int64(msg.CreatedAt),
			Attachments: msg.FileIds,
		})
	}

	// API returns newest first
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt < messages[j].CreatedAt
	})

	return messages, nil
}

// UploadImage stores an image with the backend for vision attachments
func (c *OpenAIClient) UploadImage(ctx context.Context, name string, data []byte) (string, error) {
	file, err := c.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   data,
		Purpose: openai.PurposeType("vision"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return file.ID, nil
}

// StreamRun starts a run and polls its lifecycle, emitting events on a channel.
// Tool calls are dispatched to exec with per-call error isolation.
func (c *OpenAIClient) StreamRun(ctx context.Context, threadID string, opts RunOptions, exec ToolExecutor) (<-chan RunEvent, error) {
	req := openai.RunRequest{
		AssistantID:            c.assistantID,
		AdditionalInstructions: opts.Instructions,
	}
	if opts.WebSearch {
		req.Tools = []openai.Tool{webSearchTool()}
	}

	run, err := c.client.CreateRun(ctx, threadID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	events := make(chan RunEvent)

	go func() {
		defer close(events)
		c.pollRun(ctx, threadID, run.ID, exec, events)
	}()

	return events, nil
}

func (c *OpenAIClient) pollRun(ctx context.Context, threadID, runID string, exec ToolExecutor, events chan<- RunEvent) {
	deadline := time.Now().Add(runTimeout)

	for {
		if time.Now().After(deadline) {
			events <- RunEvent{Type: EventFailed, Err: "run timed out"}
			return
		}

		select {
		case <-ctx.Done():
			events <- RunEvent{Type: EventFailed, Err: ctx.Err().Error()}
			return
		case <-time.After(runPollInterval):
		}

		run, err := c.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			events <- RunEvent{Type: EventFailed, Err: err.Error()}
			return
		}

		switch run.Status {
		case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling:
			continue

		case openai.RunStatusRequiresAction:
			calls := requestedToolCalls(run)
			if len(calls) == 0 {
				events <- RunEvent{Type: EventFailed, Err: "run requires action but provided no tool calls"}
				return
			}
			events <- RunEvent{Type: EventToolCall, ToolCalls: calls}

			outputs := make([]openai.ToolOutput, 0, len(calls))
			for _, call := range calls {
				output, err := c.executeTool(ctx, exec, call)
				if err != nil {
					// Deliver the failure as the tool's output so the run continues
					c.log.WithField("tool", call.Name).WithError(err).Warn("tool call failed")
					output = fmt.Sprintf("Error performing %s: %s", call.Name, err.Error())
				}
				outputs = append(outputs, openai.ToolOutput{
					ToolCallID: call.ID,
					Output:     output,
				})
			}

			if _, err := c.client.SubmitToolOutputs(ctx, threadID, runID, openai.SubmitToolOutputsRequest{
				ToolOutputs: outputs,
			}); err != nil {
				events <- RunEvent{Type: EventFailed, Err: err.Error()}
				return
			}

		case openai.RunStatusCompleted:
			c.emitRunMessages(ctx, threadID, runID, events)
			events <- RunEvent{Type: EventCompleted}
			return

		default:
			msg := string(run.Status)
			if run.LastError != nil && run.LastError.Message != "" {
				msg = run.LastError.Message
			}
			events <- RunEvent{Type: EventFailed, Err: msg}
			return
		}
	}
}

func (c *OpenAIClient) executeTool(ctx context.Context, exec ToolExecutor, call ToolCall) (string, error) {
	if exec == nil {
		return "", fmt.Errorf("no tool executor configured")
	}
	return exec.Execute(ctx, call)
}

// emitRunMessages forwards the text the run produced as delta events, in order
func (c *OpenAIClient) emitRunMessages(ctx context.Context, threadID, runID string, events chan<- RunEvent) {
	limit := 20
	list, err := c.client.ListMessage(ctx, threadID, &limit, nil, nil, nil)
	if err != nil {
		events <- RunEvent{Type: EventFailed, Err: err.Error()}
		return
	}

	// Newest first from the API; collect this run's assistant messages and
	// replay them oldest first
	var produced []openai.Message
	for _, msg := range list.Messages {
		if msg.RunID != nil && *msg.RunID == runID && msg.Role == "assistant" {
			produced = append(produced, msg)
		}
	}

	for i := len(produced) - 1; i >= 0; i-- {
		for _, part := range produced[i].Content {
			if part.Text != nil && part.Text.Value != "" {
				events <- RunEvent{Type: EventDelta, Delta: part.Text.Value}
			}
		}
	}
}

// Summarize performs a one-shot chat completion for thread summaries
func (c *OpenAIClient) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.summaryModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   60,
		Temperature: 0.5,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summary model returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func requestedToolCalls(run openai.Run) []ToolCall {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}

	calls := make([]ToolCall, 0, len(run.RequiredAction.SubmitToolOutputs.ToolCalls))
	for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
		calls = append(calls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return calls
}

func webSearchTool() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name: "web_search",
			Description: "Search the web for current information. Use this when you need " +
				"up-to-date information about stock prices, financial data, current events, " +
				"or any information that requires real-time data. Always generate a refined " +
				"search query based on the conversation context.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type": "string",
						"description": "The search query. For follow-up questions, include relevant " +
							"context from the conversation. For financial queries, be specific and " +
							"include company names, ticker symbols, and what information is needed.",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

func messageText(msg openai.Message) string {
	for _, part := range msg.Content {
		if part.Text != nil {
			return part.Text.Value
		}
	}
	return ""
}
