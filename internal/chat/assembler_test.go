package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budtender/budtender-backend/internal/assistant"
)

// scriptedClient replays a fixed sequence of run events
type scriptedClient struct {
	events        []assistant.RunEvent
	addMessageErr error
	streamErr     error

	addedText  string
	addedFiles []string
	runOpts    assistant.RunOptions
}

func (c *scriptedClient) CreateThread(context.Context, map[string]any) (string, error) {
	return "thread_1", nil
}

func (c *scriptedClient) AddUserMessage(_ context.Context, _ string, text string, fileIDs []string) error {
	c.addedText = text
	c.addedFiles = fileIDs
	return c.addMessageErr
}

func (c *scriptedClient) ListMessages(context.Context, string, int) ([]assistant.Message, error) {
	return nil, nil
}

func (c *scriptedClient) UploadImage(context.Context, string, []byte) (string, error) {
	return "file_1", nil
}

func (c *scriptedClient) StreamRun(context.Context, string, assistant.RunOptions, assistant.ToolExecutor) (<-chan assistant.RunEvent, error) {
	if c.streamErr != nil {
		return nil, c.streamErr
	}
	ch := make(chan assistant.RunEvent, len(c.events))
	for _, e := range c.events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func (c *scriptedClient) Summarize(context.Context, string) (string, error) {
	return "", nil
}

// chunkRecorder captures each chunk as written
type chunkRecorder struct {
	chunks []string
}

func (r *chunkRecorder) Write(p []byte) (int, error) {
	r.chunks = append(r.chunks, string(p))
	return len(p), nil
}

func newTestAssembler(client assistant.Client) *Assembler {
	return &Assembler{
		client: client,
		now:    func() time.Time { return time.Date(2025, 6, 18, 15, 0, 0, 0, time.UTC) },
		log:    logrus.WithField("component", "chat-test"),
	}
}

func TestStream_ForwardsDeltasInOrder(t *testing.T) {
	client := &scriptedClient{events: []assistant.RunEvent{
		{Type: assistant.EventDelta, Delta: "Hel"},
		{Type: assistant.EventDelta, Delta: "lo"},
		{Type: assistant.EventCompleted},
	}}
	a := newTestAssembler(client)
	rec := &chunkRecorder{}

	a.Stream(context.Background(), Request{ThreadID: "thread_1", Prompt: "hi"}, rec)

	assert.Equal(t, []string{"Hel", "lo"}, rec.chunks)
	assert.Equal(t, "Hello", strings.Join(rec.chunks, ""))
	assert.Equal(t, "hi", client.addedText)
}

func TestStream_InstructionsCarryTimestamp(t *testing.T) {
	client := &scriptedClient{events: []assistant.RunEvent{{Type: assistant.EventCompleted}}}
	a := &Assembler{
		client: client,
		now:    func() time.Time { return time.Date(2025, 6, 18, 15, 0, 0, 0, time.UTC) },
		log:    logrus.WithField("component", "chat-test"),
	}

	// Capture opts via a wrapper
	wrapped := &optsCapture{scriptedClient: client}
	a.client = wrapped

	a.Stream(context.Background(), Request{ThreadID: "thread_1", Prompt: "hi", WebSearchEnabled: true}, &chunkRecorder{})

	assert.Contains(t, wrapped.opts.Instructions, "2025-06-18T15:00:00Z")
	assert.True(t, wrapped.opts.WebSearch)
}

type optsCapture struct {
	*scriptedClient
	opts assistant.RunOptions
}

func (c *optsCapture) StreamRun(ctx context.Context, threadID string, opts assistant.RunOptions, exec assistant.ToolExecutor) (<-chan assistant.RunEvent, error) {
	c.opts = opts
	return c.scriptedClient.StreamRun(ctx, threadID, opts, exec)
}

func TestStream_FailureBeforeContentEmitsErrorChunk(t *testing.T) {
	client := &scriptedClient{events: []assistant.RunEvent{
		{Type: assistant.EventFailed, Err: "run failed upstream"},
	}}
	a := newTestAssembler(client)
	rec := &chunkRecorder{}

	a.Stream(context.Background(), Request{ThreadID: "thread_1", Prompt: "hi"}, rec)

	require.Len(t, rec.chunks, 1)
	assert.Equal(t, "Error: run failed upstream", rec.chunks[0])
}

func TestStream_FailureAfterContentAppendsNote(t *testing.T) {
	client := &scriptedClient{events: []assistant.RunEvent{
		{Type: assistant.EventDelta, Delta: "partial answer"},
		{Type: assistant.EventFailed, Err: "connection lost"},
	}}
	a := newTestAssembler(client)
	rec := &chunkRecorder{}

	a.Stream(context.Background(), Request{ThreadID: "thread_1", Prompt: "hi"}, rec)

	require.Len(t, rec.chunks, 2)
	assert.Equal(t, "partial answer", rec.chunks[0])
	assert.Equal(t, "\n\nError: connection lost", rec.chunks[1])
}

func TestStream_FailureWithNoMessageGetsFallback(t *testing.T) {
	client := &scriptedClient{events: []assistant.RunEvent{
		{Type: assistant.EventFailed},
	}}
	a := newTestAssembler(client)
	rec := &chunkRecorder{}

	a.Stream(context.Background(), Request{ThreadID: "thread_1", Prompt: "hi"}, rec)

	require.Len(t, rec.chunks, 1)
	assert.Equal(t, "Error: Unknown error", rec.chunks[0])
}

func TestStream_AddMessageFailure(t *testing.T) {
	client := &scriptedClient{addMessageErr: errors.New("thread gone")}
	a := newTestAssembler(client)
	rec := &chunkRecorder{}

	a.Stream(context.Background(), Request{ThreadID: "thread_1", Prompt: "hi"}, rec)

	require.Len(t, rec.chunks, 1)
	assert.Contains(t, rec.chunks[0], "Error: ")
	assert.Contains(t, rec.chunks[0], "thread gone")
}

func TestStream_AttachmentsForwarded(t *testing.T) {
	client := &scriptedClient{events: []assistant.RunEvent{{Type: assistant.EventCompleted}}}
	a := newTestAssembler(client)

	a.Stream(context.Background(), Request{
		ThreadID:      "thread_1",
		Prompt:        "what strain is this",
		AttachmentIDs: []string{"file_a", "file_b"},
	}, &chunkRecorder{})

	assert.Equal(t, []string{"file_a", "file_b"}, client.addedFiles)
}

func TestWebSearchExecutor_RejectsUnknownTool(t *testing.T) {
	exec := &webSearchExecutor{log: logrus.WithField("component", "chat-test")}

	_, err := exec.Execute(context.Background(), assistant.ToolCall{Name: "get_weather", Arguments: "{}"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported tool")
}

func TestWebSearchExecutor_RejectsBadArguments(t *testing.T) {
	exec := &webSearchExecutor{log: logrus.WithField("component", "chat-test")}

	_, err := exec.Execute(context.Background(), assistant.ToolCall{Name: "web_search", Arguments: "not json"})
	assert.Error(t, err)
}
