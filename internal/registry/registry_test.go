package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budtender/budtender-backend/internal/assistant"
	"github.com/budtender/budtender-backend/internal/models"
)

// fakeHistoryRepo keeps thread documents in memory
type fakeHistoryRepo struct {
	docs    map[string]models.ThreadList
	failGet bool
	failPut bool
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{docs: make(map[string]models.ThreadList)}
}

func (r *fakeHistoryRepo) GetThreads(_ context.Context, userID string) (models.ThreadList, bool, error) {
	if r.failGet {
		return nil, false, errors.New("db down")
	}
	threads, ok := r.docs[userID]
	if !ok {
		return nil, false, nil
	}
	out := make(models.ThreadList, len(threads))
	copy(out, threads)
	return out, true, nil
}

func (r *fakeHistoryRepo) PutThreads(_ context.Context, userID string, threads models.ThreadList) error {
	if r.failPut {
		return errors.New("db down")
	}
	out := make(models.ThreadList, len(threads))
	copy(out, threads)
	r.docs[userID] = out
	return nil
}

func (r *fakeHistoryRepo) ListAll(_ context.Context) ([]models.ChatHistoryRow, error) {
	rows := make([]models.ChatHistoryRow, 0, len(r.docs))
	for userID, threads := range r.docs {
		rows = append(rows, models.ChatHistoryRow{UserID: userID, Threads: threads})
	}
	return rows, nil
}

// fakeClient scripts the conversation backend
type fakeClient struct {
	messages     []assistant.Message
	summary      string
	summaryCalls int
	lastPrompt   string
}

func (c *fakeClient) CreateThread(context.Context, map[string]any) (string, error) {
	return "thread_new", nil
}

func (c *fakeClient) AddUserMessage(context.Context, string, string, []string) error {
	return nil
}

func (c *fakeClient) ListMessages(context.Context, string, int) ([]assistant.Message, error) {
	return c.messages, nil
}

func (c *fakeClient) UploadImage(context.Context, string, []byte) (string, error) {
	return "file_1", nil
}

func (c *fakeClient) StreamRun(context.Context, string, assistant.RunOptions, assistant.ToolExecutor) (<-chan assistant.RunEvent, error) {
	ch := make(chan assistant.RunEvent)
	close(ch)
	return ch, nil
}

func (c *fakeClient) Summarize(_ context.Context, prompt string) (string, error) {
	c.summaryCalls++
	c.lastPrompt = prompt
	return c.summary, nil
}

func newTestService(repo *fakeHistoryRepo, client *fakeClient, now time.Time) *Service {
	return &Service{
		repo:   repo,
		client: client,
		now:    func() time.Time { return now },
		log:    logrus.WithField("component", "registry-test"),
	}
}

func countMostRecent(threads models.ThreadList) int {
	n := 0
	for _, t := range threads {
		if t.IsMostRecent {
			n++
		}
	}
	return n
}

func TestAddChatHistory_FlagMovesToNewThread(t *testing.T) {
	repo := newFakeHistoryRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, &fakeClient{}, now)

	svc.AddChatHistory(context.Background(), "user1", "t1", "First chat")
	threads := svc.AddChatHistory(context.Background(), "user1", "t2", "Second chat")

	require.Len(t, threads, 2)
	assert.Equal(t, 1, countMostRecent(threads))
	assert.Equal(t, "t2", threads[1].ThreadID)
	assert.True(t, threads[1].IsMostRecent)
	assert.False(t, threads[0].IsMostRecent)
}

func TestAddChatHistory_DegradesToEmptyOnFailure(t *testing.T) {
	repo := newFakeHistoryRepo()
	repo.failPut = true
	svc := newTestService(repo, &fakeClient{}, time.Now())

	threads := svc.AddChatHistory(context.Background(), "user1", "t1", "Chat")

	assert.Empty(t, threads)
}

func TestAddChatHistory_RejectsMissingInput(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := newTestService(repo, &fakeClient{}, time.Now())

	assert.Empty(t, svc.AddChatHistory(context.Background(), "", "t1", "Chat"))
	assert.Empty(t, svc.AddChatHistory(context.Background(), "user1", "", "Chat"))
	assert.Empty(t, svc.AddChatHistory(context.Background(), "user1", "t1", ""))
	assert.Empty(t, repo.docs)
}

func TestUpdateThreadActivity_ReassignsFlag(t *testing.T) {
	repo := newFakeHistoryRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, &fakeClient{}, now)

	svc.AddChatHistory(context.Background(), "user1", "t1", "First")
	svc.AddChatHistory(context.Background(), "user1", "t2", "Second")

	threads := svc.UpdateThreadActivity(context.Background(), "user1", "t1")

	require.Len(t, threads, 2)
	assert.Equal(t, 1, countMostRecent(threads))
	assert.True(t, threads[0].IsMostRecent)
	assert.Equal(t, now, threads[0].LastMessageAt)
}

func TestUpdateThreadActivity_UnknownUserOrThread(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := newTestService(repo, &fakeClient{}, time.Now())

	assert.Empty(t, svc.UpdateThreadActivity(context.Background(), "ghost", "t1"))

	svc.AddChatHistory(context.Background(), "user1", "t1", "First")
	assert.Empty(t, svc.UpdateThreadActivity(context.Background(), "user1", "t-missing"))

	// Stored state is untouched by the failed update
	threads := repo.docs["user1"]
	require.Len(t, threads, 1)
	assert.True(t, threads[0].IsMostRecent)
}

func TestDeleteThread_SurvivorInheritsFlag(t *testing.T) {
	repo := newFakeHistoryRepo()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.docs["user1"] = models.ThreadList{
		{ThreadID: "t1", Name: "Old", CreatedAt: base, LastMessageAt: base},
		{ThreadID: "t2", Name: "Newer", CreatedAt: base, LastMessageAt: base.Add(2 * time.Hour)},
		{ThreadID: "t3", Name: "Current", CreatedAt: base, LastMessageAt: base.Add(3 * time.Hour), IsMostRecent: true},
	}
	svc := newTestService(repo, &fakeClient{}, base.Add(4*time.Hour))

	threads, err := svc.DeleteThread(context.Background(), "user1", "t3")

	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, 1, countMostRecent(threads))
	for _, th := range threads {
		if th.ThreadID == "t2" {
			assert.True(t, th.IsMostRecent)
		}
	}
}

func TestDeleteThread_NotMostRecentKeepsFlag(t *testing.T) {
	repo := newFakeHistoryRepo()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.docs["user1"] = models.ThreadList{
		{ThreadID: "t1", CreatedAt: base, LastMessageAt: base},
		{ThreadID: "t2", CreatedAt: base, LastMessageAt: base.Add(time.Hour), IsMostRecent: true},
	}
	svc := newTestService(repo, &fakeClient{}, base.Add(2*time.Hour))

	threads, err := svc.DeleteThread(context.Background(), "user1", "t1")

	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "t2", threads[0].ThreadID)
	assert.True(t, threads[0].IsMostRecent)
}

func TestDeleteThread_LastThreadLeavesEmptyList(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := newTestService(repo, &fakeClient{}, time.Now())

	svc.AddChatHistory(context.Background(), "user1", "t1", "Only")

	threads, err := svc.DeleteThread(context.Background(), "user1", "t1")

	require.NoError(t, err)
	assert.Empty(t, threads)
	assert.Empty(t, repo.docs["user1"])
}

func TestGetUserChats_EmptyStates(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := newTestService(repo, &fakeClient{}, time.Now())

	// No row at all
	chats, err := svc.GetUserChats(context.Background(), "ghost")
	require.NoError(t, err)
	assert.NotNil(t, chats)
	assert.Empty(t, chats)

	// Row with an empty document
	repo.docs["user1"] = models.ThreadList{}
	chats, err = svc.GetUserChats(context.Background(), "user1")
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestGetUserChats_NormalizesMissingDates(t *testing.T) {
	repo := newFakeHistoryRepo()
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	repo.docs["user1"] = models.ThreadList{
		{ThreadID: "t1", Name: "Chat", CreatedAt: created},
	}
	svc := newTestService(repo, &fakeClient{}, time.Now())

	chats, err := svc.GetUserChats(context.Background(), "user1")

	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, created, chats[0].LastMessageAt)
	// Stored document stays untouched
	assert.True(t, repo.docs["user1"][0].LastMessageAt.IsZero())
}

func TestMostRecentThread(t *testing.T) {
	repo := newFakeHistoryRepo()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, &fakeClient{}, base)

	thread, err := svc.MostRecentThread(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, thread)

	// No flag set anywhere: newest activity wins
	repo.docs["user1"] = models.ThreadList{
		{ThreadID: "t1", CreatedAt: base, LastMessageAt: base},
		{ThreadID: "t2", CreatedAt: base, LastMessageAt: base.Add(time.Hour)},
	}
	thread, err = svc.MostRecentThread(context.Background(), "user1")
	require.NoError(t, err)
	require.NotNil(t, thread)
	assert.Equal(t, "t2", thread.ThreadID)
}

func summaryMessages(n int) []assistant.Message {
	msgs := make([]assistant.Message, 0, n)
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs = append(msgs, assistant.Message{
			ID:      fmt.Sprintf("msg_%d", i),
			Role:    role,
			Content: fmt.Sprintf("message %d about terpene profiles", i),
		})
	}
	return msgs
}

func TestGenerateAndStoreSummary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("stores stripped summary", func(t *testing.T) {
		repo := newFakeHistoryRepo()
		repo.docs["user1"] = models.ThreadList{{ThreadID: "t1", CreatedAt: now}}
		client := &fakeClient{messages: summaryMessages(4), summary: `"The discussion was about sleep strains."`}
		svc := newTestService(repo, client, now)

		err := svc.GenerateAndStoreSummary(context.Background(), "user1", "t1")

		require.NoError(t, err)
		stored := repo.docs["user1"][0]
		require.NotNil(t, stored.Summary)
		assert.Equal(t, "The discussion was about sleep strains.", *stored.Summary)
		require.NotNil(t, stored.SummaryGeneratedAt)
		assert.Equal(t, now, *stored.SummaryGeneratedAt)
	})

	t.Run("unknown thread", func(t *testing.T) {
		repo := newFakeHistoryRepo()
		repo.docs["user1"] = models.ThreadList{{ThreadID: "t1"}}
		svc := newTestService(repo, &fakeClient{messages: summaryMessages(4), summary: "s"}, now)

		err := svc.GenerateAndStoreSummary(context.Background(), "user1", "t-missing")

		assert.ErrorIs(t, err, ErrThreadNotFound)
	})

	t.Run("too few messages", func(t *testing.T) {
		repo := newFakeHistoryRepo()
		repo.docs["user1"] = models.ThreadList{{ThreadID: "t1"}}
		client := &fakeClient{messages: summaryMessages(2), summary: "s"}
		svc := newTestService(repo, client, now)

		err := svc.GenerateAndStoreSummary(context.Background(), "user1", "t1")

		assert.ErrorIs(t, err, ErrNotEnoughMessages)
		assert.Zero(t, client.summaryCalls)
	})

	t.Run("cooldown blocks regeneration", func(t *testing.T) {
		repo := newFakeHistoryRepo()
		recent := now.Add(-30 * time.Minute)
		existing := "old summary"
		repo.docs["user1"] = models.ThreadList{{
			ThreadID:           "t1",
			Summary:            &existing,
			SummaryGeneratedAt: &recent,
		}}
		client := &fakeClient{messages: summaryMessages(4), summary: "new summary"}
		svc := newTestService(repo, client, now)

		err := svc.GenerateAndStoreSummary(context.Background(), "user1", "t1")

		assert.ErrorIs(t, err, ErrSummaryTooRecent)
		assert.Zero(t, client.summaryCalls)
		assert.Equal(t, "old summary", *repo.docs["user1"][0].Summary)
	})

	t.Run("cooldown elapsed regenerates", func(t *testing.T) {
		repo := newFakeHistoryRepo()
		stale := now.Add(-2 * time.Hour)
		existing := "old summary"
		repo.docs["user1"] = models.ThreadList{{
			ThreadID:           "t1",
			Summary:            &existing,
			SummaryGeneratedAt: &stale,
		}}
		client := &fakeClient{messages: summaryMessages(4), summary: "new summary"}
		svc := newTestService(repo, client, now)

		err := svc.GenerateAndStoreSummary(context.Background(), "user1", "t1")

		require.NoError(t, err)
		assert.Equal(t, 1, client.summaryCalls)
		assert.Equal(t, "new summary", *repo.docs["user1"][0].Summary)
	})

	t.Run("long transcript is truncated", func(t *testing.T) {
		repo := newFakeHistoryRepo()
		repo.docs["user1"] = models.ThreadList{{ThreadID: "t1"}}
		long := make([]assistant.Message, 6)
		for i := range long {
			long[i] = assistant.Message{Role: "user", Content: fmt.Sprintf("%d %s", i, string(make([]byte, 1500)))}
		}
		client := &fakeClient{messages: long, summary: "s"}
		svc := newTestService(repo, client, now)

		require.NoError(t, svc.GenerateAndStoreSummary(context.Background(), "user1", "t1"))
		assert.LessOrEqual(t, len(client.lastPrompt), summaryContextLimit+300)
	})
}

func TestNameFromPrompt(t *testing.T) {
	assert.Equal(t, "New Chat", NameFromPrompt("   "))
	assert.Equal(t, "What helps with sleep", NameFromPrompt("What helps with sleep"))
	assert.Equal(t, "What is the best strain", NameFromPrompt("What is the best strain for deep sleep tonight"))
}
