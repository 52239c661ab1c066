package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/budtender/budtender-backend/internal/assistant"
	"github.com/budtender/budtender-backend/internal/models"
	"github.com/budtender/budtender-backend/internal/repository"
)

const (
	// summaryCooldown is the minimum interval between summary regenerations
	summaryCooldown = time.Hour
	// minSummaryMessages is the transcript size below which no summary is made
	minSummaryMessages = 3
	// summaryContextLimit bounds the transcript characters sent to the model
	summaryContextLimit = 4000
	// threadNameWords is how many prompt words seed a new thread's name
	threadNameWords = 5
)

var (
	// ErrThreadNotFound is returned when the thread id is not in the user's history
	ErrThreadNotFound = errors.New("thread not found")
	// ErrNotEnoughMessages is returned when the transcript is too short to summarize
	ErrNotEnoughMessages = errors.New("not enough messages for summary")
	// ErrSummaryTooRecent is returned when the cooldown has not elapsed
	ErrSummaryTooRecent = errors.New("summary generated too recently")
)

// Service maintains the per-user ordered thread array and its invariants.
// All mutations are whole-document read-modify-write; concurrent writers for
// the same user can clobber each other, which is tolerated for chat metadata.
type Service struct {
	repo   repository.ChatHistoryRepository
	client assistant.Client
	now    func() time.Time
	log    *logrus.Entry
}

// NewService creates a new thread registry service
func NewService(repo repository.ChatHistoryRepository, client assistant.Client) *Service {
	return &Service{
		repo:   repo,
		client: client,
		now:    time.Now,
		log:    logrus.WithField("component", "registry"),
	}
}

// CreateThread allocates a new thread at the conversation backend.
// Nothing is persisted locally until the first message lands.
func (s *Service) CreateThread(ctx context.Context) (string, error) {
	return s.client.CreateThread(ctx, nil)
}

// CreateGuestThread allocates a thread tagged as belonging to a guest
func (s *Service) CreateGuestThread(ctx context.Context) (string, error) {
	return s.client.CreateThread(ctx, map[string]any{
		"user_type":  "guest",
		"created_at": s.now().UTC().Format(time.RFC3339),
	})
}

// AddChatHistory appends a new thread record and marks it most recent.
// Failures degrade to an empty slice so callers fall back to "no history"
// instead of crashing.
func (s *Service) AddChatHistory(ctx context.Context, userID, threadID, name string) models.ThreadList {
	if userID == "" || threadID == "" || name == "" {
		s.log.WithFields(logrus.Fields{"user_id": userID, "thread_id": threadID}).
			Error("invalid input to AddChatHistory")
		return models.ThreadList{}
	}

	threads, _, err := s.repo.GetThreads(ctx, userID)
	if err != nil {
		s.log.WithError(err).Error("failed to read chat history")
		return models.ThreadList{}
	}

	now := s.now()

	// Only the new thread carries the most-recent flag
	for i := range threads {
		threads[i].IsMostRecent = false
	}
	threads = append(threads, models.ThreadRecord{
		ThreadID:      threadID,
		Name:          name,
		CreatedAt:     now,
		LastMessageAt: now,
		IsMostRecent:  true,
	})

	if err := s.repo.PutThreads(ctx, userID, threads); err != nil {
		s.log.WithError(err).Error("failed to write chat history")
		return models.ThreadList{}
	}

	chats, err := s.GetUserChats(ctx, userID)
	if err != nil {
		s.log.WithError(err).Error("failed to re-read chat history")
		return models.ThreadList{}
	}
	return chats
}

// UpdateThreadActivity touches last_message_at and reassigns the most-recent
// flag to the given thread. A missing user or thread id signals caller misuse
// and yields an empty slice without retrying.
func (s *Service) UpdateThreadActivity(ctx context.Context, userID, threadID string) models.ThreadList {
	if userID == "" || threadID == "" {
		s.log.Error("UpdateThreadActivity: missing userID or threadID")
		return models.ThreadList{}
	}

	threads, found, err := s.repo.GetThreads(ctx, userID)
	if err != nil || !found {
		if err != nil {
			s.log.WithError(err).Error("failed to read chat history for activity update")
		}
		return models.ThreadList{}
	}

	now := s.now()
	threadFound := false
	for i := range threads {
		if threads[i].ThreadID == threadID {
			threadFound = true
			threads[i].LastMessageAt = now
			threads[i].IsMostRecent = true
			if threads[i].CreatedAt.IsZero() {
				threads[i].CreatedAt = now
			}
		} else {
			threads[i].IsMostRecent = false
		}
	}

	if !threadFound {
		s.log.WithField("thread_id", threadID).Warn("thread not in user's history, cannot update activity")
		return models.ThreadList{}
	}

	if err := s.repo.PutThreads(ctx, userID, threads); err != nil {
		s.log.WithError(err).Error("failed to write thread activity")
		return models.ThreadList{}
	}

	return normalize(threads, now)
}

// DeleteThread removes a thread record. When the removed record held the
// most-recent flag, the survivor with the latest last_message_at inherits it.
func (s *Service) DeleteThread(ctx context.Context, userID, threadID string) (models.ThreadList, error) {
	threads, found, err := s.repo.GetThreads(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	if !found {
		return models.ThreadList{}, nil
	}

	deletingMostRecent := false
	updated := make(models.ThreadList, 0, len(threads))
	for _, t := range threads {
		if t.ThreadID == threadID {
			deletingMostRecent = t.IsMostRecent
			continue
		}
		updated = append(updated, t)
	}

	if deletingMostRecent && len(updated) > 0 {
		reassignMostRecent(updated)
	}

	if err := s.repo.PutThreads(ctx, userID, updated); err != nil {
		return nil, fmt.Errorf("failed to write chat history: %w", err)
	}

	return normalize(updated, s.now()), nil
}

// reassignMostRecent gives the flag to the record with the latest
// last_message_at and clears it everywhere else
func reassignMostRecent(threads models.ThreadList) {
	newest := 0
	for i := range threads {
		if threadTime(threads[i]).After(threadTime(threads[newest])) {
			newest = i
		}
	}
	for i := range threads {
		threads[i].IsMostRecent = i == newest
	}
}

// GetUserChats returns the user's thread records with missing fields
// normalized to safe defaults. A missing row is a normal empty state.
func (s *Service) GetUserChats(ctx context.Context, userID string) (models.ThreadList, error) {
	threads, found, err := s.repo.GetThreads(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	if !found || threads == nil {
		return models.ThreadList{}, nil
	}

	return normalize(threads, s.now()), nil
}

// MostRecentThread returns the flagged record, falling back to the newest by
// last_message_at, or nil when the user has no threads
func (s *Service) MostRecentThread(ctx context.Context, userID string) (*models.ThreadRecord, error) {
	chats, err := s.GetUserChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return nil, nil
	}

	for i := range chats {
		if chats[i].IsMostRecent {
			return &chats[i], nil
		}
	}

	sort.SliceStable(chats, func(i, j int) bool {
		return threadTime(chats[i]).After(threadTime(chats[j]))
	})
	return &chats[0], nil
}

// GenerateAndStoreSummary produces a one-sentence past-tense summary of a
// thread's conversation. Guarded: the thread must exist, carry at least three
// messages, and be outside the regeneration cooldown.
func (s *Service) GenerateAndStoreSummary(ctx context.Context, userID, threadID string) error {
	if userID == "" || threadID == "" {
		return fmt.Errorf("missing required parameters")
	}

	threads, found, err := s.repo.GetThreads(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch chat history: %w", err)
	}
	if !found {
		return ErrThreadNotFound
	}

	target := -1
	for i := range threads {
		if threads[i].ThreadID == threadID {
			target = i
			break
		}
	}
	if target == -1 {
		return ErrThreadNotFound
	}

	messages, err := s.client.ListMessages(ctx, threadID, 100)
	if err != nil {
		return fmt.Errorf("failed to fetch messages: %w", err)
	}
	if len(messages) < minSummaryMessages {
		return ErrNotEnoughMessages
	}

	now := s.now()
	t := threads[target]
	if t.Summary != nil && t.SummaryGeneratedAt != nil {
		if now.Sub(*t.SummaryGeneratedAt) < summaryCooldown {
			return ErrSummaryTooRecent
		}
	}

	summary, err := s.client.Summarize(ctx, summaryPrompt(messages))
	if err != nil {
		return fmt.Errorf("failed to generate summary: %w", err)
	}
	summary = strings.Trim(summary, `"`)
	if summary == "" {
		return fmt.Errorf("summary model returned empty text")
	}

	// Re-read before writing back to shrink the lost-update window
	threads, found, err = s.repo.GetThreads(ctx, userID)
	if err != nil || !found {
		return fmt.Errorf("failed to re-read chat history: %w", err)
	}
	for i := range threads {
		if threads[i].ThreadID == threadID {
			threads[i].Summary = &summary
			generatedAt := now
			threads[i].SummaryGeneratedAt = &generatedAt
		}
	}

	if err := s.repo.PutThreads(ctx, userID, threads); err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}

	s.log.WithField("thread_id", threadID).Info("summary stored")
	return nil
}

// summaryPrompt builds the one-sentence summary request, truncating the
// transcript to the last summaryContextLimit characters
func summaryPrompt(messages []assistant.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}

	conversation := b.String()
	if len(conversation) > summaryContextLimit {
		conversation = "..." + conversation[len(conversation)-summaryContextLimit:]
	}

	return fmt.Sprintf("Provide a one-sentence summary in the past tense describing the key topic "+
		"discussed in this conversation. Example: \"The discussion was about Apple's latest product "+
		"announcements.\"\n---\n%s\n---\nSummary:", conversation)
}

// NameFromPrompt derives a thread name from the first words of the first message
func NameFromPrompt(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) == 0 {
		return "New Chat"
	}
	if len(words) > threadNameWords {
		words = words[:threadNameWords]
	}
	return strings.Join(words, " ")
}

// normalize fills missing fields with safe defaults without mutating storage
func normalize(threads models.ThreadList, now time.Time) models.ThreadList {
	out := make(models.ThreadList, len(threads))
	copy(out, threads)
	for i := range out {
		if out[i].CreatedAt.IsZero() {
			out[i].CreatedAt = now
		}
		if out[i].LastMessageAt.IsZero() {
			out[i].LastMessageAt = out[i].CreatedAt
		}
	}
	return out
}

// threadTime is the effective recency of a record
func threadTime(t models.ThreadRecord) time.Time {
	if !t.LastMessageAt.IsZero() {
		return t.LastMessageAt
	}
	return t.CreatedAt
}
