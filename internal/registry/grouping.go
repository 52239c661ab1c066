package registry

import (
	"sort"
	"time"

	"github.com/budtender/budtender-backend/internal/models"
)

// Bucket labels, in display order
const (
	GroupToday     = "Today"
	GroupYesterday = "Yesterday"
	GroupThisWeek  = "This Week"
	GroupThisMonth = "This Month"
	GroupEarlier   = "Earlier"
)

// ChatGroup is one date bucket of threads for sidebar display
type ChatGroup struct {
	Label string              `json:"label"`
	Chats []models.ThreadRecord `json:"chats"`
}

// GroupChatsByDate deduplicates by thread id (first occurrence wins), sorts by
// last_message_at descending (created_at fallback), then buckets records by
// calendar distance from now. Records with no dates land in Earlier.
func GroupChatsByDate(chats models.ThreadList, now time.Time) []ChatGroup {
	seen := make(map[string]struct{}, len(chats))
	unique := make(models.ThreadList, 0, len(chats))
	for _, chat := range chats {
		if _, ok := seen[chat.ThreadID]; ok {
			continue
		}
		seen[chat.ThreadID] = struct{}{}
		unique = append(unique, chat)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return threadTime(unique[i]).After(threadTime(unique[j]))
	})

	buckets := map[string][]models.ThreadRecord{}
	for _, chat := range unique {
		buckets[bucketFor(chat, now)] = append(buckets[bucketFor(chat, now)], chat)
	}

	groups := make([]ChatGroup, 0, 5)
	for _, label := range []string{GroupToday, GroupYesterday, GroupThisWeek, GroupThisMonth, GroupEarlier} {
		groups = append(groups, ChatGroup{Label: label, Chats: buckets[label]})
	}
	return groups
}

func bucketFor(chat models.ThreadRecord, now time.Time) string {
	date := threadTime(chat)
	if date.IsZero() {
		return GroupEarlier
	}

	switch {
	case sameDay(date, now):
		return GroupToday
	case sameDay(date, now.AddDate(0, 0, -1)):
		return GroupYesterday
	case sameWeek(date, now):
		return GroupThisWeek
	case date.Year() == now.Year() && date.Month() == now.Month():
		return GroupThisMonth
	default:
		return GroupEarlier
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// sameWeek uses weeks starting on Sunday
func sameWeek(date, now time.Time) bool {
	start := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
	end := start.AddDate(0, 0, 7)
	return !date.Before(start) && date.Before(end)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
