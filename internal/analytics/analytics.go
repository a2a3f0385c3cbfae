package analytics

import (
	"fmt"
	"math"
	"strings"
	"time"

	"search-chatter/internal/storage"
)

const day = 24 * time.Hour

// Snapshot is the admin view of user activity.
type Snapshot struct {
	TotalUsers    int     `json:"total_users"`
	Active1d      int     `json:"active_1d"`
	Active7d      int     `json:"active_7d"`
	Active30d     int     `json:"active_30d"`
	Inactive      int     `json:"inactive"`
	Blocked       int     `json:"blocked"`
	Channels      int     `json:"channels"`
	ActiveDialogs int     `json:"active_dialogs"`
	Retention     float64 `json:"retention"`
}

// ActiveWithin counts users whose last activity is at most days whole days old.
func ActiveWithin(activity map[int64]time.Time, now time.Time, days int) int {
	n := 0
	for _, last := range activity {
		if int(now.Sub(last)/day) <= days {
			n++
		}
	}
	return n
}

// Compute builds a snapshot. Inactive users are those neither active in the
// last 30 days nor blocked; the figure never goes below zero.
func Compute(users []int64, activity map[int64]time.Time, blocked []int64, channels, dialogs int, now time.Time) Snapshot {
	s := Snapshot{
		TotalUsers:    len(users),
		Active1d:      ActiveWithin(activity, now, 1),
		Active7d:      ActiveWithin(activity, now, 7),
		Active30d:     ActiveWithin(activity, now, 30),
		Blocked:       len(blocked),
		Channels:      channels,
		ActiveDialogs: dialogs,
	}
	s.Inactive = s.TotalUsers - s.Active30d - s.Blocked
	if s.Inactive < 0 {
		s.Inactive = 0
	}
	if s.TotalUsers > 0 {
		s.Retention = math.Round(float64(s.Active7d)/float64(s.TotalUsers)*1000) / 10
	}
	return s
}

// DailyStats summarises the interaction log for one day.
type DailyStats struct {
	Date          string        `json:"date"`
	TotalMessages int           `json:"total_messages"`
	UniqueUsers   int           `json:"unique_users"`
	WithSearch    int           `json:"with_search"`
	MessagesByID  map[int64]int `json:"messages_by_user"`
}

// AnalyzeDailyLogs counts the questions logged on targetDate, in its location.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(day)

	stats := &DailyStats{
		Date:         startOfDay.Format("2006-01-02"),
		MessagesByID: make(map[int64]int),
	}
	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		if event.Question == "" {
			continue
		}
		stats.TotalMessages++
		stats.MessagesByID[event.UserID]++
		if event.SearchResults > 0 {
			stats.WithSearch++
		}
	}
	stats.UniqueUsers = len(stats.MessagesByID)
	return stats
}

// Report renders the daily admin report.
func Report(s Snapshot, daily *DailyStats) string {
	var b strings.Builder
	b.WriteString("📊 Ежедневный отчёт")
	if daily != nil {
		b.WriteString(" за " + daily.Date)
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "👥 Всего пользователей: %d\n", s.TotalUsers)
	fmt.Fprintf(&b, "✅ Активных за 24 часа: %d\n", s.Active1d)
	fmt.Fprintf(&b, "✅ Активных за 7 дней: %d\n", s.Active7d)
	fmt.Fprintf(&b, "🚫 Заблокировали бота: %d\n", s.Blocked)
	fmt.Fprintf(&b, "📈 Процент удержания: %.1f%%\n", s.Retention)
	if daily != nil {
		b.WriteString("\n💬 Вопросы за день:\n")
		fmt.Fprintf(&b, "• Всего: %d\n", daily.TotalMessages)
		fmt.Fprintf(&b, "• Уникальных пользователей: %d\n", daily.UniqueUsers)
		fmt.Fprintf(&b, "• С результатами поиска: %d\n", daily.WithSearch)
	}
	return b.String()
}
