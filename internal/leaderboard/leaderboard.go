package leaderboard

import (
	"fmt"
	"time"
)

const PeriodAllTime = "all-time"

// WeekKey returns the ISO-week bucket key for t, e.g. "week-35-2026".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("week-%d-%d", week, year)
}

// MonthKey returns the calendar-month bucket key for t, e.g. "month-8-2026".
func MonthKey(t time.Time) string {
	return fmt.Sprintf("month-%d-%d", int(t.Month()), t.Year())
}

// ResolvePeriod maps the aliases the HTTP surface accepts onto concrete
// bucket keys. Anything else is taken as a literal key, which lets callers
// read past buckets directly.
func ResolvePeriod(period string, now time.Time) string {
	switch period {
	case "", "weekly", "week":
		return WeekKey(now)
	case "monthly", "month":
		return MonthKey(now)
	case "all-time", "alltime", "all":
		return PeriodAllTime
	default:
		return period
	}
}

// RankBadge returns the decoration for a 1-based rank: medals for the top
// three, a star through rank 10, nothing below that.
func RankBadge(rank int) string {
	switch {
	case rank == 1:
		return "🥇"
	case rank == 2:
		return "🥈"
	case rank == 3:
		return "🥉"
	case rank <= 10:
		return "⭐"
	default:
		return ""
	}
}

type Entry struct {
	UserID            string `json:"user_id"`
	Rank              int    `json:"rank"`
	Points            int    `json:"points"`
	Level             int    `json:"level"`
	AchievementsCount int    `json:"achievements_count"`
	Badge             string `json:"badge,omitempty"`
}

type Leaderboard struct {
	Period     string   `json:"period"`
	Entries    []*Entry `json:"entries"`
	TotalUsers int      `json:"total_users"`
}
