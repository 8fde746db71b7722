package progress

import (
	"time"

	"bvesterAPI/internal/level"
)

// UserProgress is the per-user gamification record. It is created on the
// first point award and lives for the lifetime of the platform.
type UserProgress struct {
	UserID        string               `json:"user_id"`
	TotalPoints   int                  `json:"total_points"`
	Level         int                  `json:"level"`
	Achievements  map[string]time.Time `json:"achievements"`
	CurrentStreak int                  `json:"current_streak"`
	LongestStreak int                  `json:"longest_streak"`
	LastActiveAt  *time.Time           `json:"last_active_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// HasAchievement reports whether the achievement id is already unlocked.
func (p *UserProgress) HasAchievement(id string) bool {
	_, ok := p.Achievements[id]
	return ok
}

// AchievementIDs returns the unlocked ids; order is not significant.
func (p *UserProgress) AchievementIDs() []string {
	ids := make([]string, 0, len(p.Achievements))
	for id := range p.Achievements {
		ids = append(ids, id)
	}
	return ids
}

// AwardResult is returned by a successful point award.
type AwardResult struct {
	PointsAwarded int            `json:"points_awarded"`
	TotalPoints   int            `json:"total_points"`
	Level         int            `json:"level"`
	LeveledUp     bool           `json:"leveled_up"`
	NextLevel     level.Progress `json:"next_level_progress"`
}

// StreakResult is returned by a daily check-in.
type StreakResult struct {
	CurrentStreak int  `json:"current_streak"`
	LongestStreak int  `json:"longest_streak"`
	Extended      bool `json:"extended"`
	Broken        bool `json:"broken"`
	WeeklyBonus   int  `json:"weekly_bonus,omitempty"`
	MonthlyBonus  int  `json:"monthly_bonus,omitempty"`
}

// UserStats is the read-only stats view served to clients.
type UserStats struct {
	UserID            string         `json:"user_id"`
	TotalPoints       int            `json:"total_points"`
	Level             int            `json:"level"`
	NextLevel         level.Progress `json:"next_level_progress"`
	CurrentStreak     int            `json:"current_streak"`
	LongestStreak     int            `json:"longest_streak"`
	AchievementsCount int            `json:"achievements_count"`
	Rank              int            `json:"rank"`
	LastActiveAt      *time.Time     `json:"last_active_at,omitempty"`
}
