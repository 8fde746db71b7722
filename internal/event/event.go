package event

import "time"

type Type string

const (
	TypePointsAwarded       Type = "pointsAwarded"
	TypeLevelUp             Type = "levelUp"
	TypeAchievementUnlocked Type = "achievementUnlocked"
	TypeChallengeCompleted  Type = "challengeCompleted"
)

// Event is one engine emission. Payload keys depend on the type:
// pointsAwarded {action, points, total_points}, levelUp {level, previous},
// achievementUnlocked {achievement_id, point_reward}, challengeCompleted
// {challenge_id, point_reward}.
type Event struct {
	UserID     string         `json:"user_id"`
	Type       Type           `json:"type"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Sink receives events fire-and-forget. Implementations must not block;
// the engine calls it while holding its lock.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }
