package challenge

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("challenge not found")
	ErrInactive = errors.New("challenge is not active")
)

// Definition is a static, seeded challenge. A target must be reached while
// now is inside [StartAt, EndAt).
type Definition struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Metric      string    `json:"metric"`
	Target      float64   `json:"target"`
	PointReward int       `json:"point_reward"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
}

// ActiveAt reports whether the challenge window contains t.
func (d Definition) ActiveAt(t time.Time) bool {
	return !t.Before(d.StartAt) && t.Before(d.EndAt)
}

// Participant is one user's progress inside a challenge.
type Participant struct {
	Progress    float64    `json:"progress"`
	Completed   bool       `json:"completed"`
	JoinedAt    time.Time  `json:"joined_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// WithStatus is a definition annotated with the caller's participation.
type WithStatus struct {
	Definition
	Active      bool         `json:"active"`
	Completions int          `json:"completions"`
	Joined      bool         `json:"joined"`
	Participant *Participant `json:"participation,omitempty"`
}
