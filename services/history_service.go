package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bvesterAPI/internal/event"
	"bvesterAPI/internal/progress"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryService is the durable side of the engine: it appends every
// emitted event and keeps one progress snapshot per user, which the engine
// is warmed from at startup.
type HistoryService struct {
	db *pgxpool.Pool
}

func NewHistoryService(db *pgxpool.Pool) *HistoryService {
	return &HistoryService{db: db}
}

func (s *HistoryService) RecordEvent(ctx context.Context, e event.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	query := `
	INSERT INTO gamification_events (id, user_id, type, payload, occurred_at)
	VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.db.Exec(ctx, query, uuid.New(), e.UserID, string(e.Type), payload, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

func (s *HistoryService) SaveProgress(ctx context.Context, p *progress.UserProgress) error {
	achievements, err := json.Marshal(p.Achievements)
	if err != nil {
		return fmt.Errorf("failed to encode achievements: %w", err)
	}

	query := `
	INSERT INTO user_progress (user_id, total_points, level, achievements, current_streak, longest_streak, last_active_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (user_id)
	DO UPDATE SET
		total_points = $2,
		level = $3,
		achievements = $4,
		current_streak = $5,
		longest_streak = $6,
		last_active_at = $7,
		updated_at = $9
	`

	_, err = s.db.Exec(ctx, query,
		p.UserID,
		p.TotalPoints,
		p.Level,
		achievements,
		p.CurrentStreak,
		p.LongestStreak,
		p.LastActiveAt,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

func (s *HistoryService) LoadAllProgress(ctx context.Context) ([]*progress.UserProgress, error) {
	query := `
	SELECT user_id, total_points, level, achievements, current_streak, longest_streak, last_active_at, created_at, updated_at
	FROM user_progress
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	defer rows.Close()

	var snapshots []*progress.UserProgress
	for rows.Next() {
		p := &progress.UserProgress{}
		var achievements []byte
		err := rows.Scan(
			&p.UserID,
			&p.TotalPoints,
			&p.Level,
			&achievements,
			&p.CurrentStreak,
			&p.LongestStreak,
			&p.LastActiveAt,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		if len(achievements) > 0 {
			if err := json.Unmarshal(achievements, &p.Achievements); err != nil {
				return nil, fmt.Errorf("failed to decode achievements for %s: %w", p.UserID, err)
			}
		}
		snapshots = append(snapshots, p)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// RecentEvents returns the user's newest events, newest first.
func (s *HistoryService) RecentEvents(ctx context.Context, userID string, limit int) ([]*event.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
	SELECT user_id, type, payload, occurred_at
	FROM gamification_events
	WHERE user_id = $1
	ORDER BY occurred_at DESC
	LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		e := &event.Event{}
		var typ string
		var payload []byte
		var occurredAt time.Time
		if err := rows.Scan(&e.UserID, &typ, &payload, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.Type = event.Type(typ)
		e.OccurredAt = occurredAt
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode event payload: %w", err)
			}
		}
		events = append(events, e)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
