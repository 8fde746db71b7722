package services

import (
	"log"
	"sort"
	"sync"
	"time"

	"bvesterAPI/internal/achievement"
	"bvesterAPI/internal/challenge"
	"bvesterAPI/internal/event"
	"bvesterAPI/internal/leaderboard"
	"bvesterAPI/internal/level"
	"bvesterAPI/internal/progress"
)

// GamificationConfig carries the static definitions the engine is
// constructed with. Definitions are immutable after construction.
type GamificationConfig struct {
	PointValues        map[string]int
	LevelThresholds    []level.Threshold
	Achievements       []achievement.Definition
	Challenges         []challenge.Definition
	WeeklyStreakBonus  int
	MonthlyStreakBonus int
}

type challengeState struct {
	def          challenge.Definition
	participants map[string]*challenge.Participant
	completions  int
}

// GamificationService owns all engine state. Every public method takes the
// single mutex, so each call runs to completion atomically; the engine
// itself performs no I/O. Emitted events go to an optional sink which must
// not block.
type GamificationService struct {
	mu sync.Mutex

	pointValues        map[string]int
	thresholds         []level.Threshold
	achievements       []achievement.Definition
	weeklyStreakBonus  int
	monthlyStreakBonus int

	users        map[string]*progress.UserProgress
	challenges   map[string]*challengeState
	boards       map[string]map[string]int
	actionCounts map[string]map[string]int

	now  func() time.Time
	sink event.Sink
}

func NewGamificationService(cfg GamificationConfig) *GamificationService {
	thresholds := make([]level.Threshold, len(cfg.LevelThresholds))
	copy(thresholds, cfg.LevelThresholds)
	sort.Slice(thresholds, func(i, j int) bool {
		return thresholds[i].MinPoints < thresholds[j].MinPoints
	})

	challenges := make(map[string]*challengeState, len(cfg.Challenges))
	for _, def := range cfg.Challenges {
		challenges[def.ID] = &challengeState{
			def:          def,
			participants: make(map[string]*challenge.Participant),
		}
	}

	return &GamificationService{
		pointValues:        cfg.PointValues,
		thresholds:         thresholds,
		achievements:       cfg.Achievements,
		weeklyStreakBonus:  cfg.WeeklyStreakBonus,
		monthlyStreakBonus: cfg.MonthlyStreakBonus,
		users:              make(map[string]*progress.UserProgress),
		challenges:         challenges,
		boards:             map[string]map[string]int{leaderboard.PeriodAllTime: {}},
		actionCounts:       make(map[string]map[string]int),
		now:                time.Now,
	}
}

// SetEventSink injects the fire-and-forget event consumer from main.go.
func (s *GamificationService) SetEventSink(sink event.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// SetClock overrides the engine's time source. Used by tests.
func (s *GamificationService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Restore warms the engine with progress snapshots loaded from the store.
// Only the all-time leaderboard can be rebuilt from snapshots; week and
// month buckets refill as new points arrive.
func (s *GamificationService) Restore(snapshots []*progress.UserProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		if snap == nil || snap.UserID == "" {
			continue
		}
		u := *snap
		if u.Achievements == nil {
			u.Achievements = make(map[string]time.Time)
		}
		u.Level = level.Calculate(s.thresholds, u.TotalPoints)
		s.users[u.UserID] = &u
		s.boards[leaderboard.PeriodAllTime][u.UserID] = u.TotalPoints
	}
	log.Printf("Gamification: restored %d user progress snapshots", len(snapshots))
}

// AwardPoints adds points for an action. The amount comes from the point
// value table unless an explicit override is given. A zero or unknown
// amount is a no-op returning nil; awarding never fails otherwise.
func (s *GamificationService) AwardPoints(userID, actionName string, explicitAmount *int) *progress.AwardResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if actionName != "" {
		s.tallyAction(userID, actionName)
	}
	return s.award(userID, actionName, explicitAmount)
}

// CheckAchievements evaluates every locked achievement against the context
// and returns the ones newly unlocked by this call. When the context names
// an action but no count, the engine's own tally for that action is used.
func (s *GamificationService) CheckAchievements(userID string, ctx achievement.Context) []achievement.Definition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkAchievements(userID, ctx)
}

// UpdateStreak records a qualifying daily activity. It advances, resets or
// re-affirms the streak, awards weekly/monthly bonuses, and finishes by
// running the achievement matcher with the updated streak value.
func (s *GamificationService) UpdateStreak(userID string) (*progress.StreakResult, []achievement.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.getOrCreateUser(userID)
	now := s.now()
	res := &progress.StreakResult{}

	switch {
	case u.LastActiveAt == nil:
		u.CurrentStreak = 1
		res.Extended = true
	default:
		switch gap := daysBetween(*u.LastActiveAt, now); {
		case gap == 0:
			// Same calendar day: re-affirmation, nothing to advance.
		case gap == 1:
			u.CurrentStreak++
			res.Extended = true
			if u.CurrentStreak%7 == 0 && s.weeklyStreakBonus > 0 {
				bonus := s.weeklyStreakBonus
				s.award(userID, "weeklyStreakBonus", &bonus)
				res.WeeklyBonus = bonus
			}
			if u.CurrentStreak%30 == 0 && s.monthlyStreakBonus > 0 {
				bonus := s.monthlyStreakBonus
				s.award(userID, "monthlyStreakBonus", &bonus)
				res.MonthlyBonus = bonus
			}
		default:
			u.CurrentStreak = 1
			res.Broken = true
		}
	}

	if u.CurrentStreak > u.LongestStreak {
		u.LongestStreak = u.CurrentStreak
	}
	t := now
	u.LastActiveAt = &t
	u.UpdatedAt = now

	res.CurrentStreak = u.CurrentStreak
	res.LongestStreak = u.LongestStreak

	unlocked := s.checkAchievements(userID, achievement.Context{LoginStreak: u.CurrentStreak})
	return res, unlocked
}

// JoinChallenge enrolls the user with zero progress. Joining again while
// already enrolled is a no-op.
func (s *GamificationService) JoinChallenge(userID, challengeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[challengeID]
	if !ok {
		return challenge.ErrNotFound
	}
	if !ch.def.ActiveAt(s.now()) {
		return challenge.ErrInactive
	}
	if _, joined := ch.participants[userID]; joined {
		return nil
	}

	ch.participants[userID] = &challenge.Participant{JoinedAt: s.now()}
	return nil
}

// UpdateChallengeProgress increments progress on every joined, uncompleted
// challenge tracking the metric. Amount defaults to 1. Challenges whose
// target is reached inside their window complete exactly once, award their
// reward and are returned.
func (s *GamificationService) UpdateChallengeProgress(userID, metricName string, amount float64) []challenge.Definition {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount == 0 {
		amount = 1
	}

	now := s.now()
	var completed []challenge.Definition
	for _, ch := range s.challenges {
		if ch.def.Metric != metricName {
			continue
		}
		p, joined := ch.participants[userID]
		if !joined || p.Completed {
			continue
		}

		p.Progress += amount
		if p.Progress < ch.def.Target || !ch.def.ActiveAt(now) {
			continue
		}

		p.Completed = true
		t := now
		p.CompletedAt = &t
		ch.completions++

		if ch.def.PointReward > 0 {
			reward := ch.def.PointReward
			s.award(userID, "challenge:"+ch.def.ID, &reward)
		}
		s.emit(event.Event{
			UserID: userID,
			Type:   event.TypeChallengeCompleted,
			Payload: map[string]any{
				"challenge_id": ch.def.ID,
				"point_reward": ch.def.PointReward,
			},
			OccurredAt: now,
		})
		completed = append(completed, ch.def)
	}
	return completed
}

// GetUserStats returns the read-only stats view. Unknown users get a fresh
// zero-point view without creating a record.
func (s *GamificationService) GetUserStats(userID string) *progress.UserStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &progress.UserStats{
		UserID:    userID,
		Level:     level.Calculate(s.thresholds, 0),
		NextLevel: level.ProgressToNext(s.thresholds, 0),
	}

	u, ok := s.users[userID]
	if !ok {
		return stats
	}

	stats.TotalPoints = u.TotalPoints
	stats.Level = u.Level
	stats.NextLevel = level.ProgressToNext(s.thresholds, u.TotalPoints)
	stats.CurrentStreak = u.CurrentStreak
	stats.LongestStreak = u.LongestStreak
	stats.AchievementsCount = len(u.Achievements)
	stats.LastActiveAt = u.LastActiveAt

	rank := 1
	for _, pts := range s.boards[leaderboard.PeriodAllTime] {
		if pts > u.TotalPoints {
			rank++
		}
	}
	stats.Rank = rank
	return stats
}

// GetLeaderboard returns the top entries of a period bucket, descending by
// points. Ties fall in map-iteration order; the ordering between equal
// totals is deliberately unspecified.
func (s *GamificationService) GetLeaderboard(period string, limit int) *leaderboard.Leaderboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}

	key := leaderboard.ResolvePeriod(period, s.now())
	bucket := s.boards[key]

	entries := make([]*leaderboard.Entry, 0, len(bucket))
	for userID, pts := range bucket {
		e := &leaderboard.Entry{
			UserID: userID,
			Points: pts,
			Level:  level.Calculate(s.thresholds, pts),
		}
		if u, ok := s.users[userID]; ok {
			e.Level = u.Level
			e.AchievementsCount = len(u.Achievements)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})

	total := len(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i, e := range entries {
		e.Rank = i + 1
		e.Badge = leaderboard.RankBadge(e.Rank)
	}

	return &leaderboard.Leaderboard{
		Period:     key,
		Entries:    entries,
		TotalUsers: total,
	}
}

// ListAchievements returns every definition annotated with the user's
// unlock state, unlocked first.
func (s *GamificationService) ListAchievements(userID string) []achievement.WithStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[userID]
	out := make([]achievement.WithStatus, 0, len(s.achievements))
	for _, def := range s.achievements {
		ws := achievement.WithStatus{Definition: def}
		if u != nil {
			if at, ok := u.Achievements[def.ID]; ok {
				ws.Unlocked = true
				t := at
				ws.UnlockedAt = &t
			}
		}
		out = append(out, ws)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Unlocked && !out[j].Unlocked
	})
	return out
}

// ListChallenges returns every challenge with the user's participation and
// the global completion count.
func (s *GamificationService) ListChallenges(userID string) []challenge.WithStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]challenge.WithStatus, 0, len(s.challenges))
	for _, ch := range s.challenges {
		ws := challenge.WithStatus{
			Definition:  ch.def,
			Active:      ch.def.ActiveAt(now),
			Completions: ch.completions,
		}
		if p, ok := ch.participants[userID]; ok {
			ws.Joined = true
			cp := *p
			ws.Participant = &cp
		}
		out = append(out, ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot returns a copy of the user's progress for persistence, or nil
// for unknown users.
func (s *GamificationService) Snapshot(userID string) *progress.UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	snap := *u
	snap.Achievements = make(map[string]time.Time, len(u.Achievements))
	for id, at := range u.Achievements {
		snap.Achievements[id] = at
	}
	return &snap
}

// Internal helpers below assume the caller holds s.mu.

func (s *GamificationService) getOrCreateUser(userID string) *progress.UserProgress {
	if u, ok := s.users[userID]; ok {
		return u
	}
	now := s.now()
	u := &progress.UserProgress{
		UserID:       userID,
		Level:        level.Calculate(s.thresholds, 0),
		Achievements: make(map[string]time.Time),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[userID] = u
	return u
}

func (s *GamificationService) tallyAction(userID, actionName string) {
	counts, ok := s.actionCounts[userID]
	if !ok {
		counts = make(map[string]int)
		s.actionCounts[userID] = counts
	}
	counts[actionName]++
}

func (s *GamificationService) award(userID, actionName string, explicitAmount *int) *progress.AwardResult {
	points := s.pointValues[actionName]
	if explicitAmount != nil {
		points = *explicitAmount
	}
	if points <= 0 {
		return nil
	}

	u := s.getOrCreateUser(userID)
	now := s.now()
	before := u.Level

	u.TotalPoints += points
	u.Level = level.Calculate(s.thresholds, u.TotalPoints)
	u.UpdatedAt = now
	s.updateBoards(u, now)

	s.emit(event.Event{
		UserID: userID,
		Type:   event.TypePointsAwarded,
		Payload: map[string]any{
			"action":       actionName,
			"points":       points,
			"total_points": u.TotalPoints,
		},
		OccurredAt: now,
	})
	if u.Level > before {
		s.emit(event.Event{
			UserID: userID,
			Type:   event.TypeLevelUp,
			Payload: map[string]any{
				"level":    u.Level,
				"previous": before,
			},
			OccurredAt: now,
		})
	}

	return &progress.AwardResult{
		PointsAwarded: points,
		TotalPoints:   u.TotalPoints,
		Level:         u.Level,
		LeveledUp:     u.Level > before,
		NextLevel:     level.ProgressToNext(s.thresholds, u.TotalPoints),
	}
}

func (s *GamificationService) checkAchievements(userID string, ctx achievement.Context) []achievement.Definition {
	u := s.getOrCreateUser(userID)

	if ctx.ActionName != "" && ctx.ActionCount == 0 {
		ctx.ActionCount = s.actionCounts[userID][ctx.ActionName]
	}

	var unlocked []achievement.Definition
	for _, def := range s.achievements {
		if u.HasAchievement(def.ID) || !def.Unlocks(ctx) {
			continue
		}

		now := s.now()
		u.Achievements[def.ID] = now
		u.UpdatedAt = now

		s.emit(event.Event{
			UserID: userID,
			Type:   event.TypeAchievementUnlocked,
			Payload: map[string]any{
				"achievement_id": def.ID,
				"point_reward":   def.PointReward,
			},
			OccurredAt: now,
		})
		if def.PointReward > 0 {
			reward := def.PointReward
			s.award(userID, "achievement:"+def.ID, &reward)
		}
		unlocked = append(unlocked, def)
	}
	return unlocked
}

func (s *GamificationService) updateBoards(u *progress.UserProgress, now time.Time) {
	for _, key := range []string{leaderboard.WeekKey(now), leaderboard.MonthKey(now), leaderboard.PeriodAllTime} {
		bucket, ok := s.boards[key]
		if !ok {
			bucket = make(map[string]int)
			s.boards[key] = bucket
		}
		bucket[u.UserID] = u.TotalPoints
	}
}

func (s *GamificationService) emit(e event.Event) {
	if s.sink != nil {
		s.sink.Emit(e)
	}
}

// daysBetween counts whole calendar-day boundaries (UTC) crossed between a
// and b.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
