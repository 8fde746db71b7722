package services_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"bvesterAPI/internal/achievement"
	"bvesterAPI/internal/challenge"
	"bvesterAPI/internal/event"
	"bvesterAPI/internal/level"
	"bvesterAPI/internal/progress"
	"bvesterAPI/services"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) AdvanceDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.AddDate(0, 0, n)
}

var baseTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestEngine(clock *fakeClock) *services.GamificationService {
	engine := services.NewGamificationService(services.DefaultGamificationConfig(clock.Now()))
	engine.SetClock(clock.Now)
	return engine
}

func TestAwardPointsFirstAward(t *testing.T) {
	clock := newFakeClock(baseTime)
	engine := newTestEngine(clock)

	result := engine.AwardPoints("u1", "completeProfile", nil)
	if result == nil {
		t.Fatal("expected an award result for a known action")
	}
	if result.PointsAwarded != 50 {
		t.Errorf("expected 50 points for completeProfile, got %d", result.PointsAwarded)
	}
	if result.TotalPoints != 50 {
		t.Errorf("expected total 50, got %d", result.TotalPoints)
	}
	if result.Level != 1 {
		t.Errorf("expected level 1 at 50 points, got %d", result.Level)
	}
	if result.LeveledUp {
		t.Error("no level-up expected at 50 points")
	}
}

func TestAwardPointsLevelUp(t *testing.T) {
	clock := newFakeClock(baseTime)
	engine := newTestEngine(clock)

	engine.AwardPoints("u1", "completeProfile", nil)

	extra := 60
	result := engine.AwardPoints("u1", "", &extra)
	if result == nil {
		t.Fatal("expected an award result for an explicit amount")
	}
	if result.TotalPoints != 110 {
		t.Errorf("expected total 110, got %d", result.TotalPoints)
	}
	if result.Level != 2 {
		t.Errorf("expected level 2 at 110 points, got %d", result.Level)
	}
	if !result.LeveledUp {
		t.Error("expected leveledUp at the 100-point threshold")
	}
	if result.NextLevel.PointsNeeded != 190 {
		t.Errorf("expected 190 points to level 3, got %d", result.NextLevel.PointsNeeded)
	}
	if result.NextLevel.Percentage != 5 {
		t.Errorf("expected 5%% progress toward level 3, got %d", result.NextLevel.Percentage)
	}
}

func TestAwardPointsUnknownActionIsNoOp(t *testing.T) {
	engine := newTestEngine(newFakeClock(baseTime))

	if result := engine.AwardPoints("u1", "somethingNobodyDefined", nil); result != nil {
		t.Fatalf("expected nil for unknown action, got %+v", result)
	}
	if stats := engine.GetUserStats("u1"); stats.TotalPoints != 0 {
		t.Errorf("no points should be recorded, got %d", stats.TotalPoints)
	}
}

func TestAwardPointsNegativeExplicitIsNoOp(t *testing.T) {
	engine := newTestEngine(newFakeClock(baseTime))

	minus := -10
	if result := engine.AwardPoints("u1", "completeProfile", &minus); result != nil {
		t.Fatalf("expected nil for a non-positive explicit amount, got %+v", result)
	}
}

func TestAwardPointsEmitsEvents(t *testing.T) {
	engine := newTestEngine(newFakeClock(baseTime))

	var mu sync.Mutex
	var seen []event.Type
	engine.SetEventSink(event.SinkFunc(func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type)
	}))

	amount := 150
	engine.AwardPoints("u1", "", &amount)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("expected pointsAwarded and levelUp, got %v", seen)
	}
	if seen[0] != event.TypePointsAwarded || seen[1] != event.TypeLevelUp {
		t.Errorf("unexpected event order: %v", seen)
	}
}

func TestStreakConsecutiveDaysAndWeeklyBonus(t *testing.T) {
	clock := newFakeClock(baseTime)
	engine := newTestEngine(clock)

	var last *struct {
		weekly int
		streak int
	}
	var unlockedIDs []string

	for day := 1; day <= 7; day++ {
		res, unlocked := engine.UpdateStreak("u2")
		last = &struct {
			weekly int
			streak int
		}{res.WeeklyBonus, res.CurrentStreak}
		for _, def := range unlocked {
			unlockedIDs = append(unlockedIDs, def.ID)
		}
		clock.AdvanceDays(1)
	}

	if last.streak != 7 {
		t.Fatalf("expected streak 7 after seven consecutive days, got %d", last.streak)
	}
	if last.weekly != 50 {
		t.Errorf("expected the 50-point weekly bonus on day 7, got %d", last.weekly)
	}

	found := false
	for _, id := range unlockedIDs {
		if id == "week_warrior" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected week_warrior to unlock at streak 7, unlocked: %v", unlockedIDs)
	}

	// weekly bonus 50 + week_warrior reward 100
	stats := engine.GetUserStats("u2")
	if stats.TotalPoints != 150 {
		t.Errorf("expected 150 points after bonuses, got %d", stats.TotalPoints)
	}
}

func TestStreakBrokenByGap(t *testing.T) {
	clock := newFakeClock(baseTime)
	engine := newTestEngine(clock)

	engine.UpdateStreak("u1")
	clock.AdvanceDays(1)
	res, _ := engine.UpdateStreak("u1")
	if res.CurrentStreak != 2 {
		t.Fatalf("expected streak 2, got %d", res.CurrentStreak)
	}

	clock.AdvanceDays(3)
	res, _ = engine.UpdateStreak("u1")
	if !res.Broken {
		t.Error("expected the streak to be reported broken after a 3-day gap")
	}
	if res.CurrentStreak != 1 {
		t.Errorf("expected streak reset to 1, got %d", res.CurrentStreak)
	}
	if res.LongestStreak != 2 {
		t.Errorf("longest streak should survive the break, got %d", res.LongestStreak)
	}
}

func TestStreakSameDayIsNoOp(t *testing.T) {
	clock := newFakeClock(baseTime)
	engine := newTestEngine(clock)

	engine.UpdateStreak("u1")
	res, _ := engine.UpdateStreak("u1")
	if res.CurrentStreak != 1 {
		t.Errorf("same-day check-in must not advance the streak, got %d", res.CurrentStreak)
	}
	if res.Extended || res.Broken {
		t.Errorf("same-day check-in should be a re-affirmation, got %+v", res)
	}
}

func TestStreakDay210FiresBothBonuses(t *testing.T) {
	clock := newFakeClock(baseTime)
	engine := newTestEngine(clock)

	var final *struct{ weekly, monthly int }
	for day := 1; day <= 210; day++ {
		res, _ := engine.UpdateStreak("u1")
		final = &struct{ weekly, monthly int }{res.WeeklyBonus, res.MonthlyBonus}
		clock.AdvanceDays(1)
	}

	if final.weekly != 50 {
		t.Errorf("day 210 is a multiple of 7, expected weekly bonus, got %d", final.weekly)
	}
	if final.monthly != 250 {
		t.Errorf("day 210 is a multiple of 30, expected monthly bonus, got %d", final.monthly)
	}
}

func TestCheckAchievementsIdempotent(t *testing.T) {
	engine := newTestEngine(newFakeClock(baseTime))

	first := engine.CheckAchievements("u1", achievement.Context{LoginStreak: 7})
	if len(first) != 1 || first[0].ID != "week_warrior" {
		t.Fatalf("expected week_warrior to unlock, got %+v", first)
	}

	second := engine.CheckAchievements("u1", achievement.Context{LoginStreak: 7})
	if len(second) != 0 {
		t.Errorf("re-invocation with the same context must unlock nothing, got %+v", second)
	}
}

func TestCheckAchievementsMultipleAtOnce(t *testing.T) {
	engine := newTestEngine(newFakeClock(baseTime))

	unlocked := engine.CheckAchievements("u1", achievement.Context{
		ReadinessScore: 90,
		PortfolioSize:  6,
	})
	if len(unlocked) != 2 {
		t.Fatalf("expected two unlocks from one context, got %+v", unlocked)
	}
}

func TestCheckAchievementsUsesActionTally(t *testing.T) {
	engine := newTestEngine(newFakeClock(baseTime))

	for i := 0; i < 10; i++ {
		engine.AwardPoints("u1", "investmentMade", nil)
	}

	unlocked := engine.CheckAchievements("u1", achievement.Context{ActionName: "investmentMade"})
	found := false
	for _, def := range unlocked {
		if def.ID == "serial_investor" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected serial_investor after ten investmentMade awards, unlocked: %+v", unlocked)
	}
}

func TestChallengeFlow(t *testing.T) {
	clock := newFakeClock(baseTime)
	engine := newTestEngine(clock)

	if err := engine.JoinChallenge("u3", "weekly_investor"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	before := engine.GetUserStats("u3").TotalPoints

	var completed []challenge.Definition
	for i := 0; i < 3; i++ {
		completed = engine.UpdateChallengeProgress("u3", "investments", 1)
	}
	if len(completed) != 1 || completed[0].ID != "weekly_investor" {
		t.Fatalf("expected weekly_investor completed on the third update, got %+v", completed)
	}

	after := engine.GetUserStats("u3").TotalPoints
	if after-before != 200 {
		t.Errorf("expected the 200-point reward exactly once, diff %d", after-before)
	}

	// Fourth update is a no-op for the completed challenge.
	if again := engine.UpdateChallengeProgress("u3", "investments", 1); len(again) != 0 {
		t.Errorf("completed challenge must not complete twice, got %+v", again)
	}
	if engine.GetUserStats("u3").TotalPoints != after {
		t.Error("no further reward expected after completion")
	}
}

func TestChallengeJoinErrors(t *testing.T) {
	clock := newFakeClock(baseTime)
	engine := newTestEngine(clock)

	if err := engine.JoinChallenge("u1", "no_such_challenge"); !errors.Is(err, challenge.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Move past every seeded window.
	clock.AdvanceDays(400)
	if err := engine.JoinChallenge("u1", "weekly_investor"); !errors.Is(err, challenge.ErrInactive) {
		t.Errorf("expected ErrInactive after the window closed, got %v", err)
	}
}

func TestChallengeRejoinKeepsProgress(t *testing.T) {
	engine := newTestEngine(newFakeClock(baseTime))

	engine.JoinChallenge("u1", "weekly_investor")
	engine.UpdateChallengeProgress("u1", "investments", 2)

	if err := engine.JoinChallenge("u1", "weekly_investor"); err != nil {
		t.Fatalf("re-join should be a no-op, got %v", err)
	}

	for _, ch := range engine.ListChallenges("u1") {
		if ch.ID == "weekly_investor" {
			if !ch.Joined || ch.Participant == nil {
				t.Fatal("participation lost after re-join")
			}
			if ch.Participant.Progress != 2 {
				t.Errorf("re-join must not reset progress, got %v", ch.Participant.Progress)
			}
		}
	}
}

func TestLeaderboardOrderingAndBadges(t *testing.T) {
	engine := newTestEngine(newFakeClock(baseTime))

	for uid, pts := range map[string]int{"u1": 500, "u2": 300, "u3": 300} {
		amount := pts
		engine.AwardPoints(uid, "", &amount)
	}

	board := engine.GetLeaderboard("all-time", 3)
	if len(board.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(board.Entries))
	}
	if board.Entries[0].UserID != "u1" || board.Entries[0].Rank != 1 {
		t.Errorf("expected u1 at rank 1, got %+v", board.Entries[0])
	}
	if board.Entries[0].Badge != "🥇" {
		t.Errorf("expected gold badge at rank 1, got %q", board.Entries[0].Badge)
	}
	// u2/u3 tie: order unspecified, points must still be descending.
	if board.Entries[1].Points != 300 || board.Entries[2].Points != 300 {
		t.Errorf("expected the tied 300s below u1, got %+v", board.Entries)
	}
}

func TestLeaderboardLimit(t *testing.T) {
	engine := newTestEngine(newFakeClock(baseTime))

	for i, uid := range []string{"a", "b", "c", "d"} {
		amount := (i + 1) * 10
		engine.AwardPoints(uid, "", &amount)
	}

	board := engine.GetLeaderboard("weekly", 2)
	if len(board.Entries) != 2 {
		t.Fatalf("expected limit to cap entries at 2, got %d", len(board.Entries))
	}
	if board.TotalUsers != 4 {
		t.Errorf("expected 4 total users, got %d", board.TotalUsers)
	}
	if board.Entries[0].Points < board.Entries[1].Points {
		t.Error("entries must be sorted by descending points")
	}
}

func TestRestoreWarmsEngine(t *testing.T) {
	clock := newFakeClock(baseTime)
	engine := newTestEngine(clock)

	amount := 320
	engine.AwardPoints("u1", "", &amount)
	engine.CheckAchievements("u1", achievement.Context{LoginStreak: 7})
	snap := engine.Snapshot("u1")
	if snap == nil {
		t.Fatal("expected a snapshot for an existing user")
	}

	fresh := newTestEngine(clock)
	fresh.Restore([]*progress.UserProgress{snap})

	stats := fresh.GetUserStats("u1")
	if stats.TotalPoints != snap.TotalPoints {
		t.Errorf("expected %d points after restore, got %d", snap.TotalPoints, stats.TotalPoints)
	}
	if stats.AchievementsCount != 1 {
		t.Errorf("expected the unlocked achievement to survive restore, got %d", stats.AchievementsCount)
	}

	board := fresh.GetLeaderboard("all-time", 10)
	if len(board.Entries) != 1 || board.Entries[0].UserID != "u1" {
		t.Errorf("expected the all-time board rebuilt from snapshots, got %+v", board.Entries)
	}
}

func TestGetUserStatsUnknownUser(t *testing.T) {
	engine := newTestEngine(newFakeClock(baseTime))

	stats := engine.GetUserStats("nobody")
	if stats.TotalPoints != 0 || stats.Level != 1 {
		t.Errorf("unknown user should read as a fresh level-1 record, got %+v", stats)
	}
	if stats.NextLevel.PointsNeeded != 100 {
		t.Errorf("expected 100 points needed toward level 2, got %d", stats.NextLevel.PointsNeeded)
	}
}

func TestLevelProgressMaxLevel(t *testing.T) {
	engine := newTestEngine(newFakeClock(baseTime))

	amount := 9000
	result := engine.AwardPoints("u1", "", &amount)
	if result.Level != 10 {
		t.Fatalf("expected max level 10, got %d", result.Level)
	}
	if result.NextLevel.Percentage != 100 || result.NextLevel.PointsNeeded != 0 {
		t.Errorf("max level must report 100%%/0, got %+v", result.NextLevel)
	}
	if result.NextLevel.NextLevel != nil {
		t.Error("no next level definition expected at the top of the table")
	}
}

func TestCustomConfigAllCombinator(t *testing.T) {
	cfg := services.GamificationConfig{
		PointValues: map[string]int{},
		LevelThresholds: []level.Threshold{
			{Level: 1, MinPoints: 0},
		},
		Achievements: []achievement.Definition{
			{
				ID: "both_or_nothing", Combinator: achievement.CombinatorAll,
				Criteria: []achievement.Criterion{
					{Type: achievement.CriteriaReadinessScore, Value: 80},
					{Type: achievement.CriteriaPortfolioSize, Value: 3},
				},
			},
		},
	}
	engine := services.NewGamificationService(cfg)
	engine.SetClock(newFakeClock(baseTime).Now)

	if got := engine.CheckAchievements("u1", achievement.Context{ReadinessScore: 95}); len(got) != 0 {
		t.Errorf("ALL combinator must not fire on one criterion, got %+v", got)
	}
	if got := engine.CheckAchievements("u1", achievement.Context{ReadinessScore: 95, PortfolioSize: 4}); len(got) != 1 {
		t.Errorf("ALL combinator should fire with both criteria met, got %+v", got)
	}
}
