package services

import (
	"time"

	"bvesterAPI/internal/achievement"
	"bvesterAPI/internal/challenge"
	"bvesterAPI/internal/level"
)

// DefaultGamificationConfig returns the seed definitions the platform
// ships with. Challenge windows are anchored to now because the seeds are
// re-issued every cycle.
func DefaultGamificationConfig(now time.Time) GamificationConfig {
	weekStart := now.Truncate(24 * time.Hour)

	return GamificationConfig{
		PointValues: map[string]int{
			"completeProfile":       50,
			"dailyLogin":            5,
			"readinessAssessment":   25,
			"businessProfileUpdate": 15,
			"documentUpload":        10,
			"investmentMade":        30,
			"referFriend":           40,
			"firstInvestment":       100,
		},
		WeeklyStreakBonus:  50,
		MonthlyStreakBonus: 250,
		LevelThresholds: []level.Threshold{
			{Level: 1, MinPoints: 0, Perks: []string{"basic dashboard"}},
			{Level: 2, MinPoints: 100, Perks: []string{"weekly market digest"}},
			{Level: 3, MinPoints: 300, Perks: []string{"readiness report download"}},
			{Level: 4, MinPoints: 600, Perks: []string{"priority listing review"}},
			{Level: 5, MinPoints: 1000, Perks: []string{"investor intro credits"}},
			{Level: 6, MinPoints: 1500, Perks: []string{"featured business badge"}},
			{Level: 7, MinPoints: 2200, Perks: []string{"quarterly advisory call"}},
			{Level: 8, MinPoints: 3000, Perks: []string{"reduced platform fees"}},
			{Level: 9, MinPoints: 4000, Perks: []string{"early access funding rounds"}},
			{Level: 10, MinPoints: 5000, Perks: []string{"Bvester ambassador status"}},
		},
		Achievements: []achievement.Definition{
			{
				ID: "first_steps", Name: "First Steps", Icon: "👣",
				Description: "Complete your business profile",
				PointReward: 25, Combinator: achievement.CombinatorAny,
				Criteria: []achievement.Criterion{
					{Type: achievement.CriteriaActionCount, Action: "completeProfile"},
				},
			},
			{
				ID: "week_warrior", Name: "Week Warrior", Icon: "🔥",
				Description: "Stay active seven days in a row",
				PointReward: 100, Combinator: achievement.CombinatorAny,
				Criteria: []achievement.Criterion{
					{Type: achievement.CriteriaLoginStreak, Value: 7},
				},
			},
			{
				ID: "month_master", Name: "Month Master", Icon: "🌙",
				Description: "Stay active thirty days in a row",
				PointReward: 500, Combinator: achievement.CombinatorAny,
				Criteria: []achievement.Criterion{
					{Type: achievement.CriteriaLoginStreak, Value: 30},
				},
			},
			{
				ID: "investment_ready", Name: "Investment Ready", Icon: "📈",
				Description: "Reach a readiness score of 80",
				PointReward: 150, Combinator: achievement.CombinatorAny,
				Criteria: []achievement.Criterion{
					{Type: achievement.CriteriaReadinessScore, Value: 80},
				},
			},
			{
				ID: "first_funding", Name: "First Funding", Icon: "💰",
				Description: "Receive your first investment",
				PointReward: 200, Combinator: achievement.CombinatorAny,
				Criteria: []achievement.Criterion{
					{Type: achievement.CriteriaTotalFunding, Value: 1},
				},
			},
			{
				ID: "portfolio_builder", Name: "Portfolio Builder", Icon: "🏗️",
				Description: "Hold five investments at once",
				PointReward: 150, Combinator: achievement.CombinatorAny,
				Criteria: []achievement.Criterion{
					{Type: achievement.CriteriaPortfolioSize, Value: 5},
				},
			},
			{
				ID: "serial_investor", Name: "Serial Investor", Icon: "🔁",
				Description: "Make ten investments",
				PointReward: 250, Combinator: achievement.CombinatorAny,
				Criteria: []achievement.Criterion{
					{Type: achievement.CriteriaActionCount, Action: "investmentMade", Value: 10},
				},
			},
			{
				ID: "super_connector", Name: "Super Connector", Icon: "🤝",
				Description: "Refer ten members to the platform",
				PointReward: 300, Combinator: achievement.CombinatorAny,
				Criteria: []achievement.Criterion{
					{Type: achievement.CriteriaReferralCount, Value: 10},
				},
			},
		},
		Challenges: []challenge.Definition{
			{
				ID: "weekly_investor", Name: "Weekly Investor",
				Description: "Make three investments this week",
				Metric:      "investments", Target: 3, PointReward: 200,
				StartAt: weekStart, EndAt: weekStart.AddDate(0, 0, 7),
			},
			{
				ID: "referral_sprint", Name: "Referral Sprint",
				Description: "Bring in five new members this month",
				Metric:      "referrals", Target: 5, PointReward: 300,
				StartAt: weekStart, EndAt: weekStart.AddDate(0, 1, 0),
			},
			{
				ID: "document_drive", Name: "Document Drive",
				Description: "Upload ten business documents this month",
				Metric:      "documents", Target: 10, PointReward: 150,
				StartAt: weekStart, EndAt: weekStart.AddDate(0, 1, 0),
			},
		},
	}
}
