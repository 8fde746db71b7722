package achievement

import "time"

type CriteriaType string

const (
	CriteriaActionCount    CriteriaType = "action_count"
	CriteriaReadinessScore CriteriaType = "readiness_score"
	CriteriaTotalFunding   CriteriaType = "total_funding"
	CriteriaPortfolioSize  CriteriaType = "portfolio_size"
	CriteriaReferralCount  CriteriaType = "referral_count"
	CriteriaLoginStreak    CriteriaType = "login_streak"
)

// Combinator controls how multiple criteria on one achievement combine.
// Every definition must declare one; there is no implicit default.
type Combinator string

const (
	CombinatorAny Combinator = "any"
	CombinatorAll Combinator = "all"
)

// Criterion is one unlock condition. Type selects which fields apply:
// action-count criteria use Action plus Value as a minimum occurrence count
// (Value 0 means a single occurrence suffices), numeric criteria use Value
// as an inclusive minimum.
type Criterion struct {
	Type   CriteriaType `json:"type"`
	Action string       `json:"action,omitempty"`
	Value  float64      `json:"value"`
}

type Definition struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	PointReward int         `json:"point_reward"`
	Combinator  Combinator  `json:"combinator"`
	Criteria    []Criterion `json:"criteria"`
}

// Context carries the observed values a single engine call evaluates
// criteria against. Zero-valued fields are treated as absent and never
// match.
type Context struct {
	ActionName     string
	ActionCount    int
	ReadinessScore float64
	TotalFunding   float64
	PortfolioSize  int
	ReferralCount  int
	LoginStreak    int
}

func (c Criterion) Matches(ctx Context) bool {
	switch c.Type {
	case CriteriaActionCount:
		if ctx.ActionName == "" || ctx.ActionName != c.Action {
			return false
		}
		if c.Value <= 0 {
			return true
		}
		return float64(ctx.ActionCount) >= c.Value
	case CriteriaReadinessScore:
		return ctx.ReadinessScore > 0 && ctx.ReadinessScore >= c.Value
	case CriteriaTotalFunding:
		return ctx.TotalFunding > 0 && ctx.TotalFunding >= c.Value
	case CriteriaPortfolioSize:
		return ctx.PortfolioSize > 0 && float64(ctx.PortfolioSize) >= c.Value
	case CriteriaReferralCount:
		return ctx.ReferralCount > 0 && float64(ctx.ReferralCount) >= c.Value
	case CriteriaLoginStreak:
		return ctx.LoginStreak > 0 && float64(ctx.LoginStreak) >= c.Value
	default:
		return false
	}
}

// Unlocks reports whether the definition's criteria, combined per its
// combinator, are satisfied by the context.
func (d Definition) Unlocks(ctx Context) bool {
	if len(d.Criteria) == 0 {
		return false
	}

	switch d.Combinator {
	case CombinatorAll:
		for _, c := range d.Criteria {
			if !c.Matches(ctx) {
				return false
			}
		}
		return true
	default: // any
		for _, c := range d.Criteria {
			if c.Matches(ctx) {
				return true
			}
		}
		return false
	}
}

type WithStatus struct {
	Definition
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}
