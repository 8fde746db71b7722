package level

import "math"

// Threshold is one row of the level table. MinPoints must be strictly
// increasing with Level across the table.
type Threshold struct {
	Level     int      `json:"level"`
	MinPoints int      `json:"min_points"`
	Perks     []string `json:"perks,omitempty"`
}

// Progress describes how far a point total is from the next level.
type Progress struct {
	Percentage   int        `json:"percentage"`
	PointsNeeded int        `json:"points_needed"`
	NextLevel    *Threshold `json:"next_level,omitempty"`
}

// Calculate returns the highest level whose MinPoints the total satisfies.
// Thresholds must be sorted ascending by MinPoints; the first row is
// expected to be level 1 at 0 points, so any non-negative total qualifies.
func Calculate(thresholds []Threshold, points int) int {
	for i := len(thresholds) - 1; i >= 0; i-- {
		if points >= thresholds[i].MinPoints {
			return thresholds[i].Level
		}
	}
	return 1
}

// ProgressToNext reports percentage (0-100, rounded), points still needed
// and the next threshold. At the top of the table it reports 100% and 0.
func ProgressToNext(thresholds []Threshold, points int) Progress {
	current := Calculate(thresholds, points)

	var cur, next *Threshold
	for i := range thresholds {
		if thresholds[i].Level == current {
			cur = &thresholds[i]
			if i+1 < len(thresholds) {
				next = &thresholds[i+1]
			}
			break
		}
	}

	if next == nil {
		return Progress{Percentage: 100, PointsNeeded: 0}
	}

	span := next.MinPoints - cur.MinPoints
	into := points - cur.MinPoints
	pct := int(math.Round(float64(into) / float64(span) * 100))
	if pct > 100 {
		pct = 100
	}

	return Progress{
		Percentage:   pct,
		PointsNeeded: next.MinPoints - points,
		NextLevel:    next,
	}
}
