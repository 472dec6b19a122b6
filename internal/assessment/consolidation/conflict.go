package consolidation

import (
	"math"
	"sort"

	"github.com/architect/learning-profiles/internal/assessment/models"
	"github.com/architect/learning-profiles/internal/assessment/scoring"
)

// ConflictAssessment is the outcome of comparing per-role score means.
type ConflictAssessment struct {
	Detected bool
	// Differential is "", or low/medium/high when a conflict is detected.
	Differential string
	// MeanAbsDiff is the largest pairwise mean absolute difference found,
	// normalized to the scale span.
	MeanAbsDiff float64
}

// AssessConflict compares the current weighted means of every pair of
// respondent roles over their shared categories. The rule is symmetric across
// role pairs, so a third role would participate the same way parent and
// teacher do.
func AssessConflict(roles map[string]map[string]models.RoleAccumulator, scale scoring.Scale, cfg Config) ConflictAssessment {
	span := scale.Span()
	if span <= 0 || len(roles) < 2 {
		return ConflictAssessment{}
	}

	names := make([]string, 0, len(roles))
	for role := range roles {
		names = append(names, role)
	}
	sort.Strings(names)

	worst := 0.0
	compared := false
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			mad, shared := pairDifference(roles[names[i]], roles[names[j]], span)
			if shared == 0 {
				continue
			}
			compared = true
			if mad > worst {
				worst = mad
			}
		}
	}

	if !compared || worst < cfg.ConflictThreshold {
		return ConflictAssessment{MeanAbsDiff: worst}
	}

	differential := models.DifferentialLow
	switch {
	case worst >= cfg.HighDifferential:
		differential = models.DifferentialHigh
	case worst >= cfg.MediumDifferential:
		differential = models.DifferentialMedium
	}

	return ConflictAssessment{
		Detected:     true,
		Differential: differential,
		MeanAbsDiff:  worst,
	}
}

// pairDifference returns the mean absolute difference of two roles' category
// means over their shared categories, normalized by the scale span.
func pairDifference(a, b map[string]models.RoleAccumulator, span float64) (float64, int) {
	sum := 0.0
	shared := 0
	for category, accA := range a {
		accB, ok := b[category]
		if !ok || accA.Weight == 0 || accB.Weight == 0 {
			continue
		}
		sum += math.Abs(accA.Mean()-accB.Mean()) / span
		shared++
	}
	if shared == 0 {
		return 0, 0
	}
	return sum / float64(shared), shared
}
