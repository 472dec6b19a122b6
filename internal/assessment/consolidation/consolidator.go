package consolidation

import (
	"math"
	"time"

	"github.com/architect/learning-profiles/internal/assessment/models"
	"github.com/architect/learning-profiles/internal/assessment/scoring"
)

// Config tunes conflict detection and confidence growth. Thresholds are
// fractions of the scale span so the same config works for every scoring
// version.
type Config struct {
	ConflictThreshold    float64
	MediumDifferential   float64
	HighDifferential     float64
	ConflictDamping      float64
	EstablishedThreshold int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ConflictThreshold:    0.375,
		MediumDifferential:   0.5,
		HighDifferential:     0.625,
		ConflictDamping:      0.5,
		EstablishedThreshold: 80,
	}
}

// SubmissionMeta carries the non-score attributes of a submission into the merge.
type SubmissionMeta struct {
	QuizVariant    string
	RespondentRole string
	ContributedAt  time.Time
}

// Result reports what one merge did to the profile.
type Result struct {
	Retake              bool
	ConflictDetected    bool
	ContextDifferential string
	// EffectiveBoost is the confidence increment actually applied, after any
	// conflict dampening. Never negative.
	EffectiveBoost int
}

// Apply merges one scored submission into the profile in memory. It updates
// the weighted per-category means, the per-role accumulators used for
// conflict detection, the data-source history, the counters, and the derived
// confidence/completeness/label fields. Persistence is the caller's concern.
func Apply(profile *models.Profile, scored *scoring.ScoredSubmission, contrib *scoring.Contribution, meta SubmissionMeta, table *scoring.Table, cfg Config) *Result {
	if meta.ContributedAt.IsZero() {
		meta.ContributedAt = time.Now().UTC()
	}

	// Weighted running mean per category. Categories this submission did not
	// cover are untouched.
	scores := profile.ScoreMap()
	weights := profile.WeightMap()
	for category, value := range scored.Scores {
		prior := weights[category]
		total := prior + contrib.Weight
		scores[category] = (scores[category]*prior + value*contrib.Weight) / total
		weights[category] = total
	}
	profile.SetScoreMap(scores)
	profile.SetWeightMap(weights)

	// A retake is the same respondent role submitting again. The role's
	// conflict accumulator restarts so comparisons always use the role's most
	// recent answers; the blended means above keep every submission.
	retake := false
	for i := range profile.DataSources {
		if profile.DataSources[i].RespondentRole == meta.RespondentRole && profile.DataSources[i].IsCurrent {
			profile.DataSources[i].IsCurrent = false
			retake = true
		}
	}

	roles := profile.RoleScoreMap()
	if retake || roles[meta.RespondentRole] == nil {
		roles[meta.RespondentRole] = make(map[string]models.RoleAccumulator)
	}
	accums := roles[meta.RespondentRole]
	for category, value := range scored.Scores {
		a := accums[category]
		a.Sum += value * contrib.Weight
		a.Weight += contrib.Weight
		accums[category] = a
	}
	profile.SetRoleScoreMap(roles)

	// Counters
	profile.TotalAssessments++
	switch meta.RespondentRole {
	case models.RoleTeacher:
		profile.TeacherAssessments++
	default:
		profile.ParentAssessments++
	}

	// Cross-source conflict: compare current per-role means. A conflicting
	// submission raises confidence more slowly; earned confidence never drops.
	assessment := AssessConflict(roles, table.Scale, cfg)
	profile.ConflictFlag = assessment.Detected
	profile.ContextDifferential = assessment.Differential

	boost := contrib.ConfidenceBoost
	if assessment.Detected {
		boost = int(math.Round(float64(boost) * cfg.ConflictDamping))
	}
	if boost < 0 {
		boost = 0
	}

	profile.ConfidencePercentage = clampPercent(profile.ConfidencePercentage + boost)

	// Completeness covers the union of categories ever answered.
	covered := mergeCovered(profile.CoveredList(), contrib.CategoriesCovered)
	profile.SetCoveredList(covered)
	if len(table.Categories) > 0 {
		profile.CompletenessPercentage = clampPercent(len(covered) * 100 / len(table.Categories))
	}

	// Derived presentation fields come from the blended scores, never from a
	// single submission.
	profile.Label = table.Label(scores)
	strengths, growth := rankStrengths(scores, table)
	profile.SetStrengthList(strengths)
	profile.SetGrowthList(growth)

	profile.DataSources = append(profile.DataSources, models.DataSource{
		QuizVariant:            meta.QuizVariant,
		RespondentRole:         meta.RespondentRole,
		ConfidenceContribution: boost,
		IsCurrent:              true,
		ContributedAt:          meta.ContributedAt,
	})

	return &Result{
		Retake:              retake,
		ConflictDetected:    assessment.Detected,
		ContextDifferential: assessment.Differential,
		EffectiveBoost:      boost,
	}
}

func mergeCovered(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, c := range existing {
		if !seen[c] {
			seen[c] = true
			merged = append(merged, c)
		}
	}
	for _, c := range incoming {
		if !seen[c] {
			seen[c] = true
			merged = append(merged, c)
		}
	}
	return merged
}

// rankStrengths returns the top and bottom categories of the blended scores.
// With few scored categories the growth list shrinks so the two never overlap.
func rankStrengths(scores map[string]float64, table *scoring.Table) ([]string, []string) {
	ranked := scoring.RankCategories(scores, table)
	if len(ranked) == 0 {
		return nil, nil
	}

	top := 2
	if top > len(ranked) {
		top = len(ranked)
	}
	strengths := append([]string(nil), ranked[:top]...)

	bottom := 2
	if bottom > len(ranked)-top {
		bottom = len(ranked) - top
	}
	if bottom <= 0 {
		return strengths, nil
	}
	growth := append([]string(nil), ranked[len(ranked)-bottom:]...)
	return strengths, growth
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
