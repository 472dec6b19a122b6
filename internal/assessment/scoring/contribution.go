package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/architect/learning-profiles/internal/common/errors"
	"github.com/architect/learning-profiles/internal/assessment/models"
)

// MinWeight is the floor for a submission's weight: even a sparse submission
// never contributes zero influence.
const MinWeight = 0.25

// Contribution describes how much one submission should influence the
// consolidated profile.
type Contribution struct {
	Weight            float64
	ConfidenceBoost   int
	CategoriesCovered []string
}

// Contribute computes the weight, confidence boost and category coverage of
// one submission. Weight is the answered/expected ratio for the variant's
// age-appropriate question set, floored at MinWeight; the confidence boost is
// the variant's base boost scaled by the same ratio.
func Contribute(answers map[string]models.AnswerValue, variantName, ageBucket string, table *Table) (*Contribution, error) {
	variant := table.Variant(variantName)
	if variant == nil {
		return nil, errors.Validation("unknown quiz variant", fmt.Sprintf("variant=%s version=%s", variantName, table.Version))
	}

	expected := variant.ExpectedCount(ageBucket)
	if expected == 0 {
		return nil, errors.Validation("no questions for age bucket",
			fmt.Sprintf("variant=%s bucket=%s", variantName, ageBucket))
	}

	answered := 0
	coveredSet := make(map[string]bool)
	for id := range answers {
		question := variant.Question(id)
		if question == nil || !question.AppliesTo(ageBucket) {
			continue
		}
		answered++
		coveredSet[question.Category] = true
	}

	ratio := float64(answered) / float64(expected)
	if ratio > 1 {
		ratio = 1
	}

	weight := ratio
	if weight < MinWeight {
		weight = MinWeight
	}

	covered := make([]string, 0, len(coveredSet))
	for category := range coveredSet {
		covered = append(covered, category)
	}
	sort.Slice(covered, func(i, j int) bool {
		return table.CategoryPriority(covered[i]) < table.CategoryPriority(covered[j])
	})

	return &Contribution{
		Weight:            weight,
		ConfidenceBoost:   int(math.Round(float64(variant.BaseBoost) * ratio)),
		CategoriesCovered: covered,
	}, nil
}
