package scoring

import (
	"fmt"
	"sort"

	"github.com/architect/learning-profiles/internal/common/errors"
	"github.com/architect/learning-profiles/internal/assessment/models"
)

// ScoredSubmission is the immutable result of scoring one assessment.
type ScoredSubmission struct {
	// Scores holds the normalized per-category mean. A category with no
	// answered questions is absent, never zero.
	Scores map[string]float64
	// Label is a pure function of Scores.
	Label string
	// CategoriesCovered lists the categories with at least one answered question.
	CategoriesCovered []string
	// ExcludedQuestions lists question ids dropped because they are not
	// age-appropriate for the subject's bucket. Distinct from unanswered.
	ExcludedQuestions []string
}

// Score maps raw answers onto per-category scores and a label for the given
// quiz variant and age bucket. Answers are validated against the scoring
// table here, at the boundary; unknown questions, kind mismatches and
// out-of-range ratings are all validation errors.
func Score(answers map[string]models.AnswerValue, variantName, ageBucket string, table *Table) (*ScoredSubmission, error) {
	variant := table.Variant(variantName)
	if variant == nil {
		return nil, errors.Validation("unknown quiz variant", fmt.Sprintf("variant=%s version=%s", variantName, table.Version))
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	var excluded []string

	for id, answer := range answers {
		question := variant.Question(id)
		if question == nil {
			return nil, errors.Validation("unknown question", fmt.Sprintf("question=%s variant=%s", id, variantName))
		}

		// Age-inappropriate questions are dropped explicitly, not scored.
		if !question.AppliesTo(ageBucket) {
			excluded = append(excluded, id)
			continue
		}

		value, err := answerValue(question, answer, table.Scale)
		if err != nil {
			return nil, err
		}

		sums[question.Category] += value
		counts[question.Category]++
	}

	scores := make(map[string]float64, len(sums))
	covered := make([]string, 0, len(sums))
	for category, sum := range sums {
		scores[category] = sum / float64(counts[category])
		covered = append(covered, category)
	}
	sort.Slice(covered, func(i, j int) bool {
		return table.CategoryPriority(covered[i]) < table.CategoryPriority(covered[j])
	})
	sort.Strings(excluded)

	return &ScoredSubmission{
		Scores:            scores,
		Label:             table.Label(scores),
		CategoriesCovered: covered,
		ExcludedQuestions: excluded,
	}, nil
}

// answerValue converts one answer to its scale value, enforcing the question's
// answer kind and the scale range.
func answerValue(question *Question, answer models.AnswerValue, scale Scale) (float64, error) {
	if answer.Kind != question.Kind {
		return 0, errors.Validation("answer kind mismatch",
			fmt.Sprintf("question=%s expected=%s got=%s", question.ID, question.Kind, answer.Kind))
	}

	switch question.Kind {
	case models.AnswerLikert:
		value := float64(answer.Likert)
		if value < scale.Min || value > scale.Max {
			return 0, errors.Validation("rating out of range",
				fmt.Sprintf("question=%s value=%d range=%g..%g", question.ID, answer.Likert, scale.Min, scale.Max))
		}
		return value, nil

	case models.AnswerChoice:
		value, ok := question.Options[answer.Choice]
		if !ok {
			return 0, errors.Validation("unknown option",
				fmt.Sprintf("question=%s option=%s", question.ID, answer.Choice))
		}
		return value, nil

	case models.AnswerMulti:
		if len(answer.Choices) == 0 {
			return 0, errors.Validation("empty selection", fmt.Sprintf("question=%s", question.ID))
		}
		sum := 0.0
		for _, choice := range answer.Choices {
			value, ok := question.Options[choice]
			if !ok {
				return 0, errors.Validation("unknown option",
					fmt.Sprintf("question=%s option=%s", question.ID, choice))
			}
			sum += value
		}
		return sum / float64(len(answer.Choices)), nil
	}

	return 0, errors.Validation("unsupported answer kind", string(question.Kind))
}
