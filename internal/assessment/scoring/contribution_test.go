package scoring

import (
	"fmt"
	"testing"

	"github.com/architect/learning-profiles/internal/common/errors"
	"github.com/architect/learning-profiles/internal/assessment/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func homeAnswers(n int) map[string]models.AnswerValue {
	answers := make(map[string]models.AnswerValue, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("q%d", i)
		switch id {
		case "q4":
			answers[id] = choice("sometimes")
		case "q19":
			answers[id] = multi("dressing")
		default:
			answers[id] = likert(2)
		}
	}
	return answers
}

func TestContributeFullSubmission(t *testing.T) {
	table := mustTable(t, "scale-v2")

	contrib, err := Contribute(homeAnswers(19), "home", BucketFourToFive, table)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, contrib.Weight, 0.001)
	assert.Equal(t, 30, contrib.ConfidenceBoost)
	assert.Equal(t,
		[]string{"language", "cognitive", "social", "emotional", "motor", "independence"},
		contrib.CategoriesCovered)
}

func TestContributePartialSubmissionScalesBoost(t *testing.T) {
	table := mustTable(t, "scale-v2")

	// 15 of 19 answered: boost = round(30 * 15/19) = 24
	contrib, err := Contribute(homeAnswers(15), "home", BucketFourToFive, table)
	require.NoError(t, err)

	assert.InDelta(t, 15.0/19.0, contrib.Weight, 0.001)
	assert.Equal(t, 24, contrib.ConfidenceBoost)
}

func TestContributeWeightFloor(t *testing.T) {
	table := mustTable(t, "scale-v2")

	// 1 of 19 is below the floor; influence never drops to zero
	contrib, err := Contribute(homeAnswers(1), "home", BucketFourToFive, table)
	require.NoError(t, err)

	assert.InDelta(t, MinWeight, contrib.Weight, 0.001)
	assert.Equal(t, 2, contrib.ConfidenceBoost) // round(30/19), unfloored
}

func TestContributeAgeRestrictedExpectedCount(t *testing.T) {
	table := mustTable(t, "scale-v2")
	variant := table.Variant("classroom")
	require.NotNil(t, variant)

	// c6 and c12 do not apply to the 4-5 bucket
	assert.Equal(t, 14, variant.ExpectedCount(BucketFourToFive))
	assert.Equal(t, 15, variant.ExpectedCount(BucketFiveToSix))
	assert.Equal(t, 16, variant.ExpectedCount(BucketEightToTen))

	// Answering every age-appropriate question is a full submission even
	// though the variant defines more questions overall.
	answers := make(map[string]models.AnswerValue)
	for i := range variant.Questions {
		q := variant.Questions[i]
		if !q.AppliesTo(BucketFourToFive) {
			continue
		}
		switch q.Kind {
		case models.AnswerChoice:
			answers[q.ID] = choice("engaged")
		default:
			answers[q.ID] = likert(2)
		}
	}

	contrib, err := Contribute(answers, "classroom", BucketFourToFive, table)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, contrib.Weight, 0.001)
	assert.Equal(t, 35, contrib.ConfidenceBoost)
}

func TestContributeIgnoresInappropriateAnswers(t *testing.T) {
	table := mustTable(t, "scale-v2")

	// Answers to excluded questions count for neither coverage nor weight
	answers := map[string]models.AnswerValue{
		"c6":  likert(2),
		"c12": likert(2),
	}
	contrib, err := Contribute(answers, "classroom", BucketFourToFive, table)
	require.NoError(t, err)

	assert.InDelta(t, MinWeight, contrib.Weight, 0.001)
	assert.Equal(t, 0, contrib.ConfidenceBoost)
	assert.Empty(t, contrib.CategoriesCovered)
}

func TestContributeUnknownVariant(t *testing.T) {
	table := mustTable(t, "scale-v2")

	_, err := Contribute(homeAnswers(5), "playground", BucketFourToFive, table)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}
