package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/architect/learning-profiles/internal/common/database"
	"github.com/architect/learning-profiles/internal/common/errors"
	"github.com/architect/learning-profiles/internal/assessment/consolidation"
	"github.com/architect/learning-profiles/internal/assessment/models"
	"github.com/architect/learning-profiles/internal/assessment/repository"
	"github.com/architect/learning-profiles/internal/assessment/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServiceTest(t *testing.T) {
	t.Helper()
	// A named shared in-memory database keeps every pooled connection on the
	// same schema while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	require.NoError(t, database.InitWithType("sqlite", dsn))
	require.NoError(t, repository.AutoMigrate())

	Engine = consolidation.DefaultConfig()
	Remote = nil
}

func likert(n int) models.AnswerValue {
	return models.AnswerValue{Kind: models.AnswerLikert, Likert: n}
}

// homeAnswers answers the first n home questions with the given rating.
func homeAnswers(n, rating int) map[string]models.AnswerValue {
	answers := make(map[string]models.AnswerValue, n)
	for i := 1; i <= n && i <= 19; i++ {
		id := fmt.Sprintf("q%d", i)
		switch id {
		case "q4":
			opt := map[int]string{0: "rarely", 2: "sometimes", 3: "often"}[rating]
			if opt == "" {
				opt = "sometimes"
			}
			answers[id] = models.AnswerValue{Kind: models.AnswerChoice, Choice: opt}
		case "q19":
			answers[id] = models.AnswerValue{Kind: models.AnswerMulti, Choices: []string{"dressing"}}
		default:
			answers[id] = likert(rating)
		}
	}
	return answers
}

// classroomAnswers answers every classroom question with the given rating;
// age-inappropriate ones are dropped by the scorer.
func classroomAnswers(rating int) map[string]models.AnswerValue {
	answers := make(map[string]models.AnswerValue, 16)
	for i := 1; i <= 16; i++ {
		id := fmt.Sprintf("c%d", i)
		if id == "c9" {
			opt := map[int]string{0: "withdrawn", 2: "observant", 3: "engaged"}[rating]
			if opt == "" {
				opt = "observant"
			}
			answers[id] = models.AnswerValue{Kind: models.AnswerChoice, Choice: opt}
			continue
		}
		answers[id] = likert(rating)
	}
	return answers
}

func submitReq(role, variant string, answers map[string]models.AnswerValue) models.SubmitAssessmentRequest {
	return models.SubmitAssessmentRequest{
		SubjectName:    "Maya",
		AgeMonths:      54,
		QuizVariant:    variant,
		RespondentRole: role,
		Answers:        answers,
	}
}

func TestSubmitFirstAssessmentCreatesProfile(t *testing.T) {
	setupServiceTest(t)
	ctx := context.Background()

	// 15 of 19 home questions answered
	resp, err := SubmitAssessment(ctx, submitReq(models.RoleParent, "home", homeAnswers(15, 2)))
	require.NoError(t, err)

	assert.True(t, resp.IsNewProfile)
	assert.False(t, resp.Degraded)
	assert.Equal(t, scoring.DefaultVersion, resp.ScoringVersion)

	profile := resp.Profile
	require.NotNil(t, profile)
	assert.NotEmpty(t, profile.ProfileID)
	assert.Equal(t, "Maya", profile.SubjectName)
	assert.Equal(t, "4-5", profile.AgeBucket)
	assert.Equal(t, models.StatePartial, profile.State)
	assert.Equal(t, 24, profile.ConfidencePercentage) // round(30 * 15/19)
	// The first 15 questions cover 5 of the 6 categories
	assert.Equal(t, 83, profile.CompletenessPercentage)
	assert.Equal(t, 1, profile.TotalAssessments)
	assert.Equal(t, 1, profile.ParentAssessments)
	assert.False(t, profile.ConflictDetected)
	assert.Equal(t, ViewParent, profile.ViewContext)
}

func TestSubmitSecondSourceAccumulatesConfidence(t *testing.T) {
	setupServiceTest(t)
	ctx := context.Background()

	first, err := SubmitAssessment(ctx, submitReq(models.RoleParent, "home", homeAnswers(15, 2)))
	require.NoError(t, err)

	second, err := SubmitAssessment(ctx, submitReq(models.RoleTeacher, "classroom", classroomAnswers(2)))
	require.NoError(t, err)

	assert.False(t, second.IsNewProfile)
	assert.Equal(t, first.Profile.ProfileID, second.Profile.ProfileID)
	// 24 from the partial home submission + the full classroom boost of 35
	assert.Equal(t, 59, second.Profile.ConfidencePercentage)
	assert.Equal(t, models.StatePartial, second.Profile.State)
	assert.Equal(t, 2, second.Profile.TotalAssessments)
	assert.Equal(t, 1, second.Profile.TeacherAssessments)
	// Agreeing sources do not conflict
	assert.False(t, second.Profile.ConflictDetected)
	assert.Equal(t, ViewTeacher, second.Profile.ViewContext)
}

func TestSubmitRetakeEstablishesProfile(t *testing.T) {
	setupServiceTest(t)
	ctx := context.Background()

	_, err := SubmitAssessment(ctx, submitReq(models.RoleParent, "home", homeAnswers(15, 2)))
	require.NoError(t, err)
	_, err = SubmitAssessment(ctx, submitReq(models.RoleTeacher, "classroom", classroomAnswers(2)))
	require.NoError(t, err)

	// Parent retakes with a complete submission: 59 + 30 = 89
	third, err := SubmitAssessment(ctx, submitReq(models.RoleParent, "home", homeAnswers(19, 2)))
	require.NoError(t, err)

	assert.Equal(t, 89, third.Profile.ConfidencePercentage)
	assert.Equal(t, models.StateEstablished, third.Profile.State)
	assert.Equal(t, 3, third.Profile.TotalAssessments)
	assert.Equal(t, 2, third.Profile.ParentAssessments)

	// The superseded parent source is no longer current
	sources, err := GetDataSources(ctx, third.Profile.ProfileID)
	require.NoError(t, err)
	require.Equal(t, 3, sources.Total)
	assert.False(t, sources.Sources[0].IsCurrent)
	assert.True(t, sources.Sources[1].IsCurrent)
	assert.True(t, sources.Sources[2].IsCurrent)
}

func TestSubmitConflictingSourcesDampenConfidence(t *testing.T) {
	setupServiceTest(t)
	ctx := context.Background()

	_, err := SubmitAssessment(ctx, submitReq(models.RoleParent, "home", homeAnswers(19, 3)))
	require.NoError(t, err)

	resp, err := SubmitAssessment(ctx, submitReq(models.RoleTeacher, "classroom", classroomAnswers(0)))
	require.NoError(t, err)

	assert.True(t, resp.Profile.ConflictDetected)
	assert.Equal(t, models.DifferentialHigh, resp.Profile.ContextDifferential)
	// The classroom boost of 35 is halved: 30 + round(17.5) = 48
	assert.Equal(t, 48, resp.Profile.ConfidencePercentage)
}

func TestSubmitByProfileID(t *testing.T) {
	setupServiceTest(t)
	ctx := context.Background()

	first, err := SubmitAssessment(ctx, submitReq(models.RoleParent, "home", homeAnswers(10, 2)))
	require.NoError(t, err)

	req := models.SubmitAssessmentRequest{
		ProfileID:      first.Profile.ProfileID,
		QuizVariant:    "general",
		RespondentRole: models.RoleTeacher,
		Answers: map[string]models.AnswerValue{
			"g1": likert(2),
			"g3": likert(2),
		},
	}
	resp, err := SubmitAssessment(ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.IsNewProfile)
	assert.Equal(t, first.Profile.ProfileID, resp.Profile.ProfileID)
}

func TestSubmitUnknownProfileID(t *testing.T) {
	setupServiceTest(t)

	req := submitReq(models.RoleParent, "home", homeAnswers(5, 2))
	req.ProfileID = "does-not-exist"

	_, err := SubmitAssessment(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestSubmitScoringVersionMismatch(t *testing.T) {
	setupServiceTest(t)
	ctx := context.Background()

	_, err := SubmitAssessment(ctx, submitReq(models.RoleParent, "home", homeAnswers(10, 2)))
	require.NoError(t, err)

	req := submitReq(models.RoleTeacher, "home", homeAnswers(10, 2))
	req.ScoringVersion = "likert-v1"

	_, err = SubmitAssessment(ctx, req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeScoringVersionMismatch))
}

func TestSubmitAmbiguousSubject(t *testing.T) {
	setupServiceTest(t)
	ctx := context.Background()

	for _, id := range []string{"amb-1", "amb-2"} {
		profile := &models.Profile{
			ProfileID:      id,
			SubjectName:    "Maya",
			AgeBucket:      "4-5",
			ScoringVersion: scoring.DefaultVersion,
		}
		require.NoError(t, repository.CreateProfile(ctx, profile))
	}

	_, err := SubmitAssessment(ctx, submitReq(models.RoleParent, "home", homeAnswers(5, 2)))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeAmbiguousSubject))
}

func TestSubmitValidationErrors(t *testing.T) {
	setupServiceTest(t)

	tests := []struct {
		name   string
		mutate func(*models.SubmitAssessmentRequest)
	}{
		{"unknown role", func(r *models.SubmitAssessmentRequest) { r.RespondentRole = "sibling" }},
		{"unknown variant", func(r *models.SubmitAssessmentRequest) { r.QuizVariant = "playground" }},
		{"empty answers", func(r *models.SubmitAssessmentRequest) { r.Answers = nil }},
		{"missing subject", func(r *models.SubmitAssessmentRequest) { r.SubjectName = "" }},
		{"age too low", func(r *models.SubmitAssessmentRequest) { r.AgeMonths = 20 }},
		{"age too high", func(r *models.SubmitAssessmentRequest) { r.AgeMonths = 300 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := submitReq(models.RoleParent, "home", homeAnswers(5, 2))
			tt.mutate(&req)
			_, err := SubmitAssessment(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeValidation))
		})
	}
}

func TestRejectedSubmissionLeavesProfileUntouched(t *testing.T) {
	setupServiceTest(t)
	ctx := context.Background()

	created, err := SubmitAssessment(ctx, submitReq(models.RoleParent, "home", homeAnswers(10, 2)))
	require.NoError(t, err)

	bad := submitReq(models.RoleTeacher, "playground", homeAnswers(10, 2))
	_, err = SubmitAssessment(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidation))

	after, err := GetProfile(ctx, created.Profile.ProfileID, ViewNeutral)
	require.NoError(t, err)
	assert.Equal(t, created.Profile.ConfidencePercentage, after.ConfidencePercentage)
	assert.Equal(t, 1, after.TotalAssessments)
}

type failingStrategy struct{}

func (failingStrategy) Consolidate(ctx context.Context, profile *models.Profile, scored *scoring.ScoredSubmission, contrib *scoring.Contribution, meta consolidation.SubmissionMeta) (*consolidation.Result, error) {
	return nil, fmt.Errorf("remote consolidation unavailable")
}

func TestSubmitDegradedWhenRemoteFails(t *testing.T) {
	setupServiceTest(t)
	Remote = failingStrategy{}
	defer func() { Remote = nil }()

	resp, err := SubmitAssessment(context.Background(), submitReq(models.RoleParent, "home", homeAnswers(19, 2)))
	require.NoError(t, err)

	// The local path produced a full consolidation; only the flag differs.
	assert.True(t, resp.Degraded)
	assert.Equal(t, 30, resp.Profile.ConfidencePercentage)
	assert.Equal(t, 1, resp.Profile.TotalAssessments)
}

func TestSubmitRecordsAssignmentCompletion(t *testing.T) {
	setupServiceTest(t)
	ctx := context.Background()

	req := submitReq(models.RoleParent, "home", homeAnswers(10, 2))
	req.AssignmentToken = "tok-123"

	resp, err := SubmitAssessment(ctx, req)
	require.NoError(t, err)

	// The completion signal is asynchronous; poll briefly for it.
	var completion *models.AssignmentCompletion
	require.Eventually(t, func() bool {
		completion, err = repository.GetAssignmentCompletion(ctx, "tok-123")
		return err == nil && completion != nil
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, resp.Profile.ProfileID, completion.ProfileID)
	assert.Equal(t, "completed", completion.Status)
}
