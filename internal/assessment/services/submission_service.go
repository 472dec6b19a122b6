package services

import (
	"context"
	"fmt"
	"time"

	"github.com/architect/learning-profiles/internal/common/errors"
	"github.com/architect/learning-profiles/internal/common/validation"
	"github.com/architect/learning-profiles/internal/assessment/consolidation"
	"github.com/architect/learning-profiles/internal/assessment/models"
	"github.com/architect/learning-profiles/internal/assessment/repository"
	"github.com/architect/learning-profiles/internal/assessment/scoring"
	"github.com/architect/learning-profiles/pkg/config"
	"github.com/architect/learning-profiles/pkg/logger"
	"github.com/architect/learning-profiles/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine holds the consolidation tuning for this process; Configure replaces
// it at startup. Remote, when non-nil, is tried before the local merge.
var (
	Engine = consolidation.DefaultConfig()
	Remote consolidation.Strategy
)

// Configure applies the loaded engine configuration.
func Configure(cfg config.EngineConfig) {
	Engine = consolidation.Config{
		ConflictThreshold:    cfg.ConflictThreshold,
		MediumDifferential:   cfg.MediumDifferential,
		HighDifferential:     cfg.HighDifferential,
		ConflictDamping:      cfg.ConflictDamping,
		EstablishedThreshold: cfg.EstablishedThreshold,
	}
	if cfg.RemoteURL != "" {
		Remote = consolidation.NewHTTPStrategy(cfg.RemoteURL, cfg.RemoteTimeout)
	} else {
		Remote = nil
	}
}

// SubmitAssessment scores one submission and consolidates it into the
// subject's profile, creating the profile on first contact. The caller gets
// the updated profile, whether it was newly created, and whether the
// consolidation ran on the degraded local-only path.
func SubmitAssessment(ctx context.Context, req models.SubmitAssessmentRequest) (*models.SubmitAssessmentResponse, error) {
	start := time.Now()

	if err := validateSubmission(req); err != nil {
		metrics.Default().RecordValidationError()
		return nil, err
	}

	profile, isNew, err := resolveProfile(ctx, req)
	if err != nil {
		return nil, err
	}

	version := req.ScoringVersion
	if version == "" {
		if profile != nil {
			version = profile.ScoringVersion
		} else {
			version = scoring.DefaultVersion
		}
	}
	table, ok := scoring.Get(version)
	if !ok {
		metrics.Default().RecordValidationError()
		return nil, errors.Validation("unknown scoring version", fmt.Sprintf("version=%s", version))
	}

	if isNew {
		profile = &models.Profile{
			ProfileID:      uuid.NewString(),
			SubjectName:    req.SubjectName,
			AgeBucket:      scoring.AgeBucketFromMonths(req.AgeMonths),
			ScoringVersion: version,
		}
	} else if profile.ScoringVersion != version {
		// Scales must never be mixed silently within one profile.
		return nil, errors.ScoringVersionMismatch(profile.ScoringVersion, version)
	}

	// Scoring and contribution are pure; both run before any state changes.
	scored, err := scoring.Score(req.Answers, req.QuizVariant, profile.AgeBucket, table)
	if err != nil {
		metrics.Default().RecordValidationError()
		return nil, err
	}
	contrib, err := scoring.Contribute(req.Answers, req.QuizVariant, profile.AgeBucket, table)
	if err != nil {
		metrics.Default().RecordValidationError()
		return nil, err
	}

	profile.SetSchoolContextMap(req.SchoolContext)

	meta := consolidation.SubmissionMeta{
		QuizVariant:    req.QuizVariant,
		RespondentRole: req.RespondentRole,
		ContributedAt:  time.Now().UTC(),
	}

	result, degraded := consolidate(ctx, profile, scored, contrib, meta, table)

	if isNew {
		err = repository.CreateProfile(ctx, profile)
	} else {
		err = saveWithRetry(ctx, &profile, result, scored, contrib, meta, table)
	}
	if err != nil {
		return nil, err
	}

	if req.AssignmentToken != "" {
		signalAssignmentCompletion(req.AssignmentToken, profile.ProfileID)
	}

	metrics.Default().RecordSubmission(float64(time.Since(start).Milliseconds()), isNew)
	if result.ConflictDetected {
		metrics.Default().RecordConflict()
	}
	if result.Retake {
		metrics.Default().RecordRetake()
	}

	logger.Info("assessment consolidated",
		zap.String("profile_id", profile.ProfileID),
		zap.String("quiz_variant", req.QuizVariant),
		zap.String("respondent_role", req.RespondentRole),
		zap.Bool("is_new_profile", isNew),
		zap.Bool("degraded", degraded),
		zap.Bool("conflict", result.ConflictDetected),
		zap.Int("confidence", profile.ConfidencePercentage),
	)

	return &models.SubmitAssessmentResponse{
		Profile:        Present(profile, viewForRole(req.RespondentRole)),
		IsNewProfile:   isNew,
		ScoringVersion: version,
		Degraded:       degraded,
	}, nil
}

// consolidate runs the remote strategy when one is configured and falls back
// to the local merge on any remote failure. The local consolidator is the
// single implementation of the merge math either way.
func consolidate(ctx context.Context, profile *models.Profile, scored *scoring.ScoredSubmission, contrib *scoring.Contribution, meta consolidation.SubmissionMeta, table *scoring.Table) (*consolidation.Result, bool) {
	if Remote != nil {
		result, err := Remote.Consolidate(ctx, profile, scored, contrib, meta)
		if err == nil {
			return result, false
		}
		logger.Warn("remote consolidation unavailable, using local path",
			zap.String("profile_id", profile.ProfileID),
			zap.Error(err),
		)
		metrics.Default().RecordDegraded()
		return consolidation.Apply(profile, scored, contrib, meta, table, Engine), true
	}
	return consolidation.Apply(profile, scored, contrib, meta, table, Engine), false
}

// saveWithRetry persists an updated profile, retrying exactly once against
// fresh state when the optimistic lock detects a concurrent writer.
func saveWithRetry(ctx context.Context, profile **models.Profile, result *consolidation.Result, scored *scoring.ScoredSubmission, contrib *scoring.Contribution, meta consolidation.SubmissionMeta, table *scoring.Table) error {
	err := repository.UpdateProfile(ctx, *profile, retakeRole(result, meta))
	if !errors.IsCode(err, errors.CodePersistenceConflict) {
		return err
	}

	metrics.Default().RecordWriteConflict()
	fresh, ferr := repository.GetProfileByID(ctx, (*profile).ProfileID)
	if ferr != nil {
		return ferr
	}
	if fresh == nil {
		return errors.Internal("profile disappeared during retry", (*profile).ProfileID)
	}

	retried := consolidation.Apply(fresh, scored, contrib, meta, table, Engine)
	*result = *retried
	if err := repository.UpdateProfile(ctx, fresh, retakeRole(retried, meta)); err != nil {
		return err
	}
	*profile = fresh
	return nil
}

func retakeRole(result *consolidation.Result, meta consolidation.SubmissionMeta) string {
	if result.Retake {
		return meta.RespondentRole
	}
	return ""
}

// signalAssignmentCompletion records the completion signal asynchronously.
// This is fire-and-forget: a failure is logged, never surfaced to the caller.
func signalAssignmentCompletion(token, profileID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		completion := &models.AssignmentCompletion{
			AssignmentToken: token,
			ProfileID:       profileID,
			Status:          "completed",
			CompletedAt:     time.Now().UTC(),
		}
		if err := repository.RecordAssignmentCompletion(ctx, completion); err != nil {
			logger.Warn("failed to signal assignment completion",
				zap.String("assignment_token", token),
				zap.String("profile_id", profileID),
				zap.Error(err),
			)
		}
	}()
}

func validateSubmission(req models.SubmitAssessmentRequest) error {
	if verrs := validation.Validate(req); len(verrs) > 0 {
		return errors.Validation("invalid submission",
			fmt.Sprintf("field %s: %s", verrs[0].Field, verrs[0].Message))
	}
	if !scoring.KnownVariant(req.QuizVariant) {
		return errors.Validation("unknown quiz variant", fmt.Sprintf("variant=%s", req.QuizVariant))
	}
	if req.ProfileID == "" {
		if req.SubjectName == "" {
			return errors.Validation("missing subject identification", "provide profile_id or subject_name with age_months")
		}
		if !scoring.ValidAgeMonths(req.AgeMonths) {
			return errors.Validation("age out of range", fmt.Sprintf("age_months=%d", req.AgeMonths))
		}
	}
	return nil
}

// resolveProfile finds the target profile: explicit id first, then exact
// subject name + age bucket. A nil profile with isNew=true means the caller
// is creating a subject's first profile.
func resolveProfile(ctx context.Context, req models.SubmitAssessmentRequest) (*models.Profile, bool, error) {
	if req.ProfileID != "" {
		profile, err := repository.GetProfileByID(ctx, req.ProfileID)
		if err != nil {
			return nil, false, err
		}
		if profile == nil {
			return nil, false, errors.NotFound("profile")
		}
		return profile, false, nil
	}

	bucket := scoring.AgeBucketFromMonths(req.AgeMonths)
	profile, err := repository.FindBySubject(ctx, req.SubjectName, bucket)
	if err != nil {
		return nil, false, err
	}
	if profile == nil {
		return nil, true, nil
	}
	return profile, false, nil
}

func viewForRole(role string) string {
	switch role {
	case models.RoleTeacher:
		return ViewTeacher
	case models.RoleParent:
		return ViewParent
	}
	return ViewNeutral
}
