package consolidation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/architect/learning-profiles/internal/assessment/models"
	"github.com/architect/learning-profiles/internal/assessment/scoring"
)

// Strategy consolidates one scored submission into a profile. The local
// consolidator (Apply) is the always-present implementation; a remote service
// can stand in as an optimization, and a failure there falls back to the
// local path.
type Strategy interface {
	Consolidate(ctx context.Context, profile *models.Profile, scored *scoring.ScoredSubmission, contrib *scoring.Contribution, meta SubmissionMeta) (*Result, error)
}

// HTTPStrategy delegates consolidation to a remote endpoint. The remote side
// runs the same merge semantics and returns the updated profile fields.
type HTTPStrategy struct {
	URL    string
	Client *http.Client
}

// NewHTTPStrategy builds a remote strategy with a bounded request timeout.
func NewHTTPStrategy(url string, timeout time.Duration) *HTTPStrategy {
	return &HTTPStrategy{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

type remoteRequest struct {
	Profile       *models.Profile    `json:"profile"`
	Scores        map[string]float64 `json:"scores"`
	Label         string             `json:"label"`
	Weight        float64            `json:"weight"`
	Boost         int                `json:"confidence_boost"`
	Covered       []string           `json:"categories_covered"`
	Variant       string             `json:"quiz_variant"`
	Role          string             `json:"respondent_role"`
	ContributedAt time.Time          `json:"contributed_at"`
}

type remoteResponse struct {
	Profile *models.Profile `json:"profile"`
	Result  Result          `json:"result"`
}

func (s *HTTPStrategy) Consolidate(ctx context.Context, profile *models.Profile, scored *scoring.ScoredSubmission, contrib *scoring.Contribution, meta SubmissionMeta) (*Result, error) {
	payload, err := json.Marshal(remoteRequest{
		Profile:       profile,
		Scores:        scored.Scores,
		Label:         scored.Label,
		Weight:        contrib.Weight,
		Boost:         contrib.ConfidenceBoost,
		Covered:       contrib.CategoriesCovered,
		Variant:       meta.QuizVariant,
		Role:          meta.RespondentRole,
		ContributedAt: meta.ContributedAt,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote consolidation returned status %d", resp.StatusCode)
	}

	var decoded remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.Profile == nil {
		return nil, fmt.Errorf("remote consolidation returned no profile")
	}

	// Adopt the remote merge while keeping local identity fields intact.
	copyConsolidatedState(profile, decoded.Profile)
	return &decoded.Result, nil
}

func copyConsolidatedState(dst, src *models.Profile) {
	dst.ConsolidatedScores = src.ConsolidatedScores
	dst.AccumulatedWeight = src.AccumulatedWeight
	dst.RoleScores = src.RoleScores
	dst.CoveredCategories = src.CoveredCategories
	dst.Label = src.Label
	dst.Strengths = src.Strengths
	dst.GrowthAreas = src.GrowthAreas
	dst.ConfidencePercentage = src.ConfidencePercentage
	dst.CompletenessPercentage = src.CompletenessPercentage
	dst.TotalAssessments = src.TotalAssessments
	dst.ParentAssessments = src.ParentAssessments
	dst.TeacherAssessments = src.TeacherAssessments
	dst.ConflictFlag = src.ConflictFlag
	dst.ContextDifferential = src.ContextDifferential
	dst.DataSources = src.DataSources
}
