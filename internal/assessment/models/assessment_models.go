package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Respondent roles
const (
	RoleParent  = "parent"
	RoleTeacher = "teacher"
)

// Context differential severities
const (
	DifferentialLow    = "low"
	DifferentialMedium = "medium"
	DifferentialHigh   = "high"
)

// Profile states
const (
	StateNew         = "new"
	StatePartial     = "partial"
	StateEstablished = "established"
)

// Profile is the consolidated learning profile for one child. It accumulates
// every assessment submitted for the subject; score maps are stored as JSON
// columns and accessed through the typed helpers below.
type Profile struct {
	ID             uint   `gorm:"primaryKey" json:"-"`
	ProfileID      string `gorm:"uniqueIndex;not null" json:"profile_id"`
	SubjectName    string `gorm:"index:idx_subject_name_age;not null" json:"subject_name"`
	AgeBucket      string `gorm:"index:idx_subject_name_age;not null" json:"age_bucket"`
	ScoringVersion string `gorm:"not null" json:"scoring_version"`

	ConsolidatedScores datatypes.JSON `json:"consolidated_scores"`
	AccumulatedWeight  datatypes.JSON `json:"-"`
	RoleScores         datatypes.JSON `json:"-"`
	CoveredCategories  datatypes.JSON `json:"-"`

	Label       string         `json:"label"`
	Strengths   datatypes.JSON `json:"strengths"`
	GrowthAreas datatypes.JSON `json:"growth_areas"`

	ConfidencePercentage   int `json:"confidence_percentage"`
	CompletenessPercentage int `json:"completeness_percentage"`

	TotalAssessments   int `json:"total_assessments"`
	ParentAssessments  int `json:"parent_assessments"`
	TeacherAssessments int `json:"teacher_assessments"`

	ConflictFlag        bool   `json:"conflict_flag"`
	ContextDifferential string `json:"context_differential,omitempty"`

	SchoolContext datatypes.JSON `json:"school_context,omitempty"`

	// LockVersion backs the optimistic concurrency check on updates.
	LockVersion int64 `gorm:"default:0" json:"-"`

	DataSources []DataSource `gorm:"foreignKey:ProfileRef" json:"data_sources,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DataSource records one contribution to a profile. Prior entries of a role
// are flipped to IsCurrent=false when that role submits again (a retake).
type DataSource struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	ProfileRef             uint      `gorm:"index;not null" json:"-"`
	QuizVariant            string    `gorm:"not null" json:"quiz_variant"`
	RespondentRole         string    `gorm:"not null" json:"respondent_role"`
	ConfidenceContribution int       `json:"confidence_contribution"`
	IsCurrent              bool      `json:"is_current"`
	ContributedAt          time.Time `json:"contributed_at"`
	CreatedAt              time.Time `json:"-"`
}

// AssignmentCompletion is the fire-and-forget completion signal recorded for
// submissions that carried an assignment token. It is not part of the
// profile's own state.
type AssignmentCompletion struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	AssignmentToken string    `gorm:"index;not null" json:"assignment_token"`
	ProfileID       string    `gorm:"not null" json:"profile_id"`
	Status          string    `gorm:"not null" json:"status"`
	CompletedAt     time.Time `json:"completed_at"`
	CreatedAt       time.Time `json:"-"`
}

// RoleAccumulator keeps a weighted score sum for one role in one category so
// per-role means can be compared for conflict detection.
type RoleAccumulator struct {
	Sum    float64 `json:"sum"`
	Weight float64 `json:"weight"`
}

// Mean returns the weighted mean, or 0 if nothing was accumulated.
func (a RoleAccumulator) Mean() float64 {
	if a.Weight == 0 {
		return 0
	}
	return a.Sum / a.Weight
}

// State derives the profile lifecycle state from its confidence.
func (p *Profile) State(establishedThreshold int) string {
	switch {
	case p.TotalAssessments == 0:
		return StateNew
	case p.ConfidencePercentage >= establishedThreshold:
		return StateEstablished
	default:
		return StatePartial
	}
}

// JSON column accessors. Decoding errors are treated as empty values: the
// columns are only ever written by the helpers below.

func (p *Profile) ScoreMap() map[string]float64 {
	return decodeFloatMap(p.ConsolidatedScores)
}

func (p *Profile) SetScoreMap(m map[string]float64) {
	p.ConsolidatedScores = mustJSON(m)
}

func (p *Profile) WeightMap() map[string]float64 {
	return decodeFloatMap(p.AccumulatedWeight)
}

func (p *Profile) SetWeightMap(m map[string]float64) {
	p.AccumulatedWeight = mustJSON(m)
}

func (p *Profile) RoleScoreMap() map[string]map[string]RoleAccumulator {
	m := map[string]map[string]RoleAccumulator{}
	if len(p.RoleScores) > 0 {
		_ = json.Unmarshal(p.RoleScores, &m)
	}
	return m
}

func (p *Profile) SetRoleScoreMap(m map[string]map[string]RoleAccumulator) {
	p.RoleScores = mustJSON(m)
}

func (p *Profile) CoveredList() []string {
	return decodeStringList(p.CoveredCategories)
}

func (p *Profile) SetCoveredList(categories []string) {
	p.CoveredCategories = mustJSON(categories)
}

func (p *Profile) StrengthList() []string {
	return decodeStringList(p.Strengths)
}

func (p *Profile) SetStrengthList(categories []string) {
	p.Strengths = mustJSON(categories)
}

func (p *Profile) GrowthList() []string {
	return decodeStringList(p.GrowthAreas)
}

func (p *Profile) SetGrowthList(categories []string) {
	p.GrowthAreas = mustJSON(categories)
}

func (p *Profile) SchoolContextMap() map[string]string {
	m := map[string]string{}
	if len(p.SchoolContext) > 0 {
		_ = json.Unmarshal(p.SchoolContext, &m)
	}
	return m
}

// SetSchoolContextMap stores respondent-supplied school metadata verbatim.
// The engine never interprets it.
func (p *Profile) SetSchoolContextMap(m map[string]string) {
	if len(m) == 0 {
		return
	}
	p.SchoolContext = mustJSON(m)
}

func decodeFloatMap(raw datatypes.JSON) map[string]float64 {
	m := map[string]float64{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &m)
	}
	return m
}

func decodeStringList(raw datatypes.JSON) []string {
	var s []string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

func mustJSON(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte(`null`))
	}
	return datatypes.JSON(b)
}

// Answer kinds
type AnswerKind string

const (
	AnswerLikert AnswerKind = "likert"
	AnswerChoice AnswerKind = "choice"
	AnswerMulti  AnswerKind = "multi"
)

// AnswerValue is the closed tagged union for one answer: a numeric Likert
// rating, a single categorical preference, or a multi-select preference. The
// wire format is the bare scalar/array; the kind is recovered from the JSON
// shape and validated against the scoring table at the boundary.
type AnswerValue struct {
	Kind    AnswerKind
	Likert  int
	Choice  string
	Choices []string
}

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		a.Kind = AnswerLikert
		a.Likert = n
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Kind = AnswerChoice
		a.Choice = s
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		a.Kind = AnswerMulti
		a.Choices = list
		return nil
	}

	return fmt.Errorf("answer must be a number, a string, or a string array")
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerLikert:
		return json.Marshal(a.Likert)
	case AnswerChoice:
		return json.Marshal(a.Choice)
	case AnswerMulti:
		return json.Marshal(a.Choices)
	}
	return []byte(`null`), nil
}

// API Request/Response DTOs

// SubmitAssessmentRequest - one assessment submission. Either ProfileID or
// SubjectName+AgeMonths must identify the subject.
type SubmitAssessmentRequest struct {
	ProfileID       string                 `json:"profile_id"`
	SubjectName     string                 `json:"subject_name"`
	AgeMonths       int                    `json:"age_months"`
	QuizVariant     string                 `json:"quiz_variant" validate:"required"`
	RespondentRole  string                 `json:"respondent_role" validate:"required,oneof=parent teacher"`
	ScoringVersion  string                 `json:"scoring_version"`
	Answers         map[string]AnswerValue `json:"answers" validate:"required,min=1"`
	SchoolContext   map[string]string      `json:"school_context"`
	AssignmentToken string                 `json:"assignment_token"`
}

// SubmitAssessmentResponse - result of consolidating one submission
type SubmitAssessmentResponse struct {
	Profile        *DisplayProfile `json:"profile"`
	IsNewProfile   bool            `json:"is_new_profile"`
	ScoringVersion string          `json:"scoring_version"`
	Degraded       bool            `json:"degraded"`
}

// DisplayProfile - consolidated profile formatted for one viewing context
type DisplayProfile struct {
	ProfileID              string             `json:"profile_id"`
	SubjectName            string             `json:"subject_name"`
	AgeBucket              string             `json:"age_bucket"`
	ScoringVersion         string             `json:"scoring_version"`
	State                  string             `json:"state"`
	Label                  string             `json:"label"`
	Scores                 map[string]float64 `json:"scores"`
	Strengths              []string           `json:"strengths"`
	GrowthAreas            []string           `json:"growth_areas"`
	ConfidencePercentage   int                `json:"confidence_percentage"`
	CompletenessPercentage int                `json:"completeness_percentage"`
	TotalAssessments       int                `json:"total_assessments"`
	ParentAssessments      int                `json:"parent_assessments"`
	TeacherAssessments     int                `json:"teacher_assessments"`
	ConflictDetected       bool               `json:"conflict_detected"`
	ContextDifferential    string             `json:"context_differential,omitempty"`
	InsufficientData       bool               `json:"insufficient_data"`
	ViewContext            string             `json:"view_context"`
	Recommendations        []string           `json:"recommendations"`
}

// DataSourceListResponse - contribution history for a profile
type DataSourceListResponse struct {
	ProfileID string       `json:"profile_id"`
	Sources   []DataSource `json:"sources"`
	Total     int          `json:"total"`
}
