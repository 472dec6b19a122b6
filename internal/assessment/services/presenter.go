package services

import (
	"github.com/architect/learning-profiles/internal/assessment/models"
)

// Viewing contexts
const (
	ViewParent  = "parent"
	ViewTeacher = "teacher"
	ViewNeutral = "neutral"
)

// homeStrategies are surfaced to parents for each growth area.
var homeStrategies = map[string]string{
	"language":     "Read together daily and let your child retell the story in their own words",
	"cognitive":    "Play sorting, matching and simple strategy games at home",
	"social":       "Arrange regular playdates and practice turn-taking games",
	"emotional":    "Name feelings out loud during the day and talk through big reactions",
	"motor":        "Build in outdoor play, drawing and cutting practice every week",
	"independence": "Give your child small daily responsibilities like setting the table",
}

// classroomStrategies are surfaced to teachers for each growth area.
var classroomStrategies = map[string]string{
	"language":     "Pair with a strong verbal partner for show-and-tell and group retelling",
	"cognitive":    "Offer tiered puzzles and pattern activities during center time",
	"social":       "Assign cooperative roles in small-group work and coach entry into play",
	"emotional":    "Use a feelings check-in at transitions and a calm-down corner",
	"motor":        "Include fine-motor stations and structured movement breaks",
	"independence": "Use a visual task checklist so the child can self-manage routines",
}

// generalStrategies back the neutral view.
var generalStrategies = map[string]string{
	"language":     "Encourage storytelling, conversation and vocabulary play",
	"cognitive":    "Practice puzzles, counting games and open-ended questions",
	"social":       "Create low-pressure chances to play and collaborate with peers",
	"emotional":    "Model naming and managing feelings in everyday situations",
	"motor":        "Mix large movement activities with drawing and building",
	"independence": "Let the child attempt routines on their own before stepping in",
}

// Present derives the display view of a consolidated profile for one viewing
// context. It only selects and labels derived fields; no scores are computed
// here. A profile with no completed categories still yields a well-formed
// result with an explicit insufficient-data indicator.
func Present(profile *models.Profile, view string) *models.DisplayProfile {
	if view != ViewParent && view != ViewTeacher {
		view = ViewNeutral
	}

	scores := profile.ScoreMap()
	display := &models.DisplayProfile{
		ProfileID:              profile.ProfileID,
		SubjectName:            profile.SubjectName,
		AgeBucket:              profile.AgeBucket,
		ScoringVersion:         profile.ScoringVersion,
		State:                  profile.State(Engine.EstablishedThreshold),
		Label:                  profile.Label,
		Scores:                 scores,
		Strengths:              profile.StrengthList(),
		GrowthAreas:            profile.GrowthList(),
		ConfidencePercentage:   profile.ConfidencePercentage,
		CompletenessPercentage: profile.CompletenessPercentage,
		TotalAssessments:       profile.TotalAssessments,
		ParentAssessments:      profile.ParentAssessments,
		TeacherAssessments:     profile.TeacherAssessments,
		ConflictDetected:       profile.ConflictFlag,
		ContextDifferential:    profile.ContextDifferential,
		ViewContext:            view,
	}

	if len(scores) == 0 {
		display.InsufficientData = true
		display.CompletenessPercentage = 0
		display.Strengths = []string{}
		display.GrowthAreas = []string{}
		display.Recommendations = []string{}
		return display
	}

	strategies := generalStrategies
	switch view {
	case ViewParent:
		strategies = homeStrategies
	case ViewTeacher:
		strategies = classroomStrategies
	}

	targets := display.GrowthAreas
	if len(targets) == 0 {
		// Nothing ranked low yet: recommend reinforcing the strengths instead.
		targets = display.Strengths
	}

	recommendations := make([]string, 0, len(targets))
	for _, category := range targets {
		if text, ok := strategies[category]; ok {
			recommendations = append(recommendations, text)
		}
	}
	display.Recommendations = recommendations

	return display
}
