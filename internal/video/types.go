// Package video evaluates recorded work sessions against a role-family rubric with
// a multimodal model and persists per-dimension scores.
package video

import (
	"time"

	"github.com/spigell/worksim-assessor/internal/store"
)

// MaxRetries is the retry count at which a failed assessment needs an operator.
const MaxRetries = 3

// ConfidenceLevel is the model's confidence in a score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Confidence keeps whether the model stated the level or it was assumed.
type Confidence struct {
	Level    ConfidenceLevel `json:"level"`
	Asserted bool            `json:"asserted"`
}

func assumedConfidence() Confidence {
	return Confidence{Level: ConfidenceMedium}
}

// BehaviorEvidence is one observed behavior anchored to a point in the recording.
type BehaviorEvidence struct {
	Timestamp string `json:"timestamp"`
	Behavior  string `json:"behavior"`
}

// DimensionResult is the parsed evaluation of one rubric dimension.
// A nil Score means the model found insufficient evidence.
type DimensionResult struct {
	Slug         string             `json:"slug"`
	Name         string             `json:"name"`
	Score        *int               `json:"score"`
	Summary      string             `json:"summary"`
	Confidence   Confidence         `json:"confidence"`
	Rationale    string             `json:"rationale"`
	Behaviors    []BehaviorEvidence `json:"behaviors"`
	Timestamps   []string           `json:"timestamps"`
	TrainableGap bool               `json:"trainable_gap"`
	GreenFlags   []string           `json:"green_flags"`
	RedFlags     []string           `json:"red_flags"`
}

// RubricAssessment is the canonical form of a model evaluation, whichever shape it arrived in.
type RubricAssessment struct {
	EvaluationVersion         string            `json:"evaluation_version"`
	RoleFamily                string            `json:"role_family"`
	OverallScore              float64           `json:"overall_score"`
	Dimensions                []DimensionResult `json:"dimensions"`
	RedFlags                  []string          `json:"red_flags"`
	TopStrengths              []string          `json:"top_strengths"`
	GrowthAreas               []string          `json:"growth_areas"`
	OverallSummary            string            `json:"overall_summary"`
	Confidence                Confidence        `json:"evaluation_confidence"`
	InsufficientEvidenceNotes string            `json:"insufficient_evidence_notes"`
}

// Dimension returns the result for slug, matched case-insensitively.
func (a *RubricAssessment) Dimension(slug string) (DimensionResult, bool) {
	if a == nil {
		return DimensionResult{}, false
	}
	for _, d := range a.Dimensions {
		if normalizeKey(d.Slug) == normalizeKey(slug) {
			return d, true
		}
	}
	return DimensionResult{}, false
}

// VideoContext is the optional task context handed to the model with the recording.
type VideoContext struct {
	DurationSeconds  int
	TaskDescription  string
	ExpectedOutcomes []string
}

// Request identifies the recording to evaluate.
type Request struct {
	AssessmentID string
	VideoURL     string
	MIMEType     string
	RoleFamily   string
	Context      VideoContext
}

// TriggerResult reports what a trigger did.
type TriggerResult struct {
	AssessmentID string       `json:"assessment_id"`
	Status       store.Status `json:"status"`
	// Evaluated is false when the trigger was a no-op.
	Evaluated bool `json:"evaluated"`
}

// StatusView is the status query surface.
type StatusView struct {
	AssessmentID      string       `json:"assessment_id"`
	Status            store.Status `json:"status"`
	RetryCount        int          `json:"retry_count"`
	LastFailureReason string       `json:"last_failure_reason,omitempty"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty"`
	CanRetry          bool         `json:"can_retry"`
	NeedsIntervention bool         `json:"needs_intervention"`
}

// DimensionView is a persisted dimension score with its display name.
type DimensionView struct {
	Dimension    string   `json:"dimension"`
	Name         string   `json:"name"`
	Score        int      `json:"score"`
	Confidence   string   `json:"confidence"`
	Evidence     string   `json:"evidence"`
	Timestamps   []string `json:"timestamps"`
	TrainableGap bool     `json:"trainable_gap"`
	Rationale    string   `json:"rationale"`
}

// Results is the report query surface of a completed assessment.
type Results struct {
	StatusView
	OverallScore      float64         `json:"overall_score"`
	OverallSummary    string          `json:"overall_summary"`
	EvaluationVersion string          `json:"evaluation_version"`
	Dimensions        []DimensionView `json:"dimensions"`
}
