// Package assessment holds the evidence collected about a candidate's work
// simulation session and the skill scores derived from it.
package assessment

import "time"

// Signals is the evidence bundle assembled by the signal collectors for one assessment.
// Every pointer sub-record may be nil when the signal is unavailable.
type Signals struct {
	AssessmentID string `json:"assessment_id"`
	UserID       string `json:"user_id"`
	ScenarioName string `json:"scenario_name"`

	HRInterview   *HRInterview       `json:"hr_interview,omitempty"`
	Conversations *Conversations     `json:"conversations,omitempty"`
	Recording     *RecordingAnalysis `json:"recording,omitempty"`
	CodeReview    *CodeReview        `json:"code_review,omitempty"`
	CI            *CIStatus          `json:"ci,omitempty"`
	PRURL         string             `json:"pr_url,omitempty"`
	Timing        Timing             `json:"timing"`
}

// HRInterview carries the 1-5 scores of the recorded HR interview.
type HRInterview struct {
	CommunicationScore   *float64 `json:"communication_score,omitempty"`
	ProfessionalismScore *float64 `json:"professionalism_score,omitempty"`
	TechnicalDepthScore  *float64 `json:"technical_depth_score,omitempty"`
	CultureFitScore      *float64 `json:"culture_fit_score,omitempty"`

	Notes           string   `json:"notes,omitempty"`
	VerifiedClaims  []string `json:"verified_claims,omitempty"`
	DurationSeconds *int     `json:"duration_seconds,omitempty"`
}

// MessageKind tells apart written chat threads and voice calls.
type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageVoice MessageKind = "voice"
)

// Message is one transcript entry.
type Message struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Thread is the message history with one simulated coworker.
type Thread struct {
	CoworkerID   string      `json:"coworker_id"`
	CoworkerName string      `json:"coworker_name,omitempty"`
	Kind         MessageKind `json:"kind"`
	Messages     []Message   `json:"messages"`
}

// Conversations summarizes the candidate's interaction with simulated coworkers.
type Conversations struct {
	Threads           []Thread  `json:"threads,omitempty"`
	DefenseTranscript []Message `json:"defense_transcript,omitempty"`
	TotalInteractions int       `json:"total_interactions"`
	UniqueCoworkers   int       `json:"unique_coworkers"`
}

// StuckCause categorizes why the candidate stalled during the recording.
type StuckCause string

const (
	StuckTechnicalDifficulty StuckCause = "technical_difficulty"
	StuckUnclearRequirements StuckCause = "unclear_requirements"
	StuckEnvironmentIssue    StuckCause = "environment_issue"
	StuckOther               StuckCause = "other"
)

// Activity is one chronological entry of the screen recording timeline.
type Activity struct {
	Timestamp   string `json:"timestamp"`
	Activity    string `json:"activity"`
	Application string `json:"application,omitempty"`
}

// ToolUsage counts how often a tool appeared in the recording.
type ToolUsage struct {
	Tool  string `json:"tool"`
	Count int    `json:"count"`
}

// StuckMoment is an interval during which the candidate made no visible progress.
type StuckMoment struct {
	Start           string     `json:"start"`
	End             string     `json:"end"`
	DurationSeconds float64    `json:"duration_seconds"`
	Cause           StuckCause `json:"cause"`
	Description     string     `json:"description,omitempty"`
}

// RecordingAnalysis is the output of the screen recording analysis service.
type RecordingAnalysis struct {
	Activities        []Activity    `json:"activities,omitempty"`
	ToolUsage         []ToolUsage   `json:"tool_usage,omitempty"`
	StuckMoments      []StuckMoment `json:"stuck_moments,omitempty"`
	ActiveTimeSeconds float64       `json:"active_time_seconds"`
	IdleTimeSeconds   float64       `json:"idle_time_seconds"`
	FocusScore        *float64      `json:"focus_score,omitempty"`
	AIToolsUsed       bool          `json:"ai_tools_used"`
	Observations      []string      `json:"observations,omitempty"`
}

// ActiveRatio returns active/(active+idle), and false when no time was tracked.
func (r *RecordingAnalysis) ActiveRatio() (float64, bool) {
	if r == nil {
		return 0, false
	}
	total := r.ActiveTimeSeconds + r.IdleTimeSeconds
	if total <= 0 {
		return 0, false
	}
	return r.ActiveTimeSeconds / total, true
}

// AverageStuckSeconds returns the mean stuck-moment duration, 0 when there are none.
func (r *RecordingAnalysis) AverageStuckSeconds() float64 {
	if r == nil || len(r.StuckMoments) == 0 {
		return 0
	}
	var sum float64
	for _, m := range r.StuckMoments {
		sum += m.DurationSeconds
	}
	return sum / float64(len(r.StuckMoments))
}

// CountStuck returns how many stuck moments carry the given cause.
func (r *RecordingAnalysis) CountStuck(cause StuckCause) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, m := range r.StuckMoments {
		if m.Cause == cause {
			n++
		}
	}
	return n
}

// CodeReview is the automated review of the candidate's pull request.
type CodeReview struct {
	OverallScore         float64 `json:"overall_score"`
	CodeQualityScore     float64 `json:"code_quality_score"`
	PatternsScore        float64 `json:"patterns_score"`
	SecurityScore        float64 `json:"security_score"`
	MaintainabilityScore float64 `json:"maintainability_score"`

	Summary         string          `json:"summary,omitempty"`
	Maintainability Maintainability `json:"maintainability,omitempty"`
}

// Maintainability breaks the maintainability score down.
type Maintainability struct {
	Readability   float64 `json:"readability,omitempty"`
	Modularity    float64 `json:"modularity,omitempty"`
	TestCoverage  float64 `json:"test_coverage,omitempty"`
	Documentation float64 `json:"documentation,omitempty"`
}

// CIOutcome is the state reported by the CI provider for the candidate's PR.
type CIOutcome string

const (
	CISuccess CIOutcome = "success"
	CIFailure CIOutcome = "failure"
	CIPending CIOutcome = "pending"
	CIError   CIOutcome = "error"
)

// CIStatus is the latest CI run for the pull request.
type CIStatus struct {
	Outcome     CIOutcome `json:"outcome"`
	TestsPassed int       `json:"tests_passed,omitempty"`
	TestsFailed int       `json:"tests_failed,omitempty"`
	URL         string    `json:"url,omitempty"`
}

// Timing records when the session ran.
type Timing struct {
	StartedAt              time.Time  `json:"started_at"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	TotalDurationSeconds   *int       `json:"total_duration_seconds,omitempty"`
	WorkingDurationSeconds *int       `json:"working_duration_seconds,omitempty"`
}

// TotalSeconds returns the explicit total duration, or one derived from start/completion.
func (t Timing) TotalSeconds() (int, bool) {
	if t.TotalDurationSeconds != nil {
		return *t.TotalDurationSeconds, true
	}
	if t.CompletedAt != nil && !t.StartedAt.IsZero() && t.CompletedAt.After(t.StartedAt) {
		return int(t.CompletedAt.Sub(t.StartedAt).Seconds()), true
	}
	return 0, false
}
