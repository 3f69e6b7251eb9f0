// Package report assembles the candidate competency report from deterministic
// skill scores and model-written prose.
package report

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/worksim-assessor/internal/ai"
	"github.com/spigell/worksim-assessor/internal/assessment"
	"github.com/spigell/worksim-assessor/internal/logger"
	"github.com/spigell/worksim-assessor/internal/scoring"
)

// TestStatus summarizes CI for the report.
type TestStatus string

const (
	TestsPassing TestStatus = "passing"
	TestsFailing TestStatus = "failing"
	TestsPending TestStatus = "pending"
	TestsNone    TestStatus = "none"
)

// Metrics are the raw session figures shown next to the scores.
type Metrics struct {
	TotalDurationSeconds   *int       `json:"total_duration_seconds,omitempty"`
	WorkingDurationSeconds *int       `json:"working_duration_seconds,omitempty"`
	CoworkersContacted     int        `json:"coworkers_contacted"`
	AIToolsUsed            bool       `json:"ai_tools_used"`
	TestStatus             TestStatus `json:"test_status"`
	CodeReviewScore        *float64   `json:"code_review_score,omitempty"`
}

// Report is the assembled competency report.
type Report struct {
	AssessmentID string `json:"assessment_id"`
	UserID       string `json:"user_id,omitempty"`
	ScenarioName string `json:"scenario_name,omitempty"`
	// OverallScore is nil when no category could be weighted.
	OverallScore    *float64                `json:"overall_score"`
	OverallLevel    assessment.Level        `json:"overall_level,omitempty"`
	SkillScores     []assessment.SkillScore `json:"skill_scores"`
	Narrative       ai.Narrative            `json:"narrative"`
	Recommendations []ai.Recommendation     `json:"recommendations"`
	Metrics         Metrics                 `json:"metrics"`
	GeneratedAt     time.Time               `json:"generated_at"`
}

// Assembler builds reports. A nil writer always produces the fallback prose.
type Assembler struct {
	scorer *scoring.Scorer
	writer ai.NarrativeWriter
	logger *zap.Logger
	now    func() time.Time
}

func NewAssembler(writer ai.NarrativeWriter, l *zap.Logger) *Assembler {
	l = logger.OrNop(l).Named("report")
	return &Assembler{
		scorer: scoring.NewScorer(l),
		writer: writer,
		logger: l,
		now:    time.Now,
	}
}

// Assemble scores the signals and merges the result with generated prose.
// Narrative and recommendation failures are replaced by deterministic fallbacks.
func (a *Assembler) Assemble(ctx context.Context, signals *assessment.Signals) *Report {
	if signals == nil {
		signals = &assessment.Signals{}
	}
	log := logger.WithAssessment(a.logger, signals.AssessmentID, "")

	scores := a.scorer.Score(signals)
	overall := scoring.Overall(scores)

	rep := &Report{
		AssessmentID: signals.AssessmentID,
		UserID:       signals.UserID,
		ScenarioName: signals.ScenarioName,
		SkillScores:  scores,
		Metrics:      BuildMetrics(signals),
		GeneratedAt:  a.now().UTC(),
	}
	if !math.IsNaN(overall) {
		rep.OverallScore = &overall
		rep.OverallLevel = scoring.ScoreToLevel(overall)
	}

	req := ai.NarrativeRequest{Signals: signals, SkillScores: scores, OverallScore: overall}
	rep.Narrative = a.narrative(ctx, req, log)
	rep.Recommendations = a.recommendations(ctx, req, log)

	log.Info("report assembled",
		zap.Float64("overall_score", overall),
		zap.Bool("fallback_narrative", rep.Narrative.Fallback),
		zap.Int("recommendations", len(rep.Recommendations)),
	)
	return rep
}

func (a *Assembler) narrative(ctx context.Context, req ai.NarrativeRequest, log *zap.Logger) ai.Narrative {
	if a.writer != nil {
		n, err := a.writer.WriteNarrative(ctx, req)
		if err == nil && n != nil {
			return *n
		}
		log.Warn("narrative generation failed, using fallback", zap.Error(err))
	}
	return FallbackNarrative(req.SkillScores, req.OverallScore)
}

func (a *Assembler) recommendations(ctx context.Context, req ai.NarrativeRequest, log *zap.Logger) []ai.Recommendation {
	if a.writer != nil {
		recs, err := a.writer.WriteRecommendations(ctx, req)
		if err == nil && len(recs) > 0 {
			return recs
		}
		log.Warn("recommendation generation failed, using fallback", zap.Error(err))
	}
	return FallbackRecommendations(req.SkillScores)
}

// BuildMetrics extracts the report metrics block from signals.
func BuildMetrics(s *assessment.Signals) Metrics {
	m := Metrics{
		WorkingDurationSeconds: s.Timing.WorkingDurationSeconds,
		AIToolsUsed:            scoring.UsesAITools(s.Recording),
		TestStatus:             testStatus(s.CI),
	}
	if total, ok := s.Timing.TotalSeconds(); ok {
		m.TotalDurationSeconds = &total
	}
	if s.Conversations != nil {
		m.CoworkersContacted = s.Conversations.UniqueCoworkers
	}
	if s.CodeReview != nil {
		score := s.CodeReview.OverallScore
		m.CodeReviewScore = &score
	}
	return m
}

func testStatus(ci *assessment.CIStatus) TestStatus {
	if ci == nil {
		return TestsNone
	}
	switch ci.Outcome {
	case assessment.CISuccess:
		if ci.TestsFailed > 0 {
			return TestsFailing
		}
		return TestsPassing
	case assessment.CIFailure, assessment.CIError:
		return TestsFailing
	case assessment.CIPending:
		return TestsPending
	default:
		return TestsNone
	}
}
