package report

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/worksim-assessor/internal/ai"
	"github.com/spigell/worksim-assessor/internal/assessment"
)

type stubWriter struct {
	narrative    *ai.Narrative
	narrativeErr error
	recs         []ai.Recommendation
	recsErr      error
	calls        int
}

func (s *stubWriter) WriteNarrative(context.Context, ai.NarrativeRequest) (*ai.Narrative, error) {
	s.calls++
	return s.narrative, s.narrativeErr
}

func (s *stubWriter) WriteRecommendations(context.Context, ai.NarrativeRequest) ([]ai.Recommendation, error) {
	s.calls++
	return s.recs, s.recsErr
}

func ptr[T any](v T) *T { return &v }

func sampleSignals() *assessment.Signals {
	return &assessment.Signals{
		AssessmentID: "a1",
		UserID:       "u1",
		ScenarioName: "checkout-bug",
		HRInterview: &assessment.HRInterview{
			CommunicationScore:  ptr(5.0),
			TechnicalDepthScore: ptr(4.0),
		},
		Conversations: &assessment.Conversations{UniqueCoworkers: 0},
		CodeReview:    &assessment.CodeReview{OverallScore: 4},
		CI:            &assessment.CIStatus{Outcome: assessment.CISuccess},
		Recording: &assessment.RecordingAnalysis{
			ToolUsage: []assessment.ToolUsage{{Tool: "ChatGPT", Count: 3}},
		},
		Timing: assessment.Timing{
			TotalDurationSeconds:   ptr(3600),
			WorkingDurationSeconds: ptr(2700),
		},
	}
}

func TestAssembleUsesWriterOutput(t *testing.T) {
	writer := &stubWriter{
		narrative: &ai.Narrative{Summary: "Great session", Strengths: []string{"x"}},
		recs:      []ai.Recommendation{{Category: assessment.CategoryPresentation, Priority: ai.PriorityLow, Title: "t"}},
	}
	a := NewAssembler(writer, nil)

	rep := a.Assemble(context.Background(), sampleSignals())

	if rep.Narrative.Summary != "Great session" || rep.Narrative.Fallback {
		t.Fatalf("unexpected narrative %+v", rep.Narrative)
	}
	if len(rep.Recommendations) != 1 || rep.Recommendations[0].Title != "t" {
		t.Fatalf("unexpected recommendations %+v", rep.Recommendations)
	}
	if len(rep.SkillScores) != 8 {
		t.Fatalf("expected 8 skill scores, got %d", len(rep.SkillScores))
	}
	if rep.OverallScore == nil || rep.OverallLevel == "" {
		t.Fatalf("expected overall score, got %+v", rep)
	}
	if rep.AssessmentID != "a1" || rep.ScenarioName != "checkout-bug" {
		t.Fatalf("unexpected identifiers %+v", rep)
	}
}

func TestAssembleFallsBackIndependently(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	writer := &stubWriter{
		narrativeErr: errors.New("quota exceeded"),
		recs:         []ai.Recommendation{{Category: assessment.CategoryCodeQuality, Priority: ai.PriorityHigh, Title: "from model"}},
	}
	a := NewAssembler(writer, zap.New(core))

	rep := a.Assemble(context.Background(), sampleSignals())

	if !rep.Narrative.Fallback {
		t.Fatalf("expected fallback narrative")
	}
	if len(rep.Recommendations) != 1 || rep.Recommendations[0].Title != "from model" {
		t.Fatalf("expected model recommendations to survive narrative failure, got %+v", rep.Recommendations)
	}
	if logs.FilterMessage("narrative generation failed, using fallback").Len() != 1 {
		t.Fatalf("expected narrative fallback warning")
	}

	writer.narrativeErr = nil
	writer.narrative = &ai.Narrative{Summary: "ok"}
	writer.recsErr = errors.New("bad json")
	rep = a.Assemble(context.Background(), sampleSignals())
	if rep.Narrative.Fallback || len(rep.Recommendations) != 3 {
		t.Fatalf("expected model narrative and fallback recommendations, got %+v / %d", rep.Narrative, len(rep.Recommendations))
	}
}

func TestAssembleWithoutWriter(t *testing.T) {
	a := NewAssembler(nil, nil)
	a.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	rep := a.Assemble(context.Background(), nil)

	if !rep.Narrative.Fallback || len(rep.Recommendations) != 3 {
		t.Fatalf("expected fallbacks, got %+v", rep)
	}
	if rep.OverallScore == nil || *rep.OverallScore != 3 {
		t.Fatalf("expected overall 3 for empty signals, got %v", rep.OverallScore)
	}
	if !rep.GeneratedAt.Equal(a.now()) {
		t.Fatalf("unexpected generated_at %v", rep.GeneratedAt)
	}
	if rep.Metrics.TestStatus != TestsNone {
		t.Fatalf("expected no test status, got %s", rep.Metrics.TestStatus)
	}
}

func TestBuildMetrics(t *testing.T) {
	m := BuildMetrics(sampleSignals())

	if m.TotalDurationSeconds == nil || *m.TotalDurationSeconds != 3600 {
		t.Fatalf("unexpected total duration %v", m.TotalDurationSeconds)
	}
	if m.WorkingDurationSeconds == nil || *m.WorkingDurationSeconds != 2700 {
		t.Fatalf("unexpected working duration %v", m.WorkingDurationSeconds)
	}
	if !m.AIToolsUsed || m.TestStatus != TestsPassing {
		t.Fatalf("unexpected metrics %+v", m)
	}
	if m.CodeReviewScore == nil || *m.CodeReviewScore != 4 {
		t.Fatalf("unexpected code review score %v", m.CodeReviewScore)
	}
}

func TestTestStatus(t *testing.T) {
	tests := []struct {
		ci   *assessment.CIStatus
		want TestStatus
	}{
		{ci: nil, want: TestsNone},
		{ci: &assessment.CIStatus{Outcome: assessment.CISuccess}, want: TestsPassing},
		{ci: &assessment.CIStatus{Outcome: assessment.CISuccess, TestsFailed: 2}, want: TestsFailing},
		{ci: &assessment.CIStatus{Outcome: assessment.CIFailure}, want: TestsFailing},
		{ci: &assessment.CIStatus{Outcome: assessment.CIError}, want: TestsFailing},
		{ci: &assessment.CIStatus{Outcome: assessment.CIPending}, want: TestsPending},
		{ci: &assessment.CIStatus{Outcome: "queued"}, want: TestsNone},
	}

	for _, tt := range tests {
		if got := testStatus(tt.ci); got != tt.want {
			t.Fatalf("testStatus(%+v) = %s, want %s", tt.ci, got, tt.want)
		}
	}
}

func TestFallbackNarrative(t *testing.T) {
	scores := []assessment.SkillScore{
		{Category: assessment.CategoryCommunication, Score: 5, Evidence: []string{"HR score 5"}},
		{Category: assessment.CategoryCodeQuality, Score: 4},
		{Category: assessment.CategoryPresentation, Score: 2},
		{Category: assessment.CategoryTimeManagement, Score: 3},
	}

	n := FallbackNarrative(scores, 3.6)

	wantStrengths := []string{"Demonstrated strong communication skills", "Demonstrated strong code quality skills"}
	if strings.Join(n.Strengths, "|") != strings.Join(wantStrengths, "|") {
		t.Fatalf("unexpected strengths %v", n.Strengths)
	}
	if len(n.AreasForImprovement) != 1 || n.AreasForImprovement[0] != "Presentation needs development" {
		t.Fatalf("unexpected improvement areas %v", n.AreasForImprovement)
	}
	if !strings.Contains(n.Summary, "3.6/5 (strong)") {
		t.Fatalf("unexpected summary %q", n.Summary)
	}
	if len(n.Observations) != 1 || n.Observations[0] != "Communication: HR score 5" {
		t.Fatalf("unexpected observations %v", n.Observations)
	}

	empty := FallbackNarrative(nil, math.NaN())
	if !strings.Contains(empty.Summary, "No skill scores") {
		t.Fatalf("unexpected empty summary %q", empty.Summary)
	}
}

func TestFallbackRecommendationsLowestThree(t *testing.T) {
	scores := []assessment.SkillScore{
		{Category: assessment.CategoryCommunication, Score: 4},
		{Category: assessment.CategoryPresentation, Score: 2},
		{Category: assessment.CategoryCodeQuality, Score: 2},
		{Category: assessment.CategoryTimeManagement, Score: 1},
		{Category: assessment.CategoryAILeverage, Score: 3},
	}

	recs := FallbackRecommendations(scores)

	if len(recs) != 3 {
		t.Fatalf("expected 3 recommendations, got %d", len(recs))
	}
	want := []struct {
		category assessment.Category
		priority ai.Priority
	}{
		{assessment.CategoryTimeManagement, ai.PriorityHigh},
		{assessment.CategoryCodeQuality, ai.PriorityMedium},
		{assessment.CategoryPresentation, ai.PriorityLow},
	}
	for i, w := range want {
		if recs[i].Category != w.category || recs[i].Priority != w.priority {
			t.Fatalf("recommendation %d = %s/%s, want %s/%s", i, recs[i].Category, recs[i].Priority, w.category, w.priority)
		}
		if len(recs[i].Actions) == 0 {
			t.Fatalf("expected actions for %s", recs[i].Category)
		}
	}
}
