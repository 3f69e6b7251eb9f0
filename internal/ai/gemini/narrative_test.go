package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/worksim-assessor/internal/ai"
	"github.com/spigell/worksim-assessor/internal/assessment"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func sampleRequest() ai.NarrativeRequest {
	return ai.NarrativeRequest{
		Signals: &assessment.Signals{
			ScenarioName:  "payments-refactor",
			Conversations: &assessment.Conversations{UniqueCoworkers: 2, TotalInteractions: 5},
		},
		SkillScores: []assessment.SkillScore{
			{Category: assessment.CategoryCodeQuality, Score: 4, Level: assessment.LevelStrong, Evidence: []string{"Code review overall score: 4/5"}},
			{Category: assessment.CategoryPresentation, Score: 2, Level: assessment.LevelDeveloping},
		},
		OverallScore: 3.6,
	}
}

func TestWriteNarrative(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + `{
		"summary": "Solid delivery with clear code.",
		"strengths": ["Clean diff"],
		"areas_for_improvement": "Explain trade-offs",
		"observations": []
	}` + "\n```"}

	narrative, err := NewNarrativeWriter(stub, zap.NewNop()).WriteNarrative(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if narrative.Summary != "Solid delivery with clear code." {
		t.Fatalf("unexpected summary %q", narrative.Summary)
	}
	if len(narrative.Strengths) != 1 || len(narrative.AreasForImprovement) != 1 {
		t.Fatalf("unexpected lists: %+v", narrative)
	}
	if narrative.Observations == nil {
		t.Fatal("expected observations to be an empty list, not nil")
	}

	for _, want := range []string{"Scenario: payments-refactor", "Overall score (1-5): 3.6", "Code review overall score: 4/5", `"unique_coworkers": 2`} {
		if !strings.Contains(stub.lastPrompt, want) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", want, stub.lastPrompt)
		}
	}
}

func TestWriteNarrativeErrors(t *testing.T) {
	cases := map[string]*stubGenerator{
		"generator error": {err: errors.New("quota")},
		"invalid json":    {response: "not json"},
		"no summary":      {response: `{"strengths": ["x"]}`},
	}

	for name, stub := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewNarrativeWriter(stub, nil).WriteNarrative(context.Background(), sampleRequest()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestWriteRecommendations(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	stub := &stubGenerator{response: `{"recommendations": [
		{"category": "presentation", "priority": "HIGH", "title": "Rehearse the walkthrough", "description": "Defense call was short", "actions": ["Record a 5 minute demo"]},
		{"category": "charisma", "priority": "low", "title": "Smile"},
		{"category": "code_quality", "priority": "urgent", "title": "Add tests"}
	]}`}

	recs, err := NewNarrativeWriter(stub, zap.New(core)).WriteRecommendations(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d: %+v", len(recs), recs)
	}
	if recs[0].Priority != ai.PriorityHigh || recs[0].Category != assessment.CategoryPresentation {
		t.Fatalf("unexpected first recommendation %+v", recs[0])
	}
	if recs[1].Priority != ai.PriorityMedium {
		t.Fatalf("expected unknown priority to normalize to medium, got %q", recs[1].Priority)
	}
	if observed.Len() != 1 {
		t.Fatalf("expected a warning about dropped recommendations, got %d entries", observed.Len())
	}
	if !strings.Contains(stub.lastPrompt, "technical_decision_making") {
		t.Fatalf("expected category list in prompt")
	}
}

func TestParseRecommendationsAcceptsBareArray(t *testing.T) {
	recs, dropped, err := parseRecommendations(`[{"category": "ai_leverage", "priority": "low", "title": "Try an assistant"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 0 || len(recs) != 1 || recs[0].Category != assessment.CategoryAILeverage {
		t.Fatalf("unexpected result: %+v dropped=%d", recs, dropped)
	}

	if _, _, err := parseRecommendations(`{"recommendations": [{"category": "unknown"}]}`); err == nil {
		t.Fatal("expected error when nothing usable remains")
	}
}
