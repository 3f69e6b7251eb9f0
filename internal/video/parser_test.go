package video

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/spigell/worksim-assessor/internal/rubric"
)

func TestParseResponseFencedV2(t *testing.T) {
	raw := "```json\n" + `{
  "overall_score": 4,
  "dimension_scores": {
    "COMMUNICATION": {"score": 4, "observable_behaviors": ["said X"], "timestamps": ["1:02"]}
  },
  "overall_summary": "Solid"
}` + "\n```"

	got, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Dimensions) != 1 {
		t.Fatalf("expected one dimension, got %d", len(got.Dimensions))
	}

	d := got.Dimensions[0]
	want := []BehaviorEvidence{{Timestamp: "1:02", Behavior: "said X"}}
	if !reflect.DeepEqual(d.Behaviors, want) {
		t.Fatalf("unexpected behaviors %+v", d.Behaviors)
	}
	if d.Score == nil || *d.Score != 4 {
		t.Fatalf("unexpected score %v", d.Score)
	}
	if got.OverallScore != 4 || got.OverallSummary != "Solid" {
		t.Fatalf("unexpected overall fields %+v", got)
	}
}

func TestParseResponseV2AndV3Equivalent(t *testing.T) {
	v2 := `{"overall_score": 3.5, "overall_summary": "ok", "dimension_scores": {
		"code_quality": {"score": 3, "observable_behaviors": ["wrote tests", "renamed helpers", "left TODO"], "timestamps": ["2:10", "5:00"]}
	}}`
	v3 := `{"overall_score": 3.5, "overall_summary": "ok", "dimension_scores": {
		"code_quality": {"score": 3, "observable_behaviors": [
			{"timestamp": "2:10", "behavior": "wrote tests"},
			{"timestamp": "5:00", "behavior": "renamed helpers"},
			{"timestamp": "", "behavior": "left TODO"}
		]}
	}}`

	a, err := ParseResponse(v2)
	if err != nil {
		t.Fatalf("v2: %v", err)
	}
	b, err := ParseResponse(v3)
	if err != nil {
		t.Fatalf("v3: %v", err)
	}

	if !reflect.DeepEqual(a.Dimensions[0].Behaviors, b.Dimensions[0].Behaviors) {
		t.Fatalf("shapes disagree:\nv2=%+v\nv3=%+v", a.Dimensions[0].Behaviors, b.Dimensions[0].Behaviors)
	}
	if a.Dimensions[0].Behaviors[2].Timestamp != "" {
		t.Fatalf("expected missing v2 timestamp to map to empty string")
	}
	if !reflect.DeepEqual(a.Dimensions[0].Timestamps, []string{"2:10", "5:00"}) {
		t.Fatalf("unexpected flattened timestamps %v", a.Dimensions[0].Timestamps)
	}
}

func TestParseResponseMandatoryFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "  ", want: "empty response"},
		{name: "not json", raw: "the candidate did well", want: "decode json"},
		{name: "missing overall score", raw: `{"dimension_scores": {}, "overall_summary": "x"}`, want: "overall_score"},
		{name: "string overall score", raw: `{"overall_score": "4", "dimension_scores": {}, "overall_summary": "x"}`, want: "overall_score"},
		{name: "dimension scores array", raw: `{"overall_score": 4, "dimension_scores": [], "overall_summary": "x"}`, want: "dimension_scores"},
		{name: "missing summary", raw: `{"overall_score": 4, "dimension_scores": {}}`, want: "overall_summary"},
		{name: "numeric summary", raw: `{"overall_score": 4, "dimension_scores": {}, "overall_summary": 5}`, want: "overall_summary"},
		{name: "json array", raw: `[1, 2]`, want: "decode json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.raw)
			if !errors.Is(err, ErrInvalidResponse) {
				t.Fatalf("expected ErrInvalidResponse, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error to mention %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseResponseDefaults(t *testing.T) {
	got, err := ParseResponse(`{"overall_score": 2, "dimension_scores": {"presentation": {}}, "overall_summary": "short"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := got.Dimensions[0]
	if d.Score != nil {
		t.Fatalf("expected nil score, got %d", *d.Score)
	}
	if d.Confidence != (Confidence{Level: ConfidenceMedium}) {
		t.Fatalf("expected assumed medium confidence, got %+v", d.Confidence)
	}
	if d.Summary != "" || d.Rationale != "" || d.TrainableGap {
		t.Fatalf("unexpected defaults %+v", d)
	}
	if d.Behaviors == nil || d.Timestamps == nil || d.GreenFlags == nil || d.RedFlags == nil {
		t.Fatalf("expected empty lists, got %+v", d)
	}
	if got.RedFlags == nil || got.TopStrengths == nil || got.GrowthAreas == nil {
		t.Fatalf("expected empty top-level lists, got %+v", got)
	}
	if got.Confidence.Asserted {
		t.Fatalf("expected evaluation confidence to be assumed")
	}
}

func TestParseResponseConfidence(t *testing.T) {
	tests := []struct {
		value any
		want  Confidence
	}{
		{value: "high", want: Confidence{Level: ConfidenceHigh, Asserted: true}},
		{value: " Medium ", want: Confidence{Level: ConfidenceMedium, Asserted: true}},
		{value: "LOW", want: Confidence{Level: ConfidenceLow, Asserted: true}},
		{value: "certain", want: Confidence{Level: ConfidenceMedium}},
		{value: 0.9, want: Confidence{Level: ConfidenceMedium}},
		{value: nil, want: Confidence{Level: ConfidenceMedium}},
	}

	for _, tt := range tests {
		if got := parseConfidence(tt.value); got != tt.want {
			t.Fatalf("parseConfidence(%v) = %+v, want %+v", tt.value, got, tt.want)
		}
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		value any
		want  *int
	}{
		{value: 4.0, want: intPtr(4)},
		{value: 3.5, want: intPtr(4)},
		{value: 7.0, want: intPtr(5)},
		{value: 0.0, want: intPtr(1)},
		{value: "3", want: intPtr(3)},
		{value: nil, want: nil},
		{value: "n/a", want: nil},
		{value: map[string]any{}, want: nil},
	}

	for _, tt := range tests {
		got := parseScore(tt.value)
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Fatalf("parseScore(%v) = %v, want %v", tt.value, deref(got), deref(tt.want))
		}
	}
}

func TestParseResponseOptionalFields(t *testing.T) {
	raw := `{
  "evaluation_version": "v3",
  "overall_score": 4.2,
  "overall_summary": "Strong session",
  "evaluation_confidence": "high",
  "detected_red_flags": ["skipped tests"],
  "top_strengths": [{"dimension": "communication", "description": "clear status updates"}],
  "growth_areas": "testing discipline",
  "insufficient_evidence_notes": "presentation not recorded",
  "dimension_scores": {
    "communication": {
      "score": 5,
      "summary": "clear",
      "confidence": "high",
      "rationale": "proactive updates",
      "observable_behaviors": [{"timestamp": "0:30", "behavior": "posted plan"}],
      "trainable_gap": "yes",
      "green_flags": ["summarized plan"],
      "red_flags": []
    },
    "presentation": 3
  }
}`

	got, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.EvaluationVersion != "v3" || !got.Confidence.Asserted || got.Confidence.Level != ConfidenceHigh {
		t.Fatalf("unexpected top-level fields %+v", got)
	}
	if !reflect.DeepEqual(got.TopStrengths, []string{"clear status updates"}) {
		t.Fatalf("unexpected strengths %v", got.TopStrengths)
	}
	if !reflect.DeepEqual(got.GrowthAreas, []string{"testing discipline"}) {
		t.Fatalf("unexpected growth areas %v", got.GrowthAreas)
	}

	comm, ok := got.Dimension("COMMUNICATION")
	if !ok {
		t.Fatalf("communication dimension missing")
	}
	if !comm.TrainableGap || comm.Rationale != "proactive updates" || comm.Summary != "clear" {
		t.Fatalf("unexpected communication dimension %+v", comm)
	}
	if !reflect.DeepEqual(comm.Timestamps, []string{"0:30"}) {
		t.Fatalf("unexpected timestamps %v", comm.Timestamps)
	}

	pres, ok := got.Dimension("presentation")
	if !ok || pres.Score == nil || *pres.Score != 3 {
		t.Fatalf("expected bare number to be read as score, got %+v", pres)
	}
}

func TestParseResponseMixedBehaviorShapes(t *testing.T) {
	raw := `{"overall_score": 3, "overall_summary": "x", "dimension_scores": {
		"communication": {"score": 3, "observable_behaviors": [{"timestamp": "1:00", "behavior": "asked"}, "waved"]}
	}}`

	got, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []BehaviorEvidence{{Timestamp: "1:00", Behavior: "asked"}, {Behavior: "waved"}}
	if !reflect.DeepEqual(got.Dimensions[0].Behaviors, want) {
		t.Fatalf("unexpected behaviors %+v", got.Dimensions[0].Behaviors)
	}
}

func TestEnrichUsesRubricNamesAndOrder(t *testing.T) {
	r := &rubric.Rubric{
		RoleFamily: "software_engineer",
		Version:    "v3",
		Dimensions: []rubric.Dimension{
			{Slug: "communication", Name: "Communication"},
			{Slug: "code_quality", Name: "Code Quality"},
		},
	}
	a := &RubricAssessment{Dimensions: []DimensionResult{
		{Slug: "zeal"},
		{Slug: "CODE_QUALITY"},
		{Slug: "communication"},
	}}

	a.Enrich(r)

	var got []string
	for _, d := range a.Dimensions {
		got = append(got, d.Slug+"="+d.Name)
	}
	want := []string{"communication=Communication", "code_quality=Code Quality", "zeal=zeal"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected enrichment %v", got)
	}
	if a.EvaluationVersion != "v3" || a.RoleFamily != "software_engineer" {
		t.Fatalf("expected rubric defaults, got %q/%q", a.EvaluationVersion, a.RoleFamily)
	}
}

func intPtr(v int) *int { return &v }

func deref(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
