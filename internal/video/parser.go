package video

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/worksim-assessor/internal/ai"
	"github.com/spigell/worksim-assessor/internal/rubric"
)

// ErrInvalidResponse marks a model answer that cannot be turned into an assessment.
var ErrInvalidResponse = errors.New("invalid evaluation response")

type rawDimension struct {
	Score               any `mapstructure:"score"`
	Summary             any `mapstructure:"summary"`
	Confidence          any `mapstructure:"confidence"`
	Rationale           any `mapstructure:"rationale"`
	ObservableBehaviors any `mapstructure:"observable_behaviors"`
	Evidence            any `mapstructure:"evidence"`
	Timestamps          any `mapstructure:"timestamps"`
	TrainableGap        any `mapstructure:"trainable_gap"`
	GreenFlags          any `mapstructure:"green_flags"`
	RedFlags            any `mapstructure:"red_flags"`
}

// ParseResponse converts raw model output into a RubricAssessment.
// overall_score, dimension_scores and overall_summary are mandatory; every other
// field falls back to a default. Dimension display names are left empty until Enrich.
func ParseResponse(raw string) (*RubricAssessment, error) {
	cleaned := ai.StripCodeFence(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", ErrInvalidResponse, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: response is not a json object", ErrInvalidResponse)
	}

	overall, ok := data["overall_score"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: overall_score must be a number", ErrInvalidResponse)
	}
	dims, ok := data["dimension_scores"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: dimension_scores must be an object", ErrInvalidResponse)
	}
	summary, ok := data["overall_summary"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: overall_summary must be a string", ErrInvalidResponse)
	}

	out := &RubricAssessment{
		EvaluationVersion:         ai.CoerceString(data["evaluation_version"]),
		RoleFamily:                ai.CoerceString(data["role_family"]),
		OverallScore:              overall,
		Dimensions:                make([]DimensionResult, 0, len(dims)),
		RedFlags:                  notes(firstPresent(data, "detected_red_flags", "red_flags")),
		TopStrengths:              notes(data["top_strengths"]),
		GrowthAreas:               notes(data["growth_areas"]),
		OverallSummary:            strings.TrimSpace(summary),
		Confidence:                parseConfidence(data["evaluation_confidence"]),
		InsufficientEvidenceNotes: ai.CoerceString(data["insufficient_evidence_notes"]),
	}

	slugs := make([]string, 0, len(dims))
	for slug := range dims {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		d, err := parseDimension(slug, dims[slug])
		if err != nil {
			return nil, err
		}
		out.Dimensions = append(out.Dimensions, d)
	}
	return out, nil
}

func parseDimension(slug string, value any) (DimensionResult, error) {
	var raw rawDimension
	if entry, ok := value.(map[string]any); ok {
		if err := mapstructure.Decode(entry, &raw); err != nil {
			return DimensionResult{}, fmt.Errorf("%w: dimension %s: %v", ErrInvalidResponse, slug, err)
		}
	} else {
		// A bare number is read as the score of a dimension without evidence.
		raw.Score = value
	}

	behaviorsRaw := raw.ObservableBehaviors
	if behaviorsRaw == nil {
		behaviorsRaw = raw.Evidence
	}
	behaviors := pairBehaviors(toList(behaviorsRaw), toList(raw.Timestamps))

	return DimensionResult{
		Slug:         slug,
		Score:        parseScore(raw.Score),
		Summary:      ai.CoerceString(raw.Summary),
		Confidence:   parseConfidence(raw.Confidence),
		Rationale:    ai.CoerceString(raw.Rationale),
		Behaviors:    behaviors,
		Timestamps:   projectTimestamps(behaviors),
		TrainableGap: ai.CoerceBool(raw.TrainableGap),
		GreenFlags:   notes(raw.GreenFlags),
		RedFlags:     notes(raw.RedFlags),
	}, nil
}

// pairBehaviors reads the v3 shape ([{timestamp, behavior}]) or the v2 shape
// (flat behavior strings plus a parallel timestamps list). The shape is decided by
// the first element; later elements of another shape are kept as plain text.
func pairBehaviors(behaviors, timestamps []any) []BehaviorEvidence {
	out := make([]BehaviorEvidence, 0, len(behaviors))
	if len(behaviors) == 0 {
		return out
	}

	if isPaired(behaviors[0]) {
		for _, item := range behaviors {
			entry, ok := item.(map[string]any)
			if !ok {
				if text := ai.CoerceString(item); text != "" {
					out = append(out, BehaviorEvidence{Behavior: text})
				}
				continue
			}
			text := ai.CoerceString(firstPresent(entry, "behavior", "description"))
			if text == "" {
				continue
			}
			out = append(out, BehaviorEvidence{
				Timestamp: ai.CoerceString(entry["timestamp"]),
				Behavior:  text,
			})
		}
		return out
	}

	for i, item := range behaviors {
		text := ai.CoerceString(item)
		if text == "" {
			continue
		}
		ts := ""
		if i < len(timestamps) {
			ts = ai.CoerceString(timestamps[i])
		}
		out = append(out, BehaviorEvidence{Timestamp: ts, Behavior: text})
	}
	return out
}

func isPaired(item any) bool {
	entry, ok := item.(map[string]any)
	if !ok {
		return false
	}
	_, hasTimestamp := entry["timestamp"]
	_, hasBehavior := entry["behavior"]
	return hasTimestamp || hasBehavior
}

func projectTimestamps(behaviors []BehaviorEvidence) []string {
	out := make([]string, 0, len(behaviors))
	for _, b := range behaviors {
		if b.Timestamp != "" {
			out = append(out, b.Timestamp)
		}
	}
	return out
}

func parseScore(v any) *int {
	f := ai.CoerceFloat(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	score := int(math.Round(f))
	if score < 1 {
		score = 1
	}
	if score > 5 {
		score = 5
	}
	return &score
}

func parseConfidence(v any) Confidence {
	s, ok := v.(string)
	if !ok {
		return assumedConfidence()
	}
	switch level := ConfidenceLevel(strings.ToLower(strings.TrimSpace(s))); level {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return Confidence{Level: level, Asserted: true}
	default:
		return assumedConfidence()
	}
}

// notes reads a list of strings, taking the text out of object items.
func notes(v any) []string {
	out := []string{}
	for _, item := range toList(v) {
		if entry, ok := item.(map[string]any); ok {
			item = firstPresent(entry, "description", "behavior", "text", "title")
			if item == nil {
				item = entry
			}
		}
		if s := ai.CoerceString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toList(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	default:
		return []any{val}
	}
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func normalizeKey(slug string) string {
	return rubric.NormalizeSlug(slug)
}

// Enrich fills display names from the rubric and orders dimensions the way the rubric lists them.
// Dimensions the rubric does not know keep their slug as name and go last.
func (a *RubricAssessment) Enrich(r *rubric.Rubric) {
	if a == nil {
		return
	}
	lookup := r.Lookup()
	order := make(map[string]int, len(lookup))
	for i, slug := range r.Slugs() {
		order[normalizeKey(slug)] = i
	}

	for i := range a.Dimensions {
		d := &a.Dimensions[i]
		if meta, ok := lookup[normalizeKey(d.Slug)]; ok {
			d.Slug = meta.Slug
			d.Name = meta.Name
			continue
		}
		if d.Name == "" {
			d.Name = d.Slug
		}
	}

	sort.SliceStable(a.Dimensions, func(i, j int) bool {
		oi, iKnown := order[normalizeKey(a.Dimensions[i].Slug)]
		oj, jKnown := order[normalizeKey(a.Dimensions[j].Slug)]
		switch {
		case iKnown && jKnown:
			return oi < oj
		case iKnown != jKnown:
			return iKnown
		default:
			return a.Dimensions[i].Slug < a.Dimensions[j].Slug
		}
	})

	if a.RoleFamily == "" && r != nil {
		a.RoleFamily = r.RoleFamily
	}
	if a.EvaluationVersion == "" && r != nil {
		a.EvaluationVersion = r.Version
	}
}
