package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/worksim-assessor/internal/ai"
	"github.com/spigell/worksim-assessor/internal/assessment"
	"github.com/spigell/worksim-assessor/internal/logger"
)

//go:embed narrative_prompt.md
var narrativeTemplate string

//go:embed recommendations_prompt.md
var recommendationsTemplate string

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// NarrativeWriter asks Gemini for the prose parts of a competency report.
type NarrativeWriter struct {
	generator contentGenerator
	logger    *zap.Logger
}

// NewNarrativeWriter creates a writer on top of any text generator, usually a *Generator.
func NewNarrativeWriter(generator contentGenerator, l *zap.Logger) *NarrativeWriter {
	return &NarrativeWriter{generator: generator, logger: logger.OrNop(l)}
}

func (w *NarrativeWriter) WriteNarrative(ctx context.Context, req ai.NarrativeRequest) (*ai.Narrative, error) {
	prompt, err := buildNarrativePrompt(req)
	if err != nil {
		return nil, err
	}

	raw, err := w.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return parseNarrative(raw)
}

func (w *NarrativeWriter) WriteRecommendations(ctx context.Context, req ai.NarrativeRequest) ([]ai.Recommendation, error) {
	prompt, err := buildRecommendationsPrompt(req)
	if err != nil {
		return nil, err
	}

	raw, err := w.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	recs, dropped, err := parseRecommendations(raw)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		w.logger.Warn("dropped recommendations with unknown category", zap.Int("dropped", dropped))
	}

	return recs, nil
}

type promptScore struct {
	Category string   `json:"category"`
	Score    int      `json:"score"`
	Level    string   `json:"level"`
	Evidence []string `json:"evidence"`
}

func scoresJSON(scores []assessment.SkillScore) (string, error) {
	out := make([]promptScore, 0, len(scores))
	for _, s := range scores {
		out = append(out, promptScore{
			Category: string(s.Category),
			Score:    s.Score,
			Level:    string(s.Level),
			Evidence: s.Evidence,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal skill scores: %w", err)
	}
	return string(data), nil
}

func formatOverall(v float64) string {
	if math.IsNaN(v) {
		return "unavailable"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func buildNarrativePrompt(req ai.NarrativeRequest) (string, error) {
	scores, err := scoresJSON(req.SkillScores)
	if err != nil {
		return "", err
	}

	metrics := map[string]any{}
	scenario := "unknown"
	if s := req.Signals; s != nil {
		if s.ScenarioName != "" {
			scenario = s.ScenarioName
		}
		if total, ok := s.Timing.TotalSeconds(); ok {
			metrics["total_duration_seconds"] = total
		}
		if c := s.Conversations; c != nil {
			metrics["unique_coworkers"] = c.UniqueCoworkers
			metrics["total_interactions"] = c.TotalInteractions
		}
		if s.CI != nil {
			metrics["ci_outcome"] = s.CI.Outcome
		}
	}
	metricsJSON, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metrics: %w", err)
	}

	return strings.NewReplacer(
		"{{SCENARIO}}", scenario,
		"{{OVERALL_SCORE}}", formatOverall(req.OverallScore),
		"{{SCORES_JSON}}", scores,
		"{{METRICS_JSON}}", string(metricsJSON),
	).Replace(narrativeTemplate), nil
}

func buildRecommendationsPrompt(req ai.NarrativeRequest) (string, error) {
	scores, err := scoresJSON(req.SkillScores)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, 8)
	for _, c := range assessment.Categories() {
		names = append(names, string(c))
	}

	return strings.NewReplacer(
		"{{CATEGORIES}}", strings.Join(names, ", "),
		"{{OVERALL_SCORE}}", formatOverall(req.OverallScore),
		"{{SCORES_JSON}}", scores,
	).Replace(recommendationsTemplate), nil
}

func parseNarrative(raw string) (*ai.Narrative, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(ai.StripCodeFence(raw)), &data); err != nil {
		return nil, fmt.Errorf("parse narrative response: %w", err)
	}

	summary := ai.CoerceString(data["summary"])
	if summary == "" {
		return nil, errors.New("narrative response has no summary")
	}

	return &ai.Narrative{
		Summary:             summary,
		Strengths:           ai.CoerceStrings(data["strengths"]),
		AreasForImprovement: ai.CoerceStrings(data["areas_for_improvement"]),
		Observations:        ai.CoerceStrings(data["observations"]),
	}, nil
}

func parseRecommendations(raw string) ([]ai.Recommendation, int, error) {
	cleaned := ai.StripCodeFence(raw)

	var items []any
	var wrapped map[string]any
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err == nil {
		list, ok := wrapped["recommendations"].([]any)
		if !ok {
			return nil, 0, errors.New("recommendations response has no recommendations list")
		}
		items = list
	} else if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, 0, fmt.Errorf("parse recommendations response: %w", err)
	}

	known := make(map[assessment.Category]struct{}, 8)
	for _, c := range assessment.Categories() {
		known[c] = struct{}{}
	}

	out := make([]ai.Recommendation, 0, len(items))
	dropped := 0
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			dropped++
			continue
		}

		category := assessment.Category(strings.ToLower(ai.CoerceString(m["category"])))
		if _, ok := known[category]; !ok {
			dropped++
			continue
		}

		out = append(out, ai.Recommendation{
			Category:    category,
			Priority:    normalizePriority(ai.CoerceString(m["priority"])),
			Title:       ai.CoerceString(m["title"]),
			Description: ai.CoerceString(m["description"]),
			Actions:     ai.CoerceStrings(m["actions"]),
		})
	}

	if len(out) == 0 {
		return nil, dropped, errors.New("recommendations response has no usable recommendations")
	}

	return out, dropped, nil
}

func normalizePriority(p string) ai.Priority {
	switch ai.Priority(strings.ToLower(strings.TrimSpace(p))) {
	case ai.PriorityHigh:
		return ai.PriorityHigh
	case ai.PriorityLow:
		return ai.PriorityLow
	default:
		return ai.PriorityMedium
	}
}
