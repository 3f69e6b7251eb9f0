// Package ai describes the external model collaborators of the assessor.
package ai

import (
	"context"

	"github.com/spigell/worksim-assessor/internal/assessment"
)

// Video references a candidate recording stored outside the assessor.
type Video struct {
	URI      string
	MIMEType string
}

// VideoEvaluator sends a video reference plus a prompt to a multimodal model and
// returns its raw text answer. No schema compliance is guaranteed.
type VideoEvaluator interface {
	EvaluateVideo(ctx context.Context, video Video, prompt string) (string, error)
	Model() string
}

// Narrative is the prose part of a competency report.
type Narrative struct {
	Summary             string   `json:"summary"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
	Observations        []string `json:"observations"`
	Fallback            bool     `json:"fallback,omitempty"`
}

// Priority orders recommendations.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is one actionable suggestion tied to a skill category.
type Recommendation struct {
	Category    assessment.Category `json:"category"`
	Priority    Priority            `json:"priority"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Actions     []string            `json:"actions,omitempty"`
}

// NarrativeRequest is the input for narrative and recommendation generation.
type NarrativeRequest struct {
	Signals      *assessment.Signals
	SkillScores  []assessment.SkillScore
	OverallScore float64
}

// NarrativeWriter produces report prose from scores. Both calls may fail independently.
type NarrativeWriter interface {
	WriteNarrative(ctx context.Context, req NarrativeRequest) (*Narrative, error)
	WriteRecommendations(ctx context.Context, req NarrativeRequest) ([]Recommendation, error)
}
