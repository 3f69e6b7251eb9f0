package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spigell/worksim-assessor/internal/ai"
	"github.com/spigell/worksim-assessor/internal/assessment"
	"github.com/spigell/worksim-assessor/internal/scoring"
)

const (
	strongThreshold = 4
	weakThreshold   = 2
	fallbackRecs    = 3
)

var fallbackPriorities = []ai.Priority{ai.PriorityHigh, ai.PriorityMedium, ai.PriorityLow}

var fallbackActions = map[assessment.Category][]string{
	assessment.CategoryCommunication: {
		"Share a short plan before starting work",
		"Post status updates when blocked or when scope changes",
	},
	assessment.CategoryProblemDecomposition: {
		"Split the task into verifiable steps before coding",
		"Timebox investigations and ask for help after the timebox",
	},
	assessment.CategoryAILeverage: {
		"Use an AI assistant for boilerplate and test scaffolding",
		"Review generated code critically before committing it",
	},
	assessment.CategoryCodeQuality: {
		"Run the test suite and linters before opening a pull request",
		"Keep functions small and name them after what they do",
	},
	assessment.CategoryXFNCollaboration: {
		"Reach out to product and design to confirm requirements",
		"Involve at least one reviewer early in the task",
	},
	assessment.CategoryTimeManagement: {
		"Work in focused blocks with explicit goals",
		"Reduce idle time by queuing the next step before waiting on CI",
	},
	assessment.CategoryTechnicalDecisionMaking: {
		"Write down alternatives and trade-offs before choosing a design",
		"Prefer established patterns of the codebase over new ones",
	},
	assessment.CategoryPresentation: {
		"Practice explaining the solution in two minutes",
		"Lead the defense call with the problem, the decision and the result",
	},
}

// FallbackNarrative derives report prose from the numeric scores only.
func FallbackNarrative(scores []assessment.SkillScore, overall float64) ai.Narrative {
	n := ai.Narrative{
		Strengths:           []string{},
		AreasForImprovement: []string{},
		Observations:        []string{},
		Fallback:            true,
	}

	for _, s := range scores {
		name := s.Category.DisplayName()
		switch {
		case s.Score >= strongThreshold:
			n.Strengths = append(n.Strengths, fmt.Sprintf("Demonstrated strong %s skills", strings.ToLower(name)))
		case s.Score <= weakThreshold:
			n.AreasForImprovement = append(n.AreasForImprovement, fmt.Sprintf("%s needs development", name))
		}
	}

	var b strings.Builder
	if math.IsNaN(overall) {
		b.WriteString("No skill scores were available for this assessment.")
	} else {
		fmt.Fprintf(&b, "The candidate achieved an overall score of %.1f/5 (%s).",
			overall, strings.ReplaceAll(string(scoring.ScoreToLevel(overall)), "_", " "))
	}
	if len(n.Strengths) > 0 {
		fmt.Fprintf(&b, " %s.", strings.Join(n.Strengths, "; "))
	}
	if len(n.AreasForImprovement) > 0 {
		fmt.Fprintf(&b, " %s.", strings.Join(n.AreasForImprovement, "; "))
	}
	n.Summary = b.String()

	for _, s := range scores {
		if len(s.Evidence) > 0 {
			n.Observations = append(n.Observations, fmt.Sprintf("%s: %s", s.Category.DisplayName(), s.Evidence[0]))
		}
	}
	return n
}

// FallbackRecommendations targets the three lowest scoring categories, ranked high, medium and low.
func FallbackRecommendations(scores []assessment.SkillScore) []ai.Recommendation {
	ranked := make([]assessment.SkillScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score < ranked[j].Score
		}
		return scoring.Weight(ranked[i].Category) > scoring.Weight(ranked[j].Category)
	})

	if len(ranked) > fallbackRecs {
		ranked = ranked[:fallbackRecs]
	}

	out := make([]ai.Recommendation, 0, len(ranked))
	for i, s := range ranked {
		name := s.Category.DisplayName()
		out = append(out, ai.Recommendation{
			Category:    s.Category,
			Priority:    fallbackPriorities[i],
			Title:       "Improve " + strings.ToLower(name),
			Description: fmt.Sprintf("%s scored %d/5 (%s).", name, s.Score, strings.ReplaceAll(string(s.Level), "_", " ")),
			Actions:     append([]string(nil), fallbackActions[s.Category]...),
		})
	}
	return out
}
