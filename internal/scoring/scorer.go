// Package scoring turns collected assessment signals into the eight deterministic
// skill scores and their weighted overall score.
package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/worksim-assessor/internal/assessment"
	"github.com/spigell/worksim-assessor/internal/logger"
)

const (
	defaultScore = 3.0
	minScore     = 1.0
	maxScore     = 5.0

	stuckCountThreshold      = 5
	stuckAverageSecondsLimit = 300.0
	technicalStuckThreshold  = 3
	activeRatioThreshold     = 0.5
	defenseExchangeThreshold = 10
	aiLeverageDetectedScore  = 4.0
	ciNudge                  = 0.5
	defenseBonus             = 0.5
)

var aiToolKeywords = []string{"claude", "chatgpt", "copilot", "ai"}

// draft is a category score before rounding and clamping.
type draft struct {
	score    float64
	evidence []string
	sources  []string
}

func newDraft() *draft {
	return &draft{score: defaultScore}
}

func (d *draft) add(format string, args ...any) {
	d.evidence = append(d.evidence, fmt.Sprintf(format, args...))
}

func (d *draft) source(name string) {
	for _, s := range d.sources {
		if s == name {
			return
		}
	}
	d.sources = append(d.sources, name)
}

type rule func(s *assessment.Signals) *draft

// Scorer applies one fixed arithmetic rule per skill category.
type Scorer struct {
	logger *zap.Logger
	rules  map[assessment.Category]rule
}

// NewScorer creates a Scorer. A nil logger is replaced by a no-op one.
func NewScorer(l *zap.Logger) *Scorer {
	return &Scorer{
		logger: logger.OrNop(l),
		rules: map[assessment.Category]rule{
			assessment.CategoryCommunication:           scoreCommunication,
			assessment.CategoryProblemDecomposition:    scoreProblemDecomposition,
			assessment.CategoryAILeverage:              scoreAILeverage,
			assessment.CategoryCodeQuality:             scoreCodeQuality,
			assessment.CategoryXFNCollaboration:        scoreXFNCollaboration,
			assessment.CategoryTimeManagement:          scoreTimeManagement,
			assessment.CategoryTechnicalDecisionMaking: scoreTechnicalDecisionMaking,
			assessment.CategoryPresentation:            scorePresentation,
		},
	}
}

// Score returns exactly one SkillScore per category, in report order.
// Missing signals never fail scoring; the affected category stays at 3.
func (s *Scorer) Score(signals *assessment.Signals) []assessment.SkillScore {
	if signals == nil {
		signals = &assessment.Signals{}
	}

	log := logger.WithAssessment(s.logger, signals.AssessmentID, "")

	out := make([]assessment.SkillScore, 0, len(s.rules))
	for _, category := range assessment.Categories() {
		d := s.rules[category](signals)
		score := finalize(d.score)

		notes := "no signals available"
		if len(d.sources) > 0 {
			notes = "derived from " + strings.Join(d.sources, ", ")
		}

		out = append(out, assessment.SkillScore{
			Category: category,
			Score:    score,
			Level:    ScoreToLevel(float64(score)),
			Evidence: d.evidence,
			Notes:    notes,
		})

		log.Debug("skill category scored",
			zap.String("category", string(category)),
			zap.Float64("raw_score", d.score),
			zap.Int("score", score),
			zap.Strings("sources", d.sources),
		)
	}

	return out
}

func finalize(v float64) int {
	if math.IsNaN(v) {
		v = defaultScore
	}
	v = math.Round(v)
	return int(math.Max(minScore, math.Min(maxScore, v)))
}

func fmtScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func scoreCommunication(s *assessment.Signals) *draft {
	d := newDraft()

	if hr := s.HRInterview; hr != nil {
		if hr.CommunicationScore != nil {
			d.score = *hr.CommunicationScore
			d.add("HR interview communication score: %s/5", fmtScore(*hr.CommunicationScore))
			d.source("hr_interview")
		}
		if hr.ProfessionalismScore != nil {
			d.add("HR interview professionalism score: %s/5", fmtScore(*hr.ProfessionalismScore))
			d.source("hr_interview")
		}
	}

	if len(d.evidence) == 0 {
		d.add("No HR interview communication evidence found; defaulting to adequate")
	}

	if c := s.Conversations; c != nil && (c.TotalInteractions > 0 || c.UniqueCoworkers > 0) {
		d.add("%d coworker interactions with %d unique coworkers", c.TotalInteractions, c.UniqueCoworkers)
		d.source("conversations")
	}

	return d
}

func scoreProblemDecomposition(s *assessment.Signals) *draft {
	d := newDraft()

	if cr := s.CodeReview; cr != nil && cr.CodeQualityScore > 0 && cr.PatternsScore > 0 {
		d.score = (cr.CodeQualityScore + cr.PatternsScore) / 2
		d.add("Code review code quality %s/5 and patterns %s/5", fmtScore(cr.CodeQualityScore), fmtScore(cr.PatternsScore))
		d.source("code_review")
	}

	if rec := s.Recording; rec != nil && len(rec.StuckMoments) > 0 {
		count := len(rec.StuckMoments)
		avg := rec.AverageStuckSeconds()
		d.source("recording")
		if count >= stuckCountThreshold || avg > stuckAverageSecondsLimit {
			d.score = math.Max(minScore, d.score-1)
			d.add("%d stuck moments averaging %.0fs indicate difficulty breaking the task down", count, avg)
		} else {
			d.add("%d stuck moments averaging %.0fs", count, avg)
		}
	}

	if len(d.evidence) == 0 {
		d.add("No code review or stuck-moment evidence found; defaulting to adequate")
	}

	return d
}

func scoreAILeverage(s *assessment.Signals) *draft {
	d := newDraft()

	rec := s.Recording
	if rec == nil {
		d.add("No recording analysis available; AI tool usage unknown")
		return d
	}
	d.source("recording")

	if rec.AIToolsUsed {
		d.score = aiLeverageDetectedScore
		d.add("Recording shows AI tool usage")
		return d
	}

	for _, usage := range rec.ToolUsage {
		if matchesAITool(usage.Tool) {
			d.score = aiLeverageDetectedScore
			d.add("AI tool %q used %d times", usage.Tool, usage.Count)
			return d
		}
	}

	d.add("No AI tool usage observed; not penalized")
	return d
}

// UsesAITools reports whether a recording shows AI assistance, either flagged
// by the analyzer or recognized from tool names.
func UsesAITools(rec *assessment.RecordingAnalysis) bool {
	if rec == nil {
		return false
	}
	if rec.AIToolsUsed {
		return true
	}
	for _, usage := range rec.ToolUsage {
		if matchesAITool(usage.Tool) {
			return true
		}
	}
	return false
}

func matchesAITool(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range aiToolKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func scoreCodeQuality(s *assessment.Signals) *draft {
	d := newDraft()

	if cr := s.CodeReview; cr != nil {
		d.score = cr.OverallScore
		d.add("Code review overall score: %s/5", fmtScore(cr.OverallScore))
		if summary := strings.TrimSpace(cr.Summary); summary != "" {
			d.add("Code review summary: %s", summary)
		}
		d.source("code_review")
	}

	if ci := s.CI; ci != nil {
		d.source("ci")
		switch ci.Outcome {
		case assessment.CISuccess:
			d.score += ciNudge
			d.add("CI passed")
		case assessment.CIFailure:
			d.score -= ciNudge
			d.add("CI failed")
		default:
			d.add("CI status %q does not affect the score", ci.Outcome)
		}
	}

	if len(d.evidence) == 0 {
		d.add("No code review or CI evidence found; defaulting to adequate")
	}

	return d
}

func scoreXFNCollaboration(s *assessment.Signals) *draft {
	d := newDraft()

	c := s.Conversations
	if c == nil {
		d.add("No conversation data available; defaulting to adequate")
		return d
	}
	d.source("conversations")

	switch unique := c.UniqueCoworkers; {
	case unique >= 3:
		d.score = 5
	case unique == 2:
		d.score = 4
	case unique == 1:
		d.score = 3
	default:
		d.score = 2
	}
	d.add("Contacted %d unique coworkers", c.UniqueCoworkers)

	return d
}

func scoreTimeManagement(s *assessment.Signals) *draft {
	d := newDraft()

	rec := s.Recording
	if rec == nil {
		d.add("No recording analysis available; defaulting to adequate")
		return d
	}
	d.source("recording")

	if rec.FocusScore != nil {
		d.score = *rec.FocusScore
		d.add("Recording focus score: %s/5", fmtScore(*rec.FocusScore))
	}

	if ratio, ok := rec.ActiveRatio(); ok {
		if ratio < activeRatioThreshold {
			d.score = math.Max(minScore, d.score-1)
			d.add("Active time ratio %.0f%% is below %.0f%%", ratio*100, activeRatioThreshold*100)
		} else {
			d.add("Active time ratio %.0f%%", ratio*100)
		}
	}

	if len(d.evidence) == 0 {
		d.add("Recording has no focus or activity timing data; defaulting to adequate")
	}

	return d
}

func scoreTechnicalDecisionMaking(s *assessment.Signals) *draft {
	d := newDraft()

	if cr := s.CodeReview; cr != nil && cr.PatternsScore > 0 && cr.MaintainabilityScore > 0 {
		d.score = (cr.PatternsScore + cr.MaintainabilityScore) / 2
		d.add("Code review patterns %s/5 and maintainability %s/5", fmtScore(cr.PatternsScore), fmtScore(cr.MaintainabilityScore))
		d.source("code_review")
	}

	if n := s.Recording.CountStuck(assessment.StuckTechnicalDifficulty); n > technicalStuckThreshold {
		d.score = math.Max(minScore, d.score-1)
		d.add("%d stuck moments caused by technical difficulty", n)
		d.source("recording")
	}

	if len(d.evidence) == 0 {
		d.add("No code review design evidence found; defaulting to adequate")
	}

	return d
}

func scorePresentation(s *assessment.Signals) *draft {
	d := newDraft()

	if hr := s.HRInterview; hr != nil && hr.CommunicationScore != nil && hr.TechnicalDepthScore != nil {
		d.score = (*hr.CommunicationScore + *hr.TechnicalDepthScore) / 2
		d.add("HR interview communication %s/5 and technical depth %s/5", fmtScore(*hr.CommunicationScore), fmtScore(*hr.TechnicalDepthScore))
		d.source("hr_interview")
	}

	if c := s.Conversations; c != nil && len(c.DefenseTranscript) > 0 {
		exchanges := len(c.DefenseTranscript)
		d.source("defense_call")
		if exchanges >= defenseExchangeThreshold {
			d.score += defenseBonus
			d.add("Defense call with %d exchanges", exchanges)
		} else {
			d.add("Short defense call with %d exchanges", exchanges)
		}
	}

	if len(d.evidence) == 0 {
		d.add("No interview or defense call evidence found; defaulting to adequate")
	}

	return d
}
