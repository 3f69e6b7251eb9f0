package scoring

import (
	"math"

	"github.com/spigell/worksim-assessor/internal/assessment"
)

var weights = map[assessment.Category]float64{
	assessment.CategoryCodeQuality:             0.20,
	assessment.CategoryCommunication:           0.15,
	assessment.CategoryProblemDecomposition:    0.15,
	assessment.CategoryTechnicalDecisionMaking: 0.15,
	assessment.CategoryAILeverage:              0.10,
	assessment.CategoryXFNCollaboration:        0.10,
	assessment.CategoryTimeManagement:          0.10,
	assessment.CategoryPresentation:            0.05,
}

// Weight returns the fixed weight of a category, 0 for unknown categories.
func Weight(c assessment.Category) float64 {
	return weights[c]
}

// Overall combines category scores into one weighted mean rounded to one decimal.
// Only the weights of categories present in scores are used as the divisor.
// An empty (or all-unknown) list yields NaN; callers must check math.IsNaN.
func Overall(scores []assessment.SkillScore) float64 {
	var sum, weightSum float64
	for _, s := range scores {
		w, ok := weights[s.Category]
		if !ok {
			continue
		}
		sum += w * float64(s.Score)
		weightSum += w
	}

	if weightSum == 0 {
		return math.NaN()
	}

	return math.Round(sum/weightSum*10) / 10
}

// ScoreToLevel maps a 1-5 score to its qualitative label. Each threshold is inclusive.
func ScoreToLevel(score float64) assessment.Level {
	switch {
	case score >= 4.5:
		return assessment.LevelExceptional
	case score >= 3.5:
		return assessment.LevelStrong
	case score >= 2.5:
		return assessment.LevelAdequate
	case score >= 1.5:
		return assessment.LevelDeveloping
	default:
		return assessment.LevelNeedsImprovement
	}
}
