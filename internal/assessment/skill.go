package assessment

// Category is one of the eight fixed skill categories of the competency report.
type Category string

const (
	CategoryCommunication           Category = "communication"
	CategoryProblemDecomposition    Category = "problem_decomposition"
	CategoryAILeverage              Category = "ai_leverage"
	CategoryCodeQuality             Category = "code_quality"
	CategoryXFNCollaboration        Category = "xfn_collaboration"
	CategoryTimeManagement          Category = "time_management"
	CategoryTechnicalDecisionMaking Category = "technical_decision_making"
	CategoryPresentation            Category = "presentation"
)

var categories = []Category{
	CategoryCommunication,
	CategoryProblemDecomposition,
	CategoryAILeverage,
	CategoryCodeQuality,
	CategoryXFNCollaboration,
	CategoryTimeManagement,
	CategoryTechnicalDecisionMaking,
	CategoryPresentation,
}

var categoryNames = map[Category]string{
	CategoryCommunication:           "Communication",
	CategoryProblemDecomposition:    "Problem Decomposition",
	CategoryAILeverage:              "AI Leverage",
	CategoryCodeQuality:             "Code Quality",
	CategoryXFNCollaboration:        "Cross-functional Collaboration",
	CategoryTimeManagement:          "Time Management",
	CategoryTechnicalDecisionMaking: "Technical Decision Making",
	CategoryPresentation:            "Presentation",
}

// Categories returns the eight categories in report order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// DisplayName returns a human readable category name.
func (c Category) DisplayName() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return string(c)
}

// Level is the qualitative label for a 1-5 score.
type Level string

const (
	LevelExceptional      Level = "exceptional"
	LevelStrong           Level = "strong"
	LevelAdequate         Level = "adequate"
	LevelDeveloping       Level = "developing"
	LevelNeedsImprovement Level = "needs_improvement"
)

// SkillScore is the deterministic score of one category with the evidence behind it.
type SkillScore struct {
	Category Category `json:"category"`
	Score    int      `json:"score"`
	Level    Level    `json:"level"`
	Evidence []string `json:"evidence"`
	Notes    string   `json:"notes,omitempty"`
}
