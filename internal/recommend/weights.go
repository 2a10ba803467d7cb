package recommend

// ExpansionWeights weight the five expansion signals.
type ExpansionWeights struct {
	QuerySpecificity     float64 `mapstructure:"query_specificity" json:"query_specificity"`
	ConstraintStrictness float64 `mapstructure:"constraint_strictness" json:"constraint_strictness"`
	ExploratoryIntent    float64 `mapstructure:"exploratory_intent" json:"exploratory_intent"`
	UserExperience       float64 `mapstructure:"user_experience" json:"user_experience"`
	TimePressure         float64 `mapstructure:"time_pressure" json:"time_pressure"`
}

// ScoreWeights weight the six ranking sub-scores.
type ScoreWeights struct {
	Health     float64 `mapstructure:"health" json:"health"`
	Preference float64 `mapstructure:"preference" json:"preference"`
	Behavioral float64 `mapstructure:"behavioral" json:"behavioral"`
	Complexity float64 `mapstructure:"complexity" json:"complexity"`
	Historical float64 `mapstructure:"historical" json:"historical"`
	Novelty    float64 `mapstructure:"novelty" json:"novelty"`
}

// Weights groups every tunable weight of the ranking pipeline.
type Weights struct {
	Expansion ExpansionWeights `mapstructure:"expansion" json:"expansion"`
	Score     ScoreWeights     `mapstructure:"score" json:"score"`
}

// DefaultWeights returns the hand-tuned production defaults.
func DefaultWeights() Weights {
	return Weights{
		Expansion: ExpansionWeights{
			QuerySpecificity:     0.3,
			ConstraintStrictness: 0.25,
			ExploratoryIntent:    0.2,
			UserExperience:       0.15,
			TimePressure:         0.1,
		},
		Score: ScoreWeights{
			Health:     0.25,
			Preference: 0.20,
			Behavioral: 0.15,
			Complexity: 0.15,
			Historical: 0.15,
			Novelty:    0.10,
		},
	}
}
