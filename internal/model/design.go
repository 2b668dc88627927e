package model

// FactorLevels is the (transparency, control) pair behind one condition.
type FactorLevels struct {
	Transparency int `json:"transparency"`
	Control      int `json:"control"`
}

// StudyDesign is the immutable design configuration passed into every
// statistics component. It replaces the module-level constants of earlier
// tooling so test fixtures can carry alternative mappings.
type StudyDesign struct {
	// ConditionMap assigns each condition its binary factor levels.
	ConditionMap map[Condition]FactorLevels `json:"condition_map"`

	// AttentionKeyword is the expected attention-check answer,
	// compared case-insensitively.
	AttentionKeyword string `json:"attention_keyword"`

	// Alpha is the base significance level.
	Alpha float64 `json:"alpha"`

	// BonferroniTests divides Alpha for the phase-2 test family.
	BonferroniTests int `json:"bonferroni_tests"`

	// BootstrapDraws and BootstrapSeed control the Cramér's V bootstrap.
	BootstrapDraws int   `json:"bootstrap_draws"`
	BootstrapSeed  int64 `json:"bootstrap_seed"`

	// InteractionThresholdPP classifies the interaction pattern: a simple-
	// effect difference above +threshold is synergistic, below -threshold
	// antagonistic, otherwise additive. In percentage points.
	InteractionThresholdPP float64 `json:"interaction_threshold_pp"`
}

// DefaultStudyDesign returns the registered 2x2 design: A=(0,0), B=(1,0),
// C=(0,1), D=(1,1), attention keyword "voting", alpha .05, Bonferroni
// family of three, 1000 bootstrap draws with a fixed seed.
func DefaultStudyDesign() StudyDesign {
	return StudyDesign{
		ConditionMap: map[Condition]FactorLevels{
			ConditionA: {Transparency: 0, Control: 0},
			ConditionB: {Transparency: 1, Control: 0},
			ConditionC: {Transparency: 0, Control: 1},
			ConditionD: {Transparency: 1, Control: 1},
		},
		AttentionKeyword:       "voting",
		Alpha:                  0.05,
		BonferroniTests:        3,
		BootstrapDraws:         1000,
		BootstrapSeed:          42,
		InteractionThresholdPP: 5.0,
	}
}

// BonferroniAlpha returns the corrected per-test significance level.
func (d StudyDesign) BonferroniAlpha() float64 {
	if d.BonferroniTests <= 1 {
		return d.Alpha
	}
	return d.Alpha / float64(d.BonferroniTests)
}

// Levels looks up the factor levels for a condition.
func (d StudyDesign) Levels(c Condition) (FactorLevels, bool) {
	lv, ok := d.ConditionMap[c]
	return lv, ok
}
