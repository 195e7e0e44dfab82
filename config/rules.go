package config

import (
	"fmt"
	"os"

	"github.com/Dosada05/prediction-league/scoring"
	"gopkg.in/yaml.v3"
)

// rulesFile mirrors the YAML layout of SCORING_RULES_FILE:
//
//	tiers:
//	  - {min_percent: 75, exclusive: true, points: 2}
//	  - {min_percent: 50, points: 3}
//	floor_points: 6
//	goal_diff_bonus: 1
//	exact_score_bonus: 3
type rulesFile struct {
	Tiers           []scoring.Tier `yaml:"tiers"`
	FloorPoints     *int           `yaml:"floor_points"`
	GoalDiffBonus   *int           `yaml:"goal_diff_bonus"`
	ExactScoreBonus *int           `yaml:"exact_score_bonus"`
}

// LoadRules reads a rules file. Omitted fields keep their default values.
func LoadRules(path string) (scoring.Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scoring.Rules{}, fmt.Errorf("failed to read scoring rules file %s: %w", path, err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (scoring.Rules, error) {
	var raw rulesFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return scoring.Rules{}, fmt.Errorf("failed to parse scoring rules: %w", err)
	}

	rules := scoring.DefaultRules()
	if len(raw.Tiers) > 0 {
		rules.Table.Tiers = raw.Tiers
	}
	if raw.FloorPoints != nil {
		rules.Table.FloorPoints = *raw.FloorPoints
	}
	if raw.GoalDiffBonus != nil {
		rules.GoalDiffBonus = *raw.GoalDiffBonus
	}
	if raw.ExactScoreBonus != nil {
		rules.ExactScoreBonus = *raw.ExactScoreBonus
	}

	if err := rules.Validate(); err != nil {
		return scoring.Rules{}, fmt.Errorf("invalid scoring rules: %w", err)
	}
	return rules, nil
}
