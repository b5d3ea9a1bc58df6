package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy holds the tunable ranking knobs that live outside the environment.
// Zero-valued sections keep the built-in defaults.
type Policy struct {
	Rewards           map[string]float64 `yaml:"rewards"`
	FinancialKeywords []string           `yaml:"financial_keywords"`
	SpecificityTerms  []string           `yaml:"specificity_terms"`
	Weights           *WeightsPolicy     `yaml:"weights"`
}

// WeightsPolicy overrides the composite score weights. Range and sum checks
// happen where the weights are applied. Diversity is not multiplied into any
// signal; it only reserves part of the score scale for the diversity bonus.
type WeightsPolicy struct {
	Bandit    float64 `yaml:"bandit"`
	Affinity  float64 `yaml:"affinity"`
	Relevance float64 `yaml:"relevance"`
	Diversity float64 `yaml:"diversity"`
}

// LoadPolicy reads a YAML policy file. An empty path yields an empty policy.
func LoadPolicy(path string) (*Policy, error) {
	p := &Policy{}
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}


	return p, nil
}
