package bandit

import "priceSense/pkg/config"

type Config struct {
	// Beta prior for items with no evidence.
	PriorAlpha float64
	PriorBeta  float64

	// Floor applied to any parameter read back from the counter store.
	Epsilon float64

	// Score returned when the counter store cannot be read.
	NeutralScore float64
}

const (
	defaultPriorAlpha   = 1.0
	defaultPriorBeta    = 1.0
	defaultEpsilon      = 1e-6
	defaultNeutralScore = 50.0
)

func DefaultConfig() Config {
	return Config{
		PriorAlpha:   defaultPriorAlpha,
		PriorBeta:    defaultPriorBeta,
		Epsilon:      defaultEpsilon,
		NeutralScore: defaultNeutralScore,
	}
}

// ConfigFrom overlays the environment configuration on the defaults.
func ConfigFrom(c config.BanditConfig) Config {
	cfg := DefaultConfig()
	if c.PriorAlpha > 0 {
		cfg.PriorAlpha = c.PriorAlpha
	}
	if c.PriorBeta > 0 {
		cfg.PriorBeta = c.PriorBeta
	}
	if c.Epsilon > 0 {
		cfg.Epsilon = c.Epsilon
	}
	return cfg
}
