package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPolicy_EmptyPath(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Nil(t, p.Weights)
	assert.Empty(t, p.Rewards)
}

func TestLoadPolicy_MissingFileKeepsDefaults(t *testing.T) {
	p, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Nil(t, p.Weights)
}

func TestLoadPolicy_ParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	body := `
rewards:
  purchase: 1.0
  like: 0.4
financial_keywords: [afford, budget]
weights:
  bandit: 0.4
  affinity: 0.3
  relevance: 0.2
  diversity: 0.1
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, p.Rewards["like"], 1e-9)
	assert.Equal(t, []string{"afford", "budget"}, p.FinancialKeywords)
	require.NotNil(t, p.Weights)
	assert.InDelta(t, 0.1, p.Weights.Diversity, 1e-9)
}

func TestLoadPolicy_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weights: ["), 0o600))
	_, err := LoadPolicy(path)
	assert.ErrorContains(t, err, "parse policy")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Routing: RoutingConfig{FastThreshold: 0.3, SmartThreshold: 0.7},
			Ranking: RankingConfig{OutputSize: 10, ExploitPositions: 7},
			Bandit:  BanditConfig{PriorAlpha: 1, PriorBeta: 1, Epsilon: 1e-6},
		}
	}

	require.NoError(t, base().Validate())

	c := base()
	c.Routing.FastThreshold = 0.8
	assert.Error(t, c.Validate())

	c = base()
	c.Ranking.OutputSize = 7
	assert.Error(t, c.Validate())

	c = base()
	c.Database.Enabled = true
	assert.Error(t, c.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Redis.RedisDB)
	assert.Equal(t, 10, cfg.Ranking.OutputSize)
	assert.InDelta(t, 0.3, cfg.Routing.FastThreshold, 1e-9)
}
