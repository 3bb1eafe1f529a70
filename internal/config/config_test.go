package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elara-ai/affect/internal/mood"
	"github.com/elara-ai/affect/internal/recall"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // avoid picking up a developer's local config.yaml

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, mood.DefaultDecayRates(), cfg.Affect.DecayRates)
	assert.Equal(t, 0.03, cfg.Temperament.WeeklyDriftCap)
	assert.Equal(t, 0.1, cfg.Imprints.ArchiveThreshold)
	assert.Equal(t, recall.MoodWeights(), cfg.Recall.MoodWeights)
	assert.Equal(t, recall.ConversationalWeights(), cfg.Recall.ConversationalWeights)
	assert.False(t, cfg.Qdrant.Enabled)
	assert.Equal(t, 6334, cfg.Qdrant.GRPCPort)
	assert.Equal(t, "ollama", cfg.Embedder.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.Embedder.BaseURL)
	assert.Equal(t, 768, cfg.Embedder.Dimension)
	assert.Equal(t, ":8184", cfg.API.ListenAddr)
	assert.NotEmpty(t, cfg.State.FilePath)
	assert.NotEmpty(t, cfg.State.JournalPath)
}

func TestEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ELARA_AFFECT_QDRANT_HOST", "qdrant.internal")
	t.Setenv("ELARA_AFFECT_API_AUTH_TOKEN", "secret-token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
	assert.Equal(t, "secret-token", cfg.API.AuthToken)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero decay rate", func(c *Config) { c.Affect.DecayRates.Valence = 0 }},
		{"negative journal epsilon", func(c *Config) { c.Affect.JournalEpsilon = -1 }},
		{"zero weekly cap", func(c *Config) { c.Temperament.WeeklyDriftCap = 0 }},
		{"factory decay above 1", func(c *Config) { c.Temperament.FactoryDecayRate = 1.5 }},
		{"archive threshold at 1", func(c *Config) { c.Imprints.ArchiveThreshold = 1 }},
		{"zero max imprints", func(c *Config) { c.Imprints.MaxActive = 0 }},
		{"negative recall weight", func(c *Config) { c.Recall.MoodWeights.Semantic = -1 }},
		{"zero recall limit", func(c *Config) { c.Recall.DefaultLimit = 0 }},
		{"enabled qdrant without host", func(c *Config) { c.Qdrant.Enabled = true; c.Qdrant.Host = "" }},
		{"unknown embedder provider", func(c *Config) { c.Embedder.Provider = "cohere" }},
		{"ollama without base url", func(c *Config) { c.Embedder.BaseURL = "" }},
		{"zero embedder dimension", func(c *Config) { c.Embedder.Dimension = 0 }},
		{"empty state path", func(c *Config) { c.State.FilePath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEngineOptions(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)

	opts := cfg.EngineOptions()
	assert.Equal(t, mood.DefaultOptions(), opts, "default config maps onto default engine options")
}

func TestClaudeConfigMasksKey(t *testing.T) {
	c := ClaudeConfig{APIKey: "sk-ant-REDACTED", Model: "claude-haiku-4-5-20251001"}
	s := c.String()
	assert.NotContains(t, s, "very-secret")
	assert.Contains(t, s, "sk-a")

	short := ClaudeConfig{APIKey: "tiny"}
	assert.Contains(t, short.String(), "***")
}
