package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/elara-ai/affect/internal/mood"
	"github.com/elara-ai/affect/internal/recall"
)

// Config holds all configuration for the affect daemon.
type Config struct {
	Affect      AffectConfig      `mapstructure:"affect"`
	Temperament TemperamentConfig `mapstructure:"temperament"`
	Imprints    ImprintConfig     `mapstructure:"imprints"`
	Recall      RecallConfig      `mapstructure:"recall"`
	Qdrant      QdrantConfig      `mapstructure:"qdrant"`
	Embedder    EmbedderConfig    `mapstructure:"embedder"`
	Claude      ClaudeConfig      `mapstructure:"claude"`
	State       StateConfig       `mapstructure:"state"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	API         APIConfig         `mapstructure:"api"`
}

// AffectConfig holds mood decay settings.
type AffectConfig struct {
	DecayRates       mood.DecayRates `mapstructure:"decay_rates"`
	JournalEpsilon   float64         `mapstructure:"journal_epsilon"`
	ResidueDecayRate float64         `mapstructure:"residue_decay_rate"`
	MaxResidue       int             `mapstructure:"max_residue"`
}

// TemperamentConfig holds baseline drift settings.
type TemperamentConfig struct {
	WeeklyDriftCap   float64 `mapstructure:"weekly_drift_cap"`
	FactoryDecayRate float64 `mapstructure:"factory_decay_rate"`
	MaxTotalDrift    float64 `mapstructure:"max_total_drift"`
}

// ImprintConfig holds imprint lifecycle settings.
type ImprintConfig struct {
	DecayRate        float64 `mapstructure:"decay_rate"`
	ArchiveThreshold float64 `mapstructure:"archive_threshold"`
	MaxActive        int     `mapstructure:"max_active"`
}

// RecallConfig holds recall ranking weights.
type RecallConfig struct {
	MoodWeights           recall.Weights `mapstructure:"mood_weights"`
	ConversationalWeights recall.Weights `mapstructure:"conversational_weights"`
	DefaultLimit          int            `mapstructure:"default_limit"`
}

// QdrantConfig holds semantic index connection settings.
type QdrantConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	GRPCPort   int    `mapstructure:"grpc_port"`
	Collection string `mapstructure:"collection"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

// EmbedderConfig holds query embedding settings. The embedder turns
// recall query text into the vectors the Qdrant collection stores.
// Provider "none" is for indexes queried by embedding only.
type EmbedderConfig struct {
	Provider  string `mapstructure:"provider"` // ollama, openai, none
	BaseURL   string `mapstructure:"base_url"` // ollama only
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"` // openai only
	Dimension int    `mapstructure:"dimension"`
}

// String returns a safe representation of EmbedderConfig with the API key masked.
func (c EmbedderConfig) String() string {
	return fmt.Sprintf("EmbedderConfig{Provider:%s, BaseURL:%s, Model:%s, APIKey:%s, Dimension:%d}",
		c.Provider, c.BaseURL, c.Model, maskAPIKey(c.APIKey), c.Dimension)
}

// ClaudeConfig holds Anthropic Claude API settings for introspection.
type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// String returns a safe representation of ClaudeConfig with the API key masked.
func (c ClaudeConfig) String() string {
	return fmt.Sprintf("ClaudeConfig{APIKey:%s, Model:%s}", maskAPIKey(c.APIKey), c.Model)
}

func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// StateConfig holds persistence paths.
type StateConfig struct {
	FilePath    string `mapstructure:"file_path"`
	JournalPath string `mapstructure:"journal_path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	defaults := mood.DefaultOptions()

	v.SetDefault("affect.decay_rates.valence", defaults.DecayRates.Valence)
	v.SetDefault("affect.decay_rates.energy", defaults.DecayRates.Energy)
	v.SetDefault("affect.decay_rates.openness", defaults.DecayRates.Openness)
	v.SetDefault("affect.journal_epsilon", defaults.JournalEpsilon)
	v.SetDefault("affect.residue_decay_rate", defaults.ResidueDecayRate)
	v.SetDefault("affect.max_residue", defaults.MaxResidue)

	v.SetDefault("temperament.weekly_drift_cap", defaults.WeeklyDriftCap)
	v.SetDefault("temperament.factory_decay_rate", defaults.FactoryDecayRate)
	v.SetDefault("temperament.max_total_drift", defaults.MaxTotalDrift)

	v.SetDefault("imprints.decay_rate", defaults.ImprintDecayRate)
	v.SetDefault("imprints.archive_threshold", defaults.ArchiveThreshold)
	v.SetDefault("imprints.max_active", defaults.MaxImprints)

	moodW := recall.MoodWeights()
	convW := recall.ConversationalWeights()
	v.SetDefault("recall.mood_weights.semantic", moodW.Semantic)
	v.SetDefault("recall.mood_weights.mood", moodW.Mood)
	v.SetDefault("recall.mood_weights.recency", moodW.Recency)
	v.SetDefault("recall.conversational_weights.semantic", convW.Semantic)
	v.SetDefault("recall.conversational_weights.mood", convW.Mood)
	v.SetDefault("recall.conversational_weights.recency", convW.Recency)
	v.SetDefault("recall.default_limit", 5)

	v.SetDefault("qdrant.enabled", false)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.grpc_port", 6334)
	v.SetDefault("qdrant.collection", "elara_memories")
	v.SetDefault("qdrant.use_tls", false)

	v.SetDefault("embedder.provider", "ollama")
	v.SetDefault("embedder.base_url", "http://localhost:11434")
	v.SetDefault("embedder.model", "nomic-embed-text")
	v.SetDefault("embedder.dimension", 768)

	v.SetDefault("claude.model", "claude-haiku-4-5-20251001")

	v.SetDefault("state.file_path", filepath.Join(homeDir(), ".elara", "affect_state.json"))
	v.SetDefault("state.journal_path", filepath.Join(homeDir(), ".elara", "affect_journal.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8184")
	v.SetDefault("api.auth_token", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".elara-affect"))
	v.AddConfigPath(".")

	v.SetEnvPrefix("ELARA_AFFECT")
	v.AutomaticEnv()

	_ = v.BindEnv("claude.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("embedder.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("embedder.base_url", "ELARA_AFFECT_EMBEDDER_BASE_URL")
	_ = v.BindEnv("qdrant.host", "ELARA_AFFECT_QDRANT_HOST")
	_ = v.BindEnv("qdrant.grpc_port", "ELARA_AFFECT_QDRANT_GRPC_PORT")
	_ = v.BindEnv("state.file_path", "ELARA_AFFECT_STATE_FILE_PATH")
	_ = v.BindEnv("api.listen_addr", "ELARA_AFFECT_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "ELARA_AFFECT_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that configuration fields are consistent.
func (c *Config) Validate() error {
	for name, rate := range map[string]float64{
		"affect.decay_rates.valence":  c.Affect.DecayRates.Valence,
		"affect.decay_rates.energy":   c.Affect.DecayRates.Energy,
		"affect.decay_rates.openness": c.Affect.DecayRates.Openness,
	} {
		if rate <= 0 {
			return fmt.Errorf("%s must be greater than 0", name)
		}
	}
	if c.Affect.JournalEpsilon < 0 {
		return fmt.Errorf("affect.journal_epsilon must be >= 0")
	}
	if c.Temperament.WeeklyDriftCap <= 0 {
		return fmt.Errorf("temperament.weekly_drift_cap must be greater than 0")
	}
	if c.Temperament.FactoryDecayRate <= 0 || c.Temperament.FactoryDecayRate > 1 {
		return fmt.Errorf("temperament.factory_decay_rate must be in (0,1]")
	}
	if c.Imprints.DecayRate <= 0 {
		return fmt.Errorf("imprints.decay_rate must be greater than 0")
	}
	if c.Imprints.ArchiveThreshold <= 0 || c.Imprints.ArchiveThreshold >= 1 {
		return fmt.Errorf("imprints.archive_threshold must be in (0,1)")
	}
	if c.Imprints.MaxActive <= 0 {
		return fmt.Errorf("imprints.max_active must be greater than 0")
	}
	if err := c.Recall.MoodWeights.Validate(); err != nil {
		return fmt.Errorf("recall.mood_weights: %w", err)
	}
	if err := c.Recall.ConversationalWeights.Validate(); err != nil {
		return fmt.Errorf("recall.conversational_weights: %w", err)
	}
	if c.Recall.DefaultLimit <= 0 {
		return fmt.Errorf("recall.default_limit must be greater than 0")
	}
	if c.Qdrant.Enabled && c.Qdrant.Host == "" {
		return fmt.Errorf("qdrant.host must not be empty when qdrant is enabled")
	}
	if c.Qdrant.Enabled && c.Qdrant.Collection == "" {
		return fmt.Errorf("qdrant.collection must not be empty when qdrant is enabled")
	}
	switch c.Embedder.Provider {
	case "ollama":
		if c.Embedder.BaseURL == "" {
			return fmt.Errorf("embedder.base_url must not be empty for the ollama provider")
		}
	case "openai":
		if c.Qdrant.Enabled && c.Embedder.APIKey == "" {
			return fmt.Errorf("embedder.api_key must be set for the openai provider (or OPENAI_API_KEY)")
		}
	case "none":
	default:
		return fmt.Errorf("embedder.provider must be one of ollama, openai, none")
	}
	if c.Embedder.Provider != "none" && c.Embedder.Dimension <= 0 {
		return fmt.Errorf("embedder.dimension must be greater than 0")
	}
	if c.State.FilePath == "" {
		return fmt.Errorf("state.file_path must not be empty")
	}
	if c.State.JournalPath == "" {
		return fmt.Errorf("state.journal_path must not be empty")
	}
	return nil
}

// EngineOptions converts the config into mood engine options.
func (c *Config) EngineOptions() mood.Options {
	return mood.Options{
		DecayRates:       c.Affect.DecayRates,
		JournalEpsilon:   c.Affect.JournalEpsilon,
		ImprintDecayRate: c.Imprints.DecayRate,
		ArchiveThreshold: c.Imprints.ArchiveThreshold,
		MaxImprints:      c.Imprints.MaxActive,
		MaxResidue:       c.Affect.MaxResidue,
		ResidueDecayRate: c.Affect.ResidueDecayRate,
		WeeklyDriftCap:   c.Temperament.WeeklyDriftCap,
		FactoryDecayRate: c.Temperament.FactoryDecayRate,
		MaxTotalDrift:    c.Temperament.MaxTotalDrift,
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
