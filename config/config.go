// Package config loads the reconciliation policy parameters.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds every tunable policy parameter of the reconciliation engine.
type Config struct {
	Parser    ParserConfig    `mapstructure:"parser"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Anomalies AnomaliesConfig `mapstructure:"anomalies"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
}

// ParserConfig holds structural-parser policy parameters.
type ParserConfig struct {
	// ImplausibleUnitPrice is the magnitude above which a derived unit price
	// is assumed to come from swapped price/amount columns in the source.
	ImplausibleUnitPrice float64 `mapstructure:"implausible_unit_price"`
}

// MatchingConfig holds similarity thresholds for the alignment engine and
// the hierarchy normalization planner.
type MatchingConfig struct {
	RowSimilarity  float64 `mapstructure:"row_similarity"`
	Wbs6Similarity float64 `mapstructure:"wbs6_similarity"`
	Wbs7Similarity float64 `mapstructure:"wbs7_similarity"`
}

// AnomaliesConfig holds anomaly-detector tolerances and keyword patterns.
type AnomaliesConfig struct {
	QuantityTolerance float64 `mapstructure:"quantity_tolerance"`
	TotalTolerance    float64 `mapstructure:"total_tolerance"`
	// ForcedZeroKeywords are substrings (matched on normalized descriptions)
	// that mark administrative-cost rows required to be contractually zero.
	ForcedZeroKeywords []string `mapstructure:"forced_zero_keywords"`
}

// EmbeddingConfig holds the optional semantic-embedding tier settings.
type EmbeddingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Retries int    `mapstructure:"retries"`
}

// Load reads configuration from config.yaml (optional) and TENDERALIGN_*
// environment variables, applying defaults for everything unset.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("TENDERALIGN")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a Config populated with defaults only, for callers that do
// not need file/env overrides (tests, mostly).
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("config defaults failed to decode: %v", err))
	}
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("parser.implausible_unit_price", 100000.0)

	v.SetDefault("matching.row_similarity", 0.70)
	v.SetDefault("matching.wbs6_similarity", 0.72)
	v.SetDefault("matching.wbs7_similarity", 0.68)

	v.SetDefault("anomalies.quantity_tolerance", 0.0001)
	v.SetDefault("anomalies.total_tolerance", 0.01)
	v.SetDefault("anomalies.forced_zero_keywords", []string{
		"oneri di coordinamento",
		"oneri coordinamento",
		"coordinamento sicurezza",
		"assistenza al montaggio",
		"oneri di assistenza",
		"spese generali",
		"utile di impresa",
		"coordination charge",
		"assistance charge",
		"markup fee",
	})

	v.SetDefault("embedding.enabled", false)
	v.SetDefault("embedding.model", "gemini-embedding-001")
	v.SetDefault("embedding.retries", 3)
}

func validate(config *Config) error {
	if config.Parser.ImplausibleUnitPrice <= 0 {
		return fmt.Errorf("parser.implausible_unit_price must be positive, got %v", config.Parser.ImplausibleUnitPrice)
	}
	for name, t := range map[string]float64{
		"matching.row_similarity":  config.Matching.RowSimilarity,
		"matching.wbs6_similarity": config.Matching.Wbs6Similarity,
		"matching.wbs7_similarity": config.Matching.Wbs7Similarity,
	} {
		if t < 0 || t > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, t)
		}
	}
	if config.Embedding.Enabled && config.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required when the embedding tier is enabled (set TENDERALIGN_EMBEDDING_API_KEY)")
	}
	if config.Embedding.Retries < 0 {
		return fmt.Errorf("embedding.retries must not be negative, got %d", config.Embedding.Retries)
	}
	return nil
}
