package config

import (
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Parser.ImplausibleUnitPrice != 100000 {
		t.Errorf("expected implausible_unit_price 100000, got %v", cfg.Parser.ImplausibleUnitPrice)
	}
	if cfg.Matching.Wbs6Similarity != 0.72 {
		t.Errorf("expected wbs6_similarity 0.72, got %v", cfg.Matching.Wbs6Similarity)
	}
	if cfg.Matching.Wbs7Similarity != 0.68 {
		t.Errorf("expected wbs7_similarity 0.68, got %v", cfg.Matching.Wbs7Similarity)
	}
	if cfg.Anomalies.QuantityTolerance != 0.0001 {
		t.Errorf("expected quantity_tolerance 0.0001, got %v", cfg.Anomalies.QuantityTolerance)
	}
	if len(cfg.Anomalies.ForcedZeroKeywords) == 0 {
		t.Error("expected default forced-zero keywords")
	}
	if cfg.Embedding.Enabled {
		t.Error("embedding tier should be disabled by default")
	}
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		if err := validate(Default()); err != nil {
			t.Errorf("validate() error = %v", err)
		}
	})

	t.Run("negative implausible price", func(t *testing.T) {
		cfg := Default()
		cfg.Parser.ImplausibleUnitPrice = -1
		if err := validate(cfg); err == nil {
			t.Error("expected error for negative implausible_unit_price")
		}
	})

	t.Run("threshold out of range", func(t *testing.T) {
		cfg := Default()
		cfg.Matching.Wbs6Similarity = 1.5
		if err := validate(cfg); err == nil {
			t.Error("expected error for threshold above 1")
		}
	})

	t.Run("embedding enabled without key", func(t *testing.T) {
		cfg := Default()
		cfg.Embedding.Enabled = true
		if err := validate(cfg); err == nil {
			t.Error("expected error for missing embedding api key")
		}
	})
}
