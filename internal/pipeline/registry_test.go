package pipeline

import (
	"strings"
	"testing"
)

func TestLoadConfig_EmbeddedDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("embedded config must load: %v", err)
	}

	if cfg.ConstraintVersion != 1 {
		t.Fatalf("expected constraint_version 1, got %d", cfg.ConstraintVersion)
	}
	if cfg.Extraction.FallbackFunctions != 3 {
		t.Fatalf("expected optimistic fallback 3, got %d", cfg.Extraction.FallbackFunctions)
	}
	if cfg.Weights.PainIntensity != 0.25 {
		t.Fatalf("expected pain weight 0.25, got %v", cfg.Weights.PainIntensity)
	}
	if cfg.Monetization.B2BWeight <= cfg.Monetization.B2CWeight {
		t.Fatalf("B2B weight must exceed B2C weight: %+v", cfg.Monetization)
	}
	if cfg.Tiers[0].Label != "Critical" || cfg.Tiers[len(cfg.Tiers)-1].Label != "Rejected" {
		t.Fatalf("unexpected tier bands: %+v", cfg.Tiers)
	}
}

func TestWeights_Validate(t *testing.T) {
	good := Weights{
		MarketDemand:          0.20,
		PainIntensity:         0.25,
		MonetizationPotential: 0.20,
		MarketGap:             0.10,
		TechnicalFeasibility:  0.05,
		Simplicity:            0.20,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid weights, got %v", err)
	}

	bad := good
	bad.MarketGap = 0.30
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected error for weights not summing to 1")
	}
	if !strings.Contains(err.Error(), "sum to 1.0") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	base := func(t *testing.T) *Config { return testConfig(t) }

	cfg := base(t)
	cfg.Extraction.FallbackFunctions = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for fallback_functions=0")
	}

	cfg = base(t)
	cfg.ConstraintVersion = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for constraint_version=0")
	}

	cfg = base(t)
	cfg.Tiers = []TierBand{{Threshold: 40, Label: "Low"}, {Threshold: 85, Label: "Critical"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsorted tiers")
	}
}
