package pipeline

import (
	"embed"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed config/scoring.yaml
var scoringYAML embed.FS

// Weights are the final-score dimension weights.
type Weights struct {
	MarketDemand          float64 `yaml:"market_demand"`
	PainIntensity         float64 `yaml:"pain_intensity"`
	MonetizationPotential float64 `yaml:"monetization_potential"`
	MarketGap             float64 `yaml:"market_gap"`
	TechnicalFeasibility  float64 `yaml:"technical_feasibility"`
	Simplicity            float64 `yaml:"simplicity"`
}

// Validate rejects weight sets that would silently skew final scores.
func (w Weights) Validate() error {
	sum := w.MarketDemand + w.PainIntensity + w.MonetizationPotential +
		w.MarketGap + w.TechnicalFeasibility + w.Simplicity
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("dimension weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// TierBand maps a minimum final score to a priority label.
type TierBand struct {
	Threshold float64 `yaml:"threshold"`
	Label     string  `yaml:"label"`
}

// ExtractionConfig holds the function-count extraction knobs.
type ExtractionConfig struct {
	FallbackFunctions   int `yaml:"fallback_functions"`
	MaxHeuristicClauses int `yaml:"max_heuristic_clauses"`
}

// MonetizationConfig holds the asymmetric segment weights.
type MonetizationConfig struct {
	B2BWeight float64 `yaml:"b2b_weight"`
	B2CWeight float64 `yaml:"b2c_weight"`
}

// Config is the scoring registry loaded from scoring.yaml.
type Config struct {
	ConstraintVersion int                `yaml:"constraint_version"`
	Weights           Weights            `yaml:"weights"`
	Tiers             []TierBand         `yaml:"tiers"`
	Extraction        ExtractionConfig   `yaml:"extraction"`
	Monetization      MonetizationConfig `yaml:"monetization"`
}

// Validate checks the loaded registry before any record is processed.
// Configuration errors are the only process-fatal condition in the pipeline.
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.ConstraintVersion < 1 {
		return fmt.Errorf("constraint_version must be >= 1, got %d", c.ConstraintVersion)
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("at least one priority tier is required")
	}
	if !sort.SliceIsSorted(c.Tiers, func(i, j int) bool {
		return c.Tiers[i].Threshold > c.Tiers[j].Threshold
	}) {
		return fmt.Errorf("priority tiers must be in descending threshold order")
	}
	if c.Extraction.FallbackFunctions < 1 {
		return fmt.Errorf("extraction.fallback_functions must be >= 1, got %d", c.Extraction.FallbackFunctions)
	}
	if c.Extraction.MaxHeuristicClauses < 1 {
		return fmt.Errorf("extraction.max_heuristic_clauses must be >= 1, got %d", c.Extraction.MaxHeuristicClauses)
	}
	return nil
}

// LoadConfig reads the embedded scoring.yaml and returns the registry.
// A non-empty path overrides the embedded copy for local development.
func LoadConfig(path string) (*Config, error) {
	data, err := scoringYAML.ReadFile("config/scoring.yaml")
	if path != "" {
		// Fallback to filesystem for local development
		if fileData, fileErr := os.ReadFile(path); fileErr == nil {
			data, err = fileData, nil
		} else {
			return nil, fileErr
		}
	}
	if err != nil {
		return nil, err
	}

	// Expand environment variables within the YAML content (e.g. ${SCORING_FALLBACK})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}

	return &cfg, nil
}
