package pipeline

import (
	"context"
	"time"
)

// EngagementMetrics carries the raw engagement signals the collector saw on
// the source thread.
type EngagementMetrics struct {
	Score        int `json:"score"`
	CommentCount int `json:"comment_count"`
}

// Candidate is the untrusted, unnormalized record handed over by the
// thread-collection collaborator.
type Candidate struct {
	SourceID              string            `json:"id"`
	Title                 string            `json:"title"`
	Body                  string            `json:"body"`
	ExplicitFunctionCount int               `json:"explicit_function_count,omitempty"`
	FunctionList          []string          `json:"function_list,omitempty"`
	SourceCategory        string            `json:"source_category"`
	Engagement            EngagementMetrics `json:"engagement_metrics"`
}

// CountSource identifies which extraction strategy resolved core_functions.
type CountSource string

const (
	CountSourceExplicit  CountSource = "explicit_count"
	CountSourceList      CountSource = "explicit_list"
	CountSourceHeuristic CountSource = "text_heuristic"
	CountSourceFallback  CountSource = "fallback"
)

// DimensionScores holds the five independent suitability dimensions plus the
// simplicity score derived from core_functions. All values are in [0,100].
type DimensionScores struct {
	MarketDemand          float64 `json:"market_demand"`
	PainIntensity         float64 `json:"pain_intensity"`
	MonetizationPotential float64 `json:"monetization_potential"`
	MarketGap             float64 `json:"market_gap"`
	TechnicalFeasibility  float64 `json:"technical_feasibility"`
	Simplicity            float64 `json:"simplicity_score"`
}

// Scored is a candidate after extraction, scoring and both enforcement
// layers. It is the shape sealed into the destination store.
type Scored struct {
	Candidate
	CoreFunctions       int             `json:"core_functions"`
	FunctionCountSource CountSource     `json:"function_count_source"`
	Scores              DimensionScores `json:"scores"`
	FinalScore          float64         `json:"final_score"`
	PriorityTier        string          `json:"priority_tier"`
	IsDisqualified      bool            `json:"is_disqualified"`
	ValidationStatus    string          `json:"validation_status"`
	ViolationReason     string          `json:"violation_reason,omitempty"`
	ValidationTimestamp time.Time       `json:"validation_timestamp"`
	ConstraintVersion   int             `json:"constraint_version"`
}

// Loader seals scored records into the destination store. The upsert must be
// keyed by SourceID and tolerate at-least-once delivery.
type Loader interface {
	Upsert(ctx context.Context, rec Scored) error
}
