package models

import (
	"time"

	"github.com/google/uuid"
)

// Opportunity is the persisted, scored shape served to downstream
// collaborators. violation_reason is null for compliant records.
type Opportunity struct {
	ID                    uuid.UUID `json:"id"`
	SourceID              string    `json:"source_id"`
	Title                 string    `json:"title"`
	Body                  string    `json:"body"`
	SourceCategory        string    `json:"source_category"`
	EngagementScore       int       `json:"engagement_score"`
	CommentCount          int       `json:"comment_count"`
	FunctionList          []string  `json:"function_list"`
	CoreFunctions         int       `json:"core_functions"`
	FunctionCountSource   string    `json:"function_count_source"`
	MarketDemand          float64   `json:"market_demand"`
	PainIntensity         float64   `json:"pain_intensity"`
	MonetizationPotential float64   `json:"monetization_potential"`
	MarketGap             float64   `json:"market_gap"`
	TechnicalFeasibility  float64   `json:"technical_feasibility"`
	SimplicityScore       float64   `json:"simplicity_score"`
	FinalScore            float64   `json:"final_score"`
	PriorityTier          string    `json:"priority_tier"`
	IsDisqualified        bool      `json:"is_disqualified"`
	ValidationStatus      string    `json:"validation_status"`
	ViolationReason       *string   `json:"violation_reason"`
	ValidationTimestamp   time.Time `json:"validation_timestamp"`
	ConstraintVersion     int       `json:"constraint_version"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
