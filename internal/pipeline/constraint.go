package pipeline

import (
	"fmt"
	"time"
)

// MaxCoreFunctions is the simplicity constraint: opportunities needing more
// than this many discrete core functions are disqualified. The rule is
// mandatory and never overridden by any other score.
const MaxCoreFunctions = 3

// EnforcementLayer is the pure contract every gate layer implements. The
// orchestrator composes layers explicitly; each one derives its verdict from
// core_functions alone and must not trust upstream flags.
type EnforcementLayer interface {
	Name() string
	Evaluate(coreFunctions int) (disqualified bool, reason string)
}

// ViolationReason formats the canonical disqualification message. Both
// layers use it so the same core_functions always yields byte-identical
// text, which downstream deduplication relies on.
func ViolationReason(coreFunctions int) string {
	return fmt.Sprintf("%d core functions exceed maximum of %d", coreFunctions, MaxCoreFunctions)
}

// validationGate is Layer A: it runs right after extraction/scoring and
// stamps the full constraint metadata onto the record.
type validationGate struct{}

func (validationGate) Name() string { return "validation_gate" }

func (validationGate) Evaluate(coreFunctions int) (bool, string) {
	if coreFunctions > MaxCoreFunctions {
		return true, ViolationReason(coreFunctions)
	}
	return false, ""
}

// preloadGate is Layer B: it runs immediately before merge-load and
// independently recomputes the verdict from core_functions, deliberately
// ignoring whatever Layer A stored.
type preloadGate struct{}

func (preloadGate) Name() string { return "preload_gate" }

func (preloadGate) Evaluate(coreFunctions int) (bool, string) {
	if coreFunctions > MaxCoreFunctions {
		return true, ViolationReason(coreFunctions)
	}
	return false, ""
}

// DefaultLayers returns the two gate layers in execution order.
func DefaultLayers() []EnforcementLayer {
	return []EnforcementLayer{validationGate{}, preloadGate{}}
}

// applyVerdict stamps one layer's verdict and the derived fields onto the
// record. The final score is forced to 0 for disqualified records.
func applyVerdict(rec *Scored, disqualified bool, reason string, now time.Time, cfg *Config) {
	rec.IsDisqualified = disqualified
	rec.ViolationReason = reason
	rec.ValidationTimestamp = now.UTC()
	rec.ConstraintVersion = cfg.ConstraintVersion
	rec.Scores.Simplicity = SimplicityScore(rec.CoreFunctions)
	rec.FinalScore = FinalScore(rec.Scores, cfg.Weights, disqualified)
	rec.PriorityTier = PriorityTier(rec.FinalScore, cfg.Tiers)
	if disqualified {
		rec.ValidationStatus = fmt.Sprintf("DISQUALIFIED (%d functions)", rec.CoreFunctions)
	} else {
		rec.ValidationStatus = "APPROVED"
	}
}
