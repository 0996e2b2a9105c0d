package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Failure records one candidate excluded from the successful-output set.
type Failure struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

// BatchStats are the batch-scoped accumulators returned from ProcessBatch.
// Cross-batch totals, if needed, are summed by the caller.
type BatchStats struct {
	AppsProcessed    int       `json:"apps_processed"`
	ViolationsLogged int       `json:"violations_logged"`
	Approved         int       `json:"approved"`
	FallbackCounts   int       `json:"fallback_counts"`
	LayerMismatches  int       `json:"layer_mismatches"`
	Failures         []Failure `json:"failures,omitempty"`
}

// Pipeline drives each candidate through extraction, scoring, both
// enforcement layers and the idempotent merge-load.
type Pipeline struct {
	Loader Loader // nil disables persistence (dry-run / report-only mode)
	Config *Config
	Layers []EnforcementLayer

	now func() time.Time
}

// NewPipeline wires the default gate layers. cfg must already be validated;
// LoadConfig does that.
func NewPipeline(loader Loader, cfg *Config) *Pipeline {
	return &Pipeline{
		Loader: loader,
		Config: cfg,
		Layers: DefaultLayers(),
		now:    time.Now,
	}
}

// ProcessBatch runs every candidate independently. A single record's failure
// is logged with its identity and recorded in the stats; it never aborts the
// batch. Re-running the same batch converges to identical destination state.
func (p *Pipeline) ProcessBatch(ctx context.Context, candidates []Candidate) ([]Scored, BatchStats, error) {
	if p.Config == nil {
		return nil, BatchStats{}, fmt.Errorf("pipeline config is nil")
	}
	if err := p.Config.Validate(); err != nil {
		return nil, BatchStats{}, err
	}
	if len(p.Layers) < 2 {
		return nil, BatchStats{}, fmt.Errorf("pipeline requires both enforcement layers, got %d", len(p.Layers))
	}

	stats := BatchStats{}
	results := make([]Scored, 0, len(candidates))

	for _, c := range candidates {
		rec, err := p.processOne(ctx, c, &stats)
		if err != nil {
			id := c.SourceID
			if id == "" {
				id = "(missing id)"
			}
			log.Printf("Record %s excluded: %v", id, err)
			stats.Failures = append(stats.Failures, Failure{SourceID: c.SourceID, Reason: err.Error()})
			continue
		}
		results = append(results, rec)
	}

	return results, stats, nil
}

func (p *Pipeline) processOne(ctx context.Context, c Candidate, stats *BatchStats) (rec Scored, err error) {
	// Nothing in the pure stages should panic, but one bad record must never
	// take the batch down with it.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing: %v", r)
		}
	}()

	if err := validateCandidate(c); err != nil {
		return Scored{}, err
	}

	c.Title = sanitizeUTF8(c.Title)
	c.Body = sanitizeHTML(sanitizeUTF8(c.Body))

	rec = Scored{Candidate: c}

	// Extraction
	rec.CoreFunctions, rec.FunctionCountSource = ExtractFunctionCount(c, p.Config.Extraction)
	if rec.FunctionCountSource == CountSourceFallback {
		stats.FallbackCounts++
	}

	// Scoring
	rec.Scores = ComputeScores(c, rec.CoreFunctions, p.Config)

	// Layer A: attach full constraint metadata.
	now := p.now()
	layerADisqualified, layerAReason := p.Layers[0].Evaluate(rec.CoreFunctions)
	applyVerdict(&rec, layerADisqualified, layerAReason, now, p.Config)

	// Layer B: independently recompute from core_functions right before the
	// merge-load. On disagreement Layer B is authoritative and the mismatch
	// is a defect signal, not a record failure.
	layerBDisqualified, layerBReason := p.Layers[1].Evaluate(rec.CoreFunctions)
	if layerBDisqualified != layerADisqualified || layerBReason != layerAReason {
		log.Printf("[defect] enforcement layers disagree for %s (core_functions=%d): %s=%v %s=%v",
			c.SourceID, rec.CoreFunctions, p.Layers[0].Name(), layerADisqualified, p.Layers[1].Name(), layerBDisqualified)
		stats.LayerMismatches++
		applyVerdict(&rec, layerBDisqualified, layerBReason, now, p.Config)
	}

	// Merge-load
	if p.Loader != nil {
		if err := p.upsertWithRetry(ctx, rec); err != nil {
			return Scored{}, fmt.Errorf("merge-load failed: %w", err)
		}
	}

	stats.AppsProcessed++
	if rec.IsDisqualified {
		stats.ViolationsLogged++
	} else {
		stats.Approved++
	}

	return rec, nil
}

// validateCandidate rejects malformed input: a record lacking both an
// identity key and any text field cannot be scored or merged.
func validateCandidate(c Candidate) error {
	if strings.TrimSpace(c.SourceID) == "" {
		return fmt.Errorf("missing identity key")
	}
	if strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.Body) == "" && len(c.FunctionList) == 0 {
		return fmt.Errorf("no text fields present")
	}
	return nil
}

// upsertWithRetry is the only place the pure pipeline touches I/O. Bounded
// retry with doubling backoff; the final error surfaces per-record.
func (p *Pipeline) upsertWithRetry(ctx context.Context, rec Scored) error {
	const maxAttempts = 3
	delay := 200 * time.Millisecond

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = p.Loader.Upsert(ctx, rec); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		log.Printf("Upsert attempt %d/%d failed for %s: %v", attempt, maxAttempts, rec.SourceID, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
