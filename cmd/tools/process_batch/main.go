package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/david/opportunity-finder/internal/db"
	"github.com/david/opportunity-finder/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	limit := flag.Int("limit", 500, "Maximum staged candidates to process")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := pipeline.LoadConfig(os.Getenv("SCORING_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load scoring config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	store := db.NewStore(pool)
	candidates, err := store.PendingCandidates(ctx, *limit)
	if err != nil {
		log.Fatalf("Failed to load staged candidates: %v", err)
	}
	if len(candidates) == 0 {
		log.Println("No pending candidates")
		return
	}

	runID, err := store.CreateRun(ctx)
	if err != nil {
		log.Printf("[Warn] Failed to create process run: %v", err)
	}

	start := time.Now()
	p := pipeline.NewPipeline(store, cfg)
	results, stats, err := p.ProcessBatch(ctx, candidates)
	if err != nil {
		if runID != "" {
			_ = store.FinishRun(ctx, runID, "failed", stats, time.Since(start))
		}
		log.Fatalf("Processing failed: %v", err)
	}

	processed := make([]string, 0, len(results))
	for _, rec := range results {
		processed = append(processed, rec.SourceID)
	}
	if err := store.MarkProcessed(ctx, processed); err != nil {
		log.Printf("[Warn] Failed to mark candidates processed: %v", err)
	}

	if runID != "" {
		if err := store.FinishRun(ctx, runID, "completed", stats, time.Since(start)); err != nil {
			log.Printf("Failed to finish process run %s: %v", runID, err)
		}
	}

	summary := pipeline.BuildReport(results)
	log.Printf("Batch finished. Processed: %d, Approved: %d, Violations: %d, Failures: %d, Compliance: %.2f%%",
		stats.AppsProcessed, stats.Approved, stats.ViolationsLogged, len(stats.Failures), summary.ComplianceRate*100)
}
