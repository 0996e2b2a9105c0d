package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/david/opportunity-finder/internal/db"
	"github.com/jedib0t/go-pretty/v6/table"
)

func main() {
	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, "SELECT run_id, status, apps_processed, violations_logged, failures, started_at, completed_at FROM process_runs ORDER BY started_at DESC LIMIT 10")
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Run", "Status", "Processed", "Violations", "Failures", "Duration", "Started At"})

	for rows.Next() {
		var runID, status string
		var processed, violations, failures int
		var startedAt time.Time
		var completedAt *time.Time

		if err := rows.Scan(&runID, &status, &processed, &violations, &failures, &startedAt, &completedAt); err != nil {
			log.Printf("Scan error: %v", err)
			continue
		}

		duration := "Running..."
		if completedAt != nil {
			duration = completedAt.Sub(startedAt).Round(time.Second).String()
		}

		t.AppendRow(table.Row{runID[:8], status, processed, violations, failures, duration, startedAt.Format("15:04:05")})
	}
	t.Render()
}
