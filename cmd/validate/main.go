package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/david/opportunity-finder/internal/pipeline"
)

// validate runs a batch file through the full pipeline in memory (no
// database) and prints the compliance report. Exit code reflects process
// success: a batch containing violations is the expected, successful case.
// With -strict, a compliance rate below -min-rate exits non-zero so CI can
// gate on it.
func main() {
	input := flag.String("input", "", "Batch file of candidate records (JSON array or NDJSON). Use '-' for stdin")
	configPath := flag.String("config", "", "Optional scoring.yaml override (defaults to embedded config)")
	format := flag.String("format", "table", "Output format: table or json")
	strict := flag.Bool("strict", false, "Exit non-zero when compliance rate falls below -min-rate")
	minRate := flag.Float64("min-rate", 1.0, "Minimum compliance rate for -strict mode")
	flag.Parse()

	if *input == "" {
		log.Fatal("Please provide a batch file using -input")
	}

	cfg, err := pipeline.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load scoring config: %v", err)
	}

	candidates, err := readBatch(*input)
	if err != nil {
		log.Fatalf("Failed to read batch: %v", err)
	}

	p := pipeline.NewPipeline(nil, cfg)
	results, stats, err := p.ProcessBatch(context.Background(), candidates)
	if err != nil {
		log.Fatalf("Processing failed: %v", err)
	}

	summary := pipeline.BuildReport(results)

	switch *format {
	case "json":
		out := struct {
			Summary pipeline.ComplianceSummary `json:"summary"`
			Stats   pipeline.BatchStats        `json:"stats"`
		}{summary, stats}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatalf("Failed to encode report: %v", err)
		}
	default:
		pipeline.RenderReport(os.Stdout, summary)
		for _, failure := range stats.Failures {
			fmt.Printf("rejected: %s (%s)\n", failure.SourceID, failure.Reason)
		}
		if stats.LayerMismatches > 0 {
			fmt.Printf("layer mismatches (defect signal): %d\n", stats.LayerMismatches)
		}
		if stats.FallbackCounts > 0 {
			fmt.Printf("records on fallback function count: %d\n", stats.FallbackCounts)
		}
	}

	if *strict && !summary.MeetsThreshold(*minRate) {
		log.Printf("Compliance rate %.4f below required %.4f", summary.ComplianceRate, *minRate)
		os.Exit(1)
	}
}

// readBatch accepts either a JSON array or newline-delimited JSON objects.
func readBatch(path string) ([]pipeline.Candidate, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty batch file")
	}

	if trimmed[0] == '[' {
		var candidates []pipeline.Candidate
		if err := json.Unmarshal(trimmed, &candidates); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		return candidates, nil
	}

	var candidates []pipeline.Candidate
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 8*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var c pipeline.Candidate
		if err := json.Unmarshal(text, &c); err != nil {
			return nil, fmt.Errorf("invalid record on line %d: %w", line, err)
		}
		candidates = append(candidates, c)
	}
	return candidates, scanner.Err()
}
