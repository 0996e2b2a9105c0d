package pipeline

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"
)

// fakeLoader is an in-memory destination keyed by source_id, mirroring the
// idempotent upsert contract of the real store.
type fakeLoader struct {
	records  map[string]Scored
	upserts  int
	failures map[string]int // remaining Upsert failures per source_id
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{records: map[string]Scored{}, failures: map[string]int{}}
}

func (f *fakeLoader) Upsert(_ context.Context, rec Scored) error {
	f.upserts++
	if f.failures[rec.SourceID] > 0 {
		f.failures[rec.SourceID]--
		return fmt.Errorf("destination unavailable")
	}
	existing, ok := f.records[rec.SourceID]
	if ok && rec.ValidationTimestamp.Before(existing.ValidationTimestamp) {
		rec.ValidationTimestamp = existing.ValidationTimestamp
	}
	f.records[rec.SourceID] = rec
	return nil
}

func testPipeline(t *testing.T, loader Loader) *Pipeline {
	t.Helper()
	return NewPipeline(loader, testConfig(t))
}

func candidateWithFunctions(id string, functions int) Candidate {
	return Candidate{
		SourceID:              id,
		Title:                 "Some recurring workflow complaint",
		ExplicitFunctionCount: functions,
		SourceCategory:        "r/smallbusiness",
		Engagement:            EngagementMetrics{Score: 40, CommentCount: 12},
	}
}

func TestProcessBatch_ScenarioDisqualified(t *testing.T) {
	p := testPipeline(t, nil)

	results, stats, err := p.ProcessBatch(context.Background(), []Candidate{{
		SourceID:     "abc123",
		Title:        "App idea with too many features",
		FunctionList: []string{"a", "b", "c", "d"},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	rec := results[0]
	if rec.CoreFunctions != 4 {
		t.Fatalf("expected core_functions=4, got %d", rec.CoreFunctions)
	}
	if !rec.IsDisqualified {
		t.Fatal("expected disqualification")
	}
	if rec.FinalScore != 0 {
		t.Fatalf("expected final_score=0, got %v", rec.FinalScore)
	}
	if rec.ValidationStatus != "DISQUALIFIED (4 functions)" {
		t.Fatalf("unexpected validation status: %q", rec.ValidationStatus)
	}
	if stats.ViolationsLogged != 1 || stats.AppsProcessed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestProcessBatch_ScenarioSimpleMonetizable(t *testing.T) {
	p := testPipeline(t, nil)

	results, _, err := p.ProcessBatch(context.Background(), []Candidate{{
		SourceID:     "xyz1",
		FunctionList: []string{"a"},
		Body:         "frustrated, willing to pay $10/mo",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	rec := results[0]
	if rec.CoreFunctions != 1 {
		t.Fatalf("expected core_functions=1, got %d", rec.CoreFunctions)
	}
	if rec.Scores.Simplicity != 100 {
		t.Fatalf("expected simplicity 100, got %v", rec.Scores.Simplicity)
	}
	if rec.Scores.MonetizationPotential <= 0 {
		t.Fatalf("expected positive monetization, got %v", rec.Scores.MonetizationPotential)
	}
	if rec.IsDisqualified {
		t.Fatal("expected approval")
	}

	expected := FinalScore(rec.Scores, p.Config.Weights, false)
	if math.Abs(rec.FinalScore-expected) > 1e-9 {
		t.Fatalf("expected weighted-formula result %v, got %v", expected, rec.FinalScore)
	}
}

func TestProcessBatch_ComplianceDistribution(t *testing.T) {
	p := testPipeline(t, nil)

	batch := []Candidate{
		candidateWithFunctions("c1", 1),
		candidateWithFunctions("c2", 1),
		candidateWithFunctions("c3", 2),
		candidateWithFunctions("c4", 2),
		candidateWithFunctions("c5", 3),
		candidateWithFunctions("c6", 3),
		candidateWithFunctions("c7", 3),
		candidateWithFunctions("c8", 4),
		candidateWithFunctions("c9", 5),
		candidateWithFunctions("c10", 6),
	}

	results, stats, err := p.ProcessBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary := BuildReport(results)
	if summary.Total != 10 || summary.Approved != 7 || summary.Disqualified != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.ComplianceRate != 0.70 {
		t.Fatalf("expected compliance rate exactly 0.70, got %v", summary.ComplianceRate)
	}
	if summary.Approved+summary.Disqualified != summary.Total {
		t.Fatalf("compliance arithmetic broken: %+v", summary)
	}
	if stats.AppsProcessed != 10 || stats.ViolationsLogged != 3 || stats.Approved != 7 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestProcessBatch_Idempotent(t *testing.T) {
	loader := newFakeLoader()
	p := testPipeline(t, loader)

	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Hour)
	p.now = func() time.Time { return t1 }

	batch := []Candidate{
		candidateWithFunctions("dup1", 2),
		candidateWithFunctions("dup2", 5),
	}

	if _, _, err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first := make(map[string]Scored, len(loader.records))
	for id, rec := range loader.records {
		first[id] = rec
	}

	p.now = func() time.Time { return t2 }
	if _, _, err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if len(loader.records) != len(first) {
		t.Fatalf("re-ingestion duplicated records: %d vs %d", len(loader.records), len(first))
	}
	for id, before := range first {
		after := loader.records[id]
		if !after.ValidationTimestamp.After(before.ValidationTimestamp) {
			t.Fatalf("%s: validation timestamp did not advance", id)
		}
		before.ValidationTimestamp = time.Time{}
		after.ValidationTimestamp = time.Time{}
		if !reflect.DeepEqual(before, after) {
			t.Fatalf("%s: destination state diverged across identical runs:\nbefore: %+v\nafter:  %+v", id, before, after)
		}
	}
}

func TestProcessBatch_TimestampNeverRegresses(t *testing.T) {
	loader := newFakeLoader()
	p := testPipeline(t, loader)

	later := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	batch := []Candidate{candidateWithFunctions("mono1", 1)}

	p.now = func() time.Time { return later }
	if _, _, err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	p.now = func() time.Time { return earlier }
	if _, _, err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if got := loader.records["mono1"].ValidationTimestamp; !got.Equal(later) {
		t.Fatalf("expected timestamp to stay at %s, got %s", later, got)
	}
}

func TestProcessBatch_MalformedRecordRejected(t *testing.T) {
	p := testPipeline(t, nil)

	results, stats, err := p.ProcessBatch(context.Background(), []Candidate{
		{SourceID: "", Title: "has text but no identity"},
		{SourceID: "empty1"},
		candidateWithFunctions("ok1", 1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 1 || results[0].SourceID != "ok1" {
		t.Fatalf("expected only ok1 to survive, got %+v", results)
	}
	if len(stats.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", stats.Failures)
	}
	if stats.AppsProcessed != 1 {
		t.Fatalf("expected 1 processed, got %d", stats.AppsProcessed)
	}
}

func TestProcessBatch_DestinationFailureIsolated(t *testing.T) {
	loader := newFakeLoader()
	loader.failures["bad1"] = 10 // beyond the retry budget

	p := testPipeline(t, loader)
	results, stats, err := p.ProcessBatch(context.Background(), []Candidate{
		candidateWithFunctions("good1", 1),
		candidateWithFunctions("bad1", 2),
		candidateWithFunctions("good2", 3),
	})
	if err != nil {
		t.Fatalf("batch must not abort on a record failure: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 successful records, got %d", len(results))
	}
	if _, ok := loader.records["bad1"]; ok {
		t.Fatal("failed record must not reach the destination")
	}
	if len(stats.Failures) != 1 || stats.Failures[0].SourceID != "bad1" {
		t.Fatalf("expected bad1 failure recorded, got %+v", stats.Failures)
	}
}

func TestProcessBatch_TransientDestinationFailureRetried(t *testing.T) {
	loader := newFakeLoader()
	loader.failures["flaky1"] = 2 // recovers within the retry budget

	p := testPipeline(t, loader)
	results, stats, err := p.ProcessBatch(context.Background(), []Candidate{
		candidateWithFunctions("flaky1", 2),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || len(stats.Failures) != 0 {
		t.Fatalf("expected retry to succeed, results=%d failures=%+v", len(results), stats.Failures)
	}
	if _, ok := loader.records["flaky1"]; !ok {
		t.Fatal("expected record persisted after retries")
	}
}

func TestProcessBatch_FallbackCounted(t *testing.T) {
	p := testPipeline(t, nil)

	results, stats, err := p.ProcessBatch(context.Background(), []Candidate{{
		SourceID: "vague1",
		Title:    "Unstructured rant",
		Body:     "No enumeration anywhere in here.",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.FallbackCounts != 1 {
		t.Fatalf("expected fallback counter incremented, got %d", stats.FallbackCounts)
	}
	if results[0].FunctionCountSource != CountSourceFallback {
		t.Fatalf("expected fallback source, got %s", results[0].FunctionCountSource)
	}
	if results[0].CoreFunctions != 3 {
		t.Fatalf("expected fallback count 3, got %d", results[0].CoreFunctions)
	}
	if results[0].IsDisqualified {
		t.Fatal("fallback must stay non-disqualifying by default")
	}
}

func TestProcessBatch_OrderIndependent(t *testing.T) {
	forward := newFakeLoader()
	reversed := newFakeLoader()

	batch := []Candidate{
		candidateWithFunctions("o1", 1),
		candidateWithFunctions("o2", 4),
		candidateWithFunctions("o3", 2),
	}
	backwards := []Candidate{batch[2], batch[1], batch[0]}

	fixed := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)

	p1 := testPipeline(t, forward)
	p1.now = func() time.Time { return fixed }
	if _, _, err := p1.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("forward run failed: %v", err)
	}

	p2 := testPipeline(t, reversed)
	p2.now = func() time.Time { return fixed }
	if _, _, err := p2.ProcessBatch(context.Background(), backwards); err != nil {
		t.Fatalf("reversed run failed: %v", err)
	}

	if !reflect.DeepEqual(forward.records, reversed.records) {
		t.Fatal("destination state depends on intra-batch order")
	}
}
