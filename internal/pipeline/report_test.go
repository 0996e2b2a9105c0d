package pipeline

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestBuildReport_Arithmetic(t *testing.T) {
	results := []Scored{
		{Candidate: Candidate{SourceID: "a"}, IsDisqualified: false},
		{Candidate: Candidate{SourceID: "b"}, IsDisqualified: true, ViolationReason: ViolationReason(4)},
		{Candidate: Candidate{SourceID: "c"}, IsDisqualified: false},
		{Candidate: Candidate{SourceID: "d"}, IsDisqualified: true, ViolationReason: ViolationReason(6)},
	}

	summary := BuildReport(results)
	if summary.Total != 4 || summary.Approved != 2 || summary.Disqualified != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Approved+summary.Disqualified != summary.Total {
		t.Fatalf("approved+disqualified != total: %+v", summary)
	}
	if math.Abs(summary.ComplianceRate-0.5) > 1e-9 {
		t.Fatalf("expected rate 0.5, got %v", summary.ComplianceRate)
	}
	if len(summary.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(summary.Violations))
	}
	if summary.Violations[0].SourceID != "b" || summary.Violations[0].Reason != "4 core functions exceed maximum of 3" {
		t.Fatalf("unexpected first violation: %+v", summary.Violations[0])
	}
}

func TestBuildReport_EmptyBatch(t *testing.T) {
	summary := BuildReport(nil)
	if summary.Total != 0 {
		t.Fatalf("unexpected total: %d", summary.Total)
	}
	if summary.ComplianceRate != 1.0 {
		t.Fatalf("expected vacuous compliance 1.0, got %v", summary.ComplianceRate)
	}
}

func TestMeetsThreshold(t *testing.T) {
	summary := ComplianceSummary{ComplianceRate: 0.70}
	if !summary.MeetsThreshold(0.70) {
		t.Fatal("rate equal to threshold must pass")
	}
	if !summary.MeetsThreshold(0.50) {
		t.Fatal("rate above threshold must pass")
	}
	if summary.MeetsThreshold(0.75) {
		t.Fatal("rate below threshold must fail")
	}
}

func TestRenderReport_IncludesViolations(t *testing.T) {
	var buf bytes.Buffer
	RenderReport(&buf, ComplianceSummary{
		Total:          3,
		Approved:       2,
		Disqualified:   1,
		ComplianceRate: 2.0 / 3.0,
		Violations: []Violation{
			{SourceID: "abc123", Reason: ViolationReason(4)},
		},
	})

	out := buf.String()
	if !strings.Contains(out, "COMPLIANCE RATE") && !strings.Contains(out, "Compliance Rate") {
		t.Fatalf("expected header in output:\n%s", out)
	}
	if !strings.Contains(out, "abc123") {
		t.Fatalf("expected violation identity in output:\n%s", out)
	}
	if !strings.Contains(out, "4 core functions exceed maximum of 3") {
		t.Fatalf("expected violation reason in output:\n%s", out)
	}
}
