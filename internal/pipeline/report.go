package pipeline

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Violation is one (identity, reason) pair from a processed batch. It is
// always derived from a scored record, never created independently.
type Violation struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

// ComplianceSummary is the read-only aggregate over a processed batch.
type ComplianceSummary struct {
	Total          int         `json:"total"`
	Approved       int         `json:"approved"`
	Disqualified   int         `json:"disqualified"`
	ComplianceRate float64     `json:"compliance_rate"`
	Violations     []Violation `json:"violations,omitempty"`
}

// BuildReport aggregates a batch of scored records. It performs no mutation.
func BuildReport(results []Scored) ComplianceSummary {
	summary := ComplianceSummary{Total: len(results)}
	for _, rec := range results {
		if rec.IsDisqualified {
			summary.Disqualified++
			summary.Violations = append(summary.Violations, Violation{
				SourceID: rec.SourceID,
				Reason:   rec.ViolationReason,
			})
		} else {
			summary.Approved++
		}
	}
	if summary.Total > 0 {
		summary.ComplianceRate = float64(summary.Approved) / float64(summary.Total)
	} else {
		// An empty batch has nothing out of compliance.
		summary.ComplianceRate = 1.0
	}
	return summary
}

// MeetsThreshold reports whether the batch passes a caller-supplied minimum
// compliance rate. The policy of failing on it belongs to the caller.
func (s ComplianceSummary) MeetsThreshold(min float64) bool {
	return s.ComplianceRate >= min
}

// RenderReport writes the human-readable compliance report.
func RenderReport(w io.Writer, s ComplianceSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Total", "Approved", "Disqualified", "Compliance Rate"})
	t.AppendRow(table.Row{s.Total, s.Approved, s.Disqualified, fmt.Sprintf("%.2f%%", s.ComplianceRate*100)})
	t.Render()

	if len(s.Violations) == 0 {
		return
	}

	fmt.Fprintln(w)
	v := table.NewWriter()
	v.SetOutputMirror(w)
	v.AppendHeader(table.Row{"Source ID", "Violation"})
	for _, violation := range s.Violations {
		v.AppendRow(table.Row{violation.SourceID, violation.Reason})
	}
	v.Render()
}
