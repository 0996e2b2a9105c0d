package db

import (
	"context"
	"fmt"
	"time"

	"github.com/david/opportunity-finder/internal/models"
	"github.com/david/opportunity-finder/internal/pipeline"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Upsert seals a scored record into the destination table, keyed by
// source_id. Re-running the same batch converges to identical state:
// validation_timestamp only ever advances, everything else is overwritten
// with the latest pass. Implements pipeline.Loader.
func (s *Store) Upsert(ctx context.Context, rec pipeline.Scored) error {
	query := `
		INSERT INTO opportunities (
			source_id, title, body, source_category, engagement_score,
			comment_count, function_list, explicit_function_count,
			core_functions, function_count_source,
			market_demand, pain_intensity, monetization_potential, market_gap,
			technical_feasibility, simplicity_score, final_score, priority_tier,
			is_disqualified, validation_status, violation_reason,
			validation_timestamp, constraint_version
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18,
			$19, $20, $21,
			$22, $23
		)
		ON CONFLICT (source_id) DO UPDATE SET
			updated_at = NOW(),
			title = EXCLUDED.title,
			body = COALESCE(NULLIF(EXCLUDED.body, ''), opportunities.body),
			source_category = COALESCE(NULLIF(EXCLUDED.source_category, ''), opportunities.source_category),
			engagement_score = EXCLUDED.engagement_score,
			comment_count = EXCLUDED.comment_count,
			function_list = COALESCE(EXCLUDED.function_list, opportunities.function_list),
			explicit_function_count = COALESCE(EXCLUDED.explicit_function_count, opportunities.explicit_function_count),
			core_functions = EXCLUDED.core_functions,
			function_count_source = EXCLUDED.function_count_source,
			market_demand = EXCLUDED.market_demand,
			pain_intensity = EXCLUDED.pain_intensity,
			monetization_potential = EXCLUDED.monetization_potential,
			market_gap = EXCLUDED.market_gap,
			technical_feasibility = EXCLUDED.technical_feasibility,
			simplicity_score = EXCLUDED.simplicity_score,
			final_score = EXCLUDED.final_score,
			priority_tier = EXCLUDED.priority_tier,
			is_disqualified = EXCLUDED.is_disqualified,
			validation_status = EXCLUDED.validation_status,
			violation_reason = EXCLUDED.violation_reason,
			validation_timestamp = GREATEST(EXCLUDED.validation_timestamp, opportunities.validation_timestamp),
			constraint_version = EXCLUDED.constraint_version
	`

	_, err := s.pool.Exec(ctx, query,
		rec.SourceID,                        // $1
		rec.Title,                           // $2
		rec.Body,                            // $3
		nilIfEmpty(rec.SourceCategory),      // $4
		rec.Engagement.Score,                // $5
		rec.Engagement.CommentCount,         // $6
		rec.FunctionList,                    // $7
		nilIfZero(rec.ExplicitFunctionCount), // $8
		rec.CoreFunctions,                   // $9
		string(rec.FunctionCountSource),     // $10
		rec.Scores.MarketDemand,             // $11
		rec.Scores.PainIntensity,            // $12
		rec.Scores.MonetizationPotential,    // $13
		rec.Scores.MarketGap,                // $14
		rec.Scores.TechnicalFeasibility,     // $15
		rec.Scores.Simplicity,               // $16
		rec.FinalScore,                      // $17
		rec.PriorityTier,                    // $18
		rec.IsDisqualified,                  // $19
		rec.ValidationStatus,                // $20
		nilIfEmpty(rec.ViolationReason),     // $21
		rec.ValidationTimestamp,             // $22
		rec.ConstraintVersion,               // $23
	)
	return err
}

type ListParams struct {
	Status   string // "approved", "disqualified" or "all" (default)
	Tier     string
	Category string
	Limit    int
	Offset   int
}

type ListResult struct {
	Opportunities []models.Opportunity `json:"opportunities"`
	Total         int                  `json:"total"`
	Limit         int                  `json:"limit"`
	Offset        int                  `json:"offset"`
}

const selectCols = `id, source_id, title, body, source_category, engagement_score,
	comment_count, function_list, core_functions, function_count_source,
	market_demand, pain_intensity, monetization_potential, market_gap,
	technical_feasibility, simplicity_score, final_score, priority_tier,
	is_disqualified, validation_status, violation_reason, validation_timestamp,
	constraint_version, created_at, updated_at`

func scanOpportunity(scan func(dest ...interface{}) error) (models.Opportunity, error) {
	var o models.Opportunity
	var category, tier, status *string

	err := scan(
		&o.ID, &o.SourceID, &o.Title, &o.Body, &category, &o.EngagementScore,
		&o.CommentCount, &o.FunctionList, &o.CoreFunctions, &o.FunctionCountSource,
		&o.MarketDemand, &o.PainIntensity, &o.MonetizationPotential, &o.MarketGap,
		&o.TechnicalFeasibility, &o.SimplicityScore, &o.FinalScore, &tier,
		&o.IsDisqualified, &status, &o.ViolationReason, &o.ValidationTimestamp,
		&o.ConstraintVersion, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}

	if category != nil {
		o.SourceCategory = *category
	}
	if tier != nil {
		o.PriorityTier = *tier
	}
	if status != nil {
		o.ValidationStatus = *status
	}

	return o, nil
}

func (s *Store) GetBySourceID(ctx context.Context, sourceID string) (*models.Opportunity, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+selectCols+" FROM opportunities WHERE source_id = $1", sourceID)
	o, err := scanOpportunity(row.Scan)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) List(ctx context.Context, params ListParams) (*ListResult, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	switch params.Status {
	case "approved":
		where += " AND is_disqualified = false"
	case "disqualified":
		where += " AND is_disqualified = true"
	}
	if params.Tier != "" {
		where += fmt.Sprintf(" AND priority_tier = $%d", argIdx)
		args = append(args, params.Tier)
		argIdx++
	}
	if params.Category != "" {
		where += fmt.Sprintf(" AND source_category = $%d", argIdx)
		args = append(args, params.Category)
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM opportunities "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count query failed: %w", err)
	}

	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := fmt.Sprintf("SELECT %s FROM opportunities %s ORDER BY final_score DESC, updated_at DESC LIMIT $%d OFFSET $%d",
		selectCols, where, argIdx, argIdx+1)
	args = append(args, limit, params.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list query failed: %w", err)
	}
	defer rows.Close()

	result := &ListResult{Total: total, Limit: limit, Offset: params.Offset}
	for rows.Next() {
		o, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list scan failed: %w", err)
		}
		result.Opportunities = append(result.Opportunities, o)
	}
	return result, rows.Err()
}

// ComplianceReport aggregates the stored audit trail into the same summary
// shape the in-memory reporter produces for a single batch.
func (s *Store) ComplianceReport(ctx context.Context, category string) (pipeline.ComplianceSummary, error) {
	summary := pipeline.ComplianceSummary{}

	where := ""
	var args []interface{}
	if category != "" {
		where = " WHERE source_category = $1"
		args = append(args, category)
	}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE NOT is_disqualified),
		       COUNT(*) FILTER (WHERE is_disqualified)
		FROM opportunities`+where, args...,
	).Scan(&summary.Total, &summary.Approved, &summary.Disqualified)
	if err != nil {
		return summary, fmt.Errorf("compliance count failed: %w", err)
	}

	if summary.Total > 0 {
		summary.ComplianceRate = float64(summary.Approved) / float64(summary.Total)
	} else {
		summary.ComplianceRate = 1.0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT source_id, COALESCE(violation_reason, '')
		FROM opportunities`+appendWhere(where, "is_disqualified")+`
		ORDER BY validation_timestamp DESC`, args...)
	if err != nil {
		return summary, fmt.Errorf("violation query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v pipeline.Violation
		if err := rows.Scan(&v.SourceID, &v.Reason); err != nil {
			return summary, fmt.Errorf("violation scan failed: %w", err)
		}
		summary.Violations = append(summary.Violations, v)
	}
	return summary, rows.Err()
}

func appendWhere(where, cond string) string {
	if where == "" {
		return " WHERE " + cond
	}
	return where + " AND " + cond
}

// PendingCandidates returns staged candidates the collector has written but
// the pipeline has not processed yet.
func (s *Store) PendingCandidates(ctx context.Context, limit int) ([]pipeline.Candidate, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := s.pool.Query(ctx, `
		SELECT source_id, title, body, COALESCE(explicit_function_count, 0),
		       function_list, COALESCE(source_category, ''), engagement_score, comment_count
		FROM candidates
		WHERE processed_at IS NULL
		ORDER BY collected_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending candidates query failed: %w", err)
	}
	defer rows.Close()

	var candidates []pipeline.Candidate
	for rows.Next() {
		var c pipeline.Candidate
		if err := rows.Scan(
			&c.SourceID, &c.Title, &c.Body, &c.ExplicitFunctionCount,
			&c.FunctionList, &c.SourceCategory, &c.Engagement.Score, &c.Engagement.CommentCount,
		); err != nil {
			return nil, fmt.Errorf("pending candidates scan failed: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (s *Store) MarkProcessed(ctx context.Context, sourceIDs []string) error {
	if len(sourceIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, "UPDATE candidates SET processed_at = NOW() WHERE source_id = ANY($1)", sourceIDs)
	return err
}

// CreateRun opens a process_runs row for the current pipeline invocation.
func (s *Store) CreateRun(ctx context.Context) (string, error) {
	var runID string
	err := s.pool.QueryRow(ctx, "INSERT INTO process_runs (status) VALUES ('running') RETURNING run_id").Scan(&runID)
	if err != nil {
		return "", fmt.Errorf("failed to create process run: %w", err)
	}
	return runID, nil
}

// FinishRun records the batch-scoped counters on the run row.
func (s *Store) FinishRun(ctx context.Context, runID, status string, stats pipeline.BatchStats, duration time.Duration) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE process_runs SET
			status = $1,
			apps_processed = $2,
			violations_logged = $3,
			failures = $4,
			completed_at = NOW(),
			details = $5
		WHERE run_id = $6`,
		status, stats.AppsProcessed, stats.ViolationsLogged, len(stats.Failures),
		fmt.Sprintf(`{"duration_ms": %d, "layer_mismatches": %d, "fallback_counts": %d}`,
			duration.Milliseconds(), stats.LayerMismatches, stats.FallbackCounts),
		runID,
	)
	return err
}

// nilIfEmpty returns nil for empty strings so NULL is stored in DB.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nilIfZero(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
