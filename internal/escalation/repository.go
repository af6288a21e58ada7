// Package escalation provides the read-side monitor over flagged calls.
package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"callqa_backend/platform/apperr"
)

// FlaggedCall is one analyzed call surfaced by a monitor query.
type FlaggedCall struct {
	CallID               uuid.UUID
	AgentID              *uuid.UUID
	AgentName            *string
	CityID               *int32
	CityName             *string
	CallTimestamp        time.Time
	PrimaryIssueCategory *string
	CoachingPriority     float64
	OverallQuality       float64
	EscalationRisk       bool
	WhyFlagged           *string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Only analyzed calls with a persisted insight are eligible; the status
// filter keeps mid-transition calls out even though the join already
// requires an insight row.
const flaggedSelect = `
	SELECT c.id, c.agent_id, a.name, c.city_id, ct.name,
	       c.call_timestamp, c.primary_issue_category,
	       i.coaching_priority, i.overall_quality_score,
	       i.escalation_risk, i.why_flagged
	FROM calls c
	JOIN call_insights i ON i.call_id = c.id
	LEFT JOIN agents a ON a.id = c.agent_id
	LEFT JOIN cities ct ON ct.id = c.city_id
	WHERE c.processing_status = 'analyzed'`

func collectFlagged(rows pgx.Rows) ([]FlaggedCall, error) {
	defer rows.Close()
	var out []FlaggedCall
	for rows.Next() {
		var f FlaggedCall
		err := rows.Scan(
			&f.CallID, &f.AgentID, &f.AgentName, &f.CityID, &f.CityName,
			&f.CallTimestamp, &f.PrimaryIssueCategory,
			&f.CoachingPriority, &f.OverallQuality,
			&f.EscalationRisk, &f.WhyFlagged,
		)
		if err != nil {
			return nil, fmt.Errorf("scan flagged call: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Recent returns escalation-flagged calls within the window, newest first.
func (r *Repository) Recent(ctx context.Context, window time.Duration) ([]FlaggedCall, error) {
	q := flaggedSelect + `
		AND i.escalation_risk
		AND c.call_timestamp >= now() - make_interval(secs => $1)
		ORDER BY c.call_timestamp DESC`
	rows, err := r.pool.Query(ctx, q, window.Seconds())
	if err != nil {
		return nil, fmt.Errorf("query recent escalations: %w", err)
	}
	return collectFlagged(rows)
}

// ByScoreThreshold returns calls within the window whose coaching priority
// meets the threshold, highest score first, recency breaking ties.
func (r *Repository) ByScoreThreshold(ctx context.Context, minScore float64, window time.Duration) ([]FlaggedCall, error) {
	q := flaggedSelect + `
		AND i.coaching_priority >= $1
		AND c.call_timestamp >= now() - make_interval(secs => $2)
		ORDER BY i.coaching_priority DESC, c.call_timestamp DESC`
	rows, err := r.pool.Query(ctx, q, minScore, window.Seconds())
	if err != nil {
		return nil, fmt.Errorf("query escalations by score: %w", err)
	}
	return collectFlagged(rows)
}

// WorstCallForAgent returns the agent's highest-coaching-priority call in
// the window; ties go to the earliest call so the answer is reproducible.
func (r *Repository) WorstCallForAgent(ctx context.Context, agentID uuid.UUID, window time.Duration) (*FlaggedCall, error) {
	q := flaggedSelect + `
		AND c.agent_id = $1
		AND c.call_timestamp >= now() - make_interval(secs => $2)
		ORDER BY i.coaching_priority DESC, c.call_timestamp ASC
		LIMIT 1`

	rows, err := r.pool.Query(ctx, q, agentID, window.Seconds())
	if err != nil {
		return nil, fmt.Errorf("query worst call: %w", err)
	}
	calls, err := collectFlagged(rows)
	if err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		return nil, apperr.NotFound("no analyzed calls for agent in window")
	}
	return &calls[0], nil
}
