// Package repository persists calls, staged transcripts and scored insights.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"callqa_backend/internal/calls/domain"
	"callqa_backend/platform/apperr"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const callColumns = `
	id, agent_id, city_id,
	customer_phone, customer_name, customer_preferred_language,
	audio_key, duration_seconds, call_timestamp,
	call_context, primary_issue_category, agent_manual_note,
	processing_status, failure_reason,
	created_at, updated_at`

func scanCall(row pgx.Row) (*domain.Call, error) {
	var c domain.Call
	err := row.Scan(
		&c.ID, &c.AgentID, &c.CityID,
		&c.CustomerPhone, &c.CustomerName, &c.CustomerPreferredLanguage,
		&c.AudioKey, &c.DurationSeconds, &c.CallTimestamp,
		&c.CallContext, &c.PrimaryIssueCategory, &c.AgentManualNote,
		&c.Status, &c.FailureReason,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("call not found")
		}
		return nil, fmt.Errorf("scan call: %w", err)
	}
	return &c, nil
}

func (r *Repository) CreateCall(ctx context.Context, c *domain.Call) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calls (`+callColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		c.ID, c.AgentID, c.CityID,
		c.CustomerPhone, c.CustomerName, c.CustomerPreferredLanguage,
		c.AudioKey, c.DurationSeconds, c.CallTimestamp,
		c.CallContext, c.PrimaryIssueCategory, c.AgentManualNote,
		c.Status, c.FailureReason,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

func (r *Repository) GetCall(ctx context.Context, id uuid.UUID) (*domain.Call, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+callColumns+` FROM calls WHERE id = $1`, id)
	return scanCall(row)
}

// ListFilter narrows ListCalls. Zero values mean "no filter".
type ListFilter struct {
	Status  domain.Status
	AgentID *uuid.UUID
	CityID  *int32
	Limit   int
	Offset  int
}

func (r *Repository) ListCalls(ctx context.Context, f ListFilter) ([]*domain.Call, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	query := `SELECT ` + callColumns + ` FROM calls WHERE 1=1`
	args := []any{}
	n := 0
	add := func(clause string, v any) {
		n++
		args = append(args, v)
		query += fmt.Sprintf(" AND %s = $%d", clause, n)
	}
	if f.Status != "" {
		add("processing_status", f.Status)
	}
	if f.AgentID != nil {
		add("agent_id", *f.AgentID)
	}
	if f.CityID != nil {
		add("city_id", *f.CityID)
	}
	query += fmt.Sprintf(" ORDER BY call_timestamp DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	calls := make([]*domain.Call, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// ListStuck returns non-terminal calls that have been sitting since before
// the cutoff. The sweep marks them failed.
func (r *Repository) ListStuck(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM calls
		WHERE processing_status IN ('pending', 'transcribed') AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stuck calls: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) StageTranscript(ctx context.Context, callID uuid.UUID, transcript string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO call_transcripts (call_id, transcript)
		VALUES ($1, $2)
		ON CONFLICT (call_id) DO UPDATE SET transcript = EXCLUDED.transcript
	`, callID, transcript)
	if err != nil {
		return fmt.Errorf("stage transcript: %w", err)
	}
	return nil
}

// StagedTranscript returns the staged transcript, or "" when none exists.
func (r *Repository) StagedTranscript(ctx context.Context, callID uuid.UUID) (string, error) {
	var text string
	err := r.pool.QueryRow(ctx,
		`SELECT transcript FROM call_transcripts WHERE call_id = $1`, callID).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load staged transcript: %w", err)
	}
	return text, nil
}

const insightColumns = `
	call_id, transcript, language_spoken,
	sop_compliance_score, communication_score,
	sentiment_stabilization_score, resolution_validity_score,
	overall_quality_score, coaching_priority,
	escalation_risk, why_flagged, human_remarks,
	business_insight, coaching_insight,
	issue_analysis, resolution_analysis, sop_deviations, sentiment_trajectory,
	created_at`

func scanInsight(row pgx.Row) (*domain.CallInsight, error) {
	var ins domain.CallInsight
	var issue, resolution, deviations, trajectory []byte
	err := row.Scan(
		&ins.CallID, &ins.Transcript, &ins.LanguageSpoken,
		&ins.SOPComplianceScore, &ins.CommunicationScore,
		&ins.SentimentStabilizationScore, &ins.ResolutionValidityScore,
		&ins.OverallQualityScore, &ins.CoachingPriority,
		&ins.EscalationRisk, &ins.WhyFlagged, &ins.HumanRemarks,
		&ins.BusinessInsight, &ins.CoachingInsight,
		&issue, &resolution, &deviations, &trajectory,
		&ins.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("insight not found")
		}
		return nil, fmt.Errorf("scan insight: %w", err)
	}
	if err := json.Unmarshal(issue, &ins.IssueAnalysis); err != nil {
		return nil, fmt.Errorf("decode issue analysis: %w", err)
	}
	if err := json.Unmarshal(resolution, &ins.ResolutionAnalysis); err != nil {
		return nil, fmt.Errorf("decode resolution analysis: %w", err)
	}
	if err := json.Unmarshal(deviations, &ins.SOPDeviations); err != nil {
		return nil, fmt.Errorf("decode sop deviations: %w", err)
	}
	if err := json.Unmarshal(trajectory, &ins.SentimentTrajectory); err != nil {
		return nil, fmt.Errorf("decode sentiment trajectory: %w", err)
	}
	return &ins, nil
}

func (r *Repository) GetInsight(ctx context.Context, callID uuid.UUID) (*domain.CallInsight, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+insightColumns+` FROM call_insights WHERE call_id = $1`, callID)
	return scanInsight(row)
}

// UpdateHumanRemarks sets the reviewer remarks on an existing insight. The
// rest of the insight row stays immutable.
func (r *Repository) UpdateHumanRemarks(ctx context.Context, callID uuid.UUID, remarks string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE call_insights SET human_remarks = $2 WHERE call_id = $1`, callID, remarks)
	if err != nil {
		return fmt.Errorf("update human remarks: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("insight not found")
	}
	return nil
}
