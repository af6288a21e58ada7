package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"callqa_backend/internal/calls/domain"
	"callqa_backend/internal/metrics"
	"callqa_backend/platform/apperr"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// TransitionStatus moves the call from one of the allowed statuses to next
// with a compare-and-set. Returns apperr.Conflict when the call is no longer
// in an allowed status, so a losing contender can re-read and reconcile.
func (r *Repository) TransitionStatus(ctx context.Context, callID uuid.UUID, allowed []domain.Status, next domain.Status) error {
	from := make([]string, len(allowed))
	for i, s := range allowed {
		from[i] = string(s)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE calls
		SET processing_status = $2, updated_at = now()
		WHERE id = $1 AND processing_status = ANY($3)
	`, callID, next, from)
	if err != nil {
		return fmt.Errorf("transition call status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("call status changed concurrently")
	}
	return nil
}

// MarkFailed moves a non-terminal call to failed and records the reason.
// Calls already in a terminal state are left untouched; the returned bool
// reports whether this invocation performed the transition.
func (r *Repository) MarkFailed(ctx context.Context, callID uuid.UUID, reason string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE calls
		SET processing_status = 'failed', failure_reason = $2, updated_at = now()
		WHERE id = $1 AND processing_status IN ('pending', 'transcribed')
	`, callID, reason)
	if err != nil {
		return false, fmt.Errorf("mark call failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// LogDuplicateScoring records a scoring submission rejected because the call
// was already analyzed. The attempted payload is kept for audit.
func (r *Repository) LogDuplicateScoring(ctx context.Context, callID uuid.UUID, reason string, attempted *domain.ScoringResult) error {
	payload, err := json.Marshal(attempted)
	if err != nil {
		return fmt.Errorf("encode attempted scoring: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO scoring_audit (call_id, reason, attempted)
		VALUES ($1, $2, $3)
	`, callID, reason, payload)
	if err != nil {
		return fmt.Errorf("insert scoring audit: %w", err)
	}
	return nil
}

// FinalizeAnalysis commits the analyzed state atomically: the status
// compare-and-set, the insight insert and the aggregate updates performed by
// apply all ride the same transaction. A lost race on either the status or
// the insight primary key surfaces as apperr.Conflict with nothing written.
func (r *Repository) FinalizeAnalysis(ctx context.Context, call *domain.Call, insight *domain.CallInsight, apply func(ctx context.Context, tx metrics.TxStore) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin finalize tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE calls
		SET processing_status = 'analyzed', updated_at = now()
		WHERE id = $1 AND processing_status IN ('pending', 'transcribed')
	`, call.ID)
	if err != nil {
		return fmt.Errorf("finalize status transition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("call is no longer eligible for analysis")
	}

	if err := insertInsight(ctx, tx, insight); err != nil {
		return err
	}

	if apply != nil {
		if err := apply(ctx, metrics.NewTxStore(tx)); err != nil {
			return fmt.Errorf("apply aggregates: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit finalize tx: %w", err)
	}
	return nil
}

func insertInsight(ctx context.Context, tx pgx.Tx, ins *domain.CallInsight) error {
	issue, err := json.Marshal(orEmptyObject(ins.IssueAnalysis))
	if err != nil {
		return fmt.Errorf("encode issue analysis: %w", err)
	}
	resolution, err := json.Marshal(orEmptyObject(ins.ResolutionAnalysis))
	if err != nil {
		return fmt.Errorf("encode resolution analysis: %w", err)
	}
	deviations, err := json.Marshal(orEmptyDeviations(ins.SOPDeviations))
	if err != nil {
		return fmt.Errorf("encode sop deviations: %w", err)
	}
	trajectory, err := json.Marshal(orEmptyTrajectory(ins.SentimentTrajectory))
	if err != nil {
		return fmt.Errorf("encode sentiment trajectory: %w", err)
	}

	if ins.CreatedAt.IsZero() {
		ins.CreatedAt = time.Now()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO call_insights (
			call_id, transcript, language_spoken,
			sop_compliance_score, communication_score,
			sentiment_stabilization_score, resolution_validity_score,
			overall_quality_score, coaching_priority,
			escalation_risk, why_flagged,
			business_insight, coaching_insight,
			issue_analysis, resolution_analysis, sop_deviations, sentiment_trajectory,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		ins.CallID, ins.Transcript, ins.LanguageSpoken,
		ins.SOPComplianceScore, ins.CommunicationScore,
		ins.SentimentStabilizationScore, ins.ResolutionValidityScore,
		ins.OverallQualityScore, ins.CoachingPriority,
		ins.EscalationRisk, ins.WhyFlagged,
		ins.BusinessInsight, ins.CoachingInsight,
		issue, resolution, deviations, trajectory,
		ins.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("insight already exists for call")
		}
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

func orEmptyObject(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptyDeviations(d []domain.Deviation) []domain.Deviation {
	if d == nil {
		return []domain.Deviation{}
	}
	return d
}

func orEmptyTrajectory(s []domain.SentimentSample) []domain.SentimentSample {
	if s == nil {
		return []domain.SentimentSample{}
	}
	return s
}
