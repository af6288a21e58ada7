// Package agents exposes read-side agent performance views.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"callqa_backend/internal/metrics"
	"callqa_backend/platform/apperr"
)

// Agent is the read model for agent listings and stats.
type Agent struct {
	ID         uuid.UUID
	Name       string
	EmployeeID *string
	Languages  []string

	QualityScore                float64
	SOPComplianceScore          float64
	SentimentStabilizationScore float64
	EscalationRate              float64

	CallsHandledTotal     int64
	TotalEmergencies      int64
	CallsHandledThisMonth int64
	CallsHandledToday     int64
	EmergenciesToday      int64

	PrevMonthQuality        *float64
	PrevMonthSOP            *float64
	PrevMonthSentiment      *float64
	PrevMonthEscalationRate *float64
	PrevMonthCallsHandled   *int64

	RecentTrend []metrics.TrendPoint

	LastMetricsUpdate  *time.Time
	LastInsightUpdated *time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const agentColumns = `
	id, name, employee_id, languages,
	current_quality_score, current_sop_compliance_score,
	current_sentiment_stabilization_score, current_escalation_rate,
	calls_handled_total, total_emergencies_count,
	calls_handled_this_month, calls_handled_today, emergencies_today,
	prev_month_quality_score, prev_month_sop_compliance_score,
	prev_month_sentiment_stabilization_score, prev_month_escalation_rate,
	prev_month_calls_handled,
	recent_trend_array, last_updated_at, last_insight_generated_at`

func scanAgent(row pgx.Row) (*Agent, error) {
	var (
		a     Agent
		trend []byte
	)
	err := row.Scan(
		&a.ID, &a.Name, &a.EmployeeID, &a.Languages,
		&a.QualityScore, &a.SOPComplianceScore,
		&a.SentimentStabilizationScore, &a.EscalationRate,
		&a.CallsHandledTotal, &a.TotalEmergencies,
		&a.CallsHandledThisMonth, &a.CallsHandledToday, &a.EmergenciesToday,
		&a.PrevMonthQuality, &a.PrevMonthSOP,
		&a.PrevMonthSentiment, &a.PrevMonthEscalationRate,
		&a.PrevMonthCallsHandled,
		&trend, &a.LastMetricsUpdate, &a.LastInsightUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("agent not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan agent: %w", err)
	}
	if err := json.Unmarshal(trend, &a.RecentTrend); err != nil {
		return nil, fmt.Errorf("decode agent trend: %w", err)
	}
	return &a, nil
}

func collectAgents(rows pgx.Rows) ([]Agent, error) {
	defer rows.Close()
	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Get returns a single agent by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Agent, error) {
	q := "SELECT " + agentColumns + " FROM agents WHERE id = $1"
	return scanAgent(r.pool.QueryRow(ctx, q, id))
}

// Leaderboard returns agents ranked by current quality score. Agents with
// no analyzed calls sink to the bottom regardless of their zeroed score.
func (r *Repository) Leaderboard(ctx context.Context, limit int) ([]Agent, error) {
	q := "SELECT " + agentColumns + ` FROM agents
		ORDER BY (calls_handled_total > 0) DESC, current_quality_score DESC, name ASC
		LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	return collectAgents(rows)
}

// Search finds agents by partial name or exact employee id.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]Agent, error) {
	q := "SELECT " + agentColumns + ` FROM agents
		WHERE name ILIKE '%' || $1 || '%' OR lower(employee_id) = lower($1)
		ORDER BY (lower(employee_id) = lower($1)) DESC, name ASC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search agents: %w", err)
	}
	return collectAgents(rows)
}

// List returns all agents ordered by name.
func (r *Repository) List(ctx context.Context, limit int) ([]Agent, error) {
	q := "SELECT " + agentColumns + " FROM agents ORDER BY name ASC LIMIT $1"
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return collectAgents(rows)
}
