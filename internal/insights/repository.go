package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"callqa_backend/platform/apperr"
)

// historyCap bounds the insight_history JSONB array.
const historyCap = 12

// HistoryEntry is one archived generation in insight_history.
type HistoryEntry struct {
	GeneratedAt time.Time `json:"generated_at"`
	Insight     string    `json:"insight"`
}

// AgentInsightState is the current generated-insight snapshot of an agent.
type AgentInsightState struct {
	AgentID             uuid.UUID
	AgentName           string
	LatestMonthInsight  string
	OverallInsight      string
	LatestChangeSummary string
	History             []HistoryEntry
	LastGeneratedAt     *time.Time
	LastUpdatedAt       *time.Time
}

// CityInsightState is the current generated-insight snapshot of a city.
type CityInsightState struct {
	CityID          int32
	CityName        string
	DailyOps        string
	Monthly         string
	Overall         string
	CoachingFocus   string
	History         []HistoryEntry
	LastGeneratedAt *time.Time
	LastUpdatedAt   *time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) AgentState(ctx context.Context, agentID uuid.UUID) (*AgentInsightState, error) {
	const q = `
		SELECT id, name,
		       COALESCE(latest_month_insight, ''), COALESCE(overall_insight_text, ''),
		       COALESCE(latest_change_summary, ''), insight_history,
		       last_insight_generated_at, last_updated_at
		FROM agents WHERE id = $1`

	var (
		st      AgentInsightState
		history []byte
	)
	err := r.pool.QueryRow(ctx, q, agentID).Scan(
		&st.AgentID, &st.AgentName,
		&st.LatestMonthInsight, &st.OverallInsight,
		&st.LatestChangeSummary, &history,
		&st.LastGeneratedAt, &st.LastUpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("agent not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load agent insight state: %w", err)
	}
	if err := json.Unmarshal(history, &st.History); err != nil {
		return nil, fmt.Errorf("decode agent insight history: %w", err)
	}
	return &st, nil
}

func (r *Repository) CityState(ctx context.Context, cityID int32) (*CityInsightState, error) {
	const q = `
		SELECT ci.city_id, c.name,
		       COALESCE(ci.daily_ops_insight, ''), COALESCE(ci.latest_month_insight, ''),
		       COALESCE(ci.overall_city_insight, ''), COALESCE(ci.coaching_focus_for_city, ''),
		       ci.insight_history, ci.last_insight_generated_at, ci.last_updated_at
		FROM city_insights ci
		JOIN cities c ON c.id = ci.city_id
		WHERE ci.city_id = $1`

	var (
		st      CityInsightState
		history []byte
	)
	err := r.pool.QueryRow(ctx, q, cityID).Scan(
		&st.CityID, &st.CityName,
		&st.DailyOps, &st.Monthly,
		&st.Overall, &st.CoachingFocus,
		&history, &st.LastGeneratedAt, &st.LastUpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("city not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load city insight state: %w", err)
	}
	if err := json.Unmarshal(history, &st.History); err != nil {
		return nil, fmt.Errorf("decode city insight history: %w", err)
	}
	return &st, nil
}

const digestSelect = `
	SELECT c.call_timestamp,
	       COALESCE(i.business_insight, ''), COALESCE(i.coaching_insight, ''),
	       COALESCE(i.human_remarks, '')
	FROM calls c
	JOIN call_insights i ON i.call_id = c.id
	WHERE c.processing_status = 'analyzed'`

func collectDigests(rows pgx.Rows) ([]CallDigest, error) {
	defer rows.Close()
	var out []CallDigest
	for rows.Next() {
		var d CallDigest
		if err := rows.Scan(&d.Date, &d.BusinessInsight, &d.CoachingInsight, &d.HumanRemarks); err != nil {
			return nil, fmt.Errorf("scan call digest: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AgentMonthDigests returns the analyzed calls for an agent in the last 30
// days, newest first.
func (r *Repository) AgentMonthDigests(ctx context.Context, agentID uuid.UUID) ([]CallDigest, error) {
	q := digestSelect + `
		AND c.agent_id = $1
		AND c.call_timestamp >= now() - INTERVAL '30 days'
		ORDER BY c.call_timestamp DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, agentID, digestLimit)
	if err != nil {
		return nil, fmt.Errorf("query agent digests: %w", err)
	}
	return collectDigests(rows)
}

// CityMonthDigests returns the analyzed calls for a city in the last 30
// days, newest first.
func (r *Repository) CityMonthDigests(ctx context.Context, cityID int32) ([]CallDigest, error) {
	q := digestSelect + `
		AND c.city_id = $1
		AND c.call_timestamp >= now() - INTERVAL '30 days'
		ORDER BY c.call_timestamp DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, cityID, digestLimit)
	if err != nil {
		return nil, fmt.Errorf("query city digests: %w", err)
	}
	return collectDigests(rows)
}

// CityTodayDigests returns the analyzed calls for a city since local midnight.
func (r *Repository) CityTodayDigests(ctx context.Context, cityID int32) ([]CallDigest, error) {
	q := digestSelect + `
		AND c.city_id = $1
		AND c.call_timestamp >= date_trunc('day', now())
		ORDER BY c.call_timestamp DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, cityID, digestLimit)
	if err != nil {
		return nil, fmt.Errorf("query city today digests: %w", err)
	}
	return collectDigests(rows)
}

func appendHistory(history []HistoryEntry, insight string, at time.Time) []HistoryEntry {
	if insight == "" {
		return history
	}
	history = append(history, HistoryEntry{GeneratedAt: at, Insight: insight})
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	return history
}

// SaveAgentInsights persists freshly generated agent insights and archives
// the previous monthly insight in the history.
func (r *Repository) SaveAgentInsights(ctx context.Context, st *AgentInsightState, monthly, overall, change string, now time.Time) error {
	history := appendHistory(st.History, st.LatestMonthInsight, now)
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode agent insight history: %w", err)
	}

	const q = `
		UPDATE agents
		SET latest_month_insight = $2,
		    overall_insight_text = $3,
		    latest_change_summary = $4,
		    insight_history = $5,
		    last_insight_generated_at = $6
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, st.AgentID, monthly, overall, change, raw, now)
	if err != nil {
		return fmt.Errorf("save agent insights: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("agent not found")
	}
	return nil
}

// SaveCityInsights persists freshly generated city insights and archives the
// previous monthly insight in the history.
func (r *Repository) SaveCityInsights(ctx context.Context, st *CityInsightState, dailyOps, monthly, overall, coaching string, now time.Time) error {
	history := appendHistory(st.History, st.Monthly, now)
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode city insight history: %w", err)
	}

	const q = `
		UPDATE city_insights
		SET daily_ops_insight = $2,
		    latest_month_insight = $3,
		    overall_city_insight = $4,
		    coaching_focus_for_city = $5,
		    insight_history = $6,
		    last_insight_generated_at = $7
		WHERE city_id = $1`
	tag, err := r.pool.Exec(ctx, q, st.CityID, dailyOps, monthly, overall, coaching, raw, now)
	if err != nil {
		return fmt.Errorf("save city insights: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("city not found")
	}
	return nil
}
