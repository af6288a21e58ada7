// Package cities exposes city-level operational views.
package cities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"callqa_backend/internal/metrics"
	"callqa_backend/platform/apperr"
)

// City is the read model for city listings and detail.
type City struct {
	ID    int32
	Name  string
	State *string

	AvgQuality             float64
	AvgSOPCompliance       float64
	AvgSentimentStabilized float64
	AvgEscalationRate      float64

	TotalCalls       int64
	TotalEmergencies int64

	CallsThisMonth   int64
	EmergenciesMonth int64
	PrevMonthCalls   *int64
	CallsToday       int64
	EmergenciesToday int64

	PrevMonthQuality        *float64
	PrevMonthSOP            *float64
	PrevMonthSentiment      *float64
	PrevMonthEscalationRate *float64

	DailyOpsInsight string
	MonthlyInsight  string
	OverallInsight  string
	CoachingFocus   string

	KeyOperationalRisks []string
	RecentTrend         []metrics.TrendPoint

	LastMetricsUpdate *time.Time
	LastInsightUpdate *time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const cityColumns = `
	c.id, c.name, c.state,
	ci.avg_quality_score, ci.avg_sop_compliance_score,
	ci.avg_sentiment_stabilization_score, ci.avg_escalation_rate,
	ci.total_calls, ci.total_emergencies,
	ci.calls_received_this_month, ci.emergencies_this_month,
	ci.prev_month_calls_received,
	ci.calls_received_today, ci.emergencies_today,
	ci.prev_month_avg_quality_score, ci.prev_month_avg_sop_compliance_score,
	ci.prev_month_avg_sentiment_stabilization_score, ci.prev_month_avg_escalation_rate,
	COALESCE(ci.daily_ops_insight, ''), COALESCE(ci.latest_month_insight, ''),
	COALESCE(ci.overall_city_insight, ''), COALESCE(ci.coaching_focus_for_city, ''),
	ci.key_operational_risks, ci.recent_trend_array,
	ci.last_updated_at, ci.last_insight_generated_at`

// city_insights rows are seeded alongside each city, so an inner join is
// safe here.
const citySelect = `
	SELECT ` + cityColumns + `
	FROM cities c
	JOIN city_insights ci ON ci.city_id = c.id`

func scanCity(row pgx.Row) (*City, error) {
	var (
		ct    City
		trend []byte
	)
	err := row.Scan(
		&ct.ID, &ct.Name, &ct.State,
		&ct.AvgQuality, &ct.AvgSOPCompliance,
		&ct.AvgSentimentStabilized, &ct.AvgEscalationRate,
		&ct.TotalCalls, &ct.TotalEmergencies,
		&ct.CallsThisMonth, &ct.EmergenciesMonth,
		&ct.PrevMonthCalls,
		&ct.CallsToday, &ct.EmergenciesToday,
		&ct.PrevMonthQuality, &ct.PrevMonthSOP,
		&ct.PrevMonthSentiment, &ct.PrevMonthEscalationRate,
		&ct.DailyOpsInsight, &ct.MonthlyInsight,
		&ct.OverallInsight, &ct.CoachingFocus,
		&ct.KeyOperationalRisks, &trend,
		&ct.LastMetricsUpdate, &ct.LastInsightUpdate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("city not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan city: %w", err)
	}
	if err := json.Unmarshal(trend, &ct.RecentTrend); err != nil {
		return nil, fmt.Errorf("decode city trend: %w", err)
	}
	return &ct, nil
}

// List returns all cities with their aggregates, ordered by name.
func (r *Repository) List(ctx context.Context) ([]City, error) {
	rows, err := r.pool.Query(ctx, citySelect+" ORDER BY c.name ASC")
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	defer rows.Close()

	var out []City
	for rows.Next() {
		ct, err := scanCity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ct)
	}
	return out, rows.Err()
}

// Get returns one city with its aggregates.
func (r *Repository) Get(ctx context.Context, id int32) (*City, error) {
	return scanCity(r.pool.QueryRow(ctx, citySelect+" WHERE c.id = $1", id))
}
