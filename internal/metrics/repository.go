package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"callqa_backend/platform/apperr"
)

// txStore implements TxStore over a single pgx transaction. The ForUpdate
// reads take row locks, serializing concurrent finalizations that touch the
// same agent or city.
type txStore struct {
	tx pgx.Tx
}

// NewTxStore binds the aggregate store to an open transaction.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx}
}

const agentForUpdateSQL = `
	SELECT id,
	       current_quality_score, current_sop_compliance_score,
	       current_sentiment_stabilization_score, current_escalation_rate,
	       calls_handled_total, total_emergencies_count,
	       calls_handled_this_month, emergencies_this_month, metrics_month,
	       calls_handled_today, emergencies_today, metrics_day,
	       prev_month_quality_score, prev_month_sop_compliance_score,
	       prev_month_sentiment_stabilization_score, prev_month_escalation_rate,
	       prev_month_calls_handled, prev_month_emergencies,
	       recent_trend_array, last_updated_at
	FROM agents
	WHERE id = $1
	FOR UPDATE`

func (s *txStore) AgentForUpdate(ctx context.Context, id uuid.UUID) (*AgentMetrics, error) {
	var m AgentMetrics
	var trend []byte
	err := s.tx.QueryRow(ctx, agentForUpdateSQL, id).Scan(
		&m.AgentID,
		&m.QualityScore, &m.SOPScore, &m.SentimentScore, &m.EscalationRate,
		&m.CallsTotal, &m.EmergenciesTotal,
		&m.CallsThisMonth, &m.EmergenciesThisMonth, &m.MetricsMonth,
		&m.CallsToday, &m.EmergenciesToday, &m.MetricsDay,
		&m.PrevQualityScore, &m.PrevSOPScore, &m.PrevSentimentScore, &m.PrevEscalationRate,
		&m.PrevCalls, &m.PrevEmergencies,
		&trend, &m.LastUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("agent not found")
		}
		return nil, fmt.Errorf("select agent for update: %w", err)
	}
	if err := json.Unmarshal(trend, &m.RecentTrend); err != nil {
		return nil, fmt.Errorf("decode agent trend: %w", err)
	}
	return &m, nil
}

const saveAgentMetricsSQL = `
	UPDATE agents SET
		current_quality_score = $2,
		current_sop_compliance_score = $3,
		current_sentiment_stabilization_score = $4,
		current_escalation_rate = $5,
		calls_handled_total = $6,
		total_emergencies_count = $7,
		calls_handled_this_month = $8,
		emergencies_this_month = $9,
		metrics_month = $10,
		calls_handled_today = $11,
		emergencies_today = $12,
		metrics_day = $13,
		prev_month_quality_score = $14,
		prev_month_sop_compliance_score = $15,
		prev_month_sentiment_stabilization_score = $16,
		prev_month_escalation_rate = $17,
		prev_month_calls_handled = $18,
		prev_month_emergencies = $19,
		recent_trend_array = $20,
		last_updated_at = $21
	WHERE id = $1`

func (s *txStore) SaveAgentMetrics(ctx context.Context, m *AgentMetrics) error {
	trend, err := json.Marshal(m.RecentTrend)
	if err != nil {
		return fmt.Errorf("encode agent trend: %w", err)
	}
	_, err = s.tx.Exec(ctx, saveAgentMetricsSQL,
		m.AgentID,
		m.QualityScore, m.SOPScore, m.SentimentScore, m.EscalationRate,
		m.CallsTotal, m.EmergenciesTotal,
		m.CallsThisMonth, m.EmergenciesThisMonth, m.MetricsMonth,
		m.CallsToday, m.EmergenciesToday, m.MetricsDay,
		m.PrevQualityScore, m.PrevSOPScore, m.PrevSentimentScore, m.PrevEscalationRate,
		m.PrevCalls, m.PrevEmergencies,
		trend, m.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update agent metrics: %w", err)
	}
	return nil
}

const cityForUpdateSQL = `
	SELECT city_id,
	       avg_quality_score, avg_sop_compliance_score,
	       avg_sentiment_stabilization_score, avg_escalation_rate,
	       total_calls, total_emergencies,
	       calls_received_this_month, emergencies_this_month, metrics_month,
	       calls_received_today, emergencies_today, metrics_day,
	       prev_month_avg_quality_score, prev_month_avg_sop_compliance_score,
	       prev_month_avg_sentiment_stabilization_score, prev_month_avg_escalation_rate,
	       prev_month_calls_received,
	       recent_trend_array, last_updated_at
	FROM city_insights
	WHERE city_id = $1
	FOR UPDATE`

func (s *txStore) CityForUpdate(ctx context.Context, id int32) (*CityMetrics, error) {
	var m CityMetrics
	var trend []byte
	err := s.tx.QueryRow(ctx, cityForUpdateSQL, id).Scan(
		&m.CityID,
		&m.QualityScore, &m.SOPScore, &m.SentimentScore, &m.EscalationRate,
		&m.CallsTotal, &m.EmergenciesTotal,
		&m.CallsThisMonth, &m.EmergenciesThisMonth, &m.MetricsMonth,
		&m.CallsToday, &m.EmergenciesToday, &m.MetricsDay,
		&m.PrevQualityScore, &m.PrevSOPScore, &m.PrevSentimentScore, &m.PrevEscalationRate,
		&m.PrevCalls,
		&trend, &m.LastUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("city metrics not found")
		}
		return nil, fmt.Errorf("select city metrics for update: %w", err)
	}
	if err := json.Unmarshal(trend, &m.RecentTrend); err != nil {
		return nil, fmt.Errorf("decode city trend: %w", err)
	}
	return &m, nil
}

const saveCityMetricsSQL = `
	UPDATE city_insights SET
		avg_quality_score = $2,
		avg_sop_compliance_score = $3,
		avg_sentiment_stabilization_score = $4,
		avg_escalation_rate = $5,
		total_calls = $6,
		total_emergencies = $7,
		calls_received_this_month = $8,
		emergencies_this_month = $9,
		metrics_month = $10,
		calls_received_today = $11,
		emergencies_today = $12,
		metrics_day = $13,
		prev_month_avg_quality_score = $14,
		prev_month_avg_sop_compliance_score = $15,
		prev_month_avg_sentiment_stabilization_score = $16,
		prev_month_avg_escalation_rate = $17,
		prev_month_calls_received = $18,
		recent_trend_array = $19,
		last_updated_at = $20
	WHERE city_id = $1`

func (s *txStore) SaveCityMetrics(ctx context.Context, m *CityMetrics) error {
	trend, err := json.Marshal(m.RecentTrend)
	if err != nil {
		return fmt.Errorf("encode city trend: %w", err)
	}
	_, err = s.tx.Exec(ctx, saveCityMetricsSQL,
		m.CityID,
		m.QualityScore, m.SOPScore, m.SentimentScore, m.EscalationRate,
		m.CallsTotal, m.EmergenciesTotal,
		m.CallsThisMonth, m.EmergenciesThisMonth, m.MetricsMonth,
		m.CallsToday, m.EmergenciesToday, m.MetricsDay,
		m.PrevQualityScore, m.PrevSOPScore, m.PrevSentimentScore, m.PrevEscalationRate,
		m.PrevCalls,
		trend, m.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update city metrics: %w", err)
	}
	return nil
}
