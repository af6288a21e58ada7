package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"callqa_backend/internal/calls/domain"
	"callqa_backend/platform/apperr"
	"callqa_backend/platform/logger"
)

// TxStore is the transactional view the engine works through. The call
// finalization transaction hands the engine an implementation bound to that
// transaction, so aggregate updates commit or roll back with the insight
// itself. Implementations must take row locks on the ForUpdate reads.
type TxStore interface {
	AgentForUpdate(ctx context.Context, id uuid.UUID) (*AgentMetrics, error)
	SaveAgentMetrics(ctx context.Context, m *AgentMetrics) error
	CityForUpdate(ctx context.Context, id int32) (*CityMetrics, error)
	SaveCityMetrics(ctx context.Context, m *CityMetrics) error
}

// Engine folds finalized calls into the agent and city aggregates.
type Engine struct {
	log *logger.Logger
	now func() time.Time
}

func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log, now: time.Now}
}

// runningMean folds one sample into a mean over n samples, where n already
// counts the new sample. Equivalent to recomputing the mean from scratch.
func runningMean(old float64, n int32, sample float64) float64 {
	return old + (sample-old)/float64(n)
}

func boolSample(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SampleFromInsight extracts the per-call contribution.
func SampleFromInsight(call *domain.Call, insight *domain.CallInsight) Sample {
	return Sample{
		Quality:    insight.OverallQualityScore,
		SOP:        insight.SOPComplianceScore,
		Sentiment:  insight.SentimentStabilizationScore,
		Escalation: insight.EscalationRisk,
		Emergency:  call.IsEmergency(insight),
		At:         call.CallTimestamp,
	}
}

func appendTrend(trend []TrendPoint, p TrendPoint) []TrendPoint {
	trend = append(trend, p)
	if len(trend) > trendCap {
		trend = trend[len(trend)-trendCap:]
	}
	return trend
}

// Apply folds one sample into the agent and city rows the call belongs to.
// Must run inside the same transaction as the insight insert and the status
// transition; tx provides that binding.
func (e *Engine) Apply(ctx context.Context, tx TxStore, call *domain.Call, insight *domain.CallInsight) error {
	now := e.now()
	sample := SampleFromInsight(call, insight)

	if call.AgentID != nil {
		agent, err := tx.AgentForUpdate(ctx, *call.AgentID)
		if err != nil {
			return fmt.Errorf("load agent metrics: %w", err)
		}
		agent.Fold(sample, now)
		if err := tx.SaveAgentMetrics(ctx, agent); err != nil {
			return fmt.Errorf("save agent metrics: %w", err)
		}
	}

	if call.CityID != nil {
		city, err := tx.CityForUpdate(ctx, *call.CityID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				e.log.Warn("city has no metrics row, skipping aggregate", "city_id", *call.CityID)
				return nil
			}
			return fmt.Errorf("load city metrics: %w", err)
		}
		city.Fold(sample, now)
		if err := tx.SaveCityMetrics(ctx, city); err != nil {
			return fmt.Errorf("save city metrics: %w", err)
		}
	}

	return nil
}

// Fold applies one sample to the agent aggregate: roll the month and day
// windows over if the calendar moved, then fold the sample into the
// month-scoped running means and bump the counters.
func (a *AgentMetrics) Fold(s Sample, now time.Time) {
	if a.MetricsMonth == nil || !sameMonth(*a.MetricsMonth, now) {
		a.rolloverMonth()
		m := monthStart(now)
		a.MetricsMonth = &m
	}
	if a.MetricsDay == nil || !sameDay(*a.MetricsDay, now) {
		a.CallsToday = 0
		a.EmergenciesToday = 0
		d := dayStart(now)
		a.MetricsDay = &d
	}

	a.CallsThisMonth++
	n := a.CallsThisMonth
	a.QualityScore = runningMean(a.QualityScore, n, s.Quality)
	a.SOPScore = runningMean(a.SOPScore, n, s.SOP)
	a.SentimentScore = runningMean(a.SentimentScore, n, s.Sentiment)
	a.EscalationRate = runningMean(a.EscalationRate, n, boolSample(s.Escalation))

	a.CallsTotal++
	a.CallsToday++
	if s.Emergency {
		a.EmergenciesTotal++
		a.EmergenciesThisMonth++
		a.EmergenciesToday++
	}

	a.RecentTrend = appendTrend(a.RecentTrend, TrendPoint{At: s.At, Quality: s.Quality})
	a.LastUpdatedAt = now
}

// rolloverMonth snapshots the closing month into the prev-month fields and
// resets the month-scoped window. Snapshot strictly before reset, so the
// first sample of the new month starts a fresh mean.
func (a *AgentMetrics) rolloverMonth() {
	if a.MetricsMonth != nil && a.CallsThisMonth > 0 {
		q, sop, sent, esc := a.QualityScore, a.SOPScore, a.SentimentScore, a.EscalationRate
		calls, emerg := a.CallsThisMonth, a.EmergenciesThisMonth
		a.PrevQualityScore = &q
		a.PrevSOPScore = &sop
		a.PrevSentimentScore = &sent
		a.PrevEscalationRate = &esc
		a.PrevCalls = &calls
		a.PrevEmergencies = &emerg
	}
	a.QualityScore = 0
	a.SOPScore = 0
	a.SentimentScore = 0
	a.EscalationRate = 0
	a.CallsThisMonth = 0
	a.EmergenciesThisMonth = 0
}

// Fold applies one sample to the city aggregate; same windowing rules as
// the agent side.
func (c *CityMetrics) Fold(s Sample, now time.Time) {
	if c.MetricsMonth == nil || !sameMonth(*c.MetricsMonth, now) {
		c.rolloverMonth()
		m := monthStart(now)
		c.MetricsMonth = &m
	}
	if c.MetricsDay == nil || !sameDay(*c.MetricsDay, now) {
		c.CallsToday = 0
		c.EmergenciesToday = 0
		d := dayStart(now)
		c.MetricsDay = &d
	}

	c.CallsThisMonth++
	n := c.CallsThisMonth
	c.QualityScore = runningMean(c.QualityScore, n, s.Quality)
	c.SOPScore = runningMean(c.SOPScore, n, s.SOP)
	c.SentimentScore = runningMean(c.SentimentScore, n, s.Sentiment)
	c.EscalationRate = runningMean(c.EscalationRate, n, boolSample(s.Escalation))

	c.CallsTotal++
	c.CallsToday++
	if s.Emergency {
		c.EmergenciesTotal++
		c.EmergenciesThisMonth++
		c.EmergenciesToday++
	}

	c.RecentTrend = appendTrend(c.RecentTrend, TrendPoint{At: s.At, Quality: s.Quality})
	c.LastUpdatedAt = now
}

func (c *CityMetrics) rolloverMonth() {
	if c.MetricsMonth != nil && c.CallsThisMonth > 0 {
		q, sop, sent, esc := c.QualityScore, c.SOPScore, c.SentimentScore, c.EscalationRate
		calls := c.CallsThisMonth
		c.PrevQualityScore = &q
		c.PrevSOPScore = &sop
		c.PrevSentimentScore = &sent
		c.PrevEscalationRate = &esc
		c.PrevCalls = &calls
	}
	c.QualityScore = 0
	c.SOPScore = 0
	c.SentimentScore = 0
	c.EscalationRate = 0
	c.CallsThisMonth = 0
	c.EmergenciesThisMonth = 0
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
