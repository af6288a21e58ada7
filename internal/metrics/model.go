// Package metrics maintains the incremental rolling quality metrics for
// agents and cities. Every analyzed call contributes exactly one sample to
// its agent's and its city's aggregates, inside the same transaction that
// finalizes the call.
package metrics

import (
	"time"

	"github.com/google/uuid"
)

// TrendPoint is one per-call quality sample kept in the bounded recent
// trend window.
type TrendPoint struct {
	At      time.Time `json:"t"`
	Quality float64   `json:"q"`
}

// trendCap bounds recent_trend_array; the oldest entry is evicted first.
const trendCap = 30

// Sample is the per-call contribution extracted from a finalized insight.
type Sample struct {
	Quality    float64
	SOP        float64
	Sentiment  float64
	Escalation bool
	Emergency  bool
	At         time.Time
}

// AgentMetrics is the rolling aggregate state for one agent. The current
// averages are month-scoped running means; prev-month fields hold the
// snapshot taken at the last month rollover.
type AgentMetrics struct {
	AgentID uuid.UUID

	QualityScore   float64
	SOPScore       float64
	SentimentScore float64
	EscalationRate float64

	CallsTotal       int32
	EmergenciesTotal int32

	CallsThisMonth       int32
	EmergenciesThisMonth int32
	MetricsMonth         *time.Time

	CallsToday       int32
	EmergenciesToday int32
	MetricsDay       *time.Time

	PrevQualityScore   *float64
	PrevSOPScore       *float64
	PrevSentimentScore *float64
	PrevEscalationRate *float64
	PrevCalls          *int32
	PrevEmergencies    *int32

	RecentTrend []TrendPoint

	LastUpdatedAt time.Time
}

// CityMetrics is the rolling aggregate state for one city.
type CityMetrics struct {
	CityID int32

	QualityScore   float64
	SOPScore       float64
	SentimentScore float64
	EscalationRate float64

	CallsTotal       int32
	EmergenciesTotal int32

	CallsThisMonth       int32
	EmergenciesThisMonth int32
	MetricsMonth         *time.Time

	CallsToday       int32
	EmergenciesToday int32
	MetricsDay       *time.Time

	PrevQualityScore   *float64
	PrevSOPScore       *float64
	PrevSentimentScore *float64
	PrevEscalationRate *float64
	PrevCalls          *int32

	RecentTrend []TrendPoint

	LastUpdatedAt time.Time
}
