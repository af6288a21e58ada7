package agents

import (
	"time"

	"callqa_backend/internal/metrics"
)

// ScoreSet groups the four rolling scores.
type ScoreSet struct {
	Quality                float64 `json:"quality"`
	SOPCompliance          float64 `json:"sopCompliance"`
	SentimentStabilization float64 `json:"sentimentStabilization"`
	EscalationRate         float64 `json:"escalationRate"`
}

// AgentSummaryResponse is the compact listing/leaderboard row.
type AgentSummaryResponse struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	EmployeeID        *string  `json:"employeeId,omitempty"`
	Languages         []string `json:"languages,omitempty"`
	Scores            ScoreSet `json:"scores"`
	CallsHandledTotal int64    `json:"callsHandledTotal"`
	CallsHandledToday int64    `json:"callsHandledToday"`
}

// AgentStatsResponse is the full per-agent stats view.
type AgentStatsResponse struct {
	AgentSummaryResponse

	TotalEmergencies      int64 `json:"totalEmergencies"`
	CallsHandledThisMonth int64 `json:"callsHandledThisMonth"`
	EmergenciesToday      int64 `json:"emergenciesToday"`

	PrevMonthScores       *ScoreSet `json:"prevMonthScores,omitempty"`
	PrevMonthCallsHandled *int64    `json:"prevMonthCallsHandled,omitempty"`

	RecentTrend []metrics.TrendPoint `json:"recentTrend"`

	LastMetricsUpdate  *time.Time `json:"lastMetricsUpdate,omitempty"`
	LastInsightUpdated *time.Time `json:"lastInsightUpdated,omitempty"`
}

func toSummary(a *Agent) AgentSummaryResponse {
	return AgentSummaryResponse{
		ID:         a.ID.String(),
		Name:       a.Name,
		EmployeeID: a.EmployeeID,
		Languages:  a.Languages,
		Scores: ScoreSet{
			Quality:                a.QualityScore,
			SOPCompliance:          a.SOPComplianceScore,
			SentimentStabilization: a.SentimentStabilizationScore,
			EscalationRate:         a.EscalationRate,
		},
		CallsHandledTotal: a.CallsHandledTotal,
		CallsHandledToday: a.CallsHandledToday,
	}
}

func toSummaries(agents []Agent) []AgentSummaryResponse {
	out := make([]AgentSummaryResponse, 0, len(agents))
	for i := range agents {
		out = append(out, toSummary(&agents[i]))
	}
	return out
}

func toStats(a *Agent) AgentStatsResponse {
	resp := AgentStatsResponse{
		AgentSummaryResponse:  toSummary(a),
		TotalEmergencies:      a.TotalEmergencies,
		CallsHandledThisMonth: a.CallsHandledThisMonth,
		EmergenciesToday:      a.EmergenciesToday,
		PrevMonthCallsHandled: a.PrevMonthCallsHandled,
		RecentTrend:           a.RecentTrend,
		LastMetricsUpdate:     a.LastMetricsUpdate,
		LastInsightUpdated:    a.LastInsightUpdated,
	}
	if resp.RecentTrend == nil {
		resp.RecentTrend = []metrics.TrendPoint{}
	}
	if a.PrevMonthQuality != nil {
		resp.PrevMonthScores = &ScoreSet{
			Quality:                *a.PrevMonthQuality,
			SOPCompliance:          deref(a.PrevMonthSOP),
			SentimentStabilization: deref(a.PrevMonthSentiment),
			EscalationRate:         deref(a.PrevMonthEscalationRate),
		}
	}
	return resp
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
