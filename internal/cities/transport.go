package cities

import (
	"time"

	"callqa_backend/internal/metrics"
)

// CitySummaryResponse is the compact listing row.
type CitySummaryResponse struct {
	ID               int32     `json:"id"`
	Name             string    `json:"name"`
	State            *string   `json:"state,omitempty"`
	AvgQuality       float64   `json:"avgQuality"`
	EscalationRate   float64   `json:"escalationRate"`
	TotalCalls       int64     `json:"totalCalls"`
	CallsThisMonth   int64     `json:"callsThisMonth"`
	CallsToday       int64     `json:"callsToday"`
	VolumeGrowthPct  *float64  `json:"volumeGrowthPct,omitempty"`
	RiskLevel        RiskLevel `json:"riskLevel"`
	TotalEmergencies int64     `json:"totalEmergencies"`
}

// CityDetailResponse is the full per-city operational view.
type CityDetailResponse struct {
	CitySummaryResponse

	AvgSOPCompliance       float64 `json:"avgSopCompliance"`
	AvgSentimentStabilized float64 `json:"avgSentimentStabilized"`
	EmergenciesThisMonth   int64   `json:"emergenciesThisMonth"`
	EmergenciesToday       int64   `json:"emergenciesToday"`

	PrevMonthAvgQuality     *float64 `json:"prevMonthAvgQuality,omitempty"`
	PrevMonthEscalationRate *float64 `json:"prevMonthEscalationRate,omitempty"`
	PrevMonthCalls          *int64   `json:"prevMonthCalls,omitempty"`

	DailyOpsInsight string `json:"dailyOpsInsight"`
	MonthlyInsight  string `json:"monthlyInsight"`
	OverallInsight  string `json:"overallInsight"`
	CoachingFocus   string `json:"coachingFocus"`

	KeyOperationalRisks []string             `json:"keyOperationalRisks"`
	QualityTrend        []metrics.TrendPoint `json:"qualityTrend"`

	LastMetricsUpdate *time.Time `json:"lastMetricsUpdate,omitempty"`
	LastInsightUpdate *time.Time `json:"lastInsightUpdate,omitempty"`
}

// RiskMapResponse is one state's entry on the dashboard map.
type RiskMapResponse struct {
	State  string                `json:"state"`
	Cities []CitySummaryResponse `json:"cities"`
}

func toSummary(c *City) CitySummaryResponse {
	return CitySummaryResponse{
		ID:               c.ID,
		Name:             c.Name,
		State:            c.State,
		AvgQuality:       c.AvgQuality,
		EscalationRate:   c.AvgEscalationRate,
		TotalCalls:       c.TotalCalls,
		CallsThisMonth:   c.CallsThisMonth,
		CallsToday:       c.CallsToday,
		VolumeGrowthPct:  VolumeGrowthPct(c),
		RiskLevel:        riskFor(c),
		TotalEmergencies: c.TotalEmergencies,
	}
}

func toSummaries(cities []City) []CitySummaryResponse {
	out := make([]CitySummaryResponse, 0, len(cities))
	for i := range cities {
		out = append(out, toSummary(&cities[i]))
	}
	return out
}

func toDetail(c *City) CityDetailResponse {
	resp := CityDetailResponse{
		CitySummaryResponse:     toSummary(c),
		AvgSOPCompliance:        c.AvgSOPCompliance,
		AvgSentimentStabilized:  c.AvgSentimentStabilized,
		EmergenciesThisMonth:    c.EmergenciesMonth,
		EmergenciesToday:        c.EmergenciesToday,
		PrevMonthAvgQuality:     c.PrevMonthQuality,
		PrevMonthEscalationRate: c.PrevMonthEscalationRate,
		PrevMonthCalls:          c.PrevMonthCalls,
		DailyOpsInsight:         c.DailyOpsInsight,
		MonthlyInsight:          c.MonthlyInsight,
		OverallInsight:          c.OverallInsight,
		CoachingFocus:           c.CoachingFocus,
		KeyOperationalRisks:     c.KeyOperationalRisks,
		QualityTrend:            c.RecentTrend,
	}
	if resp.KeyOperationalRisks == nil {
		resp.KeyOperationalRisks = []string{}
	}
	if resp.QualityTrend == nil {
		resp.QualityTrend = []metrics.TrendPoint{}
	}
	resp.LastMetricsUpdate = c.LastMetricsUpdate
	resp.LastInsightUpdate = c.LastInsightUpdate
	return resp
}

func toRiskMap(groups []StateGroup) []RiskMapResponse {
	out := make([]RiskMapResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, RiskMapResponse{State: g.State, Cities: toSummaries(g.Cities)})
	}
	return out
}
