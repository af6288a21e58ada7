package insights

import "time"

// AgentInsightsResponse is the wire form of an agent's generated insights.
type AgentInsightsResponse struct {
	AgentID             string         `json:"agentId"`
	AgentName           string         `json:"agentName"`
	LatestMonthInsight  string         `json:"latestMonthInsight"`
	OverallInsight      string         `json:"overallInsight"`
	LatestChangeSummary string         `json:"latestChangeSummary"`
	History             []HistoryEntry `json:"history"`
	LastGeneratedAt     *time.Time     `json:"lastGeneratedAt"`
	Refreshed           bool           `json:"refreshed"`
}

// CityInsightsResponse is the wire form of a city's generated insights.
type CityInsightsResponse struct {
	CityID          int32          `json:"cityId"`
	CityName        string         `json:"cityName"`
	DailyOpsInsight string         `json:"dailyOpsInsight"`
	MonthlyInsight  string         `json:"monthlyInsight"`
	OverallInsight  string         `json:"overallInsight"`
	CoachingFocus   string         `json:"coachingFocus"`
	History         []HistoryEntry `json:"history"`
	LastGeneratedAt *time.Time     `json:"lastGeneratedAt"`
	Refreshed       bool           `json:"refreshed"`
}

func toAgentResponse(st *AgentInsightState, refreshed bool) AgentInsightsResponse {
	return AgentInsightsResponse{
		AgentID:             st.AgentID.String(),
		AgentName:           st.AgentName,
		LatestMonthInsight:  st.LatestMonthInsight,
		OverallInsight:      st.OverallInsight,
		LatestChangeSummary: st.LatestChangeSummary,
		History:             st.History,
		LastGeneratedAt:     st.LastGeneratedAt,
		Refreshed:           refreshed,
	}
}

func toCityResponse(st *CityInsightState, refreshed bool) CityInsightsResponse {
	return CityInsightsResponse{
		CityID:          st.CityID,
		CityName:        st.CityName,
		DailyOpsInsight: st.DailyOps,
		MonthlyInsight:  st.Monthly,
		OverallInsight:  st.Overall,
		CoachingFocus:   st.CoachingFocus,
		History:         st.History,
		LastGeneratedAt: st.LastGeneratedAt,
		Refreshed:       refreshed,
	}
}
