package escalation

import "time"

// FlaggedCallResponse is the wire form of a monitor query row.
type FlaggedCallResponse struct {
	CallID               string    `json:"callId"`
	AgentID              *string   `json:"agentId,omitempty"`
	AgentName            *string   `json:"agentName,omitempty"`
	CityID               *int32    `json:"cityId,omitempty"`
	CityName             *string   `json:"cityName,omitempty"`
	CallTimestamp        time.Time `json:"callTimestamp"`
	PrimaryIssueCategory *string   `json:"primaryIssueCategory,omitempty"`
	CoachingPriority     float64   `json:"coachingPriority"`
	OverallQuality       float64   `json:"overallQuality"`
	EscalationRisk       bool      `json:"escalationRisk"`
	WhyFlagged           *string   `json:"whyFlagged,omitempty"`
}

func toResponse(f *FlaggedCall) FlaggedCallResponse {
	resp := FlaggedCallResponse{
		CallID:               f.CallID.String(),
		AgentName:            f.AgentName,
		CityID:               f.CityID,
		CityName:             f.CityName,
		CallTimestamp:        f.CallTimestamp,
		PrimaryIssueCategory: f.PrimaryIssueCategory,
		CoachingPriority:     f.CoachingPriority,
		OverallQuality:       f.OverallQuality,
		EscalationRisk:       f.EscalationRisk,
		WhyFlagged:           f.WhyFlagged,
	}
	if f.AgentID != nil {
		id := f.AgentID.String()
		resp.AgentID = &id
	}
	return resp
}

func toResponses(calls []FlaggedCall) []FlaggedCallResponse {
	out := make([]FlaggedCallResponse, 0, len(calls))
	for i := range calls {
		out = append(out, toResponse(&calls[i]))
	}
	return out
}
