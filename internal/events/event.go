// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"callqa_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Call Pipeline Events
// =============================================================================

// CallIngested is published when a call recording has been stored and the
// call record created in pending state.
type CallIngested struct {
	BaseEvent
	CallID  uuid.UUID  `json:"callId"`
	AgentID *uuid.UUID `json:"agentId,omitempty"`
	CityID  *int32     `json:"cityId,omitempty"`
}

func (e CallIngested) EventName() string { return "calls.call.ingested" }

// CallTranscribed is published when a call's transcript has been staged.
type CallTranscribed struct {
	BaseEvent
	CallID  uuid.UUID  `json:"callId"`
	AgentID *uuid.UUID `json:"agentId,omitempty"`
	CityID  *int32     `json:"cityId,omitempty"`
}

func (e CallTranscribed) EventName() string { return "calls.call.transcribed" }

func NewCallIngested(callID uuid.UUID, agentID *uuid.UUID, cityID *int32) CallIngested {
	return CallIngested{BaseEvent: NewBaseEvent(), CallID: callID, AgentID: agentID, CityID: cityID}
}

func NewCallTranscribed(callID uuid.UUID, agentID *uuid.UUID, cityID *int32) CallTranscribed {
	return CallTranscribed{BaseEvent: NewBaseEvent(), CallID: callID, AgentID: agentID, CityID: cityID}
}

// CallAnalyzed is published after a call reaches analyzed state and its
// aggregates have been committed.
type CallAnalyzed struct {
	BaseEvent
	CallID         uuid.UUID  `json:"callId"`
	AgentID        *uuid.UUID `json:"agentId,omitempty"`
	CityID         *int32     `json:"cityId,omitempty"`
	OverallQuality float64    `json:"overallQuality"`
	EscalationRisk bool       `json:"escalationRisk"`
}

func (e CallAnalyzed) EventName() string { return "calls.call.analyzed" }

func NewCallAnalyzed(callID uuid.UUID, agentID *uuid.UUID, cityID *int32, quality float64, escalation bool) CallAnalyzed {
	return CallAnalyzed{
		BaseEvent:      NewBaseEvent(),
		CallID:         callID,
		AgentID:        agentID,
		CityID:         cityID,
		OverallQuality: quality,
		EscalationRisk: escalation,
	}
}

// CallFailed is published when a call enters the terminal failed state.
type CallFailed struct {
	BaseEvent
	CallID  uuid.UUID  `json:"callId"`
	AgentID *uuid.UUID `json:"agentId,omitempty"`
	CityID  *int32     `json:"cityId,omitempty"`
	Reason  string     `json:"reason"`
}

func (e CallFailed) EventName() string { return "calls.call.failed" }

func NewCallFailed(callID uuid.UUID, agentID *uuid.UUID, cityID *int32, reason string) CallFailed {
	return CallFailed{BaseEvent: NewBaseEvent(), CallID: callID, AgentID: agentID, CityID: cityID, Reason: reason}
}

// EscalationFlagged is published when an analyzed call carries an escalation
// flag, so monitoring subscribers can alert supervisors.
type EscalationFlagged struct {
	BaseEvent
	CallID         uuid.UUID  `json:"callId"`
	AgentID        *uuid.UUID `json:"agentId,omitempty"`
	CityID         *int32     `json:"cityId,omitempty"`
	WhyFlagged     string     `json:"whyFlagged"`
	CallTimestamp  time.Time  `json:"callTimestamp"`
	OverallQuality float64    `json:"overallQuality"`
}

func (e EscalationFlagged) EventName() string { return "calls.escalation.flagged" }

func NewEscalationFlagged(callID uuid.UUID, agentID *uuid.UUID, cityID *int32, why string, at time.Time, quality float64) EscalationFlagged {
	return EscalationFlagged{
		BaseEvent:      NewBaseEvent(),
		CallID:         callID,
		AgentID:        agentID,
		CityID:         cityID,
		WhyFlagged:     why,
		CallTimestamp:  at,
		OverallQuality: quality,
	}
}
