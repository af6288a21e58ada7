// Package domain holds the call-processing domain model: the call lifecycle
// state machine, the scored insight, and the validation rules the scoring
// boundary enforces before anything is persisted.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the processing status of a call.
type Status string

const (
	StatusPending     Status = "pending"
	StatusTranscribed Status = "transcribed"
	StatusAnalyzed    Status = "analyzed"
	StatusFailed      Status = "failed"
)

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusAnalyzed || s == StatusFailed
}

// CanTransitionTo reports whether the state machine permits moving to next.
// Transitions: pending→transcribed, pending|transcribed→analyzed,
// pending|transcribed→failed. Terminal states admit no exit.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusTranscribed:
		return s == StatusPending
	case StatusAnalyzed, StatusFailed:
		return s == StatusPending || s == StatusTranscribed
	default:
		return false
	}
}

// Valid reports whether the status is one of the known enumeration values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusTranscribed, StatusAnalyzed, StatusFailed:
		return true
	}
	return false
}

// CallContexts enumerates the allowed call_context values.
var CallContexts = []string{
	"NEW_ISSUE", "FOLLOW_UP", "ONGOING_CASE", "REOPENED", "INFORMATION_ONLY", "CLOSED_ISSUE",
}

// ValidCallContext reports whether ctx is an allowed call context.
func ValidCallContext(ctx string) bool {
	for _, c := range CallContexts {
		if c == ctx {
			return true
		}
	}
	return false
}

// Call represents one ingested audio interaction.
type Call struct {
	ID      uuid.UUID  `db:"id"`
	AgentID *uuid.UUID `db:"agent_id"`
	CityID  *int32     `db:"city_id"`

	CustomerPhone             *string `db:"customer_phone"`
	CustomerName              *string `db:"customer_name"`
	CustomerPreferredLanguage *string `db:"customer_preferred_language"`

	AudioKey        string `db:"audio_key"`
	DurationSeconds *int32 `db:"duration_seconds"`

	CallTimestamp time.Time `db:"call_timestamp"`

	CallContext          string  `db:"call_context"`
	PrimaryIssueCategory *string `db:"primary_issue_category"`
	AgentManualNote      *string `db:"agent_manual_note"`

	Status        Status  `db:"processing_status"`
	FailureReason *string `db:"failure_reason"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsEmergency reports whether the call should count against emergency
// volume: either the reported issue category is an emergency or scoring
// flagged the call for escalation.
func (c *Call) IsEmergency(insight *CallInsight) bool {
	if insight != nil && insight.EscalationRisk {
		return true
	}
	if c.PrimaryIssueCategory != nil &&
		strings.Contains(strings.ToLower(*c.PrimaryIssueCategory), "emergency") {
		return true
	}
	return false
}

// SentimentSample is one turn-level sentiment reading within a call.
type SentimentSample struct {
	Turn      int     `json:"turn"`
	Speaker   string  `json:"speaker,omitempty"`
	Sentiment float64 `json:"sentiment"`
}

// Deviation is one structured SOP deviation found during scoring.
type Deviation struct {
	Step        string `json:"step"`
	Description string `json:"description"`
	Severity    string `json:"severity,omitempty"`
}

// CallInsight is the scored evaluation of exactly one call. Immutable once
// written, except HumanRemarks which a reviewer may update out-of-band.
type CallInsight struct {
	CallID uuid.UUID `db:"call_id"`

	Transcript     *string `db:"transcript"`
	LanguageSpoken *string `db:"language_spoken"`

	SOPComplianceScore          float64 `db:"sop_compliance_score"`
	CommunicationScore          float64 `db:"communication_score"`
	SentimentStabilizationScore float64 `db:"sentiment_stabilization_score"`
	ResolutionValidityScore     float64 `db:"resolution_validity_score"`
	OverallQualityScore         float64 `db:"overall_quality_score"`
	CoachingPriority            float64 `db:"coaching_priority"`

	EscalationRisk bool    `db:"escalation_risk"`
	WhyFlagged     *string `db:"why_flagged"`

	HumanRemarks *string `db:"human_remarks"`

	BusinessInsight *string `db:"business_insight"`
	CoachingInsight *string `db:"coaching_insight"`

	IssueAnalysis       map[string]any    `db:"issue_analysis"`
	ResolutionAnalysis  map[string]any    `db:"resolution_analysis"`
	SOPDeviations       []Deviation       `db:"sop_deviations"`
	SentimentTrajectory []SentimentSample `db:"sentiment_trajectory"`

	CreatedAt time.Time `db:"created_at"`
}
