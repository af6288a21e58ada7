// Package transport defines the HTTP request/response shapes for calls.
package transport

import (
	"time"

	"github.com/google/uuid"

	"callqa_backend/internal/calls/domain"
)

// IngestCallRequest is the multipart form accompanying an uploaded recording.
// Agent and City accept a UUID / numeric ID or a human-readable reference
// (employee id, agent name, city name).
type IngestCallRequest struct {
	Agent string `form:"agent"`
	City  string `form:"city"`

	CustomerPhone             string `form:"customerPhone" validate:"omitempty,max=20"`
	CustomerName              string `form:"customerName" validate:"omitempty,max=100"`
	CustomerPreferredLanguage string `form:"customerPreferredLanguage" validate:"omitempty,max=50"`

	CallContext          string `form:"callContext" validate:"required"`
	PrimaryIssueCategory string `form:"primaryIssueCategory" validate:"omitempty,max=50"`
	AgentManualNote      string `form:"agentManualNote" validate:"omitempty,max=2000"`

	// RFC3339; defaults to the upload time when omitted.
	CallTimestamp   string `form:"callTimestamp"`
	DurationSeconds *int32 `form:"durationSeconds" validate:"omitempty,min=0"`
}

// CallCreatedResponse acknowledges an accepted ingestion.
type CallCreatedResponse struct {
	CallID   uuid.UUID     `json:"callId"`
	Status   domain.Status `json:"status"`
	AudioKey string        `json:"audioKey"`
}

// CallStatusResponse reports where a call sits in the pipeline.
type CallStatusResponse struct {
	CallID        uuid.UUID     `json:"callId"`
	Status        domain.Status `json:"status"`
	FailureReason *string       `json:"failureReason,omitempty"`
	CallTimestamp time.Time     `json:"callTimestamp"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// UpdateRemarksRequest sets reviewer remarks on an analyzed call.
type UpdateRemarksRequest struct {
	HumanRemarks string `json:"humanRemarks" validate:"required,max=4000"`
}

// CallDetailResponse is the full call view with its insight when analyzed.
type CallDetailResponse struct {
	Call        *domain.Call        `json:"call"`
	Insight     *domain.CallInsight `json:"insight,omitempty"`
	PlaybackURL string              `json:"playbackUrl,omitempty"`
}
