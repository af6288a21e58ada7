// Package lifecycle drives calls through the processing state machine.
// Stage results arrive from the pipeline workers; the controller decides
// whether each one advances, is absorbed as a duplicate, or is rejected.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"callqa_backend/internal/calls/domain"
	"callqa_backend/internal/events"
	"callqa_backend/internal/metrics"
	"callqa_backend/platform/apperr"
	"callqa_backend/platform/logger"
	"callqa_backend/platform/validator"
)

// StageResult is one outcome submitted for a call by a pipeline stage.
type StageResult interface {
	stage() string
}

// TranscriptReady carries a finished transcription.
type TranscriptReady struct {
	Transcript string
}

// ScoringReady carries a validated-or-not scoring payload.
type ScoringReady struct {
	Result *domain.ScoringResult
}

// StageFailed reports that a stage gave up on the call.
type StageFailed struct {
	Reason string
}

func (TranscriptReady) stage() string { return "transcription" }
func (ScoringReady) stage() string    { return "scoring" }
func (StageFailed) stage() string     { return "failure" }

// Store is the persistence surface the controller needs. *repository.Repository
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	GetCall(ctx context.Context, id uuid.UUID) (*domain.Call, error)
	TransitionStatus(ctx context.Context, callID uuid.UUID, allowed []domain.Status, next domain.Status) error
	StageTranscript(ctx context.Context, callID uuid.UUID, transcript string) error
	StagedTranscript(ctx context.Context, callID uuid.UUID) (string, error)
	MarkFailed(ctx context.Context, callID uuid.UUID, reason string) (bool, error)
	LogDuplicateScoring(ctx context.Context, callID uuid.UUID, reason string, attempted *domain.ScoringResult) error
	FinalizeAnalysis(ctx context.Context, call *domain.Call, insight *domain.CallInsight, apply func(ctx context.Context, tx metrics.TxStore) error) error
}

// Aggregator folds a finalized call into the rolling metrics inside the
// finalize transaction.
type Aggregator interface {
	Apply(ctx context.Context, tx metrics.TxStore, call *domain.Call, insight *domain.CallInsight) error
}

type Controller struct {
	store    Store
	agg      Aggregator
	bus      events.Bus
	validate *validator.Validator
	log      *logger.Logger
}

func NewController(store Store, agg Aggregator, bus events.Bus, v *validator.Validator, log *logger.Logger) *Controller {
	return &Controller{store: store, agg: agg, bus: bus, validate: v, log: log}
}

// Advance applies one stage result to the call named by callID.
//
// Duplicate transcripts are absorbed silently. Duplicate scoring for an
// already-analyzed call is rejected with a conflict and leaves an audit
// record. Failure reports on terminal calls are no-ops.
func (c *Controller) Advance(ctx context.Context, callID uuid.UUID, result StageResult) error {
	call, err := c.store.GetCall(ctx, callID)
	if err != nil {
		return err
	}

	switch r := result.(type) {
	case TranscriptReady:
		return c.applyTranscript(ctx, call, r)
	case ScoringReady:
		return c.applyScoring(ctx, call, r)
	case StageFailed:
		return c.applyFailure(ctx, call, r)
	default:
		return apperr.BadRequest(fmt.Sprintf("unknown stage result %T", result))
	}
}

func (c *Controller) applyTranscript(ctx context.Context, call *domain.Call, r TranscriptReady) error {
	switch call.Status {
	case domain.StatusTranscribed, domain.StatusAnalyzed:
		// duplicate delivery, the first transcript won
		c.log.Info("duplicate transcript ignored", "call_id", call.ID, "status", call.Status)
		return nil
	case domain.StatusFailed:
		return apperr.Conflict("call already failed")
	}

	if r.Transcript == "" {
		return apperr.Invariant("empty transcript")
	}

	if err := c.store.StageTranscript(ctx, call.ID, r.Transcript); err != nil {
		return err
	}
	err := c.store.TransitionStatus(ctx, call.ID, []domain.Status{domain.StatusPending}, domain.StatusTranscribed)
	if apperr.Is(err, apperr.KindConflict) {
		// lost the race; whoever won either transcribed or finalized the call
		fresh, rerr := c.store.GetCall(ctx, call.ID)
		if rerr != nil {
			return rerr
		}
		if fresh.Status == domain.StatusTranscribed || fresh.Status == domain.StatusAnalyzed {
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}

	c.bus.Publish(ctx, events.NewCallTranscribed(call.ID, call.AgentID, call.CityID))
	return nil
}

func (c *Controller) applyScoring(ctx context.Context, call *domain.Call, r ScoringReady) error {
	if call.Status == domain.StatusAnalyzed {
		return c.rejectDuplicateScoring(ctx, call.ID, r.Result)
	}
	if call.Status == domain.StatusFailed {
		return apperr.Conflict("call already failed")
	}

	if r.Result == nil {
		return apperr.BadRequest("missing scoring result")
	}
	if err := r.Result.Validate(c.validate); err != nil {
		return err
	}

	transcript, err := c.store.StagedTranscript(ctx, call.ID)
	if err != nil {
		return err
	}
	insight := r.Result.ToInsight(call, transcript)

	err = c.store.FinalizeAnalysis(ctx, call, insight, func(ctx context.Context, tx metrics.TxStore) error {
		return c.agg.Apply(ctx, tx, call, insight)
	})
	if apperr.Is(err, apperr.KindConflict) {
		fresh, rerr := c.store.GetCall(ctx, call.ID)
		if rerr != nil {
			return rerr
		}
		if fresh.Status == domain.StatusAnalyzed {
			return c.rejectDuplicateScoring(ctx, call.ID, r.Result)
		}
		return err
	}
	if err != nil {
		return err
	}

	c.bus.Publish(ctx, events.NewCallAnalyzed(call.ID, call.AgentID, call.CityID, insight.OverallQualityScore, insight.EscalationRisk))
	if insight.EscalationRisk {
		why := ""
		if insight.WhyFlagged != nil {
			why = *insight.WhyFlagged
		}
		c.bus.Publish(ctx, events.NewEscalationFlagged(call.ID, call.AgentID, call.CityID, why, call.CallTimestamp, insight.OverallQualityScore))
	}
	return nil
}

func (c *Controller) rejectDuplicateScoring(ctx context.Context, callID uuid.UUID, attempted *domain.ScoringResult) error {
	if err := c.store.LogDuplicateScoring(ctx, callID, "call already analyzed", attempted); err != nil {
		c.log.Error("failed to record duplicate scoring attempt", "call_id", callID, "error", err)
	}
	return apperr.Conflict("call already analyzed")
}

func (c *Controller) applyFailure(ctx context.Context, call *domain.Call, r StageFailed) error {
	if call.Status.Terminal() {
		c.log.Info("failure report on terminal call ignored", "call_id", call.ID, "status", call.Status)
		return nil
	}
	reason := r.Reason
	if reason == "" {
		reason = "processing failed"
	}
	moved, err := c.store.MarkFailed(ctx, call.ID, reason)
	if err != nil {
		return err
	}
	if moved {
		c.bus.Publish(ctx, events.NewCallFailed(call.ID, call.AgentID, call.CityID, reason))
	}
	return nil
}
