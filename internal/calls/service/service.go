// Package service implements call ingestion and the call-facing read and
// review operations.
package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"callqa_backend/internal/adapters/storage"
	"callqa_backend/internal/calls/domain"
	"callqa_backend/internal/calls/repository"
	"callqa_backend/internal/calls/transport"
	"callqa_backend/internal/events"
	"callqa_backend/internal/pipeline"
	"callqa_backend/platform/apperr"
	"callqa_backend/platform/logger"
	"callqa_backend/platform/phone"
	"callqa_backend/platform/sanitize"
)

const recordingsFolder = "calls"

type Service struct {
	repo     *repository.Repository
	store    storage.RecordingStore
	bucket   string
	enqueuer pipeline.Enqueuer
	bus      events.Bus
	log      *logger.Logger
}

func New(repo *repository.Repository, store storage.RecordingStore, bucket string, enqueuer pipeline.Enqueuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		bucket:   bucket,
		enqueuer: enqueuer,
		bus:      bus,
		log:      log,
	}
}

// Ingest stores the recording, creates the call in pending state and hands
// it to the pipeline.
func (s *Service) Ingest(ctx context.Context, req transport.IngestCallRequest, audio io.Reader, fileName, contentType string, size int64) (*transport.CallCreatedResponse, error) {
	if !domain.ValidCallContext(req.CallContext) {
		return nil, apperr.Validation(fmt.Sprintf("unknown call context %q", req.CallContext))
	}

	callTimestamp := time.Now()
	if req.CallTimestamp != "" {
		ts, err := time.Parse(time.RFC3339, req.CallTimestamp)
		if err != nil {
			return nil, apperr.Validation("callTimestamp must be RFC3339")
		}
		callTimestamp = ts
	}

	call := &domain.Call{
		ID:            uuid.New(),
		CallTimestamp: callTimestamp,
		CallContext:   req.CallContext,
		Status:        domain.StatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if req.Agent != "" {
		agentID, err := s.repo.ResolveAgent(ctx, req.Agent)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil, apperr.Validation(fmt.Sprintf("unknown agent %q", req.Agent))
			}
			return nil, err
		}
		call.AgentID = &agentID
	}
	if req.City != "" {
		cityID, err := s.repo.ResolveCity(ctx, req.City)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil, apperr.Validation(fmt.Sprintf("unknown city %q", req.City))
			}
			return nil, err
		}
		call.CityID = &cityID
	}

	if req.CustomerPhone != "" {
		normalized := phone.NormalizeE164(req.CustomerPhone)
		call.CustomerPhone = &normalized
	}
	setOptional(&call.CustomerName, sanitize.Text(req.CustomerName))
	setOptional(&call.CustomerPreferredLanguage, req.CustomerPreferredLanguage)
	setOptional(&call.PrimaryIssueCategory, req.PrimaryIssueCategory)
	setOptional(&call.AgentManualNote, sanitize.Text(req.AgentManualNote))
	call.DurationSeconds = req.DurationSeconds

	storedName := fmt.Sprintf("%s_%s_%s",
		callTimestamp.Format("20060102"), call.ID, path.Base(fileName))
	audioKey, err := s.store.UploadRecording(ctx, s.bucket, recordingsFolder, storedName, contentType, audio, size)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "recording upload rejected", err)
	}
	call.AudioKey = audioKey

	if err := s.repo.CreateCall(ctx, call); err != nil {
		// best effort: do not leave an orphaned recording behind
		if delErr := s.store.DeleteRecording(ctx, s.bucket, audioKey); delErr != nil {
			s.log.Error("failed to clean up recording after insert failure", "audio_key", audioKey, "error", delErr)
		}
		return nil, err
	}

	s.bus.Publish(ctx, events.NewCallIngested(call.ID, call.AgentID, call.CityID))

	if err := s.enqueuer.EnqueueTranscribe(ctx, call.ID.String()); err != nil {
		// the sweep will eventually fail the call if nothing picks it up
		s.log.Error("failed to enqueue transcription", "call_id", call.ID, "error", err)
	}

	return &transport.CallCreatedResponse{
		CallID:   call.ID,
		Status:   call.Status,
		AudioKey: call.AudioKey,
	}, nil
}

func setOptional(dst **string, v string) {
	if v != "" {
		*dst = &v
	}
}

// Status returns the call's pipeline position.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (*transport.CallStatusResponse, error) {
	call, err := s.repo.GetCall(ctx, id)
	if err != nil {
		return nil, err
	}
	return &transport.CallStatusResponse{
		CallID:        call.ID,
		Status:        call.Status,
		FailureReason: call.FailureReason,
		CallTimestamp: call.CallTimestamp,
		UpdatedAt:     call.UpdatedAt,
	}, nil
}

// Detail returns the call with its insight and a playback URL when available.
func (s *Service) Detail(ctx context.Context, id uuid.UUID) (*transport.CallDetailResponse, error) {
	call, err := s.repo.GetCall(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &transport.CallDetailResponse{Call: call}

	if call.Status == domain.StatusAnalyzed {
		insight, err := s.repo.GetInsight(ctx, id)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		resp.Insight = insight
	}

	if call.AudioKey != "" {
		if presigned, err := s.store.PlaybackURL(ctx, s.bucket, call.AudioKey); err == nil {
			resp.PlaybackURL = presigned.URL
		} else {
			s.log.Warn("playback url generation failed", "call_id", id, "error", err)
		}
	}
	return resp, nil
}

// Reprocess re-drives a stalled call: pending calls get a fresh transcription
// task, transcribed calls a fresh scoring task. Terminal calls are refused.
func (s *Service) Reprocess(ctx context.Context, id uuid.UUID) error {
	call, err := s.repo.GetCall(ctx, id)
	if err != nil {
		return err
	}
	switch call.Status {
	case domain.StatusPending:
		return s.enqueuer.EnqueueTranscribe(ctx, id.String())
	case domain.StatusTranscribed:
		return s.enqueuer.EnqueueScore(ctx, id.String())
	default:
		return apperr.Conflict(fmt.Sprintf("call is %s and cannot be reprocessed", call.Status))
	}
}

// UpdateRemarks sets reviewer remarks on an analyzed call's insight.
func (s *Service) UpdateRemarks(ctx context.Context, id uuid.UUID, remarks string) error {
	return s.repo.UpdateHumanRemarks(ctx, id, sanitize.Text(remarks))
}

// ListCalls returns recent calls with optional filters.
func (s *Service) ListCalls(ctx context.Context, f repository.ListFilter) ([]*domain.Call, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown status %q", f.Status))
	}
	return s.repo.ListCalls(ctx, f)
}
