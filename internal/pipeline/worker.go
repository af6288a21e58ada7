package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"callqa_backend/internal/adapters/storage"
	"callqa_backend/internal/calls/domain"
	"callqa_backend/internal/calls/lifecycle"
	"callqa_backend/internal/calls/repository"
	"callqa_backend/internal/pipeline/scorer"
	"callqa_backend/internal/pipeline/transcriber"
	"callqa_backend/platform/apperr"
	"callqa_backend/platform/config"
	"callqa_backend/platform/logger"
)

const sweepBatchSize = 100

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux

	repo        *repository.Repository
	ctrl        *lifecycle.Controller
	store       storage.RecordingStore
	bucket      string
	transcriber *transcriber.Client
	scorer      *scorer.Client
	enqueuer    Enqueuer

	stuckDeadline time.Duration
	sweepInterval time.Duration

	log *logger.Logger
}

func NewWorker(
	cfg config.PipelineConfig,
	repo *repository.Repository,
	ctrl *lifecycle.Controller,
	store storage.RecordingStore,
	bucket string,
	tr *transcriber.Client,
	sc *scorer.Client,
	enqueuer Enqueuer,
	log *logger.Logger,
) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:        server,
		mux:           mux,
		repo:          repo,
		ctrl:          ctrl,
		store:         store,
		bucket:        bucket,
		transcriber:   tr,
		scorer:        sc,
		enqueuer:      enqueuer,
		stuckDeadline: cfg.GetStuckCallDeadline(),
		sweepInterval: cfg.GetSweepInterval(),
		log:           log,
	}

	mux.HandleFunc(TaskCallTranscribe, w.handleTranscribe)
	mux.HandleFunc(TaskCallScore, w.handleScore)

	return w, nil
}

func (w *Worker) handleTranscribe(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCallTaskPayload(task)
	if err != nil {
		return err
	}
	callID, err := uuid.Parse(payload.CallID)
	if err != nil {
		return err
	}
	log := w.log.With("call_id", callID, "stage", "transcription")

	call, err := w.repo.GetCall(ctx, callID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			log.Warn("call vanished before transcription")
			return nil
		}
		return err
	}
	switch call.Status {
	case domain.StatusTranscribed:
		// earlier attempt transcribed but may not have chained the score
		return w.enqueuer.EnqueueScore(ctx, payload.CallID)
	case domain.StatusAnalyzed, domain.StatusFailed:
		return nil
	}

	open := func(ctx context.Context) (io.ReadCloser, string, error) {
		rc, err := w.store.DownloadRecording(ctx, w.bucket, call.AudioKey)
		if err != nil {
			return nil, "", err
		}
		return rc, "application/octet-stream", nil
	}

	result, err := w.transcriber.TranscribeWithRetry(ctx, open)
	if err != nil {
		if apperr.IsRetryable(err) {
			log.Warn("transcription attempt failed, will retry", "error", err)
			return err
		}
		log.Error("transcription failed permanently", "error", err)
		return w.failCall(ctx, callID, fmt.Sprintf("transcription failed: %v", err))
	}

	if err := w.ctrl.Advance(ctx, callID, lifecycle.TranscriptReady{Transcript: result.Text}); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			log.Info("call reached a terminal state during transcription")
			return nil
		}
		return err
	}

	log.Info("call transcribed", "chars", len(result.Text))
	return w.enqueuer.EnqueueScore(ctx, payload.CallID)
}

func (w *Worker) handleScore(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCallTaskPayload(task)
	if err != nil {
		return err
	}
	callID, err := uuid.Parse(payload.CallID)
	if err != nil {
		return err
	}
	log := w.log.With("call_id", callID, "stage", "scoring")

	call, err := w.repo.GetCall(ctx, callID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			log.Warn("call vanished before scoring")
			return nil
		}
		return err
	}
	if call.Status.Terminal() {
		return nil
	}

	transcript, err := w.repo.StagedTranscript(ctx, callID)
	if err != nil {
		return err
	}
	if transcript == "" {
		// score task arrived ahead of the transcript; let asynq retry
		return fmt.Errorf("no transcript staged yet for call %s", callID)
	}

	meta := scorer.CallContext{CallContext: call.CallContext}
	if call.PrimaryIssueCategory != nil {
		meta.PrimaryIssueCategory = *call.PrimaryIssueCategory
	}
	if call.CustomerPreferredLanguage != nil {
		meta.CustomerLanguage = *call.CustomerPreferredLanguage
	}
	if call.AgentManualNote != nil {
		meta.AgentManualNote = *call.AgentManualNote
	}

	result, err := w.scorer.ScoreWithRetry(ctx, transcript, meta)
	if err != nil {
		if apperr.IsRetryable(err) {
			log.Warn("scoring attempt failed, will retry", "error", err)
			return err
		}
		log.Error("scoring failed permanently", "error", err)
		return w.failCall(ctx, callID, fmt.Sprintf("scoring failed: %v", err))
	}

	err = w.ctrl.Advance(ctx, callID, lifecycle.ScoringReady{Result: result})
	switch {
	case err == nil:
		log.Info("call analyzed", "overall_quality", result.OverallQualityScore, "escalation_risk", result.EscalationRisk)
		return nil
	case apperr.Is(err, apperr.KindConflict):
		log.Info("scoring superseded by a concurrent result")
		return nil
	case apperr.Is(err, apperr.KindInvariant):
		log.Error("scoring result violated the contract", "error", err)
		return w.failCall(ctx, callID, fmt.Sprintf("invalid scoring result: %v", err))
	default:
		return err
	}
}

func (w *Worker) failCall(ctx context.Context, callID uuid.UUID, reason string) error {
	if err := w.ctrl.Advance(ctx, callID, lifecycle.StageFailed{Reason: reason}); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil
		}
		return err
	}
	return nil
}

// RunSweep periodically fails calls stuck in a non-terminal state past the
// deadline, so a lost task cannot strand a call in pending forever.
func (w *Worker) RunSweep(ctx context.Context) {
	if w.sweepInterval <= 0 || w.stuckDeadline <= 0 {
		return
	}
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *Worker) sweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-w.stuckDeadline)
	ids, err := w.repo.ListStuck(ctx, cutoff, sweepBatchSize)
	if err != nil {
		w.log.Error("stuck call sweep failed", "error", err)
		return
	}
	for _, id := range ids {
		if err := w.failCall(ctx, id, "processing deadline exceeded"); err != nil {
			w.log.Error("failed to sweep stuck call", "call_id", id, "error", err)
		} else {
			w.log.Warn("stuck call failed by sweep", "call_id", id)
		}
	}
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("pipeline worker stopped", "error", err)
	}
}
