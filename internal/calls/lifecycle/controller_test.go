package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"callqa_backend/internal/calls/domain"
	"callqa_backend/internal/events"
	"callqa_backend/internal/metrics"
	"callqa_backend/platform/apperr"
	"callqa_backend/platform/logger"
	"callqa_backend/platform/validator"
)

type fakeStore struct {
	calls       map[uuid.UUID]*domain.Call
	transcripts map[uuid.UUID]string
	insights    map[uuid.UUID]*domain.CallInsight
	audits      []string
	failReasons map[uuid.UUID]string

	// when set, the next FinalizeAnalysis pretends it lost the race: it
	// flips the call to analyzed as if a rival committed, then conflicts.
	loseFinalizeRace bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		calls:       make(map[uuid.UUID]*domain.Call),
		transcripts: make(map[uuid.UUID]string),
		insights:    make(map[uuid.UUID]*domain.CallInsight),
		failReasons: make(map[uuid.UUID]string),
	}
}

func (f *fakeStore) GetCall(_ context.Context, id uuid.UUID) (*domain.Call, error) {
	c, ok := f.calls[id]
	if !ok {
		return nil, apperr.NotFound("call not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) TransitionStatus(_ context.Context, id uuid.UUID, allowed []domain.Status, next domain.Status) error {
	c, ok := f.calls[id]
	if !ok {
		return apperr.NotFound("call not found")
	}
	for _, s := range allowed {
		if c.Status == s {
			c.Status = next
			return nil
		}
	}
	return apperr.Conflict("call status changed concurrently")
}

func (f *fakeStore) StageTranscript(_ context.Context, id uuid.UUID, text string) error {
	f.transcripts[id] = text
	return nil
}

func (f *fakeStore) StagedTranscript(_ context.Context, id uuid.UUID) (string, error) {
	return f.transcripts[id], nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id uuid.UUID, reason string) (bool, error) {
	c, ok := f.calls[id]
	if !ok {
		return false, apperr.NotFound("call not found")
	}
	if c.Status.Terminal() {
		return false, nil
	}
	c.Status = domain.StatusFailed
	f.failReasons[id] = reason
	return true, nil
}

func (f *fakeStore) LogDuplicateScoring(_ context.Context, id uuid.UUID, reason string, _ *domain.ScoringResult) error {
	f.audits = append(f.audits, id.String()+": "+reason)
	return nil
}

func (f *fakeStore) FinalizeAnalysis(ctx context.Context, call *domain.Call, insight *domain.CallInsight, apply func(context.Context, metrics.TxStore) error) error {
	c, ok := f.calls[call.ID]
	if !ok {
		return apperr.NotFound("call not found")
	}
	if f.loseFinalizeRace {
		f.loseFinalizeRace = false
		c.Status = domain.StatusAnalyzed
		return apperr.Conflict("call is no longer eligible for analysis")
	}
	if c.Status.Terminal() {
		return apperr.Conflict("call is no longer eligible for analysis")
	}
	if _, exists := f.insights[call.ID]; exists {
		return apperr.Conflict("insight already exists for call")
	}
	if apply != nil {
		if err := apply(ctx, nil); err != nil {
			return err
		}
	}
	c.Status = domain.StatusAnalyzed
	f.insights[call.ID] = insight
	return nil
}

type fakeAggregator struct {
	applied int
}

func (f *fakeAggregator) Apply(context.Context, metrics.TxStore, *domain.Call, *domain.CallInsight) error {
	f.applied++
	return nil
}

func newTestController(store Store, agg Aggregator) *Controller {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	return NewController(store, agg, bus, validator.New(), log)
}

func seedCall(store *fakeStore, status domain.Status) *domain.Call {
	agentID := uuid.New()
	cityID := int32(1)
	call := &domain.Call{
		ID:            uuid.New(),
		AgentID:       &agentID,
		CityID:        &cityID,
		AudioKey:      "calls/test.mp3",
		CallContext:   "NEW_ISSUE",
		CallTimestamp: time.Now(),
		Status:        status,
	}
	store.calls[call.ID] = call
	return call
}

func validScoring() *domain.ScoringResult {
	return &domain.ScoringResult{
		LanguageSpoken:              "hindi",
		SOPComplianceScore:          0.8,
		CommunicationScore:          0.9,
		SentimentStabilizationScore: 1,
		ResolutionValidityScore:     0.75,
		OverallQualityScore:         0.85,
		CoachingPriority:            0.2,
	}
}

func TestTranscriptAdvancesPendingCall(t *testing.T) {
	store := newFakeStore()
	ctrl := newTestController(store, &fakeAggregator{})
	call := seedCall(store, domain.StatusPending)

	if err := ctrl.Advance(context.Background(), call.ID, TranscriptReady{Transcript: "hello"}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if store.calls[call.ID].Status != domain.StatusTranscribed {
		t.Fatalf("status = %s, want transcribed", store.calls[call.ID].Status)
	}
	if store.transcripts[call.ID] != "hello" {
		t.Fatalf("transcript not staged")
	}
}

func TestDuplicateTranscriptIsNoOp(t *testing.T) {
	store := newFakeStore()
	ctrl := newTestController(store, &fakeAggregator{})
	call := seedCall(store, domain.StatusTranscribed)
	store.transcripts[call.ID] = "first"

	if err := ctrl.Advance(context.Background(), call.ID, TranscriptReady{Transcript: "second"}); err != nil {
		t.Fatalf("duplicate transcript should be absorbed, got %v", err)
	}
	if store.transcripts[call.ID] != "first" {
		t.Fatalf("first transcript overwritten")
	}
}

func TestScoringFinalizesCall(t *testing.T) {
	store := newFakeStore()
	agg := &fakeAggregator{}
	ctrl := newTestController(store, agg)
	call := seedCall(store, domain.StatusTranscribed)
	store.transcripts[call.ID] = "customer reports low pressure"

	if err := ctrl.Advance(context.Background(), call.ID, ScoringReady{Result: validScoring()}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if store.calls[call.ID].Status != domain.StatusAnalyzed {
		t.Fatalf("status = %s, want analyzed", store.calls[call.ID].Status)
	}
	ins := store.insights[call.ID]
	if ins == nil {
		t.Fatal("insight not persisted")
	}
	if ins.Transcript == nil || *ins.Transcript != "customer reports low pressure" {
		t.Fatal("staged transcript not carried into insight")
	}
	if agg.applied != 1 {
		t.Fatalf("aggregates applied %d times, want 1", agg.applied)
	}
}

func TestScoringFromPendingIsAllowed(t *testing.T) {
	store := newFakeStore()
	ctrl := newTestController(store, &fakeAggregator{})
	call := seedCall(store, domain.StatusPending)

	if err := ctrl.Advance(context.Background(), call.ID, ScoringReady{Result: validScoring()}); err != nil {
		t.Fatalf("scoring a pending call should finalize it, got %v", err)
	}
	if store.calls[call.ID].Status != domain.StatusAnalyzed {
		t.Fatalf("status = %s, want analyzed", store.calls[call.ID].Status)
	}
}

func TestDuplicateScoringRejectedAndAudited(t *testing.T) {
	store := newFakeStore()
	agg := &fakeAggregator{}
	ctrl := newTestController(store, agg)
	call := seedCall(store, domain.StatusAnalyzed)
	why := "already there"
	store.insights[call.ID] = &domain.CallInsight{CallID: call.ID, WhyFlagged: &why}

	err := ctrl.Advance(context.Background(), call.ID, ScoringReady{Result: validScoring()})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(store.audits) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(store.audits))
	}
	if agg.applied != 0 {
		t.Fatal("aggregates must not change on duplicate scoring")
	}
}

func TestLostFinalizeRaceBecomesDuplicate(t *testing.T) {
	store := newFakeStore()
	ctrl := newTestController(store, &fakeAggregator{})
	call := seedCall(store, domain.StatusTranscribed)
	store.loseFinalizeRace = true

	err := ctrl.Advance(context.Background(), call.ID, ScoringReady{Result: validScoring()})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(store.audits) != 1 {
		t.Fatalf("losing contender should leave an audit entry, got %d", len(store.audits))
	}
}

func TestInvalidScoringLeavesStateUntouched(t *testing.T) {
	store := newFakeStore()
	agg := &fakeAggregator{}
	ctrl := newTestController(store, agg)
	call := seedCall(store, domain.StatusTranscribed)

	bad := validScoring()
	bad.SentimentStabilizationScore = 0.3
	err := ctrl.Advance(context.Background(), call.ID, ScoringReady{Result: bad})
	if !apperr.Is(err, apperr.KindInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if store.calls[call.ID].Status != domain.StatusTranscribed {
		t.Fatalf("status moved to %s on invalid scoring", store.calls[call.ID].Status)
	}
	if agg.applied != 0 {
		t.Fatal("aggregates changed on invalid scoring")
	}
}

func TestEscalationWithoutRationaleRejected(t *testing.T) {
	store := newFakeStore()
	ctrl := newTestController(store, &fakeAggregator{})
	call := seedCall(store, domain.StatusTranscribed)

	bad := validScoring()
	bad.EscalationRisk = true
	err := ctrl.Advance(context.Background(), call.ID, ScoringReady{Result: bad})
	if !apperr.Is(err, apperr.KindInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

func TestStageFailureMarksCall(t *testing.T) {
	store := newFakeStore()
	ctrl := newTestController(store, &fakeAggregator{})
	call := seedCall(store, domain.StatusPending)

	if err := ctrl.Advance(context.Background(), call.ID, StageFailed{Reason: "transcription timeout"}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if store.calls[call.ID].Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", store.calls[call.ID].Status)
	}
	if store.failReasons[call.ID] != "transcription timeout" {
		t.Fatal("failure reason not recorded")
	}
}

func TestFailureOnTerminalCallIsNoOp(t *testing.T) {
	store := newFakeStore()
	ctrl := newTestController(store, &fakeAggregator{})
	call := seedCall(store, domain.StatusAnalyzed)

	if err := ctrl.Advance(context.Background(), call.ID, StageFailed{Reason: "late failure"}); err != nil {
		t.Fatalf("failure on terminal call should be absorbed, got %v", err)
	}
	if store.calls[call.ID].Status != domain.StatusAnalyzed {
		t.Fatal("terminal status must not change")
	}
}

func TestAdvanceUnknownCall(t *testing.T) {
	store := newFakeStore()
	ctrl := newTestController(store, &fakeAggregator{})

	err := ctrl.Advance(context.Background(), uuid.New(), TranscriptReady{Transcript: "x"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
