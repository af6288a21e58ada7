package escalation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"callqa_backend/platform/apperr"
)

type fakeStore struct {
	lastWindow   time.Duration
	lastMinScore float64
	calls        []FlaggedCall
	worst        *FlaggedCall
}

func (s *fakeStore) Recent(ctx context.Context, window time.Duration) ([]FlaggedCall, error) {
	s.lastWindow = window
	return s.calls, nil
}

func (s *fakeStore) ByScoreThreshold(ctx context.Context, minScore float64, window time.Duration) ([]FlaggedCall, error) {
	s.lastMinScore = minScore
	s.lastWindow = window
	return s.calls, nil
}

func (s *fakeStore) WorstCallForAgent(ctx context.Context, agentID uuid.UUID, window time.Duration) (*FlaggedCall, error) {
	s.lastWindow = window
	if s.worst == nil {
		return nil, apperr.NotFound("no analyzed calls for agent in window")
	}
	return s.worst, nil
}

func TestRecentDefaultsWindow(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	if _, err := svc.Recent(context.Background(), 0); err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if store.lastWindow != 5*time.Minute {
		t.Fatalf("window = %v, want 5m default", store.lastWindow)
	}
}

func TestRecentRejectsNegativeWindow(t *testing.T) {
	svc := NewService(&fakeStore{})

	_, err := svc.Recent(context.Background(), -time.Minute)
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
}

func TestRecentClampsOversizedWindow(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	if _, err := svc.Recent(context.Background(), 365*24*time.Hour); err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if store.lastWindow != maxWindow {
		t.Fatalf("window = %v, want clamped to %v", store.lastWindow, maxWindow)
	}
}

func TestByScoreThresholdValidatesScore(t *testing.T) {
	svc := NewService(&fakeStore{})

	for _, score := range []float64{-0.1, 1.1} {
		_, err := svc.ByScoreThreshold(context.Background(), score, 0)
		if !apperr.Is(err, apperr.KindBadRequest) {
			t.Fatalf("score %v: err = %v, want bad request", score, err)
		}
	}

	store := &fakeStore{}
	svc = NewService(store)
	if _, err := svc.ByScoreThreshold(context.Background(), 0.7, time.Hour); err != nil {
		t.Fatalf("ByScoreThreshold: %v", err)
	}
	if store.lastMinScore != 0.7 || store.lastWindow != time.Hour {
		t.Fatalf("minScore = %v, window = %v", store.lastMinScore, store.lastWindow)
	}
}

func TestWorstCallDefaultsSevenDays(t *testing.T) {
	worst := &FlaggedCall{CallID: uuid.New(), CoachingPriority: 0.9}
	store := &fakeStore{worst: worst}
	svc := NewService(store)

	got, err := svc.WorstCallForAgent(context.Background(), uuid.New(), 0)
	if err != nil {
		t.Fatalf("WorstCallForAgent: %v", err)
	}
	if store.lastWindow != 7*24*time.Hour {
		t.Fatalf("window = %v, want 7 days default", store.lastWindow)
	}
	if got.CallID != worst.CallID {
		t.Fatalf("got call %s, want %s", got.CallID, worst.CallID)
	}
}

func TestWorstCallNotFound(t *testing.T) {
	svc := NewService(&fakeStore{})

	_, err := svc.WorstCallForAgent(context.Background(), uuid.New(), 0)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
