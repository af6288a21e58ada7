package escalation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"callqa_backend/platform/apperr"
)

const (
	defaultRecentWindow = 5 * time.Minute
	defaultWorstWindow  = 7 * 24 * time.Hour
	maxWindow           = 90 * 24 * time.Hour
)

// Store is the query surface the service needs.
type Store interface {
	Recent(ctx context.Context, window time.Duration) ([]FlaggedCall, error)
	ByScoreThreshold(ctx context.Context, minScore float64, window time.Duration) ([]FlaggedCall, error)
	WorstCallForAgent(ctx context.Context, agentID uuid.UUID, window time.Duration) (*FlaggedCall, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func clampWindow(window, fallback time.Duration) (time.Duration, error) {
	if window == 0 {
		return fallback, nil
	}
	if window < 0 {
		return 0, apperr.BadRequest("window must be positive")
	}
	if window > maxWindow {
		return maxWindow, nil
	}
	return window, nil
}

// Recent lists escalation-flagged calls, defaulting to the last 5 minutes.
func (s *Service) Recent(ctx context.Context, window time.Duration) ([]FlaggedCall, error) {
	w, err := clampWindow(window, defaultRecentWindow)
	if err != nil {
		return nil, err
	}
	return s.store.Recent(ctx, w)
}

// ByScoreThreshold lists calls at or above a coaching priority threshold.
func (s *Service) ByScoreThreshold(ctx context.Context, minScore float64, window time.Duration) ([]FlaggedCall, error) {
	if minScore < 0 || minScore > 1 {
		return nil, apperr.BadRequest("minScore must be between 0 and 1")
	}
	w, err := clampWindow(window, defaultRecentWindow)
	if err != nil {
		return nil, err
	}
	return s.store.ByScoreThreshold(ctx, minScore, w)
}

// WorstCallForAgent returns the call most in need of supervisor review,
// defaulting to the last 7 days.
func (s *Service) WorstCallForAgent(ctx context.Context, agentID uuid.UUID, window time.Duration) (*FlaggedCall, error) {
	w, err := clampWindow(window, defaultWorstWindow)
	if err != nil {
		return nil, err
	}
	return s.store.WorstCallForAgent(ctx, agentID, w)
}
