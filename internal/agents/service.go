package agents

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"callqa_backend/platform/apperr"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Store is the query surface the service needs.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Agent, error)
	Leaderboard(ctx context.Context, limit int) ([]Agent, error)
	Search(ctx context.Context, query string, limit int) ([]Agent, error)
	List(ctx context.Context, limit int) ([]Agent, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// Leaderboard ranks agents by current quality score.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]Agent, error) {
	return s.store.Leaderboard(ctx, clampLimit(limit))
}

// Find lists agents, optionally filtered by a name or employee-id query.
func (s *Service) Find(ctx context.Context, query string, limit int) ([]Agent, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.store.List(ctx, clampLimit(limit))
	}
	if len(query) > 100 {
		return nil, apperr.BadRequest("search query too long")
	}
	return s.store.Search(ctx, query, clampLimit(limit))
}

// Stats returns an agent's current metrics with the previous-month
// comparison and recent trend.
func (s *Service) Stats(ctx context.Context, id uuid.UUID) (*Agent, error) {
	return s.store.Get(ctx, id)
}
