package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"callqa_backend/platform/apperr"
)

type fakeStore struct {
	lastLimit int
	lastQuery string
	listed    bool
	searched  bool
}

func (s *fakeStore) Get(ctx context.Context, id uuid.UUID) (*Agent, error) {
	return &Agent{ID: id}, nil
}

func (s *fakeStore) Leaderboard(ctx context.Context, limit int) ([]Agent, error) {
	s.lastLimit = limit
	return nil, nil
}

func (s *fakeStore) Search(ctx context.Context, query string, limit int) ([]Agent, error) {
	s.searched = true
	s.lastQuery = query
	s.lastLimit = limit
	return nil, nil
}

func (s *fakeStore) List(ctx context.Context, limit int) ([]Agent, error) {
	s.listed = true
	s.lastLimit = limit
	return nil, nil
}

func TestLeaderboardClampsLimit(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, defaultLimit},
		{-5, defaultLimit},
		{10, 10},
		{1000, maxLimit},
	}
	for _, tc := range cases {
		store := &fakeStore{}
		svc := NewService(store)
		if _, err := svc.Leaderboard(context.Background(), tc.in); err != nil {
			t.Fatalf("Leaderboard(%d): %v", tc.in, err)
		}
		if store.lastLimit != tc.want {
			t.Fatalf("limit %d clamped to %d, want %d", tc.in, store.lastLimit, tc.want)
		}
	}
}

func TestFindEmptyQueryLists(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	if _, err := svc.Find(context.Background(), "   ", 0); err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !store.listed || store.searched {
		t.Fatalf("listed = %v, searched = %v, want list only", store.listed, store.searched)
	}
}

func TestFindQuerySearches(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	if _, err := svc.Find(context.Background(), " priya ", 0); err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !store.searched {
		t.Fatal("expected search path")
	}
	if store.lastQuery != "priya" {
		t.Fatalf("query = %q, want trimmed", store.lastQuery)
	}
}

func TestFindRejectsOversizedQuery(t *testing.T) {
	svc := NewService(&fakeStore{})

	_, err := svc.Find(context.Background(), strings.Repeat("a", 101), 0)
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
}
