package insights

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"callqa_backend/platform/logger"
)

type fakeStore struct {
	agent *AgentInsightState
	city  *CityInsightState

	agentDigests []CallDigest
	monthDigests []CallDigest
	todayDigests []CallDigest

	agentSaves int
	citySaves  int
}

func (s *fakeStore) AgentState(ctx context.Context, id uuid.UUID) (*AgentInsightState, error) {
	cp := *s.agent
	return &cp, nil
}

func (s *fakeStore) CityState(ctx context.Context, id int32) (*CityInsightState, error) {
	cp := *s.city
	return &cp, nil
}

func (s *fakeStore) AgentMonthDigests(ctx context.Context, id uuid.UUID) ([]CallDigest, error) {
	return s.agentDigests, nil
}

func (s *fakeStore) CityMonthDigests(ctx context.Context, id int32) ([]CallDigest, error) {
	return s.monthDigests, nil
}

func (s *fakeStore) CityTodayDigests(ctx context.Context, id int32) ([]CallDigest, error) {
	return s.todayDigests, nil
}

func (s *fakeStore) SaveAgentInsights(ctx context.Context, st *AgentInsightState, monthly, overall, change string, now time.Time) error {
	s.agentSaves++
	s.agent.LatestMonthInsight = monthly
	s.agent.OverallInsight = overall
	s.agent.LatestChangeSummary = change
	s.agent.LastGeneratedAt = &now
	return nil
}

func (s *fakeStore) SaveCityInsights(ctx context.Context, st *CityInsightState, dailyOps, monthly, overall, coaching string, now time.Time) error {
	s.citySaves++
	s.city.DailyOps = dailyOps
	s.city.Monthly = monthly
	s.city.Overall = overall
	s.city.CoachingFocus = coaching
	s.city.LastGeneratedAt = &now
	return nil
}

type fakeGenerator struct {
	coachingCalls int
}

func (g *fakeGenerator) AgentMonthly(ctx context.Context, name string, calls []CallDigest) (string, error) {
	if len(calls) == 0 {
		return "No calls recorded this month.", nil
	}
	return "monthly for " + name, nil
}

func (g *fakeGenerator) MergeOverall(ctx context.Context, currentOverall, monthly string) (string, string, error) {
	return "merged overall", "changed", nil
}

func (g *fakeGenerator) CityDailyOps(ctx context.Context, name string, todays []CallDigest) (string, error) {
	return "daily ops", nil
}

func (g *fakeGenerator) CityMonthly(ctx context.Context, name string, month []CallDigest) (string, error) {
	return "city monthly", nil
}

func (g *fakeGenerator) CityOverall(ctx context.Context, currentOverall, monthly string) (string, error) {
	return "city overall", nil
}

func (g *fakeGenerator) CityCoachingFocus(ctx context.Context, name string, month []CallDigest) (string, error) {
	g.coachingCalls++
	return "coaching focus", nil
}

func newTestService(store *fakeStore, gen *fakeGenerator) *Service {
	cache := &Cache{ttl: time.Hour, grace: 10 * time.Minute, now: time.Now}
	svc := NewService(store, gen, cache, logger.New("development"))
	return svc
}

func TestAgentInsightsFreshSkipsGeneration(t *testing.T) {
	recent := time.Now().Add(-5 * time.Minute)
	old := time.Now().Add(-2 * time.Hour)
	store := &fakeStore{agent: &AgentInsightState{
		AgentID:            uuid.New(),
		AgentName:          "Priya",
		LatestMonthInsight: "cached monthly",
		LastGeneratedAt:    &recent,
		LastUpdatedAt:      &old,
	}}
	gen := &fakeGenerator{}
	svc := newTestService(store, gen)

	st, refreshed, err := svc.AgentInsights(context.Background(), store.agent.AgentID)
	if err != nil {
		t.Fatalf("AgentInsights: %v", err)
	}
	if refreshed {
		t.Fatal("fresh insight should not trigger regeneration")
	}
	if st.LatestMonthInsight != "cached monthly" {
		t.Fatalf("got %q, want cached value", st.LatestMonthInsight)
	}
	if store.agentSaves != 0 {
		t.Fatalf("saves = %d, want 0", store.agentSaves)
	}
}

func TestAgentInsightsStaleRegenerates(t *testing.T) {
	old := time.Now().Add(-2 * time.Hour)
	store := &fakeStore{
		agent: &AgentInsightState{
			AgentID:         uuid.New(),
			AgentName:       "Priya",
			OverallInsight:  "previous overall",
			LastGeneratedAt: &old,
			LastUpdatedAt:   &old,
		},
		agentDigests: []CallDigest{{Date: time.Now(), CoachingInsight: "rushed closing"}},
	}
	gen := &fakeGenerator{}
	svc := newTestService(store, gen)

	st, refreshed, err := svc.AgentInsights(context.Background(), store.agent.AgentID)
	if err != nil {
		t.Fatalf("AgentInsights: %v", err)
	}
	if !refreshed {
		t.Fatal("stale insight should regenerate")
	}
	if st.LatestMonthInsight != "monthly for Priya" {
		t.Fatalf("monthly = %q", st.LatestMonthInsight)
	}
	if st.OverallInsight != "merged overall" || st.LatestChangeSummary != "changed" {
		t.Fatalf("overall = %q, change = %q", st.OverallInsight, st.LatestChangeSummary)
	}
	if store.agentSaves != 1 {
		t.Fatalf("saves = %d, want 1", store.agentSaves)
	}
}

func TestAgentInsightsEmptyMonthKeepsOverall(t *testing.T) {
	store := &fakeStore{agent: &AgentInsightState{
		AgentID:        uuid.New(),
		AgentName:      "Priya",
		OverallInsight: "historic overall",
	}}
	gen := &fakeGenerator{}
	svc := newTestService(store, gen)

	st, refreshed, err := svc.AgentInsights(context.Background(), store.agent.AgentID)
	if err != nil {
		t.Fatalf("AgentInsights: %v", err)
	}
	if !refreshed {
		t.Fatal("never-generated insight should regenerate")
	}
	if st.LatestMonthInsight != "No calls recorded this month." {
		t.Fatalf("monthly = %q", st.LatestMonthInsight)
	}
	if st.OverallInsight != "historic overall" {
		t.Fatalf("overall = %q, want untouched history", st.OverallInsight)
	}
}

func TestCityCoachingFocusOncePerMonth(t *testing.T) {
	sameMonthAgo := time.Now().Add(-2 * time.Hour)
	store := &fakeStore{
		city: &CityInsightState{
			CityID:          7,
			CityName:        "Pune",
			CoachingFocus:   "existing focus",
			LastGeneratedAt: &sameMonthAgo,
			LastUpdatedAt:   &sameMonthAgo,
		},
		monthDigests: []CallDigest{{Date: time.Now(), BusinessInsight: "billing spike"}},
	}
	gen := &fakeGenerator{}
	svc := newTestService(store, gen)

	st, refreshed, err := svc.CityInsights(context.Background(), 7)
	if err != nil {
		t.Fatalf("CityInsights: %v", err)
	}
	if !refreshed {
		t.Fatal("stale city insight should regenerate")
	}
	if gen.coachingCalls != 0 {
		t.Fatalf("coaching regenerated %d times within the same month, want 0", gen.coachingCalls)
	}
	if st.CoachingFocus != "existing focus" {
		t.Fatalf("coaching = %q, want carried over", st.CoachingFocus)
	}
	if st.DailyOps != "daily ops" || st.Monthly != "city monthly" {
		t.Fatalf("daily = %q, monthly = %q", st.DailyOps, st.Monthly)
	}
}

func TestCityCoachingFocusNewMonthRegenerates(t *testing.T) {
	lastMonth := time.Now().AddDate(0, -1, 0)
	store := &fakeStore{
		city: &CityInsightState{
			CityID:          7,
			CityName:        "Pune",
			CoachingFocus:   "stale focus",
			LastGeneratedAt: &lastMonth,
			LastUpdatedAt:   &lastMonth,
		},
		monthDigests: []CallDigest{{Date: time.Now(), CoachingInsight: "empathy gaps"}},
	}
	gen := &fakeGenerator{}
	svc := newTestService(store, gen)

	st, _, err := svc.CityInsights(context.Background(), 7)
	if err != nil {
		t.Fatalf("CityInsights: %v", err)
	}
	if gen.coachingCalls != 1 {
		t.Fatalf("coaching calls = %d, want 1", gen.coachingCalls)
	}
	if st.CoachingFocus != "coaching focus" {
		t.Fatalf("coaching = %q", st.CoachingFocus)
	}
}
