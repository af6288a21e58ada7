package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"callqa_backend/platform/logger"
)

// Store is the persistence surface the service needs.
type Store interface {
	AgentState(ctx context.Context, agentID uuid.UUID) (*AgentInsightState, error)
	CityState(ctx context.Context, cityID int32) (*CityInsightState, error)
	AgentMonthDigests(ctx context.Context, agentID uuid.UUID) ([]CallDigest, error)
	CityMonthDigests(ctx context.Context, cityID int32) ([]CallDigest, error)
	CityTodayDigests(ctx context.Context, cityID int32) ([]CallDigest, error)
	SaveAgentInsights(ctx context.Context, st *AgentInsightState, monthly, overall, change string, now time.Time) error
	SaveCityInsights(ctx context.Context, st *CityInsightState, dailyOps, monthly, overall, coaching string, now time.Time) error
}

// TextGenerator produces the narrative insight texts.
type TextGenerator interface {
	AgentMonthly(ctx context.Context, agentName string, calls []CallDigest) (string, error)
	MergeOverall(ctx context.Context, currentOverall, monthly string) (overall, change string, err error)
	CityDailyOps(ctx context.Context, cityName string, todays []CallDigest) (string, error)
	CityMonthly(ctx context.Context, cityName string, month []CallDigest) (string, error)
	CityOverall(ctx context.Context, currentOverall, monthly string) (string, error)
	CityCoachingFocus(ctx context.Context, cityName string, month []CallDigest) (string, error)
}

type Service struct {
	store Store
	gen   TextGenerator
	cache *Cache
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store Store, gen TextGenerator, cache *Cache, log *logger.Logger) *Service {
	return &Service{
		store: store,
		gen:   gen,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

// AgentInsights returns the agent's generated insights, regenerating them
// when stale. The boolean reports whether a regeneration ran.
func (s *Service) AgentInsights(ctx context.Context, agentID uuid.UUID) (*AgentInsightState, bool, error) {
	load := func(ctx context.Context) (CacheState, error) {
		st, err := s.store.AgentState(ctx, agentID)
		if err != nil {
			return CacheState{}, err
		}
		return CacheState{Value: st, LastGenerated: st.LastGeneratedAt, LastEvent: st.LastUpdatedAt}, nil
	}

	refresh := func(ctx context.Context) (any, error) {
		return s.regenerateAgent(ctx, agentID)
	}

	v, refreshed, err := s.cache.GetOrRefresh(ctx, "agent", agentID.String(), load, refresh)
	if err != nil {
		return nil, false, err
	}
	return v.(*AgentInsightState), refreshed, nil
}

func (s *Service) regenerateAgent(ctx context.Context, agentID uuid.UUID) (*AgentInsightState, error) {
	st, err := s.store.AgentState(ctx, agentID)
	if err != nil {
		return nil, err
	}
	digests, err := s.store.AgentMonthDigests(ctx, agentID)
	if err != nil {
		return nil, err
	}

	monthly, err := s.gen.AgentMonthly(ctx, st.AgentName, digests)
	if err != nil {
		return nil, fmt.Errorf("generate agent monthly insight: %w", err)
	}

	overall, change := st.OverallInsight, st.LatestChangeSummary
	if len(digests) > 0 {
		overall, change, err = s.gen.MergeOverall(ctx, st.OverallInsight, monthly)
		if err != nil {
			return nil, fmt.Errorf("merge agent overall insight: %w", err)
		}
	}

	now := s.now()
	if err := s.store.SaveAgentInsights(ctx, st, monthly, overall, change, now); err != nil {
		return nil, err
	}

	s.log.Info("agent insights regenerated", "agent_id", agentID, "calls", len(digests))

	st.History = appendHistory(st.History, st.LatestMonthInsight, now)
	st.LatestMonthInsight = monthly
	st.OverallInsight = overall
	st.LatestChangeSummary = change
	st.LastGeneratedAt = &now
	return st, nil
}

// CityInsights returns the city's generated insights, regenerating them when
// stale. The coaching focus is regenerated at most once per calendar month.
func (s *Service) CityInsights(ctx context.Context, cityID int32) (*CityInsightState, bool, error) {
	load := func(ctx context.Context) (CacheState, error) {
		st, err := s.store.CityState(ctx, cityID)
		if err != nil {
			return CacheState{}, err
		}
		return CacheState{Value: st, LastGenerated: st.LastGeneratedAt, LastEvent: st.LastUpdatedAt}, nil
	}

	refresh := func(ctx context.Context) (any, error) {
		return s.regenerateCity(ctx, cityID)
	}

	v, refreshed, err := s.cache.GetOrRefresh(ctx, "city", fmt.Sprintf("%d", cityID), load, refresh)
	if err != nil {
		return nil, false, err
	}
	return v.(*CityInsightState), refreshed, nil
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func (s *Service) regenerateCity(ctx context.Context, cityID int32) (*CityInsightState, error) {
	st, err := s.store.CityState(ctx, cityID)
	if err != nil {
		return nil, err
	}
	month, err := s.store.CityMonthDigests(ctx, cityID)
	if err != nil {
		return nil, err
	}
	today, err := s.store.CityTodayDigests(ctx, cityID)
	if err != nil {
		return nil, err
	}

	dailyOps, err := s.gen.CityDailyOps(ctx, st.CityName, today)
	if err != nil {
		return nil, fmt.Errorf("generate city daily ops insight: %w", err)
	}
	monthly, err := s.gen.CityMonthly(ctx, st.CityName, month)
	if err != nil {
		return nil, fmt.Errorf("generate city monthly insight: %w", err)
	}

	overall := st.Overall
	if len(month) > 0 {
		overall, err = s.gen.CityOverall(ctx, st.Overall, monthly)
		if err != nil {
			return nil, fmt.Errorf("merge city overall insight: %w", err)
		}
	}

	now := s.now()

	// Coaching focus is expensive and slow-moving; regenerate it only once
	// per calendar month.
	coaching := st.CoachingFocus
	if coaching == "" || st.LastGeneratedAt == nil || !sameMonth(*st.LastGeneratedAt, now) {
		coaching, err = s.gen.CityCoachingFocus(ctx, st.CityName, month)
		if err != nil {
			return nil, fmt.Errorf("generate city coaching focus: %w", err)
		}
	}

	if err := s.store.SaveCityInsights(ctx, st, dailyOps, monthly, overall, coaching, now); err != nil {
		return nil, err
	}

	s.log.Info("city insights regenerated",
		"city_id", cityID, "month_calls", len(month), "today_calls", len(today))

	st.History = appendHistory(st.History, st.Monthly, now)
	st.DailyOps = dailyOps
	st.Monthly = monthly
	st.Overall = overall
	st.CoachingFocus = coaching
	st.LastGeneratedAt = &now
	return st, nil
}
