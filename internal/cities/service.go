package cities

import (
	"context"
	"sort"
)

// RiskLevel buckets a city by its current escalation and quality posture.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// riskFor classifies a city. Cities with no analyzed calls are low risk;
// the thresholds follow the dashboard's traffic-light convention.
func riskFor(c *City) RiskLevel {
	if c.TotalCalls == 0 {
		return RiskLow
	}
	switch {
	case c.AvgEscalationRate >= 0.3 || c.AvgQuality < 0.5:
		return RiskHigh
	case c.AvgEscalationRate >= 0.15 || c.AvgQuality < 0.65:
		return RiskMedium
	default:
		return RiskLow
	}
}

// VolumeGrowthPct returns month-over-month call volume growth in percent,
// or nil when no previous month exists to compare against.
func VolumeGrowthPct(c *City) *float64 {
	if c.PrevMonthCalls == nil || *c.PrevMonthCalls == 0 {
		return nil
	}
	growth := float64(c.CallsThisMonth-*c.PrevMonthCalls) / float64(*c.PrevMonthCalls) * 100
	return &growth
}

// StateGroup is one state's slice of the risk map.
type StateGroup struct {
	State  string
	Cities []City
}

// Store is the query surface the service needs.
type Store interface {
	List(ctx context.Context) ([]City, error)
	Get(ctx context.Context, id int32) (*City, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns all cities with their aggregates.
func (s *Service) List(ctx context.Context) ([]City, error) {
	return s.store.List(ctx)
}

// Detail returns one city's full operational picture.
func (s *Service) Detail(ctx context.Context, id int32) (*City, error) {
	return s.store.Get(ctx, id)
}

// RiskMap groups cities by state for the dashboard, states sorted
// alphabetically and cities within a state by escalation rate descending.
func (s *Service) RiskMap(ctx context.Context) ([]StateGroup, error) {
	cities, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	byState := make(map[string][]City)
	for _, c := range cities {
		state := "Unknown"
		if c.State != nil && *c.State != "" {
			state = *c.State
		}
		byState[state] = append(byState[state], c)
	}

	groups := make([]StateGroup, 0, len(byState))
	for state, list := range byState {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].AvgEscalationRate > list[j].AvgEscalationRate
		})
		groups = append(groups, StateGroup{State: state, Cities: list})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].State < groups[j].State
	})
	return groups, nil
}
