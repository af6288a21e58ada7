package cities

import (
	"context"
	"testing"
)

type fakeStore struct {
	cities []City
}

func (s *fakeStore) List(ctx context.Context) ([]City, error) {
	return s.cities, nil
}

func (s *fakeStore) Get(ctx context.Context, id int32) (*City, error) {
	return &s.cities[0], nil
}

func strPtr(s string) *string { return &s }

func intPtr(v int64) *int64 { return &v }

func TestVolumeGrowthPct(t *testing.T) {
	cases := []struct {
		name string
		city City
		want *float64
	}{
		{"no previous month", City{CallsThisMonth: 10}, nil},
		{"zero previous month", City{CallsThisMonth: 10, PrevMonthCalls: intPtr(0)}, nil},
		{"fifty percent up", City{CallsThisMonth: 150, PrevMonthCalls: intPtr(100)}, floatPtr(50)},
		{"decline", City{CallsThisMonth: 50, PrevMonthCalls: intPtr(100)}, floatPtr(-50)},
	}
	for _, tc := range cases {
		got := VolumeGrowthPct(&tc.city)
		if (got == nil) != (tc.want == nil) {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
		if got != nil && *got != *tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, *got, *tc.want)
		}
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestRiskClassification(t *testing.T) {
	cases := []struct {
		name string
		city City
		want RiskLevel
	}{
		{"no calls", City{}, RiskLow},
		{"healthy", City{TotalCalls: 100, AvgQuality: 0.8, AvgEscalationRate: 0.05}, RiskLow},
		{"elevated escalations", City{TotalCalls: 100, AvgQuality: 0.8, AvgEscalationRate: 0.2}, RiskMedium},
		{"soft quality", City{TotalCalls: 100, AvgQuality: 0.6, AvgEscalationRate: 0.05}, RiskMedium},
		{"escalation crisis", City{TotalCalls: 100, AvgQuality: 0.8, AvgEscalationRate: 0.4}, RiskHigh},
		{"quality collapse", City{TotalCalls: 100, AvgQuality: 0.4, AvgEscalationRate: 0.05}, RiskHigh},
	}
	for _, tc := range cases {
		if got := riskFor(&tc.city); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestRiskMapGroupsAndSorts(t *testing.T) {
	store := &fakeStore{cities: []City{
		{ID: 1, Name: "Pune", State: strPtr("Maharashtra"), AvgEscalationRate: 0.1},
		{ID: 2, Name: "Mumbai", State: strPtr("Maharashtra"), AvgEscalationRate: 0.3},
		{ID: 3, Name: "Jaipur", State: strPtr("Rajasthan")},
		{ID: 4, Name: "Orphan"},
	}}
	svc := NewService(store)

	groups, err := svc.RiskMap(context.Background())
	if err != nil {
		t.Fatalf("RiskMap: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	if groups[0].State != "Maharashtra" || groups[1].State != "Rajasthan" || groups[2].State != "Unknown" {
		t.Fatalf("state order = %s, %s, %s", groups[0].State, groups[1].State, groups[2].State)
	}
	if groups[0].Cities[0].Name != "Mumbai" {
		t.Fatalf("worst city first, got %s", groups[0].Cities[0].Name)
	}
}
