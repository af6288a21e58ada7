package insights

import (
	"testing"
	"time"
)

func TestIsStale(t *testing.T) {
	ttl := time.Hour
	grace := 10 * time.Minute
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	ts := func(minsAgo int) *time.Time {
		t := now.Add(-time.Duration(minsAgo) * time.Minute)
		return &t
	}

	tests := []struct {
		name          string
		lastGenerated *time.Time
		lastEvent     *time.Time
		want          bool
	}{
		{"never generated", nil, nil, true},
		{"fresh, no activity", ts(30), nil, false},
		{"ttl expired", ts(61), nil, true},
		{"exactly at ttl", ts(60), nil, true},
		{"fresh but new activity inside grace", ts(30), ts(5), true},
		{"fresh, activity older than grace", ts(30), ts(20), false},
		{"fresh, activity before generation", ts(5), ts(8), false},
		{"expired regardless of activity", ts(90), ts(80), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsStale(ttl, grace, tt.lastGenerated, tt.lastEvent, now)
			if got != tt.want {
				t.Fatalf("IsStale = %v, want %v", got, tt.want)
			}
		})
	}
}
