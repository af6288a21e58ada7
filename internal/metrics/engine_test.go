package metrics

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"callqa_backend/internal/calls/domain"
	"callqa_backend/platform/apperr"
	"callqa_backend/platform/logger"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRunningMeanMatchesBatchMean(t *testing.T) {
	samples := []float64{0.8, 0.6, 1, 0, 0.75, 0.5, 0.9, 0.25}
	var mean float64
	var sum float64
	for i, s := range samples {
		mean = runningMean(mean, int32(i+1), s)
		sum += s
		want := sum / float64(i+1)
		if !almostEqual(mean, want) {
			t.Fatalf("after %d samples: running mean %v, batch mean %v", i+1, mean, want)
		}
	}
}

func TestFoldOrderIndependent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	samples := []float64{0.8, 0.6, 1, 0, 0.75, 0.5, 0.9, 0.25, 0.3, 0.45}

	forward := &AgentMetrics{}
	for _, q := range samples {
		forward.Fold(Sample{Quality: q, At: now}, now)
	}

	shuffled := &AgentMetrics{}
	perm := rand.New(rand.NewSource(1)).Perm(len(samples))
	for _, i := range perm {
		shuffled.Fold(Sample{Quality: samples[i], At: now}, now)
	}

	if !almostEqual(forward.QualityScore, shuffled.QualityScore) {
		t.Fatalf("quality mean depends on order: %v vs %v", forward.QualityScore, shuffled.QualityScore)
	}
}

// lockedTxStore holds its lock from the ForUpdate read until the save,
// mirroring the row lock the pgx store takes.
type lockedTxStore struct {
	mu    sync.Mutex
	agent *AgentMetrics
}

func (s *lockedTxStore) AgentForUpdate(ctx context.Context, id uuid.UUID) (*AgentMetrics, error) {
	s.mu.Lock()
	return s.agent, nil
}

func (s *lockedTxStore) SaveAgentMetrics(ctx context.Context, m *AgentMetrics) error {
	s.agent = m
	s.mu.Unlock()
	return nil
}

func (s *lockedTxStore) CityForUpdate(ctx context.Context, id int32) (*CityMetrics, error) {
	return nil, apperr.NotFound("city metrics not found")
}

func (s *lockedTxStore) SaveCityMetrics(ctx context.Context, m *CityMetrics) error {
	return nil
}

func TestConcurrentFoldsMatchBatchMean(t *testing.T) {
	const n = 64
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	e := NewEngine(logger.New("development"))
	e.now = func() time.Time { return now }

	agentID := uuid.New()
	store := &lockedTxStore{agent: &AgentMetrics{AgentID: agentID}}

	samples := make([]float64, n)
	var sum float64
	for i := range samples {
		samples[i] = float64(i) / float64(n-1)
		sum += samples[i]
	}

	var wg sync.WaitGroup
	for _, q := range samples {
		wg.Add(1)
		go func(q float64) {
			defer wg.Done()
			call := &domain.Call{AgentID: &agentID, CallTimestamp: now}
			insight := &domain.CallInsight{OverallQualityScore: q, EscalationRisk: q < 0.5}
			if err := e.Apply(context.Background(), store, call, insight); err != nil {
				t.Errorf("apply sample %v: %v", q, err)
			}
		}(q)
	}
	wg.Wait()

	if store.agent.CallsThisMonth != n {
		t.Fatalf("folded %d samples, want %d", store.agent.CallsThisMonth, n)
	}
	if !almostEqual(store.agent.QualityScore, sum/n) {
		t.Fatalf("quality after concurrent folds = %v, want batch mean %v", store.agent.QualityScore, sum/n)
	}
	if !almostEqual(store.agent.EscalationRate, 0.5) {
		t.Fatalf("escalation rate = %v, want 0.5", store.agent.EscalationRate)
	}
}

func TestAgentFoldAverages(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	a := &AgentMetrics{}

	a.Fold(Sample{Quality: 0.8, SOP: 0.9, Sentiment: 1, At: now}, now)
	if !almostEqual(a.QualityScore, 0.8) {
		t.Fatalf("quality after first sample = %v, want 0.8", a.QualityScore)
	}

	a.Fold(Sample{Quality: 0.6, SOP: 0.7, Sentiment: 0, Escalation: true, At: now}, now)
	if !almostEqual(a.QualityScore, 0.7) {
		t.Fatalf("quality after second sample = %v, want 0.7", a.QualityScore)
	}
	if !almostEqual(a.SOPScore, 0.8) {
		t.Fatalf("sop = %v, want 0.8", a.SOPScore)
	}
	if !almostEqual(a.SentimentScore, 0.5) {
		t.Fatalf("sentiment = %v, want 0.5", a.SentimentScore)
	}
	if !almostEqual(a.EscalationRate, 0.5) {
		t.Fatalf("escalation rate = %v, want 0.5", a.EscalationRate)
	}
	if a.CallsTotal != 2 || a.CallsThisMonth != 2 || a.CallsToday != 2 {
		t.Fatalf("counters = %d/%d/%d, want 2/2/2", a.CallsTotal, a.CallsThisMonth, a.CallsToday)
	}
}

func TestAgentMonthRollover(t *testing.T) {
	march := time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	a := &AgentMetrics{}
	a.Fold(Sample{Quality: 0.8, Escalation: true, At: march}, march)
	a.Fold(Sample{Quality: 0.6, At: march}, march)

	// first sample of the new month: snapshot, then fresh mean
	a.Fold(Sample{Quality: 0.4, Emergency: true, At: april}, april)

	if a.PrevQualityScore == nil || !almostEqual(*a.PrevQualityScore, 0.7) {
		t.Fatalf("prev month quality = %v, want 0.7", a.PrevQualityScore)
	}
	if a.PrevCalls == nil || *a.PrevCalls != 2 {
		t.Fatalf("prev month calls = %v, want 2", a.PrevCalls)
	}
	if a.PrevEscalationRate == nil || !almostEqual(*a.PrevEscalationRate, 0.5) {
		t.Fatalf("prev month escalation rate = %v, want 0.5", a.PrevEscalationRate)
	}
	if !almostEqual(a.QualityScore, 0.4) {
		t.Fatalf("new month quality = %v, want 0.4 (fresh mean)", a.QualityScore)
	}
	if a.CallsThisMonth != 1 || a.EmergenciesThisMonth != 1 {
		t.Fatalf("month counters = %d/%d, want 1/1", a.CallsThisMonth, a.EmergenciesThisMonth)
	}
	if a.CallsTotal != 3 {
		t.Fatalf("lifetime calls = %d, want 3", a.CallsTotal)
	}
}

func TestAgentEmptyMonthKeepsSnapshot(t *testing.T) {
	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	march := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	a := &AgentMetrics{}
	a.Fold(Sample{Quality: 0.9, At: jan}, jan)

	// february passes with no calls; the january snapshot must survive
	a.Fold(Sample{Quality: 0.5, At: march}, march)
	if a.PrevQualityScore == nil || !almostEqual(*a.PrevQualityScore, 0.9) {
		t.Fatalf("prev month quality = %v, want 0.9", a.PrevQualityScore)
	}
}

func TestDayReset(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 23, 50, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 0, 10, 0, 0, time.UTC)

	c := &CityMetrics{}
	c.Fold(Sample{Quality: 0.8, Emergency: true, At: day1}, day1)
	c.Fold(Sample{Quality: 0.6, At: day2}, day2)

	if c.CallsToday != 1 || c.EmergenciesToday != 0 {
		t.Fatalf("today counters = %d/%d, want 1/0", c.CallsToday, c.EmergenciesToday)
	}
	if c.CallsThisMonth != 2 {
		t.Fatalf("month counter = %d, want 2 (same month)", c.CallsThisMonth)
	}
}

func TestTrendEviction(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	a := &AgentMetrics{}
	for i := 0; i < trendCap+5; i++ {
		a.Fold(Sample{Quality: float64(i), At: now.Add(time.Duration(i) * time.Minute)}, now)
	}
	if len(a.RecentTrend) != trendCap {
		t.Fatalf("trend length = %d, want %d", len(a.RecentTrend), trendCap)
	}
	if !almostEqual(a.RecentTrend[0].Quality, 5) {
		t.Fatalf("oldest surviving sample = %v, want 5", a.RecentTrend[0].Quality)
	}
	if !almostEqual(a.RecentTrend[trendCap-1].Quality, float64(trendCap+4)) {
		t.Fatalf("newest sample = %v, want %v", a.RecentTrend[trendCap-1].Quality, trendCap+4)
	}
}
