package insights

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type cacheConfig struct {
	ttl   time.Duration
	grace time.Duration
}

func (c cacheConfig) GetInsightTTL() time.Duration         { return c.ttl }
func (c cacheConfig) GetInsightGraceWindow() time.Duration { return c.grace }

func TestCacheReturnsFreshValueWithoutRefresh(t *testing.T) {
	cache := NewCache(cacheConfig{ttl: time.Hour, grace: 10 * time.Minute})

	gen := time.Now().Add(-5 * time.Minute)
	load := func(context.Context) (CacheState, error) {
		return CacheState{Value: "cached", LastGenerated: &gen}, nil
	}
	refresh := func(context.Context) (any, error) {
		t.Fatal("refresh must not run for a fresh entry")
		return nil, nil
	}

	v, refreshed, err := cache.GetOrRefresh(context.Background(), "agent", "a1", load, refresh)
	if err != nil {
		t.Fatalf("GetOrRefresh: %v", err)
	}
	if refreshed || v != "cached" {
		t.Fatalf("got (%v, %v), want (cached, false)", v, refreshed)
	}
}

func TestCacheRefreshesStaleEntry(t *testing.T) {
	cache := NewCache(cacheConfig{ttl: time.Hour, grace: 10 * time.Minute})

	gen := time.Now().Add(-2 * time.Hour)
	load := func(context.Context) (CacheState, error) {
		return CacheState{Value: "old", LastGenerated: &gen}, nil
	}
	refresh := func(context.Context) (any, error) {
		return "new", nil
	}

	v, refreshed, err := cache.GetOrRefresh(context.Background(), "agent", "a1", load, refresh)
	if err != nil {
		t.Fatalf("GetOrRefresh: %v", err)
	}
	if !refreshed || v != "new" {
		t.Fatalf("got (%v, %v), want (new, true)", v, refreshed)
	}
}

func TestCacheSingleFlight(t *testing.T) {
	cache := NewCache(cacheConfig{ttl: time.Hour, grace: 10 * time.Minute})

	var refreshes atomic.Int32
	release := make(chan struct{})

	load := func(context.Context) (CacheState, error) {
		return CacheState{}, nil // never generated: always stale
	}
	refresh := func(context.Context) (any, error) {
		refreshes.Add(1)
		<-release
		return "generated", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]any, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := cache.GetOrRefresh(context.Background(), "city", "7", load, refresh)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
			}
			results[i] = v
		}(i)
	}

	// let the goroutines pile up behind the in-flight refresh
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := refreshes.Load(); n != 1 {
		t.Fatalf("refresh ran %d times, want 1", n)
	}
	for i, v := range results {
		if v != "generated" {
			t.Fatalf("caller %d got %v", i, v)
		}
	}
}

func TestCacheDistinctSubjectsDoNotShareFlights(t *testing.T) {
	cache := NewCache(cacheConfig{ttl: time.Hour, grace: 10 * time.Minute})

	load := func(context.Context) (CacheState, error) { return CacheState{}, nil }

	for _, id := range []string{"1", "2"} {
		id := id
		v, _, err := cache.GetOrRefresh(context.Background(), "city", id, load,
			func(context.Context) (any, error) { return "city-" + id, nil })
		if err != nil {
			t.Fatalf("GetOrRefresh(%s): %v", id, err)
		}
		if v != "city-"+id {
			t.Fatalf("subject %s got %v", id, v)
		}
	}
}
