package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cardforge/cardforge/internal/fetch"
)

func TestRateLimitGapBetweenConcurrentCalls(t *testing.T) {
	// Seed scenario 4: fire 5 concurrent calls (all cache misses to
	// distinct URLs); observed outbound timestamps must differ by at least
	// the configured cooldown, pairwise, in emission order.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := fetch.New(100*time.Millisecond, "cardforge-test/1.0", nil, nil)

	var wg sync.WaitGroup
	timestamps := make([]time.Time, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := time.Now()
			_, err := f.Get(context.Background(), server.URL)
			if err != nil {
				t.Errorf("unexpected fetch error: %v", err)
			}
			timestamps[i] = start
		}(i)
	}
	wg.Wait()

	history := f.History()
	if len(history) != 5 {
		t.Fatalf("expected 5 recorded calls, got %d", len(history))
	}

	for i := 1; i < len(history); i++ {
		gap := history[i].Timestamp.Sub(history[i-1].Timestamp)
		if gap < 90*time.Millisecond { // small tolerance for scheduler jitter
			t.Fatalf("expected >=100ms gap between calls %d and %d, got %v", i-1, i, gap)
		}
	}
}

func TestGetRecordsFailureOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := fetch.New(time.Millisecond, "cardforge-test/1.0", nil, nil)
	_, err := f.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}

	history := f.History()
	if len(history) != 1 || history[0].Success {
		t.Fatalf("expected one failed recorded call, got %+v", history)
	}
}

func TestHistoryTrimsToLast100(t *testing.T) {
	f := fetch.New(time.Microsecond, "cardforge-test/1.0", nil, nil)
	for i := 0; i < 150; i++ {
		f.RecordCacheOperation("https://example.test/x", fetch.CacheHit)
	}
	if len(f.History()) != 100 {
		t.Fatalf("expected history capped at 100, got %d", len(f.History()))
	}
}
