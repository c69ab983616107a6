// Package fetch implements cardforge's rate-limited fetch coordinator:
// every outbound call to the upstream card catalog is serialized through a
// single golang.org/x/time/rate.Limiter so no two requests leave less than
// the configured cooldown apart, and every call (success or failure) is
// recorded into a process-wide ring buffer for diagnostics.
//
// Grounded on original_source/magic-proxy-core/src/scryfall/client.rs
// (ScryfallClient, ApiCall, ApiCallType, the LAST_SCRYFALL_CALL global mutex
// pattern) and on the teacher's internal/egress/ratelimit.go, whose
// hand-rolled token bucket is replaced here by rate.Limiter — see
// DESIGN.md for why.
package fetch

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cardforge/cardforge/internal/cferr"
	"github.com/cardforge/cardforge/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxAPIHistory = 100

// CallType classifies one recorded ApiCall.
type CallType string

const (
	NetworkRequest CallType = "network_request"
	CacheHit       CallType = "cache_hit"
	CacheMiss      CallType = "cache_miss"
)

// ApiCall records one outbound request or cache event for diagnostics.
type ApiCall struct {
	URL        string
	Timestamp  time.Time
	StatusCode int
	Success    bool
	Kind       CallType
}

// Fetcher wraps an *http.Client with strict inter-call serialization and a
// bounded history of recent calls.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	log       *zap.Logger
	metrics   *metrics.Registry

	mu      sync.Mutex
	history []ApiCall
}

// New builds a Fetcher with the given cooldown between outbound requests.
func New(cooldown time.Duration, userAgent string, log *zap.Logger, reg *metrics.Registry) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(cooldown), 1),
		userAgent: userAgent,
		log:       log,
		metrics:   reg,
	}
}

// Get issues a rate-limited GET to url, blocking until the cooldown since
// the previous outbound call has elapsed. Every request it sends is
// recorded before returning, success or failure; a call that fails while
// waiting for the limiter or building the request is not recorded. It
// never retries.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, cferr.NetworkErr(err, "waiting for fetch rate limiter")
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, cferr.NetworkErr(err, "building request for %s", url)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		f.record(ApiCall{URL: url, Timestamp: start, StatusCode: 0, Success: false, Kind: NetworkRequest})
		f.observe(false, elapsed)
		f.log.Debug("fetch failed", zap.String("url", url), zap.Error(err))
		return nil, cferr.NetworkErr(err, "fetching %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	f.record(ApiCall{URL: url, Timestamp: start, StatusCode: resp.StatusCode, Success: success, Kind: NetworkRequest})
	f.observe(success, elapsed)
	f.log.Debug("fetch completed", zap.String("url", url), zap.Int("status", resp.StatusCode), zap.Duration("elapsed", elapsed))

	if err != nil {
		return nil, cferr.NetworkErr(err, "reading response body for %s", url)
	}
	if !success {
		return nil, cferr.NetworkErr(nil, "non-2xx response %d for %s", resp.StatusCode, url)
	}
	return body, nil
}

// RecordCacheOperation appends a synthetic ApiCall for a cache hit or miss,
// so diagnostics can distinguish "served from cache" from "went to network"
// without the cache layers depending on Fetcher directly.
func (f *Fetcher) RecordCacheOperation(url string, kind CallType) {
	f.record(ApiCall{URL: url, Timestamp: time.Now(), StatusCode: 200, Success: true, Kind: kind})
}

// History returns a snapshot of the last (up to 100) recorded calls, oldest
// first.
func (f *Fetcher) History() []ApiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ApiCall, len(f.history))
	copy(out, f.history)
	return out
}

// ClearHistory empties the ring buffer.
func (f *Fetcher) ClearHistory() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = nil
}

func (f *Fetcher) record(call ApiCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, call)
	if len(f.history) > maxAPIHistory {
		excess := len(f.history) - maxAPIHistory
		f.history = f.history[excess:]
	}
}

func (f *Fetcher) observe(success bool, elapsed time.Duration) {
	if f.metrics == nil {
		return
	}
	f.metrics.ObserveFetch(success, elapsed)
}
