package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cardforge/cardforge/internal/catalog"
	"github.com/cardforge/cardforge/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameCatalogFetchesAndCachesToDisk(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":["Lightning Bolt","Black Lotus"]}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	f := fetch.New(time.Millisecond, "cardforge-test/1.0", nil, nil)
	cat := catalog.NewNameCatalog(dir, server.URL, 24*time.Hour, f, nil)

	names, err := cat.Names(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"black lotus", "lightning bolt"}, names)
	assert.Equal(t, 1, calls)

	// second call within TTL should hit disk, not upstream
	_, err = cat.Names(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "cached read should avoid a second upstream call")
}

func TestNameCatalogForceRefreshBypassesCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"data":["Shock"]}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	f := fetch.New(time.Millisecond, "cardforge-test/1.0", nil, nil)
	cat := catalog.NewNameCatalog(dir, server.URL, 24*time.Hour, f, nil)

	_, err := cat.Names(context.Background(), false)
	require.NoError(t, err)
	_, err = cat.Names(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "forceRefresh should trigger a second upstream call")
}

func TestNameCatalogExpiredTTLRefetches(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"data":["Shock"]}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	f := fetch.New(time.Millisecond, "cardforge-test/1.0", nil, nil)
	cat := catalog.NewNameCatalog(dir, server.URL, time.Nanosecond, f, nil)

	_, err := cat.Names(context.Background(), false)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = cat.Names(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "expired TTL should trigger a refetch")
}

func TestSetCodeCatalogExtractsCodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"code":"MH3"},{"code":"otj"}]}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	f := fetch.New(time.Millisecond, "cardforge-test/1.0", nil, nil)
	cat := catalog.NewSetCodeCatalog(dir, server.URL, 24*time.Hour, f, nil)

	codes, err := cat.Codes(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"mh3", "otj"}, codes)
}

func TestCatalogInfoReflectsDiskStateWithoutRefreshing(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"data":["Shock"]}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	f := fetch.New(time.Millisecond, "cardforge-test/1.0", nil, nil)
	cat := catalog.NewNameCatalog(dir, server.URL, 24*time.Hour, f, nil)

	require.Equal(t, 0, cat.Info().Count, "expected empty info before any fetch")

	_, err := cat.Names(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	info := cat.Info()
	assert.Equal(t, 1, info.Count)
	assert.False(t, info.Stale)
}
