// Package catalog implements cardforge's two disk-persistent catalogs: the
// canonical card-name index and the set-code index, each with a 24-hour
// freshness window.
//
// Grounded on original_source/magic-proxy-core/src/card_name_cache.rs and
// set_codes_cache.rs: the {cachedAt, data} envelope (with the nested
// per-catalog data shape each file persists: card_names.json's {object,
// uri, total_values, date, data: […]} and set_codes.json's {date, codes:
// […]}), the force-refresh bypass, and "corrupt file or read failure is a
// miss, never fatal".
package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cardforge/cardforge/internal/cferr"
	"github.com/cardforge/cardforge/internal/fetch"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Info is a diagnostic snapshot of a catalog's freshness and size.
type Info struct {
	CachedAt time.Time
	Count    int
	Stale    bool
}

// envelope is the outer {cachedAt, data} shape shared by both catalog
// files; the inner Data shape differs per catalog and is wrapped/unwrapped
// by baseCatalog's wrapData/unwrapData functions.
type envelope struct {
	CachedAt int64           `json:"cachedAt"`
	Data     json.RawMessage `json:"data"`
}

// baseCatalog holds the logic shared by NameCatalog and SetCodeCatalog: a
// single JSON file with a {cachedAt, data} envelope and a TTL-gated refresh
// against an upstream endpoint.
type baseCatalog struct {
	path        string
	upstreamURL string
	ttl         time.Duration
	fetcher     *fetch.Fetcher
	log         *zap.Logger
	extract     func(body []byte) ([]string, error)
	postproc    func([]string) []string
	wrapData    func(data []string, cachedAt time.Time) (json.RawMessage, error)
	unwrapData  func(raw json.RawMessage) ([]string, error)
}

func (c *baseCatalog) get(ctx context.Context, forceRefresh bool) ([]string, time.Time, error) {
	if !forceRefresh {
		if data, cachedAt, ok := c.loadFromDisk(); ok {
			if time.Since(cachedAt) < c.ttl {
				c.log.Debug("catalog cache hit", zap.String("path", c.path))
				return data, cachedAt, nil
			}
			c.log.Debug("catalog cache expired", zap.String("path", c.path))
		}
	}

	body, err := c.fetcher.Get(ctx, c.upstreamURL)
	if err != nil {
		return nil, time.Time{}, err
	}
	raw, err := c.extract(body)
	if err != nil {
		return nil, time.Time{}, err
	}
	data := c.postproc(raw)

	cachedAt := time.Now()
	if err := c.saveToDisk(data, cachedAt); err != nil {
		return nil, time.Time{}, err
	}
	return data, cachedAt, nil
}

func (c *baseCatalog) loadFromDisk() ([]string, time.Time, bool) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil, time.Time{}, false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Corrupt cache file: treated as a miss, never fatal.
		c.log.Warn("catalog cache file is corrupt, treating as miss", zap.String("path", c.path), zap.Error(err))
		return nil, time.Time{}, false
	}
	data, err := c.unwrapData(env.Data)
	if err != nil {
		c.log.Warn("catalog cache file has an unexpected data shape, treating as miss", zap.String("path", c.path), zap.Error(err))
		return nil, time.Time{}, false
	}
	return data, time.Unix(0, env.CachedAt), true
}

func (c *baseCatalog) saveToDisk(data []string, cachedAt time.Time) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return cferr.IoErr(err, "creating catalog cache directory for %s", c.path)
	}
	inner, err := c.wrapData(data, cachedAt)
	if err != nil {
		return cferr.SerializationErr(err, "encoding catalog cache data %s", c.path)
	}
	env := envelope{CachedAt: cachedAt.UnixNano(), Data: inner}
	buf, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return cferr.SerializationErr(err, "encoding catalog cache %s", c.path)
	}
	if err := os.WriteFile(c.path, buf, 0o644); err != nil {
		return cferr.IoErr(err, "writing catalog cache %s", c.path)
	}
	return nil
}

func (c *baseCatalog) info() Info {
	data, cachedAt, ok := c.loadFromDisk()
	if !ok {
		return Info{}
	}
	return Info{CachedAt: cachedAt, Count: len(data), Stale: time.Since(cachedAt) >= c.ttl}
}

// NameCatalog is the canonical card-name index, lowercased and sorted.
type NameCatalog struct {
	base *baseCatalog
}

// NewNameCatalog returns a NameCatalog backed by cacheDir/card_names.json.
func NewNameCatalog(cacheDir, upstreamURL string, ttl time.Duration, fetcher *fetch.Fetcher, log *zap.Logger) *NameCatalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &NameCatalog{base: &baseCatalog{
		path:        filepath.Join(cacheDir, "card_names.json"),
		upstreamURL: upstreamURL,
		ttl:         ttl,
		fetcher:     fetcher,
		log:         log,
		extract:     extractCardNames,
		postproc:    lowercaseSorted,
		wrapData:    wrapNameCacheData,
		unwrapData:  unwrapNameCacheData,
	}}
}

func extractCardNames(body []byte) ([]string, error) {
	result := gjson.ParseBytes(body)
	if !result.Get("data").IsArray() {
		return nil, cferr.SerializationErr(nil, "card-names response missing data array")
	}
	names := make([]string, 0, len(result.Get("data").Array()))
	for _, n := range result.Get("data").Array() {
		names = append(names, n.String())
	}
	return names, nil
}

// nameCacheData mirrors card_names.json's persisted nested shape: the
// upstream envelope fields alongside the resolved name list.
type nameCacheData struct {
	Object      string   `json:"object"`
	URI         string   `json:"uri"`
	TotalValues int      `json:"total_values"`
	Date        string   `json:"date"`
	Data        []string `json:"data"`
}

func wrapNameCacheData(data []string, cachedAt time.Time) (json.RawMessage, error) {
	inner := nameCacheData{
		Object:      "catalog",
		URI:         "/catalog/card-names",
		TotalValues: len(data),
		Date:        cachedAt.UTC().Format(time.RFC3339),
		Data:        data,
	}
	return json.Marshal(inner)
}

func unwrapNameCacheData(raw json.RawMessage) ([]string, error) {
	var inner nameCacheData
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, err
	}
	return inner.Data, nil
}

func lowercaseSorted(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	sort.Strings(out)
	return out
}

// Names returns the catalog's canonical names, refreshing from upstream if
// stale or absent (or if forceRefresh is set).
func (c *NameCatalog) Names(ctx context.Context, forceRefresh bool) ([]string, error) {
	names, _, err := c.base.get(ctx, forceRefresh)
	return names, err
}

// Info returns a diagnostic snapshot without triggering a refresh.
func (c *NameCatalog) Info() Info { return c.base.info() }

// SetCodeCatalog is the set-code index, lowercased and sorted.
type SetCodeCatalog struct {
	base *baseCatalog
}

// NewSetCodeCatalog returns a SetCodeCatalog backed by cacheDir/set_codes.json.
func NewSetCodeCatalog(cacheDir, upstreamURL string, ttl time.Duration, fetcher *fetch.Fetcher, log *zap.Logger) *SetCodeCatalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &SetCodeCatalog{base: &baseCatalog{
		path:        filepath.Join(cacheDir, "set_codes.json"),
		upstreamURL: upstreamURL,
		ttl:         ttl,
		fetcher:     fetcher,
		log:         log,
		extract:     extractSetCodes,
		postproc:    lowercaseSorted,
		wrapData:    wrapSetCodeCacheData,
		unwrapData:  unwrapSetCodeCacheData,
	}}
}

func extractSetCodes(body []byte) ([]string, error) {
	result := gjson.ParseBytes(body)
	if !result.Get("data").IsArray() {
		return nil, cferr.SerializationErr(nil, "sets response missing data array")
	}
	codes := make([]string, 0, len(result.Get("data").Array()))
	for _, s := range result.Get("data").Array() {
		code := s.Get("code").String()
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

// setCodeCacheData mirrors set_codes.json's persisted nested shape.
type setCodeCacheData struct {
	Date  string   `json:"date"`
	Codes []string `json:"codes"`
}

func wrapSetCodeCacheData(data []string, cachedAt time.Time) (json.RawMessage, error) {
	inner := setCodeCacheData{Date: cachedAt.UTC().Format(time.RFC3339), Codes: data}
	return json.Marshal(inner)
}

func unwrapSetCodeCacheData(raw json.RawMessage) ([]string, error) {
	var inner setCodeCacheData
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, err
	}
	return inner.Codes, nil
}

// Codes returns the catalog's set codes, refreshing from upstream if stale
// or absent (or if forceRefresh is set).
func (c *SetCodeCatalog) Codes(ctx context.Context, forceRefresh bool) ([]string, error) {
	codes, _, err := c.base.get(ctx, forceRefresh)
	return codes, err
}

// Info returns a diagnostic snapshot without triggering a refresh.
func (c *SetCodeCatalog) Info() Info { return c.base.info() }
