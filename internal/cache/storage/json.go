package storage

import (
	"encoding/json"
	"os"
	"time"

	"github.com/cardforge/cardforge/internal/cache"
	"github.com/cardforge/cardforge/internal/card"
	"github.com/cardforge/cardforge/internal/cferr"
)

type jsonEnvelope struct {
	Entries     map[string]jsonEntry `json:"entries"`
	LastUpdated int64                `json:"lastUpdated"`
	Metadata    jsonEnvelopeMeta     `json:"metadata"`
}

type jsonEnvelopeMeta struct {
	Version   int    `json:"version"`
	Type      string `json:"type"`
	CreatedAt int64  `json:"createdAt"`
}

type jsonEntry struct {
	Value          card.SearchResult `json:"value"`
	CreatedAt      int64             `json:"createdAt"`
	LastAccessedAt int64             `json:"lastAccessedAt"`
}

// JSONStorage persists a map[string]card.SearchResult as a single JSON
// document, grounded on
// original_source/magic-proxy-core/src/search_results_cache.rs's
// SearchResultsCacheData envelope.
type JSONStorage struct {
	path         string
	sizeEstimate int64
	createdAt    int64
}

// NewJSONStorage returns a JSONStorage writing to path.
func NewJSONStorage(path string, sizeEstimate int64) *JSONStorage {
	return &JSONStorage{path: path, sizeEstimate: sizeEstimate, createdAt: time.Now().UnixNano()}
}

func (s *JSONStorage) Load() (map[string]cache.Entry[card.SearchResult], error) {
	out := make(map[string]cache.Entry[card.SearchResult])

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, cferr.IoErr(err, "reading search cache %s", s.path)
	}

	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return out, cferr.SerializationErr(err, "parsing search cache %s", s.path)
	}

	for key, e := range env.Entries {
		out[key] = cache.Entry[card.SearchResult]{
			Value:          e.Value,
			CreatedAt:      e.CreatedAt,
			LastAccessedAt: e.LastAccessedAt,
		}
	}
	return out, nil
}

func (s *JSONStorage) Save(entries map[string]cache.Entry[card.SearchResult]) error {
	env := jsonEnvelope{
		Entries:     make(map[string]jsonEntry, len(entries)),
		LastUpdated: time.Now().UnixNano(),
		Metadata: jsonEnvelopeMeta{
			Version:   1,
			Type:      "SearchResults",
			CreatedAt: s.createdAt,
		},
	}
	for key, e := range entries {
		env.Entries[key] = jsonEntry{Value: e.Value, CreatedAt: e.CreatedAt, LastAccessedAt: e.LastAccessedAt}
	}

	buf, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return cferr.SerializationErr(err, "encoding search cache")
	}
	if err := os.WriteFile(s.path, buf, 0o644); err != nil {
		return cferr.IoErr(err, "writing search cache %s", s.path)
	}
	return nil
}

func (s *JSONStorage) EstimateSize(_ string, _ card.SearchResult) int64 { return s.sizeEstimate }

func (s *JSONStorage) SizeEstimate() int64 { return s.sizeEstimate }

// OnEvict is a no-op: removal is reflected at the next Save.
func (s *JSONStorage) OnEvict(_ string, _ card.SearchResult) error { return nil }

func (s *JSONStorage) Name() string { return "JSONStorage" }
