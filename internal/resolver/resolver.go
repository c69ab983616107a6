// Package resolver implements cardforge's fuzzy name resolver: a
// trigram-indexed approximate lookup over the canonical name catalog, aware
// of `//`-separated double-faced and split card names.
//
// No direct line-for-line grounding exists in original_source (the
// equivalent lookup.rs was not retrieved into the pack); the index
// structure follows spec.md §4.F directly, built in the teacher's style —
// a single construction pass from a name list, a read-only query surface,
// and an LRU memoization layer (github.com/hashicorp/golang-lru/v2) in
// front of it, matching how the teacher layers its memcache in front of
// expensive lookups. Trigram buckets are keyed by a 64-bit
// github.com/cespare/xxhash/v2 digest rather than the raw 3-byte string, so
// the bucket map never retains the grams themselves.
package resolver

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MatchMode describes which part of a canonical name a query matched.
type MatchMode struct {
	Full bool
	Part int // valid only when Full is false
}

// FullMatch reports the match was against the complete canonical name.
var FullMatch = MatchMode{Full: true}

// PartMatch reports the match was against the i-th `//`-separated
// component of the canonical name.
func PartMatch(i int) MatchMode { return MatchMode{Full: false, Part: i} }

// Match is the outcome of a successful Find.
type Match struct {
	CanonicalName string
	Mode          MatchMode
}

const (
	similarityThreshold = 0.32
	memoCacheSize       = 512
)

type key struct {
	canonicalName string
	mode          MatchMode
	insertOrder   int
}

// Resolver is a trigram-indexed fuzzy name resolver, constructed once from
// a name catalog and queried many times.
type Resolver struct {
	keys  []key
	grams map[uint64][]int // xxhash(trigram) -> indices into keys
	memo  *lru.Cache[string, *Match]
}

// New builds a Resolver from canonicalNames (already lowercased, as
// produced by internal/catalog). For every name, one logical key is
// emitted per `//`-separated component plus one for the full name.
func New(canonicalNames []string) *Resolver {
	r := &Resolver{grams: make(map[uint64][]int)}
	memo, _ := lru.New[string, *Match](memoCacheSize)
	r.memo = memo

	order := 0
	for _, name := range canonicalNames {
		r.addKey(key{canonicalName: name, mode: FullMatch, insertOrder: order})
		order++

		parts := strings.Split(name, "//")
		if len(parts) > 1 {
			for i, part := range parts {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				r.addKey(key{canonicalName: name, mode: PartMatch(i), insertOrder: order})
				order++
			}
		}
	}
	return r
}

func (r *Resolver) addKey(k key) {
	idx := len(r.keys)
	r.keys = append(r.keys, k)
	text := keyText(k)
	for _, g := range trigrams(text) {
		h := gramHash(g)
		r.grams[h] = append(r.grams[h], idx)
	}
}

// gramHash hashes a trigram into its bucket key.
func gramHash(g string) uint64 {
	return xxhash.Sum64String(g)
}

func keyText(k key) string {
	if k.mode.Full {
		return k.canonicalName
	}
	parts := strings.Split(k.canonicalName, "//")
	if k.mode.Part < len(parts) {
		return strings.TrimSpace(parts[k.mode.Part])
	}
	return k.canonicalName
}

// trigrams returns the set of 3-character n-grams of s, padded with a
// sentinel so short strings still produce at least one gram.
func trigrams(s string) []string {
	padded := "  " + s + "  "
	if len(padded) < 3 {
		return []string{padded}
	}
	seen := make(map[string]bool)
	var out []string
	for i := 0; i+3 <= len(padded); i++ {
		g := padded[i : i+3]
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}

// Find returns the best match for query by trigram similarity, or false if
// no candidate meets the similarity threshold. Results are memoized.
func (r *Resolver) Find(query string) (Match, bool) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return Match{}, false
	}
	if cached, ok := r.memo.Get(normalized); ok {
		if cached == nil {
			return Match{}, false
		}
		return *cached, true
	}

	candidates := r.candidateIndices(normalized)
	queryGrams := trigrams(normalized)

	bestScore := -1.0
	bestIdx := -1
	bestOrder := int(^uint(0) >> 1)
	for idx := range candidates {
		k := r.keys[idx]
		score := jaccard(queryGrams, trigrams(keyText(k)))
		if score > bestScore || (score == bestScore && k.insertOrder < bestOrder) {
			bestScore = score
			bestIdx = idx
			bestOrder = k.insertOrder
		}
	}

	if bestIdx == -1 || bestScore < similarityThreshold {
		r.memo.Add(normalized, nil)
		return Match{}, false
	}

	m := Match{CanonicalName: r.keys[bestIdx].canonicalName, Mode: r.keys[bestIdx].mode}
	r.memo.Add(normalized, &m)
	return m, true
}

func (r *Resolver) candidateIndices(normalized string) map[int]struct{} {
	candidates := make(map[int]struct{})
	for _, g := range trigrams(normalized) {
		for _, idx := range r.grams[gramHash(g)] {
			candidates[idx] = struct{}{}
		}
	}
	return candidates
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, g := range a {
		set[g] = true
	}
	intersection := 0
	union := len(set)
	for _, g := range b {
		if set[g] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
