// Package orchestrator is cardforge's top-level façade: it wires the
// catalogs, caches, resolver, and fetcher into the single pipeline that
// turns decklist text into an ordered sequence of image bytes, and hands
// that sequence to an externally supplied PdfComposer.
//
// Grounded on original_source/magic-proxy-core/src/lib.rs's public
// surface (parse_and_resolve_decklist, resolve_entries_to_cards,
// expand_cards_to_image_urls, generate_pdf_from_entries) and on the
// teacher's habit of keeping a thin top-level package that only wires
// collaborators together, with no business logic of its own.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cardforge/cardforge/internal/cache"
	"github.com/cardforge/cardforge/internal/card"
	"github.com/cardforge/cardforge/internal/catalog"
	"github.com/cardforge/cardforge/internal/cferr"
	"github.com/cardforge/cardforge/internal/decklist"
	"github.com/cardforge/cardforge/internal/fetch"
	"github.com/cardforge/cardforge/internal/imagecache"
	"github.com/cardforge/cardforge/internal/loader"
	"github.com/cardforge/cardforge/internal/resolver"
	"github.com/cardforge/cardforge/internal/searchcache"
	"github.com/cardforge/cardforge/internal/selection"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DecklistEntry is one resolved, face-mode-assigned decklist line.
type DecklistEntry struct {
	Multiple   int
	Name       string
	Set        string
	Lang       string
	FaceMode   card.FaceMode
	SourceLine int
}

// SelectedCard is one decklist entry resolved down to a concrete printing.
type SelectedCard struct {
	Card     card.Card
	Multiple int
	FaceMode card.FaceMode
}

// PdfOptions carries the page/grid parameters a PdfComposer needs; cardforge
// itself is agnostic to their meaning beyond passing them through.
type PdfOptions struct {
	ColumnsPerPage int
	RowsPerPage    int
	PageWidthMM    float64
	PageHeightMM   float64
	MarginMM       float64
}

// PdfComposer is the external collaborator that turns an ordered sequence
// of decoded image bytes into a print-ready byte stream. cardforge only
// specifies what it feeds in.
type PdfComposer interface {
	Compose(ctx context.Context, images [][]byte, options PdfOptions) ([]byte, error)
}

// ProgressFunc receives background-load progress events during
// GeneratePdfFromEntries; it may be nil.
type ProgressFunc func(loader.Progress)

// Orchestrator wires the catalogs, search/image caches, fetcher, and
// resolver into cardforge's single public pipeline.
type Orchestrator struct {
	searchURLTemplate string
	fetcher           *fetch.Fetcher
	names             *catalog.NameCatalog
	sets              *catalog.SetCodeCatalog
	searchCache       *searchcache.Cache
	imageCache        *imagecache.Cache
	log               *zap.Logger

	resolver *resolver.Resolver

	loadMu     sync.Mutex
	lastHandle *loader.Handle
}

// New builds an Orchestrator. searchURLTemplate must contain exactly one
// "%s" placeholder for the encoded card name, matching §6's
// …/cards/search?q=name:"<encoded>"&unique=prints contract.
func New(searchURLTemplate string, fetcher *fetch.Fetcher, names *catalog.NameCatalog, sets *catalog.SetCodeCatalog, searchCache *searchcache.Cache, imageCache *imagecache.Cache, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		searchURLTemplate: searchURLTemplate,
		fetcher:           fetcher,
		names:             names,
		sets:              sets,
		searchCache:       searchCache,
		imageCache:        imageCache,
		log:               log,
	}
}

// EnsureCardLookup makes sure the name catalog, set-code catalog, and
// in-memory resolver index are populated, refreshing from upstream when
// stale or when forceRefresh is set. It supplements lib.rs's lazy,
// first-use catalog initialization with an explicit call orchestrators
// in non-interactive contexts (a CLI, a scheduled job) can invoke eagerly.
func (o *Orchestrator) EnsureCardLookup(ctx context.Context, forceRefresh bool) error {
	if _, err := o.sets.Codes(ctx, forceRefresh); err != nil {
		return err
	}
	names, err := o.names.Names(ctx, forceRefresh)
	if err != nil {
		return err
	}
	o.resolver = resolver.New(names)
	return nil
}

// ParseAndResolveDecklist tokenizes text (§4.G), resolves each parsed
// entry's name against the catalog (§4.F), and applies face-mode rules:
// a Part(1) match forces BackOnly, otherwise the caller's global face mode
// is preserved.
func (o *Orchestrator) ParseAndResolveDecklist(ctx context.Context, text string, globalFaceMode card.FaceMode) ([]DecklistEntry, error) {
	if o.resolver == nil {
		if err := o.EnsureCardLookup(ctx, false); err != nil {
			return nil, err
		}
	}

	var setCodes []string
	if o.sets != nil {
		codes, err := o.sets.Codes(ctx, false)
		if err != nil {
			return nil, err
		}
		setCodes = codes
	}

	parsed := decklist.Parse(text, setCodes)
	entries := make([]DecklistEntry, 0, len(parsed))
	for _, p := range parsed {
		entry := DecklistEntry{
			Multiple:   p.Multiple,
			Name:       p.Name,
			Set:        p.Set,
			Lang:       p.Lang,
			FaceMode:   globalFaceMode,
			SourceLine: p.SourceLine,
		}

		if match, ok := o.resolver.Find(p.Name); ok {
			entry.Name = match.CanonicalName
			if !match.Mode.Full && match.Mode.Part == 1 {
				entry.FaceMode = card.BackOnly
			}
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

// ResolveEntriesToCards searches each entry's name and applies the
// selection predicate (§4.J) to pick a single printing. Entries whose
// search returns no cards are skipped.
func (o *Orchestrator) ResolveEntriesToCards(ctx context.Context, entries []DecklistEntry) ([]SelectedCard, error) {
	selected := make([]SelectedCard, 0, len(entries))
	for _, entry := range entries {
		result, err := o.getOrFetchSearchResults(ctx, entry.Name)
		if err != nil {
			return nil, err
		}
		if len(result.Cards) == 0 {
			continue
		}
		idx, _ := selection.Pick(result.Cards, entry.Name, entry.Set, entry.Lang)
		selected = append(selected, SelectedCard{Card: result.Cards[idx], Multiple: entry.Multiple, FaceMode: entry.FaceMode})
	}
	return selected, nil
}

// ExpandCardsToImageUrls flattens selected cards into the exact image
// sequence a PdfComposer must render, honoring quantity and face mode, in
// the order cards were provided.
func ExpandCardsToImageUrls(cards []SelectedCard) []string {
	var urls []string
	for _, sc := range cards {
		perCopy := sc.Card.ImagesForFaceMode(sc.FaceMode)
		for i := 0; i < sc.Multiple; i++ {
			urls = append(urls, perCopy...)
		}
	}
	return urls
}

// GeneratePdfFromEntries runs the full pipeline: resolve entries to
// printings, expand to an image-URL sequence, ensure every image is
// cached, and hand the ordered bytes to composer. Unlike background
// loading, an image fetch failure here aborts the job.
func (o *Orchestrator) GeneratePdfFromEntries(ctx context.Context, entries []DecklistEntry, options PdfOptions, composer PdfComposer, progress ProgressFunc) ([]byte, error) {
	selected, err := o.ResolveEntriesToCards(ctx, entries)
	if err != nil {
		return nil, err
	}

	urls := ExpandCardsToImageUrls(selected)
	images := make([][]byte, 0, len(urls))
	for _, url := range urls {
		data, err := o.getOrFetchImageBytes(ctx, url)
		if err != nil {
			return nil, err
		}
		images = append(images, data)
	}

	if progress != nil {
		progress(loader.Progress{Phase: loader.PhaseCompleted, TotalEntries: len(entries), SelectedLoaded: len(selected)})
	}

	return composer.Compose(ctx, images, options)
}

// StartBackgroundLoad launches the two-phase cache warm-up for entries and
// returns a handle immediately. The handle also becomes the target of
// CurrentProgress, so a diagnostics client can watch it stream.
func (o *Orchestrator) StartBackgroundLoad(ctx context.Context, entries []DecklistEntry) *loader.Handle {
	loaderEntries := make([]loader.Entry, len(entries))
	for i, e := range entries {
		loaderEntries[i] = loader.Entry{Name: e.Name, Set: e.Set, Lang: e.Lang, FaceMode: e.FaceMode}
	}
	handle := loader.Start(ctx, loaderEntries, o.getOrFetchSearchResults, func(ctx context.Context, url string) error {
		_, err := o.getOrFetchImageBytes(ctx, url)
		return err
	}, o.log)

	o.loadMu.Lock()
	o.lastHandle = handle
	o.loadMu.Unlock()

	return handle
}

// CurrentProgress reports the most recent background load's latest
// progress snapshot, for diag's websocket stream. It reports false if no
// background load has started yet, and also when no new snapshot has
// arrived since the previous call (the last snapshot seen is returned then).
func (o *Orchestrator) CurrentProgress() (loader.Progress, bool) {
	o.loadMu.Lock()
	handle := o.lastHandle
	o.loadMu.Unlock()
	if handle == nil {
		return loader.Progress{}, false
	}
	return handle.TryGetProgress()
}

// ImageCacheStats reports the image cache's current size for diagnostics.
func (o *Orchestrator) ImageCacheStats() cache.Stats { return o.imageCache.Stats() }

// SearchCacheStats reports the search cache's current size for diagnostics.
func (o *Orchestrator) SearchCacheStats() cache.Stats { return o.searchCache.Stats() }

// NameCatalogInfo reports the name catalog's on-disk freshness for
// diagnostics, without triggering a refresh.
func (o *Orchestrator) NameCatalogInfo() catalog.Info { return o.names.Info() }

// SetCodeCatalogInfo reports the set-code catalog's on-disk freshness for
// diagnostics, without triggering a refresh.
func (o *Orchestrator) SetCodeCatalogInfo() catalog.Info { return o.sets.Info() }

// SaveCaches flushes every cache to disk; callers run it once at process
// exit.
func (o *Orchestrator) SaveCaches() error {
	if err := o.searchCache.Flush(); err != nil {
		return err
	}
	return o.imageCache.Flush()
}

func (o *Orchestrator) getOrFetchSearchResults(ctx context.Context, name string) (card.SearchResult, error) {
	if result, ok := o.searchCache.Get(name); ok {
		o.fetcher.RecordCacheOperation(name, fetch.CacheHit)
		return result, nil
	}
	o.fetcher.RecordCacheOperation(name, fetch.CacheMiss)

	url := searchURL(o.searchURLTemplate, name)
	body, err := o.fetcher.Get(ctx, url)
	if err != nil {
		return card.SearchResult{}, err
	}

	result, err := parseSearchResponse(body)
	if err != nil {
		return card.SearchResult{}, err
	}
	if err := o.searchCache.Put(name, result); err != nil {
		return card.SearchResult{}, err
	}
	return result, nil
}

func (o *Orchestrator) getOrFetchImageBytes(ctx context.Context, url string) ([]byte, error) {
	if data, ok := o.imageCache.Get(url); ok {
		o.fetcher.RecordCacheOperation(url, fetch.CacheHit)
		return data, nil
	}
	o.fetcher.RecordCacheOperation(url, fetch.CacheMiss)

	data, err := o.fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := o.imageCache.Put(url, data); err != nil {
		return nil, err
	}
	return data, nil
}

func searchURL(template, name string) string {
	return fmt.Sprintf(template, encodeCardName(name))
}

// encodeCardName applies §6's query-encoding rule: spaces become '+', and
// "//" (the double-faced separator) is removed entirely.
func encodeCardName(name string) string {
	withoutSlashes := strings.ReplaceAll(name, "//", "")
	return strings.ReplaceAll(withoutSlashes, " ", "+")
}

// parseSearchResponse decodes a §6 /cards/search response into a
// SearchResult, dropping cards whose images are invalid per §4.I rather
// than surfacing them as errors (§7).
func parseSearchResponse(body []byte) (card.SearchResult, error) {
	result := gjson.ParseBytes(body)
	if !result.Get("data").IsArray() {
		return card.SearchResult{}, cferr.SerializationErr(nil, "search response missing data array")
	}

	var cards []card.Card
	for _, raw := range result.Get("data").Array() {
		c, err := card.FromScryfallObject(raw.Raw)
		if err != nil {
			continue
		}
		cards = append(cards, c)
	}

	return card.SearchResult{Cards: cards, TotalFound: int(result.Get("total_cards").Int())}, nil
}
