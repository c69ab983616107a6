// Package loader runs the two-phase background image warm-up: first the
// selected printing for every decklist entry, then every alternative
// printing's front image. It never blocks its caller and reports progress
// on a channel the caller polls or drains.
//
// Grounded on original_source/magic-proxy-core/src/background_loading.rs:
// the same two phases, the same progress event shape, and the same
// cancel-at-iteration-boundary contract, translated from a tokio task +
// CancellationToken into a goroutine + context.CancelFunc, matching how
// the teacher structures its own background workers.
package loader

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cardforge/cardforge/internal/card"
	"github.com/cardforge/cardforge/internal/selection"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Phase identifies a stage of the background load.
type Phase string

const (
	PhaseSelected     Phase = "selected"
	PhaseAlternatives Phase = "alternatives"
	PhaseCompleted    Phase = "completed"
)

// Entry is one resolved decklist line ready for image loading.
type Entry struct {
	Name     string
	Set      string
	Lang     string
	FaceMode card.FaceMode
}

// Progress is one snapshot of the loader's advancement through its two
// phases.
type Progress struct {
	Phase               Phase
	CurrentEntry        int
	TotalEntries        int
	SelectedLoaded      int
	AlternativesLoaded  int
	TotalAlternatives   int
	Errors              []string
}

// SearchFetcher resolves a card name to a SearchResult, consulting the
// search cache before falling back to the network.
type SearchFetcher func(ctx context.Context, name string) (card.SearchResult, error)

// ImageFetcher ensures url's bytes are present in the image cache,
// fetching from the network on a miss.
type ImageFetcher func(ctx context.Context, url string) error

// Handle lets a caller observe and control one in-flight background load.
type Handle struct {
	runID  string
	cancel context.CancelFunc
	done   chan struct{}
	result atomic.Value // error

	mu       sync.Mutex
	progress Progress
	progressCh chan Progress
}

// RunID returns the uuid correlating this load's log lines.
func (h *Handle) RunID() string { return h.runID }

// TryGetProgress returns the most recently coalesced progress snapshot,
// draining the channel without blocking.
func (h *Handle) TryGetProgress() (Progress, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	latest := h.progress
	drained := false
	for {
		select {
		case p, ok := <-h.progressCh:
			if !ok {
				return latest, drained
			}
			latest = p
			h.progress = p
			drained = true
		default:
			return latest, drained
		}
	}
}

// Cancel requests termination at the next iteration boundary. It never
// blocks and does not wait for the worker to observe the request.
func (h *Handle) Cancel() { h.cancel() }

// IsFinished reports whether the worker goroutine has exited.
func (h *Handle) IsFinished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the load finishes (completed or cancelled). Per-entry
// failures are reported in Progress.Errors rather than returned here, and
// cancellation is not an error; the worker stores no error in the handle,
// so Wait returns nil.
func (h *Handle) Wait() error {
	<-h.done
	if err, ok := h.result.Load().(error); ok {
		return err
	}
	return nil
}

// Start launches the two-phase background load for entries on a new
// goroutine and returns immediately with a Handle.
func Start(ctx context.Context, entries []Entry, searchFetcher SearchFetcher, imageFetcher ImageFetcher, log *zap.Logger) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		runID:      uuid.NewString(),
		cancel:     cancel,
		done:       make(chan struct{}),
		progressCh: make(chan Progress, 64),
	}
	log = log.With(zap.String("run_id", h.runID))

	go func() {
		defer close(h.done)
		run(runCtx, entries, searchFetcher, imageFetcher, h.progressCh, log)
	}()

	return h
}

func run(ctx context.Context, entries []Entry, searchFetcher SearchFetcher, imageFetcher ImageFetcher, progressCh chan<- Progress, log *zap.Logger) {
	defer close(progressCh)

	selectedLoaded := 0
	alternativesLoaded := 0
	totalAlternatives := 0
	var errs []string

	selectedIndex := make([]int, len(entries))
	searchResults := make([]card.SearchResult, len(entries))

	emit(progressCh, Progress{Phase: PhaseSelected, TotalEntries: len(entries), Errors: cloneErrs(errs)})

	log.Debug("starting selected phase", zap.Int("entries", len(entries)))
	for i, entry := range entries {
		if ctx.Err() != nil {
			log.Debug("cancelled during selected phase", zap.Int("entry", i))
			return
		}

		result, err := searchFetcher(ctx, entry.Name)
		if err != nil {
			errs = append(errs, "search failed for '"+entry.Name+"': "+err.Error())
			emit(progressCh, Progress{Phase: PhaseSelected, CurrentEntry: i + 1, TotalEntries: len(entries), SelectedLoaded: selectedLoaded, TotalAlternatives: totalAlternatives, Errors: cloneErrs(errs)})
			continue
		}
		searchResults[i] = result

		idx, ok := selection.Pick(result.Cards, entry.Name, entry.Set, entry.Lang)
		selectedIndex[i] = idx
		if !ok {
			errs = append(errs, "no suitable printing found for '"+entry.Name+"'")
			emit(progressCh, Progress{Phase: PhaseSelected, CurrentEntry: i + 1, TotalEntries: len(entries), SelectedLoaded: selectedLoaded, TotalAlternatives: totalAlternatives, Errors: cloneErrs(errs)})
			continue
		}

		totalAlternatives += max(len(result.Cards)-1, 0)
		selected := result.Cards[idx]
		for _, url := range selected.ImagesForFaceMode(entry.FaceMode) {
			if err := imageFetcher(ctx, url); err != nil {
				errs = append(errs, "failed to cache "+url+": "+err.Error())
			}
		}
		selectedLoaded++

		emit(progressCh, Progress{Phase: PhaseSelected, CurrentEntry: i + 1, TotalEntries: len(entries), SelectedLoaded: selectedLoaded, TotalAlternatives: totalAlternatives, Errors: cloneErrs(errs)})
	}

	log.Debug("selected phase complete, starting alternatives phase", zap.Int("total_alternatives", totalAlternatives))
	emit(progressCh, Progress{Phase: PhaseAlternatives, CurrentEntry: len(entries), TotalEntries: len(entries), SelectedLoaded: selectedLoaded, TotalAlternatives: totalAlternatives, Errors: cloneErrs(errs)})

	for i, entry := range entries {
		if ctx.Err() != nil {
			log.Debug("cancelled during alternatives phase", zap.Int("entry", i))
			return
		}
		result := searchResults[i]
		if len(result.Cards) == 0 {
			continue
		}
		for cardIdx, c := range result.Cards {
			if cardIdx == selectedIndex[i] {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			if err := imageFetcher(ctx, c.FrontImageURL); err != nil {
				errs = append(errs, "failed to cache alternative "+c.FrontImageURL+": "+err.Error())
			}
			alternativesLoaded++
			emit(progressCh, Progress{Phase: PhaseAlternatives, CurrentEntry: len(entries), TotalEntries: len(entries), SelectedLoaded: selectedLoaded, AlternativesLoaded: alternativesLoaded, TotalAlternatives: totalAlternatives, Errors: cloneErrs(errs)})
		}
	}

	log.Debug("background loading completed", zap.Int("selected", selectedLoaded), zap.Int("alternatives", alternativesLoaded))
	emit(progressCh, Progress{Phase: PhaseCompleted, CurrentEntry: len(entries), TotalEntries: len(entries), SelectedLoaded: selectedLoaded, AlternativesLoaded: alternativesLoaded, TotalAlternatives: totalAlternatives, Errors: cloneErrs(errs)})
}

// emit sends progress without blocking forever if the consumer vanished:
// the channel is generously buffered, and a full buffer just drops the
// oldest-pending update in favor of the newest.
func emit(ch chan<- Progress, p Progress) {
	select {
	case ch <- p:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- p:
		default:
		}
	}
}

func cloneErrs(errs []string) []string {
	out := make([]string, len(errs))
	copy(out, errs)
	return out
}
