package loader_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cardforge/cardforge/internal/card"
	"github.com/cardforge/cardforge/internal/loader"
)

func searchResultFor(name string) card.SearchResult {
	return card.SearchResult{
		Cards: []card.Card{
			{Name: name, Set: "lea", Language: "en", FrontImageURL: "https://img/" + name + "/lea"},
			{Name: name, Set: "vma", Language: "en", FrontImageURL: "https://img/" + name + "/vma"},
		},
		TotalFound: 2,
	}
}

func TestBackgroundLoadReachesCompletedPhase(t *testing.T) {
	entries := []loader.Entry{{Name: "lightning bolt", FaceMode: card.FrontOnly}}
	search := func(_ context.Context, name string) (card.SearchResult, error) {
		return searchResultFor(name), nil
	}
	var imagesLoaded int
	image := func(_ context.Context, url string) error {
		imagesLoaded++
		return nil
	}

	h := loader.Start(context.Background(), entries, search, image, nil)
	if err := h.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	progress, ok := h.TryGetProgress()
	if !ok {
		t.Fatal("expected at least one progress update to have been drained")
	}
	if progress.Phase != loader.PhaseCompleted {
		t.Fatalf("expected final phase Completed, got %v", progress.Phase)
	}
	if progress.SelectedLoaded != 1 {
		t.Fatalf("expected 1 selected load, got %d", progress.SelectedLoaded)
	}
	if progress.AlternativesLoaded != 1 {
		t.Fatalf("expected 1 alternative load (2 printings - 1 selected), got %d", progress.AlternativesLoaded)
	}
	if imagesLoaded == 0 {
		t.Fatal("expected at least one image fetch")
	}
}

func searchResultForPrintings(name string, sets []string) card.SearchResult {
	cards := make([]card.Card, len(sets))
	for i, set := range sets {
		cards[i] = card.Card{Name: name, Set: set, Language: "en", FrontImageURL: "https://img/" + name + "/" + set}
	}
	return card.SearchResult{Cards: cards, TotalFound: len(cards)}
}

func TestBackgroundLoadTwoEntriesThreePrintingsEachReachesFourAlternatives(t *testing.T) {
	entries := []loader.Entry{
		{Name: "lightning bolt", FaceMode: card.FrontOnly},
		{Name: "counterspell", FaceMode: card.FrontOnly},
	}
	printings := map[string][]string{
		"lightning bolt": {"lea", "vma", "2xm"},
		"counterspell":   {"lea", "mh2", "cmr"},
	}
	search := func(_ context.Context, name string) (card.SearchResult, error) {
		return searchResultForPrintings(name, printings[name]), nil
	}
	image := func(_ context.Context, url string) error { return nil }

	h := loader.Start(context.Background(), entries, search, image, nil)
	if err := h.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var snapshots []loader.Progress
	for {
		p, drained := h.TryGetProgress()
		snapshots = append(snapshots, p)
		if !drained || p.Phase == loader.PhaseCompleted {
			break
		}
	}

	final := snapshots[len(snapshots)-1]
	if final.Phase != loader.PhaseCompleted {
		t.Fatalf("expected final phase Completed, got %v", final.Phase)
	}
	if final.SelectedLoaded != 2 {
		t.Fatalf("expected 2 selected loads, got %d", final.SelectedLoaded)
	}
	if final.AlternativesLoaded != 4 {
		t.Fatalf("expected alternativesLoaded to reach 4 (2 entries x 2 remaining printings), got %d", final.AlternativesLoaded)
	}

	completedCount := 0
	for _, p := range snapshots {
		if p.Phase == loader.PhaseCompleted {
			completedCount++
		}
	}
	if completedCount != 1 {
		t.Fatalf("expected exactly one Completed event, observed %d", completedCount)
	}
}

func TestBackgroundLoadCollectsSearchErrorsWithoutAborting(t *testing.T) {
	entries := []loader.Entry{
		{Name: "broken card", FaceMode: card.FrontOnly},
		{Name: "lightning bolt", FaceMode: card.FrontOnly},
	}
	search := func(_ context.Context, name string) (card.SearchResult, error) {
		if name == "broken card" {
			return card.SearchResult{}, errors.New("upstream exploded")
		}
		return searchResultFor(name), nil
	}
	image := func(_ context.Context, url string) error { return nil }

	h := loader.Start(context.Background(), entries, search, image, nil)
	if err := h.Wait(); err != nil {
		t.Fatalf("unexpected top-level error: %v", err)
	}

	progress, _ := h.TryGetProgress()
	if progress.Phase != loader.PhaseCompleted {
		t.Fatalf("expected the second entry's success to still reach Completed, got %v", progress.Phase)
	}
	if len(progress.Errors) == 0 {
		t.Fatal("expected the search failure to be recorded in errors")
	}
	if progress.SelectedLoaded != 1 {
		t.Fatalf("expected exactly 1 successful selected load, got %d", progress.SelectedLoaded)
	}
}

func TestCancelStopsBeforeCompletion(t *testing.T) {
	entries := make([]loader.Entry, 50)
	for i := range entries {
		entries[i] = loader.Entry{Name: "lightning bolt", FaceMode: card.FrontOnly}
	}

	blocker := make(chan struct{})
	search := func(ctx context.Context, name string) (card.SearchResult, error) {
		select {
		case <-blocker:
		case <-ctx.Done():
		}
		return searchResultFor(name), nil
	}
	image := func(_ context.Context, url string) error { return nil }

	h := loader.Start(context.Background(), entries, search, image, nil)
	h.Cancel()
	close(blocker)

	waitErr := make(chan error, 1)
	go func() { waitErr <- h.Wait() }()

	select {
	case err := <-waitErr:
		if err != nil {
			t.Fatalf("expected cancellation to complete without an error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected the load to finish promptly after cancellation")
	}
}
