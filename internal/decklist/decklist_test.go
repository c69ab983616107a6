package decklist_test

import (
	"testing"

	"github.com/cardforge/cardforge/internal/decklist"
)

func TestParseLanguageVsSetDisambiguation(t *testing.T) {
	// Seed scenario 3.
	setCodes := []string{"bro", "m21"}

	entries := decklist.Parse("4 memory lapse [ja]\n1 lightning bolt [bro]", setCodes)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}

	first := entries[0]
	if first.Multiple != 4 || first.Name != "memory lapse" || first.Set != "" || first.Lang != "ja" {
		t.Fatalf("unexpected first entry: %+v", first)
	}

	second := entries[1]
	if second.Multiple != 1 || second.Name != "lightning bolt" || second.Set != "bro" || second.Lang != "" {
		t.Fatalf("unexpected second entry: %+v", second)
	}
}

func TestParseDefaultsQuantityToOne(t *testing.T) {
	entries := decklist.Parse("lightning bolt", nil)
	if len(entries) != 1 || entries[0].Multiple != 1 || entries[0].Name != "lightning bolt" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestParseDropsStructuralLines(t *testing.T) {
	entries := decklist.Parse("Deck\n1 lightning bolt\nSideboard\n1 shock\n\n", nil)
	if len(entries) != 2 {
		t.Fatalf("expected structural/blank lines to be dropped, got %+v", entries)
	}
	if entries[0].Name != "lightning bolt" || entries[1].Name != "shock" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestParseEmptyDecklistReturnsEmptyEntries(t *testing.T) {
	entries := decklist.Parse("", nil)
	if len(entries) != 0 {
		t.Fatalf("expected no entries for empty input, got %+v", entries)
	}
}

func TestParseUnknownCodeDefaultsToSet(t *testing.T) {
	entries := decklist.Parse("1 some card [xq]", nil)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %+v", entries)
	}
	if entries[0].Set != "xq" || entries[0].Lang != "" {
		t.Fatalf("expected unknown code to default to set, got %+v", entries[0])
	}
}

func TestParseSourceLineTracksOriginalIndex(t *testing.T) {
	entries := decklist.Parse("Deck\n1 lightning bolt\n\n1 shock", nil)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].SourceLine != 1 {
		t.Fatalf("expected first entry's sourceLine to be 1, got %d", entries[0].SourceLine)
	}
	if entries[1].SourceLine != 3 {
		t.Fatalf("expected second entry's sourceLine to be 3, got %d", entries[1].SourceLine)
	}
}

func TestValidateLanguageTagAcceptsWellFormedTags(t *testing.T) {
	if !decklist.ValidateLanguageTag("en") {
		t.Fatal("expected en to validate")
	}
	if decklist.ValidateLanguageTag("!!!") {
		t.Fatal("expected an obviously malformed tag to fail validation")
	}
}
