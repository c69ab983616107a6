// Package selection implements cardforge's printing-selection predicate:
// given a search result and a decklist entry's set/language hints, pick
// the single preferred printing.
//
// Grounded on original_source/magic-proxy-core/src/background_loading.rs's
// select_card_from_printings.
package selection

import (
	"strings"

	"github.com/cardforge/cardforge/internal/card"
)

// Pick returns the index of the first card in cards whose name matches
// entryName (case-insensitive) and whose set/language match entrySet/
// entryLang when those hints are non-empty. If no card satisfies all the
// hints, it falls back to index 0. It reports false only when cards is
// empty.
func Pick(cards []card.Card, entryName, entrySet, entryLang string) (int, bool) {
	if len(cards) == 0 {
		return 0, false
	}
	for i, c := range cards {
		if !strings.EqualFold(c.Name, entryName) {
			continue
		}
		if entrySet != "" && !strings.EqualFold(c.Set, entrySet) {
			continue
		}
		if entryLang != "" && !strings.EqualFold(c.Language, entryLang) {
			continue
		}
		return i, true
	}
	return 0, true
}
