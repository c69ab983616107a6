// Package decklist parses free-form decklist text into structured entries:
// a quantity, a free-form card name, and an optional trailing set code or
// language tag.
//
// Grounded on original_source/magic-proxy-core/src/decklist/mod.rs: the
// same line grammar (leading quantity, free-form name up to the first of
// `(`, `[`, `$`, tab, a trailing 2-6 alphanumeric code in brackets), the
// same built-in language registry, and the same set-vs-language
// classification order.
package decklist

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Entry is one parsed decklist line.
type Entry struct {
	Multiple   int
	Name       string
	Set        string // lowercase, empty if absent
	Lang       string // lowercase, empty if absent
	SourceLine int
}

var lineRe = regexp.MustCompile(`^\s*(\d*)\s*([^(\[$\t]*)[\s(\[]*([0-9A-Za-z]{2,6})?`)

// builtinLanguages mirrors the original registry of recognized language
// tags, independent of any catalog lookup.
var builtinLanguages = map[string]bool{
	"en": true, "es": true, "fr": true, "de": true, "it": true, "pt": true,
	"ja": true, "ko": true, "ru": true, "zhs": true, "zht": true, "he": true,
	"la": true, "grc": true, "ar": true, "sa": true, "ph": true,
}

var droppedNames = map[string]bool{
	"deck": true, "decklist": true, "sideboard": true,
}

// Parse splits text into non-empty lines and parses each independently.
// Parsing never fails: unparseable or structural lines are simply dropped
// and the remaining entries are returned.
func Parse(text string, setCodes []string) []Entry {
	setCodeSet := make(map[string]bool, len(setCodes))
	for _, c := range setCodes {
		setCodeSet[strings.ToLower(c)] = true
	}

	lines := strings.Split(text, "\n")
	entries := make([]Entry, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, ok := parseLine(line, i, setCodeSet)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func parseLine(line string, sourceLine int, setCodeSet map[string]bool) (Entry, bool) {
	match := lineRe.FindStringSubmatch(line)
	if match == nil {
		return Entry{}, false
	}

	multiple := 1
	if match[1] != "" {
		n, err := strconv.Atoi(match[1])
		if err == nil && n > 0 {
			multiple = n
		}
	}

	name := strings.TrimSpace(match[2])
	if name == "" {
		return Entry{}, false
	}
	if droppedNames[strings.ToLower(name)] {
		return Entry{}, false
	}

	entry := Entry{Multiple: multiple, Name: name, SourceLine: sourceLine}

	code := strings.ToLower(strings.TrimSpace(match[3]))
	if code != "" {
		switch {
		case setCodeSet[code]:
			entry.Set = code
		case builtinLanguages[code]:
			entry.Lang = code
		default:
			// Unknown codes default to set, preserving backward
			// compatibility with catalogs the parser hasn't seen yet.
			entry.Set = code
		}
	}

	return entry, true
}

// ValidateLanguageTag reports whether tag parses as a well-formed BCP 47
// language tag. This is a diagnostic-only check: it never changes how
// Parse classifies a trailing code, it only flags tags worth a second
// look in logs or UI.
func ValidateLanguageTag(tag string) bool {
	_, err := language.Parse(tag)
	return err == nil
}
