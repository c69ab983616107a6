// Package card defines cardforge's canonical Card record and the face-mode
// image URL policy, grounded on
// original_source/magic-proxy-core/src/scryfall/models.rs's
// Card::from_scryfall_object.
package card

import (
	"strings"

	"github.com/cardforge/cardforge/internal/cferr"
	"github.com/tidwall/gjson"
)

// FaceMode selects which side(s) of a double-faced or split card to render.
type FaceMode int

const (
	FrontOnly FaceMode = iota
	BackOnly
	BothSides
)

// Card is the canonical, immutable record for one printing of a card.
type Card struct {
	Name           string // lowercase
	Set            string // lowercase code
	Language       string // lowercase IETF-ish tag
	FrontImageURL  string
	BackImageURL   string // empty if absent
	MeldResultName string // empty if absent
}

// SearchResult is the ordered set of printings returned for one search,
// keyed (by the caller) on the lowercased raw search name.
type SearchResult struct {
	Cards      []Card
	TotalFound int
}

// ImagesForFaceMode returns the ordered image URLs to render for mode,
// per spec.md §4.I:
//
//	FrontOnly  -> [front]
//	BackOnly   -> [back] if present, else [front] (documented fallback)
//	BothSides  -> [front, back] if back present, else [front]
func (c Card) ImagesForFaceMode(mode FaceMode) []string {
	switch mode {
	case BackOnly:
		if c.BackImageURL != "" {
			return []string{c.BackImageURL}
		}
		return []string{c.FrontImageURL}
	case BothSides:
		if c.BackImageURL != "" {
			return []string{c.FrontImageURL, c.BackImageURL}
		}
		return []string{c.FrontImageURL}
	default:
		return []string{c.FrontImageURL}
	}
}

// FromScryfallObject builds a Card from one element of a Scryfall-style
// search response's data array. Field extraction precedence is load-bearing
// and exact:
//
//  1. A top-level "image_uris" key (present even on split cards) wins: its
//     border_crop is the sole front image, and no back image is produced —
//     this matches original_source's explicit split-card test asserting
//     border_crop_back is None for cards whose top-level object carries
//     image_uris.
//  2. Otherwise "card_faces" must have exactly two entries; face 0's
//     border_crop is front, face 1's is back.
//  3. Otherwise the record has no usable artwork and is rejected with
//     InvalidCard — per spec.md §7, the caller drops it from the
//     SearchResult rather than treating this as a fatal error.
func FromScryfallObject(raw string) (Card, error) {
	obj := gjson.Parse(raw)

	name := strings.ToLower(obj.Get("name").String())
	set := strings.ToLower(obj.Get("set").String())
	lang := strings.ToLower(obj.Get("lang").String())

	c := Card{Name: name, Set: set, Language: lang}

	if imageURIs := obj.Get("image_uris"); imageURIs.Exists() {
		front := imageURIs.Get("border_crop").String()
		if front == "" {
			return Card{}, cferr.InvalidCardErr("card %q missing image_uris.border_crop", name)
		}
		c.FrontImageURL = front
	} else if faces := obj.Get("card_faces"); faces.Exists() && faces.IsArray() && len(faces.Array()) == 2 {
		arr := faces.Array()
		front := arr[0].Get("image_uris.border_crop").String()
		back := arr[1].Get("image_uris.border_crop").String()
		if front == "" {
			return Card{}, cferr.InvalidCardErr("card %q missing card_faces[0].image_uris.border_crop", name)
		}
		c.FrontImageURL = front
		if back != "" && back != front {
			c.BackImageURL = back
		}
	} else {
		return Card{}, cferr.InvalidCardErr("card %q has no image data", name)
	}

	if obj.Get("layout").String() == "meld" {
		for _, part := range obj.Get("all_parts").Array() {
			if part.Get("component").String() != "meld_result" {
				continue
			}
			meldName := strings.ToLower(part.Get("name").String())
			if meldName != "" && meldName != name {
				c.MeldResultName = meldName
			}
			break
		}
	}

	return c, nil
}
