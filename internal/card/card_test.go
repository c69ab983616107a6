package card

import "testing"

func TestFromScryfallObjectSplitCardUsesTopLevelImageURIs(t *testing.T) {
	// Split cards carry image_uris at the top level on Scryfall; this must
	// win over card_faces even though card_faces is also present.
	raw := `{
		"name": "Consecrate // Consume",
		"set": "ema",
		"lang": "en",
		"layout": "split",
		"image_uris": {"border_crop": "https://img/front.jpg"},
		"card_faces": [
			{"image_uris": {"border_crop": "https://img/face0.jpg"}},
			{"image_uris": {"border_crop": "https://img/face1.jpg"}}
		]
	}`

	c, err := FromScryfallObject(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.FrontImageURL != "https://img/front.jpg" {
		t.Fatalf("expected top-level image_uris to win, got %s", c.FrontImageURL)
	}
	if c.BackImageURL != "" {
		t.Fatalf("expected no back image for split card, got %s", c.BackImageURL)
	}
}

func TestFromScryfallObjectDoubleFacedUsesCardFaces(t *testing.T) {
	raw := `{
		"name": "Erayo // Zhalfir",
		"set": "mh3",
		"lang": "en",
		"layout": "transform",
		"card_faces": [
			{"image_uris": {"border_crop": "https://img/front.jpg"}},
			{"image_uris": {"border_crop": "https://img/back.jpg"}}
		]
	}`

	c, err := FromScryfallObject(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.FrontImageURL != "https://img/front.jpg" || c.BackImageURL != "https://img/back.jpg" {
		t.Fatalf("unexpected images: front=%s back=%s", c.FrontImageURL, c.BackImageURL)
	}
}

func TestFromScryfallObjectMissingImageIsInvalidCard(t *testing.T) {
	raw := `{"name": "Memory Lapse", "set": "ice", "lang": "en"}`
	_, err := FromScryfallObject(raw)
	if err == nil {
		t.Fatal("expected an error for a card with no image data")
	}
}

func TestFromScryfallObjectMeldDetection(t *testing.T) {
	raw := `{
		"name": "Urza, Lord Protector",
		"set": "bro",
		"lang": "en",
		"layout": "meld",
		"image_uris": {"border_crop": "https://img/urza.jpg"},
		"all_parts": [
			{"component": "meld_part", "name": "Urza, Lord Protector"},
			{"component": "meld_result", "name": "Urza, Planeswalker"},
			{"component": "meld_part", "name": "The Mightstone and Weakstone"}
		]
	}`

	c, err := FromScryfallObject(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.MeldResultName != "urza, planeswalker" {
		t.Fatalf("expected meld result name, got %q", c.MeldResultName)
	}
}

func TestImagesForFaceMode(t *testing.T) {
	withBack := Card{FrontImageURL: "front", BackImageURL: "back"}
	frontOnly := Card{FrontImageURL: "front"}

	cases := []struct {
		name string
		c    Card
		mode FaceMode
		want []string
	}{
		{"front only mode", withBack, FrontOnly, []string{"front"}},
		{"back only with back present", withBack, BackOnly, []string{"back"}},
		{"back only fallback", frontOnly, BackOnly, []string{"front"}},
		{"both sides with back", withBack, BothSides, []string{"front", "back"}},
		{"both sides without back", frontOnly, BothSides, []string{"front"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.c.ImagesForFaceMode(tc.mode)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}
