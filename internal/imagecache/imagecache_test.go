package imagecache_test

import (
	"testing"

	"github.com/cardforge/cardforge/internal/cache"
	"github.com/cardforge/cardforge/internal/imagecache"
)

func TestPutThenGetRoundTrips(t *testing.T) {
	dir := t.TempDir()
	c, err := imagecache.New(dir, nil, 1024, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url := "https://cards.example/image.png"
	if err := c.Put(url, []byte("pngbytes")); err != nil {
		t.Fatalf("unexpected put error: %v", err)
	}

	data, ok := c.Get(url)
	if !ok || string(data) != "pngbytes" {
		t.Fatalf("expected round trip, got %q ok=%v", data, ok)
	}
}

func TestFlushPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	c1, err := imagecache.New(dir, nil, 1024, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c1.Put("https://cards.example/a.png", []byte("a")); err != nil {
		t.Fatalf("unexpected put error: %v", err)
	}
	if err := c1.Flush(); err != nil {
		t.Fatalf("unexpected flush error: %v", err)
	}

	c2, err := imagecache.New(dir, nil, 1024, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c2.Get("https://cards.example/a.png"); !ok {
		t.Fatal("expected entry to survive reload after flush")
	}
}

func TestMaxBytesEvictsUnderPressure(t *testing.T) {
	dir := t.TempDir()
	limit := cache.ByteLimit(1)
	c, err := imagecache.New(dir, limit, 100, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Put("https://cards.example/a.png", []byte("a")); err != nil {
		t.Fatalf("unexpected put error: %v", err)
	}
	if _, ok := c.Get("https://cards.example/a.png"); ok {
		t.Fatal("expected a 1-byte budget against a 100-byte entry to evict immediately")
	}
}
