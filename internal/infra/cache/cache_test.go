package cache

import (
	"testing"
	"time"

	"github.com/ytdbot/ytd-bot/internal/engine"
)

func TestMetadataCacheRoundTrip(t *testing.T) {
	c := NewMetadataCache(time.Minute, time.Minute)
	meta := &engine.Metadata{ID: "abc", Title: "Title"}

	if _, ok := c.Get("https://example.com/v"); ok {
		t.Fatal("empty cache returned a hit")
	}

	c.Set("https://example.com/v", meta)
	got, ok := c.Get("https://example.com/v")
	if !ok || got.ID != "abc" {
		t.Fatalf("Get = (%+v, %v), want cached metadata", got, ok)
	}
	if c.ItemCount() != 1 {
		t.Errorf("ItemCount = %d, want 1", c.ItemCount())
	}

	c.Delete("https://example.com/v")
	if _, ok := c.Get("https://example.com/v"); ok {
		t.Error("entry survived Delete")
	}
	if c.ItemCount() != 0 {
		t.Errorf("ItemCount after delete = %d, want 0", c.ItemCount())
	}
}

func TestMetadataCacheExpiry(t *testing.T) {
	c := NewMetadataCache(10*time.Millisecond, time.Minute)
	c.Set("u", &engine.Metadata{ID: "x"})

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("u"); ok {
		t.Error("expired entry still served")
	}
}
