package framelai

import (
	"context"
	"testing"

	"github.com/ZaguanLabs/framelai/cache"
	"github.com/ZaguanLabs/framelai/dom"
	"github.com/ZaguanLabs/framelai/storage"
)

func TestConsole(t *testing.T) {
	mem := storage.NewMemory()
	store := cache.NewStore(mem, cache.WithLogger(quietLogger()))
	store.Put("Hello, Robin!", "안녕, 로빈!", dom.Node{})
	store.Put("Good night.", "잘 자.", dom.Node{})
	c := NewConsole(store, quietLogger())

	if c.GetCacheSize() != 2 {
		t.Errorf("expected 2 entries, got %d", c.GetCacheSize())
	}
	if stats := c.ShowStats(); stats.Entries != 2 || stats.Bytes == 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if c.Delete("   ") {
		t.Error("expected blank key to be rejected")
	}
	if c.Delete("Good morning.") {
		t.Error("expected missing key to report false")
	}
	if !c.Delete("Good night.") {
		t.Error("expected existing key to be deleted")
	}
	if c.GetCacheSize() != 1 {
		t.Errorf("expected 1 entry after delete, got %d", c.GetCacheSize())
	}

	if err := store.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := c.ClearCache(context.Background()); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	if c.GetCacheSize() != 0 {
		t.Error("expected empty cache")
	}
	if _, ok, _ := mem.Get(context.Background(), cache.DefaultKey); ok {
		t.Error("expected persisted copy to be removed")
	}
}
