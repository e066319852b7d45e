package framelai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ZaguanLabs/framelai/cache"
)

// Console is the manual inspection surface over the cache.
type Console struct {
	store  *cache.Store
	logger *slog.Logger
}

// NewConsole creates a console for store.
func NewConsole(store *cache.Store, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{store: store, logger: logger}
}

// ShowStats logs and returns the cache statistics.
func (c *Console) ShowStats() cache.Stats {
	stats := c.store.Statistics()
	c.logger.Info("cache statistics",
		"entries", stats.Entries,
		"bytes", stats.Bytes,
		"kib", float64(stats.Bytes)/1024)
	return stats
}

// ClearCache empties the cache and its persisted mirror.
func (c *Console) ClearCache(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	c.logger.Info("cache cleared")
	return nil
}

// Delete removes one entry by its original text. A blank key is rejected.
func (c *Console) Delete(key string) bool {
	if strings.TrimSpace(key) == "" {
		c.logger.Warn("cache delete rejected: key must be a non-empty string")
		return false
	}
	if !c.store.Remove(key) {
		c.logger.Info("cache entry not found", "text", preview(key))
		return false
	}
	c.logger.Info("cache entry deleted", "text", preview(key))
	return true
}

// GetCacheSize returns the number of cached entries.
func (c *Console) GetCacheSize() int {
	return c.store.Len()
}
