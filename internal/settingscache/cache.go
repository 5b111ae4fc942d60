// Package settingscache fronts the catalogue's transcoding-settings
// accessor with a single-entry, time-bounded cache (spec.md §4.5).
// Grounded on eleven-am/goshl's internal/segment/notifying_storage.go
// wrapper-over-a-collaborator shape; the refresh discipline itself
// mirrors the "single mutable slot guarded by a lock" pattern spec.md
// §8 names directly.
package settingscache

import (
	"context"
	"sync"
	"time"

	"github.com/eleven-am/goshl/internal/domain"
	"github.com/eleven-am/goshl/internal/telemetry"
)

const ttl = 30 * time.Second

// Cache holds the most recently fetched TranscodingSettings for up to
// ttl, after which the next reader refreshes it from the catalogue. If
// the catalogue is unreachable, a previously fetched value is preferred
// over fallback; fallback (the process's config-file-sourced settings)
// is only used before the catalogue has ever answered successfully.
type Cache struct {
	catalogue domain.Catalogue
	fallback  domain.TranscodingSettings
	log       telemetry.Logger

	mu        sync.Mutex
	value     domain.TranscodingSettings
	fetchedAt time.Time
	valid     bool
}

func New(catalogue domain.Catalogue, fallback domain.TranscodingSettings, log telemetry.Logger) *Cache {
	return &Cache{catalogue: catalogue, fallback: fallback, log: log.Named("settingscache")}
}

// Get returns the cached settings if still within ttl, otherwise
// refreshes from the catalogue. Staleness up to 30s is accepted by
// design; writes made by the catalogue become visible on the next
// refresh, not immediately.
func (c *Cache) Get(ctx context.Context) (domain.TranscodingSettings, error) {
	c.mu.Lock()
	if c.valid && time.Since(c.fetchedAt) < ttl {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	fresh, err := c.catalogue.GetTranscodingSettings(ctx)
	if err != nil {
		c.mu.Lock()
		valid, stale := c.valid, c.value
		c.mu.Unlock()
		if valid {
			c.log.Warn("catalogue settings fetch failed, reusing stale value", "error", err)
			return stale, nil
		}
		c.log.Warn("catalogue settings fetch failed, using config fallback", "error", err)
		return c.fallback, nil
	}

	c.mu.Lock()
	c.value = fresh
	c.fetchedAt = time.Now()
	c.valid = true
	c.mu.Unlock()

	return fresh, nil
}
