package storage

import (
	"context"
	"sync"

	"PageviewLabeler/internal/ports"
)

// MemoryCache keeps descriptions for the lifetime of the process only.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]ports.CachedDescription
}

var _ ports.DescriptionCache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]ports.CachedDescription)}
}

func (c *MemoryCache) Get(_ context.Context, qid string) (ports.CachedDescription, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[qid]
	return e, ok, nil
}

func (c *MemoryCache) Put(_ context.Context, entry ports.CachedDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.QID] = entry
	return nil
}
