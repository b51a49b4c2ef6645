package catalog

import (
	"context"
	"log/slog"
	"sync"
)

// Entry is one catalog row. Immutable once fetched within a session;
// refreshed wholesale, never patched field-by-field.
type Entry struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Genre       string  `json:"genre"`
	UnitPrice   float64 `json:"unitPrice"`
	CoverRef    string  `json:"coverRef"`
	Description string  `json:"description"`
	Featured    bool    `json:"featured"`
}

// Fetcher retrieves the catalog from the backend. Implemented by api.Client.
type Fetcher interface {
	FetchCatalog(ctx context.Context) ([]Entry, error)
}

// refreshCall is one in-flight fetch shared by every caller that arrives
// while it is pending.
type refreshCall struct {
	done    chan struct{}
	entries []Entry
	err     error
}

// Cache is a read-through cache of catalog entries keyed by product id.
//
// A single in-flight refresh is coalesced: concurrent callers wait on the
// same pending fetch instead of issuing duplicates. On fetch failure the
// cache keeps its last-known-good contents and surfaces the error; it never
// silently empties a previously populated cache.
//
// Cache is the sole writer of its entry map.
type Cache struct {
	mu       sync.Mutex
	fetch    Fetcher
	entries  map[string]Entry
	ordered  []Entry
	primed   bool
	inflight *refreshCall
	logger   *slog.Logger
}

// NewCache creates an empty (cold) cache.
func NewCache(fetch Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		fetch:   fetch,
		entries: make(map[string]Entry),
		logger:  logger,
	}
}

// Refresh fetches the catalog wholesale and replaces the cached entries.
//
// Callers arriving while a refresh is pending share its outcome. On failure
// the previous contents survive and every waiter gets the error.
func (c *Cache) Refresh(ctx context.Context) ([]Entry, error) {
	c.mu.Lock()
	if call := c.inflight; call != nil {
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-call.done:
			return call.entries, call.err
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	c.inflight = call
	c.mu.Unlock()

	entries, err := c.fetch.FetchCatalog(ctx)

	c.mu.Lock()
	c.inflight = nil
	if err == nil {
		replacement := make(map[string]Entry, len(entries))
		for _, entry := range entries {
			replacement[entry.ID] = entry
		}
		c.entries = replacement
		c.ordered = append([]Entry(nil), entries...)
		c.primed = true
	} else {
		c.logger.Warn("catalog refresh failed, keeping last-known-good entries",
			"cached", len(c.entries), "err", err)
	}
	call.entries = entries
	call.err = err
	c.mu.Unlock()

	close(call.done)
	return entries, err
}

// Get returns the cached entry for a product id.
func (c *Cache) Get(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	return entry, ok
}

// All returns the cached entries in server order.
func (c *Cache) All() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.ordered...)
}

// Primed reports whether at least one refresh has succeeded.
func (c *Cache) Primed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.primed
}
