package sources

import "sync"

// ResponseCache memoizes parsed API responses for the lifetime of the
// process. It is unbounded and cleared only by an explicit Reset; it is owned
// by whoever constructs the API source, not a package-level singleton.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]any
}

func NewResponseCache() *ResponseCache {
	return &ResponseCache{entries: make(map[string]any)}
}

func (c *ResponseCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *ResponseCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ResponseCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
}
