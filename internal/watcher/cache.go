package watcher

import "sync"

// CompletionCache remembers which torrent ids were already reported as
// complete during this process run. It only grows.
type CompletionCache struct {
	mu   sync.Mutex
	seen map[int64]struct{}
}

func NewCompletionCache() *CompletionCache {
	return &CompletionCache{seen: make(map[int64]struct{})}
}

// MarkIfNew records id and reports whether it was absent before.
func (c *CompletionCache) MarkIfNew(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[id]; ok {
		return false
	}

	c.seen[id] = struct{}{}

	return true
}

func (c *CompletionCache) Contains(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.seen[id]

	return ok
}

func (c *CompletionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.seen)
}
