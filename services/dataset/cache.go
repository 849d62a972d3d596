package dataset

import (
	"fmt"
	"sync"

	"futures-backtest/services/engine"
)

type cacheKey struct {
	symbol    string
	timeframe string
}

// Cache deduplicates series loads across strategy runs. Entries are populated
// once and read many times; a sweep with concurrent runs shares one Cache and
// the write path is mutex-guarded.
type Cache struct {
	mu sync.RWMutex
	m  map[cacheKey]*engine.Series
}

func NewCache() *Cache {
	return &Cache{m: make(map[cacheKey]*engine.Series)}
}

// Load returns the cached series for (symbol, timeframe), invoking loader on
// first use. Loader errors are not cached; the next caller retries.
func (c *Cache) Load(symbol, timeframe string, loader func() (*engine.Series, error)) (*engine.Series, error) {
	key := cacheKey{symbol, timeframe}

	c.mu.RLock()
	s, ok := c.m[key]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.m[key]; ok {
		return s, nil
	}
	s, err := loader()
	if err != nil {
		return nil, fmt.Errorf("load series %s %s: %w", symbol, timeframe, err)
	}
	c.m[key] = s
	return s, nil
}
