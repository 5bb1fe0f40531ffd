package sentiment

import (
	"context"
	"sync"
	"time"

	"nkbot/internal/logger"
)

// MarketKey is the well-known key the aggregate market score lives under.
const MarketKey = "market"

const defaultRefreshInterval = 60 * time.Second

// Source produces one scalar sentiment score in [-1,1]. It may fail; the
// cache treats failures as transient.
type Source interface {
	Fetch(ctx context.Context) (float64, error)
}

// Score is the cached value plus its freshness marker. The zero value reads
// as neutral (0.0), which is the documented default before the first
// successful fetch.
type Score struct {
	Value     float64
	UpdatedAt time.Time
}

// Cache keeps a shared sentiment scalar approximately fresh. Readers are
// never blocked; staleness up to one refresh interval is accepted.
type Cache struct {
	source   Source
	interval time.Duration
	clock    func() time.Time

	mu     sync.RWMutex
	scores map[string]Score
}

func NewCache(source Source, interval time.Duration) *Cache {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Cache{
		source:   source,
		interval: interval,
		clock:    time.Now,
		scores:   make(map[string]Score),
	}
}

// Get returns the current market score without blocking.
func (c *Cache) Get() Score {
	return c.GetKey(MarketKey)
}

func (c *Cache) GetKey(key string) Score {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scores[key]
}

// Run refreshes the score once per interval until ctx is cancelled. A failed
// fetch is logged and the previous value stays visible until the next
// successful cycle.
func (c *Cache) Run(ctx context.Context) error {
	if c.source == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		c.refresh(ctx)
		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Cache) refresh(ctx context.Context) {
	value, err := c.source.Fetch(ctx)
	if err != nil {
		logger.Warnf("[sentiment] refresh failed, keeping stale value: %v", err)
		return
	}
	c.mu.Lock()
	c.scores[MarketKey] = Score{Value: value, UpdatedAt: c.clock()}
	c.mu.Unlock()
	logger.Debugf("[sentiment] market score updated: %.4f", value)
}
