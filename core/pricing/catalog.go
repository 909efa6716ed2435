package pricing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/model"
)

// DefaultIntervalFallback is the length assumed for a price row without an end.
const DefaultIntervalFallback = 60 * time.Minute

// RawPrice is one record of a price table as delivered by a feed.
type RawPrice struct {
	TimeStart time.Time
	TimeEnd   time.Time
	Price     float64
}

// Feed retrieves the price table of a single day.
type Feed interface {
	Fetch(ctx context.Context, day time.Time) ([]RawPrice, error)
}

// Normalize converts raw records into priced intervals. Records without a
// start are dropped; a missing end is replaced by start+fallback.
func Normalize(raw []RawPrice, fallback time.Duration) []model.PricedInterval {
	if fallback <= 0 {
		fallback = DefaultIntervalFallback
	}
	out := make([]model.PricedInterval, 0, len(raw))
	for _, r := range raw {
		if r.TimeStart.IsZero() {
			continue
		}
		end := r.TimeEnd
		if end.IsZero() {
			end = r.TimeStart.Add(fallback)
		}
		out = append(out, model.PricedInterval{Start: r.TimeStart, End: end, Price: r.Price})
	}
	return out
}

// Catalog fetches and caches day price tables.
type Catalog struct {
	feed     Feed
	log      logger.Logger
	fallback time.Duration

	mu    sync.RWMutex
	cache map[string][]model.PricedInterval
}

// NewCatalog creates a Catalog backed by feed.
func NewCatalog(feed Feed, fallback time.Duration, log logger.Logger) *Catalog {
	if fallback <= 0 {
		fallback = DefaultIntervalFallback
	}
	return &Catalog{feed: feed, log: logger.OrNop(log), fallback: fallback, cache: make(map[string][]model.PricedInterval)}
}

// Fallback returns the interval length assumed for rows without an end.
func (c *Catalog) Fallback() time.Duration { return c.fallback }

// Day returns the intervals for a single day. A failed or empty fetch yields
// an empty slice and is retried on the next call.
func (c *Catalog) Day(ctx context.Context, day time.Time) []model.PricedInterval {
	key := day.Format(time.DateOnly)
	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cached
	}
	raw, err := c.feed.Fetch(ctx, day)
	if err != nil {
		c.log.Warnf("prices for %s unavailable: %v", key, err)
		return nil
	}
	intervals := Normalize(raw, c.fallback)
	if len(intervals) == 0 {
		c.log.Infof("no prices published for %s yet", key)
		return nil
	}
	c.mu.Lock()
	c.cache[key] = intervals
	c.mu.Unlock()
	return intervals
}

// Prices returns the concatenated intervals of all given days sorted by start.
func (c *Catalog) Prices(ctx context.Context, days ...time.Time) []model.PricedInterval {
	var all []model.PricedInterval
	for _, d := range days {
		all = append(all, c.Day(ctx, d)...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })
	return all
}

// Prune drops cached days strictly before the given day.
func (c *Catalog) Prune(before time.Time) {
	cut := before.Format(time.DateOnly)
	c.mu.Lock()
	for k := range c.cache {
		if k < cut {
			delete(c.cache, k)
		}
	}
	c.mu.Unlock()
}
