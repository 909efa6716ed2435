package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/smartcharge/infra/logger"
)

type fakeFeed struct {
	days  map[string][]RawPrice
	fail  map[string]bool
	calls int
}

func (f *fakeFeed) Fetch(_ context.Context, day time.Time) ([]RawPrice, error) {
	f.calls++
	key := day.Format(time.DateOnly)
	if f.fail[key] {
		return nil, errors.New("404 not found")
	}
	return f.days[key], nil
}

func TestNormalizeFallbackAndPresence(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out := Normalize([]RawPrice{
		{TimeStart: start, TimeEnd: start.Add(time.Hour), Price: 0.5},
		{TimeStart: start.Add(time.Hour), Price: 0.7},
		{Price: 1},
	}, 15*time.Minute)
	require.Len(t, out, 2)
	assert.Equal(t, start.Add(75*time.Minute), out[1].End)
	assert.Equal(t, 0.7, out[1].Price)
}

func TestCatalogAbsorbsFailures(t *testing.T) {
	today := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	feed := &fakeFeed{
		days: map[string][]RawPrice{
			"2025-03-01": {{TimeStart: today.Add(time.Hour), TimeEnd: today.Add(2 * time.Hour), Price: 1}, {TimeStart: today, TimeEnd: today.Add(time.Hour), Price: 2}},
		},
		fail: map[string]bool{"2025-03-02": true},
	}
	c := NewCatalog(feed, 0, logger.NopLogger{})
	got := c.Prices(context.Background(), today, tomorrow)
	require.Len(t, got, 2)
	assert.True(t, got[0].Start.Equal(today), "intervals must be sorted by start")

	// the failed day is retried, the successful one is cached
	c.Prices(context.Background(), today, tomorrow)
	assert.Equal(t, 3, feed.calls)

	c.Prune(tomorrow)
	c.Day(context.Background(), today)
	assert.Equal(t, 4, feed.calls)
}

func TestCatalogEmptyDayNotCached(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	feed := &fakeFeed{days: map[string][]RawPrice{}}
	c := NewCatalog(feed, time.Hour, logger.NopLogger{})
	assert.Empty(t, c.Day(context.Background(), day))
	assert.Empty(t, c.Day(context.Background(), day))
	assert.Equal(t, 2, feed.calls)
}

func TestMarkup(t *testing.T) {
	assert.InDelta(t, 0.2*1.25+0.39, DefaultMarkup.Apply(0.2), 1e-9)
	assert.InDelta(t, 0.5, Markup{}.Apply(0.5), 1e-9)
}
