package lookup_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/webtools-service/internal/domain"
	"github.com/couchcryptid/webtools-service/internal/lookup"
	"github.com/couchcryptid/webtools-service/internal/observability"
	"github.com/couchcryptid/webtools-service/internal/store"
)

const (
	vinA = "1HGCM82633A004352"
	vinB = "1M8GDM9AXKP042788"
	vinC = "JH4KA7561PC008269"
	vinD = "WBA3A5C51CF256551"
)

var testStart = time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func vehicle(vin string) domain.Vehicle {
	return domain.Vehicle{VIN: vin, Make: "HONDA", Model: "Accord", Year: "2003"}
}

func newTestCache(t *testing.T, st store.Store, cfg lookup.CacheConfig, clock clockwork.Clock) *lookup.Cache {
	t.Helper()
	return lookup.NewCache(context.Background(), st, cfg, clock, discardLogger(), observability.NewMetricsForTesting())
}

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, store.NewMemory(0), lookup.DefaultCacheConfig(), clockwork.NewFakeClockAt(testStart))

	_, ok := c.Get(ctx, vinA)
	assert.False(t, ok)

	c.Set(ctx, vinA, vehicle(vinA))
	got, ok := c.Get(ctx, " "+vinA+" ")
	require.True(t, ok, "lookup should normalize the key")
	assert.Equal(t, vehicle(vinA), got)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCache_TTLBoundary(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(testStart)
	c := newTestCache(t, store.NewMemory(0), lookup.CacheConfig{TTL: 24 * time.Hour, MaxItems: 50}, clock)

	c.Set(ctx, vinA, vehicle(vinA))

	clock.Advance(24 * time.Hour)
	_, ok := c.Get(ctx, vinA)
	assert.True(t, ok, "entry exactly TTL old is still fresh")

	clock.Advance(time.Millisecond)
	_, ok = c.Get(ctx, vinA)
	assert.False(t, ok, "entry older than TTL is expired")
	assert.Equal(t, 0, c.Len(), "expired entry is removed on access")
}

func TestCache_LRUEviction(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, store.NewMemory(0), lookup.CacheConfig{TTL: time.Hour, MaxItems: 3}, clockwork.NewFakeClockAt(testStart))

	c.Set(ctx, vinA, vehicle(vinA))
	c.Set(ctx, vinB, vehicle(vinB))
	c.Set(ctx, vinC, vehicle(vinC))

	_, ok := c.Get(ctx, vinA)
	require.True(t, ok)

	c.Set(ctx, vinD, vehicle(vinD))

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{vinC, vinA, vinD}, c.Keys())
	_, ok = c.Get(ctx, vinB)
	assert.False(t, ok, "least recently used entry should be evicted")
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, store.NewMemory(0), lookup.CacheConfig{TTL: time.Hour, MaxItems: 2}, clockwork.NewFakeClockAt(testStart))

	c.Set(ctx, vinA, vehicle(vinA))
	c.Set(ctx, vinB, vehicle(vinB))
	c.Set(ctx, vinA, domain.Vehicle{VIN: vinA, Make: "ACURA"})

	assert.Equal(t, []string{vinB, vinA}, c.Keys())
	got, ok := c.Get(ctx, vinA)
	require.True(t, ok)
	assert.Equal(t, "ACURA", got.Make)
	assert.Equal(t, int64(0), c.Stats().Evictions)
}

func TestCache_PersistAndHydrate(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory(0)
	clock := clockwork.NewFakeClockAt(testStart)

	first := newTestCache(t, st, lookup.DefaultCacheConfig(), clock)
	first.Set(ctx, vinA, vehicle(vinA))
	first.Set(ctx, vinB, vehicle(vinB))

	second := newTestCache(t, st, lookup.DefaultCacheConfig(), clock)
	assert.Equal(t, []string{vinA, vinB}, second.Keys(), "order survives a reload")

	got, ok := second.Get(ctx, vinB)
	require.True(t, ok)
	assert.Equal(t, vehicle(vinB), got)
}

func TestCache_HydrateDropsMalformedAndExpired(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory(0)
	now := testStart.UnixMilli()
	stale := testStart.Add(-25 * time.Hour).UnixMilli()

	raw := fmt.Sprintf(`[
		["%s", {"vehicle": {"vin": "%s", "make": "HONDA"}, "timestamp": %d, "hits": 1}],
		["%s", {"vehicle": {"make": "NO VIN"}, "timestamp": %d, "hits": 1}],
		["%s", {"vehicle": {"vin": "%s"}, "timestamp": %d, "hits": 3}],
		["%s", {"vehicle": {"vin": "%s"}, "hits": 1}],
		"junk",
		["only-key"],
		42
	]`, vinA, vinA, now, vinB, now, vinC, vinC, stale, vinD, vinD)
	require.NoError(t, st.Set(ctx, lookup.CacheStorageKey, raw))

	c := newTestCache(t, st, lookup.DefaultCacheConfig(), clockwork.NewFakeClockAt(testStart))

	assert.Equal(t, []string{vinA}, c.Keys())
}

func TestCache_HydrateCorruptDataStartsEmpty(t *testing.T) {
	st := store.NewMemory(0)
	require.NoError(t, st.Set(context.Background(), lookup.CacheStorageKey, "{not json"))

	c := newTestCache(t, st, lookup.DefaultCacheConfig(), clockwork.NewFakeClockAt(testStart))

	assert.Equal(t, 0, c.Len())
}

func TestCache_QuotaExceededClearsAndPersistsEmpty(t *testing.T) {
	ctx := context.Background()
	// One serialized entry fits, two do not.
	st := store.NewMemory(250)
	c := newTestCache(t, st, lookup.DefaultCacheConfig(), clockwork.NewFakeClockAt(testStart))

	c.Set(ctx, vinA, vehicle(vinA))
	require.Equal(t, 1, c.Len())

	c.Set(ctx, vinB, vehicle(vinB))

	assert.Equal(t, 0, c.Len(), "cache is cleared when storage is full")
	raw, ok, err := st.Get(ctx, lookup.CacheStorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[]", raw)

	// Still usable afterwards.
	c.Set(ctx, vinC, vehicle(vinC))
	_, ok = c.Get(ctx, vinC)
	assert.True(t, ok)
}

func TestCache_UnavailableStorageKeepsWorkingInMemory(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory(0)
	require.NoError(t, st.Close())

	c := newTestCache(t, st, lookup.DefaultCacheConfig(), clockwork.NewFakeClockAt(testStart))
	c.Set(ctx, vinA, vehicle(vinA))

	got, ok := c.Get(ctx, vinA)
	require.True(t, ok)
	assert.Equal(t, vehicle(vinA), got)
}

func TestCache_SweepEveryHundredReads(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(testStart)
	c := newTestCache(t, store.NewMemory(0), lookup.CacheConfig{TTL: time.Hour, MaxItems: 10}, clock)

	c.Set(ctx, vinA, vehicle(vinA))
	clock.Advance(30 * time.Minute)
	c.Set(ctx, vinB, vehicle(vinB))
	clock.Advance(45 * time.Minute) // A is now stale, B is not

	for range 99 {
		_, ok := c.Get(ctx, vinB)
		require.True(t, ok)
	}
	assert.Equal(t, 2, c.Len(), "stale entry lingers until the sweep")

	_, ok := c.Get(ctx, vinB)
	require.True(t, ok)
	assert.Equal(t, []string{vinB}, c.Keys(), "hundredth read sweeps expired entries")
}

func TestCache_Clear(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory(0)
	c := newTestCache(t, st, lookup.DefaultCacheConfig(), clockwork.NewFakeClockAt(testStart))

	c.Set(ctx, vinA, vehicle(vinA))
	c.Clear(ctx)

	assert.Equal(t, 0, c.Len())
	raw, _, err := st.Get(ctx, lookup.CacheStorageKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}
