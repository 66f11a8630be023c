package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"chefbot_go_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memoryCacheDB struct {
	mu      sync.Mutex
	entries map[string]models.CacheEntry
	fail    error
}

func newMemoryCacheDB() *memoryCacheDB {
	return &memoryCacheDB{entries: make(map[string]models.CacheEntry)}
}

func (m *memoryCacheDB) GetCacheEntryDB(_ context.Context, hash string, category models.CacheCategory) (*models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	e, ok := m.entries[hash+"/"+string(category)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (m *memoryCacheDB) UpsertCacheEntryDB(_ context.Context, entry *models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.entries[entry.PromptHash+"/"+string(entry.Category)] = *entry
	return nil
}

func (m *memoryCacheDB) DeleteExpiredCacheEntriesDB(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, e := range m.entries {
		if e.IsExpired(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var testTTLs = models.CacheTTLs{Short: time.Hour, Long: 24 * time.Hour}

func TestResponseCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	cache := NewResponseCacheService(newMemoryCacheDB(), testTTLs, 300, WithClock(clock.Now))
	prompt := PromptKey{System: "sys", User: "eggs, flour"}

	_, ok := cache.Get(ctx, prompt, models.LangEN, "gemini-1.5-flash", models.CacheRecipe)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, prompt, "Pancakes...", models.LangEN, "gemini-1.5-flash", 42, models.CacheRecipe))

	got, ok := cache.Get(ctx, prompt, models.LangEN, "gemini-1.5-flash", models.CacheRecipe)
	require.True(t, ok)
	assert.Equal(t, "Pancakes...", got)

	clock.Advance(59 * time.Minute)
	_, ok = cache.Get(ctx, prompt, models.LangEN, "gemini-1.5-flash", models.CacheRecipe)
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok = cache.Get(ctx, prompt, models.LangEN, "gemini-1.5-flash", models.CacheRecipe)
	assert.False(t, ok, "expired entries are excluded")
}

func TestResponseCacheCategoryTTLs(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	cache := NewResponseCacheService(newMemoryCacheDB(), testTTLs, 300, WithClock(clock.Now))
	prompt := PromptKey{System: "sys", User: "borscht"}

	require.NoError(t, cache.Set(ctx, prompt, `{"valid":true}`, models.LangEN, "m", 1, models.CacheValidation))
	require.NoError(t, cache.Set(ctx, prompt, `{"dishes":[]}`, models.LangEN, "m", 1, models.CacheDishList))

	clock.Advance(2 * time.Hour)
	_, ok := cache.Get(ctx, prompt, models.LangEN, "m", models.CacheDishList)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, prompt, models.LangEN, "m", models.CacheValidation)
	assert.True(t, ok)
}

func TestResponseCacheUpsertRefreshesExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	db := newMemoryCacheDB()
	cache := NewResponseCacheService(db, testTTLs, 300, WithClock(clock.Now))
	prompt := PromptKey{System: "sys", User: "soup"}

	require.NoError(t, cache.Set(ctx, prompt, "first", models.LangEN, "m", 1, models.CacheRecipe))
	clock.Advance(50 * time.Minute)
	require.NoError(t, cache.Set(ctx, prompt, "second", models.LangEN, "m", 1, models.CacheRecipe))
	clock.Advance(50 * time.Minute)

	got, ok := cache.Get(ctx, prompt, models.LangEN, "m", models.CacheRecipe)
	require.True(t, ok)
	assert.Equal(t, "second", got)
	assert.Len(t, db.entries, 1)
}

func TestResponseCacheKeySensitivity(t *testing.T) {
	prompt := PromptKey{System: "sys", User: "eggs"}
	base := CacheKey(prompt, models.LangEN, "gemini", 300)

	assert.NotEqual(t, base, CacheKey(prompt, models.LangRU, "gemini", 300))
	assert.NotEqual(t, base, CacheKey(prompt, models.LangEN, "gpt-4o-mini", 300))
	assert.NotEqual(t, base, CacheKey(PromptKey{System: "sys", User: "milk"}, models.LangEN, "gemini", 300))
	assert.Equal(t, base, CacheKey(PromptKey{System: "  sys ", User: "eggs\n"}, models.LangEN, "gemini", 300))
	assert.Equal(t, base, CacheKey(prompt, models.LangUnknown, "gemini", 300), "unknown language keys as default")

	ctx := context.Background()
	cache := NewResponseCacheService(newMemoryCacheDB(), testTTLs, 300)
	require.NoError(t, cache.Set(ctx, prompt, "x", models.LangEN, "gemini", 1, models.CacheRecipe))
	_, ok := cache.Get(ctx, prompt, models.LangES, "gemini", models.CacheRecipe)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, prompt, models.LangEN, "claude", models.CacheRecipe)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, prompt, models.LangEN, "gemini", models.CacheDishList)
	assert.False(t, ok)
}

func TestResponseCacheKeyPrefixTruncation(t *testing.T) {
	shared := strings.Repeat("a", 300)
	a := PromptKey{System: "sys", User: shared + " tail one"}
	b := PromptKey{System: "sys", User: shared + " tail two"}

	assert.Equal(t, CacheKey(a, models.LangEN, "m", 300), CacheKey(b, models.LangEN, "m", 300))
	assert.NotEqual(t, CacheKey(a, models.LangEN, "m", 0), CacheKey(b, models.LangEN, "m", 0))

	withVariant := a
	withVariant.Variant = "nutrition"
	assert.NotEqual(t, CacheKey(a, models.LangEN, "m", 300), CacheKey(withVariant, models.LangEN, "m", 300))
}

func TestResponseCacheSweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	cache := NewResponseCacheService(newMemoryCacheDB(), testTTLs, 300, WithClock(clock.Now))

	require.NoError(t, cache.Set(ctx, PromptKey{User: "a"}, "a", models.LangEN, "m", 1, models.CacheRecipe))
	require.NoError(t, cache.Set(ctx, PromptKey{User: "b"}, "b", models.LangEN, "m", 1, models.CacheCategories))

	clock.Advance(2 * time.Hour)
	n, err := cache.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	clock.Advance(24 * time.Hour)
	n, err = cache.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestResponseCacheLookupFailureIsMiss(t *testing.T) {
	db := newMemoryCacheDB()
	db.fail = assert.AnError
	cache := NewResponseCacheService(db, testTTLs, 300)

	_, ok := cache.Get(context.Background(), PromptKey{User: "a"}, models.LangEN, "m", models.CacheRecipe)
	assert.False(t, ok)
	assert.Error(t, cache.Set(context.Background(), PromptKey{User: "a"}, "a", models.LangEN, "m", 1, models.CacheRecipe))
}
