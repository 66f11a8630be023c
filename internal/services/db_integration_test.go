package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chefbot_go_backend/internal/models"
	"chefbot_go_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageLedgerPostgresConcurrentQuota(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	clock := newFakeClock(time.Now().UTC())
	repo := NewUsageServiceDB(db)
	users := NewUserService(repo, WithClock(clock.Now))
	usage := NewUsageService(repo, testLimits, testTrial, time.UTC, WithClock(clock.Now))

	_, err := users.EnsureUser(ctx, 7, "bob", models.LangEN)
	require.NoError(t, err)

	var allowed int32
	var wg sync.WaitGroup
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			check, err := usage.CheckAndIncrement(ctx, 7, models.UsageText)
			if err == nil && check.Allowed {
				atomic.AddInt32(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(testLimits.FreeText), allowed)
	status, err := usage.Status(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, testLimits.FreeText, status.TextUsed)
}

func TestUserServicePostgresEnsureUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	users := NewUserService(NewUsageServiceDB(db))

	first, err := users.EnsureUser(ctx, 9, "carol", models.LangRU)
	require.NoError(t, err)
	assert.Equal(t, models.TrialPending, first.TrialStatus)
	assert.False(t, first.IsPremium)

	again, err := users.EnsureUser(ctx, 9, "carol_new", models.LangES)
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt.Unix(), again.CreatedAt.Unix())
	assert.Equal(t, "carol_new", again.Username)
	assert.Equal(t, models.LangES, again.Language)

	_, err = users.GetUser(ctx, 10)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFavoritesPostgresUpsertAndPaging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	favs := NewFavoritesService(NewFavoritesServiceDB(db))

	sess := models.Session{
		UserID:      3,
		CurrentDish: &models.CurrentDish{Name: "Tomato Soup", Category: models.CategorySoup},
		LastRecipe:  "first",
	}
	_, err := favs.Add(ctx, sess, -1)
	require.NoError(t, err)
	sess.LastRecipe = "second"
	_, err = favs.Add(ctx, sess, -1)
	require.NoError(t, err)

	stored, err := favs.Get(ctx, 3, "Tomato Soup")
	require.NoError(t, err)
	assert.Equal(t, "second", stored.RecipeText)

	items, pages, err := favs.Page(ctx, 3, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pages)

	name, ok := favs.ResolveEncodedName(ctx, 3, "Tomato_Soup")
	require.True(t, ok)
	assert.Equal(t, "Tomato Soup", name)

	removed, err := favs.Remove(ctx, 3, "tomato soup")
	require.NoError(t, err)
	assert.False(t, removed, "removal is exact")
	removed, err = favs.Remove(ctx, 3, "Tomato Soup")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestResponseCachePostgresSweep(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	clock := newFakeClock(time.Now().UTC())
	cache := NewResponseCacheService(NewResponseCacheDB(db), testTTLs, 300, WithClock(clock.Now))
	prompt := PromptKey{System: "sys", User: "eggs"}

	require.NoError(t, cache.Set(ctx, prompt, `{"categories":["breakfast"]}`, models.LangEN, "m", 3, models.CacheCategories))
	require.NoError(t, cache.Set(ctx, prompt, "Pancakes", models.LangEN, "m", 3, models.CacheRecipe))
	require.NoError(t, cache.Set(ctx, prompt, "Better pancakes", models.LangEN, "m", 3, models.CacheRecipe))

	got, ok := cache.Get(ctx, prompt, models.LangEN, "m", models.CacheRecipe)
	require.True(t, ok)
	assert.Equal(t, "Better pancakes", got)

	clock.Advance(2 * time.Hour)
	swept, err := cache.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept, "only the short-lived recipe entry expired")
	_, ok = cache.Get(ctx, prompt, models.LangEN, "m", models.CacheRecipe)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, prompt, models.LangEN, "m", models.CacheCategories)
	assert.True(t, ok)
}

func TestEventsPostgresCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	events := NewEventService(NewEventServiceDB(db))

	events.Record(ctx, 1, models.EventRecipeGenerated, "Pancakes")
	events.Record(ctx, 2, models.EventRecipeGenerated, "Soup")
	events.Record(ctx, 2, models.EventQuotaExceeded, "text")

	counts, err := events.Counts(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []models.EventCount{
		{Type: models.EventQuotaExceeded, Count: 1},
		{Type: models.EventRecipeGenerated, Count: 2},
	}, counts)
}
