package services

import (
	"bytes"
	"context"
	"testing"

	"chefbot_go_backend/internal/locales"
	"chefbot_go_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoritesExport(t *testing.T) {
	texts, err := locales.Default()
	require.NoError(t, err)
	db := newMemoryFavoritesDB()
	ctx := context.Background()
	require.NoError(t, db.UpsertFavoriteDB(ctx, &models.Favorite{
		UserID: 7, DishName: "Pancakes", Category: models.CategoryBreakfast, RecipeText: "1. Whisk.\n2. Fry.",
	}))
	require.NoError(t, db.UpsertFavoriteDB(ctx, &models.Favorite{UserID: 7, DishName: "Борщ"}))

	exporter := NewFavoritesExporter(NewFavoritesService(db), texts)
	var buf bytes.Buffer
	n, err := exporter.Export(ctx, 7, models.LangEN, &buf)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestFavoritesExportEmpty(t *testing.T) {
	texts, err := locales.Default()
	require.NoError(t, err)
	exporter := NewFavoritesExporter(NewFavoritesService(newMemoryFavoritesDB()), texts)

	var buf bytes.Buffer
	n, err := exporter.Export(context.Background(), 7, models.LangRU, &buf)

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NotZero(t, buf.Len())
}
