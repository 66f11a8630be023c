package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"chefbot_go_backend/internal/models"

	"gorm.io/gorm"
)

// FavoritesPageSize is the number of favorites per listing page.
const FavoritesPageSize = 5

// FavoritesService binds session dish references to persisted favorites.
type FavoritesService struct {
	db  FavoritesServiceDB
	now func() time.Time
}

func NewFavoritesService(db FavoritesServiceDB, opts ...ServiceOption) *FavoritesService {
	o := applyOptions(opts)
	return &FavoritesService{db: db, now: o.now}
}

// ResolveDish picks the dish a favorites action refers to: the pinned current dish
// first, then generated_dishes[index] when still in bounds. Anything else is
// ErrDishNotFound; the service never guesses.
func ResolveDish(sess models.Session, index int) (models.CurrentDish, error) {
	if sess.CurrentDish != nil && sess.CurrentDish.Name != "" {
		return *sess.CurrentDish, nil
	}
	if index >= 0 && index < len(sess.GeneratedDishes) {
		d := sess.GeneratedDishes[index]
		return models.CurrentDish{Name: d.Name, Category: d.Category}, nil
	}
	return models.CurrentDish{}, ErrDishNotFound
}

// Add saves the resolved dish. The recipe text is the session's last recipe when it
// belongs to that dish. Re-adding overwrites the stored recipe.
func (s *FavoritesService) Add(ctx context.Context, sess models.Session, index int) (*models.Favorite, error) {
	dish, err := ResolveDish(sess, index)
	if err != nil {
		return nil, err
	}
	fav := &models.Favorite{
		UserID:   sess.UserID,
		DishName:  strings.TrimSpace(dish.Name),
		Category:  dish.Category,
		UpdatedAt: s.now(),
	}
	if sess.CurrentDish != nil && sess.CurrentDish.Name == dish.Name {
		fav.RecipeText = sess.LastRecipe
	}
	if err := s.db.UpsertFavoriteDB(ctx, fav); err != nil {
		return nil, err
	}
	return fav, nil
}

// Remove deletes by exact name and reports whether a row went away.
func (s *FavoritesService) Remove(ctx context.Context, userID int64, dishName string) (bool, error) {
	if dishName == "" {
		return false, nil
	}
	return s.db.DeleteFavoriteDB(ctx, userID, dishName)
}

// Page returns the 1-based page of favorites and the page count. Out-of-range pages
// are clamped.
func (s *FavoritesService) Page(ctx context.Context, userID int64, page int) ([]models.Favorite, int, error) {
	if page < 1 {
		page = 1
	}
	favs, total, err := s.db.ListFavoritesDB(ctx, userID, (page-1)*FavoritesPageSize, FavoritesPageSize)
	if err != nil {
		return nil, 0, err
	}
	totalPages := int((total + FavoritesPageSize - 1) / FavoritesPageSize)
	if totalPages == 0 {
		return nil, 0, nil
	}
	if page > totalPages {
		return s.Page(ctx, userID, totalPages)
	}
	return favs, totalPages, nil
}

func (s *FavoritesService) Get(ctx context.Context, userID int64, dishName string) (*models.Favorite, error) {
	fav, err := s.db.GetFavoriteDB(ctx, userID, dishName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDishNotFound
	}
	return fav, err
}

func (s *FavoritesService) IsFavorite(ctx context.Context, userID int64, dishName string) (bool, error) {
	_, err := s.Get(ctx, userID, dishName)
	if errors.Is(err, ErrDishNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ResolveEncodedName reconstructs a stored dish name from its transport encoding. It
// succeeds only when exactly one stored name encodes to the same payload, so an
// ambiguous or truncated reference fails instead of touching the wrong record.
func (s *FavoritesService) ResolveEncodedName(ctx context.Context, userID int64, encoded string) (string, bool) {
	names, err := s.db.ListFavoriteNamesDB(ctx, userID)
	if err != nil {
		return "", false
	}
	match := ""
	for _, name := range names {
		if EncodeDishName(name, maxEncodedNameBytes) != encoded {
			continue
		}
		if match != "" {
			return "", false
		}
		match = name
	}
	return match, match != ""
}

// All returns every favorite of the user, newest first.
func (s *FavoritesService) All(ctx context.Context, userID int64) ([]models.Favorite, error) {
	favs, _, err := s.db.ListFavoritesDB(ctx, userID, 0, -1)
	return favs, err
}
