package services

import (
	"context"
	"errors"
	"time"

	"chefbot_go_backend/internal/models"
)

var (
	// ErrBackendFailure covers model call failures, timeouts and malformed structured output.
	ErrBackendFailure = errors.New("model backend failure")
	ErrSessionExpired = errors.New("session expired")
	ErrDishNotFound   = errors.New("dish not found")
	ErrUserNotFound   = errors.New("user not found")
)

// PromptKey is the prompt part of a response cache key. Variant separates answer
// modes whose prompts differ only past the hashed prefix; it is never truncated.
type PromptKey struct {
	System  string
	User    string
	Variant string
}

type ResponseCache interface {
	Get(ctx context.Context, prompt PromptKey, lang models.Language, model string, category models.CacheCategory) (string, bool)
	Set(ctx context.Context, prompt PromptKey, response string, lang models.Language, model string, tokensUsed int, category models.CacheCategory) error
	SweepExpired(ctx context.Context) (int64, error)
}

// SessionStore owns the volatile dialogue state of every user.
type SessionStore interface {
	Get(userID int64) models.Session
	Update(userID int64, fn func(*models.Session)) models.Session
	SetProducts(userID int64, products string)
	AppendProducts(userID int64, products string)
	SetCategories(userID int64, categories []models.DishCategory)
	SetGeneratedDishes(userID int64, dishes []models.Dish)
	SetCurrentDish(userID int64, dish *models.CurrentDish)
	AddMessage(userID int64, role, text string)
	Clear(userID int64)
	ActiveCount() int
	CleanupExpiredSessions() int
}

type AccountManager interface {
	EnsureUser(ctx context.Context, telegramID int64, username string, lang models.Language) (*models.User, error)
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
}

type UsageLedger interface {
	CheckAndIncrement(ctx context.Context, telegramID int64, kind models.UsageKind) (UsageCheck, error)
	ActivatePremium(ctx context.Context, telegramID int64, days int) (*models.User, error)
	CheckExpiry(ctx context.Context) ([]int64, error)
	ProcessTrialActivations(ctx context.Context) ([]int64, error)
	Status(ctx context.Context, telegramID int64) (UsageStatus, error)
}

// Generator produces the model-backed dialogue artifacts.
type Generator interface {
	AnalyzeCategories(ctx context.Context, lang models.Language, products string) ([]models.DishCategory, error)
	GenerateDishes(ctx context.Context, lang models.Language, products string, category models.DishCategory) ([]models.Dish, error)
	GenerateRecipe(ctx context.Context, req RecipeRequest) (RecipeResult, error)
	ValidateDish(ctx context.Context, lang models.Language, dish string) (bool, error)
}

type FavoritesManager interface {
	Add(ctx context.Context, sess models.Session, index int) (*models.Favorite, error)
	Remove(ctx context.Context, userID int64, dishName string) (bool, error)
	Page(ctx context.Context, userID int64, page int) ([]models.Favorite, int, error)
	Get(ctx context.Context, userID int64, dishName string) (*models.Favorite, error)
	IsFavorite(ctx context.Context, userID int64, dishName string) (bool, error)
	ResolveEncodedName(ctx context.Context, userID int64, encoded string) (string, bool)
	All(ctx context.Context, userID int64) ([]models.Favorite, error)
}

type EventRecorder interface {
	Record(ctx context.Context, userID int64, eventType models.EventType, detail string)
	Counts(ctx context.Context, since time.Time) ([]models.EventCount, error)
}

type serviceOptions struct {
	now func() time.Time
}

// ServiceOption customizes a service at construction time.
type ServiceOption func(*serviceOptions)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(o *serviceOptions) {
		o.now = now
	}
}

func applyOptions(opts []ServiceOption) serviceOptions {
	o := serviceOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
