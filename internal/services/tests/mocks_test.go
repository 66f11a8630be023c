package services_test

import (
	"context"
	"time"

	"chefbot_go_backend/internal/models"
	"chefbot_go_backend/internal/services"

	"github.com/stretchr/testify/mock"
)

type MockAccountManager struct {
	mock.Mock
}

func (m *MockAccountManager) EnsureUser(ctx context.Context, telegramID int64, username string, lang models.Language) (*models.User, error) {
	args := m.Called(ctx, telegramID, username, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAccountManager) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockUsageLedger struct {
	mock.Mock
}

func (m *MockUsageLedger) CheckAndIncrement(ctx context.Context, telegramID int64, kind models.UsageKind) (services.UsageCheck, error) {
	args := m.Called(ctx, telegramID, kind)
	return args.Get(0).(services.UsageCheck), args.Error(1)
}

func (m *MockUsageLedger) ActivatePremium(ctx context.Context, telegramID int64, days int) (*models.User, error) {
	args := m.Called(ctx, telegramID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUsageLedger) CheckExpiry(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockUsageLedger) ProcessTrialActivations(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockUsageLedger) Status(ctx context.Context, telegramID int64) (services.UsageStatus, error) {
	args := m.Called(ctx, telegramID)
	return args.Get(0).(services.UsageStatus), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) AnalyzeCategories(ctx context.Context, lang models.Language, products string) ([]models.DishCategory, error) {
	args := m.Called(ctx, lang, products)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DishCategory), args.Error(1)
}

func (m *MockGenerator) GenerateDishes(ctx context.Context, lang models.Language, products string, category models.DishCategory) ([]models.Dish, error) {
	args := m.Called(ctx, lang, products, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Dish), args.Error(1)
}

func (m *MockGenerator) GenerateRecipe(ctx context.Context, req services.RecipeRequest) (services.RecipeResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(services.RecipeResult), args.Error(1)
}

func (m *MockGenerator) ValidateDish(ctx context.Context, lang models.Language, dish string) (bool, error) {
	args := m.Called(ctx, lang, dish)
	return args.Bool(0), args.Error(1)
}

type MockFavoritesManager struct {
	mock.Mock
}

func (m *MockFavoritesManager) Add(ctx context.Context, sess models.Session, index int) (*models.Favorite, error) {
	args := m.Called(ctx, sess, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Favorite), args.Error(1)
}

func (m *MockFavoritesManager) Remove(ctx context.Context, userID int64, dishName string) (bool, error) {
	args := m.Called(ctx, userID, dishName)
	return args.Bool(0), args.Error(1)
}

func (m *MockFavoritesManager) Page(ctx context.Context, userID int64, page int) ([]models.Favorite, int, error) {
	args := m.Called(ctx, userID, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.Favorite), args.Int(1), args.Error(2)
}

func (m *MockFavoritesManager) Get(ctx context.Context, userID int64, dishName string) (*models.Favorite, error) {
	args := m.Called(ctx, userID, dishName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Favorite), args.Error(1)
}

func (m *MockFavoritesManager) IsFavorite(ctx context.Context, userID int64, dishName string) (bool, error) {
	args := m.Called(ctx, userID, dishName)
	return args.Bool(0), args.Error(1)
}

func (m *MockFavoritesManager) ResolveEncodedName(ctx context.Context, userID int64, encoded string) (string, bool) {
	args := m.Called(ctx, userID, encoded)
	return args.String(0), args.Bool(1)
}

func (m *MockFavoritesManager) All(ctx context.Context, userID int64) ([]models.Favorite, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Favorite), args.Error(1)
}

type MockEventRecorder struct {
	mock.Mock
}

func (m *MockEventRecorder) Record(ctx context.Context, userID int64, eventType models.EventType, detail string) {
	m.Called(ctx, userID, eventType, detail)
}

func (m *MockEventRecorder) Counts(ctx context.Context, since time.Time) ([]models.EventCount, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EventCount), args.Error(1)
}

type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, langHint models.Language) string {
	args := m.Called(ctx, audio, langHint)
	return args.String(0)
}

type MockResponseCache struct {
	mock.Mock
}

func (m *MockResponseCache) Get(ctx context.Context, prompt services.PromptKey, lang models.Language, model string, category models.CacheCategory) (string, bool) {
	args := m.Called(ctx, prompt, lang, model, category)
	return args.String(0), args.Bool(1)
}

func (m *MockResponseCache) Set(ctx context.Context, prompt services.PromptKey, response string, lang models.Language, model string, tokensUsed int, category models.CacheCategory) error {
	args := m.Called(ctx, prompt, response, lang, model, tokensUsed, category)
	return args.Error(0)
}

func (m *MockResponseCache) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
