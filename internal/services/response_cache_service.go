package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"chefbot_go_backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ResponseCacheService deduplicates model calls. It is not an at-most-once cache:
// concurrent misses for one key may both reach the backend and both write.
type ResponseCacheService struct {
	db           ResponseCacheDB
	ttls         models.CacheTTLs
	promptPrefix int
	now          func() time.Time
}

func NewResponseCacheService(db ResponseCacheDB, ttls models.CacheTTLs, promptPrefix int, opts ...ServiceOption) *ResponseCacheService {
	o := applyOptions(opts)
	return &ResponseCacheService{
		db:           db,
		ttls:         ttls,
		promptPrefix: promptPrefix,
		now:          o.now,
	}
}

// CacheKey hashes the normalized prompt segments, each cut to prefix runes, together
// with the variant, language and model. Prompts sharing a prefix and variant collide;
// prefix <= 0 hashes the full text.
func CacheKey(prompt PromptKey, lang models.Language, model string, prefix int) string {
	h := sha256.New()
	h.Write([]byte(normalizePrompt(prompt.System, prefix)))
	h.Write([]byte("|"))
	h.Write([]byte(normalizePrompt(prompt.User, prefix)))
	h.Write([]byte("|"))
	h.Write([]byte(prompt.Variant))
	h.Write([]byte("|"))
	h.Write([]byte(lang.OrDefault()))
	h.Write([]byte("|"))
	h.Write([]byte(model))
	return hex.EncodeToString(h.Sum(nil))
}

func normalizePrompt(text string, prefix int) string {
	text = strings.Join(strings.Fields(text), " ")
	if prefix <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) > prefix {
		runes = runes[:prefix]
	}
	return string(runes)
}

// Get returns the stored response unless it is missing or expired. Expired rows are
// left for SweepExpired.
func (s *ResponseCacheService) Get(ctx context.Context, prompt PromptKey, lang models.Language, model string, category models.CacheCategory) (string, bool) {
	key := CacheKey(prompt, lang, model, s.promptPrefix)
	entry, err := s.db.GetCacheEntryDB(ctx, key, category)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Str("category", string(category)).Msg("Response cache lookup failed")
		}
		return "", false
	}
	if entry.IsExpired(s.now()) {
		return "", false
	}
	return entry.Response, true
}

// Set upserts the response with a fresh category TTL.
func (s *ResponseCacheService) Set(ctx context.Context, prompt PromptKey, response string, lang models.Language, model string, tokensUsed int, category models.CacheCategory) error {
	entry := &models.CacheEntry{
		PromptHash: CacheKey(prompt, lang, model, s.promptPrefix),
		Category:   category,
		Language:   lang.OrDefault(),
		Model:      model,
		Response:   response,
		TokensUsed: tokensUsed,
		ExpiresAt:  s.now().Add(s.ttls.For(category)),
	}
	return s.db.UpsertCacheEntryDB(ctx, entry)
}

func (s *ResponseCacheService) SweepExpired(ctx context.Context) (int64, error) {
	return s.db.DeleteExpiredCacheEntriesDB(ctx, s.now())
}
