package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"chefbot_go_backend/internal/llm"
	"chefbot_go_backend/internal/models"
	"chefbot_go_backend/internal/prompts"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

const (
	maxCategories = 4
	maxDishes     = 6

	temperatureCategories = 0.2
	temperatureDishes     = 0.7
	temperatureRecipe     = 0.7
	temperatureValidation = 0.0
)

const categoriesSchema = `{
	"type": "object",
	"required": ["categories"],
	"properties": {
		"categories": {"type": "array", "items": {"type": "string"}}
	}
}`

const dishesSchema = `{
	"type": "object",
	"required": ["dishes"],
	"properties": {
		"dishes": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"category": {"type": "string"}
				}
			}
		}
	}
}`

const validationSchema = `{
	"type": "object",
	"required": ["valid"],
	"properties": {
		"valid": {"type": "boolean"}
	}
}`

var errRecipeDeclined = errors.New("recipe declined")

// RecipeRequest describes one recipe generation. Direct requests carry no products.
type RecipeRequest struct {
	Language  models.Language
	Dish      string
	Category  models.DishCategory
	Products  string
	Direct    bool
	Nutrition bool
}

type RecipeResult struct {
	Text     string
	Declined bool
}

type GenerationConfig struct {
	Timeout         time.Duration
	RefusalSentinel string
}

// GenerationService renders prompts, routes them through the response cache and
// validates structured answers before they are cached or returned.
type GenerationService struct {
	completer llm.Completer
	cache     ResponseCache
	prompts   *prompts.Registry
	cfg       GenerationConfig

	categoriesSchema *gojsonschema.Schema
	dishesSchema     *gojsonschema.Schema
	validationSchema *gojsonschema.Schema
}

func NewGenerationService(completer llm.Completer, cache ResponseCache, registry *prompts.Registry, cfg GenerationConfig) (*GenerationService, error) {
	s := &GenerationService{
		completer: completer,
		cache:     cache,
		prompts:   registry,
		cfg:       cfg,
	}
	var err error
	if s.categoriesSchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(categoriesSchema)); err != nil {
		return nil, fmt.Errorf("compile categories schema: %w", err)
	}
	if s.dishesSchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(dishesSchema)); err != nil {
		return nil, fmt.Errorf("compile dishes schema: %w", err)
	}
	if s.validationSchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(validationSchema)); err != nil {
		return nil, fmt.Errorf("compile validation schema: %w", err)
	}
	return s, nil
}

type completion struct {
	lang        models.Language
	prompt      PromptKey
	temperature float32
	json        bool
	category    models.CacheCategory
	// check rejects an answer; rejected answers are never cached.
	check func(text string) error
}

// complete serves the prompt from the cache or the backend. Backend errors and
// rejected answers are reported as ErrBackendFailure.
func (s *GenerationService) complete(ctx context.Context, c completion) (string, error) {
	model := s.completer.Model()
	if cached, ok := s.cache.Get(ctx, c.prompt, c.lang, model, c.category); ok {
		if c.check == nil || c.check(cached) == nil {
			return cached, nil
		}
		log.Debug().Str("category", string(c.category)).Msg("Ignoring unusable cached response")
	}

	res, err := s.completer.Complete(ctx, llm.CompletionRequest{
		System:      c.prompt.System,
		User:        c.prompt.User,
		Temperature: c.temperature,
		JSON:        c.json,
		Timeout:     s.cfg.Timeout,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	if c.check != nil {
		if err := c.check(res.Text); err != nil {
			return "", fmt.Errorf("%w: %w", ErrBackendFailure, err)
		}
	}

	if err := s.cache.Set(ctx, c.prompt, res.Text, c.lang, model, res.TokensUsed, c.category); err != nil {
		log.Warn().Err(err).Str("category", string(c.category)).Msg("Failed to cache model response")
	}
	return res.Text, nil
}

func (s *GenerationService) render(lang models.Language, id prompts.TemplateID, vars map[string]any) (PromptKey, error) {
	system, user, err := s.prompts.Render(lang, id, vars)
	if err != nil {
		return PromptKey{}, fmt.Errorf("render %s prompt: %w", id, err)
	}
	return PromptKey{System: system, User: user}, nil
}

// AnalyzeCategories returns up to four known categories, best first. An empty result
// means the text is not an ingredient list.
func (s *GenerationService) AnalyzeCategories(ctx context.Context, lang models.Language, products string) ([]models.DishCategory, error) {
	allowed := make([]string, 0, len(models.KnownCategories()))
	for _, c := range models.KnownCategories() {
		allowed = append(allowed, string(c))
	}
	prompt, err := s.render(lang, prompts.TemplateCategories, map[string]any{
		"allowed":  strings.Join(allowed, ", "),
		"products": products,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Categories []string `json:"categories"`
	}
	_, err = s.complete(ctx, completion{
		lang:        lang,
		prompt:      prompt,
		temperature: temperatureCategories,
		json:        true,
		category:    models.CacheCategories,
		check: func(text string) error {
			return decodeStructured(s.categoriesSchema, text, &out)
		},
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[models.DishCategory]bool)
	var categories []models.DishCategory
	for _, tag := range out.Categories {
		c := models.ParseCategory(tag)
		if c == models.CategoryUnknown || seen[c] {
			continue
		}
		seen[c] = true
		categories = append(categories, c)
		if len(categories) == maxCategories {
			break
		}
	}
	return categories, nil
}

// GenerateDishes returns up to six distinct dishes, all tagged with category.
func (s *GenerationService) GenerateDishes(ctx context.Context, lang models.Language, products string, category models.DishCategory) ([]models.Dish, error) {
	prompt, err := s.render(lang, prompts.TemplateDishes, map[string]any{
		"category": string(category),
		"products": products,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Dishes []models.Dish `json:"dishes"`
	}
	_, err = s.complete(ctx, completion{
		lang:        lang,
		prompt:      prompt,
		temperature: temperatureDishes,
		json:        true,
		category:    models.CacheDishList,
		check: func(text string) error {
			return decodeStructured(s.dishesSchema, text, &out)
		},
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var dishes []models.Dish
	for _, d := range out.Dishes {
		d.Name = strings.TrimSpace(d.Name)
		key := strings.ToLower(d.Name)
		if d.Name == "" || seen[key] {
			continue
		}
		seen[key] = true
		d.Description = strings.TrimSpace(d.Description)
		d.Category = category
		dishes = append(dishes, d)
		if len(dishes) == maxDishes {
			break
		}
	}
	if len(dishes) == 0 {
		return nil, fmt.Errorf("%w: no usable dishes", ErrBackendFailure)
	}
	return dishes, nil
}

const variantNutrition = "nutrition"

// GenerateRecipe writes the recipe text. An answer equal to the refusal sentinel is
// reported as Declined and never cached.
func (s *GenerationService) GenerateRecipe(ctx context.Context, req RecipeRequest) (RecipeResult, error) {
	vars := map[string]any{
		"refusal":  s.cfg.RefusalSentinel,
		"dish":     req.Dish,
		"category": string(req.Category),
		"products": req.Products,
	}
	id := prompts.TemplateRecipeInventory
	if req.Direct {
		id = prompts.TemplateRecipeDirect
	}
	prompt, err := s.render(req.Language, id, vars)
	if err != nil {
		return RecipeResult{}, err
	}
	if req.Nutrition {
		extra, _, err := s.prompts.Render(req.Language, prompts.TemplateNutrition, nil)
		if err != nil {
			return RecipeResult{}, fmt.Errorf("render nutrition prompt: %w", err)
		}
		prompt.System += "\n\n" + extra
		prompt.Variant = variantNutrition
	}

	text, err := s.complete(ctx, completion{
		lang:        req.Language,
		prompt:      prompt,
		temperature: temperatureRecipe,
		category:    models.CacheRecipe,
		check: func(text string) error {
			if strings.TrimSpace(text) == "" {
				return llm.ErrEmptyResponse
			}
			if s.isRefusal(text) {
				return errRecipeDeclined
			}
			return nil
		},
	})
	if errors.Is(err, errRecipeDeclined) {
		return RecipeResult{Declined: true}, nil
	}
	if err != nil {
		return RecipeResult{}, err
	}
	return RecipeResult{Text: strings.TrimSpace(text)}, nil
}

// ValidateDish asks whether dish names something cookable.
func (s *GenerationService) ValidateDish(ctx context.Context, lang models.Language, dish string) (bool, error) {
	prompt, err := s.render(lang, prompts.TemplateValidateDish, map[string]any{"dish": dish})
	if err != nil {
		return false, err
	}

	var out struct {
		Valid bool `json:"valid"`
	}
	_, err = s.complete(ctx, completion{
		lang:        lang,
		prompt:      prompt,
		temperature: temperatureValidation,
		json:        true,
		category:    models.CacheValidation,
		check: func(text string) error {
			return decodeStructured(s.validationSchema, text, &out)
		},
	})
	if err != nil {
		return false, err
	}
	return out.Valid, nil
}

func (s *GenerationService) isRefusal(text string) bool {
	return s.cfg.RefusalSentinel != "" && strings.TrimSpace(text) == s.cfg.RefusalSentinel
}

// decodeStructured validates text against schema and unmarshals it into out.
func decodeStructured(schema *gojsonschema.Schema, text string, out any) error {
	text = stripCodeFence(text)
	result, err := schema.Validate(gojsonschema.NewStringLoader(text))
	if err != nil {
		return fmt.Errorf("malformed json: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("unexpected json shape: %s", strings.Join(msgs, "; "))
	}
	return json.Unmarshal([]byte(text), out)
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
