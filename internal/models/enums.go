package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Language is a closed set of supported interface languages. Values are encoded as
// plain strings in the database and decoded through ParseLanguage on read.
type Language string

const (
	LangEN      Language = "en"
	LangRU      Language = "ru"
	LangES      Language = "es"
	LangUnknown Language = "unknown"
)

// DefaultLanguage is used for rendering whenever a language is unknown.
const DefaultLanguage = LangEN

var supportedLanguages = []Language{LangEN, LangRU, LangES}

// SupportedLanguages lists every language with templates and locale strings.
func SupportedLanguages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// ParseLanguage normalizes a client language code ("en-US", "RU") into a Language.
// Unrecognized codes yield LangUnknown rather than an error.
func ParseLanguage(code string) Language {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	for _, l := range supportedLanguages {
		if string(l) == code {
			return l
		}
	}
	return LangUnknown
}

// OrDefault returns the default language for LangUnknown.
func (l Language) OrDefault() Language {
	if l == LangUnknown || l == "" {
		return DefaultLanguage
	}
	return l
}

func (l Language) Value() (driver.Value, error) {
	return string(l), nil
}

func (l *Language) Scan(src interface{}) error {
	s, err := scanString(src)
	if err != nil {
		return err
	}
	*l = ParseLanguage(s)
	return nil
}

// DishCategory is a dish classification returned by category analysis.
type DishCategory string

const (
	CategoryBreakfast DishCategory = "breakfast"
	CategorySoup      DishCategory = "soup"
	CategorySalad     DishCategory = "salad"
	CategoryMain      DishCategory = "main"
	CategorySide      DishCategory = "side"
	CategoryDessert   DishCategory = "dessert"
	CategoryBaking    DishCategory = "baking"
	CategorySnack     DishCategory = "snack"
	CategoryDrink     DishCategory = "drink"
	CategoryUnknown   DishCategory = "unknown"
)

var knownCategories = []DishCategory{
	CategoryBreakfast, CategorySoup, CategorySalad, CategoryMain, CategorySide,
	CategoryDessert, CategoryBaking, CategorySnack, CategoryDrink,
}

// KnownCategories returns every category the model may pick from.
func KnownCategories() []DishCategory {
	out := make([]DishCategory, len(knownCategories))
	copy(out, knownCategories)
	return out
}

// ParseCategory decodes a category tag. Unknown tags become CategoryUnknown.
func ParseCategory(tag string) DishCategory {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, c := range knownCategories {
		if string(c) == tag {
			return c
		}
	}
	return CategoryUnknown
}

func (c DishCategory) Value() (driver.Value, error) {
	return string(c), nil
}

func (c *DishCategory) Scan(src interface{}) error {
	s, err := scanString(src)
	if err != nil {
		return err
	}
	*c = ParseCategory(s)
	return nil
}

// CacheCategory classifies cached model responses and selects their TTL.
type CacheCategory string

const (
	CacheRecipe     CacheCategory = "recipe"
	CacheDishList   CacheCategory = "dish_list"
	CacheCategories CacheCategory = "category_analysis"
	CacheValidation CacheCategory = "validation"
)

// IsVolatile reports whether responses of this category are per-session artifacts
// that get the short TTL.
func (c CacheCategory) IsVolatile() bool {
	return c == CacheRecipe || c == CacheDishList
}

// CacheTTLs maps cache categories onto their lifetimes.
type CacheTTLs struct {
	Short time.Duration
	Long  time.Duration
}

// For returns the TTL of the given category.
func (t CacheTTLs) For(c CacheCategory) time.Duration {
	if c.IsVolatile() {
		return t.Short
	}
	return t.Long
}

// TrialStatus tracks the one-time delayed trial grant.
type TrialStatus string

const (
	TrialPending TrialStatus = "pending"
	TrialActive  TrialStatus = "active"
	TrialNone    TrialStatus = "none"
)

func (s TrialStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *TrialStatus) Scan(src interface{}) error {
	v, err := scanString(src)
	if err != nil {
		return err
	}
	switch TrialStatus(v) {
	case TrialPending, TrialActive:
		*s = TrialStatus(v)
	default:
		*s = TrialNone
	}
	return nil
}

// UsageKind selects which daily counter a request draws from.
type UsageKind string

const (
	UsageText  UsageKind = "text"
	UsageVoice UsageKind = "voice"
)

func scanString(src interface{}) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("cannot scan %T into string enum", src)
	}
}
