// Package locales renders user-facing strings. Lookups fall back to the default
// language and then to the key itself, so rendering never fails.
package locales

import (
	_ "embed"
	"fmt"
	"sync"

	"chefbot_go_backend/internal/models"
	"chefbot_go_backend/internal/utils/placeholder"

	"github.com/BurntSushi/toml"
)

//go:embed locales.toml
var embeddedLocales []byte

// Renderer is the lookup surface consumed by the dialogue core.
type Renderer interface {
	Render(lang models.Language, key string, vars map[string]any) string
}

// Catalog holds the messages of every supported language.
type Catalog struct {
	messages map[models.Language]map[string]string
}

var (
	defaultCatalog     *Catalog
	defaultCatalogErr  error
	defaultCatalogOnce sync.Once
)

// Default returns the catalog built from the embedded messages.
func Default() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = Load(embeddedLocales)
	})
	return defaultCatalog, defaultCatalogErr
}

// Load parses a TOML message document with one table per language.
func Load(data []byte) (*Catalog, error) {
	var raw map[string]map[string]string
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode locales: %w", err)
	}
	c := &Catalog{messages: make(map[models.Language]map[string]string)}
	for code, msgs := range raw {
		lang := models.ParseLanguage(code)
		if lang == models.LangUnknown {
			return nil, fmt.Errorf("locales: unsupported language %q", code)
		}
		c.messages[lang] = msgs
	}
	if _, ok := c.messages[models.DefaultLanguage]; !ok {
		return nil, fmt.Errorf("locales: default language %q is missing", models.DefaultLanguage)
	}
	return c, nil
}

// Render returns the message for key in lang with placeholders filled.
func (c *Catalog) Render(lang models.Language, key string, vars map[string]any) string {
	return placeholder.Fill(c.lookup(lang.OrDefault(), key), vars)
}

// Has reports whether key exists in the default language.
func (c *Catalog) Has(key string) bool {
	_, ok := c.messages[models.DefaultLanguage][key]
	return ok
}

func (c *Catalog) lookup(lang models.Language, key string) string {
	if msg, ok := c.messages[lang][key]; ok {
		return msg
	}
	if msg, ok := c.messages[models.DefaultLanguage][key]; ok {
		return msg
	}
	return key
}
