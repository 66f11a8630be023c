// Package prompts holds the model prompt templates, keyed by language and template id.
package prompts

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"chefbot_go_backend/internal/models"
	"chefbot_go_backend/internal/utils/placeholder"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

//go:embed templates.toml
var embeddedTemplates []byte

// TemplateID names a prompt template.
type TemplateID string

const (
	TemplateCategories      TemplateID = "categories"
	TemplateDishes          TemplateID = "dishes"
	TemplateRecipeDirect    TemplateID = "recipe_direct"
	TemplateRecipeInventory TemplateID = "recipe_inventory"
	TemplateNutrition       TemplateID = "nutrition"
	TemplateValidateDish    TemplateID = "validate_dish"
)

// RequiredTemplates must all be present in the default language.
var RequiredTemplates = []TemplateID{
	TemplateCategories,
	TemplateDishes,
	TemplateRecipeDirect,
	TemplateRecipeInventory,
	TemplateNutrition,
	TemplateValidateDish,
}

// Template is a typed prompt with named placeholders.
type Template struct {
	ID           TemplateID
	Language     models.Language
	System       string
	User         string
	Placeholders []string
	// Inherited is set when the template was copied from the default language.
	Inherited bool
}

// Render fills the system and user bodies. Every placeholder must be supplied.
func (t *Template) Render(vars map[string]any) (system, user string, err error) {
	var missing []string
	for _, name := range t.Placeholders {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", "", fmt.Errorf("template %s/%s: missing values for %s", t.Language, t.ID, strings.Join(missing, ", "))
	}
	return placeholder.Fill(t.System, vars), placeholder.Fill(t.User, vars), nil
}

type rawTemplate struct {
	System string `toml:"system"`
	User   string `toml:"user"`
}

// Registry resolves templates by (language, id).
type Registry struct {
	mu        sync.RWMutex
	templates map[models.Language]map[TemplateID]*Template
}

var (
	defaultRegistry     *Registry
	defaultRegistryErr  error
	defaultRegistryOnce sync.Once
)

// Default returns the registry built from the embedded templates.
func Default() (*Registry, error) {
	defaultRegistryOnce.Do(func() {
		defaultRegistry, defaultRegistryErr = Load(embeddedTemplates)
	})
	return defaultRegistry, defaultRegistryErr
}

// Load parses a TOML template document and validates it. The default language must
// define every required template. Other supported languages must use exactly the same
// placeholder set per template; templates they lack are copied from the default language.
func Load(data []byte) (*Registry, error) {
	var raw map[string]map[string]rawTemplate
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}

	r := &Registry{templates: make(map[models.Language]map[TemplateID]*Template)}
	for code, byID := range raw {
		lang := models.ParseLanguage(code)
		if lang == models.LangUnknown || string(lang) != code {
			return nil, fmt.Errorf("templates: unsupported language %q", code)
		}
		set := make(map[TemplateID]*Template, len(byID))
		for id, rt := range byID {
			set[TemplateID(id)] = newTemplate(TemplateID(id), lang, rt.System, rt.User)
		}
		r.templates[lang] = set
	}

	base, ok := r.templates[models.DefaultLanguage]
	if !ok {
		return nil, fmt.Errorf("templates: default language %q is missing", models.DefaultLanguage)
	}
	for _, id := range RequiredTemplates {
		if _, ok := base[id]; !ok {
			return nil, fmt.Errorf("templates: %s/%s is missing", models.DefaultLanguage, id)
		}
	}

	for _, lang := range models.SupportedLanguages() {
		if lang == models.DefaultLanguage {
			continue
		}
		set, ok := r.templates[lang]
		if !ok {
			set = make(map[TemplateID]*Template)
			r.templates[lang] = set
		}
		for id, tmpl := range set {
			ref, ok := base[id]
			if !ok {
				return nil, fmt.Errorf("templates: %s/%s has no %s counterpart", lang, id, models.DefaultLanguage)
			}
			if !placeholder.SameSet(tmpl.Placeholders, ref.Placeholders) {
				return nil, fmt.Errorf("templates: %s/%s placeholders %v differ from %v",
					lang, id, tmpl.Placeholders, ref.Placeholders)
			}
		}
		for id, ref := range base {
			if _, ok := set[id]; ok {
				continue
			}
			inherited := *ref
			inherited.Language = lang
			inherited.Inherited = true
			set[id] = &inherited
			log.Debug().Str("language", string(lang)).Str("template", string(id)).Msg("Template filled from default language")
		}
	}

	return r, nil
}

func newTemplate(id TemplateID, lang models.Language, system, user string) *Template {
	names := append(placeholder.Names(system), placeholder.Names(user)...)
	sort.Strings(names)
	uniq := names[:0]
	for i, n := range names {
		if i == 0 || n != names[i-1] {
			uniq = append(uniq, n)
		}
	}
	return &Template{
		ID:           id,
		Language:     lang,
		System:       strings.TrimSpace(system),
		User:         strings.TrimSpace(user),
		Placeholders: uniq,
	}
}

// Get returns the template for lang, using the default language for unknown languages.
func (r *Registry) Get(lang models.Language, id TemplateID) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.templates[lang.OrDefault()]
	if !ok {
		set = r.templates[models.DefaultLanguage]
	}
	tmpl, ok := set[id]
	if !ok {
		return nil, fmt.Errorf("template not found: %s/%s", lang.OrDefault(), id)
	}
	return tmpl, nil
}

// Render looks up and fills a template.
func (r *Registry) Render(lang models.Language, id TemplateID, vars map[string]any) (system, user string, err error) {
	tmpl, err := r.Get(lang, id)
	if err != nil {
		return "", "", err
	}
	return tmpl.Render(vars)
}
