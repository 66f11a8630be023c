package services

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// directTriggers are the phrases that ask for a named dish straight away.
var directTriggers = []string{
	// en
	"recipe for", "recipe of", "a recipe for", "give me a recipe for", "show me a recipe for",
	"how to cook", "how to make", "how do i cook", "how do i make", "i want to cook",
	"make", "cook",
	// ru
	"рецепт", "рецепт для", "как приготовить", "как сделать", "приготовь", "хочу приготовить",
	"дай рецепт", "покажи рецепт",
	// es
	"receta de", "receta para", "una receta de", "cómo hacer", "como hacer", "cómo preparar",
	"como preparar", "cómo cocinar", "como cocinar", "quiero cocinar", "prepara", "cocina",
}

func init() {
	// longest first so "recipe for" wins over "recipe"-style prefixes
	sort.SliceStable(directTriggers, func(i, j int) bool {
		return utf8.RuneCountInString(directTriggers[i]) > utf8.RuneCountInString(directTriggers[j])
	})
}

// ParseDirectRequest extracts the dish name from messages such as "recipe for tomato
// soup". Text that does not start with a trigger phrase is not a direct request.
func ParseDirectRequest(text string) (string, bool) {
	text = strings.TrimSpace(text)
	for _, trigger := range directTriggers {
		rest, ok := cutPrefixFold(text, trigger)
		if !ok {
			continue
		}
		// the trigger must be a whole phrase
		if rest == "" || !strings.HasPrefix(rest, " ") {
			continue
		}
		dish := strings.Trim(strings.TrimSpace(rest), " ?!.,:;\"'«»")
		if dish == "" {
			continue
		}
		return dish, true
	}
	return "", false
}

func cutPrefixFold(text, prefix string) (string, bool) {
	n := utf8.RuneCountInString(prefix)
	i := 0
	for pos := range text {
		if i == n {
			if strings.EqualFold(text[:pos], prefix) {
				return text[pos:], true
			}
			return "", false
		}
		i++
	}
	if i == n && strings.EqualFold(text, prefix) {
		return "", true
	}
	return "", false
}
