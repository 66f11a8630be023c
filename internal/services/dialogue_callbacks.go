package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"chefbot_go_backend/internal/models"
)

// MaxCallbackBytes is the button payload budget of the chat transport.
const MaxCallbackBytes = 64

// maxEncodedNameBytes fits the longest favorite name prefix ("fav:show:").
const maxEncodedNameBytes = MaxCallbackBytes - len("fav:show:")

const (
	callbackCategory = "cat"
	callbackDish     = "dish"
	callbackNav      = "nav"
	callbackFavorite = "fav"

	NavRestart = "restart"
	NavBack    = "back"
	NavAnother = "another"

	FavAdd    = "add"
	FavRemove = "rm"
	FavPage   = "page"
	FavShow   = "show"
	FavDelete = "del"
)

// Callback is a decoded button payload.
type Callback struct {
	Kind     string
	Action   string
	Category models.DishCategory
	Index    int
	Token    string
	Page     int
	Name     string // transport-encoded dish name
}

func CategoryCallback(c models.DishCategory) string {
	return callbackCategory + ":" + string(c)
}

// DishToken is a short digest bound to a dish value at generation time. A button whose
// token no longer matches the dish at its index refers to a replaced list.
func DishToken(d models.Dish) string {
	sum := sha256.Sum256([]byte(d.Name + "\x00" + string(d.Category)))
	return hex.EncodeToString(sum[:4])
}

func DishCallback(index int, d models.Dish) string {
	return fmt.Sprintf("%s:%d:%s", callbackDish, index, DishToken(d))
}

func NavCallback(action string) string {
	return callbackNav + ":" + action
}

// FavoriteAddCallback carries the dish index when the recipe came from a dish list;
// pass a negative index for direct recipes.
func FavoriteAddCallback(index int) string {
	if index < 0 {
		return callbackFavorite + ":" + FavAdd
	}
	return fmt.Sprintf("%s:%s:%d", callbackFavorite, FavAdd, index)
}

func FavoriteRemoveCallback() string {
	return callbackFavorite + ":" + FavRemove
}

func FavoritePageCallback(page int) string {
	return fmt.Sprintf("%s:%s:%d", callbackFavorite, FavPage, page)
}

func FavoriteShowCallback(name string) string {
	return favoriteNameCallback(FavShow, name)
}

func FavoriteDeleteCallback(name string) string {
	return favoriteNameCallback(FavDelete, name)
}

func favoriteNameCallback(action, name string) string {
	return callbackFavorite + ":" + action + ":" + EncodeDishName(name, maxEncodedNameBytes)
}

// EncodeDishName maps spaces to '_' and truncates to maxBytes on a rune boundary. The
// encoding is lossy; names are recovered by matching stored favorites against it.
func EncodeDishName(name string, maxBytes int) string {
	enc := strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if len(enc) <= maxBytes {
		return enc
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(enc[cut]) {
		cut--
	}
	return enc[:cut]
}

// SelectDish resolves a dish button against the current list. A wrong state, an index
// out of range or a token that no longer matches the listed dish is ErrSessionExpired.
func SelectDish(sess models.Session, index int, token string) (models.Dish, error) {
	if sess.State != models.StateAwaitingDishChoice && sess.State != models.StateShowingRecipe {
		return models.Dish{}, ErrSessionExpired
	}
	if index < 0 || index >= len(sess.GeneratedDishes) {
		return models.Dish{}, ErrSessionExpired
	}
	dish := sess.GeneratedDishes[index]
	if DishToken(dish) != token {
		return models.Dish{}, ErrSessionExpired
	}
	return dish, nil
}

// ParseCallback decodes a button payload.
func ParseCallback(data string) (Callback, error) {
	parts := strings.SplitN(data, ":", 3)
	cb := Callback{Kind: parts[0], Index: -1}

	switch cb.Kind {
	case callbackCategory:
		if len(parts) != 2 {
			return Callback{}, fmt.Errorf("malformed category callback %q", data)
		}
		cb.Category = models.ParseCategory(parts[1])
		if cb.Category == models.CategoryUnknown {
			return Callback{}, fmt.Errorf("unknown category in callback %q", data)
		}
	case callbackDish:
		if len(parts) != 3 {
			return Callback{}, fmt.Errorf("malformed dish callback %q", data)
		}
		idx, err := strconv.Atoi(parts[1])
		if err != nil || idx < 0 {
			return Callback{}, fmt.Errorf("malformed dish index in %q", data)
		}
		cb.Index = idx
		cb.Token = parts[2]
	case callbackNav:
		if len(parts) != 2 {
			return Callback{}, fmt.Errorf("malformed nav callback %q", data)
		}
		switch parts[1] {
		case NavRestart, NavBack, NavAnother:
			cb.Action = parts[1]
		default:
			return Callback{}, fmt.Errorf("unknown nav action in %q", data)
		}
	case callbackFavorite:
		if len(parts) < 2 {
			return Callback{}, fmt.Errorf("malformed favorite callback %q", data)
		}
		cb.Action = parts[1]
		switch cb.Action {
		case FavAdd:
			if len(parts) == 3 {
				idx, err := strconv.Atoi(parts[2])
				if err != nil || idx < 0 {
					return Callback{}, fmt.Errorf("malformed favorite index in %q", data)
				}
				cb.Index = idx
			}
		case FavRemove:
		case FavPage:
			if len(parts) != 3 {
				return Callback{}, fmt.Errorf("malformed favorite page in %q", data)
			}
			page, err := strconv.Atoi(parts[2])
			if err != nil || page < 1 {
				return Callback{}, fmt.Errorf("malformed favorite page in %q", data)
			}
			cb.Page = page
		case FavShow, FavDelete:
			if len(parts) != 3 || parts[2] == "" {
				return Callback{}, fmt.Errorf("malformed favorite name in %q", data)
			}
			cb.Name = parts[2]
		default:
			return Callback{}, fmt.Errorf("unknown favorite action in %q", data)
		}
	default:
		return Callback{}, fmt.Errorf("unknown callback %q", data)
	}
	return cb, nil
}
