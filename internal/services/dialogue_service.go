package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"chefbot_go_backend/internal/llm"
	"chefbot_go_backend/internal/locales"
	"chefbot_go_backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Inbound identifies the sender of a chat event.
type Inbound struct {
	UserID   int64
	Username string
	Language models.Language
}

// Button is one interactive choice offered with a reply.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Decision is the orchestrator's answer to one event. Changed is set when the event
// rewrote the session; State is the dialogue state after the event.
type Decision struct {
	Text     string               `json:"text"`
	Keyboard [][]Button           `json:"keyboard,omitempty"`
	State    models.DialogueState `json:"state"`
	Changed  bool                 `json:"changed"`
}

// DialogueService drives the ingredients -> category -> dish -> recipe conversation.
// It never returns errors: every failure becomes a localized Decision.
type DialogueService struct {
	sessions    SessionStore
	accounts    AccountManager
	ledger      UsageLedger
	generator   Generator
	favorites   FavoritesManager
	events      EventRecorder
	transcriber llm.Transcriber
	texts       locales.Renderer
	now         func() time.Time
}

func NewDialogueService(
	sessions SessionStore,
	accounts AccountManager,
	ledger UsageLedger,
	generator Generator,
	favorites FavoritesManager,
	events EventRecorder,
	transcriber llm.Transcriber,
	texts locales.Renderer,
	opts ...ServiceOption,
) *DialogueService {
	o := applyOptions(opts)
	return &DialogueService{
		sessions:    sessions,
		accounts:    accounts,
		ledger:      ledger,
		generator:   generator,
		favorites:   favorites,
		events:      events,
		transcriber: transcriber,
		texts:       texts,
		now:         o.now,
	}
}

// turn carries the per-event context shared by the handlers.
type turn struct {
	ctx  context.Context
	user *models.User
	lang models.Language
	sess models.Session
}

func (t *turn) id() int64 { return t.user.TelegramID }

func (s *DialogueService) begin(ctx context.Context, in Inbound) (*turn, *Decision) {
	user, err := s.accounts.EnsureUser(ctx, in.UserID, in.Username, in.Language)
	if err != nil {
		log.Error().Err(err).Int64("user_id", in.UserID).Msg("Failed to load account")
		d := Decision{
			Text:  s.texts.Render(in.Language, "generic_error", nil),
			State: s.sessions.Get(in.UserID).State,
		}
		return nil, &d
	}
	lang := in.Language
	if lang.OrDefault() != lang {
		lang = user.Language
	}
	return &turn{ctx: ctx, user: user, lang: lang.OrDefault(), sess: s.sessions.Get(in.UserID)}, nil
}

func (s *DialogueService) render(t *turn, key string, vars map[string]any) string {
	return s.texts.Render(t.lang, key, vars)
}

func (s *DialogueService) reply(t *turn, text string, kb [][]Button) Decision {
	return Decision{Text: text, Keyboard: kb, State: t.sess.State}
}

func (s *DialogueService) replyChanged(sess models.Session, text string, kb [][]Button) Decision {
	return Decision{Text: text, Keyboard: kb, State: sess.State, Changed: true}
}

func (s *DialogueService) fail(t *turn, key string, err error, msg string) Decision {
	log.Error().Err(err).Int64("user_id", t.id()).Str("state", string(t.sess.State)).Msg(msg)
	return s.reply(t, s.render(t, key, nil), s.restartKeyboard(t))
}

func (s *DialogueService) expired(t *turn) Decision {
	return s.reply(t, s.render(t, "session_expired", nil), s.restartKeyboard(t))
}

// charge draws one request from the user's daily quota. A nil Decision means the
// request may proceed.
func (s *DialogueService) charge(t *turn, kind models.UsageKind) *Decision {
	check, err := s.ledger.CheckAndIncrement(t.ctx, t.id(), kind)
	if err != nil {
		d := s.fail(t, "generic_error", err, "Failed to check usage quota")
		return &d
	}
	if check.Allowed {
		return nil
	}
	s.events.Record(t.ctx, t.id(), models.EventQuotaExceeded, string(kind))
	key := "quota_text"
	if kind == models.UsageVoice {
		key = "quota_voice"
	}
	d := s.reply(t, s.render(t, key, map[string]any{"used": check.Used, "limit": check.Limit}), nil)
	return &d
}

// HandleText processes a typed message: a direct dish request or an ingredient list.
func (s *DialogueService) HandleText(ctx context.Context, in Inbound, text string) Decision {
	t, denied := s.begin(ctx, in)
	if denied != nil {
		return *denied
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return s.reply(t, s.render(t, "ask_products", nil), nil)
	}
	if d := s.charge(t, models.UsageText); d != nil {
		return *d
	}
	return s.processText(t, text)
}

// HandleVoice charges the voice quota, transcribes and then treats the transcript as
// typed text without a second charge.
func (s *DialogueService) HandleVoice(ctx context.Context, in Inbound, audio []byte) Decision {
	t, denied := s.begin(ctx, in)
	if denied != nil {
		return *denied
	}
	if d := s.charge(t, models.UsageVoice); d != nil {
		return *d
	}
	text := strings.TrimSpace(s.transcriber.Transcribe(ctx, audio, t.lang))
	if text == "" {
		return s.reply(t, s.render(t, "voice_not_recognized", nil), nil)
	}
	s.events.Record(ctx, t.id(), models.EventVoiceTranscribed, "")

	d := s.processText(t, text)
	d.Text = s.render(t, "voice_heard", map[string]any{"text": text}) + "\n\n" + d.Text
	return d
}

func (s *DialogueService) processText(t *turn, text string) Decision {
	s.sessions.AddMessage(t.id(), models.RoleUser, text)
	var d Decision
	if dish, ok := ParseDirectRequest(text); ok {
		d = s.directRecipe(t, dish)
	} else {
		d = s.analyzeProducts(t, text)
	}
	s.sessions.AddMessage(t.id(), models.RoleAssistant, d.Text)
	return d
}

func (s *DialogueService) analyzeProducts(t *turn, text string) Decision {
	appending := t.sess.State == models.StateAwaitingCategoryChoice || t.sess.State == models.StateAwaitingDishChoice
	products := text
	if appending {
		products = joinProducts(t.sess.Products, text)
	}

	categories, err := s.generator.AnalyzeCategories(t.ctx, t.lang, products)
	if err != nil {
		return s.fail(t, "generation_error", err, "Category analysis failed")
	}
	if len(categories) == 0 {
		return s.reply(t, s.render(t, "no_categories", nil), nil)
	}

	if appending {
		s.sessions.AppendProducts(t.id(), text)
	} else {
		s.sessions.SetProducts(t.id(), text)
	}
	s.sessions.SetCategories(t.id(), categories)
	sess := s.sessions.Update(t.id(), func(sess *models.Session) {
		sess.State = models.StateAwaitingCategoryChoice
		sess.GeneratedDishes = nil
		sess.CurrentDish = nil
		sess.LastRecipe = ""
	})

	tags := make([]string, len(categories))
	for i, c := range categories {
		tags[i] = string(c)
	}
	s.events.Record(t.ctx, t.id(), models.EventCategoriesGenerated, strings.Join(tags, ","))

	text = s.render(t, "choose_category", map[string]any{"products": sess.Products})
	return s.replyChanged(sess, text, s.categoryKeyboard(t, sess.Categories))
}

func (s *DialogueService) directRecipe(t *turn, dish string) Decision {
	valid, err := s.generator.ValidateDish(t.ctx, t.lang, dish)
	if err != nil {
		return s.fail(t, "generation_error", err, "Dish validation failed")
	}
	if !valid {
		return s.reply(t, s.render(t, "not_a_dish", map[string]any{"dish": dish}), nil)
	}
	return s.recipe(t, &models.CurrentDish{Name: dish, Direct: true}, -1)
}

// recipe pins dish, generates its recipe from the pinned value and moves the dialogue
// to ShowingRecipe. index is the dish list position, or -1 for direct requests.
func (s *DialogueService) recipe(t *turn, dish *models.CurrentDish, index int) Decision {
	previous := t.sess.CurrentDish
	s.sessions.SetCurrentDish(t.id(), dish)
	pinned := s.sessions.Get(t.id())
	if pinned.CurrentDish == nil {
		return s.expired(t)
	}
	current := *pinned.CurrentDish

	req := RecipeRequest{
		Language:  t.lang,
		Dish:      current.Name,
		Category:  current.Category,
		Direct:    current.Direct,
		Nutrition: t.user.PremiumActive(s.now()),
	}
	if !current.Direct {
		req.Products = pinned.Products
	}
	res, err := s.generator.GenerateRecipe(t.ctx, req)
	if err != nil {
		s.sessions.SetCurrentDish(t.id(), previous)
		return s.fail(t, "generation_error", err, "Recipe generation failed")
	}
	if res.Declined {
		s.sessions.SetCurrentDish(t.id(), nil)
		s.events.Record(t.ctx, t.id(), models.EventRecipeDeclined, current.Name)
		return s.reply(t, s.render(t, "recipe_declined", nil), s.restartKeyboard(t))
	}

	sess := s.sessions.Update(t.id(), func(sess *models.Session) {
		sess.State = models.StateShowingRecipe
		sess.LastRecipe = res.Text
	})
	s.events.Record(t.ctx, t.id(), models.EventRecipeGenerated, current.Name)

	if current.Direct {
		return s.replyChanged(sess, res.Text, s.restartKeyboard(t))
	}
	favorited, err := s.favorites.IsFavorite(t.ctx, t.id(), current.Name)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", t.id()).Msg("Failed to look up favorite state")
	}
	return s.replyChanged(sess, res.Text, s.recipeKeyboard(t, current, index, favorited))
}

// HandleButton processes a button payload.
func (s *DialogueService) HandleButton(ctx context.Context, in Inbound, data string) Decision {
	t, denied := s.begin(ctx, in)
	if denied != nil {
		return *denied
	}
	cb, err := ParseCallback(data)
	if err != nil {
		log.Debug().Err(err).Int64("user_id", t.id()).Msg("Rejected button payload")
		return s.expired(t)
	}

	switch cb.Kind {
	case callbackCategory:
		return s.chooseCategory(t, cb.Category)
	case callbackDish:
		return s.chooseDish(t, cb.Index, cb.Token)
	case callbackNav:
		return s.navigate(t, cb.Action)
	case callbackFavorite:
		return s.favoriteAction(t, cb)
	}
	return s.expired(t)
}

func (s *DialogueService) chooseCategory(t *turn, category models.DishCategory) Decision {
	if t.sess.State == models.StateAwaitingInput || t.sess.Products == "" || !containsCategory(t.sess.Categories, category) {
		return s.expired(t)
	}
	dishes, err := s.generator.GenerateDishes(t.ctx, t.lang, t.sess.Products, category)
	if err != nil {
		return s.fail(t, "generation_error", err, "Dish generation failed")
	}

	s.sessions.SetGeneratedDishes(t.id(), dishes)
	sess := s.sessions.Update(t.id(), func(sess *models.Session) {
		sess.State = models.StateAwaitingDishChoice
		sess.CurrentDish = nil
		sess.LastRecipe = ""
	})
	s.events.Record(t.ctx, t.id(), models.EventDishesGenerated, string(category))
	s.sessions.AddMessage(t.id(), models.RoleAssistant, s.render(t, "choose_dish", nil))

	return s.replyChanged(sess, s.render(t, "choose_dish", nil), s.dishKeyboard(t, sess.GeneratedDishes))
}

func (s *DialogueService) chooseDish(t *turn, index int, token string) Decision {
	dish, err := SelectDish(t.sess, index, token)
	if err != nil {
		return s.expired(t)
	}
	s.sessions.AddMessage(t.id(), models.RoleUser, dish.Name)
	d := s.recipe(t, &models.CurrentDish{Name: dish.Name, Category: dish.Category}, index)
	s.sessions.AddMessage(t.id(), models.RoleAssistant, d.Text)
	return d
}

func (s *DialogueService) navigate(t *turn, action string) Decision {
	switch action {
	case NavRestart:
		sess := s.sessions.Update(t.id(), func(sess *models.Session) {
			sess.State = models.StateAwaitingInput
		})
		return s.replyChanged(sess, s.render(t, "ask_products", nil), nil)

	case NavBack:
		if !afterCategoryChoice(t.sess.State) || len(t.sess.Categories) == 0 {
			return s.expired(t)
		}
		sess := s.sessions.Update(t.id(), func(sess *models.Session) {
			sess.State = models.StateAwaitingCategoryChoice
		})
		text := s.render(t, "choose_category", map[string]any{"products": sess.Products})
		return s.replyChanged(sess, text, s.categoryKeyboard(t, sess.Categories))

	case NavAnother:
		if !afterCategoryChoice(t.sess.State) || len(t.sess.GeneratedDishes) == 0 {
			return s.expired(t)
		}
		sess := s.sessions.Update(t.id(), func(sess *models.Session) {
			sess.State = models.StateAwaitingDishChoice
		})
		return s.replyChanged(sess, s.render(t, "choose_dish", nil), s.dishKeyboard(t, sess.GeneratedDishes))
	}
	return s.expired(t)
}

func (s *DialogueService) favoriteAction(t *turn, cb Callback) Decision {
	switch cb.Action {
	case FavAdd:
		fav, err := s.favorites.Add(t.ctx, t.sess, cb.Index)
		if errors.Is(err, ErrDishNotFound) {
			return s.reply(t, s.render(t, "dish_not_found", nil), s.restartKeyboard(t))
		}
		if err != nil {
			return s.fail(t, "generic_error", err, "Failed to add favorite")
		}
		s.events.Record(t.ctx, t.id(), models.EventFavoriteAdded, fav.DishName)
		dish := models.CurrentDish{Name: fav.DishName, Category: fav.Category}
		if t.sess.CurrentDish != nil {
			dish.Direct = t.sess.CurrentDish.Direct
		}
		text := s.render(t, "favorite_added", map[string]any{"dish": fav.DishName})
		return s.reply(t, text, s.recipeKeyboard(t, dish, cb.Index, true))

	case FavRemove:
		if t.sess.CurrentDish == nil {
			return s.reply(t, s.render(t, "dish_not_found", nil), s.restartKeyboard(t))
		}
		dish := *t.sess.CurrentDish
		if !s.removeFavorite(t, dish.Name) {
			return s.reply(t, s.render(t, "favorite_remove_failed", nil), nil)
		}
		text := s.render(t, "favorite_removed", map[string]any{"dish": dish.Name})
		return s.reply(t, text, s.recipeKeyboard(t, dish, s.dishIndex(t, dish), false))

	case FavPage:
		return s.favoritesPage(t, cb.Page)

	case FavShow:
		name, ok := s.favorites.ResolveEncodedName(t.ctx, t.id(), cb.Name)
		if !ok {
			return s.reply(t, s.render(t, "dish_not_found", nil), nil)
		}
		fav, err := s.favorites.Get(t.ctx, t.id(), name)
		if errors.Is(err, ErrDishNotFound) {
			return s.reply(t, s.render(t, "dish_not_found", nil), nil)
		}
		if err != nil {
			return s.fail(t, "generic_error", err, "Failed to load favorite")
		}
		text := fav.DishName
		if fav.RecipeText != "" {
			text += "\n\n" + fav.RecipeText
		}
		return s.reply(t, text, [][]Button{
			{{Text: s.render(t, "btn_delete", nil), Data: FavoriteDeleteCallback(fav.DishName)}},
			{{Text: s.render(t, "btn_back", nil), Data: FavoritePageCallback(1)}},
		})

	case FavDelete:
		name, ok := s.favorites.ResolveEncodedName(t.ctx, t.id(), cb.Name)
		if !ok || !s.removeFavorite(t, name) {
			return s.reply(t, s.render(t, "favorite_remove_failed", nil), nil)
		}
		d := s.favoritesPage(t, 1)
		d.Text = s.render(t, "favorite_removed", map[string]any{"dish": name}) + "\n\n" + d.Text
		return d
	}
	return s.expired(t)
}

func (s *DialogueService) removeFavorite(t *turn, name string) bool {
	removed, err := s.favorites.Remove(t.ctx, t.id(), name)
	if err != nil {
		log.Error().Err(err).Int64("user_id", t.id()).Msg("Failed to remove favorite")
		return false
	}
	if removed {
		s.events.Record(t.ctx, t.id(), models.EventFavoriteRemoved, name)
	}
	return removed
}

func (s *DialogueService) favoritesPage(t *turn, page int) Decision {
	favs, pages, err := s.favorites.Page(t.ctx, t.id(), page)
	if err != nil {
		return s.fail(t, "generic_error", err, "Failed to list favorites")
	}
	if pages == 0 {
		return s.reply(t, s.render(t, "favorites_empty", nil), nil)
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	kb := make([][]Button, 0, len(favs)+1)
	for _, f := range favs {
		kb = append(kb, []Button{{Text: f.DishName, Data: FavoriteShowCallback(f.DishName)}})
	}
	var nav []Button
	if page > 1 {
		nav = append(nav, Button{Text: s.render(t, "btn_prev", nil), Data: FavoritePageCallback(page - 1)})
	}
	if page < pages {
		nav = append(nav, Button{Text: s.render(t, "btn_next", nil), Data: FavoritePageCallback(page + 1)})
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}
	text := s.render(t, "favorites_header", map[string]any{"page": page, "pages": pages})
	return s.reply(t, text, kb)
}

// HandleCommand processes a slash command such as "/start".
func (s *DialogueService) HandleCommand(ctx context.Context, in Inbound, command string) Decision {
	t, denied := s.begin(ctx, in)
	if denied != nil {
		return *denied
	}
	command = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(command), "/"))
	if i := strings.IndexAny(command, " @"); i >= 0 {
		command = command[:i]
	}

	switch command {
	case "start":
		s.sessions.Clear(t.id())
		sess := s.sessions.Update(t.id(), func(sess *models.Session) {
			sess.State = models.StateAwaitingInput
		})
		return s.replyChanged(sess, s.render(t, "welcome", map[string]any{"name": displayName(t.user)}), nil)
	case "help":
		return s.reply(t, s.render(t, "help", nil), nil)
	case "favorites":
		return s.favoritesPage(t, 1)
	case "status":
		return s.status(t)
	}
	return s.reply(t, s.render(t, "unknown_command", nil), nil)
}

func (s *DialogueService) status(t *turn) Decision {
	st, err := s.ledger.Status(t.ctx, t.id())
	if err != nil {
		return s.fail(t, "generic_error", err, "Failed to load usage status")
	}
	vars := map[string]any{
		"text_used":   st.TextUsed,
		"text_limit":  st.TextLimit,
		"voice_used":  st.VoiceUsed,
		"voice_limit": st.VoiceLimit,
	}
	key := "status_free"
	if st.Premium {
		key = "status_premium"
		vars["until"] = "-"
		if st.PremiumUntil != nil {
			vars["until"] = st.PremiumUntil.Format("2006-01-02")
		}
	}
	return s.reply(t, s.render(t, key, vars), nil)
}

func (s *DialogueService) restartKeyboard(t *turn) [][]Button {
	return [][]Button{{{Text: s.render(t, "btn_restart", nil), Data: NavCallback(NavRestart)}}}
}

func (s *DialogueService) categoryKeyboard(t *turn, categories []models.DishCategory) [][]Button {
	var kb [][]Button
	var row []Button
	for _, c := range categories {
		row = append(row, Button{Text: s.render(t, "category_"+string(c), nil), Data: CategoryCallback(c)})
		if len(row) == 2 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	return append(kb, s.restartKeyboard(t)...)
}

func (s *DialogueService) dishKeyboard(t *turn, dishes []models.Dish) [][]Button {
	kb := make([][]Button, 0, len(dishes)+2)
	for i, d := range dishes {
		kb = append(kb, []Button{{Text: d.Name, Data: DishCallback(i, d)}})
	}
	kb = append(kb, []Button{{Text: s.render(t, "btn_back", nil), Data: NavCallback(NavBack)}})
	return append(kb, s.restartKeyboard(t)...)
}

// recipeKeyboard offers the favorites toggle matching the stored state. Direct recipes
// only get the restart button.
func (s *DialogueService) recipeKeyboard(t *turn, dish models.CurrentDish, index int, favorited bool) [][]Button {
	if dish.Direct {
		return s.restartKeyboard(t)
	}
	toggle := Button{Text: s.render(t, "btn_fav_add", nil), Data: FavoriteAddCallback(index)}
	if favorited {
		toggle = Button{Text: s.render(t, "btn_fav_rm", nil), Data: FavoriteRemoveCallback()}
	}
	kb := [][]Button{
		{toggle},
		{
			{Text: s.render(t, "btn_another", nil), Data: NavCallback(NavAnother)},
			{Text: s.render(t, "btn_back", nil), Data: NavCallback(NavBack)},
		},
	}
	return append(kb, s.restartKeyboard(t)...)
}

func (s *DialogueService) dishIndex(t *turn, dish models.CurrentDish) int {
	if dish.Direct {
		return -1
	}
	for i, d := range t.sess.GeneratedDishes {
		if d.Name == dish.Name {
			return i
		}
	}
	return -1
}

func afterCategoryChoice(state models.DialogueState) bool {
	return state == models.StateAwaitingDishChoice || state == models.StateShowingRecipe
}

func containsCategory(categories []models.DishCategory, c models.DishCategory) bool {
	for _, x := range categories {
		if x == c {
			return true
		}
	}
	return false
}

func displayName(u *models.User) string {
	if u.Username != "" {
		return u.Username
	}
	return "chef"
}
