package services

import (
	"context"

	"chefbot_go_backend/internal/locales"
	"chefbot_go_backend/internal/models"

	"github.com/rs/zerolog/log"
)

// NotificationTopic is the broker topic carrying Notification values.
const NotificationTopic = "notifications"

// Notification is a message pushed to a user outside of a dialogue turn.
type Notification struct {
	UserID int64  `json:"user_id"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
}

type Publisher interface {
	Publish(topic string, msg interface{}) int
}

// Notifier renders notifications in the recipient's language and publishes them.
type Notifier struct {
	accounts  AccountManager
	texts     locales.Renderer
	publisher Publisher
}

func NewNotifier(accounts AccountManager, texts locales.Renderer, publisher Publisher) *Notifier {
	return &Notifier{accounts: accounts, texts: texts, publisher: publisher}
}

// Notify publishes the locale message key to userID. The kind doubles as the key.
func (n *Notifier) Notify(ctx context.Context, userID int64, key string, vars map[string]any) {
	lang := models.DefaultLanguage
	user, err := n.accounts.GetUser(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Notifying in the default language")
	} else {
		lang = user.Language
	}

	delivered := n.publisher.Publish(NotificationTopic, Notification{
		UserID: userID,
		Kind:   key,
		Text:   n.texts.Render(lang, key, vars),
	})
	if delivered == 0 {
		log.Debug().Int64("user_id", userID).Str("kind", key).Msg("No gateway connected for notification")
	}
}
