package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	apperrors "chefbot_go_backend/internal/errors"
	"chefbot_go_backend/internal/models"
	"chefbot_go_backend/internal/services"
)

// Event types a gateway can forward.
const (
	EventText    = "text"
	EventVoice   = "voice"
	EventButton  = "button"
	EventCommand = "command"
)

// Dialogue is the transport-facing side of the dialogue orchestrator.
type Dialogue interface {
	HandleText(ctx context.Context, in services.Inbound, text string) services.Decision
	HandleVoice(ctx context.Context, in services.Inbound, audio []byte) services.Decision
	HandleButton(ctx context.Context, in services.Inbound, data string) services.Decision
	HandleCommand(ctx context.Context, in services.Inbound, command string) services.Decision
}

// EventRequest is one inbound chat event as forwarded by a gateway.
type EventRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	Username    string `json:"username"`
	Language    string `json:"language"`
	Type        string `json:"type" binding:"required"`
	Text        string `json:"text"`
	Data        string `json:"data"`
	AudioBase64 string `json:"audio_base64"`
}

// Dispatch routes the event to the orchestrator. Only malformed events are errors;
// every well-formed event yields a Decision.
func Dispatch(ctx context.Context, d Dialogue, req EventRequest) (services.Decision, error) {
	if req.UserID <= 0 {
		return services.Decision{}, apperrors.New400Error("user_id must be positive")
	}
	in := services.Inbound{
		UserID:   req.UserID,
		Username: req.Username,
		Language: models.ParseLanguage(req.Language),
	}

	switch req.Type {
	case EventText:
		return d.HandleText(ctx, in, req.Text), nil
	case EventVoice:
		audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil || len(audio) == 0 {
			return services.Decision{}, apperrors.New400Error("audio_base64 must be non-empty base64")
		}
		return d.HandleVoice(ctx, in, audio), nil
	case EventButton:
		if req.Data == "" {
			return services.Decision{}, apperrors.New400Error("data is required for button events")
		}
		return d.HandleButton(ctx, in, req.Data), nil
	case EventCommand:
		if strings.TrimSpace(req.Text) == "" {
			return services.Decision{}, apperrors.New400Error("text is required for command events")
		}
		return d.HandleCommand(ctx, in, req.Text), nil
	default:
		return services.Decision{}, apperrors.New400Error(fmt.Sprintf("unknown event type %q", req.Type))
	}
}
