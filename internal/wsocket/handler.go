package wsocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"chefbot_go_backend/internal/api"
	apperrors "chefbot_go_backend/internal/errors"
	"chefbot_go_backend/internal/services"
	"chefbot_go_backend/internal/utils/broker"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Message types on the gateway socket.
const (
	TypeEvent    = "event"
	TypeDecision = "decision"
	TypeNotify   = "notify"
	TypeError    = "error"
	TypePing     = "ping"
	TypePong     = "pong"
)

const (
	writeWait         = 10 * time.Second
	defaultMaxPending = 32
)

// Message is one frame in either direction. Gateways send "event" frames and
// receive "decision", "notify" and "error" frames.
type Message struct {
	Type      string             `json:"type"`
	RequestID string             `json:"request_id,omitempty"`
	Event     *api.EventRequest  `json:"event,omitempty"`
	Decision  *services.Decision `json:"decision,omitempty"`
	UserID    int64              `json:"user_id,omitempty"`
	Text      string             `json:"text,omitempty"`
	Error     string             `json:"error,omitempty"`
}

type Handler struct {
	dialogue   api.Dialogue
	upgrader   websocket.Upgrader
	broker     *broker.Broker
	maxPending int
}

func NewHandler(dialogue api.Dialogue, upgrader websocket.Upgrader, messageBroker *broker.Broker) *Handler {
	return &Handler{
		dialogue:   dialogue,
		upgrader:   upgrader,
		broker:     messageBroker,
		maxPending: defaultMaxPending,
	}
}

// conn serializes writes; gorilla connections allow one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(msg)
}

// HandleWebSocket serves one gateway connection. Events are handled concurrently, up
// to maxPending at a time; notifications from the broker are forwarded as they arrive.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request, gateway string) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("gateway", gateway).Msg("Error upgrading connection")
		return
	}
	c := &conn{ws: ws}
	defer ws.Close()
	log.Info().Str("gateway", gateway).Msg("Gateway connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	notifications := h.broker.Subscribe(services.NotificationTopic)
	defer h.broker.Unsubscribe(services.NotificationTopic, notifications)
	go h.forwardNotifications(ctx, c, notifications)

	var wg sync.WaitGroup
	defer wg.Wait()
	pending := make(chan struct{}, h.maxPending)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("gateway", gateway).Msg("Gateway connection closed")
			}
			cancel()
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.send(Message{Type: TypeError, Error: "malformed message"})
			continue
		}

		switch msg.Type {
		case TypePing:
			c.send(Message{Type: TypePong, RequestID: msg.RequestID})
		case TypeEvent:
			if msg.Event == nil {
				c.send(Message{Type: TypeError, RequestID: msg.RequestID, Error: "event is required"})
				continue
			}
			pending <- struct{}{}
			wg.Add(1)
			go func(msg Message) {
				defer wg.Done()
				defer func() { <-pending }()
				c.send(h.handleEvent(ctx, msg))
			}(msg)
		default:
			c.send(Message{Type: TypeError, RequestID: msg.RequestID, Error: "unknown message type"})
		}
	}
}

func (h *Handler) handleEvent(ctx context.Context, msg Message) Message {
	decision, err := api.Dispatch(ctx, h.dialogue, *msg.Event)
	if err != nil {
		return Message{
			Type:      TypeError,
			RequestID: msg.RequestID,
			UserID:    msg.Event.UserID,
			Error:     apperrors.FromService(err).Message,
		}
	}
	return Message{
		Type:      TypeDecision,
		RequestID: msg.RequestID,
		UserID:    msg.Event.UserID,
		Decision:  &decision,
	}
}

func (h *Handler) forwardNotifications(ctx context.Context, c *conn, notifications <-chan interface{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-notifications:
			if !ok {
				return
			}
			n, ok := raw.(services.Notification)
			if !ok {
				continue
			}
			if err := c.send(Message{Type: TypeNotify, UserID: n.UserID, Text: n.Text}); err != nil {
				log.Warn().Err(err).Int64("user_id", n.UserID).Msg("Error sending notification")
				return
			}
		}
	}
}
