package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"chefbot_go_backend/internal/auth"
	apperrors "chefbot_go_backend/internal/errors"
	"chefbot_go_backend/internal/models"
	"chefbot_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v79"
)

const (
	maxEventBytes   = int64(10 << 20)
	maxWebhookBytes = int64(65536)
	statsWindow     = 24 * time.Hour
)

type FavoritesExporter interface {
	Export(ctx context.Context, userID int64, lang models.Language, w io.Writer) (int, error)
}

type UsageReporter interface {
	Status(ctx context.Context, telegramID int64) (services.UsageStatus, error)
}

type Payments interface {
	CreateCheckoutSession(userID int64) (*stripe.CheckoutSession, error)
	VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error)
	ProcessCheckoutSession(ctx context.Context, cs stripe.CheckoutSession) error
}

type SessionStats interface {
	ActiveCount() int
	CleanupExpiredSessions() int
}

// Services bundles what the HTTP facade needs.
type Services struct {
	Dialogue  Dialogue
	Accounts  services.AccountManager
	Favorites services.FavoritesManager
	Exporter  FavoritesExporter
	Usage     UsageReporter
	Payments  Payments
	Sessions  SessionStats
	Events    services.EventRecorder
}

func SetupRoutes(r *gin.Engine, svc Services, gatewaySecret string) {
	r.Use(RequestID())

	api := r.Group("/api")
	{
		api.POST("/events", auth.AuthMiddleware(gatewaySecret), postEventHandler(svc.Dialogue))
		api.GET("/users/:id/favorites", auth.AuthMiddleware(gatewaySecret), getFavoritesHandler(svc.Favorites))
		api.GET("/users/:id/favorites/export", auth.AuthMiddleware(gatewaySecret), exportFavoritesHandler(svc.Accounts, svc.Exporter))
		api.GET("/users/:id/usage", auth.AuthMiddleware(gatewaySecret), getUsageHandler(svc.Usage))
		api.POST("/users/:id/premium/checkout", auth.AuthMiddleware(gatewaySecret), createCheckoutHandler(svc.Accounts, svc.Payments))
		api.GET("/stats", auth.AuthMiddleware(gatewaySecret), getStatsHandler(svc.Sessions, svc.Events))
		api.POST("/stripe/webhook", stripeWebhookHandler(svc.Payments))
	}
}

// RequestID tags every request with an X-Request-ID and a request-scoped logger.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		logger := log.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apperrors.HandleError(c, apperrors.New400Error("Invalid user id"))
		return 0, false
	}
	return id, true
}

func postEventHandler(dialogue Dialogue) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxEventBytes)

		var request EventRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}

		decision, err := Dispatch(c.Request.Context(), dialogue, request)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		zerolog.Ctx(c.Request.Context()).Debug().
			Int64("user_id", request.UserID).
			Str("kind", request.Type).
			Str("state", string(decision.State)).
			Msg("Event handled")
		c.JSON(http.StatusOK, decision)
	}
}

func getFavoritesHandler(favorites services.FavoritesManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		page := 1
		if p := c.Query("page"); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil {
				apperrors.HandleError(c, apperrors.New400Error("Invalid page"))
				return
			}
			page = n
		}

		items, pages, err := favorites.Page(c.Request.Context(), userID, page)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		if page < 1 {
			page = 1
		}
		if pages > 0 && page > pages {
			page = pages
		}
		if items == nil {
			items = []models.Favorite{}
		}
		c.JSON(http.StatusOK, gin.H{
			"items": items,
			"page":  page,
			"pages": pages,
		})
	}
}

func exportFavoritesHandler(accounts services.AccountManager, exporter FavoritesExporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		user, err := accounts.GetUser(c.Request.Context(), userID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		var buf bytes.Buffer
		count, err := exporter.Export(c.Request.Context(), userID, user.Language, &buf)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		zerolog.Ctx(c.Request.Context()).Info().Int64("user_id", userID).Int("count", count).Msg("Favorites exported")
		c.Header("Content-Disposition", `attachment; filename="favorites.pdf"`)
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}

func getUsageHandler(usage UsageReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		status, err := usage.Status(c.Request.Context(), userID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func createCheckoutHandler(accounts services.AccountManager, payments Payments) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		if _, err := accounts.GetUser(c.Request.Context(), userID); err != nil {
			apperrors.HandleError(c, err)
			return
		}

		session, err := payments.CreateCheckoutSession(userID)
		if err != nil {
			apperrors.HandleError(c, apperrors.LogAndReturn500(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id": session.ID,
			"url":        session.URL,
		})
	}
}

func getStatsHandler(sessions SessionStats, events services.EventRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		evicted := sessions.CleanupExpiredSessions()
		counts, err := events.Counts(c.Request.Context(), time.Now().Add(-statsWindow))
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		if counts == nil {
			counts = []models.EventCount{}
		}
		c.JSON(http.StatusOK, gin.H{
			"active_sessions": sessions.ActiveCount(),
			"evicted":         evicted,
			"events_24h":      counts,
		})
	}
}

func stripeWebhookHandler(payments Payments) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
		logger := zerolog.Ctx(c.Request.Context())

		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.Error().Err(err).Msg("Error reading webhook body")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
			return
		}

		event, err := payments.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			logger.Warn().Err(err).Msg("Error verifying webhook signature")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to verify webhook signature"})
			return
		}

		switch event.Type {
		case "checkout.session.completed":
			var session stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
				logger.Error().Err(err).Msg("Error parsing checkout session")
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse checkout session"})
				return
			}
			if err := payments.ProcessCheckoutSession(c.Request.Context(), session); err != nil {
				logger.Error().Err(err).Str("session_id", session.ID).Msg("Error processing checkout session")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process checkout session"})
				return
			}
		default:
			logger.Debug().Str("kind", string(event.Type)).Msg("Unhandled webhook event type")
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
