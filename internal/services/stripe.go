package services

import (
	"context"
	"fmt"
	"strconv"

	"chefbot_go_backend/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceCents    int64
	PremiumDays   int
	SuccessURL    string
	CancelURL     string
	// IgnoreAPIVersionMismatch accepts events from the Stripe CLI during local testing.
	IgnoreAPIVersionMismatch bool
}

// StripeService sells premium through Stripe Checkout and applies completed payments
// to the usage ledger.
type StripeService struct {
	cfg      StripeConfig
	ledger   UsageLedger
	events   EventRecorder
	notifier *Notifier
}

func NewStripeService(cfg StripeConfig, ledger UsageLedger, events EventRecorder, notifier *Notifier) *StripeService {
	stripe.Key = cfg.SecretKey
	return &StripeService{
		cfg:      cfg,
		ledger:   ledger,
		events:   events,
		notifier: notifier,
	}
}

// CheckoutParams builds the checkout session request for one premium period.
func (s *StripeService) CheckoutParams(userID int64) *stripe.CheckoutSessionParams {
	amount := s.cfg.PriceCents
	return &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Premium, %d days", s.cfg.PremiumDays)),
					},
					UnitAmount: &amount,
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		ClientReferenceID: stripe.String(strconv.FormatInt(userID, 10)),
		Metadata: map[string]string{
			"premium_days": strconv.Itoa(s.cfg.PremiumDays),
		},
	}
}

func (s *StripeService) CreateCheckoutSession(userID int64) (*stripe.CheckoutSession, error) {
	return session.New(s.CheckoutParams(userID))
}

// VerifyWebhook checks the signature header against the configured endpoint secret.
func (s *StripeService) VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signatureHeader, s.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: s.cfg.IgnoreAPIVersionMismatch,
	})
}

// ProcessCheckoutSession grants premium for a paid session. Unpaid sessions are ignored.
func (s *StripeService) ProcessCheckoutSession(ctx context.Context, cs stripe.CheckoutSession) error {
	userID, err := strconv.ParseInt(cs.ClientReferenceID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user ID %q: %w", cs.ClientReferenceID, err)
	}
	if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		log.Info().Int64("user_id", userID).Str("status", string(cs.PaymentStatus)).Msg("Ignoring unpaid checkout session")
		return nil
	}

	days := s.cfg.PremiumDays
	if v, ok := cs.Metadata["premium_days"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}

	user, err := s.ledger.ActivatePremium(ctx, userID, days)
	if err != nil {
		return fmt.Errorf("activate premium: %w", err)
	}
	s.events.Record(ctx, userID, models.EventPremiumActivated, cs.ID)

	until := "-"
	if user.PremiumUntil != nil {
		until = user.PremiumUntil.Format("2006-01-02")
	}
	s.notifier.Notify(ctx, userID, "notify_premium", map[string]any{"until": until})
	return nil
}
