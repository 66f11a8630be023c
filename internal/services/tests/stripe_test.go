package services_test

import (
	"context"
	"testing"
	"time"

	"chefbot_go_backend/internal/locales"
	"chefbot_go_backend/internal/models"
	"chefbot_go_backend/internal/services"
	"chefbot_go_backend/internal/utils/broker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

func newStripeFixture(t *testing.T) (*services.StripeService, *MockUsageLedger, *MockAccountManager, <-chan interface{}) {
	t.Helper()
	texts, err := locales.Default()
	require.NoError(t, err)
	b := broker.NewBroker()
	updates := b.Subscribe(services.NotificationTopic)

	ledger := new(MockUsageLedger)
	accounts := new(MockAccountManager)
	events := new(MockEventRecorder)
	events.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

	svc := services.NewStripeService(services.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test",
		PriceCents:    499,
		PremiumDays:   30,
		SuccessURL:    "https://example.com/ok",
		CancelURL:     "https://example.com/cancel",
	}, ledger, events, services.NewNotifier(accounts, texts, b))
	return svc, ledger, accounts, updates
}

func TestStripeCheckoutParams(t *testing.T) {
	svc, _, _, _ := newStripeFixture(t)

	params := svc.CheckoutParams(42)

	assert.Equal(t, "42", *params.ClientReferenceID)
	assert.Equal(t, int64(499), *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "30", params.Metadata["premium_days"])
	assert.Equal(t, "https://example.com/ok", *params.SuccessURL)
}

func TestStripeProcessPaidSession(t *testing.T) {
	// Setup
	svc, ledger, accounts, updates := newStripeFixture(t)
	until := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ledger.On("ActivatePremium", mock.Anything, int64(42), 30).
		Return(&models.User{TelegramID: 42, IsPremium: true, PremiumUntil: &until}, nil).Once()
	accounts.On("GetUser", mock.Anything, int64(42)).Return(&models.User{TelegramID: 42, Language: models.LangEN}, nil)

	// Execute
	err := svc.ProcessCheckoutSession(context.Background(), stripe.CheckoutSession{
		ID:                "cs_1",
		ClientReferenceID: "42",
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:          map[string]string{"premium_days": "30"},
	})

	// Assert
	require.NoError(t, err)
	ledger.AssertExpectations(t)
	msg := (<-updates).(services.Notification)
	assert.Equal(t, "notify_premium", msg.Kind)
	assert.Contains(t, msg.Text, "2024-06-01")
}

func TestStripeProcessIgnoresUnpaidAndRejectsBadIDs(t *testing.T) {
	svc, ledger, _, _ := newStripeFixture(t)

	err := svc.ProcessCheckoutSession(context.Background(), stripe.CheckoutSession{
		ClientReferenceID: "42",
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusUnpaid,
	})
	require.NoError(t, err)

	err = svc.ProcessCheckoutSession(context.Background(), stripe.CheckoutSession{
		ClientReferenceID: "not-a-user",
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
	})
	assert.Error(t, err)
	ledger.AssertNotCalled(t, "ActivatePremium", mock.Anything, mock.Anything, mock.Anything)
}

func TestStripeVerifyWebhookRejectsBadSignature(t *testing.T) {
	svc, _, _, _ := newStripeFixture(t)

	_, err := svc.VerifyWebhook([]byte(`{"id":"evt_1","type":"checkout.session.completed"}`), "t=1,v1=deadbeef")

	assert.Error(t, err)
}
