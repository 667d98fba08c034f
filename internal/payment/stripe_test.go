package payment

import (
	"errors"
	"testing"
	"time"

	"cinebook/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func newTestGateway(t *testing.T) *StripeGateway {
	t.Helper()
	g, err := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", WebhookSecret: testWebhookSecret}, logger.Discard())
	require.NoError(t, err)
	return g
}

func signed(t *testing.T, payload string) ([]byte, string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func TestNewStripeGateway_RequiresSecrets(t *testing.T) {
	_, err := NewStripeGateway(StripeConfig{WebhookSecret: "x"}, logger.Discard())
	assert.Error(t, err)

	_, err = NewStripeGateway(StripeConfig{SecretKey: "x"}, logger.Discard())
	assert.Error(t, err)
}

func TestParseWebhook_CheckoutCompleted(t *testing.T) {
	g := newTestGateway(t)
	payload, sig := signed(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"payment_status": "paid",
			"payment_intent": "pi_1",
			"metadata": {"booking_id": "65f000000000000000000001"}
		}}
	}`)

	ev, err := g.ParseWebhook(payload, sig)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, "cs_test_1", ev.SessionID)
	assert.Equal(t, "pi_1", ev.PaymentIntentID)
	assert.Equal(t, "65f000000000000000000001", ev.BookingID)
	assert.True(t, ev.Settles())
}

func TestParseWebhook_UnpaidCheckoutDoesNotSettle(t *testing.T) {
	g := newTestGateway(t)
	payload, sig := signed(t, `{
		"id": "evt_2",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_2", "object": "checkout.session", "payment_status": "unpaid", "client_reference_id": "b-2"}}
	}`)

	ev, err := g.ParseWebhook(payload, sig)
	require.NoError(t, err)
	assert.Equal(t, "b-2", ev.BookingID)
	assert.False(t, ev.Settles())
}

func TestParseWebhook_PaymentIntentSucceeded(t *testing.T) {
	g := newTestGateway(t)
	payload, sig := signed(t, `{
		"id": "evt_3",
		"object": "event",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_3", "object": "payment_intent", "metadata": {"booking_id": "b-3"}}}
	}`)

	ev, err := g.ParseWebhook(payload, sig)
	require.NoError(t, err)
	assert.Equal(t, "pi_3", ev.PaymentIntentID)
	assert.Equal(t, "b-3", ev.BookingID)
	assert.Empty(t, ev.SessionID)
	assert.True(t, ev.Settles())
}

func TestParseWebhook_RejectsBadSignature(t *testing.T) {
	g := newTestGateway(t)
	payload, _ := signed(t, `{"id": "evt_4", "object": "event", "type": "checkout.session.completed", "data": {"object": {}}}`)

	_, err := g.ParseWebhook(payload, "t=1,v1=deadbeef")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSignature))
}

func TestWebhookEvent_SettlesIgnoresOtherTypes(t *testing.T) {
	ev := &WebhookEvent{Type: "charge.refunded", PaymentStatus: PaymentStatusPaid}
	assert.False(t, ev.Settles())
}
