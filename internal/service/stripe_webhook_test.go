package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

type claimsCall struct {
	uid    string
	tier   model.SubscriptionTier
	status model.SubscriptionStatus
}

type recordingClaims struct {
	calls []claimsCall
}

func (r *recordingClaims) SetSubscriptionClaims(ctx context.Context, uid string, tier model.SubscriptionTier, status model.SubscriptionStatus) error {
	r.calls = append(r.calls, claimsCall{uid, tier, status})
	return nil
}

func newTestWebhook() (*StripeWebhookHandler, *store.MemoryStore, *recordingClaims) {
	st := store.NewMemoryStore()
	claims := &recordingClaims{}
	h := NewStripeWebhookHandler(st, "whsec_test", claims)
	h.now = func() time.Time { return testNow }
	return h, st, claims
}

func stripeEvent(eventType string, obj map[string]any) stripe.Event {
	raw, _ := json.Marshal(obj)
	return stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleEvent_Lifecycle(t *testing.T) {
	h, st, claims := newTestWebhook()
	ctx := context.Background()
	meta := map[string]string{userIDMetadataKey: "user-1"}

	require.NoError(t, h.handleEvent(ctx, stripeEvent("checkout.session.completed", map[string]any{
		"id": "cs_1", "customer": "cus_1", "subscription": "sub_1", "metadata": meta,
	})))
	user, err := st.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.TierPro, user.SubscriptionTier)
	assert.Equal(t, model.StatusActive, user.SubscriptionStatus)
	assert.Equal(t, "cus_1", user.StripeCustomerID)
	assert.Equal(t, "sub_1", user.StripeSubscriptionID)

	require.NoError(t, h.handleEvent(ctx, stripeEvent("invoice.payment_failed", map[string]any{
		"id": "in_1", "customer": "cus_1",
		"subscription_details": map[string]any{"metadata": meta},
	})))
	user, err = st.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPastDue, user.SubscriptionStatus)

	require.NoError(t, h.handleEvent(ctx, stripeEvent("customer.subscription.updated", map[string]any{
		"id": "sub_1", "status": "active", "metadata": meta,
	})))
	user, err = st.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, user.SubscriptionStatus)

	require.NoError(t, h.handleEvent(ctx, stripeEvent("customer.subscription.deleted", map[string]any{
		"id": "sub_1", "status": "canceled", "metadata": meta,
	})))
	user, err = st.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.TierFree, user.SubscriptionTier)
	assert.Equal(t, model.StatusCanceled, user.SubscriptionStatus)

	require.Len(t, claims.calls, 4)
	assert.Equal(t, claimsCall{"user-1", model.TierPro, model.StatusActive}, claims.calls[0])
	assert.Equal(t, claimsCall{"user-1", model.TierFree, model.StatusCanceled}, claims.calls[3])
}

func TestHandleEvent_Ignored(t *testing.T) {
	h, st, claims := newTestWebhook()
	ctx := context.Background()

	// Unhandled types succeed so Stripe stops sending them.
	require.NoError(t, h.handleEvent(ctx, stripeEvent("customer.created", map[string]any{"id": "cus_1"})))

	err := h.handleEvent(ctx, stripeEvent("customer.subscription.updated", map[string]any{"id": "sub_1", "status": "active"}))
	assert.True(t, errors.Is(err, errIgnoredEvent))

	// Only a checkout may create the user.
	err = h.handleEvent(ctx, stripeEvent("invoice.payment_failed", map[string]any{
		"id": "in_1", "metadata": map[string]string{userIDMetadataKey: "ghost"},
	}))
	assert.True(t, errors.Is(err, errIgnoredEvent))
	_, err = st.GetUser(ctx, "ghost")
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.Empty(t, claims.calls)
}

func TestHandleWebhook(t *testing.T) {
	h, st, _ := newTestWebhook()

	t.Run("bad signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
		req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
		rec := httptest.NewRecorder()
		h.HandleWebhook(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("signed checkout", func(t *testing.T) {
		payload := fmt.Sprintf(`{
			"id": "evt_1",
			"object": "event",
			"api_version": %q,
			"type": "checkout.session.completed",
			"data": {"object": {"id": "cs_1", "customer": "cus_1", "subscription": "sub_1", "metadata": {%q: "user-1"}}}
		}`, stripe.APIVersion, userIDMetadataKey)
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload: []byte(payload),
			Secret:  "whsec_test",
		})

		req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(signed.Payload)))
		req.Header.Set("Stripe-Signature", signed.Header)
		rec := httptest.NewRecorder()
		h.HandleWebhook(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		user, err := st.GetUser(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, model.TierPro, user.SubscriptionTier)
	})

	t.Run("event that can never apply", func(t *testing.T) {
		payload := fmt.Sprintf(`{
			"id": "evt_2",
			"object": "event",
			"api_version": %q,
			"type": "customer.subscription.updated",
			"data": {"object": {"id": "sub_9", "status": "active"}}
		}`, stripe.APIVersion)
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload: []byte(payload),
			Secret:  "whsec_test",
		})

		req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(signed.Payload)))
		req.Header.Set("Stripe-Signature", signed.Header)
		rec := httptest.NewRecorder()
		h.HandleWebhook(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestMapStripeStatus(t *testing.T) {
	tests := map[string]model.SubscriptionStatus{
		"active":             model.StatusActive,
		"trialing":           model.StatusTrialing,
		"past_due":           model.StatusPastDue,
		"canceled":           model.StatusCanceled,
		"unpaid":             model.StatusCanceled,
		"incomplete_expired": model.StatusUnspecified,
	}
	for in, want := range tests {
		assert.Equal(t, want, mapStripeStatus(in), in)
	}
}
