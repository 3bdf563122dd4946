package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBilling records calls and returns canned Stripe data.
type fakeBilling struct {
	customers int
	canceled  []string
	lastURLs  [2]string
	err       error
	sub       StripeSubscriptionInfo
}

func (f *fakeBilling) GetOrCreateCustomer(email, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.customers++
	return "cus_" + userID, nil
}

func (f *fakeBilling) CreateCheckoutSession(customerID, userID, successURL, cancelURL string) (*CheckoutResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastURLs = [2]string{successURL, cancelURL}
	return &CheckoutResult{URL: "https://checkout.stripe.test/" + customerID, SessionID: "cs_1"}, nil
}

func (f *fakeBilling) GetSubscription(subscriptionID string) (*StripeSubscriptionInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	info := f.sub
	return &info, nil
}

func (f *fakeBilling) CancelSubscriptionAtPeriodEnd(subscriptionID string) (*StripeSubscriptionInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.canceled = append(f.canceled, subscriptionID)
	info := f.sub
	info.CancelAtPeriodEnd = true
	return &info, nil
}

var periodEnd = time.Date(2025, time.October, 15, 0, 0, 0, 0, time.UTC)

func TestGetSubscriptionStatus(t *testing.T) {
	svc, st := newTestService()

	resp, err := svc.GetSubscriptionStatus(testContext("user-1"), connect.NewRequest(&GetSubscriptionStatusRequest{}))
	require.NoError(t, err)
	assert.Equal(t, model.TierFree, resp.Msg.Tier)
	assert.Equal(t, model.StatusUnspecified, resp.Msg.Status)

	billing := &fakeBilling{sub: StripeSubscriptionInfo{ID: "sub_1", Status: "active", CurrentPeriodEnd: periodEnd}}
	svc.SetBilling(billing, "")
	require.NoError(t, st.UpdateUser(context.Background(), &model.User{
		ID:                   "user-1",
		SubscriptionTier:     model.TierPro,
		SubscriptionStatus:   model.StatusActive,
		StripeSubscriptionID: "sub_1",
	}))

	resp, err = svc.GetSubscriptionStatus(testContext("user-1"), connect.NewRequest(&GetSubscriptionStatusRequest{}))
	require.NoError(t, err)
	assert.Equal(t, model.TierPro, resp.Msg.Tier)
	assert.Equal(t, model.StatusActive, resp.Msg.Status)
	assert.Equal(t, periodEnd, resp.Msg.CurrentPeriodEnd)

	// Stripe being down does not fail the call.
	billing.err = errors.New("stripe unavailable")
	resp, err = svc.GetSubscriptionStatus(testContext("user-1"), connect.NewRequest(&GetSubscriptionStatusRequest{}))
	require.NoError(t, err)
	assert.Equal(t, model.TierPro, resp.Msg.Tier)
	assert.True(t, resp.Msg.CurrentPeriodEnd.IsZero())
}

func TestCreateCheckoutSession(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.CreateCheckoutSession(testContext("user-1"), connect.NewRequest(&CreateCheckoutSessionRequest{}))
		requireCode(t, err, connect.CodeUnavailable)
	})

	t.Run("creates the customer once", func(t *testing.T) {
		svc, st := newTestService()
		billing := &fakeBilling{}
		svc.SetBilling(billing, "https://app.reelin.test")

		resp, err := svc.CreateCheckoutSession(testContext("user-1"), connect.NewRequest(&CreateCheckoutSessionRequest{}))
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.stripe.test/cus_user-1", resp.Msg.URL)
		assert.Equal(t, "cs_1", resp.Msg.SessionID)
		assert.Equal(t, "https://app.reelin.test/settings/billing?checkout=success", billing.lastURLs[0])
		assert.Equal(t, "https://app.reelin.test/settings/billing?checkout=cancelled", billing.lastURLs[1])

		user, err := st.GetUser(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, "cus_user-1", user.StripeCustomerID)

		_, err = svc.CreateCheckoutSession(testContext("user-1"), connect.NewRequest(&CreateCheckoutSessionRequest{
			SuccessURL: "https://app.reelin.test/done",
		}))
		require.NoError(t, err)
		assert.Equal(t, 1, billing.customers)
		assert.Equal(t, "https://app.reelin.test/done", billing.lastURLs[0])
	})

	t.Run("already pro", func(t *testing.T) {
		svc, st := newTestService()
		svc.SetBilling(&fakeBilling{}, "")
		require.NoError(t, st.UpdateUser(context.Background(), &model.User{
			ID:                 "user-1",
			SubscriptionTier:   model.TierPro,
			SubscriptionStatus: model.StatusActive,
		}))
		_, err := svc.CreateCheckoutSession(testContext("user-1"), connect.NewRequest(&CreateCheckoutSessionRequest{}))
		requireCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("stripe error", func(t *testing.T) {
		svc, _ := newTestService()
		svc.SetBilling(&fakeBilling{err: errors.New("boom")}, "")
		_, err := svc.CreateCheckoutSession(testContext("user-1"), connect.NewRequest(&CreateCheckoutSessionRequest{}))
		requireCode(t, err, connect.CodeUnavailable)
	})
}

func TestCancelSubscription(t *testing.T) {
	svc, st := newTestService()
	billing := &fakeBilling{sub: StripeSubscriptionInfo{ID: "sub_1", Status: "active", CurrentPeriodEnd: periodEnd}}
	svc.SetBilling(billing, "")

	_, err := svc.CancelSubscription(testContext("user-1"), connect.NewRequest(&CancelSubscriptionRequest{}))
	requireCode(t, err, connect.CodeNotFound)

	require.NoError(t, st.UpdateUser(context.Background(), &model.User{ID: "user-1", SubscriptionTier: model.TierFree}))
	_, err = svc.CancelSubscription(testContext("user-1"), connect.NewRequest(&CancelSubscriptionRequest{}))
	requireCode(t, err, connect.CodeFailedPrecondition)

	require.NoError(t, st.UpdateUser(context.Background(), &model.User{
		ID:                   "user-1",
		SubscriptionTier:     model.TierPro,
		SubscriptionStatus:   model.StatusActive,
		StripeSubscriptionID: "sub_1",
	}))
	resp, err := svc.CancelSubscription(testContext("user-1"), connect.NewRequest(&CancelSubscriptionRequest{}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.CancelAtPeriodEnd)
	assert.Equal(t, model.StatusActive, resp.Msg.Status)
	assert.Equal(t, periodEnd, resp.Msg.CurrentPeriodEnd)
	assert.Equal(t, []string{"sub_1"}, billing.canceled)

	// Access continues until the webhook reports the end of the period.
	user, err := st.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.TierPro, user.SubscriptionTier)
}

func TestCancelSubscription_StatusChangeUpdatesClaims(t *testing.T) {
	svc, st := newTestService()
	svc.SetBilling(&fakeBilling{sub: StripeSubscriptionInfo{ID: "sub_1", Status: "past_due"}}, "")
	claims := &recordingClaims{}
	svc.SetClaimsUpdater(claims)
	require.NoError(t, st.UpdateUser(context.Background(), &model.User{
		ID:                   "user-1",
		SubscriptionTier:     model.TierPro,
		SubscriptionStatus:   model.StatusActive,
		StripeSubscriptionID: "sub_1",
	}))

	resp, err := svc.CancelSubscription(testContext("user-1"), connect.NewRequest(&CancelSubscriptionRequest{}))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPastDue, resp.Msg.Status)

	user, err := st.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPastDue, user.SubscriptionStatus)
	assert.Equal(t, []claimsCall{{"user-1", model.TierPro, model.StatusPastDue}}, claims.calls)
}
