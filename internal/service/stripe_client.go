package service

import (
	"fmt"
	"time"

	"github.com/reelin/backend/internal/model"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	stripesub "github.com/stripe/stripe-go/v82/subscription"
)

// userIDMetadataKey links Stripe objects back to a Reelin user.
const userIDMetadataKey = "reelin_user_id"

// StripeClient wraps the Stripe API for the Pro subscription.
type StripeClient struct {
	priceID string
}

// NewStripeClient creates a Stripe wrapper. stripe.Key must be set before use.
func NewStripeClient(secretKey, priceID string) *StripeClient {
	stripe.Key = secretKey
	return &StripeClient{priceID: priceID}
}

// GetOrCreateCustomer finds a customer by email or creates one tagged with the user ID.
func (c *StripeClient) GetOrCreateCustomer(email, userID string) (string, error) {
	params := &stripe.CustomerSearchParams{}
	params.Query = fmt.Sprintf("email:'%s'", email)
	iter := customer.Search(params)
	for iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("search customers: %w", err)
	}

	cust, err := customer.New(&stripe.CustomerParams{
		Email:    stripe.String(email),
		Metadata: map[string]string{userIDMetadataKey: userID},
	})
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return cust.ID, nil
}

// CheckoutResult holds the result of creating a checkout session.
type CheckoutResult struct {
	URL       string
	SessionID string
}

// CreateCheckoutSession starts a subscription checkout for the Pro plan.
func (c *StripeClient) CreateCheckoutSession(customerID, userID, successURL, cancelURL string) (*CheckoutResult, error) {
	metadata := map[string]string{userIDMetadataKey: userID}
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(c.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		Metadata:   metadata,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutResult{URL: sess.URL, SessionID: sess.ID}, nil
}

// StripeSubscriptionInfo holds the parts of a Stripe subscription the app shows.
type StripeSubscriptionInfo struct {
	ID                string
	Status            stripe.SubscriptionStatus
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
}

// GetSubscription retrieves a Stripe subscription by ID.
func (c *StripeClient) GetSubscription(subscriptionID string) (*StripeSubscriptionInfo, error) {
	sub, err := stripesub.Get(subscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return subscriptionToInfo(sub), nil
}

// CancelSubscriptionAtPeriodEnd stops renewal; access continues until the period ends.
func (c *StripeClient) CancelSubscriptionAtPeriodEnd(subscriptionID string) (*StripeSubscriptionInfo, error) {
	sub, err := stripesub.Update(subscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}
	return subscriptionToInfo(sub), nil
}

// In stripe-go v82, CurrentPeriodEnd lives on the subscription items.
func subscriptionToInfo(sub *stripe.Subscription) *StripeSubscriptionInfo {
	var periodEnd time.Time
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		periodEnd = time.Unix(sub.Items.Data[0].CurrentPeriodEnd, 0)
	}
	return &StripeSubscriptionInfo{
		ID:                sub.ID,
		Status:            sub.Status,
		CurrentPeriodEnd:  periodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
}

// mapStripeStatus converts a Stripe subscription status.
func mapStripeStatus(status string) model.SubscriptionStatus {
	switch status {
	case "active":
		return model.StatusActive
	case "past_due":
		return model.StatusPastDue
	case "canceled", "unpaid":
		return model.StatusCanceled
	case "trialing":
		return model.StatusTrialing
	default:
		return model.StatusUnspecified
	}
}
