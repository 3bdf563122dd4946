package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/store"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

// StripeWebhookHandler handles Stripe webhook events
type StripeWebhookHandler struct {
	store         store.Store
	webhookSecret string
	claims        ClaimsUpdater
	now           func() time.Time
}

// NewStripeWebhookHandler creates a new Stripe webhook handler. claims may be nil.
func NewStripeWebhookHandler(s store.Store, webhookSecret string, claims ClaimsUpdater) *StripeWebhookHandler {
	return &StripeWebhookHandler{store: s, webhookSecret: webhookSecret, claims: claims, now: time.Now}
}

func (h *StripeWebhookHandler) log() *zap.Logger {
	return logging.L().With(zap.String("component", "stripe"))
}

// HandleWebhook processes incoming Stripe webhook events
func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	event, err := webhook.ConstructEvent(body, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.log().Warn("webhook signature verification failed", zap.Error(err))
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	if err := h.handleEvent(r.Context(), event); err != nil {
		h.log().Error("webhook event failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
		// A 5xx makes Stripe redeliver the event.
		if !errors.Is(err, errIgnoredEvent) {
			http.Error(w, "event processing failed", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"received": true}`)
}

// errIgnoredEvent marks events that can never succeed, so redelivery is pointless.
var errIgnoredEvent = errors.New("ignored event")

// eventObject is the subset of checkout sessions, subscriptions and invoices we read.
type eventObject struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata"`

	// Invoices carry the subscription's metadata here.
	SubscriptionDetails struct {
		Metadata map[string]string `json:"metadata"`
	} `json:"subscription_details"`
}

func (o eventObject) userID() string {
	if id := o.Metadata[userIDMetadataKey]; id != "" {
		return id
	}
	return o.SubscriptionDetails.Metadata[userIDMetadataKey]
}

func (h *StripeWebhookHandler) handleEvent(ctx context.Context, event stripe.Event) error {
	var obj eventObject
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return fmt.Errorf("%w: parse %s: %v", errIgnoredEvent, event.Type, err)
	}

	var apply func(*model.User)
	switch event.Type {
	case "checkout.session.completed":
		apply = func(u *model.User) {
			u.StripeCustomerID = obj.Customer
			u.StripeSubscriptionID = obj.Subscription
			u.SubscriptionTier = model.TierPro
			u.SubscriptionStatus = model.StatusActive
		}
	case "customer.subscription.updated":
		apply = func(u *model.User) {
			u.SubscriptionStatus = mapStripeStatus(obj.Status)
			if u.StripeSubscriptionID == "" {
				u.StripeSubscriptionID = obj.ID
			}
		}
	case "customer.subscription.deleted":
		apply = func(u *model.User) {
			u.SubscriptionTier = model.TierFree
			u.SubscriptionStatus = model.StatusCanceled
		}
	case "invoice.payment_failed":
		apply = func(u *model.User) {
			u.SubscriptionStatus = model.StatusPastDue
		}
	default:
		h.log().Debug("unhandled event type", zap.String("event_type", string(event.Type)))
		return nil
	}

	userID := obj.userID()
	if userID == "" {
		return fmt.Errorf("%w: %s missing %s (object=%s customer=%s)", errIgnoredEvent, event.Type, userIDMetadataKey, obj.ID, obj.Customer)
	}
	return h.updateUser(ctx, userID, event.Type == "checkout.session.completed", apply)
}

// updateUser applies a subscription change and mirrors it into the ID token claims.
// Only a completed checkout may create the user record.
func (h *StripeWebhookHandler) updateUser(ctx context.Context, userID string, create bool, apply func(*model.User)) error {
	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("get user %s: %w", userID, err)
		}
		if !create {
			return fmt.Errorf("%w: user %s not found", errIgnoredEvent, userID)
		}
		user = &model.User{ID: userID, SubscriptionTier: model.TierFree, CreatedAt: h.now()}
	}

	apply(user)
	user.UpdatedAt = h.now()
	if err := h.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user %s: %w", userID, err)
	}
	h.log().Info("subscription updated",
		zap.String("uid", userID),
		zap.String("tier", string(user.SubscriptionTier)),
		zap.String("status", string(user.SubscriptionStatus)))

	if h.claims != nil {
		if err := h.claims.SetSubscriptionClaims(ctx, userID, user.SubscriptionTier, user.SubscriptionStatus); err != nil {
			h.log().Warn("failed to set custom claims", zap.String("uid", userID), zap.Error(err))
		}
	}
	return nil
}
