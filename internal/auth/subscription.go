package auth

import (
	"context"

	"github.com/reelin/backend/internal/model"
)

type subscriptionKey struct{}

// SubscriptionInfo holds the user's subscription details extracted during auth
type SubscriptionInfo struct {
	Tier   model.SubscriptionTier
	Status model.SubscriptionStatus
}

// IsActivePro reports whether the subscription unlocks Pro features.
func (i *SubscriptionInfo) IsActivePro() bool {
	if i == nil || i.Tier != model.TierPro {
		return false
	}
	return i.Status == model.StatusActive || i.Status == model.StatusTrialing
}

// WithSubscription adds subscription info to context
func WithSubscription(ctx context.Context, info *SubscriptionInfo) context.Context {
	return context.WithValue(ctx, subscriptionKey{}, info)
}

// GetSubscription retrieves subscription info from context
func GetSubscription(ctx context.Context) *SubscriptionInfo {
	info, _ := ctx.Value(subscriptionKey{}).(*SubscriptionInfo)
	return info
}
