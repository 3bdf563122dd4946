package auth

import (
	"context"
	"fmt"

	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/model"
	"go.uber.org/zap"
)

// Custom claim keys carried in the Firebase ID token.
const (
	claimSubscriptionTier   = "subscription_tier"
	claimSubscriptionStatus = "subscription_status"
)

// SetSubscriptionClaims sets custom claims on a Firebase user for subscription info.
// These claims are included in the user's next ID token.
func (f *FirebaseAuth) SetSubscriptionClaims(ctx context.Context, uid string, tier model.SubscriptionTier, status model.SubscriptionStatus) error {
	claims := SubscriptionClaims(tier, status)
	if err := f.client.SetCustomUserClaims(ctx, uid, claims); err != nil {
		return fmt.Errorf("set custom claims for user %s: %w", uid, err)
	}

	logging.L().Info("updated custom claims",
		zap.String("component", "auth"),
		zap.String("uid", uid),
		zap.String("tier", string(tier)),
		zap.String("status", string(status)))
	return nil
}

// SubscriptionClaims builds the custom claims map for a tier and status.
func SubscriptionClaims(tier model.SubscriptionTier, status model.SubscriptionStatus) map[string]interface{} {
	t := model.TierFree
	if tier == model.TierPro {
		t = model.TierPro
	}
	return map[string]interface{}{
		claimSubscriptionTier:   string(t),
		claimSubscriptionStatus: string(status),
	}
}

// GetSubscriptionClaimsFromToken extracts subscription info from Firebase token custom claims.
func GetSubscriptionClaimsFromToken(claims map[string]interface{}) *SubscriptionInfo {
	info := &SubscriptionInfo{
		Tier:   model.TierFree,
		Status: model.StatusUnspecified,
	}

	if tierStr, ok := claims[claimSubscriptionTier].(string); ok && tierStr == string(model.TierPro) {
		info.Tier = model.TierPro
	}

	if statusStr, ok := claims[claimSubscriptionStatus].(string); ok {
		switch s := model.SubscriptionStatus(statusStr); s {
		case model.StatusActive, model.StatusTrialing, model.StatusPastDue, model.StatusCanceled:
			info.Status = s
		}
	}

	return info
}
