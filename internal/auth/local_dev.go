package auth

import (
	"context"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/model"
)

// LocalDevUserID is the user every request runs as when auth is skipped.
const LocalDevUserID = "local-dev-user"

// LocalDevInterceptor provides a mock Pro user context for local development
func LocalDevInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if isPublicEndpoint(req.Spec().Procedure) {
				return next(ctx, req)
			}

			// An impersonated user from DebugAuthInterceptor wins.
			if _, ok := GetUserClaims(ctx); !ok {
				ctx = withUserClaims(ctx, &UserClaims{
					UID:         LocalDevUserID,
					Email:       "dev@localhost",
					DisplayName: "Local Dev User",
					Verified:    true,
				})
			}
			ctx = WithSubscription(ctx, &SubscriptionInfo{Tier: model.TierPro, Status: model.StatusActive})

			return next(ctx, req)
		}
	}
}
