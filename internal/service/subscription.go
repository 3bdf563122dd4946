package service

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/model"
	"go.uber.org/zap"
)

// GetSubscriptionStatus reports the caller's tier, refreshing renewal details from
// Stripe when a subscription exists.
func (s *ReelinService) GetSubscriptionStatus(ctx context.Context, req *connect.Request[GetSubscriptionStatusRequest]) (*connect.Response[GetSubscriptionStatusResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	user := s.userOrNew(ctx, claims)
	resp := &GetSubscriptionStatusResponse{Tier: user.SubscriptionTier, Status: user.SubscriptionStatus}
	if resp.Tier == "" {
		resp.Tier = model.TierFree
	}

	if s.billing != nil && user.StripeSubscriptionID != "" {
		info, err := s.billing.GetSubscription(user.StripeSubscriptionID)
		if err != nil {
			logging.L().Warn("failed to fetch subscription",
				zap.String("component", "stripe"),
				zap.String("uid", claims.UID),
				zap.Error(err))
		} else {
			resp.CancelAtPeriodEnd = info.CancelAtPeriodEnd
			resp.CurrentPeriodEnd = info.CurrentPeriodEnd
		}
	}
	return connect.NewResponse(resp), nil
}

// CreateCheckoutSession starts a Stripe checkout for the Pro plan.
func (s *ReelinService) CreateCheckoutSession(ctx context.Context, req *connect.Request[CreateCheckoutSessionRequest]) (*connect.Response[CreateCheckoutSessionResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if s.billing == nil {
		return nil, unavailable("billing")
	}
	user := s.userOrNew(ctx, claims)
	if (&auth.SubscriptionInfo{Tier: user.SubscriptionTier, Status: user.SubscriptionStatus}).IsActivePro() {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("already subscribed to Pro"))
	}
	email := user.Email
	if email == "" {
		email = claims.Email
	}
	if email == "" {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("an email address is required for billing"))
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		customerID, err = s.billing.GetOrCreateCustomer(email, claims.UID)
		if err != nil {
			return nil, connect.NewError(connect.CodeUnavailable, err)
		}
		user.StripeCustomerID = customerID
		user.UpdatedAt = s.now()
		if err := s.store.UpdateUser(ctx, user); err != nil {
			return nil, auth.WrapStoreError("update user", err)
		}
	}

	successURL := req.Msg.SuccessURL
	if successURL == "" {
		successURL = s.appBaseURL + "/settings/billing?checkout=success"
	}
	cancelURL := req.Msg.CancelURL
	if cancelURL == "" {
		cancelURL = s.appBaseURL + "/settings/billing?checkout=cancelled"
	}
	result, err := s.billing.CreateCheckoutSession(customerID, claims.UID, successURL, cancelURL)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(&CreateCheckoutSessionResponse{URL: result.URL, SessionID: result.SessionID}), nil
}

// CancelSubscription stops renewal at the end of the paid period. The webhook later
// downgrades the user.
func (s *ReelinService) CancelSubscription(ctx context.Context, req *connect.Request[CancelSubscriptionRequest]) (*connect.Response[CancelSubscriptionResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if s.billing == nil {
		return nil, unavailable("billing")
	}
	user, err := s.store.GetUser(ctx, claims.UID)
	if err != nil {
		return nil, auth.WrapStoreError("get user", err)
	}
	if user.StripeSubscriptionID == "" {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("no active subscription"))
	}

	info, err := s.billing.CancelSubscriptionAtPeriodEnd(user.StripeSubscriptionID)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	status := mapStripeStatus(string(info.Status))
	if status != model.StatusUnspecified && status != user.SubscriptionStatus {
		user.SubscriptionStatus = status
		user.UpdatedAt = s.now()
		if err := s.store.UpdateUser(ctx, user); err != nil {
			return nil, auth.WrapStoreError("update user", err)
		}
		if s.claims != nil {
			if err := s.claims.SetSubscriptionClaims(ctx, claims.UID, user.SubscriptionTier, status); err != nil {
				logging.L().Warn("failed to set custom claims",
					zap.String("component", "stripe"),
					zap.String("uid", claims.UID),
					zap.Error(err))
			}
		}
	}
	return connect.NewResponse(&CancelSubscriptionResponse{
		Status:            user.SubscriptionStatus,
		CancelAtPeriodEnd: info.CancelAtPeriodEnd,
		CurrentPeriodEnd:  info.CurrentPeriodEnd,
	}), nil
}
