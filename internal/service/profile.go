package service

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/hmrc"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/rules"
)

// userOrNew loads the caller's profile, or starts a free one from the token claims.
func (s *ReelinService) userOrNew(ctx context.Context, claims *auth.UserClaims) *model.User {
	if user, err := s.store.GetUser(ctx, claims.UID); err == nil {
		return user
	}
	now := s.now()
	return &model.User{
		ID:               claims.UID,
		Email:            claims.Email,
		DisplayName:      claims.DisplayName,
		DefaultVehicle:   rules.VehicleCar,
		SubscriptionTier: model.TierFree,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// GetProfile returns the caller's profile, creating it on first use.
func (s *ReelinService) GetProfile(ctx context.Context, req *connect.Request[GetProfileRequest]) (*connect.Response[GetProfileResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, claims.UID)
	if err != nil {
		user = s.userOrNew(ctx, claims)
		if err := s.store.UpdateUser(ctx, user); err != nil {
			return nil, auth.WrapStoreError("create user", err)
		}
	}
	return connect.NewResponse(&GetProfileResponse{User: user}), nil
}

// UpdateProfile changes the business details that were set in the request.
func (s *ReelinService) UpdateProfile(ctx context.Context, req *connect.Request[UpdateProfileRequest]) (*connect.Response[UpdateProfileResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	user := s.userOrNew(ctx, claims)

	if msg.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*msg.DisplayName)
	}
	if msg.BusinessName != nil {
		user.BusinessName = strings.TrimSpace(*msg.BusinessName)
	}
	if msg.VATRegistered != nil {
		user.VATRegistered = *msg.VATRegistered
	}
	if msg.VRN != nil {
		vrn := strings.ReplaceAll(strings.TrimSpace(*msg.VRN), " ", "")
		if vrn != "" && !hmrc.ValidVRN(vrn) {
			return nil, invalidArgument(fmt.Errorf("VAT registration number must be nine digits"))
		}
		user.VRN = vrn
	}
	if msg.DefaultVehicle != nil {
		if err := rules.ValidateVehicle(*msg.DefaultVehicle); err != nil {
			return nil, invalidArgument(err)
		}
		user.DefaultVehicle = *msg.DefaultVehicle
	}
	if user.VATRegistered && user.VRN == "" {
		return nil, invalidArgument(fmt.Errorf("a VAT registration number is required when VAT registered"))
	}
	user.UpdatedAt = s.now()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, auth.WrapStoreError("update user", err)
	}
	return connect.NewResponse(&UpdateProfileResponse{User: user}), nil
}
