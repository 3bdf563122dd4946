package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProfile_CreatesOnFirstUse(t *testing.T) {
	svc, st := newTestService()

	resp, err := svc.GetProfile(testContext("user-1"), connect.NewRequest(&GetProfileRequest{}))
	require.NoError(t, err)
	u := resp.Msg.User
	assert.Equal(t, "user-1", u.ID)
	assert.Equal(t, "user-1@test.com", u.Email)
	assert.Equal(t, "Test User", u.DisplayName)
	assert.Equal(t, model.TierFree, u.SubscriptionTier)
	assert.Equal(t, rules.VehicleCar, u.DefaultVehicle)
	assert.Equal(t, testNow, u.CreatedAt)

	stored, err := st.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, u.Email, stored.Email)

	_, err = svc.GetProfile(context.Background(), connect.NewRequest(&GetProfileRequest{}))
	requireCode(t, err, connect.CodeUnauthenticated)
}

func TestUpdateProfile(t *testing.T) {
	svc, st := newTestService()
	ctx := testContext("user-1")

	resp, err := svc.UpdateProfile(ctx, connect.NewRequest(&UpdateProfileRequest{
		BusinessName:   ptr("  Acme Plumbing "),
		VATRegistered:  ptr(true),
		VRN:            ptr("123 456 789"),
		DefaultVehicle: ptr(rules.VehicleMotorcycle),
	}))
	require.NoError(t, err)
	assert.Equal(t, "Acme Plumbing", resp.Msg.User.BusinessName)
	assert.True(t, resp.Msg.User.VATRegistered)
	assert.Equal(t, "123456789", resp.Msg.User.VRN)
	assert.Equal(t, rules.VehicleMotorcycle, resp.Msg.User.DefaultVehicle)

	// Unset fields are left alone.
	resp, err = svc.UpdateProfile(ctx, connect.NewRequest(&UpdateProfileRequest{DisplayName: ptr("Sam")}))
	require.NoError(t, err)
	assert.Equal(t, "Sam", resp.Msg.User.DisplayName)
	assert.Equal(t, "Acme Plumbing", resp.Msg.User.BusinessName)
	assert.Equal(t, "123456789", resp.Msg.User.VRN)

	stored, err := st.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Sam", stored.DisplayName)
}

func TestUpdateProfile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  *UpdateProfileRequest
	}{
		{"short VRN", &UpdateProfileRequest{VRN: ptr("12345")}},
		{"letters in VRN", &UpdateProfileRequest{VRN: ptr("GB1234567")}},
		{"unknown vehicle", &UpdateProfileRequest{DefaultVehicle: ptr(rules.VehicleType("tractor"))}},
		{"VAT registered without VRN", &UpdateProfileRequest{VATRegistered: ptr(true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			_, err := svc.UpdateProfile(testContext("user-1"), connect.NewRequest(tt.req))
			requireCode(t, err, connect.CodeInvalidArgument)
		})
	}
}
