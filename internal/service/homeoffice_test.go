package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimMonthTaxYear(t *testing.T) {
	tests := map[string]string{
		"2025-03": "2024-25",
		"2025-04": "2025-26",
		"2026-03": "2025-26",
		"2025-12": "2025-26",
	}
	for month, want := range tests {
		got, err := claimMonthTaxYear(month)
		require.NoError(t, err, month)
		assert.Equal(t, want, got, month)
	}

	for _, bad := range []string{"2025/04", "April 2025", "2025-13", ""} {
		_, err := claimMonthTaxYear(bad)
		assert.Error(t, err, bad)
	}
}

func TestUpsertHomeOfficeClaim(t *testing.T) {
	svc, _ := newTestService()
	ctx := testContext("user-1")

	resp, err := svc.UpsertHomeOfficeClaim(ctx, connect.NewRequest(&UpsertHomeOfficeClaimRequest{ClaimMonth: "2025-05", HoursWorked: 60}))
	require.NoError(t, err)
	assert.Equal(t, int64(1800), resp.Msg.Claim.AllowancePence)
	assert.Equal(t, rules.HomeOfficeSimplified, resp.Msg.Claim.Method)
	assert.Equal(t, "2025-26", resp.Msg.Claim.TaxYear)

	// Replacing the month keeps one claim.
	_, err = svc.UpsertHomeOfficeClaim(ctx, connect.NewRequest(&UpsertHomeOfficeClaimRequest{ClaimMonth: "2025-05", HoursWorked: 120}))
	require.NoError(t, err)
	_, err = svc.UpsertHomeOfficeClaim(ctx, connect.NewRequest(&UpsertHomeOfficeClaimRequest{
		ClaimMonth: "2025-04", Method: rules.HomeOfficeActual, ActualCostsPence: 120000, BusinessUsePercent: 10,
	}))
	require.NoError(t, err)
	_, err = svc.UpsertHomeOfficeClaim(ctx, connect.NewRequest(&UpsertHomeOfficeClaimRequest{ClaimMonth: "2025-03", HoursWorked: 30}))
	require.NoError(t, err)

	list, err := svc.ListHomeOfficeClaims(ctx, connect.NewRequest(&ListHomeOfficeClaimsRequest{TaxYear: "2025-26"}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Claims, 2)
	assert.Equal(t, "2025-04", list.Msg.Claims[0].ClaimMonth)
	assert.Equal(t, "2025-05", list.Msg.Claims[1].ClaimMonth)
	assert.Equal(t, int64(12000+2600), list.Msg.TotalPence)

	prev, err := svc.ListHomeOfficeClaims(ctx, connect.NewRequest(&ListHomeOfficeClaimsRequest{TaxYear: "2024-25"}))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), prev.Msg.TotalPence)
}

func TestUpsertHomeOfficeClaim_Invalid(t *testing.T) {
	svc, _ := newTestService()
	ctx := testContext("user-1")

	for name, req := range map[string]*UpsertHomeOfficeClaimRequest{
		"bad month":        {ClaimMonth: "05-2025", HoursWorked: 10},
		"negative hours":   {ClaimMonth: "2025-05", HoursWorked: -1},
		"unknown method":   {ClaimMonth: "2025-05", Method: "estimate"},
		"percent over 100": {ClaimMonth: "2025-05", Method: rules.HomeOfficeActual, ActualCostsPence: 100, BusinessUsePercent: 150},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UpsertHomeOfficeClaim(ctx, connect.NewRequest(req))
			requireCode(t, err, connect.CodeInvalidArgument)
		})
	}
}

func TestCalculateHomeOffice(t *testing.T) {
	svc, _ := newTestService()
	tests := []struct {
		hours float64
		want  int64
	}{
		{hours: 24, want: 0},
		{hours: 25, want: 1000},
		{hours: 50.9, want: 1000},
		{hours: 51, want: 1800},
		{hours: 100, want: 1800},
		{hours: 101, want: 2600},
	}
	for _, tt := range tests {
		resp, err := svc.CalculateHomeOffice(context.Background(), connect.NewRequest(&CalculateHomeOfficeRequest{HoursWorked: tt.hours}))
		require.NoError(t, err)
		assert.Equal(t, tt.want, resp.Msg.AllowancePence, "hours %v", tt.hours)
	}
}

func TestCalculateApportionment(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CalculateApportionment(context.Background(), connect.NewRequest(&CalculateApportionmentRequest{AmountPence: 100, BusinessUsePercent: 50}))
	requireCode(t, err, connect.CodeUnauthenticated)

	resp, err := svc.CalculateApportionment(testContext("user-1"), connect.NewRequest(&CalculateApportionmentRequest{AmountPence: 999, BusinessUsePercent: 33.3}))
	require.NoError(t, err)
	assert.Equal(t, int64(333), resp.Msg.Apportionment.AllowablePence)
	assert.Equal(t, int64(666), resp.Msg.Apportionment.DisallowablePence)

	_, err = svc.CalculateApportionment(testContext("user-1"), connect.NewRequest(&CalculateApportionmentRequest{AmountPence: 100, BusinessUsePercent: -1}))
	requireCode(t, err, connect.CodeInvalidArgument)
}
