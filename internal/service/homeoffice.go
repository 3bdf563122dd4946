package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/rules"
)

// claimMonthTaxYear parses "YYYY-MM" and returns the tax year containing the month's
// last day, so April claims belong to the tax year that starts on 6 April.
func claimMonthTaxYear(month string) (string, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return "", fmt.Errorf("claim month %q must be YYYY-MM", month)
	}
	lastDay := t.AddDate(0, 1, -1)
	return rules.TaxYearOf(lastDay), nil
}

func homeOfficeClaimInput(hours float64, method rules.HomeOfficeMethod, costs int64, pct float64) (rules.HomeOfficeClaim, error) {
	if method == "" {
		method = rules.HomeOfficeSimplified
	}
	c := rules.HomeOfficeClaim{
		HoursWorked:        hours,
		Method:             method,
		ActualCostsPence:   costs,
		BusinessUsePercent: pct,
	}
	return c, rules.ValidateHomeOfficeClaim(c)
}

// UpsertHomeOfficeClaim stores the caller's claim for a month, replacing any earlier one.
func (s *ReelinService) UpsertHomeOfficeClaim(ctx context.Context, req *connect.Request[UpsertHomeOfficeClaimRequest]) (*connect.Response[UpsertHomeOfficeClaimResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	taxYear, err := claimMonthTaxYear(msg.ClaimMonth)
	if err != nil {
		return nil, invalidArgument(err)
	}
	rc, err := homeOfficeClaimInput(msg.HoursWorked, msg.Method, msg.ActualCostsPence, msg.BusinessUsePercent)
	if err != nil {
		return nil, invalidArgument(err)
	}

	now := s.now()
	claim := &model.HomeOfficeClaim{
		UserID:             claims.UID,
		ClaimMonth:         msg.ClaimMonth,
		HoursWorked:        rc.HoursWorked,
		Method:             rc.Method,
		ActualCostsPence:   rc.ActualCostsPence,
		BusinessUsePercent: rc.BusinessUsePercent,
		AllowancePence:     rules.HomeOfficeAllowance(rc),
		TaxYear:            taxYear,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.UpsertHomeOfficeClaim(ctx, claim); err != nil {
		return nil, auth.WrapStoreError("save home office claim", err)
	}
	return connect.NewResponse(&UpsertHomeOfficeClaimResponse{Claim: claim}), nil
}

// ListHomeOfficeClaims returns a tax year's claims in month order with their total.
func (s *ReelinService) ListHomeOfficeClaims(ctx context.Context, req *connect.Request[ListHomeOfficeClaimsRequest]) (*connect.Response[ListHomeOfficeClaimsResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	taxYear, _, _, err := s.taxYearOrCurrent(req.Msg.TaxYear)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.ListHomeOfficeClaims(ctx, claims.UID, taxYear)
	if err != nil {
		return nil, auth.WrapStoreError("list home office claims", err)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].ClaimMonth < stored[j].ClaimMonth })

	var total int64
	for _, c := range stored {
		total += c.AllowancePence
	}
	return connect.NewResponse(&ListHomeOfficeClaimsResponse{TaxYear: taxYear, Claims: stored, TotalPence: total}), nil
}

// CalculateHomeOffice values a hypothetical monthly claim. It needs no account.
func (s *ReelinService) CalculateHomeOffice(ctx context.Context, req *connect.Request[CalculateHomeOfficeRequest]) (*connect.Response[CalculateHomeOfficeResponse], error) {
	msg := req.Msg
	rc, err := homeOfficeClaimInput(msg.HoursWorked, msg.Method, msg.ActualCostsPence, msg.BusinessUsePercent)
	if err != nil {
		return nil, invalidArgument(err)
	}
	return connect.NewResponse(&CalculateHomeOfficeResponse{AllowancePence: rules.HomeOfficeAllowance(rc)}), nil
}

// CalculateApportionment splits an amount by business use. It needs no stored data.
func (s *ReelinService) CalculateApportionment(ctx context.Context, req *connect.Request[CalculateApportionmentRequest]) (*connect.Response[CalculateApportionmentResponse], error) {
	if _, err := auth.RequireAuth(ctx); err != nil {
		return nil, err
	}
	if err := rules.ValidateAmount(req.Msg.AmountPence); err != nil {
		return nil, invalidArgument(err)
	}
	if err := rules.ValidatePercent(req.Msg.BusinessUsePercent); err != nil {
		return nil, invalidArgument(err)
	}
	return connect.NewResponse(&CalculateApportionmentResponse{
		Apportionment: rules.Apportion(req.Msg.AmountPence, req.Msg.BusinessUsePercent),
	}), nil
}
