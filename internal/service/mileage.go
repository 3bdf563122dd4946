package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/rules"
)

// CreateTrip logs a journey. The deduction is priced against the car business miles
// replayed before it in the same tax year; later trips it pushes past the 10,000-mile
// threshold are re-priced.
func (s *ReelinService) CreateTrip(ctx context.Context, req *connect.Request[CreateTripRequest]) (*connect.Response[CreateTripResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	if msg.Date.IsZero() {
		return nil, invalidArgument(fmt.Errorf("date is required"))
	}
	if err := rules.ValidateDistance("distance", msg.DistanceMiles); err != nil {
		return nil, invalidArgument(err)
	}
	if err := rules.ValidateTripType(msg.Type); err != nil {
		return nil, invalidArgument(err)
	}
	vehicle := msg.Vehicle
	if vehicle == "" {
		vehicle = s.defaultVehicle(ctx, claims.UID)
	}
	if err := rules.ValidateVehicle(vehicle); err != nil {
		return nil, invalidArgument(err)
	}

	taxYear := rules.TaxYearOf(msg.Date)
	existing, err := s.allTrips(ctx, claims.UID, taxYear)
	if err != nil {
		return nil, err
	}

	trip := &model.Trip{
		ID:            uuid.New().String(),
		UserID:        claims.UID,
		Date:          msg.Date,
		DistanceMiles: msg.DistanceMiles,
		Type:          msg.Type,
		Vehicle:       vehicle,
		From:          strings.TrimSpace(msg.From),
		To:            strings.TrimSpace(msg.To),
		Purpose:       strings.TrimSpace(msg.Purpose),
		TaxYear:       taxYear,
		CreatedAt:     s.now(),
	}
	ytd := rules.YTDBusinessMiles(rulesTrips(existing), trip.RulesTrip())
	repriced := repriceTrips(append(existing, trip))

	if err := s.store.CreateTrip(ctx, trip); err != nil {
		return nil, auth.WrapStoreError("create trip", err)
	}
	if err := s.saveRepriced(ctx, repriced, trip); err != nil {
		return nil, err
	}
	return connect.NewResponse(&CreateTripResponse{Trip: trip, YTDBusinessMiles: ytd}), nil
}

func rulesTrips(trips []*model.Trip) []rules.Trip {
	out := make([]rules.Trip, 0, len(trips))
	for _, t := range trips {
		out = append(out, t.RulesTrip())
	}
	return out
}

// repriceTrips sets each trip's deduction from a replay of the whole set and returns
// the trips whose deduction changed.
func repriceTrips(trips []*model.Trip) []*model.Trip {
	deductions, _ := rules.SummariseMileage(rulesTrips(trips))
	var changed []*model.Trip
	for i, t := range trips {
		if t.DeductionPence != deductions[i] {
			t.DeductionPence = deductions[i]
			changed = append(changed, t)
		}
	}
	return changed
}

// saveRepriced writes back re-priced trips, skipping the one just created.
func (s *ReelinService) saveRepriced(ctx context.Context, trips []*model.Trip, created *model.Trip) error {
	for _, t := range trips {
		if t == created {
			continue
		}
		if err := s.store.UpdateTrip(ctx, t); err != nil {
			return auth.WrapStoreError("update trip", err)
		}
	}
	return nil
}

func (s *ReelinService) defaultVehicle(ctx context.Context, uid string) rules.VehicleType {
	user, err := s.store.GetUser(ctx, uid)
	if err != nil || user.DefaultVehicle == "" {
		return rules.VehicleCar
	}
	return user.DefaultVehicle
}

// ListTrips pages through the caller's trips, optionally for one tax year.
func (s *ReelinService) ListTrips(ctx context.Context, req *connect.Request[ListTripsRequest]) (*connect.Response[ListTripsResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.TaxYear != "" {
		if _, _, err := rules.TaxYearBounds(req.Msg.TaxYear); err != nil {
			return nil, invalidArgument(err)
		}
	}
	trips, next, err := s.store.ListTrips(ctx, claims.UID, req.Msg.TaxYear, auth.NormalizePageSize(req.Msg.PageSize), req.Msg.PageToken)
	if err != nil {
		return nil, auth.WrapStoreError("list trips", err)
	}
	return connect.NewResponse(&ListTripsResponse{Trips: trips, NextPageToken: next}), nil
}

// DeleteTrip removes one of the caller's trips and re-prices the rest of its tax year.
func (s *ReelinService) DeleteTrip(ctx context.Context, req *connect.Request[DeleteTripRequest]) (*connect.Response[DeleteTripResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.ID == "" {
		return nil, invalidArgument(fmt.Errorf("trip id is required"))
	}
	trip, err := s.store.GetTrip(ctx, req.Msg.ID)
	if err != nil {
		return nil, auth.WrapStoreError("get trip", err)
	}
	if err := auth.RequireOwner(claims, trip.UserID, "trip"); err != nil {
		return nil, err
	}
	if err := s.store.DeleteTrip(ctx, req.Msg.ID); err != nil {
		return nil, auth.WrapStoreError("delete trip", err)
	}
	remaining, err := s.allTrips(ctx, claims.UID, trip.TaxYear)
	if err != nil {
		return nil, err
	}
	if err := s.saveRepriced(ctx, repriceTrips(remaining), nil); err != nil {
		return nil, err
	}
	return connect.NewResponse(&DeleteTripResponse{}), nil
}

// GetMileageSummary replays the tax year's trips in date order, so deductions stay
// correct when trips were logged out of order or deleted.
func (s *ReelinService) GetMileageSummary(ctx context.Context, req *connect.Request[GetMileageSummaryRequest]) (*connect.Response[GetMileageSummaryResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	taxYear, _, _, err := s.taxYearOrCurrent(req.Msg.TaxYear)
	if err != nil {
		return nil, err
	}
	trips, err := s.allTrips(ctx, claims.UID, taxYear)
	if err != nil {
		return nil, err
	}
	_, summary := rules.SummariseMileage(rulesTrips(trips))
	return connect.NewResponse(&GetMileageSummaryResponse{TaxYear: taxYear, Summary: summary}), nil
}

// CalculateMileage prices a hypothetical business trip. It needs no account.
func (s *ReelinService) CalculateMileage(ctx context.Context, req *connect.Request[CalculateMileageRequest]) (*connect.Response[CalculateMileageResponse], error) {
	msg := req.Msg
	if err := rules.ValidateDistance("distance", msg.DistanceMiles); err != nil {
		return nil, invalidArgument(err)
	}
	if err := rules.ValidateDistance("year-to-date miles", msg.YTDBusinessMiles); err != nil {
		return nil, invalidArgument(err)
	}
	if err := rules.ValidateVehicle(msg.Vehicle); err != nil {
		return nil, invalidArgument(err)
	}

	trip := rules.Trip{DistanceMiles: msg.DistanceMiles, Type: rules.TripBusiness, Vehicle: msg.Vehicle}
	resp := &CalculateMileageResponse{
		DeductionPence: rules.TripDeduction(trip, msg.YTDBusinessMiles),
	}
	if msg.Vehicle == "" || msg.Vehicle == rules.VehicleCar {
		remaining := math.Max(0, rules.MileageThresholdMiles-msg.YTDBusinessMiles)
		resp.HigherRateMiles = math.Min(remaining, msg.DistanceMiles)
		resp.LowerRateMiles = msg.DistanceMiles - resp.HigherRateMiles
		resp.HigherRateRemaining = remaining - resp.HigherRateMiles
	}
	return connect.NewResponse(resp), nil
}
