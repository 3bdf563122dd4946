package rules

import (
	"math"
	"sort"
	"time"
)

// HMRC approved mileage allowance payments, in pence per mile.
const (
	MileageThresholdMiles = 10000.0

	CarHigherRatePence  = 45.0
	CarLowerRatePence   = 25.0
	MotorcycleRatePence = 24.0
	BicycleRatePence    = 20.0
)

// TripType distinguishes claimable business journeys from personal ones.
type TripType string

const (
	TripBusiness TripType = "business"
	TripPersonal TripType = "personal"
)

// VehicleType selects the approved mileage rate table.
type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleBicycle    VehicleType = "bicycle"
)

// Trip is the rules-relevant view of a journey. LoggedAt and ID only order trips that
// share a date.
type Trip struct {
	ID            string
	Date          time.Time
	DistanceMiles float64
	Type          TripType
	Vehicle       VehicleType
	LoggedAt      time.Time
}

// replaysBefore is the order in which trips consume the 10,000-mile counter: by date,
// then by when they were logged, then by ID.
func replaysBefore(a, b Trip) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if !a.LoggedAt.Equal(b.LoggedAt) {
		return a.LoggedAt.Before(b.LoggedAt)
	}
	return a.ID < b.ID
}

// countsTowardsThreshold reports whether a trip's miles accumulate into the
// 10,000-mile car/van counter.
func (t Trip) countsTowardsThreshold() bool {
	return t.Type == TripBusiness && normalizeVehicle(t.Vehicle) == VehicleCar
}

func normalizeVehicle(v VehicleType) VehicleType {
	if v == "" {
		return VehicleCar
	}
	return v
}

// MileageDeduction computes the car/van deduction in pence for a business trip of
// distanceMiles when ytdBusinessMiles have already been claimed in the tax year.
// Miles below the threshold earn 45p and the remainder 25p; one trip may straddle it.
func MileageDeduction(distanceMiles, ytdBusinessMiles float64) int64 {
	return roundPence(mileagePence(distanceMiles, ytdBusinessMiles))
}

func mileagePence(distanceMiles, ytdBusinessMiles float64) float64 {
	if distanceMiles <= 0 {
		return 0
	}
	remaining := math.Max(0, MileageThresholdMiles-math.Max(0, ytdBusinessMiles))
	switch {
	case remaining >= distanceMiles:
		return distanceMiles * CarHigherRatePence
	case remaining > 0:
		return remaining*CarHigherRatePence + (distanceMiles-remaining)*CarLowerRatePence
	default:
		return distanceMiles * CarLowerRatePence
	}
}

// TripDeduction computes the deduction for a single trip. Personal trips yield zero.
// ytdBusinessMiles is only consulted for cars and vans.
func TripDeduction(trip Trip, ytdBusinessMiles float64) int64 {
	if trip.Type != TripBusiness || trip.DistanceMiles <= 0 {
		return 0
	}
	switch normalizeVehicle(trip.Vehicle) {
	case VehicleMotorcycle:
		return roundPence(trip.DistanceMiles * MotorcycleRatePence)
	case VehicleBicycle:
		return roundPence(trip.DistanceMiles * BicycleRatePence)
	default:
		return MileageDeduction(trip.DistanceMiles, ytdBusinessMiles)
	}
}

// YTDBusinessMiles sums the car/van business miles of trips in the same tax year as
// next that are replayed before it. A trip on the same date counts when it was logged
// first.
func YTDBusinessMiles(trips []Trip, next Trip) float64 {
	var total float64
	for _, t := range trips {
		if !t.countsTowardsThreshold() || !SameTaxYear(t.Date, next.Date) || !replaysBefore(t, next) {
			continue
		}
		total += t.DistanceMiles
	}
	return total
}

// MileageSummary is the tax-year roll-up of a set of trips.
type MileageSummary struct {
	BusinessMiles       float64 `json:"businessMiles"`
	PersonalMiles       float64 `json:"personalMiles"`
	ThresholdMiles      float64 `json:"thresholdMiles"`
	HigherRateRemaining float64 `json:"higherRateRemaining"`
	DeductionPence      int64   `json:"deductionPence"`
	TripCount           int     `json:"tripCount"`
}

// SummariseMileage replays trips in the order YTDBusinessMiles counts them, resetting the
// car/van counter at each tax year boundary, and returns per-trip deductions in the input
// order plus the totals.
func SummariseMileage(trips []Trip) ([]int64, MileageSummary) {
	order := make([]int, len(trips))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return replaysBefore(trips[order[a]], trips[order[b]])
	})

	deductions := make([]int64, len(trips))
	summary := MileageSummary{ThresholdMiles: MileageThresholdMiles}

	var ytd float64
	currentYear := math.MinInt
	for _, idx := range order {
		t := trips[idx]
		if y := TaxYearStartYear(t.Date); y != currentYear {
			currentYear = y
			ytd = 0
		}
		summary.TripCount++
		if t.Type != TripBusiness {
			summary.PersonalMiles += t.DistanceMiles
			continue
		}
		summary.BusinessMiles += t.DistanceMiles
		deductions[idx] = TripDeduction(t, ytd)
		summary.DeductionPence += deductions[idx]
		if t.countsTowardsThreshold() {
			ytd += t.DistanceMiles
		}
	}
	summary.HigherRateRemaining = math.Max(0, MileageThresholdMiles-ytd)
	return deductions, summary
}

// roundPence rounds a fractional pence amount half away from zero.
func roundPence(p float64) int64 {
	return int64(math.Round(p))
}
