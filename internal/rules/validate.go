package rules

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is wrapped by every validation failure in this package.
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidateDistance checks a trip distance or year-to-date mileage.
func ValidateDistance(name string, miles float64) error {
	if !finite(miles) || miles < 0 {
		return invalid("%s must be a non-negative number of miles", name)
	}
	return nil
}

// ValidateHours checks monthly hours worked from home.
func ValidateHours(hours float64) error {
	if !finite(hours) || hours < 0 {
		return invalid("hours worked must be non-negative")
	}
	return nil
}

// ValidatePercent checks a business-use percentage.
func ValidatePercent(pct float64) error {
	if !finite(pct) || pct < 0 || pct > 100 {
		return invalid("business use percent must be between 0 and 100")
	}
	return nil
}

// ValidateAmount checks a monetary amount in pence.
func ValidateAmount(amountPence int64) error {
	if amountPence < 0 {
		return invalid("amount must be non-negative")
	}
	return nil
}

// ValidateVATRate checks that rate is one of the UK rates.
func ValidateVATRate(rate int) error {
	for _, r := range ValidVATRates {
		if rate == r {
			return nil
		}
	}
	return invalid("VAT rate %d is not one of 0, 5 or 20", rate)
}

// ValidateTripType checks a trip type.
func ValidateTripType(t TripType) error {
	switch t {
	case TripBusiness, TripPersonal:
		return nil
	}
	return invalid("trip type %q must be business or personal", t)
}

// ValidateVehicle checks a vehicle type; empty means car.
func ValidateVehicle(v VehicleType) error {
	switch v {
	case "", VehicleCar, VehicleMotorcycle, VehicleBicycle:
		return nil
	}
	return invalid("vehicle %q must be car, motorcycle or bicycle", v)
}

// ValidateVATRecord checks a single VAT-bearing record.
func ValidateVATRecord(r VATRecord) error {
	if err := ValidateAmount(r.AmountPence); err != nil {
		return err
	}
	if r.Direction != DirectionIncome && r.Direction != DirectionExpense {
		return invalid("direction %q must be income or expense", r.Direction)
	}
	return ValidateVATRate(r.VATRate)
}

// ValidateHomeOfficeClaim checks a monthly claim under its elected method.
func ValidateHomeOfficeClaim(c HomeOfficeClaim) error {
	if err := ValidateHours(c.HoursWorked); err != nil {
		return err
	}
	switch c.Method {
	case HomeOfficeSimplified:
		return nil
	case HomeOfficeActual:
		if err := ValidateAmount(c.ActualCostsPence); err != nil {
			return err
		}
		return ValidatePercent(c.BusinessUsePercent)
	}
	return invalid("home office method %q must be simplified or actual", c.Method)
}
