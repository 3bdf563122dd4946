package rules

import "math"

// HomeOfficeMethod selects how a monthly home-office claim is valued.
type HomeOfficeMethod string

const (
	// HomeOfficeSimplified uses HMRC's flat rate by hours worked.
	HomeOfficeSimplified HomeOfficeMethod = "simplified"
	// HomeOfficeActual apportions the household's actual running costs.
	HomeOfficeActual HomeOfficeMethod = "actual"
)

// homeOfficeBand is one row of the simplified-expenses table.
type homeOfficeBand struct {
	MinHours  float64 // inclusive
	RatePence int64
}

// homeOfficeBands is ordered from the highest threshold down.
var homeOfficeBands = []homeOfficeBand{
	{MinHours: 101, RatePence: 2600},
	{MinHours: 51, RatePence: 1800},
	{MinHours: 25, RatePence: 1000},
}

// FlatRate returns the simplified monthly allowance in pence for hours worked at home.
// Hours are counted whole, so 50.5 hours still falls in the 25-50 band.
func FlatRate(hoursWorked float64) int64 {
	hours := math.Floor(hoursWorked)
	for _, b := range homeOfficeBands {
		if hours >= b.MinHours {
			return b.RatePence
		}
	}
	return 0
}

// HomeOfficeClaim is the rules-relevant view of one month's claim.
type HomeOfficeClaim struct {
	HoursWorked        float64
	Method             HomeOfficeMethod
	ActualCostsPence   int64
	BusinessUsePercent float64
}

// HomeOfficeAllowance values a monthly claim under its elected method.
func HomeOfficeAllowance(c HomeOfficeClaim) int64 {
	if c.Method == HomeOfficeActual {
		return Apportion(c.ActualCostsPence, c.BusinessUsePercent).AllowablePence
	}
	return FlatRate(c.HoursWorked)
}

// AnnualHomeOffice sums the allowances of a set of monthly claims.
func AnnualHomeOffice(claims []HomeOfficeClaim) int64 {
	var total int64
	for _, c := range claims {
		total += HomeOfficeAllowance(c)
	}
	return total
}
