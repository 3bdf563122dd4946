package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UK tax years run from 6 April to 5 April the following year.
const (
	taxYearStartMonth = time.April
	taxYearStartDay   = 6
)

// TaxYearStartYear returns the calendar year in which the tax year containing t began.
func TaxYearStartYear(t time.Time) int {
	y := t.Year()
	if t.Month() < taxYearStartMonth || (t.Month() == taxYearStartMonth && t.Day() < taxYearStartDay) {
		y--
	}
	return y
}

// TaxYearOf returns the label ("2025-26") of the UK tax year containing t.
func TaxYearOf(t time.Time) string {
	start := TaxYearStartYear(t)
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

// TaxYearBounds converts a tax year label ("2025-26") to its first instant and last instant.
// The end is inclusive (5 April 23:59:59 UTC).
func TaxYearBounds(label string) (time.Time, time.Time, error) {
	parts := strings.SplitN(label, "-", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid tax year format: %s (expected YYYY-YY)", label)
	}
	startYear, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start year in tax year: %s", label)
	}
	endSuffix, err := strconv.Atoi(parts[1])
	if err != nil || endSuffix != (startYear+1)%100 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end year in tax year: %s", label)
	}
	start := time.Date(startYear, taxYearStartMonth, taxYearStartDay, 0, 0, 0, 0, time.UTC)
	end := time.Date(startYear+1, taxYearStartMonth, taxYearStartDay-1, 23, 59, 59, 0, time.UTC)
	return start, end, nil
}

// SameTaxYear reports whether a and b fall in the same UK tax year.
func SameTaxYear(a, b time.Time) bool {
	return TaxYearStartYear(a) == TaxYearStartYear(b)
}

// CurrentTaxYear returns the label of the tax year containing now.
func CurrentTaxYear(now time.Time) string {
	return TaxYearOf(now)
}
