package rules

import "math"

// Apportionment splits a gross amount into its business and private parts.
type Apportionment struct {
	AllowablePence    int64 `json:"allowablePence"`
	DisallowablePence int64 `json:"disallowablePence"`
}

// Apportion returns the allowable share of amountPence at businessUsePercent (0-100).
// The disallowable part is whatever remains, so the two always sum to the input.
func Apportion(amountPence int64, businessUsePercent float64) Apportionment {
	allowable := int64(math.Round(float64(amountPence) * businessUsePercent / 100))
	return Apportionment{
		AllowablePence:    allowable,
		DisallowablePence: amountPence - allowable,
	}
}
