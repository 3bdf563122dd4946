package rules

import (
	"math"
	"sort"
)

// Direction says whether a record is a sale or a purchase.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// UK VAT rates, in percent.
const (
	VATRateZero     = 0
	VATRateReduced  = 5
	VATRateStandard = 20
)

// ValidVATRates lists the rates a record may carry.
var ValidVATRates = []int{VATRateZero, VATRateReduced, VATRateStandard}

// VATRecord is a single VAT-bearing transaction. AmountPence is the net (ex-VAT) value.
type VATRecord struct {
	AmountPence int64
	VATRate     int
	Direction   Direction
}

// VATPence returns the VAT charged on the record.
func (r VATRecord) VATPence() int64 {
	return int64(math.Round(float64(r.AmountPence) * float64(r.VATRate) / 100))
}

// VATBreakdown totals the records of one direction at one rate.
type VATBreakdown struct {
	Direction  Direction `json:"direction"`
	VATRate    int       `json:"vatRate"`
	NetPence   int64     `json:"netPence"`
	VATPence   int64     `json:"vatPence"`
	GrossPence int64     `json:"grossPence"`
	Count      int       `json:"count"`
}

// VATReturn is the nine-box HMRC VAT return, all values in pence.
// Box 5 is signed here: negative means HMRC owes a repayment.
type VATReturn struct {
	VATDueSales                  int64 `json:"vatDueSales"`                  // Box 1
	VATDueAcquisitions           int64 `json:"vatDueAcquisitions"`           // Box 2
	TotalVATDue                  int64 `json:"totalVatDue"`                  // Box 3
	VATReclaimedCurrPeriod       int64 `json:"vatReclaimedCurrPeriod"`       // Box 4
	NetVATDue                    int64 `json:"netVatDue"`                    // Box 5
	TotalValueSalesExVAT         int64 `json:"totalValueSalesExVat"`         // Box 6
	TotalValuePurchasesExVAT     int64 `json:"totalValuePurchasesExVat"`     // Box 7
	TotalValueGoodsSuppliedExVAT int64 `json:"totalValueGoodsSuppliedExVat"` // Box 8
	TotalAcquisitionsExVAT       int64 `json:"totalAcquisitionsExVat"`       // Box 9

	Breakdown []VATBreakdown `json:"breakdown"`
}

type breakdownKey struct {
	direction Direction
	rate      int
}

// AssembleVATReturn groups records by direction and rate and derives the nine boxes.
// VAT is computed per rate group, not per record, so rounding happens once per group.
func AssembleVATReturn(records []VATRecord) VATReturn {
	groups := make(map[breakdownKey]*VATBreakdown)
	for _, r := range records {
		k := breakdownKey{direction: r.Direction, rate: r.VATRate}
		g, ok := groups[k]
		if !ok {
			g = &VATBreakdown{Direction: r.Direction, VATRate: r.VATRate}
			groups[k] = g
		}
		g.NetPence += r.AmountPence
		g.Count++
	}

	var ret VATReturn
	for _, g := range groups {
		g.VATPence = VATRecord{AmountPence: g.NetPence, VATRate: g.VATRate}.VATPence()
		g.GrossPence = g.NetPence + g.VATPence
		switch g.Direction {
		case DirectionIncome:
			ret.VATDueSales += g.VATPence
			ret.TotalValueSalesExVAT += g.NetPence
		case DirectionExpense:
			ret.VATReclaimedCurrPeriod += g.VATPence
			ret.TotalValuePurchasesExVAT += g.NetPence
		}
		ret.Breakdown = append(ret.Breakdown, *g)
	}
	sort.Slice(ret.Breakdown, func(i, j int) bool {
		if ret.Breakdown[i].Direction != ret.Breakdown[j].Direction {
			return ret.Breakdown[i].Direction > ret.Breakdown[j].Direction // income first
		}
		return ret.Breakdown[i].VATRate > ret.Breakdown[j].VATRate
	})

	ret.TotalVATDue = ret.VATDueSales + ret.VATDueAcquisitions
	ret.NetVATDue = ret.TotalVATDue - ret.VATReclaimedCurrPeriod
	return ret
}

// IsRepayment reports whether HMRC owes the trader for the period.
func (r VATReturn) IsRepayment() bool {
	return r.NetVATDue < 0
}
