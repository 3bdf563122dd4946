package hmrc

import "github.com/reelin/backend/internal/rules"

// VATReturnPayload is the MTD submission body. Boxes 1-5 are pounds to two decimal
// places; boxes 6-9 are whole pounds.
type VATReturnPayload struct {
	PeriodKey                    string  `json:"periodKey"`
	VATDueSales                  float64 `json:"vatDueSales"`
	VATDueAcquisitions           float64 `json:"vatDueAcquisitions"`
	TotalVATDue                  float64 `json:"totalVatDue"`
	VATReclaimedCurrPeriod       float64 `json:"vatReclaimedCurrPeriod"`
	NetVATDue                    float64 `json:"netVatDue"`
	TotalValueSalesExVAT         int64   `json:"totalValueSalesExVAT"`
	TotalValuePurchasesExVAT     int64   `json:"totalValuePurchasesExVAT"`
	TotalValueGoodsSuppliedExVAT int64   `json:"totalValueGoodsSuppliedExVAT"`
	TotalAcquisitionsExVAT       int64   `json:"totalAcquisitionsExVAT"`
	Finalised                    bool    `json:"finalised"`
}

// NewVATReturnPayload converts an assembled return. Box 5 is sent as an absolute
// value; the direction is implied by boxes 3 and 4.
func NewVATReturnPayload(periodKey string, r rules.VATReturn, finalised bool) VATReturnPayload {
	net := r.NetVATDue
	if net < 0 {
		net = -net
	}
	return VATReturnPayload{
		PeriodKey:                    periodKey,
		VATDueSales:                  pounds(r.VATDueSales),
		VATDueAcquisitions:           pounds(r.VATDueAcquisitions),
		TotalVATDue:                  pounds(r.TotalVATDue),
		VATReclaimedCurrPeriod:       pounds(r.VATReclaimedCurrPeriod),
		NetVATDue:                    pounds(net),
		TotalValueSalesExVAT:         wholePounds(r.TotalValueSalesExVAT),
		TotalValuePurchasesExVAT:     wholePounds(r.TotalValuePurchasesExVAT),
		TotalValueGoodsSuppliedExVAT: wholePounds(r.TotalValueGoodsSuppliedExVAT),
		TotalAcquisitionsExVAT:       wholePounds(r.TotalAcquisitionsExVAT),
		Finalised:                    finalised,
	}
}

func pounds(pence int64) float64 {
	return float64(pence) / 100
}

// wholePounds drops the pence, as HMRC does.
func wholePounds(pence int64) int64 {
	return pence / 100
}
