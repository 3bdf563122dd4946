package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func fixture() ([]*model.Transaction, []*model.Trip, []*model.HomeOfficeClaim) {
	txns := []*model.Transaction{
		{ID: "i1", Direction: model.DirectionIncome, Category: model.CategorySales, AmountPence: 500000, Date: date(2025, 5, 1), TaxYear: "2025-26"},
		{ID: "i2", Direction: model.DirectionIncome, Category: model.CategoryOtherIncome, AmountPence: 1000, Date: date(2025, 6, 1), TaxYear: "2025-26"},
		{ID: "e1", Direction: model.DirectionExpense, Category: model.CategoryOffice, AmountPence: 10000, BusinessUsePercent: 80, Date: date(2025, 5, 2), TaxYear: "2025-26"},
		{ID: "e2", Direction: model.DirectionExpense, Category: model.CategoryPersonal, AmountPence: 2000, BusinessUsePercent: 100, Date: date(2025, 5, 3), TaxYear: "2025-26"},
		{ID: "e3", Direction: model.DirectionExpense, AmountPence: 3000, BusinessUsePercent: 100, NeedsReview: true, Date: date(2025, 5, 4), TaxYear: "2025-26"},
		{ID: "old", Direction: model.DirectionIncome, Category: model.CategorySales, AmountPence: 99999, Date: date(2025, 4, 5), TaxYear: "2024-25"},
	}
	trips := []*model.Trip{
		{ID: "t1", Date: date(2025, 5, 1), DistanceMiles: 100, Type: rules.TripBusiness, Vehicle: rules.VehicleCar},
		{ID: "t2", Date: date(2025, 5, 2), DistanceMiles: 50, Type: rules.TripPersonal, Vehicle: rules.VehicleCar},
	}
	claims := []*model.HomeOfficeClaim{
		{ClaimMonth: "2025-05", HoursWorked: 60, Method: rules.HomeOfficeSimplified, TaxYear: "2025-26"},
		{ClaimMonth: "2025-06", HoursWorked: 30, Method: rules.HomeOfficeSimplified, TaxYear: "2025-26"},
	}
	return txns, trips, claims
}

func TestBuildTaxYearSummary(t *testing.T) {
	txns, trips, claims := fixture()
	s, err := BuildTaxYearSummary("2025-26", txns, trips, claims)
	require.NoError(t, err)

	assert.Equal(t, int64(500000), s.TurnoverPence)
	assert.Equal(t, int64(1000), s.OtherIncomePence)
	// 80% of £100, nothing of the personal £20, all of the uncategorised £30
	assert.Equal(t, int64(8000+3000), s.AllowableExpensePence)
	assert.Equal(t, int64(2000+2000), s.DisallowablePence)
	assert.Equal(t, int64(4500), s.Mileage.DeductionPence)
	assert.Equal(t, 100.0, s.Mileage.BusinessMiles)
	assert.Equal(t, int64(1800+1000), s.HomeOfficePence)
	assert.Equal(t, int64(500000+1000-11000-4500-2800), s.NetProfitPence)
	assert.Equal(t, 1, s.UncategorisedCount)
	assert.Equal(t, 1, s.NeedsReviewCount)

	var labels []string
	for _, ct := range s.Expenses {
		labels = append(labels, ct.Label)
	}
	assert.Equal(t, []string{"Office", "Other Expense", "Personal"}, labels)
}

func TestBuildTaxYearSummary_BadLabel(t *testing.T) {
	_, err := BuildTaxYearSummary("2025", nil, nil, nil)
	assert.Error(t, err)
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Professional Fees", CategoryLabel(model.CategoryProfessional))
	assert.Equal(t, "Cost Of Goods", CategoryLabel(model.CategoryCostOfGoods))
	assert.Equal(t, "Uncategorised", CategoryLabel(model.CategoryUnspecified))
}

func TestFormatPounds(t *testing.T) {
	assert.Equal(t, "£0.00", FormatPounds(0))
	assert.Equal(t, "£1,234.56", FormatPounds(123456))
	assert.Equal(t, "-£100.05", FormatPounds(-10005))
}

func TestWriteTransactionsCSV(t *testing.T) {
	txns, _, _ := fixture()
	var buf bytes.Buffer
	require.NoError(t, WriteTransactionsCSV(&buf, txns))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(txns)+1)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "2025-04-05", rows[1][0], "sorted by date")

	var office []string
	for _, r := range rows[1:] {
		if r[3] == "office" {
			office = r
		}
	}
	require.NotNil(t, office)
	assert.Equal(t, "100.00", office[7])
	assert.Equal(t, "80", office[9])
	assert.Equal(t, "80.00", office[10])
	assert.Equal(t, "20.00", office[11])
}

func TestWriteJSON(t *testing.T) {
	txns, trips, claims := fixture()
	s, err := BuildTaxYearSummary("2025-26", txns, trips, claims)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, TaxYearExport{Summary: s, Transactions: txns, Trips: trips, HomeOffice: claims}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, "2025-26", summary["taxYear"])
	assert.Len(t, decoded["transactions"], len(txns))
}

func pdfText(t *testing.T, data []byte) string {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r.NumPage(), 1)
	plain, err := r.GetPlainText()
	require.NoError(t, err)
	text, err := io.ReadAll(plain)
	require.NoError(t, err)
	return string(text)
}

func TestTaxYearPDF(t *testing.T) {
	txns, trips, claims := fixture()
	s, err := BuildTaxYearSummary("2025-26", txns, trips, claims)
	require.NoError(t, err)
	s.BusinessName = "Acme Plumbing"

	data, err := TaxYearPDF(s, date(2026, 1, 10))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	text := pdfText(t, data)
	assert.Contains(t, text, "Tax Year Summary 2025-26")
	assert.Contains(t, text, "Acme Plumbing")
	assert.Contains(t, text, "Net profit")
	assert.Contains(t, text, "Total allowable expenses")
}

func TestVATReturnPDF(t *testing.T) {
	ret := rules.AssembleVATReturn([]rules.VATRecord{
		{AmountPence: 100000, VATRate: 20, Direction: rules.DirectionIncome},
		{AmountPence: 50000, VATRate: 20, Direction: rules.DirectionExpense},
	})
	data, err := VATReturnPDF(VATReturnDoc{
		VRN:              "123456789",
		PeriodKey:        "25A1",
		PeriodStart:      date(2025, 4, 1),
		PeriodEnd:        date(2025, 6, 30),
		Return:           ret,
		FormBundleNumber: "256660290587",
	}, date(2025, 8, 1))
	require.NoError(t, err)

	text := pdfText(t, data)
	assert.Contains(t, text, "VAT Return")
	assert.Contains(t, text, "123456789")
	assert.Contains(t, text, "Net VAT")
	assert.Contains(t, text, "256660290587")
	assert.False(t, strings.Contains(text, "repayment"))
}
