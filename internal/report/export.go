package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/reelin/backend/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

var csvHeader = []string{
	"date", "tax_year", "direction", "category", "category_label", "description", "merchant",
	"amount", "vat_rate", "business_use_percent", "allowable", "disallowable", "source", "receipt",
}

// WriteTransactionsCSV writes one row per transaction in date order. Amounts are pounds.
func WriteTransactionsCSV(w io.Writer, txns []*model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range byDate(txns) {
		a := t.Apportionment()
		row := []string{
			t.Date.Format("2006-01-02"),
			t.TaxYear,
			string(t.Direction),
			string(t.Category),
			CategoryLabel(t.Category),
			t.Description,
			t.Merchant,
			decimalPounds(t.AmountPence),
			strconv.Itoa(t.VATRate),
			strconv.FormatFloat(t.BusinessUsePercent, 'f', -1, 64),
			decimalPounds(a.AllowablePence),
			decimalPounds(a.DisallowablePence),
			string(t.Source),
			t.ReceiptPath,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// TaxYearExport is the JSON export document.
type TaxYearExport struct {
	Summary      *TaxYearSummary          `json:"summary"`
	Transactions []*model.Transaction     `json:"transactions"`
	Trips        []*model.Trip            `json:"trips"`
	HomeOffice   []*model.HomeOfficeClaim `json:"homeOffice"`
}

// WriteJSON writes the export as indented JSON.
func WriteJSON(w io.Writer, export TaxYearExport) error {
	export.Transactions = byDate(export.Transactions)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

func byDate(txns []*model.Transaction) []*model.Transaction {
	out := append([]*model.Transaction(nil), txns...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func decimalPounds(pence int64) string {
	sign := ""
	if pence < 0 {
		sign = "-"
		pence = -pence
	}
	return fmt.Sprintf("%s%d.%02d", sign, pence/100, pence%100)
}
