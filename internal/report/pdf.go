package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/reelin/backend/internal/rules"
)

var (
	cInk     = [3]int{38, 38, 38}
	cMuted   = [3]int{107, 107, 107}
	cRule    = [3]int{217, 217, 217}
	cBrand   = [3]int{20, 83, 45}
	cBrandBg = [3]int{233, 245, 237}
)

const (
	pageW    = 210.0
	marginL  = 20.0
	marginR  = 20.0
	marginT  = 20.0
	contentW = pageW - marginL - marginR
	rowH     = 7.0
)

func setFill(pdf *gofpdf.Fpdf, c [3]int) { pdf.SetFillColor(c[0], c[1], c[2]) }
func setText(pdf *gofpdf.Fpdf, c [3]int) { pdf.SetTextColor(c[0], c[1], c[2]) }
func setDraw(pdf *gofpdf.Fpdf, c [3]int) { pdf.SetDrawColor(c[0], c[1], c[2]) }

// document wraps an A4 page set with the shared header and footer.
type document struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newDocument(title, subtitle string, generated time.Time) *document {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginL, marginT, marginR)
	pdf.SetAutoPageBreak(true, 20)
	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 8)
		setText(pdf, cMuted)
		pdf.CellFormat(contentW/2, 8, "Reelin", "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW/2, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	setText(pdf, cBrand)
	pdf.CellFormat(contentW, 10, d.tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	setText(pdf, cMuted)
	if subtitle != "" {
		pdf.CellFormat(contentW, 6, d.tr(subtitle), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(contentW, 5, "Generated "+generated.Format("2 January 2006"), "", 1, "L", false, 0, "")
	pdf.Ln(4)
	return d
}

func (d *document) section(title string) {
	d.pdf.Ln(3)
	d.pdf.SetFont("Helvetica", "B", 11)
	setText(d.pdf, cInk)
	d.pdf.CellFormat(contentW, 7, d.tr(title), "", 1, "L", false, 0, "")
	setDraw(d.pdf, cRule)
	y := d.pdf.GetY()
	d.pdf.Line(marginL, y, marginL+contentW, y)
	d.pdf.Ln(1)
}

// row draws a label and right-aligned value. Highlighted rows get a tinted background.
func (d *document) row(label, value string, highlight bool) {
	d.pdf.SetFont("Helvetica", "", 10)
	if highlight {
		d.pdf.SetFont("Helvetica", "B", 10)
		setFill(d.pdf, cBrandBg)
	}
	setText(d.pdf, cInk)
	d.pdf.CellFormat(contentW-45, rowH, d.tr(label), "", 0, "L", highlight, 0, "")
	d.pdf.CellFormat(45, rowH, d.tr(value), "", 1, "R", highlight, 0, "")
}

func (d *document) note(text string) {
	d.pdf.Ln(2)
	d.pdf.SetFont("Helvetica", "I", 8)
	setText(d.pdf, cMuted)
	d.pdf.MultiCell(contentW, 4, d.tr(text), "", "L", false)
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// TaxYearPDF renders the self-assessment summary.
func TaxYearPDF(s *TaxYearSummary, generated time.Time) ([]byte, error) {
	subtitle := fmt.Sprintf("%s to %s", s.PeriodStart.Format("2 January 2006"), s.PeriodEnd.Format("2 January 2006"))
	if s.BusinessName != "" {
		subtitle = s.BusinessName + ", " + subtitle
	}
	d := newDocument("Tax Year Summary "+s.TaxYear, subtitle, generated)

	d.section("Income")
	for _, ct := range s.Income {
		d.row(ct.Label, FormatPounds(ct.AllowablePence), false)
	}
	d.row("Total income", FormatPounds(s.TurnoverPence+s.OtherIncomePence), true)

	d.section("Allowable expenses")
	for _, ct := range s.Expenses {
		if ct.AllowablePence == 0 {
			continue
		}
		d.row(ct.Label, FormatPounds(ct.AllowablePence), false)
	}
	d.row("Total allowable expenses", FormatPounds(s.AllowableExpensePence), true)

	d.section("Simplified expenses")
	d.row(fmt.Sprintf("Mileage (%.1f business miles)", s.Mileage.BusinessMiles), FormatPounds(s.Mileage.DeductionPence), false)
	d.row("Use of home", FormatPounds(s.HomeOfficePence), false)

	d.section("Result")
	label := "Net profit"
	if s.NetProfitPence < 0 {
		label = "Net loss"
	}
	d.row(label, FormatPounds(s.NetProfitPence), true)
	d.row("Disallowed personal share", FormatPounds(s.DisallowablePence), false)

	if s.NeedsReviewCount > 0 || s.UncategorisedCount > 0 {
		d.note(fmt.Sprintf("%d transactions still need review and %d are uncategorised. "+
			"Uncategorised expenses are shown as other expenses.", s.NeedsReviewCount, s.UncategorisedCount))
	}
	d.note("This summary is prepared from your records to help complete the SA103 self-employment pages. It is not a tax return.")
	return d.bytes()
}

// VATReturnDoc is the input to VATReturnPDF.
type VATReturnDoc struct {
	BusinessName string
	VRN          string
	PeriodKey    string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Return       rules.VATReturn

	// Set once submitted.
	FormBundleNumber string
	ProcessingDate   string
}

var vatBoxLabels = [9]string{
	"Box 1  VAT due on sales",
	"Box 2  VAT due on acquisitions",
	"Box 3  Total VAT due",
	"Box 4  VAT reclaimed on purchases",
	"Box 5  Net VAT",
	"Box 6  Total sales excluding VAT",
	"Box 7  Total purchases excluding VAT",
	"Box 8  Goods supplied to EU excluding VAT",
	"Box 9  Acquisitions from EU excluding VAT",
}

// VATReturnPDF renders a nine-box VAT return.
func VATReturnPDF(doc VATReturnDoc, generated time.Time) ([]byte, error) {
	subtitle := fmt.Sprintf("%s to %s", doc.PeriodStart.Format("2 January 2006"), doc.PeriodEnd.Format("2 January 2006"))
	if doc.BusinessName != "" {
		subtitle = doc.BusinessName + ", " + subtitle
	}
	d := newDocument("VAT Return", subtitle, generated)

	if doc.VRN != "" || doc.PeriodKey != "" {
		d.section("Registration")
		d.row("VAT registration number", doc.VRN, false)
		d.row("Period key", doc.PeriodKey, false)
	}

	r := doc.Return
	values := [9]int64{
		r.VATDueSales, r.VATDueAcquisitions, r.TotalVATDue, r.VATReclaimedCurrPeriod, r.NetVATDue,
		r.TotalValueSalesExVAT, r.TotalValuePurchasesExVAT, r.TotalValueGoodsSuppliedExVAT, r.TotalAcquisitionsExVAT,
	}
	d.section("Return")
	for i, label := range vatBoxLabels {
		d.row(label, FormatPounds(values[i]), i == 4)
	}
	if r.IsRepayment() {
		d.note("Box 5 is negative: HMRC owes you a repayment for this period.")
	}

	if len(r.Breakdown) > 0 {
		d.section("Breakdown by rate")
		for _, b := range r.Breakdown {
			label := fmt.Sprintf("Sales at %d%% (%d)", b.VATRate, b.Count)
			if b.Direction == rules.DirectionExpense {
				label = fmt.Sprintf("Purchases at %d%% (%d)", b.VATRate, b.Count)
			}
			d.row(label, FormatPounds(b.NetPence)+" + "+FormatPounds(b.VATPence), false)
		}
	}

	if doc.FormBundleNumber != "" {
		d.section("Submission receipt")
		d.row("Form bundle number", doc.FormBundleNumber, false)
		d.row("Processing date", doc.ProcessingDate, false)
	}
	return d.bytes()
}
