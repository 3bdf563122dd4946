// Package report builds tax-year and VAT summaries and renders them as CSV, JSON and PDF.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/rules"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CategoryTotal is the apportioned total of one category.
type CategoryTotal struct {
	Category          model.Category `json:"category"`
	Label             string         `json:"label"`
	AllowablePence    int64          `json:"allowablePence"`
	DisallowablePence int64          `json:"disallowablePence"`
	Count             int            `json:"count"`
}

// TaxYearSummary is the self-assessment roll-up for one tax year.
type TaxYearSummary struct {
	TaxYear      string    `json:"taxYear"`
	BusinessName string    `json:"businessName,omitempty"`
	PeriodStart  time.Time `json:"periodStart"`
	PeriodEnd    time.Time `json:"periodEnd"`

	TurnoverPence         int64 `json:"turnoverPence"`
	OtherIncomePence      int64 `json:"otherIncomePence"`
	AllowableExpensePence int64 `json:"allowableExpensePence"`
	DisallowablePence     int64 `json:"disallowablePence"`

	Mileage         rules.MileageSummary `json:"mileage"`
	HomeOfficePence int64                `json:"homeOfficePence"`

	// Income less allowable expenses and simplified deductions. Negative is a loss.
	NetProfitPence int64 `json:"netProfitPence"`

	Income   []CategoryTotal `json:"income"`
	Expenses []CategoryTotal `json:"expenses"`

	UncategorisedCount int `json:"uncategorisedCount"`
	NeedsReviewCount   int `json:"needsReviewCount"`
}

// BuildTaxYearSummary totals the tax year's rows. Rows outside the tax year are ignored.
func BuildTaxYearSummary(taxYear string, txns []*model.Transaction, trips []*model.Trip, claims []*model.HomeOfficeClaim) (*TaxYearSummary, error) {
	start, end, err := rules.TaxYearBounds(taxYear)
	if err != nil {
		return nil, err
	}
	s := &TaxYearSummary{TaxYear: taxYear, PeriodStart: start, PeriodEnd: end}

	income := map[model.Category]*CategoryTotal{}
	expenses := map[model.Category]*CategoryTotal{}
	for _, t := range txns {
		if rules.TaxYearOf(t.Date) != taxYear {
			continue
		}
		if t.NeedsReview {
			s.NeedsReviewCount++
		}
		cat := t.Category
		if cat == model.CategoryUnspecified {
			s.UncategorisedCount++
			if t.Direction == model.DirectionIncome {
				cat = model.CategorySales
			} else {
				cat = model.CategoryOtherExpense
			}
		}
		a := t.Apportionment()
		group := expenses
		if t.Direction == model.DirectionIncome {
			group = income
			if cat == model.CategoryOtherIncome {
				s.OtherIncomePence += a.AllowablePence
			} else {
				s.TurnoverPence += a.AllowablePence
			}
		} else {
			s.AllowableExpensePence += a.AllowablePence
			s.DisallowablePence += a.DisallowablePence
		}
		ct, ok := group[cat]
		if !ok {
			ct = &CategoryTotal{Category: cat, Label: CategoryLabel(cat)}
			group[cat] = ct
		}
		ct.AllowablePence += a.AllowablePence
		ct.DisallowablePence += a.DisallowablePence
		ct.Count++
	}
	s.Income = sortedTotals(income)
	s.Expenses = sortedTotals(expenses)

	var rulesTrips []rules.Trip
	for _, t := range trips {
		if rules.TaxYearOf(t.Date) == taxYear {
			rulesTrips = append(rulesTrips, t.RulesTrip())
		}
	}
	_, s.Mileage = rules.SummariseMileage(rulesTrips)

	var rulesClaims []rules.HomeOfficeClaim
	for _, c := range claims {
		if c.TaxYear == taxYear {
			rulesClaims = append(rulesClaims, c.RulesClaim())
		}
	}
	s.HomeOfficePence = rules.AnnualHomeOffice(rulesClaims)

	s.NetProfitPence = s.TurnoverPence + s.OtherIncomePence - s.AllowableExpensePence -
		s.Mileage.DeductionPence - s.HomeOfficePence
	return s, nil
}

func sortedTotals(m map[model.Category]*CategoryTotal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(m))
	for _, ct := range m {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

var labelCaser = cases.Title(language.BritishEnglish)

// CategoryLabel is the display name of a category, e.g. "Professional Fees".
func CategoryLabel(c model.Category) string {
	if c == model.CategoryUnspecified {
		return "Uncategorised"
	}
	return labelCaser.String(strings.ReplaceAll(string(c), "_", " "))
}

var printer = message.NewPrinter(language.BritishEnglish)

// FormatPounds renders pence as "£1,234.56". Negative amounts get a leading minus.
func FormatPounds(pence int64) string {
	sign := ""
	if pence < 0 {
		sign = "-"
		pence = -pence
	}
	return fmt.Sprintf("%s£%s.%02d", sign, printer.Sprintf("%d", pence/100), pence%100)
}
