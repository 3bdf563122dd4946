package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/reelin/backend/internal/report"
	"github.com/reelin/backend/internal/rules"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// parsePounds accepts "1234.56", "1,234.56" or "£1,234.56" and returns pence.
func parsePounds(s string) (int64, error) {
	clean := strings.NewReplacer("£", "", ",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return int64(math.Round(v * 100)), nil
}

type mileageResult struct {
	Vehicle             rules.VehicleType `yaml:"vehicle"`
	DistanceMiles       float64           `yaml:"distance_miles"`
	YTDBusinessMiles    float64           `yaml:"ytd_business_miles"`
	DeductionPence      int64             `yaml:"deduction_pence"`
	HigherRateRemaining float64           `yaml:"higher_rate_miles_remaining"`
}

func mileageCmd(opts *options) *cobra.Command {
	var (
		miles   float64
		ytd     float64
		vehicle string
	)
	cmd := &cobra.Command{
		Use:   "mileage",
		Short: "Deduction for a business trip at HMRC approved mileage rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rules.ValidateDistance("miles", miles); err != nil {
				return err
			}
			if err := rules.ValidateDistance("ytd", ytd); err != nil {
				return err
			}
			v := rules.VehicleType(vehicle)
			if err := rules.ValidateVehicle(v); err != nil {
				return err
			}

			res := mileageResult{
				Vehicle:          v,
				DistanceMiles:    miles,
				YTDBusinessMiles: ytd,
				DeductionPence: rules.TripDeduction(rules.Trip{
					DistanceMiles: miles,
					Type:          rules.TripBusiness,
					Vehicle:       v,
				}, ytd),
			}
			if v == rules.VehicleCar {
				res.HigherRateRemaining = math.Max(0, rules.MileageThresholdMiles-ytd-miles)
			}
			opts.log.Debug("mileage calculated",
				zap.Float64("miles", miles),
				zap.Float64("ytd", ytd),
				zap.Int64("pence", res.DeductionPence))

			lines := []line{
				{"Vehicle", string(v)},
				{"Distance", fmt.Sprintf("%g miles", miles)},
				{"Business miles so far", fmt.Sprintf("%g miles", ytd)},
				{"Deduction", report.FormatPounds(res.DeductionPence)},
			}
			if v == rules.VehicleCar {
				lines = append(lines, line{"45p miles remaining", fmt.Sprintf("%g miles", res.HigherRateRemaining)})
			}
			return render(cmd.OutOrStdout(), opts, res, lines)
		},
	}
	cmd.Flags().Float64Var(&miles, "miles", 0, "Trip distance in miles")
	cmd.Flags().Float64Var(&ytd, "ytd", 0, "Business miles already claimed this tax year")
	cmd.Flags().StringVar(&vehicle, "vehicle", string(rules.VehicleCar), "Vehicle (car, motorcycle, bicycle)")
	_ = cmd.MarkFlagRequired("miles")
	return cmd
}

type homeOfficeResult struct {
	Method         rules.HomeOfficeMethod `yaml:"method"`
	Hours          float64                `yaml:"hours,omitempty"`
	AllowancePence int64                  `yaml:"allowance_pence"`
}

func homeOfficeCmd(opts *options) *cobra.Command {
	var (
		hours   float64
		method  string
		costs   string
		percent float64
	)
	cmd := &cobra.Command{
		Use:   "home-office",
		Short: "Monthly working-from-home allowance",
		Long: `Values one month of working from home.

The simplified method uses the HMRC flat rate by whole hours worked:
under 25 hours nothing, 25-50 £10, 51-100 £18, 101 or more £26.
The actual method apportions the month's household running costs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			claim := rules.HomeOfficeClaim{
				HoursWorked:        hours,
				Method:             rules.HomeOfficeMethod(method),
				BusinessUsePercent: percent,
			}
			if claim.Method == rules.HomeOfficeActual {
				pence, err := parsePounds(costs)
				if err != nil {
					return err
				}
				claim.ActualCostsPence = pence
			}
			if err := rules.ValidateHomeOfficeClaim(claim); err != nil {
				return err
			}

			res := homeOfficeResult{Method: claim.Method, AllowancePence: rules.HomeOfficeAllowance(claim)}
			lines := []line{{"Method", method}}
			if claim.Method == rules.HomeOfficeSimplified {
				res.Hours = hours
				lines = append(lines, line{"Hours", fmt.Sprintf("%g", hours)})
			} else {
				lines = append(lines,
					line{"Running costs", report.FormatPounds(claim.ActualCostsPence)},
					line{"Business use", fmt.Sprintf("%g%%", percent)})
			}
			lines = append(lines, line{"Allowance", report.FormatPounds(res.AllowancePence)})
			return render(cmd.OutOrStdout(), opts, res, lines)
		},
	}
	cmd.Flags().Float64Var(&hours, "hours", 0, "Hours worked at home in the month")
	cmd.Flags().StringVar(&method, "method", string(rules.HomeOfficeSimplified), "Method (simplified, actual)")
	cmd.Flags().StringVar(&costs, "costs", "0", "Household running costs for the month in pounds (actual method)")
	cmd.Flags().Float64Var(&percent, "percent", 0, "Business-use percentage of the costs (actual method)")
	return cmd
}

type apportionResult struct {
	AmountPence        int64   `yaml:"amount_pence"`
	BusinessUsePercent float64 `yaml:"business_use_percent"`
	AllowablePence     int64   `yaml:"allowable_pence"`
	DisallowablePence  int64   `yaml:"disallowable_pence"`
}

func apportionCmd(opts *options) *cobra.Command {
	var (
		amount  string
		percent float64
	)
	cmd := &cobra.Command{
		Use:   "apportion",
		Short: "Split a mixed-use cost into allowable and disallowable parts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pence, err := parsePounds(amount)
			if err != nil {
				return err
			}
			if err := rules.ValidateAmount(pence); err != nil {
				return err
			}
			if err := rules.ValidatePercent(percent); err != nil {
				return err
			}
			a := rules.Apportion(pence, percent)
			res := apportionResult{
				AmountPence:        pence,
				BusinessUsePercent: percent,
				AllowablePence:     a.AllowablePence,
				DisallowablePence:  a.DisallowablePence,
			}
			return render(cmd.OutOrStdout(), opts, res, []line{
				{"Amount", report.FormatPounds(pence)},
				{"Business use", fmt.Sprintf("%g%%", percent)},
				{"Allowable", report.FormatPounds(a.AllowablePence)},
				{"Disallowable", report.FormatPounds(a.DisallowablePence)},
			})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "Cost in pounds")
	cmd.Flags().Float64Var(&percent, "percent", 100, "Business-use percentage")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

// vatFile is the YAML layout read by the vat command.
//
//	period: 2025-Q1
//	records:
//	  - description: Invoice 7
//	    direction: income
//	    net: "1,000.00"
//	    rate: 20
type vatFile struct {
	Period  string      `yaml:"period"`
	Records []vatRecord `yaml:"records"`
}

type vatRecord struct {
	Description string          `yaml:"description"`
	Direction   rules.Direction `yaml:"direction"`
	Net         string          `yaml:"net"`
	Rate        int             `yaml:"rate"`
}

func loadVATFile(path string) (*vatFile, []rules.VATRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read records: %w", err)
	}
	var f vatFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	records := make([]rules.VATRecord, 0, len(f.Records))
	for i, r := range f.Records {
		pence, err := parsePounds(r.Net)
		if err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		rec := rules.VATRecord{AmountPence: pence, VATRate: r.Rate, Direction: r.Direction}
		if err := rules.ValidateVATRecord(rec); err != nil {
			return nil, nil, fmt.Errorf("record %d (%s): %w", i+1, r.Description, err)
		}
		records = append(records, rec)
	}
	return &f, records, nil
}

type vatResult struct {
	Period  string          `yaml:"period,omitempty"`
	Records int             `yaml:"records"`
	Return  rules.VATReturn `yaml:"return"`
}

func vatCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "vat",
		Short: "Assemble a nine-box VAT return from a YAML file of net amounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, records, err := loadVATFile(file)
			if err != nil {
				return err
			}
			opts.log.Debug("loaded VAT records", zap.String("file", file), zap.Int("count", len(records)))

			ret := rules.AssembleVATReturn(records)
			box5 := report.FormatPounds(ret.NetVATDue)
			if ret.IsRepayment() {
				box5 = report.FormatPounds(-ret.NetVATDue) + " repayment"
			}
			lines := []line{
				{"Box 1 VAT due on sales", report.FormatPounds(ret.VATDueSales)},
				{"Box 2 VAT due on acquisitions", report.FormatPounds(ret.VATDueAcquisitions)},
				{"Box 3 Total VAT due", report.FormatPounds(ret.TotalVATDue)},
				{"Box 4 VAT reclaimed", report.FormatPounds(ret.VATReclaimedCurrPeriod)},
				{"Box 5 Net VAT", box5},
				{"Box 6 Sales ex VAT", report.FormatPounds(ret.TotalValueSalesExVAT)},
				{"Box 7 Purchases ex VAT", report.FormatPounds(ret.TotalValuePurchasesExVAT)},
				{"Box 8 Goods supplied ex VAT", report.FormatPounds(ret.TotalValueGoodsSuppliedExVAT)},
				{"Box 9 Acquisitions ex VAT", report.FormatPounds(ret.TotalAcquisitionsExVAT)},
			}
			if f.Period != "" {
				lines = append([]line{{"Period", f.Period}}, lines...)
			}
			return render(cmd.OutOrStdout(), opts, vatResult{Period: f.Period, Records: len(records), Return: ret}, lines)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file of VAT records")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

type taxYearResult struct {
	TaxYear string `yaml:"tax_year"`
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
}

func taxYearCmd(opts *options) *cobra.Command {
	var date, label string
	cmd := &cobra.Command{
		Use:   "tax-year",
		Short: "UK tax year of a date, or the dates of a tax year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if label == "" {
				d := time.Now().UTC()
				if date != "" {
					parsed, err := time.Parse(time.DateOnly, date)
					if err != nil {
						return fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", date)
					}
					d = parsed
				}
				label = rules.TaxYearOf(d)
			}
			start, end, err := rules.TaxYearBounds(label)
			if err != nil {
				return err
			}
			res := taxYearResult{
				TaxYear: label,
				Start:   start.Format(time.DateOnly),
				End:     end.Format(time.DateOnly),
			}
			return render(cmd.OutOrStdout(), opts, res, []line{
				{"Tax year", res.TaxYear},
				{"Starts", res.Start},
				{"Ends", res.End},
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&label, "year", "", "Tax year label, e.g. 2025-26")
	cmd.MarkFlagsMutuallyExclusive("date", "year")
	return cmd
}
