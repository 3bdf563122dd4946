// seed-data fills a running backend with a sole trader's demo tax year: income,
// expenses with mixed business use, business trips and home-office months. It then
// reads the tax-year summary back to check everything landed.
//
// Usage:
//
//	go run ./scripts/seed-data                               # local server, local-dev-user
//	API_URL=... AUTH_TOKEN=... go run ./scripts/seed-data    # real Firebase user
//	USER_ID=demo-plumber go run ./scripts/seed-data          # SKIP_AUTH impersonation
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/report"
	"github.com/reelin/backend/internal/rpc"
	"github.com/reelin/backend/internal/rules"
	"github.com/reelin/backend/internal/service"
	"go.uber.org/zap"
)

type seeder struct {
	httpClient *http.Client
	apiURL     string
	opts       []connect.ClientOption
	log        *zap.Logger
}

func main() {
	log, err := logging.Init("info", true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logging.Sync()

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8111"
	}
	userID := os.Getenv("USER_ID")
	authToken := os.Getenv("AUTH_TOKEN")

	s := &seeder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     apiURL,
		opts:       rpc.ClientOptions(),
		log:        log,
	}
	switch {
	case authToken != "":
		log.Info("using provided auth token")
		s.opts = append(s.opts, connect.WithInterceptors(headerInterceptor("Authorization", "Bearer "+authToken)))
	case userID != "":
		log.Info("impersonating user, backend must run with SKIP_AUTH=true", zap.String("uid", userID))
		s.opts = append(s.opts, connect.WithInterceptors(headerInterceptor("X-Debug-Impersonate-User", userID)))
	default:
		log.Info("no auth token, seeding the local dev user")
	}

	ctx := context.Background()
	taxYear := rules.CurrentTaxYear(time.Now())
	start, _, err := rules.TaxYearBounds(taxYear)
	if err != nil {
		log.Fatal("invalid tax year", zap.Error(err))
	}
	log.Info("seeding", zap.String("api", apiURL), zap.String("tax_year", taxYear))

	if err := s.seedTransactions(ctx, start); err != nil {
		log.Fatal("failed to seed transactions", zap.Error(err))
	}
	if err := s.seedTrips(ctx, start); err != nil {
		log.Fatal("failed to seed trips", zap.Error(err))
	}
	if err := s.seedHomeOffice(ctx, start); err != nil {
		log.Fatal("failed to seed home office claims", zap.Error(err))
	}
	if err := s.verify(ctx, taxYear); err != nil {
		log.Fatal("verification failed", zap.Error(err))
	}
	log.Info("seeded all demo data")
}

// headerInterceptor sets one request header on every call.
func headerInterceptor(name, value string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set(name, value)
			return next(ctx, req)
		}
	}
}

func call[Req, Res any](ctx context.Context, s *seeder, method string, msg *Req) (*Res, error) {
	client := connect.NewClient[Req, Res](s.httpClient, s.apiURL+rpc.Procedure(method), s.opts...)
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func percent(p float64) *float64 { return &p }

func (s *seeder) seedTransactions(ctx context.Context, start time.Time) error {
	s.log.Info("creating transactions")

	txns := []struct {
		direction model.Direction
		pence     int64
		vat       int
		category  model.Category
		desc      string
		merchant  string
		day       int
		business  *float64
	}{
		{model.DirectionIncome, 180000, 20, model.CategorySales, "Invoice 101 bathroom refit", "", 10, nil},
		{model.DirectionIncome, 45000, 20, model.CategorySales, "Invoice 102 boiler service", "", 24, nil},
		{model.DirectionIncome, 320000, 20, model.CategorySales, "Invoice 103 kitchen plumbing", "", 52, nil},
		{model.DirectionIncome, 1250, 0, model.CategoryOtherIncome, "Savings interest", "Starling", 60, nil},
		{model.DirectionExpense, 8420, 20, model.CategoryCostOfGoods, "Copper pipe and fittings", "Screwfix", 9, nil},
		{model.DirectionExpense, 15600, 20, model.CategoryCostOfGoods, "Combi boiler parts", "Plumbase", 23, nil},
		{model.DirectionExpense, 7200, 20, model.CategoryTravel, "Diesel", "Shell", 30, percent(80)},
		{model.DirectionExpense, 3500, 20, model.CategoryOffice, "Mobile phone contract", "EE", 31, percent(60)},
		{model.DirectionExpense, 1199, 20, model.CategorySubscriptions, "Accounting app", "", 31, nil},
		{model.DirectionExpense, 45000, 20, model.CategoryProfessional, "Gas Safe renewal", "Gas Safe Register", 40, nil},
		{model.DirectionExpense, 6500, 0, model.CategoryFinancial, "Public liability insurance", "Simply Business", 41, nil},
		{model.DirectionExpense, 2899, 20, model.CategoryClothing, "Work boots", "", 45, nil},
		{model.DirectionExpense, 4200, 20, model.CategoryUnspecified, "Card payment TOOLSTATION", "Toolstation", 58, nil},
	}

	for _, t := range txns {
		_, err := call[service.CreateTransactionRequest, service.CreateTransactionResponse](ctx, s, "CreateTransaction",
			&service.CreateTransactionRequest{TransactionInput: service.TransactionInput{
				Direction:          t.direction,
				AmountPence:        t.pence,
				VATRate:            t.vat,
				Category:           t.category,
				Description:        t.desc,
				Merchant:           t.merchant,
				Date:               start.AddDate(0, 0, t.day),
				BusinessUsePercent: t.business,
			}})
		if err != nil {
			return fmt.Errorf("create transaction %q: %w", t.desc, err)
		}
		s.log.Info("created transaction", zap.String("description", t.desc), zap.String("amount", report.FormatPounds(t.pence)))
	}
	return nil
}

func (s *seeder) seedTrips(ctx context.Context, start time.Time) error {
	s.log.Info("creating trips")

	trips := []service.CreateTripRequest{
		{Date: start.AddDate(0, 0, 10), DistanceMiles: 18.4, Type: rules.TripBusiness, From: "Home", To: "Client, Leeds", Purpose: "Bathroom refit"},
		{Date: start.AddDate(0, 0, 11), DistanceMiles: 18.4, Type: rules.TripBusiness, From: "Home", To: "Client, Leeds", Purpose: "Bathroom refit"},
		{Date: start.AddDate(0, 0, 23), DistanceMiles: 6.2, Type: rules.TripBusiness, From: "Home", To: "Plumbase", Purpose: "Parts"},
		{Date: start.AddDate(0, 0, 24), DistanceMiles: 42, Type: rules.TripBusiness, From: "Home", To: "Client, York", Purpose: "Boiler service"},
		{Date: start.AddDate(0, 0, 25), DistanceMiles: 12, Type: rules.TripPersonal, From: "Home", To: "Supermarket"},
		{Date: start.AddDate(0, 0, 52), DistanceMiles: 9.5, Type: rules.TripBusiness, Vehicle: rules.VehicleBicycle, From: "Home", To: "Client, Headingley"},
	}
	for i := range trips {
		resp, err := call[service.CreateTripRequest, service.CreateTripResponse](ctx, s, "CreateTrip", &trips[i])
		if err != nil {
			return fmt.Errorf("create trip to %s: %w", trips[i].To, err)
		}
		s.log.Info("created trip",
			zap.String("to", trips[i].To),
			zap.Float64("miles", trips[i].DistanceMiles),
			zap.String("deduction", report.FormatPounds(resp.Trip.DeductionPence)))
	}
	return nil
}

func (s *seeder) seedHomeOffice(ctx context.Context, start time.Time) error {
	s.log.Info("creating home office claims")

	hours := []float64{22, 38, 64, 110}
	for i, h := range hours {
		month := start.AddDate(0, i, 0).Format("2006-01")
		_, err := call[service.UpsertHomeOfficeClaimRequest, service.UpsertHomeOfficeClaimResponse](ctx, s, "UpsertHomeOfficeClaim",
			&service.UpsertHomeOfficeClaimRequest{ClaimMonth: month, HoursWorked: h, Method: rules.HomeOfficeSimplified})
		if err != nil {
			return fmt.Errorf("upsert home office %s: %w", month, err)
		}
		s.log.Info("claimed home office", zap.String("month", month), zap.Float64("hours", h))
	}
	return nil
}

func (s *seeder) verify(ctx context.Context, taxYear string) error {
	resp, err := call[service.GetTaxYearSummaryRequest, service.GetTaxYearSummaryResponse](ctx, s, "GetTaxYearSummary",
		&service.GetTaxYearSummaryRequest{TaxYear: taxYear})
	if err != nil {
		return err
	}
	sum := resp.Summary
	if sum.TurnoverPence == 0 || sum.Mileage.TripCount == 0 {
		return fmt.Errorf("summary for %s is missing seeded data", taxYear)
	}
	s.log.Info("tax year summary",
		zap.String("turnover", report.FormatPounds(sum.TurnoverPence)),
		zap.String("allowable_expenses", report.FormatPounds(sum.AllowableExpensePence)),
		zap.String("mileage", report.FormatPounds(sum.Mileage.DeductionPence)),
		zap.String("home_office", report.FormatPounds(sum.HomeOfficePence)),
		zap.String("net_profit", report.FormatPounds(sum.NetProfitPence)),
		zap.Int("uncategorised", sum.UncategorisedCount))
	return nil
}
