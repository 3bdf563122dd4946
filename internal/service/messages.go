package service

import (
	"time"

	"github.com/reelin/backend/internal/lessons"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/report"
	"github.com/reelin/backend/internal/rules"
)

// Transactions

// TransactionInput holds the caller-editable fields of a transaction.
type TransactionInput struct {
	Direction   model.Direction `json:"direction"`
	AmountPence int64           `json:"amountPence"`
	VATRate     int             `json:"vatRate"`
	Category    model.Category  `json:"category"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant,omitempty"`
	Date        time.Time       `json:"date"`
	ReceiptPath string          `json:"receiptPath,omitempty"`

	// Nil means 100 on create and unchanged on update.
	BusinessUsePercent *float64 `json:"businessUsePercent,omitempty"`
}

// TransactionView is a transaction with its computed apportionment.
type TransactionView struct {
	*model.Transaction
	Apportionment rules.Apportionment `json:"apportionment"`
}

func viewOf(t *model.Transaction) TransactionView {
	return TransactionView{Transaction: t, Apportionment: t.Apportionment()}
}

type CreateTransactionRequest struct {
	TransactionInput
}

type CreateTransactionResponse struct {
	Transaction TransactionView `json:"transaction"`
}

type GetTransactionRequest struct {
	ID string `json:"id"`
}

type GetTransactionResponse struct {
	Transaction TransactionView `json:"transaction"`
}

type UpdateTransactionRequest struct {
	ID string `json:"id"`
	TransactionInput

	// Reviewed clears the review flag without changing the category.
	Reviewed bool `json:"reviewed"`
}

type UpdateTransactionResponse struct {
	Transaction TransactionView `json:"transaction"`
}

type DeleteTransactionRequest struct {
	ID string `json:"id"`
}

type DeleteTransactionResponse struct{}

type ListTransactionsRequest struct {
	Direction   model.Direction `json:"direction,omitempty"`
	Category    model.Category  `json:"category,omitempty"`
	TaxYear     string          `json:"taxYear,omitempty"`
	NeedsReview *bool           `json:"needsReview,omitempty"`
	PageSize    int32           `json:"pageSize"`
	PageToken   string          `json:"pageToken,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions  []TransactionView `json:"transactions"`
	NextPageToken string            `json:"nextPageToken,omitempty"`
}

type SearchTransactionsRequest struct {
	Query          string          `json:"query"`
	Category       model.Category  `json:"category,omitempty"`
	Direction      model.Direction `json:"direction,omitempty"`
	AmountMinPence int64           `json:"amountMinPence,omitempty"`
	AmountMaxPence int64           `json:"amountMaxPence,omitempty"`
	StartDate      *time.Time      `json:"startDate,omitempty"`
	EndDate        *time.Time      `json:"endDate,omitempty"`
	Page           int             `json:"page"`
	PageSize       int             `json:"pageSize"`
}

type SearchTransactionsResponse struct {
	Results    []*model.SearchResult `json:"results"`
	TotalCount int                   `json:"totalCount"`
	TotalPages int                   `json:"totalPages"`
	Page       int                   `json:"page"`
}

// Mileage

type CreateTripRequest struct {
	Date          time.Time         `json:"date"`
	DistanceMiles float64           `json:"distanceMiles"`
	Type          rules.TripType    `json:"type"`
	Vehicle       rules.VehicleType `json:"vehicle,omitempty"`
	From          string            `json:"from,omitempty"`
	To            string            `json:"to,omitempty"`
	Purpose       string            `json:"purpose,omitempty"`
}

type CreateTripResponse struct {
	Trip             *model.Trip `json:"trip"`
	YTDBusinessMiles float64     `json:"ytdBusinessMiles"`
}

type ListTripsRequest struct {
	TaxYear   string `json:"taxYear,omitempty"`
	PageSize  int32  `json:"pageSize"`
	PageToken string `json:"pageToken,omitempty"`
}

type ListTripsResponse struct {
	Trips         []*model.Trip `json:"trips"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

type DeleteTripRequest struct {
	ID string `json:"id"`
}

type DeleteTripResponse struct{}

type GetMileageSummaryRequest struct {
	TaxYear string `json:"taxYear,omitempty"`
}

type GetMileageSummaryResponse struct {
	TaxYear string               `json:"taxYear"`
	Summary rules.MileageSummary `json:"summary"`
}

type CalculateMileageRequest struct {
	DistanceMiles    float64           `json:"distanceMiles"`
	YTDBusinessMiles float64           `json:"ytdBusinessMiles"`
	Vehicle          rules.VehicleType `json:"vehicle,omitempty"`
}

type CalculateMileageResponse struct {
	DeductionPence      int64   `json:"deductionPence"`
	HigherRateMiles     float64 `json:"higherRateMiles"`
	LowerRateMiles      float64 `json:"lowerRateMiles"`
	HigherRateRemaining float64 `json:"higherRateRemaining"`
}

// Home office

type UpsertHomeOfficeClaimRequest struct {
	ClaimMonth         string                 `json:"claimMonth"`
	HoursWorked        float64                `json:"hoursWorked"`
	Method             rules.HomeOfficeMethod `json:"method,omitempty"`
	ActualCostsPence   int64                  `json:"actualCostsPence,omitempty"`
	BusinessUsePercent float64                `json:"businessUsePercent,omitempty"`
}

type UpsertHomeOfficeClaimResponse struct {
	Claim *model.HomeOfficeClaim `json:"claim"`
}

type ListHomeOfficeClaimsRequest struct {
	TaxYear string `json:"taxYear,omitempty"`
}

type ListHomeOfficeClaimsResponse struct {
	TaxYear    string                   `json:"taxYear"`
	Claims     []*model.HomeOfficeClaim `json:"claims"`
	TotalPence int64                    `json:"totalPence"`
}

type CalculateHomeOfficeRequest struct {
	HoursWorked        float64                `json:"hoursWorked"`
	Method             rules.HomeOfficeMethod `json:"method,omitempty"`
	ActualCostsPence   int64                  `json:"actualCostsPence,omitempty"`
	BusinessUsePercent float64                `json:"businessUsePercent,omitempty"`
}

type CalculateHomeOfficeResponse struct {
	AllowancePence int64 `json:"allowancePence"`
}

// VAT

type PrepareVATReturnRequest struct {
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
}

type PrepareVATReturnResponse struct {
	PeriodStart      time.Time       `json:"periodStart"`
	PeriodEnd        time.Time       `json:"periodEnd"`
	Return           rules.VATReturn `json:"return"`
	TransactionCount int             `json:"transactionCount"`
}

type SubmitVATReturnRequest struct {
	PeriodKey   string    `json:"periodKey"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Finalised   bool      `json:"finalised"`
}

type SubmitVATReturnResponse struct {
	Submission *model.VATSubmission `json:"submission"`
}

type ListVATSubmissionsRequest struct {
	PageSize  int32  `json:"pageSize"`
	PageToken string `json:"pageToken,omitempty"`
}

type ListVATSubmissionsResponse struct {
	Submissions   []*model.VATSubmission `json:"submissions"`
	NextPageToken string                 `json:"nextPageToken,omitempty"`
}

type GetVATObligationsRequest struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	// "O" for open or "F" for fulfilled; empty returns both.
	Status string `json:"status,omitempty"`
}

// VATObligation is a return period HMRC expects.
type VATObligation struct {
	PeriodKey string    `json:"periodKey"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Due       time.Time `json:"due"`
	Status    string    `json:"status"`
	Received  time.Time `json:"received,omitzero"`
}

type GetVATObligationsResponse struct {
	VRN         string          `json:"vrn"`
	Obligations []VATObligation `json:"obligations"`
}

// Apportionment

type CalculateApportionmentRequest struct {
	AmountPence        int64   `json:"amountPence"`
	BusinessUsePercent float64 `json:"businessUsePercent"`
}

type CalculateApportionmentResponse struct {
	Apportionment rules.Apportionment `json:"apportionment"`
}

// Reports and exports

type GetTaxYearSummaryRequest struct {
	TaxYear string `json:"taxYear,omitempty"`
}

type GetTaxYearSummaryResponse struct {
	Summary *report.TaxYearSummary `json:"summary"`
}

type ExportTaxYearRequest struct {
	TaxYear string        `json:"taxYear,omitempty"`
	Format  report.Format `json:"format"`
}

// ExportResponse carries a generated file.
type ExportResponse struct {
	Data        []byte `json:"data"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type ExportVATReturnRequest struct {
	// A submitted period key exports the stored return and its receipt.
	PeriodKey   string    `json:"periodKey,omitempty"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
}

type ExportReceiptsRequest struct {
	TaxYear string `json:"taxYear,omitempty"`
}

type ExportReceiptsResponse struct {
	ExportResponse
	ReceiptCount int `json:"receiptCount"`
}

// Banking

type StartBankConnectionRequest struct{}

type StartBankConnectionResponse struct {
	ConnectionID string `json:"connectionId"`
	AuthURL      string `json:"authUrl"`
	State        string `json:"state"`
}

type CompleteBankConnectionRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type CompleteBankConnectionResponse struct {
	Connection *model.BankConnection `json:"connection"`
}

type SyncBankTransactionsRequest struct {
	ConnectionID string `json:"connectionId"`

	// Defaults to the start of the current tax year and now.
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

type SyncBankTransactionsResponse struct {
	Imported    int `json:"imported"`
	Duplicates  int `json:"duplicates"`
	AutoApplied int `json:"autoApplied"`
	NeedsReview int `json:"needsReview"`
}

type ListBankConnectionsRequest struct{}

type ListBankConnectionsResponse struct {
	Connections []*model.BankConnection `json:"connections"`
}

type DisconnectBankRequest struct {
	ConnectionID string `json:"connectionId"`
}

type DisconnectBankResponse struct{}

// HMRC

type StartHMRCConnectionRequest struct {
	VRN string `json:"vrn"`
}

type StartHMRCConnectionResponse struct {
	AuthURL string `json:"authUrl"`
	State   string `json:"state"`
}

type CompleteHMRCConnectionRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type CompleteHMRCConnectionResponse struct {
	Connection *model.HMRCConnection `json:"connection"`
}

// Categorisation

type CategoriseTransactionsRequest struct {
	// Explicit IDs take precedence over the tax-year selection.
	TransactionIDs []string `json:"transactionIds,omitempty"`
	TaxYear        string   `json:"taxYear,omitempty"`
	OnlyUnreviewed bool     `json:"onlyUnreviewed"`
}

// CategorisationOutcome reports what happened to one transaction.
type CategorisationOutcome struct {
	TransactionID string         `json:"transactionId"`
	Category      model.Category `json:"category"`
	Confidence    float64        `json:"confidence"`
	Source        string         `json:"source"`
	Reasoning     string         `json:"reasoning,omitempty"`
	Applied       bool           `json:"applied"`
	NeedsReview   bool           `json:"needsReview"`
}

type CategoriseTransactionsResponse struct {
	Outcomes    []CategorisationOutcome `json:"outcomes"`
	AutoApplied int                     `json:"autoApplied"`
	NeedsReview int                     `json:"needsReview"`
}

// Learning

type ListLessonsRequest struct{}

type ListLessonsResponse struct {
	Modules []lessons.Module `json:"modules"`
}

type GetLessonRequest struct {
	Slug string `json:"slug"`
}

type GetLessonResponse struct {
	Lesson    lessons.Lesson `json:"lesson"`
	Completed bool           `json:"completed"`
}

type CompleteLessonRequest struct {
	Slug string `json:"slug"`
}

type CompleteLessonResponse struct {
	Progress lessons.Progress `json:"progress"`
}

type GetLearningProgressRequest struct{}

type GetLearningProgressResponse struct {
	Progress lessons.Progress `json:"progress"`
}

// Waitlist

type JoinWaitlistRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

type JoinWaitlistResponse struct {
	Position      int  `json:"position"`
	AlreadyJoined bool `json:"alreadyJoined"`
}

type GetWaitlistStatsRequest struct{}

type GetWaitlistStatsResponse struct {
	Count int `json:"count"`
}

// Subscriptions

type GetSubscriptionStatusRequest struct{}

type GetSubscriptionStatusResponse struct {
	Tier              model.SubscriptionTier   `json:"tier"`
	Status            model.SubscriptionStatus `json:"status"`
	CancelAtPeriodEnd bool                     `json:"cancelAtPeriodEnd"`
	CurrentPeriodEnd  time.Time                `json:"currentPeriodEnd,omitzero"`
}

type CreateCheckoutSessionRequest struct {
	SuccessURL string `json:"successUrl,omitempty"`
	CancelURL  string `json:"cancelUrl,omitempty"`
}

type CreateCheckoutSessionResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

type CancelSubscriptionRequest struct{}

type CancelSubscriptionResponse struct {
	Status            model.SubscriptionStatus `json:"status"`
	CancelAtPeriodEnd bool                     `json:"cancelAtPeriodEnd"`
	CurrentPeriodEnd  time.Time                `json:"currentPeriodEnd,omitzero"`
}

// Profile

type GetProfileRequest struct{}

type GetProfileResponse struct {
	User *model.User `json:"user"`
}

// UpdateProfileRequest changes only the fields that are set.
type UpdateProfileRequest struct {
	DisplayName    *string            `json:"displayName,omitempty"`
	BusinessName   *string            `json:"businessName,omitempty"`
	VATRegistered  *bool              `json:"vatRegistered,omitempty"`
	VRN            *string            `json:"vrn,omitempty"`
	DefaultVehicle *rules.VehicleType `json:"defaultVehicle,omitempty"`
}

type UpdateProfileResponse struct {
	User *model.User `json:"user"`
}
