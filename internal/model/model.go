// Package model holds the persisted entities and RPC messages of the Reelin service.
//
// Field names double as Firestore document field names, so renaming a field is a
// data migration.
package model

import (
	"time"

	"github.com/reelin/backend/internal/rules"
	"golang.org/x/oauth2"
)

// Direction of a bookkeeping transaction.
type Direction = rules.Direction

const (
	DirectionIncome  = rules.DirectionIncome
	DirectionExpense = rules.DirectionExpense
)

// Category is an HMRC self-assessment (SA103) income or expense box.
type Category string

const (
	CategoryUnspecified Category = ""

	// Income
	CategorySales       Category = "sales"
	CategoryOtherIncome Category = "other_income"

	// Allowable expenses
	CategoryCostOfGoods   Category = "cost_of_goods"
	CategoryStaff         Category = "staff"
	CategoryTravel        Category = "travel"
	CategoryPremises      Category = "premises"
	CategoryOffice        Category = "office"
	CategoryAdvertising   Category = "advertising"
	CategoryFinancial     Category = "financial"
	CategoryProfessional  Category = "professional_fees"
	CategoryTraining      Category = "training"
	CategoryClothing      Category = "clothing"
	CategorySubscriptions Category = "subscriptions"
	CategoryOtherExpense  Category = "other_expense"

	// Not allowable
	CategoryPersonal Category = "personal"
)

// ExpenseCategories lists the categories a categoriser may assign to an expense.
var ExpenseCategories = []Category{
	CategoryCostOfGoods, CategoryStaff, CategoryTravel, CategoryPremises, CategoryOffice,
	CategoryAdvertising, CategoryFinancial, CategoryProfessional, CategoryTraining,
	CategoryClothing, CategorySubscriptions, CategoryOtherExpense, CategoryPersonal,
}

// IsValidCategory reports whether c is a known category for the direction.
func IsValidCategory(d Direction, c Category) bool {
	if c == CategoryUnspecified {
		return true
	}
	if d == DirectionIncome {
		return c == CategorySales || c == CategoryOtherIncome
	}
	for _, e := range ExpenseCategories {
		if e == c {
			return true
		}
	}
	return false
}

// TransactionSource records where a transaction came from.
type TransactionSource string

const (
	SourceManual TransactionSource = "manual"
	SourceBank   TransactionSource = "bank"
)

// Transaction is an income or expense record. Amounts are net of VAT, in pence.
type Transaction struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"userId"`
	Direction          Direction         `json:"direction"`
	AmountPence        int64             `json:"amountPence"`
	VATRate            int               `json:"vatRate"`
	Category           Category          `json:"category"`
	Description        string            `json:"description"`
	Merchant           string            `json:"merchant,omitempty"`
	Date               time.Time         `json:"date"`
	BusinessUsePercent float64           `json:"businessUsePercent"`
	ReceiptPath        string            `json:"receiptPath,omitempty"`
	Source             TransactionSource `json:"source"`
	TaxYear            string            `json:"taxYear"`

	// Bank feed provenance, used to de-duplicate repeated syncs.
	ProviderTransactionID string `json:"providerTransactionId,omitempty"`
	ProviderAccountID     string `json:"providerAccountId,omitempty"`

	// Categorisation
	NeedsReview        bool    `json:"needsReview"`
	CategoryConfidence float64 `json:"categoryConfidence,omitempty"`
	CategorySource     string  `json:"categorySource,omitempty"`
	CategoryReasoning  string  `json:"categoryReasoning,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VATRecord converts the transaction to its VAT-bearing view.
func (t *Transaction) VATRecord() rules.VATRecord {
	return rules.VATRecord{AmountPence: t.AmountPence, VATRate: t.VATRate, Direction: t.Direction}
}

// Apportionment splits an expense by its business-use percentage. Income is fully allowable.
func (t *Transaction) Apportionment() rules.Apportionment {
	if t.Direction == DirectionIncome {
		return rules.Apportionment{AllowablePence: t.AmountPence}
	}
	if t.Category == CategoryPersonal {
		return rules.Apportionment{DisallowablePence: t.AmountPence}
	}
	return rules.Apportion(t.AmountPence, t.BusinessUsePercent)
}

// Trip is a logged journey with its computed deduction.
type Trip struct {
	ID             string            `json:"id"`
	UserID         string            `json:"userId"`
	Date           time.Time         `json:"date"`
	DistanceMiles  float64           `json:"distanceMiles"`
	Type           rules.TripType    `json:"type"`
	Vehicle        rules.VehicleType `json:"vehicle"`
	From           string            `json:"from,omitempty"`
	To             string            `json:"to,omitempty"`
	Purpose        string            `json:"purpose,omitempty"`
	TaxYear        string            `json:"taxYear"`
	DeductionPence int64             `json:"deductionPence"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// RulesTrip converts the trip to the rules view.
func (t *Trip) RulesTrip() rules.Trip {
	return rules.Trip{
		ID:            t.ID,
		Date:          t.Date,
		DistanceMiles: t.DistanceMiles,
		Type:          t.Type,
		Vehicle:       t.Vehicle,
		LoggedAt:      t.CreatedAt,
	}
}

// HomeOfficeClaim is one month's use-of-home claim. ClaimMonth is "YYYY-MM".
type HomeOfficeClaim struct {
	ID                 string                 `json:"id"`
	UserID             string                 `json:"userId"`
	ClaimMonth         string                 `json:"claimMonth"`
	HoursWorked        float64                `json:"hoursWorked"`
	Method             rules.HomeOfficeMethod `json:"method"`
	ActualCostsPence   int64                  `json:"actualCostsPence,omitempty"`
	BusinessUsePercent float64                `json:"businessUsePercent,omitempty"`
	AllowancePence     int64                  `json:"allowancePence"`
	TaxYear            string                 `json:"taxYear"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

// RulesClaim converts the claim to the rules view.
func (c *HomeOfficeClaim) RulesClaim() rules.HomeOfficeClaim {
	return rules.HomeOfficeClaim{
		HoursWorked:        c.HoursWorked,
		Method:             c.Method,
		ActualCostsPence:   c.ActualCostsPence,
		BusinessUsePercent: c.BusinessUsePercent,
	}
}

// VATSubmission records a return sent to HMRC and the receipt it returned.
type VATSubmission struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	VRN              string          `json:"vrn"`
	PeriodKey        string          `json:"periodKey"`
	PeriodStart      time.Time       `json:"periodStart"`
	PeriodEnd        time.Time       `json:"periodEnd"`
	Return           rules.VATReturn `json:"return"`
	ProcessingDate   string          `json:"processingDate"`
	FormBundleNumber string          `json:"formBundleNumber"`
	PaymentIndicator string          `json:"paymentIndicator,omitempty"`
	ChargeRefNumber  string          `json:"chargeRefNumber,omitempty"`
	SubmittedAt      time.Time       `json:"submittedAt"`
}

// SubscriptionTier gates paid features.
type SubscriptionTier string

const (
	TierFree SubscriptionTier = "FREE"
	TierPro  SubscriptionTier = "PRO"
)

// SubscriptionStatus mirrors the billing provider's subscription status.
type SubscriptionStatus string

const (
	StatusUnspecified SubscriptionStatus = ""
	StatusActive      SubscriptionStatus = "ACTIVE"
	StatusTrialing    SubscriptionStatus = "TRIALING"
	StatusPastDue     SubscriptionStatus = "PAST_DUE"
	StatusCanceled    SubscriptionStatus = "CANCELED"
)

// User is the profile of a sole trader.
type User struct {
	ID                   string             `json:"id"`
	Email                string             `json:"email"`
	DisplayName          string             `json:"displayName"`
	BusinessName         string             `json:"businessName,omitempty"`
	VATRegistered        bool               `json:"vatRegistered"`
	VRN                  string             `json:"vrn,omitempty"`
	DefaultVehicle       rules.VehicleType  `json:"defaultVehicle,omitempty"`
	SubscriptionTier     SubscriptionTier   `json:"subscriptionTier"`
	SubscriptionStatus   SubscriptionStatus `json:"subscriptionStatus"`
	StripeCustomerID     string             `json:"-"`
	StripeSubscriptionID string             `json:"-"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// OAuthToken is a persisted OAuth2 token for a third-party provider.
type OAuthToken struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenType    string    `json:"-"`
	Expiry       time.Time `json:"expiry"`
}

// OAuth2 converts the stored token for use with an oauth2.Config.
func (t OAuthToken) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

// TokenFromOAuth2 converts a token returned by an exchange or refresh.
func TokenFromOAuth2(t *oauth2.Token) OAuthToken {
	if t == nil {
		return OAuthToken{}
	}
	return OAuthToken{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

// ConnectionStatus is the lifecycle state of a third-party connection.
type ConnectionStatus string

const (
	ConnectionPending ConnectionStatus = "pending"
	ConnectionActive  ConnectionStatus = "active"
	ConnectionRevoked ConnectionStatus = "revoked"
)

// BankConnection links a user to the banking-data provider.
type BankConnection struct {
	ID           string           `json:"id"`
	UserID       string           `json:"userId"`
	Provider     string           `json:"provider"`
	State        string           `json:"-"`
	Status       ConnectionStatus `json:"status"`
	Token        OAuthToken       `json:"token"`
	AccountIDs   []string         `json:"accountIds"`
	CreatedAt    time.Time        `json:"createdAt"`
	LastSyncedAt time.Time        `json:"lastSyncedAt"`
}

// HMRCConnection holds the tax-authority authorisation for a user. One per user.
type HMRCConnection struct {
	UserID      string           `json:"userId"`
	VRN         string           `json:"vrn"`
	PendingVRN  string           `json:"-"`
	State       string           `json:"-"`
	Status      ConnectionStatus `json:"status"`
	Token       OAuthToken       `json:"token"`
	ConnectedAt time.Time        `json:"connectedAt"`
}

// CategoryMapping is a merchant pattern a user has taught the categoriser.
type CategoryMapping struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	MerchantPattern string    `json:"merchantPattern"`
	Category        Category  `json:"category"`
	BusinessUse     float64   `json:"businessUse"`
	Confidence      float64   `json:"confidence"`
	UseCount        int       `json:"useCount"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// LessonProgress marks a lesson completed by a user.
type LessonProgress struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	LessonSlug  string    `json:"lessonSlug"`
	CompletedAt time.Time `json:"completedAt"`
}

// WaitlistEntry is a marketing sign-up. Position is 1-based and assigned once.
type WaitlistEntry struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// SearchResult is a transaction hit from full-text search.
type SearchResult struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	AmountPence int64     `json:"amountPence"`
	Direction   Direction `json:"direction"`
	Date        time.Time `json:"date"`
}
