package store

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/reelin/backend/internal/model"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

// ErrNotFound is wrapped by every store lookup that finds no document.
var ErrNotFound = errors.New("not found")

// TransactionFilter narrows ListTransactions. Zero-valued fields do not filter.
type TransactionFilter struct {
	UserID      string
	Direction   model.Direction
	Category    model.Category
	TaxYear     string
	StartDate   *time.Time
	EndDate     *time.Time
	NeedsReview *bool
}

// Store defines the interface for all database operations used by the service
type Store interface {
	// User operations
	GetUser(ctx context.Context, userID string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error

	// Transaction operations
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, txnID string) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, txnID string) error
	ListTransactions(ctx context.Context, filter TransactionFilter, pageSize int32, pageToken string) ([]*model.Transaction, string, error)
	GetTransactionByProviderID(ctx context.Context, userID, providerTxnID string) (*model.Transaction, error)

	// Trip operations
	CreateTrip(ctx context.Context, trip *model.Trip) error
	GetTrip(ctx context.Context, tripID string) (*model.Trip, error)
	UpdateTrip(ctx context.Context, trip *model.Trip) error
	DeleteTrip(ctx context.Context, tripID string) error
	ListTrips(ctx context.Context, userID, taxYear string, pageSize int32, pageToken string) ([]*model.Trip, string, error)

	// Home office operations
	UpsertHomeOfficeClaim(ctx context.Context, claim *model.HomeOfficeClaim) error
	GetHomeOfficeClaim(ctx context.Context, userID, claimMonth string) (*model.HomeOfficeClaim, error)
	ListHomeOfficeClaims(ctx context.Context, userID, taxYear string) ([]*model.HomeOfficeClaim, error)

	// VAT submission operations
	CreateVATSubmission(ctx context.Context, sub *model.VATSubmission) error
	GetVATSubmissionByPeriod(ctx context.Context, userID, periodKey string) (*model.VATSubmission, error)
	ListVATSubmissions(ctx context.Context, userID string, pageSize int32, pageToken string) ([]*model.VATSubmission, string, error)

	// Bank connection operations
	CreateBankConnection(ctx context.Context, conn *model.BankConnection) error
	GetBankConnection(ctx context.Context, connID string) (*model.BankConnection, error)
	GetBankConnectionByState(ctx context.Context, state string) (*model.BankConnection, error)
	UpdateBankConnection(ctx context.Context, conn *model.BankConnection) error
	DeleteBankConnection(ctx context.Context, connID string) error
	ListBankConnections(ctx context.Context, userID string) ([]*model.BankConnection, error)

	// HMRC connection operations (one per user, keyed by user ID)
	GetHMRCConnection(ctx context.Context, userID string) (*model.HMRCConnection, error)
	GetHMRCConnectionByState(ctx context.Context, state string) (*model.HMRCConnection, error)
	UpsertHMRCConnection(ctx context.Context, conn *model.HMRCConnection) error

	// Category mapping operations
	UpsertCategoryMapping(ctx context.Context, mapping *model.CategoryMapping) error
	ListCategoryMappings(ctx context.Context, userID string) ([]*model.CategoryMapping, error)

	// Lesson progress operations
	UpsertLessonProgress(ctx context.Context, progress *model.LessonProgress) error
	ListLessonProgress(ctx context.Context, userID string) ([]*model.LessonProgress, error)

	// Waitlist operations. AddWaitlistEntry is idempotent on email and returns the
	// stored entry, whose Position was assigned when the email first joined. created
	// is false when the email had already joined.
	AddWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) (stored *model.WaitlistEntry, created bool, err error)
	CountWaitlist(ctx context.Context) (int, error)
}

// EncodePageToken encodes a document ID into a page token.
func EncodePageToken(docID string) string {
	if docID == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(docID))
}

// DecodePageToken decodes a page token back to a document ID.
func DecodePageToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// lessonProgressID is the document ID of a user's completion of a lesson.
func lessonProgressID(userID, slug string) string {
	return userID + "_" + slug
}

// homeOfficeClaimID is the document ID of a user's claim for a month.
func homeOfficeClaimID(userID, month string) string {
	return userID + "_" + month
}
