// Package service implements the Reelin RPC handlers on top of the store and the
// bookkeeping rules.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	gcsstorage "cloud.google.com/go/storage"
	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/banking"
	"github.com/reelin/backend/internal/categorise"
	"github.com/reelin/backend/internal/hmrc"
	"github.com/reelin/backend/internal/metrics"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/rules"
	"github.com/reelin/backend/internal/search"
	"github.com/reelin/backend/internal/store"
)

// Billing is the subset of the Stripe API the service uses.
type Billing interface {
	GetOrCreateCustomer(email, userID string) (string, error)
	CreateCheckoutSession(customerID, userID, successURL, cancelURL string) (*CheckoutResult, error)
	GetSubscription(subscriptionID string) (*StripeSubscriptionInfo, error)
	CancelSubscriptionAtPeriodEnd(subscriptionID string) (*StripeSubscriptionInfo, error)
}

// ClaimsUpdater pushes subscription state into the user's ID token claims.
type ClaimsUpdater interface {
	SetSubscriptionClaims(ctx context.Context, uid string, tier model.SubscriptionTier, status model.SubscriptionStatus) error
}

// ReelinService serves every Reelin RPC. Optional integrations are attached with
// setters; a handler that needs a missing one returns CodeUnavailable.
type ReelinService struct {
	store store.Store

	pipeline *categorise.Pipeline
	banking  *banking.Client
	hmrc     *hmrc.Client
	searcher search.Searcher
	indexer  search.Indexer
	billing  Billing
	claims   ClaimsUpdater
	receipts *gcsstorage.BucketHandle
	metrics  *metrics.Metrics

	appBaseURL string
	now        func() time.Time
}

// NewReelinService creates the service. Search falls back to scanning the store and
// categorisation runs the rule tier only until SetCategorisePipeline is called.
func NewReelinService(s store.Store) *ReelinService {
	return &ReelinService{
		store:      s,
		pipeline:   categorise.NewPipeline(nil, categorise.DefaultBatchSize),
		searcher:   search.NewStoreSearcher(s),
		appBaseURL: "https://reelin.app",
		now:        time.Now,
	}
}

// SetCategorisePipeline replaces the categoriser.
func (s *ReelinService) SetCategorisePipeline(p *categorise.Pipeline) {
	if p != nil {
		s.pipeline = p
	}
}

// SetBankingClient enables open-banking connections and sync.
func (s *ReelinService) SetBankingClient(c *banking.Client) {
	s.banking = c
}

// SetHMRCClient enables Making Tax Digital VAT.
func (s *ReelinService) SetHMRCClient(c *hmrc.Client) {
	s.hmrc = c
}

// SetSearch routes search through an external index, which is also kept up to date
// on every transaction write.
func (s *ReelinService) SetSearch(searcher search.Searcher, indexer search.Indexer) {
	if searcher != nil {
		s.searcher = searcher
	}
	s.indexer = indexer
}

// SetBilling enables checkout and cancellation.
func (s *ReelinService) SetBilling(b Billing, appBaseURL string) {
	s.billing = b
	if appBaseURL != "" {
		s.appBaseURL = appBaseURL
	}
}

// SetClaimsUpdater enables custom-claim updates after subscription changes.
func (s *ReelinService) SetClaimsUpdater(c ClaimsUpdater) {
	s.claims = c
}

// SetReceiptsBucket sets the GCS bucket holding receipt uploads.
func (s *ReelinService) SetReceiptsBucket(bucket *gcsstorage.BucketHandle) {
	s.receipts = bucket
}

// SetMetrics enables domain counters.
func (s *ReelinService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetClock overrides time.Now, for tests.
func (s *ReelinService) SetClock(now func() time.Time) {
	s.now = now
}

// requirePro accepts the Pro claim from the ID token, falling back to the stored
// user when the token predates an upgrade.
func (s *ReelinService) requirePro(ctx context.Context, uid string) error {
	if auth.GetSubscription(ctx).IsActivePro() {
		return nil
	}
	user, err := s.store.GetUser(ctx, uid)
	if err == nil {
		info := &auth.SubscriptionInfo{Tier: user.SubscriptionTier, Status: user.SubscriptionStatus}
		if info.IsActivePro() {
			return nil
		}
	}
	return connect.NewError(connect.CodePermissionDenied, fmt.Errorf("this feature requires a Pro subscription"))
}

func unavailable(feature string) error {
	return connect.NewError(connect.CodeUnavailable, fmt.Errorf("%s is not configured", feature))
}

func invalidArgument(err error) error {
	return connect.NewError(connect.CodeInvalidArgument, err)
}

// taxYearOrCurrent validates a tax-year label, defaulting to the current one.
func (s *ReelinService) taxYearOrCurrent(label string) (string, time.Time, time.Time, error) {
	if label == "" {
		label = rules.CurrentTaxYear(s.now())
	}
	start, end, err := rules.TaxYearBounds(label)
	if err != nil {
		return "", time.Time{}, time.Time{}, invalidArgument(err)
	}
	return label, start, end, nil
}

const scanPageSize = 500

// allTransactions pages through every transaction matching filter.
func (s *ReelinService) allTransactions(ctx context.Context, filter store.TransactionFilter) ([]*model.Transaction, error) {
	var out []*model.Transaction
	var pageToken string
	for {
		page, next, err := s.store.ListTransactions(ctx, filter, scanPageSize, pageToken)
		if err != nil {
			return nil, auth.WrapStoreError("list transactions", err)
		}
		out = append(out, page...)
		if next == "" {
			return out, nil
		}
		pageToken = next
	}
}

// allTrips pages through a user's trips in a tax year.
func (s *ReelinService) allTrips(ctx context.Context, userID, taxYear string) ([]*model.Trip, error) {
	var out []*model.Trip
	var pageToken string
	for {
		page, next, err := s.store.ListTrips(ctx, userID, taxYear, scanPageSize, pageToken)
		if err != nil {
			return nil, auth.WrapStoreError("list trips", err)
		}
		out = append(out, page...)
		if next == "" {
			return out, nil
		}
		pageToken = next
	}
}

// newState returns an unguessable OAuth state parameter.
func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
