package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/reelin/backend/internal/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Collection names. Document field names are the Go struct field names (PascalCase).
const (
	colUsers            = "users"
	colTransactions     = "transactions"
	colTrips            = "trips"
	colHomeOfficeClaims = "homeOfficeClaims"
	colVATSubmissions   = "vatSubmissions"
	colBankConnections  = "bankConnections"
	colHMRCConnections  = "hmrcConnections"
	colCategoryMappings = "categoryMappings"
	colLessonProgress   = "lessonProgress"
	colWaitlist         = "waitlist"
	colCounters         = "counters"
)

// FirestoreStore implements the Store interface using Firestore
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store
func NewFirestoreStore(client *firestore.Client) Store {
	return &FirestoreStore{
		client: client,
	}
}

// wrapGetError turns a Firestore NotFound into ErrNotFound.
func wrapGetError(kind, id string, err error) error {
	if status.Code(err) == codes.NotFound {
		return notFound(kind, id)
	}
	return fmt.Errorf("failed to get %s %s: %w", kind, id, err)
}

// getDoc loads a single document into dst.
func getDoc[T any](ctx context.Context, s *FirestoreStore, collection, kind, id string) (*T, error) {
	doc, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, wrapGetError(kind, id, err)
	}
	var v T
	if err := doc.DataTo(&v); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", kind, err)
	}
	return &v, nil
}

// queryAll runs a query and decodes every document.
func queryAll[T any](ctx context.Context, query firestore.Query, kind string) ([]*T, error) {
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", kind, err)
		}
		out = append(out, &v)
	}
	return out, nil
}

// queryFirst returns the first document matching the query, or ErrNotFound.
func queryFirst[T any](ctx context.Context, query firestore.Query, kind, id string) (*T, error) {
	items, err := queryAll[T](ctx, query.Limit(1), kind)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, notFound(kind, id)
	}
	return items[0], nil
}

// queryPage runs a query already paginated with pageSize+1 and returns the page and next token.
func queryPage[T any](ctx context.Context, query firestore.Query, kind string, pageSize int32) ([]*T, string, error) {
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list %s: %w", kind, err)
	}

	if pageSize <= 0 {
		pageSize = 100
	}

	// Detect next page
	var nextPageToken string
	if len(docs) > int(pageSize) {
		docs = docs[:pageSize]
		nextPageToken = EncodePageToken(docs[pageSize-1].Ref.ID)
	}

	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, "", fmt.Errorf("failed to parse %s: %w", kind, err)
		}
		out = append(out, &v)
	}
	return out, nextPageToken, nil
}

// applyDateAwarePagination handles pagination for queries with date range filters.
// Firestore requires OrderBy on inequality fields first, so we use OrderBy("Date") + OrderBy(__name__).
// The cursor must include both the Date value and the document ID.
func (s *FirestoreStore) applyDateAwarePagination(ctx context.Context, query firestore.Query, collection string, pageSize int32, pageToken string) (firestore.Query, error) {
	query = query.OrderBy("Date", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)

	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return query, fmt.Errorf("invalid page token: %w", err)
		}
		// Fetch the cursor document to get its Date value for composite StartAfter
		cursorDoc, err := s.client.Collection(collection).Doc(docID).Get(ctx)
		if err != nil {
			return query, fmt.Errorf("failed to fetch cursor document: %w", err)
		}
		query = query.StartAfter(cursorDoc.Data()["Date"], docID)
	}

	if pageSize <= 0 {
		pageSize = 100
	}
	query = query.Limit(int(pageSize) + 1)
	return query, nil
}

// applyCursorPagination adds OrderBy + StartAfter + Limit to a query for cursor-based pagination.
// It fetches pageSize+1 docs so the caller can detect whether a next page exists.
func (s *FirestoreStore) applyCursorPagination(query firestore.Query, pageSize int32, pageToken string) (firestore.Query, error) {
	query = query.OrderBy(firestore.DocumentID, firestore.Asc)

	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return query, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.StartAfter(docID)
	}

	if pageSize <= 0 {
		pageSize = 100
	}
	query = query.Limit(int(pageSize) + 1) // +1 to detect next page
	return query, nil
}

// User operations

// GetUser retrieves a user profile from Firestore
func (s *FirestoreStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return getDoc[model.User](ctx, s, colUsers, "user", userID)
}

// UpdateUser creates or replaces a user profile
func (s *FirestoreStore) UpdateUser(ctx context.Context, user *model.User) error {
	_, err := s.client.Collection(colUsers).Doc(user.ID).Set(ctx, user)
	return err
}

// Transaction operations

// CreateTransaction creates a new transaction in Firestore
func (s *FirestoreStore) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	_, err := s.client.Collection(colTransactions).Doc(txn.ID).Set(ctx, txn)
	return err
}

// GetTransaction retrieves a transaction from Firestore
func (s *FirestoreStore) GetTransaction(ctx context.Context, txnID string) (*model.Transaction, error) {
	return getDoc[model.Transaction](ctx, s, colTransactions, "transaction", txnID)
}

// UpdateTransaction replaces an existing transaction
func (s *FirestoreStore) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	_, err := s.client.Collection(colTransactions).Doc(txn.ID).Set(ctx, txn)
	return err
}

// DeleteTransaction deletes a transaction from Firestore
func (s *FirestoreStore) DeleteTransaction(ctx context.Context, txnID string) error {
	_, err := s.client.Collection(colTransactions).Doc(txnID).Delete(ctx)
	return err
}

// ListTransactions lists transactions matching the filter
func (s *FirestoreStore) ListTransactions(ctx context.Context, filter TransactionFilter, pageSize int32, pageToken string) ([]*model.Transaction, string, error) {
	query := s.client.Collection(colTransactions).Query

	if filter.UserID != "" {
		query = query.Where("UserID", "==", filter.UserID)
	}
	if filter.Direction != "" {
		query = query.Where("Direction", "==", string(filter.Direction))
	}
	if filter.Category != "" {
		query = query.Where("Category", "==", string(filter.Category))
	}
	if filter.TaxYear != "" {
		query = query.Where("TaxYear", "==", filter.TaxYear)
	}
	if filter.NeedsReview != nil {
		query = query.Where("NeedsReview", "==", *filter.NeedsReview)
	}

	var err error
	if filter.StartDate != nil || filter.EndDate != nil {
		if filter.StartDate != nil {
			query = query.Where("Date", ">=", *filter.StartDate)
		}
		if filter.EndDate != nil {
			query = query.Where("Date", "<=", *filter.EndDate)
		}
		query, err = s.applyDateAwarePagination(ctx, query, colTransactions, pageSize, pageToken)
	} else {
		query, err = s.applyCursorPagination(query, pageSize, pageToken)
	}
	if err != nil {
		return nil, "", err
	}
	return queryPage[model.Transaction](ctx, query, "transactions", pageSize)
}

// GetTransactionByProviderID finds a bank-imported transaction by its provider ID
func (s *FirestoreStore) GetTransactionByProviderID(ctx context.Context, userID, providerTxnID string) (*model.Transaction, error) {
	query := s.client.Collection(colTransactions).
		Where("UserID", "==", userID).
		Where("ProviderTransactionID", "==", providerTxnID)
	return queryFirst[model.Transaction](ctx, query, "provider transaction", providerTxnID)
}

// Trip operations

// CreateTrip stores a trip
func (s *FirestoreStore) CreateTrip(ctx context.Context, trip *model.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	_, err := s.client.Collection(colTrips).Doc(trip.ID).Set(ctx, trip)
	return err
}

// GetTrip retrieves a trip
func (s *FirestoreStore) GetTrip(ctx context.Context, tripID string) (*model.Trip, error) {
	return getDoc[model.Trip](ctx, s, colTrips, "trip", tripID)
}

// UpdateTrip updates a trip
func (s *FirestoreStore) UpdateTrip(ctx context.Context, trip *model.Trip) error {
	_, err := s.client.Collection(colTrips).Doc(trip.ID).Set(ctx, trip)
	return err
}

// DeleteTrip deletes a trip
func (s *FirestoreStore) DeleteTrip(ctx context.Context, tripID string) error {
	_, err := s.client.Collection(colTrips).Doc(tripID).Delete(ctx)
	return err
}

// ListTrips lists a user's trips, optionally within one tax year
func (s *FirestoreStore) ListTrips(ctx context.Context, userID, taxYear string, pageSize int32, pageToken string) ([]*model.Trip, string, error) {
	query := s.client.Collection(colTrips).Where("UserID", "==", userID)
	if taxYear != "" {
		query = query.Where("TaxYear", "==", taxYear)
	}
	query, err := s.applyCursorPagination(query, pageSize, pageToken)
	if err != nil {
		return nil, "", err
	}
	return queryPage[model.Trip](ctx, query, "trips", pageSize)
}

// Home office operations

// UpsertHomeOfficeClaim stores the claim under a deterministic user+month document ID.
func (s *FirestoreStore) UpsertHomeOfficeClaim(ctx context.Context, claim *model.HomeOfficeClaim) error {
	claim.ID = homeOfficeClaimID(claim.UserID, claim.ClaimMonth)
	ref := s.client.Collection(colHomeOfficeClaims).Doc(claim.ID)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err == nil {
			var existing model.HomeOfficeClaim
			if err := doc.DataTo(&existing); err == nil && !existing.CreatedAt.IsZero() {
				claim.CreatedAt = existing.CreatedAt
			}
		} else if status.Code(err) != codes.NotFound {
			return err
		}
		return tx.Set(ref, claim)
	})
}

// GetHomeOfficeClaim retrieves the claim for a month
func (s *FirestoreStore) GetHomeOfficeClaim(ctx context.Context, userID, claimMonth string) (*model.HomeOfficeClaim, error) {
	return getDoc[model.HomeOfficeClaim](ctx, s, colHomeOfficeClaims, "home office claim", homeOfficeClaimID(userID, claimMonth))
}

// ListHomeOfficeClaims lists a user's claims ordered by month
func (s *FirestoreStore) ListHomeOfficeClaims(ctx context.Context, userID, taxYear string) ([]*model.HomeOfficeClaim, error) {
	query := s.client.Collection(colHomeOfficeClaims).Where("UserID", "==", userID)
	if taxYear != "" {
		query = query.Where("TaxYear", "==", taxYear)
	}
	claims, err := queryAll[model.HomeOfficeClaim](ctx, query, "home office claims")
	if err != nil {
		return nil, err
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].ClaimMonth < claims[j].ClaimMonth })
	return claims, nil
}

// VAT submission operations

// CreateVATSubmission stores a submitted return and its receipt
func (s *FirestoreStore) CreateVATSubmission(ctx context.Context, sub *model.VATSubmission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	_, err := s.client.Collection(colVATSubmissions).Doc(sub.ID).Set(ctx, sub)
	return err
}

// GetVATSubmissionByPeriod finds the submission for a period key
func (s *FirestoreStore) GetVATSubmissionByPeriod(ctx context.Context, userID, periodKey string) (*model.VATSubmission, error) {
	query := s.client.Collection(colVATSubmissions).
		Where("UserID", "==", userID).
		Where("PeriodKey", "==", periodKey)
	return queryFirst[model.VATSubmission](ctx, query, "VAT submission for period", periodKey)
}

// ListVATSubmissions lists a user's submissions
func (s *FirestoreStore) ListVATSubmissions(ctx context.Context, userID string, pageSize int32, pageToken string) ([]*model.VATSubmission, string, error) {
	query := s.client.Collection(colVATSubmissions).Where("UserID", "==", userID)
	query, err := s.applyCursorPagination(query, pageSize, pageToken)
	if err != nil {
		return nil, "", err
	}
	return queryPage[model.VATSubmission](ctx, query, "VAT submissions", pageSize)
}

// Bank connection operations

// CreateBankConnection stores a new (usually pending) bank connection
func (s *FirestoreStore) CreateBankConnection(ctx context.Context, conn *model.BankConnection) error {
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}
	_, err := s.client.Collection(colBankConnections).Doc(conn.ID).Set(ctx, conn)
	return err
}

// GetBankConnection retrieves a bank connection
func (s *FirestoreStore) GetBankConnection(ctx context.Context, connID string) (*model.BankConnection, error) {
	return getDoc[model.BankConnection](ctx, s, colBankConnections, "bank connection", connID)
}

// GetBankConnectionByState finds the pending connection for an OAuth state value
func (s *FirestoreStore) GetBankConnectionByState(ctx context.Context, state string) (*model.BankConnection, error) {
	if state == "" {
		return nil, notFound("bank connection for state", state)
	}
	query := s.client.Collection(colBankConnections).Where("State", "==", state)
	return queryFirst[model.BankConnection](ctx, query, "bank connection for state", state)
}

// UpdateBankConnection replaces a bank connection
func (s *FirestoreStore) UpdateBankConnection(ctx context.Context, conn *model.BankConnection) error {
	_, err := s.client.Collection(colBankConnections).Doc(conn.ID).Set(ctx, conn)
	return err
}

// DeleteBankConnection deletes a bank connection
func (s *FirestoreStore) DeleteBankConnection(ctx context.Context, connID string) error {
	_, err := s.client.Collection(colBankConnections).Doc(connID).Delete(ctx)
	return err
}

// ListBankConnections lists a user's bank connections
func (s *FirestoreStore) ListBankConnections(ctx context.Context, userID string) ([]*model.BankConnection, error) {
	query := s.client.Collection(colBankConnections).Where("UserID", "==", userID)
	conns, err := queryAll[model.BankConnection](ctx, query, "bank connections")
	if err != nil {
		return nil, err
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].CreatedAt.Before(conns[j].CreatedAt) })
	return conns, nil
}

// HMRC connection operations

// GetHMRCConnection retrieves a user's HMRC connection
func (s *FirestoreStore) GetHMRCConnection(ctx context.Context, userID string) (*model.HMRCConnection, error) {
	return getDoc[model.HMRCConnection](ctx, s, colHMRCConnections, "HMRC connection for user", userID)
}

// GetHMRCConnectionByState finds the pending connection for an OAuth state value
func (s *FirestoreStore) GetHMRCConnectionByState(ctx context.Context, state string) (*model.HMRCConnection, error) {
	if state == "" {
		return nil, notFound("HMRC connection for state", state)
	}
	query := s.client.Collection(colHMRCConnections).Where("State", "==", state)
	return queryFirst[model.HMRCConnection](ctx, query, "HMRC connection for state", state)
}

// UpsertHMRCConnection creates or replaces a user's HMRC connection
func (s *FirestoreStore) UpsertHMRCConnection(ctx context.Context, conn *model.HMRCConnection) error {
	_, err := s.client.Collection(colHMRCConnections).Doc(conn.UserID).Set(ctx, conn)
	return err
}

// Category mapping operations

// UpsertCategoryMapping creates or updates a mapping keyed by user and lower-cased pattern
func (s *FirestoreStore) UpsertCategoryMapping(ctx context.Context, mapping *model.CategoryMapping) error {
	mapping.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(mapping.UserID+"|"+strings.ToLower(mapping.MerchantPattern))).String()
	_, err := s.client.Collection(colCategoryMappings).Doc(mapping.ID).Set(ctx, mapping)
	return err
}

// ListCategoryMappings returns all category mappings for a user
func (s *FirestoreStore) ListCategoryMappings(ctx context.Context, userID string) ([]*model.CategoryMapping, error) {
	query := s.client.Collection(colCategoryMappings).Where("UserID", "==", userID)
	return queryAll[model.CategoryMapping](ctx, query, "category mappings")
}

// Lesson progress operations

// UpsertLessonProgress records a completion; an earlier completion is kept.
func (s *FirestoreStore) UpsertLessonProgress(ctx context.Context, progress *model.LessonProgress) error {
	progress.ID = lessonProgressID(progress.UserID, progress.LessonSlug)
	ref := s.client.Collection(colLessonProgress).Doc(progress.ID)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err == nil {
			return doc.DataTo(progress)
		}
		if status.Code(err) != codes.NotFound {
			return err
		}
		return tx.Create(ref, progress)
	})
}

// ListLessonProgress lists a user's completed lessons
func (s *FirestoreStore) ListLessonProgress(ctx context.Context, userID string) ([]*model.LessonProgress, error) {
	query := s.client.Collection(colLessonProgress).Where("UserID", "==", userID)
	out, err := queryAll[model.LessonProgress](ctx, query, "lesson progress")
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}

// Waitlist operations

// AddWaitlistEntry stores the entry under a document ID derived from the email and
// assigns its position from a counter inside one transaction.
func (s *FirestoreStore) AddWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) (*model.WaitlistEntry, bool, error) {
	docID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.ToLower(entry.Email))).String()
	ref := s.client.Collection(colWaitlist).Doc(docID)
	counterRef := s.client.Collection(colCounters).Doc(colWaitlist)

	var result model.WaitlistEntry
	var created bool
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = false
		doc, err := tx.Get(ref)
		if err == nil {
			return doc.DataTo(&result)
		}
		if status.Code(err) != codes.NotFound {
			return err
		}

		count := int64(0)
		counter, err := tx.Get(counterRef)
		switch {
		case err == nil:
			if v, ok := counter.Data()["Count"].(int64); ok {
				count = v
			}
		case status.Code(err) != codes.NotFound:
			return err
		}

		result = *entry
		result.ID = docID
		result.Position = int(count) + 1
		if err := tx.Set(ref, &result); err != nil {
			return err
		}
		created = true
		return tx.Set(counterRef, map[string]interface{}{"Count": count + 1})
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to add waitlist entry: %w", err)
	}
	return &result, created, nil
}

// CountWaitlist returns the number of waitlist sign-ups
func (s *FirestoreStore) CountWaitlist(ctx context.Context) (int, error) {
	doc, err := s.client.Collection(colCounters).Doc(colWaitlist).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read waitlist counter: %w", err)
	}
	count, _ := doc.Data()["Count"].(int64)
	return int(count), nil
}
