package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reelin/backend/internal/model"
)

// MemoryStore implements Store interface with in-memory storage
type MemoryStore struct {
	mu sync.RWMutex

	// Storage maps
	users            map[string]*model.User
	transactions     map[string]*model.Transaction
	trips            map[string]*model.Trip
	homeOfficeClaims map[string]*model.HomeOfficeClaim
	vatSubmissions   map[string]*model.VATSubmission
	bankConnections  map[string]*model.BankConnection
	hmrcConnections  map[string]*model.HMRCConnection
	categoryMappings map[string]*model.CategoryMapping
	lessonProgress   map[string]*model.LessonProgress
	waitlist         map[string]*model.WaitlistEntry // keyed by normalised email
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:            make(map[string]*model.User),
		transactions:     make(map[string]*model.Transaction),
		trips:            make(map[string]*model.Trip),
		homeOfficeClaims: make(map[string]*model.HomeOfficeClaim),
		vatSubmissions:   make(map[string]*model.VATSubmission),
		bankConnections:  make(map[string]*model.BankConnection),
		hmrcConnections:  make(map[string]*model.HMRCConnection),
		categoryMappings: make(map[string]*model.CategoryMapping),
		lessonProgress:   make(map[string]*model.LessonProgress),
		waitlist:         make(map[string]*model.WaitlistEntry),
	}
}

// paginateIDs applies cursor-based pagination to a sorted slice of IDs.
// Returns the paginated IDs and the next page token (empty if no more pages).
func paginateIDs(ids []string, pageSize int32, pageToken string) ([]string, string) {
	if pageSize <= 0 {
		pageSize = 100
	}

	sort.Strings(ids)

	// Find cursor position
	startIdx := 0
	if pageToken != "" {
		cursorID, err := DecodePageToken(pageToken)
		if err == nil {
			startIdx = sort.SearchStrings(ids, cursorID)
			if startIdx < len(ids) && ids[startIdx] == cursorID {
				startIdx++
			}
		}
	}
	ids = ids[startIdx:]

	var nextToken string
	if int32(len(ids)) > pageSize {
		nextToken = EncodePageToken(ids[pageSize-1])
		ids = ids[:pageSize]
	}

	return ids, nextToken
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// User operations

func (m *MemoryStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, notFound("user", userID)
	}
	cp := *user
	return &cp, nil
}

func (m *MemoryStore) UpdateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// Transaction operations

func (m *MemoryStore) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	cp := *txn
	m.transactions[txn.ID] = &cp
	return nil
}

func (m *MemoryStore) GetTransaction(ctx context.Context, txnID string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txn, ok := m.transactions[txnID]
	if !ok {
		return nil, notFound("transaction", txnID)
	}
	cp := *txn
	return &cp, nil
}

func (m *MemoryStore) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[txn.ID]; !ok {
		return notFound("transaction", txn.ID)
	}
	cp := *txn
	m.transactions[txn.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteTransaction(ctx context.Context, txnID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[txnID]; !ok {
		return notFound("transaction", txnID)
	}
	delete(m.transactions, txnID)
	return nil
}

func matchesTransaction(txn *model.Transaction, f TransactionFilter) bool {
	if f.UserID != "" && txn.UserID != f.UserID {
		return false
	}
	if f.Direction != "" && txn.Direction != f.Direction {
		return false
	}
	if f.Category != "" && txn.Category != f.Category {
		return false
	}
	if f.TaxYear != "" && txn.TaxYear != f.TaxYear {
		return false
	}
	if f.StartDate != nil && txn.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && txn.Date.After(*f.EndDate) {
		return false
	}
	if f.NeedsReview != nil && txn.NeedsReview != *f.NeedsReview {
		return false
	}
	return true
}

func (m *MemoryStore) ListTransactions(ctx context.Context, filter TransactionFilter, pageSize int32, pageToken string) ([]*model.Transaction, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matchingIDs []string
	for id, txn := range m.transactions {
		if matchesTransaction(txn, filter) {
			matchingIDs = append(matchingIDs, id)
		}
	}

	paginatedIDs, nextToken := paginateIDs(matchingIDs, pageSize, pageToken)
	result := make([]*model.Transaction, 0, len(paginatedIDs))
	for _, id := range paginatedIDs {
		cp := *m.transactions[id]
		result = append(result, &cp)
	}
	return result, nextToken, nil
}

func (m *MemoryStore) GetTransactionByProviderID(ctx context.Context, userID, providerTxnID string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, txn := range m.transactions {
		if txn.UserID == userID && txn.ProviderTransactionID == providerTxnID {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, notFound("provider transaction", providerTxnID)
}

// Trip operations

func (m *MemoryStore) CreateTrip(ctx context.Context, trip *model.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	cp := *trip
	m.trips[trip.ID] = &cp
	return nil
}

func (m *MemoryStore) GetTrip(ctx context.Context, tripID string) (*model.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	trip, ok := m.trips[tripID]
	if !ok {
		return nil, notFound("trip", tripID)
	}
	cp := *trip
	return &cp, nil
}

func (m *MemoryStore) UpdateTrip(ctx context.Context, trip *model.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.trips[trip.ID]; !ok {
		return notFound("trip", trip.ID)
	}
	cp := *trip
	m.trips[trip.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteTrip(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.trips[tripID]; !ok {
		return notFound("trip", tripID)
	}
	delete(m.trips, tripID)
	return nil
}

func (m *MemoryStore) ListTrips(ctx context.Context, userID, taxYear string, pageSize int32, pageToken string) ([]*model.Trip, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matchingIDs []string
	for id, trip := range m.trips {
		if trip.UserID != userID {
			continue
		}
		if taxYear != "" && trip.TaxYear != taxYear {
			continue
		}
		matchingIDs = append(matchingIDs, id)
	}

	paginatedIDs, nextToken := paginateIDs(matchingIDs, pageSize, pageToken)
	result := make([]*model.Trip, 0, len(paginatedIDs))
	for _, id := range paginatedIDs {
		cp := *m.trips[id]
		result = append(result, &cp)
	}
	return result, nextToken, nil
}

// Home office operations

// UpsertHomeOfficeClaim stores the claim for its month, replacing any earlier claim
// for the same user and month. The original creation time is preserved.
func (m *MemoryStore) UpsertHomeOfficeClaim(ctx context.Context, claim *model.HomeOfficeClaim) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := homeOfficeClaimID(claim.UserID, claim.ClaimMonth)
	if existing, ok := m.homeOfficeClaims[id]; ok && !existing.CreatedAt.IsZero() {
		claim.CreatedAt = existing.CreatedAt
	}
	claim.ID = id
	cp := *claim
	m.homeOfficeClaims[id] = &cp
	return nil
}

func (m *MemoryStore) GetHomeOfficeClaim(ctx context.Context, userID, claimMonth string) (*model.HomeOfficeClaim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	claim, ok := m.homeOfficeClaims[homeOfficeClaimID(userID, claimMonth)]
	if !ok {
		return nil, notFound("home office claim", claimMonth)
	}
	cp := *claim
	return &cp, nil
}

func (m *MemoryStore) ListHomeOfficeClaims(ctx context.Context, userID, taxYear string) ([]*model.HomeOfficeClaim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var claims []*model.HomeOfficeClaim
	for _, c := range m.homeOfficeClaims {
		if c.UserID != userID {
			continue
		}
		if taxYear != "" && c.TaxYear != taxYear {
			continue
		}
		cp := *c
		claims = append(claims, &cp)
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].ClaimMonth < claims[j].ClaimMonth })
	return claims, nil
}

// VAT submission operations

func (m *MemoryStore) CreateVATSubmission(ctx context.Context, sub *model.VATSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	cp := *sub
	m.vatSubmissions[sub.ID] = &cp
	return nil
}

func (m *MemoryStore) GetVATSubmissionByPeriod(ctx context.Context, userID, periodKey string) (*model.VATSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.vatSubmissions {
		if sub.UserID == userID && sub.PeriodKey == periodKey {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, notFound("VAT submission for period", periodKey)
}

func (m *MemoryStore) ListVATSubmissions(ctx context.Context, userID string, pageSize int32, pageToken string) ([]*model.VATSubmission, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matchingIDs []string
	for id, sub := range m.vatSubmissions {
		if sub.UserID == userID {
			matchingIDs = append(matchingIDs, id)
		}
	}

	paginatedIDs, nextToken := paginateIDs(matchingIDs, pageSize, pageToken)
	result := make([]*model.VATSubmission, 0, len(paginatedIDs))
	for _, id := range paginatedIDs {
		cp := *m.vatSubmissions[id]
		result = append(result, &cp)
	}
	return result, nextToken, nil
}

// Bank connection operations

func (m *MemoryStore) CreateBankConnection(ctx context.Context, conn *model.BankConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}
	cp := *conn
	cp.AccountIDs = append([]string(nil), conn.AccountIDs...)
	m.bankConnections[conn.ID] = &cp
	return nil
}

func (m *MemoryStore) GetBankConnection(ctx context.Context, connID string) (*model.BankConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.bankConnections[connID]
	if !ok {
		return nil, notFound("bank connection", connID)
	}
	cp := *conn
	return &cp, nil
}

func (m *MemoryStore) GetBankConnectionByState(ctx context.Context, state string) (*model.BankConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if state == "" {
		return nil, notFound("bank connection for state", state)
	}
	for _, conn := range m.bankConnections {
		if conn.State == state {
			cp := *conn
			return &cp, nil
		}
	}
	return nil, notFound("bank connection for state", state)
}

func (m *MemoryStore) UpdateBankConnection(ctx context.Context, conn *model.BankConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bankConnections[conn.ID]; !ok {
		return notFound("bank connection", conn.ID)
	}
	cp := *conn
	cp.AccountIDs = append([]string(nil), conn.AccountIDs...)
	m.bankConnections[conn.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteBankConnection(ctx context.Context, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bankConnections[connID]; !ok {
		return notFound("bank connection", connID)
	}
	delete(m.bankConnections, connID)
	return nil
}

func (m *MemoryStore) ListBankConnections(ctx context.Context, userID string) ([]*model.BankConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var conns []*model.BankConnection
	for _, conn := range m.bankConnections {
		if conn.UserID == userID {
			cp := *conn
			conns = append(conns, &cp)
		}
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].CreatedAt.Before(conns[j].CreatedAt) })
	return conns, nil
}

// HMRC connection operations

func (m *MemoryStore) GetHMRCConnection(ctx context.Context, userID string) (*model.HMRCConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.hmrcConnections[userID]
	if !ok {
		return nil, notFound("HMRC connection for user", userID)
	}
	cp := *conn
	return &cp, nil
}

func (m *MemoryStore) GetHMRCConnectionByState(ctx context.Context, state string) (*model.HMRCConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if state == "" {
		return nil, notFound("HMRC connection for state", state)
	}
	for _, conn := range m.hmrcConnections {
		if conn.State == state {
			cp := *conn
			return &cp, nil
		}
	}
	return nil, notFound("HMRC connection for state", state)
}

func (m *MemoryStore) UpsertHMRCConnection(ctx context.Context, conn *model.HMRCConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *conn
	m.hmrcConnections[conn.UserID] = &cp
	return nil
}

// Category mapping operations

// UpsertCategoryMapping creates or updates a mapping, matching on user and merchant
// pattern case-insensitively.
func (m *MemoryStore) UpsertCategoryMapping(ctx context.Context, mapping *model.CategoryMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, existing := range m.categoryMappings {
		if existing.UserID == mapping.UserID && strings.EqualFold(existing.MerchantPattern, mapping.MerchantPattern) {
			existing.Category = mapping.Category
			existing.BusinessUse = mapping.BusinessUse
			existing.Confidence = mapping.Confidence
			existing.UseCount = mapping.UseCount
			existing.UpdatedAt = mapping.UpdatedAt
			m.categoryMappings[id] = existing
			mapping.ID = id
			return nil
		}
	}
	if mapping.ID == "" {
		mapping.ID = uuid.New().String()
	}
	cp := *mapping
	m.categoryMappings[mapping.ID] = &cp
	return nil
}

func (m *MemoryStore) ListCategoryMappings(ctx context.Context, userID string) ([]*model.CategoryMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var mappings []*model.CategoryMapping
	for _, mm := range m.categoryMappings {
		if mm.UserID == userID {
			cp := *mm
			mappings = append(mappings, &cp)
		}
	}
	return mappings, nil
}

// Lesson progress operations

func (m *MemoryStore) UpsertLessonProgress(ctx context.Context, progress *model.LessonProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := lessonProgressID(progress.UserID, progress.LessonSlug)
	if existing, ok := m.lessonProgress[id]; ok {
		// First completion wins.
		*progress = *existing
		return nil
	}
	progress.ID = id
	cp := *progress
	m.lessonProgress[id] = &cp
	return nil
}

func (m *MemoryStore) ListLessonProgress(ctx context.Context, userID string) ([]*model.LessonProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.LessonProgress
	for _, p := range m.lessonProgress {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}

// Waitlist operations

func (m *MemoryStore) AddWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) (*model.WaitlistEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(entry.Email)
	if existing, ok := m.waitlist[key]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *entry
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.Position = len(m.waitlist) + 1
	m.waitlist[key] = &cp

	out := cp
	return &out, true, nil
}

func (m *MemoryStore) CountWaitlist(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.waitlist), nil
}
