// Package search finds a user's transactions by free text.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/store"
)

// Params defines the input for a search.
type Params struct {
	Query     string
	UserID    string
	Category  string
	Direction model.Direction

	AmountMinPence int64
	AmountMaxPence int64

	StartDate *time.Time
	EndDate   *time.Time

	// Pagination (offset-based)
	Page     int
	PageSize int
}

func (p Params) normalize() (pageSize, page int) {
	pageSize = p.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	if pageSize > 100 {
		pageSize = 100
	}
	page = max(p.Page, 0)
	return pageSize, page
}

// Response holds one page of results.
type Response struct {
	Results    []*model.SearchResult
	TotalCount int
	TotalPages int
	Page       int
}

// Searcher finds transactions.
type Searcher interface {
	Search(ctx context.Context, params Params) (*Response, error)
}

// Indexer keeps an external index in step with the store.
type Indexer interface {
	Index(ctx context.Context, txn *model.Transaction) error
	Remove(ctx context.Context, id string) error
}

// StoreSearcher scans the store. It is used when no search index is configured.
type StoreSearcher struct {
	store store.Store
}

// NewStoreSearcher creates a searcher over the store.
func NewStoreSearcher(s store.Store) *StoreSearcher {
	return &StoreSearcher{store: s}
}

// scanPageSize bounds each store read while scanning.
const scanPageSize = 500

// Search matches the query case-insensitively against description and merchant.
func (s *StoreSearcher) Search(ctx context.Context, params Params) (*Response, error) {
	pageSize, page := params.normalize()
	filter := store.TransactionFilter{
		UserID:    params.UserID,
		Direction: params.Direction,
		Category:  model.Category(params.Category),
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
	}
	query := strings.ToLower(strings.TrimSpace(params.Query))

	var matched []*model.SearchResult
	token := ""
	for {
		txns, next, err := s.store.ListTransactions(ctx, filter, scanPageSize, token)
		if err != nil {
			return nil, fmt.Errorf("scan transactions: %w", err)
		}
		for _, t := range txns {
			if !matches(t, query, params) {
				continue
			}
			matched = append(matched, ToResult(t))
		}
		if next == "" {
			break
		}
		token = next
	}

	resp := &Response{TotalCount: len(matched), Page: page}
	resp.TotalPages = (len(matched) + pageSize - 1) / pageSize
	start := page * pageSize
	if start < len(matched) {
		resp.Results = matched[start:min(start+pageSize, len(matched))]
	}
	return resp, nil
}

func matches(t *model.Transaction, query string, params Params) bool {
	if params.AmountMinPence > 0 && t.AmountPence < params.AmountMinPence {
		return false
	}
	if params.AmountMaxPence > 0 && t.AmountPence > params.AmountMaxPence {
		return false
	}
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Description), query) ||
		strings.Contains(strings.ToLower(t.Merchant), query)
}

// ToResult converts a stored transaction.
func ToResult(t *model.Transaction) *model.SearchResult {
	return &model.SearchResult{
		ID:          t.ID,
		Description: t.Description,
		Category:    string(t.Category),
		AmountPence: t.AmountPence,
		Direction:   t.Direction,
		Date:        t.Date,
	}
}
