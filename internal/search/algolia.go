package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/algolia/algoliasearch-client-go/v4/algolia/search"
	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/model"
	"go.uber.org/zap"
)

// Config holds Algolia configuration.
type Config struct {
	AppID     string
	APIKey    string // needs addObject/deleteObject as well as search
	IndexName string
}

// AlgoliaClient wraps the Algolia search API client.
type AlgoliaClient struct {
	client    *search.APIClient
	indexName string
}

// NewAlgoliaClient creates a new Algolia search client.
func NewAlgoliaClient(cfg Config) (*AlgoliaClient, error) {
	if cfg.AppID == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("algolia AppID and APIKey are required")
	}
	if cfg.IndexName == "" {
		cfg.IndexName = "reelin_transactions"
	}

	client, err := search.NewClient(cfg.AppID, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("creating algolia client: %w", err)
	}

	return &AlgoliaClient{
		client:    client,
		indexName: cfg.IndexName,
	}, nil
}

// Search performs a full-text search via Algolia.
func (c *AlgoliaClient) Search(_ context.Context, params Params) (*Response, error) {
	pageSize, page := params.normalize()

	searchParams := search.SearchParamsObjectAsSearchParams(
		search.NewSearchParamsObject().
			SetQuery(params.Query).
			SetHitsPerPage(int32(pageSize)).
			SetPage(int32(page)).
			SetFilters(buildFilters(params)),
	)

	resp, err := c.client.SearchSingleIndex(c.client.NewApiSearchSingleIndexRequest(c.indexName).WithSearchParams(searchParams))
	if err != nil {
		return nil, fmt.Errorf("algolia search: %w", err)
	}

	results := make([]*model.SearchResult, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if result := hitToSearchResult(hit.AdditionalProperties); result != nil {
			results = append(results, result)
		}
	}

	out := &Response{Results: results, Page: page}
	if resp.NbHits != nil {
		out.TotalCount = int(*resp.NbHits)
	}
	if resp.NbPages != nil {
		out.TotalPages = int(*resp.NbPages)
	}
	return out, nil
}

// Index upserts a transaction record.
func (c *AlgoliaClient) Index(_ context.Context, txn *model.Transaction) error {
	_, err := c.client.SaveObject(c.client.NewApiSaveObjectRequest(c.indexName, transactionRecord(txn)))
	if err != nil {
		return fmt.Errorf("algolia save %s: %w", txn.ID, err)
	}
	return nil
}

// Remove deletes a transaction record.
func (c *AlgoliaClient) Remove(_ context.Context, id string) error {
	if _, err := c.client.DeleteObject(c.client.NewApiDeleteObjectRequest(c.indexName, id)); err != nil {
		return fmt.Errorf("algolia delete %s: %w", id, err)
	}
	return nil
}

func int32Ptr(v int32) *int32 { return &v }

// IndexSettings is the index configuration matching transactionRecord. UserId is
// filter-only and never retrieved so results cannot leak another tenant's ID.
func IndexSettings() *search.IndexSettings {
	return &search.IndexSettings{
		SearchableAttributes: []string{
			"Description",
			"Merchant",
			"Category",
		},
		AttributesForFaceting: []string{
			"filterOnly(UserId)",
			"searchable(Category)",
			"filterOnly(Type)",
			"filterOnly(TaxYear)",
		},
		NumericAttributesForFiltering: []string{
			"AmountPence",
			"DateUnix",
		},
		CustomRanking: []string{
			"desc(DateUnix)",
		},
		AttributesToRetrieve: []string{
			"objectID",
			"Description",
			"Merchant",
			"Category",
			"Type",
			"AmountPence",
			"DateUnix",
			"TaxYear",
		},
		AttributesToHighlight: []string{
			"Description",
			"Merchant",
		},
		HitsPerPage:          int32Ptr(25),
		MaxValuesPerFacet:    int32Ptr(100),
		MinWordSizefor1Typo:  int32Ptr(4),
		MinWordSizefor2Typos: int32Ptr(8),
	}
}

// ApplySettings pushes IndexSettings to the index. Algolia applies them asynchronously;
// the returned task ID can be polled.
func (c *AlgoliaClient) ApplySettings(_ context.Context) (int64, error) {
	resp, err := c.client.SetSettings(c.client.NewApiSetSettingsRequest(c.indexName, IndexSettings()))
	if err != nil {
		return 0, fmt.Errorf("algolia set settings on %s: %w", c.indexName, err)
	}
	logging.L().Info("algolia index settings applied",
		zap.String("component", "search"),
		zap.String("index", c.indexName),
		zap.Int64("task_id", resp.TaskID))
	return resp.TaskID, nil
}

// IndexName returns the configured index.
func (c *AlgoliaClient) IndexName() string {
	return c.indexName
}

func transactionRecord(txn *model.Transaction) map[string]any {
	return map[string]any{
		"objectID":    txn.ID,
		"UserId":      txn.UserID,
		"Description": txn.Description,
		"Merchant":    txn.Merchant,
		"Category":    string(txn.Category),
		"Type":        string(txn.Direction),
		"AmountPence": txn.AmountPence,
		"DateUnix":    txn.Date.Unix(),
		"TaxYear":     txn.TaxYear,
	}
}

// buildFilters constructs Algolia filter string from search params.
// UserId is always enforced for security.
func buildFilters(params Params) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("UserId:%q", params.UserID))

	if params.Category != "" {
		parts = append(parts, fmt.Sprintf("Category:%q", params.Category))
	}
	if params.Direction != "" {
		parts = append(parts, fmt.Sprintf("Type:%q", string(params.Direction)))
	}

	if params.AmountMinPence > 0 {
		parts = append(parts, fmt.Sprintf("AmountPence >= %d", params.AmountMinPence))
	}
	if params.AmountMaxPence > 0 {
		parts = append(parts, fmt.Sprintf("AmountPence <= %d", params.AmountMaxPence))
	}

	if params.StartDate != nil {
		parts = append(parts, fmt.Sprintf("DateUnix >= %d", params.StartDate.Unix()))
	}
	if params.EndDate != nil {
		parts = append(parts, fmt.Sprintf("DateUnix <= %d", params.EndDate.Unix()))
	}

	return strings.Join(parts, " AND ")
}

// hitToSearchResult converts an Algolia hit to a SearchResult.
func hitToSearchResult(props map[string]any) *model.SearchResult {
	result := &model.SearchResult{}

	if v, ok := props["objectID"].(string); ok {
		result.ID = v
	}
	if v, ok := props["Description"].(string); ok {
		result.Description = v
	}
	if v, ok := props["Category"].(string); ok {
		result.Category = v
	}
	if v, ok := props["AmountPence"].(float64); ok {
		result.AmountPence = int64(v)
	}
	if v, ok := props["DateUnix"].(float64); ok && v > 0 {
		result.Date = time.Unix(int64(v), 0).UTC()
	}
	if v, ok := props["Type"].(string); ok {
		switch strings.ToLower(v) {
		case "expense":
			result.Direction = model.DirectionExpense
		case "income":
			result.Direction = model.DirectionIncome
		}
	}

	if result.ID == "" {
		logging.L().Warn("algolia: skipping hit with no objectID", zap.String("component", "search"))
		return nil
	}

	return result
}
