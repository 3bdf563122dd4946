package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMemoryStore()
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, txn := range []*model.Transaction{
		{ID: "t1", UserID: "u1", Direction: model.DirectionExpense, AmountPence: 4250, Description: "SCREWFIX 123", Merchant: "Screwfix", Category: model.CategoryCostOfGoods, Date: day},
		{ID: "t2", UserID: "u1", Direction: model.DirectionExpense, AmountPence: 999, Description: "Card payment", Merchant: "Screwfix Direct", Date: day},
		{ID: "t3", UserID: "u1", Direction: model.DirectionIncome, AmountPence: 120000, Description: "Invoice 7 screws", Date: day},
		{ID: "t4", UserID: "u2", Direction: model.DirectionExpense, AmountPence: 4250, Description: "SCREWFIX 999", Date: day},
	} {
		require.NoError(t, s.CreateTransaction(ctx, txn))
	}
	return s
}

func TestStoreSearcher(t *testing.T) {
	s := NewStoreSearcher(seed(t))
	ctx := context.Background()

	t.Run("matches description and merchant for the user only", func(t *testing.T) {
		resp, err := s.Search(ctx, Params{UserID: "u1", Query: "screwfix"})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.TotalCount)
		ids := []string{resp.Results[0].ID, resp.Results[1].ID}
		assert.ElementsMatch(t, []string{"t1", "t2"}, ids)
	})

	t.Run("direction and amount filters", func(t *testing.T) {
		resp, err := s.Search(ctx, Params{UserID: "u1", Query: "screw", Direction: model.DirectionExpense, AmountMinPence: 1000})
		require.NoError(t, err)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "t1", resp.Results[0].ID)
	})

	t.Run("pages", func(t *testing.T) {
		resp, err := s.Search(ctx, Params{UserID: "u1", PageSize: 2, Page: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.TotalCount)
		assert.Equal(t, 2, resp.TotalPages)
		assert.Len(t, resp.Results, 1)
	})

	t.Run("page past the end", func(t *testing.T) {
		resp, err := s.Search(ctx, Params{UserID: "u1", PageSize: 2, Page: 5})
		require.NoError(t, err)
		assert.Empty(t, resp.Results)
	})
}

func TestBuildFilters(t *testing.T) {
	start := time.Unix(1700000000, 0)
	got := buildFilters(Params{
		UserID:         "u1",
		Category:       "travel",
		Direction:      model.DirectionExpense,
		AmountMinPence: 100,
		StartDate:      &start,
	})
	assert.Equal(t, `UserId:"u1" AND Category:"travel" AND Type:"expense" AND AmountPence >= 100 AND DateUnix >= 1700000000`, got)

	assert.Equal(t, `UserId:""`, buildFilters(Params{}), "user filter is always present")
}

func TestHitToSearchResult(t *testing.T) {
	r := hitToSearchResult(map[string]any{
		"objectID":    "t1",
		"Description": "Train",
		"Category":    "travel",
		"AmountPence": float64(2350),
		"DateUnix":    float64(1700000000),
		"Type":        "expense",
	})
	require.NotNil(t, r)
	assert.Equal(t, int64(2350), r.AmountPence)
	assert.Equal(t, model.DirectionExpense, r.Direction)
	assert.Equal(t, int64(1700000000), r.Date.Unix())

	assert.Nil(t, hitToSearchResult(map[string]any{"Description": "orphan"}))
}

func TestTransactionRecord(t *testing.T) {
	rec := transactionRecord(&model.Transaction{ID: "t1", UserID: "u1", Direction: model.DirectionIncome, Category: model.CategorySales, AmountPence: 5})
	assert.Equal(t, "t1", rec["objectID"])
	assert.Equal(t, "u1", rec["UserId"])
	assert.Equal(t, "income", rec["Type"])
	assert.Equal(t, "sales", rec["Category"])
}

func TestIndexSettings_MatchRecordLayout(t *testing.T) {
	record := transactionRecord(&model.Transaction{ID: "t1", UserID: "u1"})
	settings := IndexSettings()

	attrs := append([]string{}, settings.SearchableAttributes...)
	attrs = append(attrs, settings.NumericAttributesForFiltering...)
	attrs = append(attrs, settings.AttributesToRetrieve...)
	attrs = append(attrs, settings.AttributesToHighlight...)
	for _, facet := range settings.AttributesForFaceting {
		facet = strings.TrimPrefix(facet, "filterOnly(")
		facet = strings.TrimPrefix(facet, "searchable(")
		attrs = append(attrs, strings.TrimSuffix(facet, ")"))
	}
	for _, a := range attrs {
		assert.Contains(t, record, a)
	}

	assert.Contains(t, settings.AttributesForFaceting, "filterOnly(UserId)")
	assert.NotContains(t, settings.AttributesToRetrieve, "UserId")
	assert.Equal(t, int32(25), *settings.HitsPerPage)
}
