package categorise

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/reelin/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	n := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if n < len(f.errs) && f.errs[n] != nil {
		return "", f.errs[n]
	}
	if n < len(f.responses) {
		return f.responses[n], nil
	}
	return `{"results": []}`, nil
}

var noRetry = RetryConfig{MaxRetries: 0}

// echoGenerator answers every prompt row it is sent, choosing the category from the
// row's description.
type echoGenerator struct {
	categoryFor func(description string) model.Category
}

func (g echoGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	_, rows, _ := strings.Cut(prompt, "Transactions:\n")
	var list []transactionForPrompt
	if err := json.Unmarshal([]byte(rows), &list); err != nil {
		return "", err
	}
	var resp llmResponse
	for _, row := range list {
		resp.Results = append(resp.Results, llmResult{
			TransactionID:      row.ID,
			Category:           string(g.categoryFor(row.Description)),
			BusinessUsePercent: 100,
			Confidence:         0.95,
		})
	}
	out, err := json.Marshal(resp)
	return string(out), err
}

func expense(id, merchant, desc string) *model.Transaction {
	return &model.Transaction{
		ID:                 id,
		Direction:          model.DirectionExpense,
		AmountPence:        1000,
		Merchant:           merchant,
		Description:        desc,
		Date:               time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		BusinessUsePercent: 100,
	}
}

func TestClassifyRuleBased(t *testing.T) {
	tests := []struct {
		name     string
		txn      *model.Transaction
		category model.Category
		source   string
		auto     bool
	}{
		{"merchant map", expense("1", "Google Ads", ""), model.CategoryAdvertising, "merchant_map", true},
		{"personal", expense("2", "NETFLIX.COM", ""), model.CategoryPersonal, "merchant_map", true},
		{"keyword", expense("3", "", "Printer ink"), model.CategoryOffice, "keyword", false},
		{"no match", expense("4", "", "zzz"), model.CategoryUnspecified, "none", false},
		{"income", &model.Transaction{Direction: model.DirectionIncome, Description: "Invoice 42"}, model.CategorySales, "income", true},
		{"other income", &model.Transaction{Direction: model.DirectionIncome, Description: "Bank interest"}, model.CategoryOtherIncome, "income", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := ClassifyRuleBased(tt.txn)
			assert.Equal(t, tt.category, cls.Category)
			assert.Equal(t, tt.source, cls.Source)
			assert.Equal(t, tt.auto, cls.AutoApply())
		})
	}
}

func TestMerchantPattern(t *testing.T) {
	assert.Equal(t, "screwfix", MerchantPattern(expense("1", " Screwfix ", "whatever")))
	assert.Equal(t, "card payment to", MerchantPattern(expense("2", "", "CARD PAYMENT TO ACME LTD")))
}

func TestPipeline_UserMappingWins(t *testing.T) {
	p := NewPipeline(nil, 0)
	mappings := []*model.CategoryMapping{
		{MerchantPattern: "Netflix", Category: model.CategoryAdvertising, BusinessUse: 50, Confidence: 0.9},
	}

	results := p.Categorise(context.Background(), []*model.Transaction{expense("1", "Netflix", "")}, mappings)

	require.Len(t, results, 1)
	assert.Equal(t, "user_mapping", results[0].Classification.Source)
	assert.Equal(t, model.CategoryAdvertising, results[0].Classification.Category)
	assert.Equal(t, 50.0, results[0].Classification.BusinessUsePercent)
}

func TestPipeline_SkipsUserCategorised(t *testing.T) {
	txn := expense("1", "Netflix", "")
	txn.Category = model.CategoryTraining
	txn.CategorySource = "user"

	results := NewPipeline(nil, 0).Categorise(context.Background(), []*model.Transaction{txn}, nil)

	assert.Equal(t, "user", results[0].Classification.Source)
	assert.False(t, Apply(txn, results[0].Classification))
	assert.Equal(t, model.CategoryTraining, txn.Category)
}

func TestPipeline_LLMForUncertain(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"```json\n" + `{"results": [{"transaction_id": "0", "category": "professional_fees", "business_use_percent": 100, "confidence": 0.92, "reasoning": "bookkeeping"}]}` + "\n```",
	}}
	p := NewPipeline(NewLLMClassifier(gen).WithRetryConfig(noRetry), 10)

	txns := []*model.Transaction{
		expense("a", "Google Ads", ""),
		expense("b", "", "Jones & Co bookkeeping"),
	}
	results := p.Categorise(context.Background(), txns, nil)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], `"id":"0"`)
	assert.Contains(t, gen.prompts[0], "Jones & Co bookkeeping")
	assert.NotContains(t, gen.prompts[0], "Google Ads")

	assert.Equal(t, "merchant_map", results[0].Classification.Source)
	assert.Equal(t, "llm", results[1].Classification.Source)
	assert.Equal(t, model.CategoryProfessional, results[1].Classification.Category)
	assert.True(t, results[1].Classification.AutoApply())
}

func TestPipeline_LLMRowsWithoutIDs(t *testing.T) {
	gen := echoGenerator{categoryFor: func(desc string) model.Category {
		if strings.Contains(desc, "ticket") {
			return model.CategoryTravel
		}
		return model.CategoryOffice
	}}
	p := NewPipeline(NewLLMClassifier(gen).WithRetryConfig(noRetry), 10)

	txns := []*model.Transaction{
		expense("", "", "train ticket"),
		expense("", "", "paper clips"),
	}
	results := p.Categorise(context.Background(), txns, nil)

	require.Len(t, results, 2)
	assert.Equal(t, model.CategoryTravel, results[0].Classification.Category)
	assert.Equal(t, model.CategoryOffice, results[1].Classification.Category)
	assert.Equal(t, "llm", results[0].Classification.Source)
	assert.Equal(t, "llm", results[1].Classification.Source)
}

func TestPipeline_LLMFailureKeepsRuleResult(t *testing.T) {
	gen := &fakeGenerator{errs: []error{&Error{Code: ErrLLMRejected, Message: "bad key"}}}
	p := NewPipeline(NewLLMClassifier(gen).WithRetryConfig(noRetry), 10)

	results := p.Categorise(context.Background(), []*model.Transaction{expense("a", "Wickes", "")}, nil)

	assert.Equal(t, "merchant_map", results[0].Classification.Source)
	assert.True(t, results[0].Classification.NeedsReview())
}

func TestPipeline_Batches(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewPipeline(NewLLMClassifier(gen).WithRetryConfig(noRetry), 2)

	var txns []*model.Transaction
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		txns = append(txns, expense(id, "", "mystery "+id))
	}
	results := p.Categorise(context.Background(), txns, nil)

	assert.Len(t, gen.prompts, 3)
	for _, r := range results {
		assert.Equal(t, "none", r.Classification.Source)
	}
}

func TestLLMClassifier_RejectsWrongDirectionCategory(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"results": [{"transaction_id": "0", "category": "sales", "confidence": 0.99}]}`,
	}}
	out, err := NewLLMClassifier(gen).WithRetryConfig(noRetry).ClassifyBatch(context.Background(), []*model.Transaction{expense("a", "", "x")})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "llm_miss", out[0].Source)
}

func TestLLMClassifier_BadJSON(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"not json"}}
	_, err := NewLLMClassifier(gen).WithRetryConfig(noRetry).ClassifyBatch(context.Background(), []*model.Transaction{expense("a", "", "x")})

	var catErr *Error
	require.True(t, errors.As(err, &catErr))
	assert.Equal(t, ErrLLMBadResponse, catErr.Code)
}

func TestLLMClassifier_NotConfigured(t *testing.T) {
	_, err := NewLLMClassifier(nil).ClassifyBatch(context.Background(), []*model.Transaction{expense("a", "", "x")})

	var catErr *Error
	require.True(t, errors.As(err, &catErr))
	assert.Equal(t, ErrNotConfigured, catErr.Code)
}

func TestErrorForStatus(t *testing.T) {
	cause := errors.New("boom")
	assert.Equal(t, ErrLLMRateLimited, errorForStatus(429, cause).Code)
	assert.True(t, errorForStatus(503, cause).Retryable)
	assert.False(t, errorForStatus(400, cause).Retryable)
	assert.True(t, strings.Contains(errorForStatus(400, cause).Error(), "boom"))
}

func TestApply(t *testing.T) {
	t.Run("auto", func(t *testing.T) {
		txn := expense("a", "", "")
		changed := Apply(txn, Classification{Category: model.CategoryTravel, BusinessUsePercent: 100, Confidence: 0.9, Source: "llm"})
		assert.True(t, changed)
		assert.Equal(t, model.CategoryTravel, txn.Category)
		assert.False(t, txn.NeedsReview)
	})
	t.Run("review", func(t *testing.T) {
		txn := expense("a", "", "")
		Apply(txn, Classification{Category: model.CategoryOffice, BusinessUsePercent: 50, Confidence: 0.7, Source: "merchant_map"})
		assert.Equal(t, model.CategoryOffice, txn.Category)
		assert.Equal(t, 50.0, txn.BusinessUsePercent)
		assert.True(t, txn.NeedsReview)
	})
	t.Run("low confidence only flags", func(t *testing.T) {
		txn := expense("a", "", "")
		Apply(txn, Classification{Category: model.CategoryOffice, Confidence: 0.55, Source: "keyword"})
		assert.Equal(t, model.CategoryUnspecified, txn.Category)
		assert.True(t, txn.NeedsReview)
	})
}
