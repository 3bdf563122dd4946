package categorise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/reelin/backend/internal/model"
	"google.golang.org/genai"
)

// TextGenerator produces a JSON completion for a prompt.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// GenAIGenerator is a TextGenerator backed by the Gemini API.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

// NewGenAIGenerator creates a Gemini client for the given model.
func NewGenAIGenerator(ctx context.Context, apiKey, modelName string) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, &Error{Code: ErrNotConfigured, Message: "Gemini API key not configured"}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GenAIGenerator{client: client, model: modelName}, nil
}

// GenerateJSON sends a single-turn prompt and returns the response text.
func (g *GenAIGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0.1)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", classifyAPIError(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &Error{Code: ErrLLMBadResponse, Message: "empty response", Retryable: true}
	}
	return text, nil
}

// classifyAPIError maps Gemini API failures to categorisation errors.
func classifyAPIError(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	return errorForStatus(code, err)
}

func errorForStatus(code int, err error) *Error {
	switch {
	case code == 429:
		return &Error{Code: ErrLLMRateLimited, Message: "rate limited", Retryable: true, Cause: err}
	case code >= 500 || code == 0:
		return &Error{Code: ErrLLMUnavailable, Message: "model unavailable", Retryable: true, Cause: err}
	default:
		return &Error{Code: ErrLLMRejected, Message: fmt.Sprintf("request rejected (%d)", code), Cause: err}
	}
}

// LLMClassifier categorises transactions the rule tier could not place.
type LLMClassifier struct {
	gen   TextGenerator
	retry RetryConfig
}

// NewLLMClassifier wraps a generator. A nil generator disables the LLM tier.
func NewLLMClassifier(gen TextGenerator) *LLMClassifier {
	return &LLMClassifier{gen: gen, retry: DefaultRetryConfig}
}

// WithRetryConfig overrides the backoff used for transient failures.
func (c *LLMClassifier) WithRetryConfig(cfg RetryConfig) *LLMClassifier {
	c.retry = cfg
	return c
}

type llmResult struct {
	TransactionID      string  `json:"transaction_id"`
	Category           string  `json:"category"`
	BusinessUsePercent float64 `json:"business_use_percent"`
	Confidence         float64 `json:"confidence"`
	Reasoning          string  `json:"reasoning"`
}

type llmResponse struct {
	Results []llmResult `json:"results"`
}

type transactionForPrompt struct {
	ID          string  `json:"id"`
	Direction   string  `json:"direction"`
	Description string  `json:"description"`
	Merchant    string  `json:"merchant,omitempty"`
	Amount      float64 `json:"amount_gbp"`
	Date        string  `json:"date"`
}

const promptTemplate = `You categorise transactions for a UK sole trader's self-assessment (SA103) return.

Expense categories:
- cost_of_goods: stock, materials, goods bought for resale
- staff: wages, subcontractors
- travel: business travel, fuel, parking, hotels (NOT commuting)
- premises: rent, business rates, utilities for business premises
- office: phone, postage, stationery, small equipment
- advertising: marketing, website, entertainment is NOT allowable
- financial: bank charges, interest, insurance
- professional_fees: accountants, solicitors
- training: courses that update existing skills
- clothing: uniforms and protective clothing only
- subscriptions: software and trade subscriptions
- other_expense: other allowable business costs
- personal: not a business expense

Income categories: sales, other_income.

Rules:
- Everyday clothing, meals, and personal entertainment are personal.
- Mixed-use items (phone, broadband) get a business_use_percent below 100.
- Income must use an income category; expenses must use an expense category.

Return JSON only:
{"results": [{"transaction_id": "<id of the input row>", "category": "...", "business_use_percent": 0-100, "confidence": 0.0-1.0, "reasoning": "brief explanation"}]}

Transactions:
%s`

// ClassifyBatch asks the model for one classification per transaction, in input order.
// Transactions the model skips come back with low confidence and source "llm_miss".
func (c *LLMClassifier) ClassifyBatch(ctx context.Context, txns []*model.Transaction) ([]Classification, error) {
	if c == nil || c.gen == nil {
		return nil, &Error{Code: ErrNotConfigured, Message: "LLM categorisation not configured"}
	}
	if len(txns) == 0 {
		return nil, nil
	}

	// Rows are keyed by batch position: bank imports are classified before they are stored
	// and have no ID yet.
	list := make([]transactionForPrompt, 0, len(txns))
	for i, t := range txns {
		list = append(list, transactionForPrompt{
			ID:          strconv.Itoa(i),
			Direction:   string(t.Direction),
			Description: t.Description,
			Merchant:    t.Merchant,
			Amount:      float64(t.AmountPence) / 100.0,
			Date:        t.Date.Format("2006-01-02"),
		})
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("marshal transactions: %w", err)
	}
	prompt := fmt.Sprintf(promptTemplate, string(payload))

	resp, err := WithRetry(ctx, c.retry, func(ctx context.Context) (*llmResponse, error) {
		text, err := c.gen.GenerateJSON(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return parseResponse(text)
	})
	if err != nil {
		return nil, err
	}

	byRow := make(map[string]llmResult, len(resp.Results))
	for _, r := range resp.Results {
		byRow[strings.TrimSpace(r.TransactionID)] = r
	}

	out := make([]Classification, 0, len(txns))
	for i, t := range txns {
		r, ok := byRow[strconv.Itoa(i)]
		cat := model.Category(strings.ToLower(strings.TrimSpace(r.Category)))
		if !ok || !model.IsValidCategory(t.Direction, cat) {
			out = append(out, Classification{
				Confidence: 0.30,
				Reasoning:  "Not classified by AI",
				Source:     "llm_miss",
			})
			continue
		}
		out = append(out, Classification{
			Category:           cat,
			BusinessUsePercent: clamp(r.BusinessUsePercent, 0, 100),
			Confidence:         clamp(r.Confidence, 0, 1),
			Reasoning:          r.Reasoning,
			Source:             "llm",
		})
	}
	return out, nil
}

func parseResponse(text string) (*llmResponse, error) {
	// Strip markdown code fences if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var resp llmResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, &Error{
			Code:    ErrLLMBadResponse,
			Message: fmt.Sprintf("unparseable response: %s", text[:min(len(text), 200)]),
			Cause:   err,
		}
	}
	return &resp, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
