package categorise

import (
	"context"

	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/model"
	"go.uber.org/zap"
)

// Minimum confidence for a learned user mapping to be trusted without the other tiers.
const userMappingThreshold = 0.70

// DefaultBatchSize is the number of transactions sent in one LLM call.
const DefaultBatchSize = 20

// Pipeline runs the three tiers:
// 1. User-learned merchant mappings
// 2. Static rules (classifier.go)
// 3. LLM (llm.go)
type Pipeline struct {
	llm       *LLMClassifier
	batchSize int
}

// NewPipeline creates a pipeline. llm may be nil, in which case only the first two tiers run.
func NewPipeline(llm *LLMClassifier, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{llm: llm, batchSize: batchSize}
}

// LLMEnabled reports whether the third tier is available.
func (p *Pipeline) LLMEnabled() bool {
	return p.llm != nil && p.llm.gen != nil
}

// Result pairs a transaction with its classification.
type Result struct {
	Transaction    *model.Transaction
	Classification Classification
}

// Categorise classifies each transaction. Results are in input order. An LLM failure is
// logged and leaves the rule-tier result in place.
func (p *Pipeline) Categorise(ctx context.Context, txns []*model.Transaction, mappings []*model.CategoryMapping) []Result {
	results := make([]Result, len(txns))
	var pending []*model.Transaction
	var pendingIdx []int

	for i, txn := range txns {
		// Manual choices are never overridden
		if txn.CategorySource == "user" && txn.Category != model.CategoryUnspecified {
			results[i] = Result{Transaction: txn, Classification: Classification{
				Category:           txn.Category,
				BusinessUsePercent: txn.BusinessUsePercent,
				Confidence:         1.0,
				Reasoning:          "Already categorised by user",
				Source:             "user",
			}}
			continue
		}

		if cls := matchUserMapping(txn, mappings); cls != nil && cls.Confidence >= userMappingThreshold &&
			model.IsValidCategory(txn.Direction, cls.Category) {
			results[i] = Result{Transaction: txn, Classification: *cls}
			continue
		}

		cls := ClassifyRuleBased(txn)
		if cls.Confidence >= AutoApplyThreshold {
			results[i] = Result{Transaction: txn, Classification: cls}
			continue
		}
		// Kept as the fallback if the LLM is unavailable or less sure
		results[i] = Result{Transaction: txn, Classification: cls}

		pending = append(pending, txn)
		pendingIdx = append(pendingIdx, i)
	}

	if len(pending) == 0 || !p.LLMEnabled() {
		return results
	}

	log := logging.L().With(zap.String("component", "categorise"))
	for start := 0; start < len(pending); start += p.batchSize {
		end := min(start+p.batchSize, len(pending))
		batch := pending[start:end]

		classified, err := p.llm.ClassifyBatch(ctx, batch)
		if err != nil {
			log.Warn("LLM classification failed", zap.Int("batch_size", len(batch)), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		for j, cls := range classified {
			idx := pendingIdx[start+j]
			if cls.Confidence > results[idx].Classification.Confidence {
				results[idx].Classification = cls
			}
		}
	}

	return results
}

// Apply writes a classification onto its transaction. Confident results are applied
// outright, mid-confidence results are applied and flagged, and anything weaker only
// flags the transaction for review. It reports whether the transaction changed.
func Apply(txn *model.Transaction, cls Classification) bool {
	if cls.Source == "user" {
		return false
	}
	before := *txn

	switch {
	case cls.AutoApply(), cls.NeedsReview():
		txn.Category = cls.Category
		txn.BusinessUsePercent = cls.BusinessUsePercent
		txn.CategoryConfidence = cls.Confidence
		txn.CategorySource = cls.Source
		txn.CategoryReasoning = cls.Reasoning
		txn.NeedsReview = !cls.AutoApply()
	default:
		txn.NeedsReview = true
	}

	return before != *txn
}
