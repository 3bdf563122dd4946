package service

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/categorise"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/rules"
	"github.com/reelin/backend/internal/store"
)

// maxCategoriseBatch caps how many transactions one call may categorise.
const maxCategoriseBatch = 500

// CategoriseTransactions runs the categoriser over the selected transactions. Rows the
// user categorised by hand are left alone.
func (s *ReelinService) CategoriseTransactions(ctx context.Context, req *connect.Request[CategoriseTransactionsRequest]) (*connect.Response[CategoriseTransactionsResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requirePro(ctx, claims.UID); err != nil {
		return nil, err
	}

	txns, err := s.categoriseSelection(ctx, claims, req.Msg)
	if err != nil {
		return nil, err
	}
	if len(txns) > maxCategoriseBatch {
		return nil, invalidArgument(fmt.Errorf("at most %d transactions can be categorised at once", maxCategoriseBatch))
	}

	mappings, err := s.store.ListCategoryMappings(ctx, claims.UID)
	if err != nil {
		return nil, auth.WrapStoreError("list category mappings", err)
	}

	resp := &CategoriseTransactionsResponse{Outcomes: make([]CategorisationOutcome, 0, len(txns))}
	now := s.now()
	for _, r := range s.pipeline.Categorise(ctx, txns, mappings) {
		txn, cls := r.Transaction, r.Classification
		changed := categorise.Apply(txn, cls)
		if changed {
			txn.UpdatedAt = now
			if err := s.store.UpdateTransaction(ctx, txn); err != nil {
				return nil, auth.WrapStoreError("update transaction", err)
			}
			s.index(ctx, txn)
		}
		applied := cls.Source != "user" && (cls.AutoApply() || cls.NeedsReview())
		if applied && cls.AutoApply() {
			resp.AutoApplied++
		}
		if txn.NeedsReview {
			resp.NeedsReview++
		}
		resp.Outcomes = append(resp.Outcomes, CategorisationOutcome{
			TransactionID: txn.ID,
			Category:      cls.Category,
			Confidence:    cls.Confidence,
			Source:        cls.Source,
			Reasoning:     cls.Reasoning,
			Applied:       applied,
			NeedsReview:   txn.NeedsReview,
		})
	}
	return connect.NewResponse(resp), nil
}

// categoriseSelection resolves the request to the caller's transactions.
func (s *ReelinService) categoriseSelection(ctx context.Context, claims *auth.UserClaims, msg *CategoriseTransactionsRequest) ([]*model.Transaction, error) {
	if len(msg.TransactionIDs) > 0 {
		if len(msg.TransactionIDs) > maxCategoriseBatch {
			return nil, invalidArgument(fmt.Errorf("at most %d transactions can be categorised at once", maxCategoriseBatch))
		}
		txns := make([]*model.Transaction, 0, len(msg.TransactionIDs))
		for _, id := range msg.TransactionIDs {
			txn, err := s.ownedTransaction(ctx, claims, id)
			if err != nil {
				return nil, err
			}
			txns = append(txns, txn)
		}
		return txns, nil
	}

	taxYear := msg.TaxYear
	if taxYear == "" {
		taxYear = rules.CurrentTaxYear(s.now())
	}
	if _, _, err := rules.TaxYearBounds(taxYear); err != nil {
		return nil, invalidArgument(err)
	}
	filter := store.TransactionFilter{UserID: claims.UID, TaxYear: taxYear}
	if msg.OnlyUnreviewed {
		needsReview := true
		filter.NeedsReview = &needsReview
	}
	return s.allTransactions(ctx, filter)
}
