package service

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/categorise"
	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/rules"
	"github.com/reelin/backend/internal/search"
	"github.com/reelin/backend/internal/store"
	"go.uber.org/zap"
)

// validateInput checks the editable fields of a transaction.
func validateInput(in TransactionInput) error {
	if in.Direction != model.DirectionIncome && in.Direction != model.DirectionExpense {
		return fmt.Errorf("direction must be income or expense")
	}
	if err := rules.ValidateAmount(in.AmountPence); err != nil {
		return err
	}
	if err := rules.ValidateVATRate(in.VATRate); err != nil {
		return err
	}
	if in.BusinessUsePercent != nil {
		if err := rules.ValidatePercent(*in.BusinessUsePercent); err != nil {
			return err
		}
	}
	if !model.IsValidCategory(in.Direction, in.Category) {
		return fmt.Errorf("category %q is not valid for %s", in.Category, in.Direction)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("description is required")
	}
	return nil
}

// CreateTransaction records a manual income or expense.
func (s *ReelinService) CreateTransaction(ctx context.Context, req *connect.Request[CreateTransactionRequest]) (*connect.Response[CreateTransactionResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	in := req.Msg.TransactionInput
	if err := validateInput(in); err != nil {
		return nil, invalidArgument(err)
	}

	now := s.now()
	txn := &model.Transaction{
		UserID:             claims.UID,
		Direction:          in.Direction,
		AmountPence:        in.AmountPence,
		VATRate:            in.VATRate,
		Category:           in.Category,
		Description:        strings.TrimSpace(in.Description),
		Merchant:           strings.TrimSpace(in.Merchant),
		Date:               in.Date,
		BusinessUsePercent: 100,
		ReceiptPath:        in.ReceiptPath,
		Source:             model.SourceManual,
		TaxYear:            rules.TaxYearOf(in.Date),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if in.BusinessUsePercent != nil {
		txn.BusinessUsePercent = *in.BusinessUsePercent
	}
	if txn.Category != model.CategoryUnspecified {
		txn.CategorySource = "user"
		txn.CategoryConfidence = 1
	}

	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		return nil, auth.WrapStoreError("create transaction", err)
	}
	s.index(ctx, txn)

	return connect.NewResponse(&CreateTransactionResponse{Transaction: viewOf(txn)}), nil
}

// GetTransaction returns one of the caller's transactions.
func (s *ReelinService) GetTransaction(ctx context.Context, req *connect.Request[GetTransactionRequest]) (*connect.Response[GetTransactionResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	txn, err := s.ownedTransaction(ctx, claims, req.Msg.ID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&GetTransactionResponse{Transaction: viewOf(txn)}), nil
}

// UpdateTransaction replaces the editable fields. Any change to a real category is a
// correction, whoever set the old one, and is remembered as a merchant mapping for
// that user.
func (s *ReelinService) UpdateTransaction(ctx context.Context, req *connect.Request[UpdateTransactionRequest]) (*connect.Response[UpdateTransactionResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	txn, err := s.ownedTransaction(ctx, claims, req.Msg.ID)
	if err != nil {
		return nil, err
	}
	in := req.Msg.TransactionInput
	if err := validateInput(in); err != nil {
		return nil, invalidArgument(err)
	}

	corrected := in.Category != txn.Category && in.Category != model.CategoryUnspecified
	txn.Direction = in.Direction
	txn.AmountPence = in.AmountPence
	txn.VATRate = in.VATRate
	txn.Category = in.Category
	txn.Description = strings.TrimSpace(in.Description)
	txn.Merchant = strings.TrimSpace(in.Merchant)
	txn.Date = in.Date
	txn.TaxYear = rules.TaxYearOf(in.Date)
	txn.ReceiptPath = in.ReceiptPath
	if in.BusinessUsePercent != nil {
		txn.BusinessUsePercent = *in.BusinessUsePercent
	}
	if corrected {
		txn.CategorySource = "user"
		txn.CategoryConfidence = 1
		txn.CategoryReasoning = ""
		txn.NeedsReview = false
	}
	if req.Msg.Reviewed {
		txn.NeedsReview = false
	}
	txn.UpdatedAt = s.now()

	if err := s.store.UpdateTransaction(ctx, txn); err != nil {
		return nil, auth.WrapStoreError("update transaction", err)
	}
	if corrected {
		s.learnMapping(ctx, txn)
	}
	s.index(ctx, txn)

	return connect.NewResponse(&UpdateTransactionResponse{Transaction: viewOf(txn)}), nil
}

// DeleteTransaction removes one of the caller's transactions.
func (s *ReelinService) DeleteTransaction(ctx context.Context, req *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedTransaction(ctx, claims, req.Msg.ID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteTransaction(ctx, req.Msg.ID); err != nil {
		return nil, auth.WrapStoreError("delete transaction", err)
	}
	if s.indexer != nil {
		if err := s.indexer.Remove(ctx, req.Msg.ID); err != nil {
			logging.L().Warn("search index remove failed",
				zap.String("component", "search"),
				zap.String("transaction_id", req.Msg.ID),
				zap.Error(err))
		}
	}
	return connect.NewResponse(&DeleteTransactionResponse{}), nil
}

// ListTransactions pages through the caller's transactions.
func (s *ReelinService) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.TaxYear != "" {
		if _, _, err := rules.TaxYearBounds(req.Msg.TaxYear); err != nil {
			return nil, invalidArgument(err)
		}
	}

	filter := store.TransactionFilter{
		UserID:      claims.UID,
		Direction:   req.Msg.Direction,
		Category:    req.Msg.Category,
		TaxYear:     req.Msg.TaxYear,
		NeedsReview: req.Msg.NeedsReview,
	}
	txns, next, err := s.store.ListTransactions(ctx, filter, auth.NormalizePageSize(req.Msg.PageSize), req.Msg.PageToken)
	if err != nil {
		return nil, auth.WrapStoreError("list transactions", err)
	}

	views := make([]TransactionView, 0, len(txns))
	for _, t := range txns {
		views = append(views, viewOf(t))
	}
	return connect.NewResponse(&ListTransactionsResponse{Transactions: views, NextPageToken: next}), nil
}

// SearchTransactions runs a free-text search over the caller's transactions.
func (s *ReelinService) SearchTransactions(ctx context.Context, req *connect.Request[SearchTransactionsRequest]) (*connect.Response[SearchTransactionsResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	if msg.AmountMinPence > 0 && msg.AmountMaxPence > 0 && msg.AmountMinPence > msg.AmountMaxPence {
		return nil, invalidArgument(fmt.Errorf("minimum amount exceeds maximum"))
	}

	resp, err := s.searcher.Search(ctx, search.Params{
		Query:          msg.Query,
		UserID:         claims.UID,
		Category:       string(msg.Category),
		Direction:      msg.Direction,
		AmountMinPence: msg.AmountMinPence,
		AmountMaxPence: msg.AmountMaxPence,
		StartDate:      msg.StartDate,
		EndDate:        msg.EndDate,
		Page:           msg.Page,
		PageSize:       msg.PageSize,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("search transactions: %w", err))
	}

	return connect.NewResponse(&SearchTransactionsResponse{
		Results:    resp.Results,
		TotalCount: resp.TotalCount,
		TotalPages: resp.TotalPages,
		Page:       resp.Page,
	}), nil
}

// ownedTransaction loads a transaction and checks it belongs to the caller.
func (s *ReelinService) ownedTransaction(ctx context.Context, claims *auth.UserClaims, id string) (*model.Transaction, error) {
	if id == "" {
		return nil, invalidArgument(fmt.Errorf("transaction id is required"))
	}
	txn, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, auth.WrapStoreError("get transaction", err)
	}
	if err := auth.RequireOwner(claims, txn.UserID, "transaction"); err != nil {
		return nil, err
	}
	return txn, nil
}

// index pushes a write to the external search index. Failures are logged only; the
// store stays authoritative.
func (s *ReelinService) index(ctx context.Context, txn *model.Transaction) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.Index(ctx, txn); err != nil {
		logging.L().Warn("search index update failed",
			zap.String("component", "search"),
			zap.String("transaction_id", txn.ID),
			zap.Error(err))
	}
}

// learnMapping remembers a user's category correction for the transaction's merchant.
func (s *ReelinService) learnMapping(ctx context.Context, txn *model.Transaction) {
	pattern := categorise.MerchantPattern(txn)
	if pattern == "" {
		return
	}
	mapping := &model.CategoryMapping{
		UserID:          txn.UserID,
		MerchantPattern: pattern,
		Category:        txn.Category,
		BusinessUse:     txn.BusinessUsePercent,
		Confidence:      0.9,
		UseCount:        1,
		UpdatedAt:       s.now(),
	}

	existing, err := s.store.ListCategoryMappings(ctx, txn.UserID)
	if err == nil {
		for _, m := range existing {
			if strings.EqualFold(m.MerchantPattern, pattern) {
				mapping.ID = m.ID
				mapping.UseCount = m.UseCount + 1
				// Repeated corrections to the same category build confidence.
				if m.Category == txn.Category {
					mapping.Confidence = min(0.99, m.Confidence+0.03)
				}
				break
			}
		}
	}

	if err := s.store.UpsertCategoryMapping(ctx, mapping); err != nil {
		logging.L().Warn("failed to save category mapping",
			zap.String("component", "categorise"),
			zap.String("pattern", pattern),
			zap.Error(err))
	}
}
