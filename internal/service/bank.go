package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/banking"
	"github.com/reelin/backend/internal/categorise"
	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/rules"
	"github.com/reelin/backend/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentAccountFetches bounds parallel transaction feed requests per sync.
const maxConcurrentAccountFetches = 4

// StartBankConnection creates a pending connection and returns the provider's consent URL.
func (s *ReelinService) StartBankConnection(ctx context.Context, req *connect.Request[StartBankConnectionRequest]) (*connect.Response[StartBankConnectionResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if s.banking == nil {
		return nil, unavailable("bank connections")
	}
	state, err := newState()
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	conn := &model.BankConnection{
		UserID:    claims.UID,
		Provider:  banking.ProviderName,
		State:     state,
		Status:    model.ConnectionPending,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateBankConnection(ctx, conn); err != nil {
		return nil, auth.WrapStoreError("create bank connection", err)
	}
	return connect.NewResponse(&StartBankConnectionResponse{
		ConnectionID: conn.ID,
		AuthURL:      s.banking.AuthCodeURL(state),
		State:        state,
	}), nil
}

// CompleteBankConnection exchanges the authorisation code and records the linked accounts.
func (s *ReelinService) CompleteBankConnection(ctx context.Context, req *connect.Request[CompleteBankConnectionRequest]) (*connect.Response[CompleteBankConnectionResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if s.banking == nil {
		return nil, unavailable("bank connections")
	}
	if req.Msg.Code == "" || req.Msg.State == "" {
		return nil, invalidArgument(fmt.Errorf("code and state are required"))
	}

	conn, err := s.store.GetBankConnectionByState(ctx, req.Msg.State)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalidArgument(fmt.Errorf("unknown or expired state"))
		}
		return nil, auth.WrapStoreError("get bank connection", err)
	}
	if conn.UserID != claims.UID || conn.Status != model.ConnectionPending {
		return nil, invalidArgument(fmt.Errorf("unknown or expired state"))
	}

	tok, err := s.banking.Exchange(ctx, req.Msg.Code)
	if err != nil {
		return nil, integrationError("exchange bank code", err)
	}
	conn.Token = model.TokenFromOAuth2(tok)

	session := s.banking.Session(ctx, conn.Token)
	accounts, err := session.Accounts(ctx)
	if err != nil {
		return nil, integrationError("list bank accounts", err)
	}
	conn.AccountIDs = conn.AccountIDs[:0]
	for _, a := range accounts {
		conn.AccountIDs = append(conn.AccountIDs, a.AccountID)
	}
	if refreshed, err := session.Token(); err == nil {
		conn.Token = refreshed
	}
	conn.State = ""
	conn.Status = model.ConnectionActive

	if err := s.store.UpdateBankConnection(ctx, conn); err != nil {
		return nil, auth.WrapStoreError("update bank connection", err)
	}
	logging.L().Info("bank connected",
		zap.String("component", "banking"),
		zap.String("uid", claims.UID),
		zap.Int("accounts", len(conn.AccountIDs)))

	return connect.NewResponse(&CompleteBankConnectionResponse{Connection: conn}), nil
}

// SyncBankTransactions imports new feed entries from every linked account, skipping
// ones already imported, and categorises them.
func (s *ReelinService) SyncBankTransactions(ctx context.Context, req *connect.Request[SyncBankTransactionsRequest]) (*connect.Response[SyncBankTransactionsResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requirePro(ctx, claims.UID); err != nil {
		return nil, err
	}
	if s.banking == nil {
		return nil, unavailable("bank connections")
	}
	conn, err := s.ownedBankConnection(ctx, claims, req.Msg.ConnectionID)
	if err != nil {
		return nil, err
	}
	if conn.Status != model.ConnectionActive {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("bank connection is %s, reconnect to continue", conn.Status))
	}

	now := s.now()
	to := now
	if req.Msg.To != nil {
		to = *req.Msg.To
	}
	from, _, _ := rules.TaxYearBounds(rules.CurrentTaxYear(now))
	if req.Msg.From != nil {
		from = *req.Msg.From
	}
	if err := validatePeriod(from, to); err != nil {
		return nil, invalidArgument(err)
	}

	session := s.banking.Session(ctx, conn.Token)
	feeds, err := fetchFeeds(ctx, session, conn.AccountIDs, from, to)
	if err != nil {
		s.saveBankToken(ctx, conn, session, err)
		return nil, integrationError("fetch bank transactions", err)
	}

	resp := &SyncBankTransactionsResponse{}
	seen := map[string]bool{}
	var fresh []*model.Transaction
	for i, accountID := range conn.AccountIDs {
		for _, pt := range feeds[i] {
			if pt.TransactionID == "" || seen[pt.TransactionID] {
				continue
			}
			seen[pt.TransactionID] = true
			_, err := s.store.GetTransactionByProviderID(ctx, claims.UID, pt.TransactionID)
			if err == nil {
				resp.Duplicates++
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return nil, auth.WrapStoreError("check imported transaction", err)
			}
			fresh = append(fresh, banking.ToTransaction(claims.UID, accountID, pt))
		}
	}

	if len(fresh) > 0 {
		mappings, err := s.store.ListCategoryMappings(ctx, claims.UID)
		if err != nil {
			return nil, auth.WrapStoreError("list category mappings", err)
		}
		for _, r := range s.pipeline.Categorise(ctx, fresh, mappings) {
			categorise.Apply(r.Transaction, r.Classification)
		}
	}
	for _, txn := range fresh {
		txn.CreatedAt = now
		txn.UpdatedAt = now
		if err := s.store.CreateTransaction(ctx, txn); err != nil {
			return nil, auth.WrapStoreError("create transaction", err)
		}
		s.index(ctx, txn)
		resp.Imported++
		if txn.NeedsReview {
			resp.NeedsReview++
		} else {
			resp.AutoApplied++
		}
	}

	conn.LastSyncedAt = now
	s.saveBankToken(ctx, conn, session, nil)
	s.metrics.RecordBankImport("created", resp.Imported)
	s.metrics.RecordBankImport("duplicate", resp.Duplicates)

	logging.L().Info("bank sync complete",
		zap.String("component", "banking"),
		zap.String("uid", claims.UID),
		zap.String("connection_id", conn.ID),
		zap.Int("imported", resp.Imported),
		zap.Int("duplicates", resp.Duplicates),
		zap.Int("needs_review", resp.NeedsReview))

	return connect.NewResponse(resp), nil
}

// fetchFeeds loads each account's feed concurrently. Results are indexed like accountIDs.
func fetchFeeds(ctx context.Context, session *banking.Session, accountIDs []string, from, to time.Time) ([][]banking.ProviderTransaction, error) {
	feeds := make([][]banking.ProviderTransaction, len(accountIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAccountFetches)
	for i, id := range accountIDs {
		g.Go(func() error {
			txns, err := session.Transactions(gctx, id, from, to)
			if err != nil {
				return err
			}
			feeds[i] = txns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return feeds, nil
}

// saveBankToken persists the possibly refreshed token and sync time. A rejected
// refresh marks the connection revoked.
func (s *ReelinService) saveBankToken(ctx context.Context, conn *model.BankConnection, session *banking.Session, callErr error) {
	var pe *banking.ProviderError
	if errors.As(callErr, &pe) && pe.StatusCode == 401 {
		conn.Status = model.ConnectionRevoked
	} else if tok, err := session.Token(); err == nil {
		conn.Token = tok
	}
	if err := s.store.UpdateBankConnection(ctx, conn); err != nil {
		logging.L().Warn("failed to save bank connection",
			zap.String("component", "banking"),
			zap.String("connection_id", conn.ID),
			zap.Error(err))
	}
}

// ListBankConnections returns the caller's connections.
func (s *ReelinService) ListBankConnections(ctx context.Context, req *connect.Request[ListBankConnectionsRequest]) (*connect.Response[ListBankConnectionsResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	conns, err := s.store.ListBankConnections(ctx, claims.UID)
	if err != nil {
		return nil, auth.WrapStoreError("list bank connections", err)
	}
	return connect.NewResponse(&ListBankConnectionsResponse{Connections: conns}), nil
}

// DisconnectBank deletes a connection and its tokens. Imported transactions are kept.
func (s *ReelinService) DisconnectBank(ctx context.Context, req *connect.Request[DisconnectBankRequest]) (*connect.Response[DisconnectBankResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedBankConnection(ctx, claims, req.Msg.ConnectionID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteBankConnection(ctx, req.Msg.ConnectionID); err != nil {
		return nil, auth.WrapStoreError("delete bank connection", err)
	}
	return connect.NewResponse(&DisconnectBankResponse{}), nil
}

func (s *ReelinService) ownedBankConnection(ctx context.Context, claims *auth.UserClaims, id string) (*model.BankConnection, error) {
	if id == "" {
		return nil, invalidArgument(fmt.Errorf("connection id is required"))
	}
	conn, err := s.store.GetBankConnection(ctx, id)
	if err != nil {
		return nil, auth.WrapStoreError("get bank connection", err)
	}
	if err := auth.RequireOwner(claims, conn.UserID, "bank connection"); err != nil {
		return nil, err
	}
	return conn, nil
}
