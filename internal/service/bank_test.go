package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/reelin/backend/internal/banking"
	"github.com/reelin/backend/internal/categorise"
	"github.com/reelin/backend/internal/metrics"
	"github.com/reelin/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultFeed = `{"results":[
	{"transaction_id":"t1","timestamp":"2025-05-01T10:00:00Z","description":"SCREWFIX 123","amount":-42.5,"currency":"GBP","transaction_type":"DEBIT","merchant_name":"Screwfix"},
	{"transaction_id":"t2","timestamp":"2025-05-02T10:00:00Z","description":"INVOICE 7","amount":1200,"currency":"GBP","transaction_type":"CREDIT"}
]}`

// newFakeBank serves the provider's token, accounts and feed endpoints.
func newFakeBank(t *testing.T, feed string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") == "bad" || r.PostForm.Get("refresh_token") == "revoked" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"access","refresh_token":"r1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/data/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"account_id": "acc-1", "display_name": "Business", "currency": "GBP"}},
		})
	})
	mux.HandleFunc("/data/v1/accounts/acc-1/transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-04-06T00:00:00Z", r.URL.Query().Get("from"))
		_, _ = w.Write([]byte(feed))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func withBank(t *testing.T, svc *ReelinService) {
	t.Helper()
	withBankFeed(t, svc, defaultFeed)
}

func withBankFeed(t *testing.T, svc *ReelinService, feed string) {
	t.Helper()
	srv := newFakeBank(t, feed)
	svc.SetBankingClient(banking.NewClient(banking.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "https://reelin.test/bank/callback",
		AuthURL:      srv.URL,
		APIURL:       srv.URL,
	}, srv.Client()))
}

// connectBank runs the consent round trip and returns the active connection.
func connectBank(t *testing.T, svc *ReelinService, uid string) *model.BankConnection {
	t.Helper()
	ctx := testContext(uid)
	start, err := svc.StartBankConnection(ctx, connect.NewRequest(&StartBankConnectionRequest{}))
	require.NoError(t, err)
	done, err := svc.CompleteBankConnection(ctx, connect.NewRequest(&CompleteBankConnectionRequest{
		Code:  "good",
		State: start.Msg.State,
	}))
	require.NoError(t, err)
	return done.Msg.Connection
}

func TestBankConnection(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.StartBankConnection(testContext("user-1"), connect.NewRequest(&StartBankConnectionRequest{}))
		requireCode(t, err, connect.CodeUnavailable)
	})

	t.Run("consent url", func(t *testing.T) {
		svc, st := newTestService()
		withBank(t, svc)

		resp, err := svc.StartBankConnection(testContext("user-1"), connect.NewRequest(&StartBankConnectionRequest{}))
		require.NoError(t, err)
		u, err := url.Parse(resp.Msg.AuthURL)
		require.NoError(t, err)
		assert.Equal(t, resp.Msg.State, u.Query().Get("state"))
		assert.Equal(t, "client", u.Query().Get("client_id"))

		conn, err := st.GetBankConnection(context.Background(), resp.Msg.ConnectionID)
		require.NoError(t, err)
		assert.Equal(t, model.ConnectionPending, conn.Status)
		assert.Equal(t, "user-1", conn.UserID)
	})

	t.Run("complete", func(t *testing.T) {
		svc, _ := newTestService()
		withBank(t, svc)

		conn := connectBank(t, svc, "user-1")
		assert.Equal(t, model.ConnectionActive, conn.Status)
		assert.Equal(t, []string{"acc-1"}, conn.AccountIDs)
		assert.Equal(t, "access", conn.Token.AccessToken)
		assert.Empty(t, conn.State)
	})

	t.Run("state belongs to another user", func(t *testing.T) {
		svc, _ := newTestService()
		withBank(t, svc)

		start, err := svc.StartBankConnection(testContext("user-1"), connect.NewRequest(&StartBankConnectionRequest{}))
		require.NoError(t, err)
		_, err = svc.CompleteBankConnection(testContext("user-2"), connect.NewRequest(&CompleteBankConnectionRequest{
			Code:  "good",
			State: start.Msg.State,
		}))
		requireCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("state reused", func(t *testing.T) {
		svc, _ := newTestService()
		withBank(t, svc)

		ctx := testContext("user-1")
		start, err := svc.StartBankConnection(ctx, connect.NewRequest(&StartBankConnectionRequest{}))
		require.NoError(t, err)
		req := &CompleteBankConnectionRequest{Code: "good", State: start.Msg.State}
		_, err = svc.CompleteBankConnection(ctx, connect.NewRequest(req))
		require.NoError(t, err)
		_, err = svc.CompleteBankConnection(ctx, connect.NewRequest(req))
		requireCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("rejected code", func(t *testing.T) {
		svc, _ := newTestService()
		withBank(t, svc)

		ctx := testContext("user-1")
		start, err := svc.StartBankConnection(ctx, connect.NewRequest(&StartBankConnectionRequest{}))
		require.NoError(t, err)
		_, err = svc.CompleteBankConnection(ctx, connect.NewRequest(&CompleteBankConnectionRequest{
			Code:  "bad",
			State: start.Msg.State,
		}))
		requireCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("missing code", func(t *testing.T) {
		svc, _ := newTestService()
		withBank(t, svc)
		_, err := svc.CompleteBankConnection(testContext("user-1"), connect.NewRequest(&CompleteBankConnectionRequest{State: "x"}))
		requireCode(t, err, connect.CodeInvalidArgument)
	})
}

func TestSyncBankTransactions(t *testing.T) {
	svc, st := newTestService()
	withBank(t, svc)
	m := metrics.New()
	svc.SetMetrics(m)

	conn := connectBank(t, svc, "user-1")
	ctx := proContext("user-1")

	resp, err := svc.SyncBankTransactions(ctx, connect.NewRequest(&SyncBankTransactionsRequest{ConnectionID: conn.ID}))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Msg.Imported)
	assert.Equal(t, 0, resp.Msg.Duplicates)
	assert.Equal(t, 1, resp.Msg.AutoApplied)
	assert.Equal(t, 1, resp.Msg.NeedsReview)

	screwfix, err := st.GetTransactionByProviderID(context.Background(), "user-1", "t1")
	require.NoError(t, err)
	assert.Equal(t, model.DirectionExpense, screwfix.Direction)
	assert.Equal(t, int64(4250), screwfix.AmountPence)
	assert.Equal(t, model.CategoryCostOfGoods, screwfix.Category)
	assert.Equal(t, model.SourceBank, screwfix.Source)
	assert.Equal(t, "2025-26", screwfix.TaxYear)
	assert.True(t, screwfix.NeedsReview)

	invoice, err := st.GetTransactionByProviderID(context.Background(), "user-1", "t2")
	require.NoError(t, err)
	assert.Equal(t, model.DirectionIncome, invoice.Direction)
	assert.Equal(t, int64(120000), invoice.AmountPence)
	assert.Equal(t, model.CategorySales, invoice.Category)
	assert.False(t, invoice.NeedsReview)

	// A second sync sees the same feed and imports nothing.
	resp, err = svc.SyncBankTransactions(ctx, connect.NewRequest(&SyncBankTransactionsRequest{ConnectionID: conn.ID}))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Msg.Imported)
	assert.Equal(t, 2, resp.Msg.Duplicates)

	saved, err := st.GetBankConnection(context.Background(), conn.ID)
	require.NoError(t, err)
	assert.Equal(t, testNow, saved.LastSyncedAt)

	expected := `
# HELP reelin_bank_transactions_imported_total Bank transactions seen during sync, by outcome.
# TYPE reelin_bank_transactions_imported_total counter
reelin_bank_transactions_imported_total{outcome="created"} 2
reelin_bank_transactions_imported_total{outcome="duplicate"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "reelin_bank_transactions_imported_total"))
}

// rowGenerator classifies each prompt row by its description.
type rowGenerator struct{}

func (rowGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	_, rows, _ := strings.Cut(prompt, "Transactions:\n")
	var list []struct {
		ID          string `json:"id"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(rows), &list); err != nil {
		return "", err
	}
	type result struct {
		TransactionID string  `json:"transaction_id"`
		Category      string  `json:"category"`
		BusinessUse   float64 `json:"business_use_percent"`
		Confidence    float64 `json:"confidence"`
	}
	var out struct {
		Results []result `json:"results"`
	}
	for _, row := range list {
		cat := model.CategoryOffice
		if strings.Contains(strings.ToLower(row.Description), "ticket") {
			cat = model.CategoryTravel
		}
		out.Results = append(out.Results, result{TransactionID: row.ID, Category: string(cat), BusinessUse: 100, Confidence: 0.95})
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func TestSyncBankTransactions_LLMCategorisesEachRow(t *testing.T) {
	svc, st := newTestService()
	withBankFeed(t, svc, `{"results":[
		{"transaction_id":"t1","timestamp":"2025-05-01T10:00:00Z","description":"TRAIN TICKET LEEDS","amount":-23.4,"currency":"GBP","transaction_type":"DEBIT"},
		{"transaction_id":"t2","timestamp":"2025-05-02T10:00:00Z","description":"PAPER CLIPS","amount":-3.99,"currency":"GBP","transaction_type":"DEBIT"}
	]}`)
	llm := categorise.NewLLMClassifier(rowGenerator{}).WithRetryConfig(categorise.RetryConfig{MaxRetries: 0})
	svc.SetCategorisePipeline(categorise.NewPipeline(llm, categorise.DefaultBatchSize))

	conn := connectBank(t, svc, "user-1")
	resp, err := svc.SyncBankTransactions(proContext("user-1"), connect.NewRequest(&SyncBankTransactionsRequest{ConnectionID: conn.ID}))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Msg.Imported)
	assert.Equal(t, 2, resp.Msg.AutoApplied)

	ticket, err := st.GetTransactionByProviderID(context.Background(), "user-1", "t1")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryTravel, ticket.Category)
	assert.Equal(t, "llm", ticket.CategorySource)

	clips, err := st.GetTransactionByProviderID(context.Background(), "user-1", "t2")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryOffice, clips.Category)
	assert.Equal(t, "llm", clips.CategorySource)
}

func TestSyncBankTransactions_Preconditions(t *testing.T) {
	t.Run("free tier", func(t *testing.T) {
		svc, _ := newTestService()
		withBank(t, svc)
		conn := connectBank(t, svc, "user-1")
		_, err := svc.SyncBankTransactions(testContext("user-1"), connect.NewRequest(&SyncBankTransactionsRequest{ConnectionID: conn.ID}))
		requireCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("not configured", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.SyncBankTransactions(proContext("user-1"), connect.NewRequest(&SyncBankTransactionsRequest{ConnectionID: "c"}))
		requireCode(t, err, connect.CodeUnavailable)
	})

	t.Run("another user's connection", func(t *testing.T) {
		svc, _ := newTestService()
		withBank(t, svc)
		conn := connectBank(t, svc, "user-1")
		_, err := svc.SyncBankTransactions(proContext("user-2"), connect.NewRequest(&SyncBankTransactionsRequest{ConnectionID: conn.ID}))
		requireCode(t, err, connect.CodeNotFound)
	})

	t.Run("pending connection", func(t *testing.T) {
		svc, _ := newTestService()
		withBank(t, svc)
		start, err := svc.StartBankConnection(testContext("user-1"), connect.NewRequest(&StartBankConnectionRequest{}))
		require.NoError(t, err)
		_, err = svc.SyncBankTransactions(proContext("user-1"), connect.NewRequest(&SyncBankTransactionsRequest{ConnectionID: start.Msg.ConnectionID}))
		requireCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("period reversed", func(t *testing.T) {
		svc, _ := newTestService()
		withBank(t, svc)
		conn := connectBank(t, svc, "user-1")
		_, err := svc.SyncBankTransactions(proContext("user-1"), connect.NewRequest(&SyncBankTransactionsRequest{
			ConnectionID: conn.ID,
			From:         ptr(date(2025, time.June, 1)),
			To:           ptr(date(2025, time.May, 1)),
		}))
		requireCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("revoked refresh token", func(t *testing.T) {
		svc, st := newTestService()
		withBank(t, svc)
		conn := connectBank(t, svc, "user-1")
		conn.Token.Expiry = time.Now().Add(-time.Hour)
		conn.Token.RefreshToken = "revoked"
		require.NoError(t, st.UpdateBankConnection(context.Background(), conn))

		_, err := svc.SyncBankTransactions(proContext("user-1"), connect.NewRequest(&SyncBankTransactionsRequest{ConnectionID: conn.ID}))
		requireCode(t, err, connect.CodeUnauthenticated)

		saved, err := st.GetBankConnection(context.Background(), conn.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ConnectionRevoked, saved.Status)
	})
}

func TestListAndDisconnectBank(t *testing.T) {
	svc, st := newTestService()
	withBank(t, svc)
	conn := connectBank(t, svc, "user-1")
	connectBank(t, svc, "user-2")

	list, err := svc.ListBankConnections(testContext("user-1"), connect.NewRequest(&ListBankConnectionsRequest{}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Connections, 1)
	assert.Equal(t, conn.ID, list.Msg.Connections[0].ID)

	_, err = svc.DisconnectBank(testContext("user-2"), connect.NewRequest(&DisconnectBankRequest{ConnectionID: conn.ID}))
	requireCode(t, err, connect.CodeNotFound)

	_, err = svc.DisconnectBank(testContext("user-1"), connect.NewRequest(&DisconnectBankRequest{ConnectionID: conn.ID}))
	require.NoError(t, err)
	_, err = st.GetBankConnection(context.Background(), conn.ID)
	assert.Error(t, err)

	_, err = svc.DisconnectBank(testContext("user-1"), connect.NewRequest(&DisconnectBankRequest{}))
	requireCode(t, err, connect.CodeInvalidArgument)
}
