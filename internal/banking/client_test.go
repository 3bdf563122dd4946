package banking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	srv       *httptest.Server
	refreshes atomic.Int32
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{}
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.PostForm.Get("code") == "bad" || r.PostForm.Get("refresh_token") == "revoked":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		case r.PostForm.Get("grant_type") == "refresh_token":
			fp.refreshes.Add(1)
			_, _ = w.Write([]byte(`{"access_token":"fresh","refresh_token":"r2","token_type":"Bearer","expires_in":3600}`))
		default:
			_, _ = w.Write([]byte(`{"access_token":"access","refresh_token":"r1","token_type":"Bearer","expires_in":3600}`))
		}
	})
	mux.HandleFunc("/data/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"account_id": "acc-1", "display_name": "Business", "currency": "GBP"}},
		})
	})
	mux.HandleFunc("/data/v1/accounts/acc-1/transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-04-06T00:00:00Z", r.URL.Query().Get("from"))
		_, _ = w.Write([]byte(`{"results":[
			{"transaction_id":"t1","timestamp":"2025-05-01T10:00:00Z","description":"SCREWFIX 123","amount":-42.5,"currency":"GBP","transaction_type":"DEBIT","merchant_name":"Screwfix"},
			{"transaction_id":"t2","timestamp":"2025-05-02T10:00:00Z","description":"INVOICE 7","amount":1200,"currency":"GBP","transaction_type":"CREDIT"}
		]}`))
	})
	mux.HandleFunc("/data/v1/accounts/busy/transactions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate_limited","error_description":"slow down"}`))
	})
	fp.srv = httptest.NewServer(mux)
	t.Cleanup(fp.srv.Close)
	return fp
}

func (fp *fakeProvider) client() *Client {
	return NewClient(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "https://app.example/callback",
		AuthURL:      fp.srv.URL,
		APIURL:       fp.srv.URL,
	}, fp.srv.Client())
}

func validToken() model.OAuthToken {
	return model.OAuthToken{AccessToken: "access", RefreshToken: "r1", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
}

func TestAuthCodeURL(t *testing.T) {
	fp := newFakeProvider(t)
	u, err := url.Parse(fp.client().AuthCodeURL("state-123"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Contains(t, q.Get("scope"), "transactions")
	assert.Contains(t, q.Get("scope"), "offline_access")
}

func TestExchange(t *testing.T) {
	fp := newFakeProvider(t)
	c := fp.client()

	tok, err := c.Exchange(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "access", tok.AccessToken)
	assert.Equal(t, "r1", tok.RefreshToken)

	_, err = c.Exchange(context.Background(), "bad")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Equal(t, "invalid_grant", pe.Code)
	assert.Equal(t, connect.CodeUnauthenticated, pe.ConnectError().Code())
}

func TestSession_Accounts(t *testing.T) {
	fp := newFakeProvider(t)
	s := fp.client().Session(context.Background(), validToken())

	accounts, err := s.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "acc-1", accounts[0].AccountID)
	assert.Zero(t, fp.refreshes.Load())
}

func TestSession_RefreshesExpiredToken(t *testing.T) {
	fp := newFakeProvider(t)
	tok := validToken()
	tok.Expiry = time.Now().Add(-time.Hour)
	s := fp.client().Session(context.Background(), tok)

	_, err := s.Accounts(context.Background())
	require.NoError(t, err)

	current, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", current.AccessToken)
	assert.Equal(t, "r2", current.RefreshToken)
	assert.Equal(t, int32(1), fp.refreshes.Load())
}

func TestSession_RevokedRefreshToken(t *testing.T) {
	fp := newFakeProvider(t)
	tok := validToken()
	tok.Expiry = time.Now().Add(-time.Hour)
	tok.RefreshToken = "revoked"
	s := fp.client().Session(context.Background(), tok)

	_, err := s.Accounts(context.Background())
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
}

func TestSession_Transactions(t *testing.T) {
	fp := newFakeProvider(t)
	s := fp.client().Session(context.Background(), validToken())

	from := time.Date(2025, 4, 6, 0, 0, 0, 0, time.UTC)
	txns, err := s.Transactions(context.Background(), "acc-1", from, time.Time{})
	require.NoError(t, err)
	require.Len(t, txns, 2)

	out := ToTransaction("user-1", "acc-1", txns[0])
	assert.Equal(t, model.DirectionExpense, out.Direction)
	assert.Equal(t, int64(4250), out.AmountPence)
	assert.Equal(t, "Screwfix", out.Merchant)
	assert.Equal(t, model.SourceBank, out.Source)
	assert.Equal(t, "2025-26", out.TaxYear)
	assert.Equal(t, "t1", out.ProviderTransactionID)
	assert.True(t, out.NeedsReview)

	in := ToTransaction("user-1", "acc-1", txns[1])
	assert.Equal(t, model.DirectionIncome, in.Direction)
	assert.Equal(t, int64(120000), in.AmountPence)
}

func TestSession_ProviderError(t *testing.T) {
	fp := newFakeProvider(t)
	s := fp.client().Session(context.Background(), validToken())

	_, err := s.Transactions(context.Background(), "busy", time.Time{}, time.Time{})
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "rate_limited", pe.Code)
	assert.Equal(t, "slow down", pe.Message)
	assert.Equal(t, connect.CodeResourceExhausted, pe.ConnectError().Code())
}
