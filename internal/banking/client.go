// Package banking talks to the open-banking data provider: the OAuth2 consent flow,
// account listing and transaction feeds.
package banking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/rules"
	"golang.org/x/oauth2"
)

// ProviderName is recorded on every BankConnection.
const ProviderName = "truelayer"

// Scopes requested during consent.
var Scopes = []string{"info", "accounts", "balance", "transactions", "offline_access"}

// Config holds the provider credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string // consent host, e.g. https://auth.truelayer.com
	APIURL       string // data API host, e.g. https://api.truelayer.com
}

// Client is a banking-data provider client.
type Client struct {
	oauth  *oauth2.Config
	apiURL string
	http   *http.Client
}

// NewClient creates a client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	authURL := strings.TrimSuffix(cfg.AuthURL, "/")
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL + "/",
				TokenURL:  authURL + "/connect/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL: strings.TrimSuffix(cfg.APIURL, "/"),
		http:   httpClient,
	}
}

// AuthCodeURL returns the consent URL the user is sent to.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("providers", "uk-ob-all uk-oauth-all"))
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.oauth.Exchange(c.withHTTP(ctx), code)
	if err != nil {
		return nil, wrapOAuthError("exchange code", err)
	}
	return tok, nil
}

// Session is an authorised view of one connection. The token may be refreshed
// during calls; persist Token() afterwards.
type Session struct {
	client *Client
	src    oauth2.TokenSource
	http   *http.Client
}

// Session creates an authorised session from a stored token.
func (c *Client) Session(ctx context.Context, tok model.OAuthToken) *Session {
	src := c.oauth.TokenSource(c.withHTTP(ctx), tok.OAuth2())
	return &Session{
		client: c,
		src:    src,
		http:   oauth2.NewClient(c.withHTTP(ctx), src),
	}
}

// Token returns the current, possibly refreshed, token.
func (s *Session) Token() (model.OAuthToken, error) {
	tok, err := s.src.Token()
	if err != nil {
		return model.OAuthToken{}, wrapOAuthError("refresh token", err)
	}
	return model.TokenFromOAuth2(tok), nil
}

// Account is a bank account visible through the connection.
type Account struct {
	AccountID   string `json:"account_id"`
	AccountType string `json:"account_type"`
	DisplayName string `json:"display_name"`
	Currency    string `json:"currency"`
}

// ProviderTransaction is one entry in an account's transaction feed.
// Amount is in pounds; negative amounts are money out.
type ProviderTransaction struct {
	TransactionID   string    `json:"transaction_id"`
	Timestamp       time.Time `json:"timestamp"`
	Description     string    `json:"description"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	TransactionType string    `json:"transaction_type"`
	MerchantName    string    `json:"merchant_name"`
}

type resultsEnvelope[T any] struct {
	Results []T    `json:"results"`
	Status  string `json:"status"`
}

// Accounts lists the connection's accounts.
func (s *Session) Accounts(ctx context.Context) ([]Account, error) {
	var env resultsEnvelope[Account]
	if err := s.get(ctx, "/data/v1/accounts", nil, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

// Transactions lists an account's transactions in [from, to].
func (s *Session) Transactions(ctx context.Context, accountID string, from, to time.Time) ([]ProviderTransaction, error) {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("from", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		q.Set("to", to.UTC().Format(time.RFC3339))
	}
	var env resultsEnvelope[ProviderTransaction]
	path := "/data/v1/accounts/" + url.PathEscape(accountID) + "/transactions"
	if err := s.get(ctx, path, q, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

func (s *Session) get(ctx context.Context, path string, q url.Values, out any) error {
	u := s.client.apiURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return wrapOAuthError("refresh token", err)
		}
		return &ProviderError{StatusCode: http.StatusBadGateway, Message: "provider request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return parseProviderError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// withHTTP makes the oauth2 package use the client's http.Client.
func (c *Client) withHTTP(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// ToTransaction converts a feed entry into an uncategorised transaction.
func ToTransaction(userID, accountID string, pt ProviderTransaction) *model.Transaction {
	direction := model.DirectionExpense
	if pt.Amount > 0 || (pt.Amount == 0 && strings.EqualFold(pt.TransactionType, "CREDIT")) {
		direction = model.DirectionIncome
	}
	desc := strings.TrimSpace(pt.Description)
	if desc == "" {
		desc = pt.MerchantName
	}
	return &model.Transaction{
		UserID:                userID,
		Direction:             direction,
		AmountPence:           int64(math.Round(math.Abs(pt.Amount) * 100)),
		Description:           desc,
		Merchant:              strings.TrimSpace(pt.MerchantName),
		Date:                  pt.Timestamp.UTC(),
		BusinessUsePercent:    100,
		Source:                model.SourceBank,
		TaxYear:               rules.TaxYearOf(pt.Timestamp),
		ProviderTransactionID: pt.TransactionID,
		ProviderAccountID:     accountID,
		NeedsReview:           true,
	}
}
