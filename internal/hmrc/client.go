// Package hmrc is a client for the Making Tax Digital VAT API.
package hmrc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/reelin/backend/internal/model"
	"golang.org/x/oauth2"
)

const acceptHeader = "application/vnd.hmrc.1.0+json"

// Scopes requested during consent.
var Scopes = []string{"read:vat", "write:vat"}

var vrnPattern = regexp.MustCompile(`^\d{9}$`)

// ValidVRN reports whether s is a nine-digit VAT registration number.
func ValidVRN(s string) bool {
	return vrnPattern.MatchString(s)
}

// Config holds the application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	BaseURL      string // https://test-api.service.hmrc.gov.uk or https://api.service.hmrc.gov.uk
}

// Client talks to HMRC.
type Client struct {
	oauth   *oauth2.Config
	baseURL string
	http    *http.Client
}

// NewClient creates a client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth/authorize",
				TokenURL:  base + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		baseURL: base,
		http:    httpClient,
	}
}

// AuthCodeURL returns the HMRC consent URL.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.oauth.Exchange(c.withHTTP(ctx), code)
	if err != nil {
		return nil, wrapOAuthError(err)
	}
	return tok, nil
}

// Session is an authorised connection for one user. Persist Token() after use.
type Session struct {
	client *Client
	src    oauth2.TokenSource
	http   *http.Client
}

// Session creates an authorised session from a stored token.
func (c *Client) Session(ctx context.Context, tok model.OAuthToken) *Session {
	src := c.oauth.TokenSource(c.withHTTP(ctx), tok.OAuth2())
	return &Session{client: c, src: src, http: oauth2.NewClient(c.withHTTP(ctx), src)}
}

// Token returns the current, possibly refreshed, token.
func (s *Session) Token() (model.OAuthToken, error) {
	tok, err := s.src.Token()
	if err != nil {
		return model.OAuthToken{}, wrapOAuthError(err)
	}
	return model.TokenFromOAuth2(tok), nil
}

// ObligationStatus filters obligations: "O" open, "F" fulfilled.
type ObligationStatus string

const (
	ObligationOpen      ObligationStatus = "O"
	ObligationFulfilled ObligationStatus = "F"
)

// Obligation is a VAT period HMRC expects a return for.
type Obligation struct {
	PeriodKey string           `json:"periodKey"`
	Start     string           `json:"start"`
	End       string           `json:"end"`
	Due       string           `json:"due"`
	Status    ObligationStatus `json:"status"`
	Received  string           `json:"received,omitempty"`
}

// Obligations lists the VAT obligations in [from, to]. An empty status returns both.
func (s *Session) Obligations(ctx context.Context, vrn string, from, to time.Time, status ObligationStatus) ([]Obligation, error) {
	if !ValidVRN(vrn) {
		return nil, &APIError{StatusCode: http.StatusBadRequest, Code: "VRN_INVALID", Message: "VRN must be nine digits"}
	}
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	// HMRC requires both dates unless filtering by open status
	if !from.IsZero() && !to.IsZero() {
		q.Set("from", from.Format("2006-01-02"))
		q.Set("to", to.Format("2006-01-02"))
	}

	var out struct {
		Obligations []Obligation `json:"obligations"`
	}
	path := "/organisations/vat/" + vrn + "/obligations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	if err := s.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Obligations, nil
}

// Receipt is HMRC's acknowledgement of a submitted return.
type Receipt struct {
	ProcessingDate   string `json:"processingDate"`
	PaymentIndicator string `json:"paymentIndicator,omitempty"`
	FormBundleNumber string `json:"formBundleNumber"`
	ChargeRefNumber  string `json:"chargeRefNumber,omitempty"`
}

// SubmitReturn sends a finalised return. Submissions are not retried: a duplicate is
// rejected by HMRC and must be surfaced to the user.
func (s *Session) SubmitReturn(ctx context.Context, vrn string, payload VATReturnPayload) (*Receipt, error) {
	if !ValidVRN(vrn) {
		return nil, &APIError{StatusCode: http.StatusBadRequest, Code: "VRN_INVALID", Message: "VRN must be nine digits"}
	}
	if !payload.Finalised {
		return nil, &APIError{StatusCode: http.StatusForbidden, Code: "NOT_FINALISED", Message: "the return must be declared final"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal return: %w", err)
	}
	var receipt Receipt
	if err := s.do(ctx, http.MethodPost, "/organisations/vat/"+vrn+"/returns", body, http.StatusCreated, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (s *Session) do(ctx context.Context, method, path string, body []byte, want int, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.client.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	setFraudPreventionHeaders(req)

	resp, err := s.http.Do(req)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return wrapOAuthError(err)
		}
		return &APIError{StatusCode: http.StatusBadGateway, Message: "HMRC request failed", Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != want {
		return parseAPIError(resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// setFraudPreventionHeaders sets the server-side subset of the mandatory headers.
func setFraudPreventionHeaders(req *http.Request) {
	req.Header.Set("Gov-Client-Connection-Method", "WEB_APP_VIA_SERVER")
	req.Header.Set("Gov-Vendor-Product-Name", "Reelin")
	req.Header.Set("Gov-Vendor-Version", "reelin-backend=1.0.0")
}

func (c *Client) withHTTP(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}
