package banking

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/rpc"
	"golang.org/x/oauth2"
)

// ProviderError is a failure reported by the banking-data provider.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("banking provider error %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ConnectError converts the failure for an RPC response.
func (e *ProviderError) ConnectError() *connect.Error {
	return connect.NewError(rpc.CodeForHTTPStatus(e.StatusCode), e)
}

func parseProviderError(status int, body []byte) *ProviderError {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	pe := &ProviderError{StatusCode: status}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		pe.Code = payload.Error
		pe.Message = payload.ErrorDescription
		return pe
	}
	pe.Message = http.StatusText(status)
	return pe
}

// wrapOAuthError turns token endpoint failures into ProviderErrors. A rejected grant
// means the user must reconnect, so it is reported as 401.
func wrapOAuthError(op string, err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return &ProviderError{StatusCode: http.StatusBadGateway, Message: op + " failed", Cause: err}
	}
	status := http.StatusBadGateway
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	if re.ErrorCode == "invalid_grant" || status == http.StatusBadRequest {
		status = http.StatusUnauthorized
	}
	return &ProviderError{StatusCode: status, Code: re.ErrorCode, Message: op + " failed", Cause: err}
}
