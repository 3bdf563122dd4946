package hmrc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/rpc"
	"golang.org/x/oauth2"
)

// APIError is an error response from HMRC.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Errors     []FieldError
	Cause      error
}

// FieldError is one entry of HMRC's "errors" array.
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("hmrc error %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	for _, fe := range e.Errors {
		msg += fmt.Sprintf("; %s %s", fe.Code, fe.Path)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// ConnectError converts the failure for an RPC response. Duplicate submissions are
// reported as AlreadyExists.
func (e *APIError) ConnectError() *connect.Error {
	if e.Code == "DUPLICATE_SUBMISSION" {
		return connect.NewError(connect.CodeAlreadyExists, e)
	}
	return connect.NewError(rpc.CodeForHTTPStatus(e.StatusCode), e)
}

func parseAPIError(status int, body []byte) *APIError {
	var payload struct {
		Code    string       `json:"code"`
		Message string       `json:"message"`
		Errors  []FieldError `json:"errors"`
	}
	e := &APIError{StatusCode: status}
	if json.Unmarshal(body, &payload) == nil && payload.Code != "" {
		e.Code = payload.Code
		e.Message = payload.Message
		e.Errors = payload.Errors
		return e
	}
	e.Message = http.StatusText(status)
	return e
}

func wrapOAuthError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return &APIError{StatusCode: http.StatusBadGateway, Message: "token request failed", Cause: err}
	}
	status := http.StatusBadGateway
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	if re.ErrorCode == "invalid_grant" || status == http.StatusBadRequest {
		status = http.StatusUnauthorized
	}
	return &APIError{StatusCode: status, Code: re.ErrorCode, Message: "token request failed", Cause: err}
}
