package categorise

import "fmt"

// ErrorCode identifies a categorisation failure.
type ErrorCode string

const (
	ErrNotConfigured  ErrorCode = "NOT_CONFIGURED"
	ErrLLMUnavailable ErrorCode = "LLM_UNAVAILABLE"
	ErrLLMRateLimited ErrorCode = "LLM_RATE_LIMITED"
	ErrLLMBadResponse ErrorCode = "LLM_BAD_RESPONSE"
	ErrLLMRejected    ErrorCode = "LLM_REJECTED"
)

// Error is a structured categorisation error. Retryable drives WithRetry.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
