package sentryutil

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
)

func TestScrubEvent(t *testing.T) {
	event := &sentry.Event{
		User:    sentry.User{ID: "user-1", Email: "sam@example.com"},
		Request: &sentry.Request{URL: "/reelin.v1.ReelinService/CreateTransaction", Data: `{"amountPence":1200}`},
	}

	got := scrubEvent(event, nil)

	assert.Equal(t, sentry.User{}, got.User)
	assert.Empty(t, got.Request.Data)
	assert.Equal(t, "/reelin.v1.ReelinService/CreateTransaction", got.Request.URL)
}

func TestScrubEvent_NoRequest(t *testing.T) {
	got := scrubEvent(&sentry.Event{Message: "boom"}, nil)
	assert.Nil(t, got.Request)
	assert.Equal(t, "boom", got.Message)
}

func TestCaptureWithoutDSN(t *testing.T) {
	Init("", "test", "dev")
	defer Flush()

	assert.NotPanics(t, func() {
		CaptureError(nil, nil)
		CaptureError(errors.New("store unavailable"), map[string]string{"procedure": "GetProfile"})
		CaptureMessage("webhook ignored", map[string]string{"event": "invoice.created"})
	})
}
