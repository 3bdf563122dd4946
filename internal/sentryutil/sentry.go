// Package sentryutil wraps sentry-go for error reporting.
package sentryutil

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/reelin/backend/internal/logging"
	"go.uber.org/zap"
)

// Init configures the Sentry client. An empty DSN leaves reporting disabled.
func Init(dsn, environment, release string) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		TracesSampleRate: 0.2,
		EnableTracing:    dsn != "",
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		logging.L().Warn("sentry init failed", zap.Error(err))
		return
	}
	if dsn == "" {
		logging.L().Info("SENTRY_DSN empty, error tracking disabled")
	} else {
		logging.L().Info("sentry initialised", zap.String("environment", environment))
	}
}

// scrubEvent drops user identity and request bodies before an event leaves the process.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	if event.Request != nil {
		event.Request.Data = ""
	}
	return event
}

// Flush waits for buffered events to be sent.
func Flush() { sentry.Flush(2 * time.Second) }

// CaptureError reports err with the given tags.
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// CaptureMessage reports a message at warning level.
func CaptureMessage(msg string, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelWarning)
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureMessage(msg)
	})
}
