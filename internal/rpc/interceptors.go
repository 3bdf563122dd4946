package rpc

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/sentryutil"
	"go.uber.org/zap"
)

// ErrorReporter receives unexpected errors. sentryutil.CaptureError satisfies it.
type ErrorReporter func(err error, tags map[string]string)

// reportable codes are server faults rather than caller mistakes.
var reportable = map[connect.Code]bool{
	connect.CodeInternal:    true,
	connect.CodeUnknown:     true,
	connect.CodeDataLoss:    true,
	connect.CodeUnavailable: true,
}

// LoggingInterceptor logs each call and reports server faults.
// A nil reporter sends them to Sentry.
func LoggingInterceptor(report ErrorReporter) connect.UnaryInterceptorFunc {
	if report == nil {
		report = sentryutil.CaptureError
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			procedure := req.Spec().Procedure
			fields := []zap.Field{
				zap.String("procedure", procedure),
				zap.Duration("elapsed", time.Since(start)),
			}
			if err == nil {
				logging.L().Debug("rpc ok", fields...)
				return resp, nil
			}

			code := connect.CodeOf(err)
			fields = append(fields, zap.String("code", code.String()), zap.Error(err))
			if reportable[code] {
				logging.L().Error("rpc failed", fields...)
				report(err, map[string]string{"procedure": procedure, "code": code.String()})
			} else {
				logging.L().Info("rpc rejected", fields...)
			}
			return resp, err
		}
	}
}

// RecoverInterceptor turns a handler panic into CodeInternal.
func RecoverInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					logging.L().Error("rpc panic",
						zap.String("procedure", req.Spec().Procedure),
						zap.Any("panic", r),
						zap.ByteString("stack", debug.Stack()))
					resp, err = nil, connect.NewError(connect.CodeInternal, errors.New("internal error"))
				}
			}()
			return next(ctx, req)
		}
	}
}

// TimeoutInterceptor bounds each call when the client sent no deadline.
func TimeoutInterceptor(d time.Duration) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if _, ok := ctx.Deadline(); ok || d <= 0 {
				return next(ctx, req)
			}
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// CodeForHTTPStatus maps an upstream provider's HTTP status to a Connect code.
func CodeForHTTPStatus(status int) connect.Code {
	switch {
	case status == 401:
		return connect.CodeUnauthenticated
	case status == 403:
		return connect.CodePermissionDenied
	case status == 404:
		return connect.CodeNotFound
	case status == 409 || status == 422:
		return connect.CodeFailedPrecondition
	case status == 429:
		return connect.CodeResourceExhausted
	case status >= 500:
		return connect.CodeUnavailable
	case status >= 400:
		return connect.CodeInvalidArgument
	default:
		return connect.CodeUnknown
	}
}
