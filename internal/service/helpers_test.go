package service

import (
	"context"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/store"
	"github.com/stretchr/testify/require"
)

// testNow is inside the 2025-26 tax year.
var testNow = time.Date(2025, time.September, 15, 12, 0, 0, 0, time.UTC)

// testContext creates a context with authenticated user claims for testing
func testContext(userID string) context.Context {
	return auth.WithUserClaims(context.Background(), &auth.UserClaims{
		UID:         userID,
		Email:       userID + "@test.com",
		DisplayName: "Test User",
		Verified:    true,
	})
}

// proContext is testContext with an active Pro subscription claim.
func proContext(userID string) context.Context {
	return auth.WithSubscription(testContext(userID), &auth.SubscriptionInfo{
		Tier:   model.TierPro,
		Status: model.StatusActive,
	})
}

// newTestService returns a service over a fresh memory store with a fixed clock.
func newTestService() (*ReelinService, *store.MemoryStore) {
	st := store.NewMemoryStore()
	svc := NewReelinService(st)
	svc.SetClock(func() time.Time { return testNow })
	return svc, st
}

// tickingClock starts at testNow and moves on a second per call, so records logged in
// sequence get distinct creation times.
func tickingClock() func() time.Time {
	now := testNow
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

// requireCode asserts err is a Connect error with the given code.
func requireCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, connect.CodeOf(err), "error: %v", err)
}

// seedTransaction stores a transaction directly, bypassing validation.
func seedTransaction(t *testing.T, st store.Store, txn *model.Transaction) *model.Transaction {
	t.Helper()
	if txn.BusinessUsePercent == 0 && txn.Category != model.CategoryPersonal {
		txn.BusinessUsePercent = 100
	}
	if txn.TaxYear == "" {
		txn.TaxYear = "2025-26"
	}
	require.NoError(t, st.CreateTransaction(context.Background(), txn))
	return txn
}
