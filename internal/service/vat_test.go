package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/hmrc"
	"github.com/reelin/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVRN = "123456789"

var (
	q1Start = date(2025, 4, 1)
	q1End   = time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)
)

// fakeHMRC serves the token endpoint and the VAT API for testVRN.
type fakeHMRC struct {
	mu        sync.Mutex
	submitted []map[string]any
}

func newFakeHMRC(t *testing.T) (*httptest.Server, *fakeHMRC) {
	t.Helper()
	f := &fakeHMRC{}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") == "bad-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"hmrc-access","refresh_token":"hmrc-refresh","token_type":"bearer","expires_in":14400}`))
	})
	mux.HandleFunc("/organisations/vat/"+testVRN+"/obligations", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"obligations":[
			{"start":"2025-04-01","end":"2025-06-30","due":"2025-08-07","status":"F","periodKey":"25A1","received":"2025-07-20"},
			{"start":"2025-07-01","end":"2025-09-30","due":"2025-11-07","status":"O","periodKey":"25A2"}]}`))
	})
	mux.HandleFunc("/organisations/vat/"+testVRN+"/returns", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)
		if payload["periodKey"] == "DUPE" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"code":"DUPLICATE_SUBMISSION","message":"The VAT return was already submitted for the given period."}`))
			return
		}
		f.mu.Lock()
		f.submitted = append(f.submitted, payload)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"processingDate":"2025-08-01T12:00:00.000Z","paymentIndicator":"BANK","formBundleNumber":"256660290587","chargeRefNumber":"aCxFaNx0FZsCvyWF"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, f
}

func (f *fakeHMRC) payloads() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.submitted...)
}

// withHMRC attaches an HMRC client backed by a fake server.
func withHMRC(t *testing.T, svc *ReelinService) *fakeHMRC {
	t.Helper()
	srv, fake := newFakeHMRC(t)
	svc.SetHMRCClient(hmrc.NewClient(hmrc.Config{
		ClientID: "id", ClientSecret: "secret", RedirectURL: "https://reelin.test/hmrc/callback", BaseURL: srv.URL,
	}, srv.Client()))
	return fake
}

// connectHMRC runs the consent flow for uid.
func connectHMRC(t *testing.T, svc *ReelinService, uid string) {
	t.Helper()
	ctx := testContext(uid)
	start, err := svc.StartHMRCConnection(ctx, connect.NewRequest(&StartHMRCConnectionRequest{VRN: "123 456 789"}))
	require.NoError(t, err)
	_, err = svc.CompleteHMRCConnection(ctx, connect.NewRequest(&CompleteHMRCConnectionRequest{Code: "auth-code", State: start.Msg.State}))
	require.NoError(t, err)
}

// seedQuarter stores a quarter of mixed transactions for uid.
func seedQuarter(t *testing.T, svc *ReelinService, uid string) {
	t.Helper()
	st := svc.store
	seedTransaction(t, st, &model.Transaction{UserID: uid, Direction: model.DirectionIncome, Category: model.CategorySales, AmountPence: 100000, VATRate: 20, Description: "Invoice 1", Date: date(2025, 4, 15)})
	seedTransaction(t, st, &model.Transaction{UserID: uid, Direction: model.DirectionExpense, Category: model.CategoryOffice, AmountPence: 50000, VATRate: 20, BusinessUsePercent: 50, Description: "Laptop", Date: date(2025, 5, 2)})
	seedTransaction(t, st, &model.Transaction{UserID: uid, Direction: model.DirectionExpense, Category: model.CategoryPersonal, AmountPence: 10000, VATRate: 20, Description: "Holiday", Date: date(2025, 5, 3)})
	seedTransaction(t, st, &model.Transaction{UserID: uid, Direction: model.DirectionIncome, Category: model.CategorySales, AmountPence: 70000, VATRate: 20, Description: "Invoice 2", Date: date(2025, 7, 1)})
	seedTransaction(t, st, &model.Transaction{UserID: "someone-else", Direction: model.DirectionIncome, AmountPence: 99999, VATRate: 20, Description: "x", Date: date(2025, 5, 1)})
}

func TestPrepareVATReturn(t *testing.T) {
	svc, _ := newTestService()
	seedQuarter(t, svc, "user-1")

	resp, err := svc.PrepareVATReturn(testContext("user-1"), connect.NewRequest(&PrepareVATReturnRequest{PeriodStart: q1Start, PeriodEnd: q1End}))
	require.NoError(t, err)

	ret := resp.Msg.Return
	assert.Equal(t, 2, resp.Msg.TransactionCount)
	assert.Equal(t, int64(20000), ret.VATDueSales)
	assert.Equal(t, int64(20000), ret.TotalVATDue)
	assert.Equal(t, int64(5000), ret.VATReclaimedCurrPeriod)
	assert.Equal(t, int64(15000), ret.NetVATDue)
	assert.Equal(t, int64(100000), ret.TotalValueSalesExVAT)
	assert.Equal(t, int64(25000), ret.TotalValuePurchasesExVAT)
	assert.Len(t, ret.Breakdown, 2)
}

func TestPrepareVATReturn_Repayment(t *testing.T) {
	svc, st := newTestService()
	seedTransaction(t, st, &model.Transaction{UserID: "user-1", Direction: model.DirectionIncome, AmountPence: 10000, VATRate: 0, Description: "Zero-rated", Date: date(2025, 4, 10)})
	seedTransaction(t, st, &model.Transaction{UserID: "user-1", Direction: model.DirectionExpense, Category: model.CategoryCostOfGoods, AmountPence: 40000, VATRate: 20, Description: "Stock", Date: date(2025, 4, 11)})

	resp, err := svc.PrepareVATReturn(testContext("user-1"), connect.NewRequest(&PrepareVATReturnRequest{PeriodStart: q1Start, PeriodEnd: q1End}))
	require.NoError(t, err)
	assert.Equal(t, int64(-8000), resp.Msg.Return.NetVATDue)
	assert.True(t, resp.Msg.Return.IsRepayment())
}

func TestPrepareVATReturn_InvalidPeriod(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.PrepareVATReturn(testContext("user-1"), connect.NewRequest(&PrepareVATReturnRequest{PeriodStart: q1End, PeriodEnd: q1Start}))
	requireCode(t, err, connect.CodeInvalidArgument)

	_, err = svc.PrepareVATReturn(testContext("user-1"), connect.NewRequest(&PrepareVATReturnRequest{PeriodStart: q1Start}))
	requireCode(t, err, connect.CodeInvalidArgument)
}

func TestHMRCConnection(t *testing.T) {
	svc, st := newTestService()
	ctx := testContext("user-1")

	_, err := svc.StartHMRCConnection(ctx, connect.NewRequest(&StartHMRCConnectionRequest{VRN: testVRN}))
	requireCode(t, err, connect.CodeUnavailable)

	withHMRC(t, svc)
	_, err = svc.StartHMRCConnection(ctx, connect.NewRequest(&StartHMRCConnectionRequest{VRN: "GB12345"}))
	requireCode(t, err, connect.CodeInvalidArgument)

	start, err := svc.StartHMRCConnection(ctx, connect.NewRequest(&StartHMRCConnectionRequest{VRN: "123 456 789"}))
	require.NoError(t, err)
	assert.Contains(t, start.Msg.AuthURL, "/oauth/authorize")
	assert.Contains(t, start.Msg.AuthURL, "state="+start.Msg.State)

	// Another user cannot complete this consent.
	_, err = svc.CompleteHMRCConnection(testContext("user-2"), connect.NewRequest(&CompleteHMRCConnectionRequest{Code: "auth-code", State: start.Msg.State}))
	requireCode(t, err, connect.CodeInvalidArgument)

	_, err = svc.CompleteHMRCConnection(ctx, connect.NewRequest(&CompleteHMRCConnectionRequest{Code: "bad-code", State: start.Msg.State}))
	requireCode(t, err, connect.CodeUnauthenticated)

	done, err := svc.CompleteHMRCConnection(ctx, connect.NewRequest(&CompleteHMRCConnectionRequest{Code: "auth-code", State: start.Msg.State}))
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionActive, done.Msg.Connection.Status)
	assert.Equal(t, testVRN, done.Msg.Connection.VRN)

	user, err := st.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, user.VATRegistered)
	assert.Equal(t, testVRN, user.VRN)

	// The state is single use.
	_, err = svc.CompleteHMRCConnection(ctx, connect.NewRequest(&CompleteHMRCConnectionRequest{Code: "auth-code", State: start.Msg.State}))
	requireCode(t, err, connect.CodeInvalidArgument)
}

func TestHMRCConnection_ReconnectKeepsActiveToken(t *testing.T) {
	svc, st := newTestService()
	withHMRC(t, svc)
	connectHMRC(t, svc, "user-1")
	ctx := testContext("user-1")

	// An abandoned reconnect leaves the active connection usable.
	_, err := svc.StartHMRCConnection(ctx, connect.NewRequest(&StartHMRCConnectionRequest{VRN: "987654321"}))
	require.NoError(t, err)

	conn, err := st.GetHMRCConnection(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionActive, conn.Status)
	assert.Equal(t, testVRN, conn.VRN)
	assert.Equal(t, "hmrc-access", conn.Token.AccessToken)

	obligations, err := svc.GetVATObligations(proContext("user-1"), connect.NewRequest(&GetVATObligationsRequest{From: q1Start, To: q1End}))
	require.NoError(t, err)
	assert.NotEmpty(t, obligations.Msg.Obligations)

	// Completing a later attempt switches to the new VRN.
	start, err := svc.StartHMRCConnection(ctx, connect.NewRequest(&StartHMRCConnectionRequest{VRN: "987 654 321"}))
	require.NoError(t, err)
	done, err := svc.CompleteHMRCConnection(ctx, connect.NewRequest(&CompleteHMRCConnectionRequest{Code: "auth-code", State: start.Msg.State}))
	require.NoError(t, err)
	assert.Equal(t, "987654321", done.Msg.Connection.VRN)
	assert.Equal(t, model.ConnectionActive, done.Msg.Connection.Status)
	assert.Empty(t, done.Msg.Connection.PendingVRN)
}

func TestSubmitVATReturn(t *testing.T) {
	svc, _ := newTestService()
	fake := withHMRC(t, svc)
	seedQuarter(t, svc, "user-1")
	connectHMRC(t, svc, "user-1")
	ctx := proContext("user-1")

	req := &SubmitVATReturnRequest{PeriodKey: "25A1", PeriodStart: q1Start, PeriodEnd: q1End, Finalised: true}
	resp, err := svc.SubmitVATReturn(ctx, connect.NewRequest(req))
	require.NoError(t, err)

	sub := resp.Msg.Submission
	assert.Equal(t, "256660290587", sub.FormBundleNumber)
	assert.Equal(t, testVRN, sub.VRN)
	assert.Equal(t, int64(15000), sub.Return.NetVATDue)
	assert.Equal(t, testNow, sub.SubmittedAt)

	payloads := fake.payloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, 150.0, payloads[0]["netVatDue"])
	assert.Equal(t, 1000.0, payloads[0]["totalValueSalesExVAT"])
	assert.Equal(t, true, payloads[0]["finalised"])

	list, err := svc.ListVATSubmissions(ctx, connect.NewRequest(&ListVATSubmissionsRequest{}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Submissions, 1)

	// Resubmitting the same period never reaches HMRC.
	_, err = svc.SubmitVATReturn(ctx, connect.NewRequest(req))
	requireCode(t, err, connect.CodeAlreadyExists)
	assert.Len(t, fake.payloads(), 1)
}

func TestSubmitVATReturn_HMRCDuplicate(t *testing.T) {
	svc, _ := newTestService()
	withHMRC(t, svc)
	connectHMRC(t, svc, "user-1")

	_, err := svc.SubmitVATReturn(proContext("user-1"), connect.NewRequest(&SubmitVATReturnRequest{
		PeriodKey: "DUPE", PeriodStart: q1Start, PeriodEnd: q1End, Finalised: true,
	}))
	requireCode(t, err, connect.CodeAlreadyExists)
}

func TestSubmitVATReturn_Preconditions(t *testing.T) {
	valid := &SubmitVATReturnRequest{PeriodKey: "25A1", PeriodStart: q1Start, PeriodEnd: q1End, Finalised: true}

	t.Run("free tier", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.SubmitVATReturn(testContext("user-1"), connect.NewRequest(valid))
		requireCode(t, err, connect.CodePermissionDenied)
	})
	t.Run("stored pro tier", func(t *testing.T) {
		svc, st := newTestService()
		require.NoError(t, st.UpdateUser(context.Background(), &model.User{ID: "user-1", SubscriptionTier: model.TierPro, SubscriptionStatus: model.StatusActive}))
		_, err := svc.SubmitVATReturn(testContext("user-1"), connect.NewRequest(valid))
		// Past the Pro gate, stopped by the missing integration.
		requireCode(t, err, connect.CodeUnavailable)
	})
	t.Run("not finalised", func(t *testing.T) {
		svc, _ := newTestService()
		req := *valid
		req.Finalised = false
		_, err := svc.SubmitVATReturn(proContext("user-1"), connect.NewRequest(&req))
		requireCode(t, err, connect.CodeInvalidArgument)
	})
	t.Run("missing period key", func(t *testing.T) {
		svc, _ := newTestService()
		req := *valid
		req.PeriodKey = " "
		_, err := svc.SubmitVATReturn(proContext("user-1"), connect.NewRequest(&req))
		requireCode(t, err, connect.CodeInvalidArgument)
	})
	t.Run("not connected", func(t *testing.T) {
		svc, _ := newTestService()
		withHMRC(t, svc)
		_, err := svc.SubmitVATReturn(proContext("user-1"), connect.NewRequest(valid))
		requireCode(t, err, connect.CodeFailedPrecondition)
	})
	t.Run("revoked connection", func(t *testing.T) {
		svc, st := newTestService()
		withHMRC(t, svc)
		require.NoError(t, st.UpsertHMRCConnection(context.Background(), &model.HMRCConnection{UserID: "user-1", VRN: testVRN, Status: model.ConnectionRevoked}))
		_, err := svc.SubmitVATReturn(proContext("user-1"), connect.NewRequest(valid))
		requireCode(t, err, connect.CodeFailedPrecondition)
	})
}

func TestGetVATObligations(t *testing.T) {
	svc, _ := newTestService()
	withHMRC(t, svc)
	connectHMRC(t, svc, "user-1")
	ctx := testContext("user-1")

	_, err := svc.GetVATObligations(ctx, connect.NewRequest(&GetVATObligationsRequest{Status: "X"}))
	requireCode(t, err, connect.CodeInvalidArgument)

	// Without open status both dates are required.
	_, err = svc.GetVATObligations(ctx, connect.NewRequest(&GetVATObligationsRequest{}))
	requireCode(t, err, connect.CodeInvalidArgument)

	resp, err := svc.GetVATObligations(ctx, connect.NewRequest(&GetVATObligationsRequest{From: q1Start, To: date(2025, 12, 31)}))
	require.NoError(t, err)
	assert.Equal(t, testVRN, resp.Msg.VRN)
	require.Len(t, resp.Msg.Obligations, 2)

	first := resp.Msg.Obligations[0]
	assert.Equal(t, "25A1", first.PeriodKey)
	assert.Equal(t, date(2025, 8, 7), first.Due)
	assert.Equal(t, date(2025, 7, 20), first.Received)
	assert.True(t, resp.Msg.Obligations[1].Received.IsZero())
}
