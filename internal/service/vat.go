package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/hmrc"
	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/rules"
	"github.com/reelin/backend/internal/store"
	"go.uber.org/zap"
)

// connectErrorer is implemented by integration errors that know their RPC code.
type connectErrorer interface {
	ConnectError() *connect.Error
}

// integrationError converts a banking or HMRC failure for the caller.
func integrationError(op string, err error) error {
	var ce connectErrorer
	if errors.As(err, &ce) {
		return ce.ConnectError()
	}
	return connect.NewError(connect.CodeUnavailable, fmt.Errorf("%s: %w", op, err))
}

func validatePeriod(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("period start and end are required")
	}
	if end.Before(start) {
		return fmt.Errorf("period end is before its start")
	}
	return nil
}

// vatRecords converts a period's transactions to VAT records. Personal spending is
// excluded and mixed-use purchases only count their business share.
func vatRecords(txns []*model.Transaction) []rules.VATRecord {
	records := make([]rules.VATRecord, 0, len(txns))
	for _, t := range txns {
		if t.Category == model.CategoryPersonal {
			continue
		}
		r := t.VATRecord()
		if t.Direction == model.DirectionExpense {
			r.AmountPence = t.Apportionment().AllowablePence
		}
		records = append(records, r)
	}
	return records
}

// assembleReturn builds the nine boxes from the caller's transactions in the period.
func (s *ReelinService) assembleReturn(ctx context.Context, uid string, start, end time.Time) (rules.VATReturn, int, error) {
	txns, err := s.allTransactions(ctx, store.TransactionFilter{UserID: uid, StartDate: &start, EndDate: &end})
	if err != nil {
		return rules.VATReturn{}, 0, err
	}
	records := vatRecords(txns)
	for _, r := range records {
		if err := rules.ValidateVATRecord(r); err != nil {
			return rules.VATReturn{}, 0, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("stored transaction: %w", err))
		}
	}
	return rules.AssembleVATReturn(records), len(records), nil
}

// PrepareVATReturn assembles the return for a period without sending it.
func (s *ReelinService) PrepareVATReturn(ctx context.Context, req *connect.Request[PrepareVATReturnRequest]) (*connect.Response[PrepareVATReturnResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if err := validatePeriod(req.Msg.PeriodStart, req.Msg.PeriodEnd); err != nil {
		return nil, invalidArgument(err)
	}
	ret, n, err := s.assembleReturn(ctx, claims.UID, req.Msg.PeriodStart, req.Msg.PeriodEnd)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&PrepareVATReturnResponse{
		PeriodStart:      req.Msg.PeriodStart,
		PeriodEnd:        req.Msg.PeriodEnd,
		Return:           ret,
		TransactionCount: n,
	}), nil
}

// activeHMRCConnection loads the caller's HMRC authorisation.
func (s *ReelinService) activeHMRCConnection(ctx context.Context, uid string) (*model.HMRCConnection, error) {
	if s.hmrc == nil {
		return nil, unavailable("HMRC integration")
	}
	conn, err := s.store.GetHMRCConnection(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("connect to HMRC first"))
		}
		return nil, auth.WrapStoreError("get HMRC connection", err)
	}
	if conn.Status != model.ConnectionActive {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("HMRC connection is %s, reconnect to continue", conn.Status))
	}
	return conn, nil
}

// saveHMRCToken persists a refreshed token, or marks the connection revoked when the
// refresh was rejected.
func (s *ReelinService) saveHMRCToken(ctx context.Context, conn *model.HMRCConnection, session *hmrc.Session, callErr error) {
	var apiErr *hmrc.APIError
	if errors.As(callErr, &apiErr) && apiErr.StatusCode == 401 {
		conn.Status = model.ConnectionRevoked
	} else if tok, err := session.Token(); err == nil {
		conn.Token = tok
	}
	if err := s.store.UpsertHMRCConnection(ctx, conn); err != nil {
		logging.L().Warn("failed to save HMRC token",
			zap.String("component", "hmrc"),
			zap.String("uid", conn.UserID),
			zap.Error(err))
	}
}

// SubmitVATReturn sends a finalised return to HMRC and records the receipt. It is
// never retried; a second submission for the same period is AlreadyExists.
func (s *ReelinService) SubmitVATReturn(ctx context.Context, req *connect.Request[SubmitVATReturnRequest]) (*connect.Response[SubmitVATReturnResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requirePro(ctx, claims.UID); err != nil {
		return nil, err
	}
	msg := req.Msg
	periodKey := strings.TrimSpace(msg.PeriodKey)
	if periodKey == "" {
		return nil, invalidArgument(fmt.Errorf("period key is required"))
	}
	if err := validatePeriod(msg.PeriodStart, msg.PeriodEnd); err != nil {
		return nil, invalidArgument(err)
	}
	if !msg.Finalised {
		return nil, invalidArgument(fmt.Errorf("the return must be declared final before submission"))
	}

	if _, err := s.store.GetVATSubmissionByPeriod(ctx, claims.UID, periodKey); err == nil {
		return nil, connect.NewError(connect.CodeAlreadyExists, fmt.Errorf("period %s has already been submitted", periodKey))
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, auth.WrapStoreError("get VAT submission", err)
	}

	conn, err := s.activeHMRCConnection(ctx, claims.UID)
	if err != nil {
		return nil, err
	}
	ret, _, err := s.assembleReturn(ctx, claims.UID, msg.PeriodStart, msg.PeriodEnd)
	if err != nil {
		return nil, err
	}

	session := s.hmrc.Session(ctx, conn.Token)
	receipt, err := session.SubmitReturn(ctx, conn.VRN, hmrc.NewVATReturnPayload(periodKey, ret, true))
	s.saveHMRCToken(ctx, conn, session, err)
	if err != nil {
		return nil, integrationError("submit VAT return", err)
	}

	sub := &model.VATSubmission{
		UserID:           claims.UID,
		VRN:              conn.VRN,
		PeriodKey:        periodKey,
		PeriodStart:      msg.PeriodStart,
		PeriodEnd:        msg.PeriodEnd,
		Return:           ret,
		ProcessingDate:   receipt.ProcessingDate,
		FormBundleNumber: receipt.FormBundleNumber,
		PaymentIndicator: receipt.PaymentIndicator,
		ChargeRefNumber:  receipt.ChargeRefNumber,
		SubmittedAt:      s.now(),
	}
	// HMRC has accepted the return, so a failed write must not look like a failed submission.
	if err := s.store.CreateVATSubmission(ctx, sub); err != nil {
		logging.L().Error("failed to record accepted VAT submission",
			zap.String("component", "hmrc"),
			zap.String("uid", claims.UID),
			zap.String("period_key", periodKey),
			zap.String("form_bundle", receipt.FormBundleNumber),
			zap.Error(err))
	}

	return connect.NewResponse(&SubmitVATReturnResponse{Submission: sub}), nil
}

// ListVATSubmissions pages through the caller's submitted returns.
func (s *ReelinService) ListVATSubmissions(ctx context.Context, req *connect.Request[ListVATSubmissionsRequest]) (*connect.Response[ListVATSubmissionsResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	subs, next, err := s.store.ListVATSubmissions(ctx, claims.UID, auth.NormalizePageSize(req.Msg.PageSize), req.Msg.PageToken)
	if err != nil {
		return nil, auth.WrapStoreError("list VAT submissions", err)
	}
	return connect.NewResponse(&ListVATSubmissionsResponse{Submissions: subs, NextPageToken: next}), nil
}

// GetVATObligations asks HMRC which periods are open or fulfilled.
func (s *ReelinService) GetVATObligations(ctx context.Context, req *connect.Request[GetVATObligationsRequest]) (*connect.Response[GetVATObligationsResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	status := hmrc.ObligationStatus(msg.Status)
	if status != "" && status != hmrc.ObligationOpen && status != hmrc.ObligationFulfilled {
		return nil, invalidArgument(fmt.Errorf("status must be O or F"))
	}
	if status != hmrc.ObligationOpen {
		if err := validatePeriod(msg.From, msg.To); err != nil {
			return nil, invalidArgument(err)
		}
	}
	conn, err := s.activeHMRCConnection(ctx, claims.UID)
	if err != nil {
		return nil, err
	}

	session := s.hmrc.Session(ctx, conn.Token)
	obligations, err := session.Obligations(ctx, conn.VRN, msg.From, msg.To, status)
	s.saveHMRCToken(ctx, conn, session, err)
	if err != nil {
		return nil, integrationError("get VAT obligations", err)
	}

	out := make([]VATObligation, 0, len(obligations))
	for _, o := range obligations {
		out = append(out, VATObligation{
			PeriodKey: o.PeriodKey,
			Start:     parseHMRCDate(o.Start),
			End:       parseHMRCDate(o.End),
			Due:       parseHMRCDate(o.Due),
			Status:    string(o.Status),
			Received:  parseHMRCDate(o.Received),
		})
	}
	return connect.NewResponse(&GetVATObligationsResponse{VRN: conn.VRN, Obligations: out}), nil
}

func parseHMRCDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}
