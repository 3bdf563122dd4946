package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/report"
	"github.com/reelin/backend/internal/store"
	"go.uber.org/zap"
)

// taxYearData loads everything a tax-year report needs.
func (s *ReelinService) taxYearData(ctx context.Context, uid, taxYear string) (*report.TaxYearExport, error) {
	txns, err := s.allTransactions(ctx, store.TransactionFilter{UserID: uid, TaxYear: taxYear})
	if err != nil {
		return nil, err
	}
	trips, err := s.allTrips(ctx, uid, taxYear)
	if err != nil {
		return nil, err
	}
	// Exported deductions come from the replay, not the stored values.
	repriceTrips(trips)
	claims, err := s.store.ListHomeOfficeClaims(ctx, uid, taxYear)
	if err != nil {
		return nil, auth.WrapStoreError("list home office claims", err)
	}

	summary, err := report.BuildTaxYearSummary(taxYear, txns, trips, claims)
	if err != nil {
		return nil, invalidArgument(err)
	}
	if user, err := s.store.GetUser(ctx, uid); err == nil {
		summary.BusinessName = user.BusinessName
	}
	return &report.TaxYearExport{Summary: summary, Transactions: txns, Trips: trips, HomeOffice: claims}, nil
}

// GetTaxYearSummary returns income, allowable expenses, simplified deductions and net profit.
func (s *ReelinService) GetTaxYearSummary(ctx context.Context, req *connect.Request[GetTaxYearSummaryRequest]) (*connect.Response[GetTaxYearSummaryResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	taxYear, _, _, err := s.taxYearOrCurrent(req.Msg.TaxYear)
	if err != nil {
		return nil, err
	}
	data, err := s.taxYearData(ctx, claims.UID, taxYear)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&GetTaxYearSummaryResponse{Summary: data.Summary}), nil
}

// ExportTaxYear renders the tax year as CSV, JSON or PDF. PDF is a Pro feature.
func (s *ReelinService) ExportTaxYear(ctx context.Context, req *connect.Request[ExportTaxYearRequest]) (*connect.Response[ExportResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	format := report.Format(strings.ToLower(string(req.Msg.Format)))
	if format == "" {
		format = report.FormatCSV
	}
	switch format {
	case report.FormatCSV, report.FormatJSON:
	case report.FormatPDF:
		if err := s.requirePro(ctx, claims.UID); err != nil {
			return nil, err
		}
	default:
		return nil, invalidArgument(fmt.Errorf("unsupported export format %q", req.Msg.Format))
	}

	taxYear, _, _, err := s.taxYearOrCurrent(req.Msg.TaxYear)
	if err != nil {
		return nil, err
	}
	data, err := s.taxYearData(ctx, claims.UID, taxYear)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch format {
	case report.FormatCSV:
		err = report.WriteTransactionsCSV(&buf, data.Transactions)
	case report.FormatJSON:
		err = report.WriteJSON(&buf, *data)
	case report.FormatPDF:
		var pdf []byte
		pdf, err = report.TaxYearPDF(data.Summary, s.now())
		buf.Write(pdf)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("render %s export: %w", format, err))
	}

	return connect.NewResponse(&ExportResponse{
		Data:        buf.Bytes(),
		Filename:    fmt.Sprintf("reelin-%s.%s", taxYear, format),
		ContentType: format.ContentType(),
	}), nil
}

// ExportVATReturn renders a VAT return as PDF. A submitted period key exports the
// return exactly as it was sent, with its receipt.
func (s *ReelinService) ExportVATReturn(ctx context.Context, req *connect.Request[ExportVATReturnRequest]) (*connect.Response[ExportResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requirePro(ctx, claims.UID); err != nil {
		return nil, err
	}

	msg := req.Msg
	doc := report.VATReturnDoc{PeriodKey: msg.PeriodKey, PeriodStart: msg.PeriodStart, PeriodEnd: msg.PeriodEnd}
	submitted := false
	if msg.PeriodKey != "" {
		sub, err := s.store.GetVATSubmissionByPeriod(ctx, claims.UID, msg.PeriodKey)
		switch {
		case err == nil:
			submitted = true
			doc.VRN = sub.VRN
			doc.PeriodStart = sub.PeriodStart
			doc.PeriodEnd = sub.PeriodEnd
			doc.Return = sub.Return
			doc.FormBundleNumber = sub.FormBundleNumber
			doc.ProcessingDate = sub.ProcessingDate
		case !errors.Is(err, store.ErrNotFound):
			return nil, auth.WrapStoreError("get VAT submission", err)
		}
	}
	if !submitted {
		if err := validatePeriod(msg.PeriodStart, msg.PeriodEnd); err != nil {
			return nil, invalidArgument(err)
		}
		ret, _, err := s.assembleReturn(ctx, claims.UID, msg.PeriodStart, msg.PeriodEnd)
		if err != nil {
			return nil, err
		}
		doc.Return = ret
	}
	if user, err := s.store.GetUser(ctx, claims.UID); err == nil {
		doc.BusinessName = user.BusinessName
		if doc.VRN == "" {
			doc.VRN = user.VRN
		}
	}

	pdf, err := report.VATReturnPDF(doc, s.now())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("render VAT return: %w", err))
	}
	name := "reelin-vat-" + doc.PeriodEnd.Format("2006-01-02")
	if msg.PeriodKey != "" {
		name = "reelin-vat-" + sanitizeFilename(msg.PeriodKey)
	}
	return connect.NewResponse(&ExportResponse{
		Data:        pdf,
		Filename:    name + ".pdf",
		ContentType: report.FormatPDF.ContentType(),
	}), nil
}

// ExportReceipts zips the receipt files of a tax year's business expenses, one folder
// per category.
func (s *ReelinService) ExportReceipts(ctx context.Context, req *connect.Request[ExportReceiptsRequest]) (*connect.Response[ExportReceiptsResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requirePro(ctx, claims.UID); err != nil {
		return nil, err
	}
	taxYear, _, _, err := s.taxYearOrCurrent(req.Msg.TaxYear)
	if err != nil {
		return nil, err
	}

	txns, err := s.allTransactions(ctx, store.TransactionFilter{
		UserID:    claims.UID,
		Direction: model.DirectionExpense,
		TaxYear:   taxYear,
	})
	if err != nil {
		return nil, err
	}
	var withReceipts []*model.Transaction
	for _, t := range txns {
		if t.ReceiptPath != "" && t.Category != model.CategoryPersonal {
			withReceipts = append(withReceipts, t)
		}
	}
	if len(withReceipts) == 0 {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("no business expenses with receipts found for %s", taxYear))
	}
	if s.receipts == nil {
		return nil, unavailable("receipt storage")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	count := 0
	for _, t := range withReceipts {
		data, err := s.readReceipt(ctx, t.ReceiptPath)
		if err != nil {
			logging.L().Warn("skipping unreadable receipt",
				zap.String("component", "receipts"),
				zap.String("transaction_id", t.ID),
				zap.String("path", t.ReceiptPath),
				zap.Error(err))
			continue
		}
		w, err := zw.Create(receiptEntryName(t))
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("create zip entry: %w", err))
		}
		if _, err := w.Write(data); err != nil {
			return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("write zip entry: %w", err))
		}
		count++
	}
	if err := zw.Close(); err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("create zip: %w", err))
	}

	return connect.NewResponse(&ExportReceiptsResponse{
		ExportResponse: ExportResponse{
			Data:        buf.Bytes(),
			Filename:    fmt.Sprintf("reelin-receipts-%s.zip", taxYear),
			ContentType: "application/zip",
		},
		ReceiptCount: count,
	}), nil
}

func (s *ReelinService) readReceipt(ctx context.Context, objectPath string) ([]byte, error) {
	r, err := s.receipts.Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// receiptEntryName builds "Category/2025-05-01_Description_£12.34.ext".
func receiptEntryName(t *model.Transaction) string {
	folder := sanitizeFilename(report.CategoryLabel(t.Category))
	desc := sanitizeFilename(t.Description)
	if desc == "" {
		desc = "receipt"
	}
	return fmt.Sprintf("%s/%s_%s_%s%s", folder, t.Date.Format("2006-01-02"), desc,
		strings.TrimPrefix(report.FormatPounds(t.AmountPence), "£"), path.Ext(t.ReceiptPath))
}

// sanitizeFilename keeps letters, digits, dashes and underscores, and caps the length.
func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > 50 {
		out = out[:50]
	}
	return out
}
