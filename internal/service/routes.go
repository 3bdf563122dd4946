package service

import "github.com/reelin/backend/internal/rpc"

// Register mounts every ReelinService method on r.
func (s *ReelinService) Register(r *rpc.Router) {
	// Transactions
	rpc.Register(r, "CreateTransaction", s.CreateTransaction)
	rpc.Register(r, "GetTransaction", s.GetTransaction)
	rpc.Register(r, "UpdateTransaction", s.UpdateTransaction)
	rpc.Register(r, "DeleteTransaction", s.DeleteTransaction)
	rpc.Register(r, "ListTransactions", s.ListTransactions)
	rpc.Register(r, "SearchTransactions", s.SearchTransactions)
	rpc.Register(r, "CategoriseTransactions", s.CategoriseTransactions)

	// Mileage and home office
	rpc.Register(r, "CreateTrip", s.CreateTrip)
	rpc.Register(r, "ListTrips", s.ListTrips)
	rpc.Register(r, "DeleteTrip", s.DeleteTrip)
	rpc.Register(r, "GetMileageSummary", s.GetMileageSummary)
	rpc.Register(r, "CalculateMileage", s.CalculateMileage)
	rpc.Register(r, "UpsertHomeOfficeClaim", s.UpsertHomeOfficeClaim)
	rpc.Register(r, "ListHomeOfficeClaims", s.ListHomeOfficeClaims)
	rpc.Register(r, "CalculateHomeOffice", s.CalculateHomeOffice)
	rpc.Register(r, "CalculateApportionment", s.CalculateApportionment)

	// VAT and HMRC
	rpc.Register(r, "PrepareVATReturn", s.PrepareVATReturn)
	rpc.Register(r, "SubmitVATReturn", s.SubmitVATReturn)
	rpc.Register(r, "ListVATSubmissions", s.ListVATSubmissions)
	rpc.Register(r, "GetVATObligations", s.GetVATObligations)
	rpc.Register(r, "StartHMRCConnection", s.StartHMRCConnection)
	rpc.Register(r, "CompleteHMRCConnection", s.CompleteHMRCConnection)

	// Reports
	rpc.Register(r, "GetTaxYearSummary", s.GetTaxYearSummary)
	rpc.Register(r, "ExportTaxYear", s.ExportTaxYear)
	rpc.Register(r, "ExportVATReturn", s.ExportVATReturn)
	rpc.Register(r, "ExportReceipts", s.ExportReceipts)

	// Open banking
	rpc.Register(r, "StartBankConnection", s.StartBankConnection)
	rpc.Register(r, "CompleteBankConnection", s.CompleteBankConnection)
	rpc.Register(r, "SyncBankTransactions", s.SyncBankTransactions)
	rpc.Register(r, "ListBankConnections", s.ListBankConnections)
	rpc.Register(r, "DisconnectBank", s.DisconnectBank)

	// Learning and waitlist
	rpc.Register(r, "ListLessons", s.ListLessons)
	rpc.Register(r, "GetLesson", s.GetLesson)
	rpc.Register(r, "CompleteLesson", s.CompleteLesson)
	rpc.Register(r, "GetLearningProgress", s.GetLearningProgress)
	rpc.Register(r, "JoinWaitlist", s.JoinWaitlist)
	rpc.Register(r, "GetWaitlistStats", s.GetWaitlistStats)

	// Account
	rpc.Register(r, "GetProfile", s.GetProfile)
	rpc.Register(r, "UpdateProfile", s.UpdateProfile)
	rpc.Register(r, "GetSubscriptionStatus", s.GetSubscriptionStatus)
	rpc.Register(r, "CreateCheckoutSession", s.CreateCheckoutSession)
	rpc.Register(r, "CancelSubscription", s.CancelSubscription)
}
