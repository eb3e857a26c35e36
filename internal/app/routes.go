package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Ledger
	r.HandleFunc("/api/expense", deps.LedgerHandler.LogExpense).Methods("POST")

	// Snapshot
	r.HandleFunc("/api/snapshot", deps.SnapshotHandler.GetSnapshot).Methods("GET")

	// Budget & allocations
	r.HandleFunc("/api/allocation", deps.AllocationHandler.GetAllocations).Methods("GET")
	r.HandleFunc("/api/budget", deps.AllocationHandler.SetBudget).Methods("PUT")
	r.HandleFunc("/api/allocation/distribute", deps.AllocationHandler.DistributeEvenly).Methods("POST")
	r.HandleFunc("/api/allocation", deps.AllocationHandler.Reset).Methods("DELETE")
	r.HandleFunc("/api/allocation/{categoryId}", deps.AllocationHandler.SetAllocation).Methods("PUT")
	r.HandleFunc("/api/allocation/{categoryId}/toggle", deps.AllocationHandler.ToggleUnitMode).Methods("POST")

	// Follow-up review
	r.HandleFunc("/api/followup", deps.FollowUpHandler.GetQueue).Methods("GET")
	r.HandleFunc("/api/followup/skip", deps.FollowUpHandler.Skip).Methods("POST")
	r.HandleFunc("/api/followup/{id}/split", deps.FollowUpHandler.BeginSplit).Methods("POST")
	r.HandleFunc("/api/followup/{id}/split", deps.FollowUpHandler.GetSession).Methods("GET")
	r.HandleFunc("/api/followup/{id}/split", deps.FollowUpHandler.Cancel).Methods("DELETE")
	r.HandleFunc("/api/followup/{id}/split/lines", deps.FollowUpHandler.AddLine).Methods("POST")
	r.HandleFunc("/api/followup/{id}/split/lines/{lineId}", deps.FollowUpHandler.UpdateLine).Methods("PUT")
	r.HandleFunc("/api/followup/{id}/split/lines/{lineId}", deps.FollowUpHandler.RemoveLine).Methods("DELETE")
	r.HandleFunc("/api/followup/{id}/split/confirm", deps.FollowUpHandler.Confirm).Methods("POST")
	r.HandleFunc("/api/review-stats", deps.FollowUpHandler.GetReviewStats).Methods("GET")

	// Attachments
	r.HandleFunc("/api/attachment", deps.AttachmentHandler.Upload).Methods("POST")
	r.HandleFunc("/api/attachment/{ref}", deps.AttachmentHandler.Download).Methods("GET")
}
