package models

import "time"

// LedgerEntry is the read model for one row of a driver's billing ledger.
// Rows are written exclusively by the reconciler.
type LedgerEntry struct {
	ID          int64     `json:"id"`
	DriverID    string    `json:"driver_id"`
	Seq         int64     `json:"seq"`
	Kind        string    `json:"kind"` // QUEUE_ENTRY, QUEUE_EXIT, CHARGE, RECHARGE
	Amount      int64     `json:"amount"` // signed centavos, zero for queue events
	Description string    `json:"description"`
	BarangayID  string    `json:"barangay_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// LedgerFilter is used for filtering ledger entries
type LedgerFilter struct {
	DriverID   string     `json:"driver_id,omitempty"`
	BarangayID string     `json:"barangay_id,omitempty"`
	Kind       string     `json:"kind,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

// LedgerSummary aggregates a driver's ledger for reports.
type LedgerSummary struct {
	DriverID       string `json:"driver_id"`
	DriverName     string `json:"driver_name"`
	TotalCharged   int64  `json:"total_charged"`
	TotalRecharged int64  `json:"total_recharged"`
	Balance        int64  `json:"balance"`
	EntryCount     int    `json:"entry_count"`
}

// RechargeRequest is the admin form payload for a cash recharge.
type RechargeRequest struct {
	Email       string `json:"email,omitempty"` // used when the route has no driver id
	Amount      int64  `json:"amount"`          // centavos
	Description string `json:"description,omitempty"`
}
