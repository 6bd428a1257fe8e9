package models

import "time"

// Barangay is a terminal zone with its own driver queue and terminal fee.
type Barangay struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	TerminalFee  int64      `json:"terminal_fee"` // centavos
	FeeUpdatedAt *time.Time `json:"fee_updated_at,omitempty"`
}

// UpdateTerminalFeeRequest sets a new terminal fee for a barangay.
type UpdateTerminalFeeRequest struct {
	TerminalFee int64 `json:"terminal_fee"`
}
