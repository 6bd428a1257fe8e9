package models

import "time"

// Driver is a registered tricycle driver. Balance, InQueue and LedgerSeq
// are projections owned by the reconciler; repositories only read them.
type Driver struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	OperatorName    string    `json:"operator_name"`
	BarangayID      string    `json:"barangay_id"`
	TricycleNumber  string    `json:"tricycle_number"`
	PhoneNumber     string    `json:"phone_number"`
	PlateNumberText string    `json:"plate_number"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	PlateImageURL   string    `json:"plate_image_url,omitempty"`
	Balance         int64     `json:"balance"` // centavos
	InQueue         bool      `json:"in_queue"`
	LedgerSeq       int64     `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RegisterDriverRequest is the admin form payload for registering a new
// driver. Images arrive as base64 data URLs from the dashboard.
type RegisterDriverRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	Name            string `json:"name"`
	OperatorName    string `json:"operator_name"`
	BarangayID      string `json:"barangay_id"`
	TricycleNumber  string `json:"tricycle_number"`
	PhoneNumber     string `json:"phone_number"`
	PlateNumberText string `json:"plate_number"`
	ProfileImage    string `json:"profile_image,omitempty"`
	PlateImage      string `json:"plate_image,omitempty"`
	InitialBalance  int64  `json:"initial_balance"` // centavos
}

// UpdateDriverRequest edits mutable driver profile fields. Balance and
// queue state are never editable here; they move only through events.
type UpdateDriverRequest struct {
	Name            string `json:"name"`
	OperatorName    string `json:"operator_name"`
	BarangayID      string `json:"barangay_id"`
	TricycleNumber  string `json:"tricycle_number"`
	PhoneNumber     string `json:"phone_number"`
	PlateNumberText string `json:"plate_number"`
}

// DriverFilter is used for listing/searching drivers
type DriverFilter struct {
	BarangayID string `json:"barangay_id,omitempty"`
	Search     string `json:"search,omitempty"`
	InQueue    *bool  `json:"in_queue,omitempty"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

// QueuedDriver is one row of a barangay's live queue, in arrival order.
type QueuedDriver struct {
	DriverID       string    `json:"driver_id"`
	Name           string    `json:"name"`
	TricycleNumber string    `json:"tricycle_number"`
	PlateNumber    string    `json:"plate_number"`
	BarangayID     string    `json:"barangay_id"`
	JoinedAt       time.Time `json:"joined_at"`
}
