package models

import "time"

// RechargeOrderStatus represents the status of an online recharge
type RechargeOrderStatus string

const (
	RechargeStatusPending RechargeOrderStatus = "pending"
	RechargeStatusSuccess RechargeOrderStatus = "success"
	RechargeStatusFailed  RechargeOrderStatus = "failed"
)

// RechargeOrder is an online balance top-up processed through Razorpay.
type RechargeOrder struct {
	ID        int                 `json:"id"`
	OrderID   string              `json:"order_id"`
	DriverID  string              `json:"driver_id"`
	Amount    int64               `json:"amount"` // centavos
	Status    RechargeOrderStatus `json:"status"`
	PaymentID string              `json:"payment_id,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// CreateRechargeOrderRequest initiates an online recharge for a driver.
type CreateRechargeOrderRequest struct {
	DriverID string `json:"driver_id"`
	Amount   int64  `json:"amount"` // centavos
}

// CreateRechargeOrderResponse is returned to the frontend for checkout.
type CreateRechargeOrderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// VerifyRechargeRequest is sent from the frontend after the payment
// gateway callback.
type VerifyRechargeRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}
