package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"toda-backend/internal/models"
	"toda-backend/internal/reconciler"

	razorpay "github.com/razorpay/razorpay-go"
)

var ErrPaymentsDisabled = errors.New("online payments are not configured")
var ErrInvalidSignature = errors.New("payment signature verification failed")

// rechargeOrders is the slice of RechargeOrderRepository this service needs.
type rechargeOrders interface {
	Create(ctx context.Context, o *models.RechargeOrder) error
	GetByOrderID(ctx context.Context, orderID string) (*models.RechargeOrder, error)
	MarkSuccess(ctx context.Context, orderID, paymentID string) (bool, error)
	ReopenForRetry(ctx context.Context, orderID string) error
}

// RazorpayService handles online balance recharges. The gateway order is
// created first; the driver's balance only moves after the signed
// confirmation is verified, and the order row makes settlement idempotent.
type RazorpayService struct {
	orderRepo  rechargeOrders
	reconciler *reconciler.Reconciler

	keyID         string
	keySecret     string
	webhookSecret string
}

func NewRazorpayService(
	keyID, keySecret, webhookSecret string,
	orderRepo rechargeOrders,
	rec *reconciler.Reconciler,
) *RazorpayService {
	return &RazorpayService{
		orderRepo:     orderRepo,
		reconciler:    rec,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

func (s *RazorpayService) IsEnabled() bool {
	return s.keyID != "" && s.keySecret != ""
}

// CreateOrder registers a pending recharge with the gateway and records
// it locally.
func (s *RazorpayService) CreateOrder(ctx context.Context, req *models.CreateRechargeOrderRequest) (*models.CreateRechargeOrderResponse, error) {
	if !s.IsEnabled() {
		return nil, ErrPaymentsDisabled
	}
	if req.DriverID == "" {
		return nil, &reconciler.ValidationError{Field: "driver_id", Reason: "must not be empty"}
	}
	if req.Amount <= 0 {
		return nil, &reconciler.ValidationError{Field: "amount", Reason: "must be a positive number of centavos"}
	}

	client := razorpay.NewClient(s.keyID, s.keySecret)
	orderData := map[string]interface{}{
		"amount":   req.Amount, // gateway minor units match centavos
		"currency": "PHP",
		"notes": map[string]interface{}{
			"driver_id": req.DriverID,
			"purpose":   "balance_recharge",
		},
	}
	order, err := client.Order.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway order create failed: %w", err)
	}

	orderID, _ := order["id"].(string)
	if orderID == "" {
		return nil, errors.New("gateway returned empty order id")
	}

	record := &models.RechargeOrder{
		OrderID:  orderID,
		DriverID: req.DriverID,
		Amount:   req.Amount,
	}
	if err := s.orderRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	return &models.CreateRechargeOrderResponse{
		OrderID:  orderID,
		Amount:   req.Amount,
		Currency: "PHP",
		KeyID:    s.keyID,
	}, nil
}

// VerifyAndSettle checks the checkout callback signature, marks the order
// settled and credits the driver's balance through the ledger. Repeated
// calls for the same order settle at most once.
func (s *RazorpayService) VerifyAndSettle(ctx context.Context, req *models.VerifyRechargeRequest) (*models.RechargeOrder, error) {
	if !verifySignature(req.OrderID+"|"+req.PaymentID, req.Signature, s.keySecret) {
		return nil, ErrInvalidSignature
	}
	return s.settle(ctx, req.OrderID, req.PaymentID)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header over the
// raw webhook body.
func (s *RazorpayService) VerifyWebhookSignature(body []byte, signature string) bool {
	if s.webhookSecret == "" {
		return false
	}
	return verifySignature(string(body), signature, s.webhookSecret)
}

// SettleFromWebhook credits a captured payment reported by the gateway.
// The signature must already have been verified against the raw body.
func (s *RazorpayService) SettleFromWebhook(ctx context.Context, orderID, paymentID string) error {
	_, err := s.settle(ctx, orderID, paymentID)
	return err
}

func (s *RazorpayService) settle(ctx context.Context, orderID, paymentID string) (*models.RechargeOrder, error) {
	order, err := s.orderRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, &reconciler.NotFoundError{Kind: "recharge order", ID: orderID}
	}

	settled, err := s.orderRepo.MarkSuccess(ctx, orderID, paymentID)
	if err != nil {
		return nil, err
	}
	if !settled {
		// Already settled by the checkout callback or a webhook retry.
		log.Printf("[Razorpay] order %s already settled, skipping credit", orderID)
		return order, nil
	}

	desc := "online recharge " + paymentID
	if _, err := s.reconciler.ApplyBalanceEvent(ctx, order.DriverID, reconciler.KindRecharge, order.Amount, desc); err != nil {
		// Money was captured but the ledger write failed. Reopen the order
		// so the gateway's retry attempts the credit again; a retry that
		// found the order settled would skip the credit and lose it.
		if rerr := s.orderRepo.ReopenForRetry(ctx, orderID); rerr != nil {
			log.Printf("[Razorpay] credit for order %s failed and reopen failed, manual repair needed: %v / %v", orderID, err, rerr)
		} else {
			log.Printf("[Razorpay] credit for order %s failed, reopened for retry: %v", orderID, err)
		}
		return nil, err
	}

	order.Status = models.RechargeStatusSuccess
	order.PaymentID = paymentID
	return order, nil
}

func verifySignature(payload, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
