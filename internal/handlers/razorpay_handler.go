package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"toda-backend/internal/models"
	"toda-backend/internal/services"
)

type RazorpayHandler struct {
	Service *services.RazorpayService
}

func NewRazorpayHandler(service *services.RazorpayService) *RazorpayHandler {
	return &RazorpayHandler{Service: service}
}

// PaymentStatus tells the frontend whether online recharges are enabled.
func (h *RazorpayHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": h.Service.IsEnabled()})
}

// CreateOrder initiates an online recharge for a driver.
func (h *RazorpayHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRechargeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.Service.CreateOrder(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrPaymentsDisabled) {
			http.Error(w, "Online payments are not configured", http.StatusServiceUnavailable)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// VerifyPayment settles an order from the checkout callback.
func (h *RazorpayHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.Service.VerifyAndSettle(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			http.Error(w, "Invalid payment signature", http.StatusBadRequest)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// HandleWebhook settles captured payments reported by the gateway.
// Unsigned or malformed events are acknowledged with an error status but
// never retried into a double credit.
func (h *RazorpayHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if !h.Service.VerifyWebhookSignature(body, signature) {
		http.Error(w, "Invalid webhook signature", http.StatusUnauthorized)
		return
	}

	var event struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
		return
	}

	if event.Event != "payment.captured" {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Event ignored"})
		return
	}

	if err := h.Service.SettleFromWebhook(r.Context(), event.Payload.Payment.Entity.OrderID, event.Payload.Payment.Entity.ID); err != nil {
		log.Printf("[Razorpay] webhook settle failed: %v", err)
		http.Error(w, "Settlement failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Payment settled"})
}
