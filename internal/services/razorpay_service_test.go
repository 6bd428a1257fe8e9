package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toda-backend/internal/models"
	"toda-backend/internal/reconciler"
)

type fakeOrderStore struct {
	orders map[string]*models.RechargeOrder
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[string]*models.RechargeOrder)}
}

func (f *fakeOrderStore) Create(ctx context.Context, o *models.RechargeOrder) error {
	if o.Status == "" {
		o.Status = models.RechargeStatusPending
	}
	cp := *o
	f.orders[o.OrderID] = &cp
	return nil
}

func (f *fakeOrderStore) GetByOrderID(ctx context.Context, orderID string) (*models.RechargeOrder, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) MarkSuccess(ctx context.Context, orderID, paymentID string) (bool, error) {
	o, ok := f.orders[orderID]
	if !ok || o.Status != models.RechargeStatusPending {
		return false, nil
	}
	o.Status = models.RechargeStatusSuccess
	o.PaymentID = paymentID
	return true, nil
}

func (f *fakeOrderStore) ReopenForRetry(ctx context.Context, orderID string) error {
	o, ok := f.orders[orderID]
	if !ok || o.Status != models.RechargeStatusSuccess {
		return nil
	}
	o.Status = models.RechargeStatusPending
	o.PaymentID = ""
	return nil
}

func newRazorpayFixture() (*RazorpayService, *fakeOrderStore, *reconciler.MemoryStore) {
	orders := newFakeOrderStore()
	store := reconciler.NewMemoryStore()
	rec := reconciler.New(store, reconciler.Policy{})
	svc := NewRazorpayService("key_id", "key_secret", "webhook_secret", orders, rec)
	return svc, orders, store
}

func TestSettle_CreditsDriverExactlyOnce(t *testing.T) {
	svc, orders, store := newRazorpayFixture()
	store.PutDriver(reconciler.Driver{ID: "d1", Barangay: "poblacion", Balance: 100})
	orders.orders["order_1"] = &models.RechargeOrder{
		OrderID: "order_1", DriverID: "d1", Amount: 5000,
		Status: models.RechargeStatusPending,
	}

	require.NoError(t, svc.SettleFromWebhook(context.Background(), "order_1", "pay_1"))

	d, _ := store.GetDriver("d1")
	assert.Equal(t, int64(5100), d.Balance)
	require.Len(t, store.Ledger("d1"), 1)
	assert.Equal(t, reconciler.KindRecharge, store.Ledger("d1")[0].Kind)

	// A webhook retry for the settled order must not credit again.
	require.NoError(t, svc.SettleFromWebhook(context.Background(), "order_1", "pay_1"))
	d, _ = store.GetDriver("d1")
	assert.Equal(t, int64(5100), d.Balance)
	assert.Len(t, store.Ledger("d1"), 1)
}

func TestSettle_CreditFailureReopensOrderForRetry(t *testing.T) {
	svc, orders, store := newRazorpayFixture()
	// No driver row yet: the ledger credit will fail after the order claim.
	orders.orders["order_1"] = &models.RechargeOrder{
		OrderID: "order_1", DriverID: "d1", Amount: 5000,
		Status: models.RechargeStatusPending,
	}

	err := svc.SettleFromWebhook(context.Background(), "order_1", "pay_1")
	require.Error(t, err)
	assert.Equal(t, models.RechargeStatusPending, orders.orders["order_1"].Status,
		"failed credit must reopen the order so the gateway retry can settle it")

	// The retry now finds the driver and the still-pending order.
	store.PutDriver(reconciler.Driver{ID: "d1", Barangay: "poblacion"})
	require.NoError(t, svc.SettleFromWebhook(context.Background(), "order_1", "pay_1"))

	d, _ := store.GetDriver("d1")
	assert.Equal(t, int64(5000), d.Balance)
	assert.Equal(t, models.RechargeStatusSuccess, orders.orders["order_1"].Status)
}

func TestSettle_UnknownOrder(t *testing.T) {
	svc, _, _ := newRazorpayFixture()

	err := svc.SettleFromWebhook(context.Background(), "order_missing", "pay_1")
	var notFound *reconciler.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestVerifyAndSettle_RejectsBadSignature(t *testing.T) {
	svc, _, _ := newRazorpayFixture()

	_, err := svc.VerifyAndSettle(context.Background(), &models.VerifyRechargeRequest{
		OrderID: "order_1", PaymentID: "pay_1", Signature: "forged",
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhookSignature(t *testing.T) {
	svc, _, _ := newRazorpayFixture()

	body := []byte(`{"event":"payment.captured"}`)
	assert.False(t, svc.VerifyWebhookSignature(body, "forged"))
}
