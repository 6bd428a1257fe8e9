package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toda-backend/internal/models"
	"toda-backend/internal/reconciler"
	"toda-backend/internal/services"
)

type fixedFees struct{ fee int64 }

func (f *fixedFees) Get(ctx context.Context, id string) (*models.Barangay, error) {
	return &models.Barangay{ID: id, TerminalFee: f.fee}, nil
}

func newScannerHandler(fee int64) (*ScannerHandler, *reconciler.MemoryStore) {
	store := reconciler.NewMemoryStore()
	rec := reconciler.New(store, reconciler.Policy{})
	svc := services.NewScannerService(rec, &fixedFees{fee: fee}, "", 0)
	return NewScannerHandler(svc), store
}

func postQueueEvent(t *testing.T, h *ScannerHandler, req QueueEventRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/api/scanner/queue-event", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.QueueEvent(w, r)
	return w
}

func TestQueueEvent_EnterSucceeds(t *testing.T) {
	h, store := newScannerHandler(500)
	store.PutDriver(reconciler.Driver{ID: "d1", Barangay: "poblacion", Balance: 1000})

	w := postQueueEvent(t, h, QueueEventRequest{DriverID: "d1", BarangayID: "poblacion", Direction: "enter"})

	require.Equal(t, http.StatusOK, w.Code)
	var result services.TapResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.InQueue)
	assert.Equal(t, int64(500), result.Balance)
	assert.Equal(t, int64(500), result.FeeCharged)
}

func TestQueueEvent_DuplicateEnterIsConflict(t *testing.T) {
	h, store := newScannerHandler(0)
	store.PutDriver(reconciler.Driver{ID: "d1", Barangay: "poblacion"})

	w := postQueueEvent(t, h, QueueEventRequest{DriverID: "d1", BarangayID: "poblacion", Direction: "enter"})
	require.Equal(t, http.StatusOK, w.Code)

	w = postQueueEvent(t, h, QueueEventRequest{DriverID: "d1", BarangayID: "poblacion", Direction: "enter"})
	assert.Equal(t, http.StatusConflict, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "already_queued", body["kind"])
}

func TestQueueEvent_InsufficientBalanceIs402(t *testing.T) {
	h, store := newScannerHandler(500)
	store.PutDriver(reconciler.Driver{ID: "d1", Barangay: "poblacion", Balance: 100})

	w := postQueueEvent(t, h, QueueEventRequest{DriverID: "d1", BarangayID: "poblacion", Direction: "enter"})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	d, _ := store.GetDriver("d1")
	assert.False(t, d.InQueue)
}

func TestQueueEvent_UnknownDriverIs404(t *testing.T) {
	h, _ := newScannerHandler(0)

	w := postQueueEvent(t, h, QueueEventRequest{DriverID: "ghost", BarangayID: "poblacion", Direction: "enter"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueueEvent_BadDirectionIs400(t *testing.T) {
	h, store := newScannerHandler(0)
	store.PutDriver(reconciler.Driver{ID: "d1", Barangay: "poblacion"})

	w := postQueueEvent(t, h, QueueEventRequest{DriverID: "d1", BarangayID: "poblacion", Direction: "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueEvent_InvalidBodyIs400(t *testing.T) {
	h, _ := newScannerHandler(0)

	r := httptest.NewRequest(http.MethodPost, "/api/scanner/queue-event", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	h.QueueEvent(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
