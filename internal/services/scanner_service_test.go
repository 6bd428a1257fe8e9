package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toda-backend/internal/models"
	"toda-backend/internal/reconciler"
)

type staticFees struct{ fee int64 }

func (f *staticFees) Get(ctx context.Context, id string) (*models.Barangay, error) {
	return &models.Barangay{ID: id, TerminalFee: f.fee}, nil
}

func newScannerFixture(fee int64) (*ScannerService, *reconciler.MemoryStore) {
	store := reconciler.NewMemoryStore()
	rec := reconciler.New(store, reconciler.Policy{})
	svc := NewScannerService(rec, &staticFees{fee: fee}, "", 0)
	return svc, store
}

func TestRecordTap_EnterChargesFeeAndQueues(t *testing.T) {
	svc, store := newScannerFixture(500)
	store.PutDriver(reconciler.Driver{ID: "d1", Barangay: "poblacion", Balance: 2000})

	result, err := svc.RecordTap(context.Background(), "d1", "poblacion", reconciler.DirectionEnter)
	require.NoError(t, err)

	assert.True(t, result.InQueue)
	assert.Equal(t, int64(500), result.FeeCharged)
	assert.Equal(t, int64(1500), result.Balance)

	entries := store.Ledger("d1")
	require.Len(t, entries, 2)
	assert.Equal(t, reconciler.KindCharge, entries[0].Kind)
	assert.Equal(t, reconciler.KindQueueEntry, entries[1].Kind)
}

func TestRecordTap_InsufficientBalanceBlocksEntry(t *testing.T) {
	svc, store := newScannerFixture(500)
	store.PutDriver(reconciler.Driver{ID: "d1", Barangay: "poblacion", Balance: 100})

	_, err := svc.RecordTap(context.Background(), "d1", "poblacion", reconciler.DirectionEnter)

	var insufficient *reconciler.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)

	d, _ := store.GetDriver("d1")
	assert.False(t, d.InQueue, "driver must not enter the queue")
	assert.Equal(t, int64(100), d.Balance, "balance must be untouched")
	assert.Empty(t, store.Ledger("d1"))
}

func TestRecordTap_DuplicateEnterReversesFee(t *testing.T) {
	svc, store := newScannerFixture(500)
	store.PutDriver(reconciler.Driver{ID: "d1", Barangay: "poblacion", Balance: 2000})

	_, err := svc.RecordTap(context.Background(), "d1", "poblacion", reconciler.DirectionEnter)
	require.NoError(t, err)

	_, err = svc.RecordTap(context.Background(), "d1", "poblacion", reconciler.DirectionEnter)
	var dup *reconciler.AlreadyQueuedError
	require.ErrorAs(t, err, &dup)

	d, _ := store.GetDriver("d1")
	assert.Equal(t, int64(1500), d.Balance, "second tap's fee must be reversed")

	// First tap: charge + entry. Second tap: charge + reversal.
	entries := store.Ledger("d1")
	require.Len(t, entries, 4)
	assert.Equal(t, reconciler.KindRecharge, entries[3].Kind)
	assert.Equal(t, "terminal fee reversal", entries[3].Description)
}

func TestRecordTap_ExitDoesNotCharge(t *testing.T) {
	svc, store := newScannerFixture(500)
	store.PutDriver(reconciler.Driver{ID: "d1", Barangay: "poblacion", Balance: 2000})

	_, err := svc.RecordTap(context.Background(), "d1", "poblacion", reconciler.DirectionEnter)
	require.NoError(t, err)
	balanceAfterEnter := int64(1500)

	result, err := svc.RecordTap(context.Background(), "d1", "poblacion", reconciler.DirectionExit)
	require.NoError(t, err)

	assert.False(t, result.InQueue)
	assert.Equal(t, balanceAfterEnter, result.Balance)
	assert.Zero(t, result.FeeCharged)
}

func TestRecordTap_ZeroFeeSkipsCharge(t *testing.T) {
	svc, store := newScannerFixture(0)
	store.PutDriver(reconciler.Driver{ID: "d1", Barangay: "poblacion", Balance: 0})

	result, err := svc.RecordTap(context.Background(), "d1", "poblacion", reconciler.DirectionEnter)
	require.NoError(t, err)

	assert.True(t, result.InQueue)
	entries := store.Ledger("d1")
	require.Len(t, entries, 1)
	assert.Equal(t, reconciler.KindQueueEntry, entries[0].Kind)
}
