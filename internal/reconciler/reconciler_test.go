package reconciler_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toda-backend/internal/reconciler"
)

func newTestReconciler(t *testing.T) (*reconciler.Reconciler, *reconciler.MemoryStore) {
	t.Helper()
	store := reconciler.NewMemoryStore()
	return reconciler.New(store, reconciler.Policy{}), store
}

func seedDriver(store *reconciler.MemoryStore, id, barangay string, balance int64) {
	store.PutDriver(reconciler.Driver{ID: id, Barangay: barangay, Balance: balance})
}

func TestQueueEvent_EnterExitRoundTrip(t *testing.T) {
	// GIVEN: driver D assigned to zone Z, not queued
	// WHEN: Enter, duplicate Enter, Exit
	// THEN: first Enter succeeds, duplicate fails, Exit succeeds

	r, store := newTestReconciler(t)
	ctx := context.Background()
	seedDriver(store, "d1", "poblacion", 0)

	snap, err := r.ApplyQueueEvent(ctx, "d1", "poblacion", reconciler.DirectionEnter)
	require.NoError(t, err)
	assert.True(t, snap.InQueue)

	m, ok := store.MembershipFor("d1")
	require.True(t, ok, "membership row should exist after Enter")
	assert.Equal(t, "poblacion", m.Barangay)

	_, err = r.ApplyQueueEvent(ctx, "d1", "poblacion", reconciler.DirectionEnter)
	var dup *reconciler.AlreadyQueuedError
	require.ErrorAs(t, err, &dup, "duplicate Enter must be rejected")
	assert.Equal(t, "d1", dup.DriverID)

	snap, err = r.ApplyQueueEvent(ctx, "d1", "poblacion", reconciler.DirectionExit)
	require.NoError(t, err)
	assert.False(t, snap.InQueue)

	_, ok = store.MembershipFor("d1")
	assert.False(t, ok, "membership row should be gone after Exit")

	entries := store.Ledger("d1")
	require.Len(t, entries, 2)
	assert.Equal(t, reconciler.KindQueueEntry, entries[0].Kind)
	assert.Equal(t, reconciler.KindQueueExit, entries[1].Kind)
	assert.Zero(t, entries[0].Amount)
	assert.Zero(t, entries[1].Amount)
}

func TestQueueEvent_ExitWhenNotQueued(t *testing.T) {
	r, store := newTestReconciler(t)
	seedDriver(store, "d1", "poblacion", 0)

	_, err := r.ApplyQueueEvent(context.Background(), "d1", "poblacion", reconciler.DirectionExit)

	var notQueued *reconciler.NotQueuedError
	require.ErrorAs(t, err, &notQueued)
	assert.Empty(t, store.Ledger("d1"), "rejected event must not append a ledger entry")
}

func TestQueueEvent_WrongBarangayRejected(t *testing.T) {
	r, store := newTestReconciler(t)
	seedDriver(store, "d1", "poblacion", 0)

	_, err := r.ApplyQueueEvent(context.Background(), "d1", "san-isidro", reconciler.DirectionEnter)

	var ve *reconciler.ValidationError
	require.ErrorAs(t, err, &ve)
	d, _ := store.GetDriver("d1")
	assert.False(t, d.InQueue)
}

func TestQueueEvent_UnknownDriver(t *testing.T) {
	r, _ := newTestReconciler(t)

	_, err := r.ApplyQueueEvent(context.Background(), "ghost", "poblacion", reconciler.DirectionEnter)

	var nf *reconciler.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "driver", nf.Kind)
}

func TestQueueEvent_ConcurrentEnters_ExactlyOneWins(t *testing.T) {
	// GIVEN: one driver, two simultaneous Enter events (double scanner tap)
	// THEN: exactly one succeeds, exactly one QUEUE_ENTRY ledger row exists

	r, store := newTestReconciler(t)
	seedDriver(store, "d1", "poblacion", 0)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.ApplyQueueEvent(context.Background(), "d1", "poblacion", reconciler.DirectionEnter)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var dup *reconciler.AlreadyQueuedError
		assert.ErrorAs(t, err, &dup, "losers must fail with AlreadyQueuedError")
	}
	assert.Equal(t, 1, succeeded)

	entries := store.Ledger("d1")
	require.Len(t, entries, 1)
	assert.Equal(t, reconciler.KindQueueEntry, entries[0].Kind)
}

func TestQueueEvent_AlternationInvariant(t *testing.T) {
	// For any sequence of events, successful Enters never lead successful
	// Exits by more than one, and the flag tracks the difference exactly.

	r, store := newTestReconciler(t)
	ctx := context.Background()
	seedDriver(store, "d1", "poblacion", 0)

	sequence := []reconciler.Direction{
		reconciler.DirectionEnter, reconciler.DirectionEnter, reconciler.DirectionExit,
		reconciler.DirectionExit, reconciler.DirectionEnter, reconciler.DirectionExit,
		reconciler.DirectionEnter,
	}

	enters, exits := 0, 0
	for _, dir := range sequence {
		_, err := r.ApplyQueueEvent(ctx, "d1", "poblacion", dir)
		if err == nil {
			if dir == reconciler.DirectionEnter {
				enters++
			} else {
				exits++
			}
		}
		pending := enters - exits
		require.GreaterOrEqual(t, pending, 0)
		require.LessOrEqual(t, pending, 1)

		d, _ := store.GetDriver("d1")
		require.Equal(t, pending == 1, d.InQueue)
	}
}

func TestBalanceEvent_RechargeThenCharges(t *testing.T) {
	// Scenario from the billing contract: start 500, +100, reject 650,
	// charge 600 down to zero.

	r, store := newTestReconciler(t)
	ctx := context.Background()
	seedDriver(store, "d1", "poblacion", 500)

	balance, err := r.ApplyBalanceEvent(ctx, "d1", reconciler.KindRecharge, 100, "admin recharge")
	require.NoError(t, err)
	assert.Equal(t, int64(600), balance)
	require.Len(t, store.Ledger("d1"), 1)
	assert.Equal(t, int64(100), store.Ledger("d1")[0].Amount)

	_, err = r.ApplyBalanceEvent(ctx, "d1", reconciler.KindCharge, 650, "terminal fee")
	var insufficient *reconciler.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(600), insufficient.Balance)

	d, _ := store.GetDriver("d1")
	assert.Equal(t, int64(600), d.Balance, "rejected charge must not move the balance")
	assert.Len(t, store.Ledger("d1"), 1, "rejected charge must not append a ledger entry")

	balance, err = r.ApplyBalanceEvent(ctx, "d1", reconciler.KindCharge, 600, "terminal fee")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
	assert.Len(t, store.Ledger("d1"), 2)
}

func TestBalanceEvent_ProjectionEqualsLedgerSum(t *testing.T) {
	r, store := newTestReconciler(t)
	ctx := context.Background()
	seedDriver(store, "d1", "poblacion", 0)

	ops := []struct {
		kind   reconciler.Kind
		amount int64
	}{
		{reconciler.KindRecharge, 1000},
		{reconciler.KindCharge, 300},
		{reconciler.KindRecharge, 50},
		{reconciler.KindCharge, 750},
		{reconciler.KindCharge, 5}, // rejected: balance is 0
	}

	for _, op := range ops {
		r.ApplyBalanceEvent(ctx, "d1", op.kind, op.amount, "")

		var sum int64
		for _, e := range store.Ledger("d1") {
			sum += e.Amount
		}
		d, _ := store.GetDriver("d1")
		require.Equal(t, sum, d.Balance, "balance projection must equal ledger sum at all times")
	}

	d, _ := store.GetDriver("d1")
	assert.Equal(t, int64(0), d.Balance)
}

func TestBalanceEvent_NegativeBalancePolicy(t *testing.T) {
	// With the arrears policy enabled the same charge goes through and the
	// projection still matches the ledger.

	store := reconciler.NewMemoryStore()
	r := reconciler.New(store, reconciler.Policy{AllowNegativeBalance: true})
	seedDriver(store, "d1", "poblacion", 100)

	balance, err := r.ApplyBalanceEvent(context.Background(), "d1", reconciler.KindCharge, 250, "terminal fee")
	require.NoError(t, err)
	assert.Equal(t, int64(-150), balance)
}

func TestBalanceEvent_Validation(t *testing.T) {
	r, store := newTestReconciler(t)
	ctx := context.Background()
	seedDriver(store, "d1", "poblacion", 100)

	cases := []struct {
		name     string
		driverID string
		kind     reconciler.Kind
		amount   int64
	}{
		{"zero amount", "d1", reconciler.KindRecharge, 0},
		{"negative amount", "d1", reconciler.KindCharge, -5},
		{"queue kind", "d1", reconciler.KindQueueEntry, 10},
		{"empty driver", "", reconciler.KindRecharge, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.ApplyBalanceEvent(ctx, tc.driverID, tc.kind, tc.amount, "")
			var ve *reconciler.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
	assert.Empty(t, store.Ledger("d1"))
}

func TestLedger_SeqMonotonicPerDriver(t *testing.T) {
	r, store := newTestReconciler(t)
	ctx := context.Background()
	seedDriver(store, "d1", "poblacion", 1000)
	seedDriver(store, "d2", "poblacion", 1000)

	r.ApplyQueueEvent(ctx, "d1", "poblacion", reconciler.DirectionEnter)
	r.ApplyBalanceEvent(ctx, "d2", reconciler.KindCharge, 10, "")
	r.ApplyBalanceEvent(ctx, "d1", reconciler.KindCharge, 10, "")
	r.ApplyQueueEvent(ctx, "d1", "poblacion", reconciler.DirectionExit)
	r.ApplyBalanceEvent(ctx, "d2", reconciler.KindRecharge, 10, "")

	for _, id := range []string{"d1", "d2"} {
		entries := store.Ledger(id)
		for i, e := range entries {
			require.Equal(t, int64(i+1), e.Seq, "driver %s entry %d", id, i)
		}
	}
}

func TestNotifier_ReceivesCommittedChangesOnly(t *testing.T) {
	r, store := newTestReconciler(t)
	seedDriver(store, "d1", "poblacion", 0)

	var changes []reconciler.QueueChange
	r.SetNotifier(notifierFunc(func(c reconciler.QueueChange) { changes = append(changes, c) }))

	ctx := context.Background()
	r.ApplyQueueEvent(ctx, "d1", "poblacion", reconciler.DirectionEnter)
	r.ApplyQueueEvent(ctx, "d1", "poblacion", reconciler.DirectionEnter) // rejected
	r.ApplyQueueEvent(ctx, "d1", "poblacion", reconciler.DirectionExit)

	require.Len(t, changes, 2)
	assert.Equal(t, reconciler.DirectionEnter, changes[0].Direction)
	assert.Equal(t, reconciler.DirectionExit, changes[1].Direction)
}

type notifierFunc func(reconciler.QueueChange)

func (f notifierFunc) QueueChanged(c reconciler.QueueChange) { f(c) }

func TestIsRetryable(t *testing.T) {
	assert.True(t, reconciler.IsRetryable(&reconciler.StorageError{Op: "commit"}))
	assert.False(t, reconciler.IsRetryable(&reconciler.AlreadyQueuedError{DriverID: "d1"}))
	assert.False(t, reconciler.IsRetryable(&reconciler.ValidationError{Field: "amount"}))
}
