// Package reconciler applies queue and billing events to driver state as
// single atomic units. It is the only writer of driver balances, in_queue
// flags, queue memberships and ledger entries; everything else in the
// application reads those tables through repositories.
package reconciler

import (
	"context"
	"time"

	"toda-backend/internal/metrics"
)

// Policy holds the billing rules that are business decisions rather than
// invariants.
type Policy struct {
	// AllowNegativeBalance permits charges to drive a balance below zero
	// (billing in arrears). Off by default.
	AllowNegativeBalance bool
}

// QueueChange describes a committed queue transition, published to
// listeners (the dashboard live feed) after the transaction commits.
type QueueChange struct {
	DriverID  string    `json:"driver_id"`
	Barangay  string    `json:"barangay"`
	Direction Direction `json:"direction"`
	At        time.Time `json:"at"`
}

// Notifier receives committed queue changes. Notification is best effort
// and happens outside the transaction.
type Notifier interface {
	QueueChanged(change QueueChange)
}

// Snapshot is the confirmation returned to the caller of a queue event,
// typically echoed back to the scanning device.
type Snapshot struct {
	DriverID string `json:"driver_id"`
	Barangay string `json:"barangay"`
	InQueue  bool   `json:"in_queue"`
	Balance  int64  `json:"balance"`
}

type Reconciler struct {
	store    Store
	policy   Policy
	notifier Notifier
}

func New(store Store, policy Policy) *Reconciler {
	return &Reconciler{store: store, policy: policy}
}

// SetNotifier attaches a listener for committed queue changes.
func (r *Reconciler) SetNotifier(n Notifier) {
	r.notifier = n
}

// ApplyQueueEvent validates and applies one Enter or Exit event. On success
// the driver's in_queue flag, the membership row and a zero-amount ledger
// entry have all been committed together; on any error nothing changed.
func (r *Reconciler) ApplyQueueEvent(ctx context.Context, driverID, barangay string, direction Direction) (*Snapshot, error) {
	if driverID == "" {
		return nil, &ValidationError{Field: "driver_id", Reason: "must not be empty"}
	}
	if barangay == "" {
		return nil, &ValidationError{Field: "barangay", Reason: "must not be empty"}
	}
	if direction != DirectionEnter && direction != DirectionExit {
		return nil, &ValidationError{Field: "direction", Reason: "must be enter or exit"}
	}

	var snap *Snapshot
	err := r.store.Atomically(ctx, func(tx Tx) error {
		d, err := tx.DriverForUpdate(ctx, driverID)
		if err != nil {
			return err
		}
		if d.Barangay != barangay {
			return &ValidationError{Field: "barangay", Reason: "driver is assigned to " + d.Barangay}
		}

		kind := KindQueueEntry
		switch direction {
		case DirectionEnter:
			if d.InQueue {
				return &AlreadyQueuedError{DriverID: d.ID, Barangay: d.Barangay}
			}
		case DirectionExit:
			if !d.InQueue {
				return &NotQueuedError{DriverID: d.ID}
			}
			kind = KindQueueExit
		}

		d.InQueue = direction == DirectionEnter
		d.LedgerSeq++
		if err := tx.UpdateDriver(ctx, d); err != nil {
			return err
		}

		if direction == DirectionEnter {
			if err := tx.AddMembership(ctx, Membership{DriverID: d.ID, Barangay: barangay}); err != nil {
				return err
			}
		} else {
			if err := tx.RemoveMembership(ctx, d.ID); err != nil {
				return err
			}
		}

		entry := &LedgerEntry{
			DriverID:    d.ID,
			Seq:         d.LedgerSeq,
			Kind:        kind,
			Amount:      0,
			Description: string(direction) + " queue at " + barangay,
			Barangay:    barangay,
		}
		if err := tx.AppendLedger(ctx, entry); err != nil {
			return err
		}

		snap = &Snapshot{DriverID: d.ID, Barangay: d.Barangay, InQueue: d.InQueue, Balance: d.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entryKind := KindQueueEntry
	if direction == DirectionExit {
		entryKind = KindQueueExit
	}
	metrics.LedgerEntriesTotal.WithLabelValues(string(entryKind)).Inc()

	if r.notifier != nil {
		r.notifier.QueueChanged(QueueChange{
			DriverID:  snap.DriverID,
			Barangay:  snap.Barangay,
			Direction: direction,
			At:        time.Now().UTC(),
		})
	}
	return snap, nil
}

// ApplyBalanceEvent appends one Charge or Recharge ledger entry and moves
// the balance projection by the same signed delta, atomically. Returns the
// new balance.
func (r *Reconciler) ApplyBalanceEvent(ctx context.Context, driverID string, kind Kind, amount int64, description string) (int64, error) {
	if driverID == "" {
		return 0, &ValidationError{Field: "driver_id", Reason: "must not be empty"}
	}
	if kind != KindCharge && kind != KindRecharge {
		return 0, &ValidationError{Field: "kind", Reason: "must be CHARGE or RECHARGE"}
	}
	if amount <= 0 {
		return 0, &ValidationError{Field: "amount", Reason: "must be a positive number of centavos"}
	}

	var balance int64
	err := r.store.Atomically(ctx, func(tx Tx) error {
		d, err := tx.DriverForUpdate(ctx, driverID)
		if err != nil {
			return err
		}

		signed := amount
		if kind == KindCharge {
			if !r.policy.AllowNegativeBalance && amount > d.Balance {
				return &InsufficientBalanceError{DriverID: d.ID, Balance: d.Balance, Requested: amount}
			}
			signed = -amount
		}

		d.Balance += signed
		d.LedgerSeq++
		if err := tx.UpdateDriver(ctx, d); err != nil {
			return err
		}

		entry := &LedgerEntry{
			DriverID:    d.ID,
			Seq:         d.LedgerSeq,
			Kind:        kind,
			Amount:      signed,
			Description: description,
			Barangay:    d.Barangay,
		}
		if err := tx.AppendLedger(ctx, entry); err != nil {
			return err
		}

		balance = d.Balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.LedgerEntriesTotal.WithLabelValues(string(kind)).Inc()
	return balance, nil
}
