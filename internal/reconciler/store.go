package reconciler

import (
	"context"
	"time"
)

// Direction of a queue event.
type Direction string

const (
	DirectionEnter Direction = "enter"
	DirectionExit  Direction = "exit"
)

// Kind classifies a ledger entry.
type Kind string

const (
	KindQueueEntry Kind = "QUEUE_ENTRY"
	KindQueueExit  Kind = "QUEUE_EXIT"
	KindCharge     Kind = "CHARGE"
	KindRecharge   Kind = "RECHARGE"
)

// Driver is the reconciler's view of a driver row: the fields it is allowed
// to mutate plus the zone assignment it validates against. Amounts are in
// centavos.
type Driver struct {
	ID        string
	Barangay  string
	Balance   int64
	InQueue   bool
	LedgerSeq int64
}

// LedgerEntry is one immutable fact in a driver's transaction log. Seq is
// monotonic per driver; Amount carries sign (negative for charges, zero for
// queue events).
type LedgerEntry struct {
	DriverID    string
	Seq         int64
	Kind        Kind
	Amount      int64
	Description string
	Barangay    string
	CreatedAt   time.Time
}

// Membership is one driver's presence in one barangay queue.
type Membership struct {
	DriverID string
	Barangay string
	JoinedAt time.Time
}

// Tx is the set of writes available inside one atomic unit. Implementations
// must apply all of them or none.
type Tx interface {
	// DriverForUpdate loads the driver row and holds it exclusively until
	// the transaction ends. Returns *NotFoundError for unknown ids.
	DriverForUpdate(ctx context.Context, driverID string) (*Driver, error)

	// UpdateDriver writes back the mutable fields (balance, in_queue,
	// ledger_seq) of a driver previously loaded with DriverForUpdate.
	UpdateDriver(ctx context.Context, d *Driver) error

	AddMembership(ctx context.Context, m Membership) error
	RemoveMembership(ctx context.Context, driverID string) error

	// AppendLedger inserts the entry and fills CreatedAt with the
	// store-assigned timestamp.
	AppendLedger(ctx context.Context, e *LedgerEntry) error
}

// Store runs a function inside a transaction. If fn returns an error the
// transaction is rolled back and that error is returned unchanged; commit
// failures surface as *StorageError.
type Store interface {
	Atomically(ctx context.Context, fn func(tx Tx) error) error
}
