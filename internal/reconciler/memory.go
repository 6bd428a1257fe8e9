package reconciler

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests. A single mutex serializes
// transactions; fn runs against a staged copy of the state which replaces
// the live state only on success, giving the same all-or-nothing behavior
// as the Postgres implementation.
type MemoryStore struct {
	mu          sync.Mutex
	drivers     map[string]Driver
	memberships map[string]Membership
	ledgers     map[string][]LedgerEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drivers:     make(map[string]Driver),
		memberships: make(map[string]Membership),
		ledgers:     make(map[string][]LedgerEntry),
	}
}

func (s *MemoryStore) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &memTx{
		drivers:     make(map[string]Driver, len(s.drivers)),
		memberships: make(map[string]Membership, len(s.memberships)),
		ledgers:     make(map[string][]LedgerEntry, len(s.ledgers)),
	}
	for k, v := range s.drivers {
		staged.drivers[k] = v
	}
	for k, v := range s.memberships {
		staged.memberships[k] = v
	}
	for k, v := range s.ledgers {
		staged.ledgers[k] = append([]LedgerEntry(nil), v...)
	}

	if err := fn(staged); err != nil {
		return err
	}

	s.drivers = staged.drivers
	s.memberships = staged.memberships
	s.ledgers = staged.ledgers
	return nil
}

// PutDriver seeds a driver outside any transaction.
func (s *MemoryStore) PutDriver(d Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[d.ID] = d
}

// GetDriver returns a copy of the driver state.
func (s *MemoryStore) GetDriver(id string) (Driver, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	return d, ok
}

// Ledger returns a copy of a driver's ledger in append order.
func (s *MemoryStore) Ledger(driverID string) []LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LedgerEntry(nil), s.ledgers[driverID]...)
}

// MembershipFor returns the driver's queue membership, if any.
func (s *MemoryStore) MembershipFor(driverID string) (Membership, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[driverID]
	return m, ok
}

type memTx struct {
	drivers     map[string]Driver
	memberships map[string]Membership
	ledgers     map[string][]LedgerEntry
}

func (t *memTx) DriverForUpdate(ctx context.Context, driverID string) (*Driver, error) {
	d, ok := t.drivers[driverID]
	if !ok {
		return nil, &NotFoundError{Kind: "driver", ID: driverID}
	}
	return &d, nil
}

func (t *memTx) UpdateDriver(ctx context.Context, d *Driver) error {
	t.drivers[d.ID] = *d
	return nil
}

func (t *memTx) AddMembership(ctx context.Context, m Membership) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	t.memberships[m.DriverID] = m
	return nil
}

func (t *memTx) RemoveMembership(ctx context.Context, driverID string) error {
	delete(t.memberships, driverID)
	return nil
}

func (t *memTx) AppendLedger(ctx context.Context, e *LedgerEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	t.ledgers[e.DriverID] = append(t.ledgers[e.DriverID], *e)
	return nil
}
