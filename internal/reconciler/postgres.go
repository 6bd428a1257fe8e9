package reconciler

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a pgx connection pool. The driver row
// lock taken by DriverForUpdate is the unit of mutual exclusion for one
// event; events for unrelated drivers run fully in parallel.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &StorageError{Op: "begin", Err: err}
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return &StorageError{Op: "commit", Err: err}
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) DriverForUpdate(ctx context.Context, driverID string) (*Driver, error) {
	var d Driver
	err := t.tx.QueryRow(ctx, `
		SELECT id, barangay_id, balance, in_queue, ledger_seq
		FROM drivers
		WHERE id = $1
		FOR UPDATE
	`, driverID).Scan(&d.ID, &d.Barangay, &d.Balance, &d.InQueue, &d.LedgerSeq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "driver", ID: driverID}
		}
		return nil, &StorageError{Op: "load driver", Err: err}
	}
	return &d, nil
}

func (t *pgTx) UpdateDriver(ctx context.Context, d *Driver) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE drivers
		SET balance = $2, in_queue = $3, ledger_seq = $4, updated_at = NOW()
		WHERE id = $1
	`, d.ID, d.Balance, d.InQueue, d.LedgerSeq)
	if err != nil {
		return &StorageError{Op: "update driver", Err: err}
	}
	return nil
}

func (t *pgTx) AddMembership(ctx context.Context, m Membership) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO queue_memberships (driver_id, barangay_id)
		VALUES ($1, $2)
	`, m.DriverID, m.Barangay)
	if err != nil {
		return &StorageError{Op: "add membership", Err: err}
	}
	return nil
}

func (t *pgTx) RemoveMembership(ctx context.Context, driverID string) error {
	_, err := t.tx.Exec(ctx, `
		DELETE FROM queue_memberships WHERE driver_id = $1
	`, driverID)
	if err != nil {
		return &StorageError{Op: "remove membership", Err: err}
	}
	return nil
}

func (t *pgTx) AppendLedger(ctx context.Context, e *LedgerEntry) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (driver_id, seq, kind, amount, description, barangay_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, e.DriverID, e.Seq, e.Kind, e.Amount, e.Description, e.Barangay).Scan(&e.CreatedAt)
	if err != nil {
		return &StorageError{Op: "append ledger", Err: err}
	}
	return nil
}
