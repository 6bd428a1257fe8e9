package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"toda-backend/internal/models"
)

// LedgerRepository is read-only. Ledger rows are appended exclusively by
// the reconciler inside its own transactions.
type LedgerRepository struct {
	DB *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{DB: db}
}

// List returns ledger entries matching the filter, newest first.
func (r *LedgerRepository) List(ctx context.Context, filter models.LedgerFilter) ([]*models.LedgerEntry, error) {
	query := `SELECT id, driver_id, seq, kind, amount, COALESCE(description, ''), barangay_id, created_at
		FROM ledger_entries`
	var conds []string
	var args []any

	if filter.DriverID != "" {
		args = append(args, filter.DriverID)
		conds = append(conds, fmt.Sprintf("driver_id=$%d", len(args)))
	}
	if filter.BarangayID != "" {
		args = append(args, filter.BarangayID)
		conds = append(conds, fmt.Sprintf("barangay_id=$%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conds = append(conds, fmt.Sprintf("kind=$%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.DriverID, &e.Seq, &e.Kind, &e.Amount, &e.Description, &e.BarangayID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// ForDriver returns one driver's ledger in seq order, oldest first.
func (r *LedgerRepository) ForDriver(ctx context.Context, driverID string) ([]*models.LedgerEntry, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, driver_id, seq, kind, amount, COALESCE(description, ''), barangay_id, created_at
         FROM ledger_entries WHERE driver_id=$1 ORDER BY seq`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.DriverID, &e.Seq, &e.Kind, &e.Amount, &e.Description, &e.BarangayID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// SummaryByDriver aggregates charges and recharges per driver for reports.
func (r *LedgerRepository) SummaryByDriver(ctx context.Context, start, end time.Time) ([]*models.LedgerSummary, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT d.id, d.name,
             COALESCE(SUM(CASE WHEN e.kind='CHARGE' THEN -e.amount ELSE 0 END), 0),
             COALESCE(SUM(CASE WHEN e.kind='RECHARGE' THEN e.amount ELSE 0 END), 0),
             d.balance,
             COUNT(e.id)
         FROM drivers d
         LEFT JOIN ledger_entries e
             ON e.driver_id = d.id AND e.created_at >= $1 AND e.created_at <= $2
         GROUP BY d.id, d.name, d.balance
         ORDER BY d.name`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*models.LedgerSummary
	for rows.Next() {
		var s models.LedgerSummary
		if err := rows.Scan(&s.DriverID, &s.DriverName, &s.TotalCharged, &s.TotalRecharged, &s.Balance, &s.EntryCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

// TotalsForRange returns centavos charged and recharged inside a window.
func (r *LedgerRepository) TotalsForRange(ctx context.Context, start, end time.Time) (charged, recharged int64, err error) {
	err = r.DB.QueryRow(ctx,
		`SELECT
             COALESCE(SUM(CASE WHEN kind='CHARGE' THEN -amount ELSE 0 END), 0),
             COALESCE(SUM(CASE WHEN kind='RECHARGE' THEN amount ELSE 0 END), 0)
         FROM ledger_entries
         WHERE created_at >= $1 AND created_at <= $2`, start, end,
	).Scan(&charged, &recharged)
	return charged, recharged, err
}
