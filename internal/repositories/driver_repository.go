package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"toda-backend/internal/models"
)

// DriverRepository reads and writes driver profile rows. The balance,
// in_queue and ledger_seq columns are projections maintained by the
// reconciler; this repository never updates them.
type DriverRepository struct {
	DB *pgxpool.Pool
}

func NewDriverRepository(db *pgxpool.Pool) *DriverRepository {
	return &DriverRepository{DB: db}
}

const driverColumns = `id, email, name, operator_name, barangay_id, tricycle_number,
	phone_number, plate_number_text, COALESCE(profile_image_url, ''), COALESCE(plate_image_url, ''),
	balance, in_queue, ledger_seq, created_at, updated_at`

func scanDriver(row interface{ Scan(...any) error }) (*models.Driver, error) {
	var d models.Driver
	err := row.Scan(&d.ID, &d.Email, &d.Name, &d.OperatorName, &d.BarangayID,
		&d.TricycleNumber, &d.PhoneNumber, &d.PlateNumberText,
		&d.ProfileImageURL, &d.PlateImageURL,
		&d.Balance, &d.InQueue, &d.LedgerSeq, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DriverRepository) Create(ctx context.Context, d *models.Driver) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO drivers(id, email, name, operator_name, barangay_id, tricycle_number,
             phone_number, plate_number_text, profile_image_url, plate_image_url, balance)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
         RETURNING created_at, updated_at`,
		d.ID, d.Email, d.Name, d.OperatorName, d.BarangayID, d.TricycleNumber,
		d.PhoneNumber, d.PlateNumberText, d.ProfileImageURL, d.PlateImageURL, d.Balance,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *DriverRepository) Get(ctx context.Context, id string) (*models.Driver, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+driverColumns+` FROM drivers WHERE id=$1`, id)
	return scanDriver(row)
}

// GetByEmail looks a driver up by login email, as the admin recharge form
// identifies drivers by email rather than id.
func (r *DriverRepository) GetByEmail(ctx context.Context, email string) (*models.Driver, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+driverColumns+` FROM drivers WHERE email=$1`, email)
	return scanDriver(row)
}

// ExistsByIdentity checks the uniqueness constraints enforced before
// registration: plate number, and the (name, operator) pair.
func (r *DriverRepository) ExistsByIdentity(ctx context.Context, plateNumber, name, operatorName string) (plateTaken, pairTaken bool, err error) {
	err = r.DB.QueryRow(ctx,
		`SELECT
             EXISTS(SELECT 1 FROM drivers WHERE plate_number_text=$1),
             EXISTS(SELECT 1 FROM drivers WHERE name=$2 AND operator_name=$3)`,
		plateNumber, name, operatorName,
	).Scan(&plateTaken, &pairTaken)
	return plateTaken, pairTaken, err
}

// List returns drivers matching the filter, newest first.
func (r *DriverRepository) List(ctx context.Context, filter models.DriverFilter) ([]*models.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers`
	var conds []string
	var args []any

	if filter.BarangayID != "" {
		args = append(args, filter.BarangayID)
		conds = append(conds, fmt.Sprintf("barangay_id=$%d", len(args)))
	}
	if filter.InQueue != nil {
		args = append(args, *filter.InQueue)
		conds = append(conds, fmt.Sprintf("in_queue=$%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR plate_number_text ILIKE $%d OR tricycle_number ILIKE $%d)", n, n, n))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*models.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}

// Update edits profile fields only.
func (r *DriverRepository) Update(ctx context.Context, d *models.Driver) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE drivers SET name=$1, operator_name=$2, barangay_id=$3, tricycle_number=$4,
             phone_number=$5, plate_number_text=$6, updated_at=CURRENT_TIMESTAMP
         WHERE id=$7`,
		d.Name, d.OperatorName, d.BarangayID, d.TricycleNumber,
		d.PhoneNumber, d.PlateNumberText, d.ID)
	return err
}

func (r *DriverRepository) UpdateImageURLs(ctx context.Context, id, profileURL, plateURL string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE drivers SET profile_image_url=$1, plate_image_url=$2, updated_at=CURRENT_TIMESTAMP
         WHERE id=$3`,
		profileURL, plateURL, id)
	return err
}

// Delete removes the driver row; memberships and ledger rows go with it
// via ON DELETE CASCADE.
func (r *DriverRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM drivers WHERE id=$1`, id)
	return err
}

func (r *DriverRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM drivers`).Scan(&n)
	return n, err
}

// QueueForBarangay returns the live queue in arrival order.
func (r *DriverRepository) QueueForBarangay(ctx context.Context, barangayID string) ([]*models.QueuedDriver, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT m.driver_id, d.name, d.tricycle_number, d.plate_number_text, m.barangay_id, m.joined_at
         FROM queue_memberships m
         JOIN drivers d ON d.id = m.driver_id
         WHERE m.barangay_id = $1
         ORDER BY m.joined_at`, barangayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queue []*models.QueuedDriver
	for rows.Next() {
		var q models.QueuedDriver
		if err := rows.Scan(&q.DriverID, &q.Name, &q.TricycleNumber, &q.PlateNumber, &q.BarangayID, &q.JoinedAt); err != nil {
			return nil, err
		}
		queue = append(queue, &q)
	}
	return queue, rows.Err()
}

// QueuedCounts returns the number of queued drivers per barangay.
func (r *DriverRepository) QueuedCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT barangay_id, COUNT(*) FROM queue_memberships GROUP BY barangay_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
