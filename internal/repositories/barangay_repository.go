package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"toda-backend/internal/models"
)

type BarangayRepository struct {
	DB *pgxpool.Pool
}

func NewBarangayRepository(db *pgxpool.Pool) *BarangayRepository {
	return &BarangayRepository{DB: db}
}

func (r *BarangayRepository) Get(ctx context.Context, id string) (*models.Barangay, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, name, terminal_fee, fee_updated_at FROM barangays WHERE id=$1`, id)

	var b models.Barangay
	err := row.Scan(&b.ID, &b.Name, &b.TerminalFee, &b.FeeUpdatedAt)
	return &b, err
}

func (r *BarangayRepository) List(ctx context.Context) ([]*models.Barangay, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, terminal_fee, fee_updated_at FROM barangays ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var barangays []*models.Barangay
	for rows.Next() {
		var b models.Barangay
		if err := rows.Scan(&b.ID, &b.Name, &b.TerminalFee, &b.FeeUpdatedAt); err != nil {
			return nil, err
		}
		barangays = append(barangays, &b)
	}
	return barangays, nil
}

// UpdateTerminalFee sets a new fee in centavos for one barangay.
func (r *BarangayRepository) UpdateTerminalFee(ctx context.Context, id string, fee int64) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE barangays SET terminal_fee=$1, fee_updated_at=CURRENT_TIMESTAMP WHERE id=$2`,
		fee, id)
	return err
}
