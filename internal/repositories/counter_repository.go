package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"toda-backend/internal/models"
)

// CounterRepository maintains the dashboard_counters projection table.
type CounterRepository struct {
	DB *pgxpool.Pool
}

func NewCounterRepository(db *pgxpool.Pool) *CounterRepository {
	return &CounterRepository{DB: db}
}

func (r *CounterRepository) Get(ctx context.Context, name string) (*models.Counter, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT name, value, updated_at FROM dashboard_counters WHERE name=$1`, name)

	var c models.Counter
	err := row.Scan(&c.Name, &c.Value, &c.UpdatedAt)
	return &c, err
}

// CompareAndSet writes value only if the stored value still equals old.
// Returns true when the write happened. Concurrent refreshers computing
// the same truth lose the race harmlessly.
func (r *CounterRepository) CompareAndSet(ctx context.Context, name string, old, value int64) (bool, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE dashboard_counters SET value=$1, updated_at=CURRENT_TIMESTAMP
         WHERE name=$2 AND value=$3`,
		value, name, old)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Set unconditionally overwrites a counter. Used by the periodic
// refresher where last-write-wins is acceptable.
func (r *CounterRepository) Set(ctx context.Context, name string, value int64) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO dashboard_counters(name, value)
         VALUES($1, $2)
         ON CONFLICT (name) DO UPDATE SET value=EXCLUDED.value, updated_at=CURRENT_TIMESTAMP`,
		name, value)
	return err
}
