package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"toda-backend/internal/models"
)

type PassengerRepository struct {
	DB *pgxpool.Pool
}

func NewPassengerRepository(db *pgxpool.Pool) *PassengerRepository {
	return &PassengerRepository{DB: db}
}

func (r *PassengerRepository) Create(ctx context.Context, p *models.Passenger) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO passengers(id, name, email, phone_number)
         VALUES($1, $2, $3, $4)
         RETURNING created_at`,
		p.ID, p.Name, p.Email, p.PhoneNumber,
	).Scan(&p.CreatedAt)
}

func (r *PassengerRepository) Get(ctx context.Context, id string) (*models.Passenger, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, name, email, phone_number, created_at FROM passengers WHERE id=$1`, id)

	var p models.Passenger
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PhoneNumber, &p.CreatedAt)
	return &p, err
}

func (r *PassengerRepository) List(ctx context.Context, limit, offset int) ([]*models.Passenger, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, email, phone_number, created_at
         FROM passengers ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passengers []*models.Passenger
	for rows.Next() {
		var p models.Passenger
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.PhoneNumber, &p.CreatedAt); err != nil {
			return nil, err
		}
		passengers = append(passengers, &p)
	}
	return passengers, rows.Err()
}

func (r *PassengerRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM passengers WHERE id=$1`, id)
	return err
}

func (r *PassengerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM passengers`).Scan(&n)
	return n, err
}
