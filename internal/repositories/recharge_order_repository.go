package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"toda-backend/internal/models"
)

type RechargeOrderRepository struct {
	DB *pgxpool.Pool
}

func NewRechargeOrderRepository(db *pgxpool.Pool) *RechargeOrderRepository {
	return &RechargeOrderRepository{DB: db}
}

func (r *RechargeOrderRepository) Create(ctx context.Context, o *models.RechargeOrder) error {
	if o.Status == "" {
		o.Status = models.RechargeStatusPending
	}
	return r.DB.QueryRow(ctx,
		`INSERT INTO recharge_orders(order_id, driver_id, amount, status)
         VALUES($1, $2, $3, $4)
         RETURNING id, created_at, updated_at`,
		o.OrderID, o.DriverID, o.Amount, o.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (r *RechargeOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*models.RechargeOrder, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, order_id, driver_id, amount, status, COALESCE(payment_id, ''), created_at, updated_at
         FROM recharge_orders WHERE order_id=$1`, orderID)

	var o models.RechargeOrder
	err := row.Scan(&o.ID, &o.OrderID, &o.DriverID, &o.Amount, &o.Status, &o.PaymentID, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

// MarkSuccess transitions a pending order to success exactly once.
// Returns false if the order was already settled, which makes webhook
// retries idempotent.
func (r *RechargeOrderRepository) MarkSuccess(ctx context.Context, orderID, paymentID string) (bool, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE recharge_orders SET status=$1, payment_id=$2, updated_at=CURRENT_TIMESTAMP
         WHERE order_id=$3 AND status=$4`,
		models.RechargeStatusSuccess, paymentID, orderID, models.RechargeStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ReopenForRetry moves a settled order back to pending. Used when the
// ledger credit failed after the order was claimed, so that the gateway's
// webhook retry attempts the credit again.
func (r *RechargeOrderRepository) ReopenForRetry(ctx context.Context, orderID string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE recharge_orders SET status=$1, payment_id='', updated_at=CURRENT_TIMESTAMP
         WHERE order_id=$2 AND status=$3`,
		models.RechargeStatusPending, orderID, models.RechargeStatusSuccess)
	return err
}

func (r *RechargeOrderRepository) MarkFailed(ctx context.Context, orderID string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE recharge_orders SET status=$1, updated_at=CURRENT_TIMESTAMP
         WHERE order_id=$2 AND status=$3`,
		models.RechargeStatusFailed, orderID, models.RechargeStatusPending)
	return err
}

func (r *RechargeOrderRepository) ListForDriver(ctx context.Context, driverID string, limit int) ([]*models.RechargeOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx,
		`SELECT id, order_id, driver_id, amount, status, COALESCE(payment_id, ''), created_at, updated_at
         FROM recharge_orders WHERE driver_id=$1 ORDER BY created_at DESC LIMIT $2`,
		driverID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.RechargeOrder
	for rows.Next() {
		var o models.RechargeOrder
		if err := rows.Scan(&o.ID, &o.OrderID, &o.DriverID, &o.Amount, &o.Status, &o.PaymentID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}
