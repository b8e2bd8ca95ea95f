package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/orderly-bite/internal/domain/order"
)

const (
	orderColumns = `id, user_id, customer, items, subtotal, discount, delivery_fee, total,
		promo_code, status, payment_method, eta_minutes, created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	lockOrderSQL = getOrderSQL + ` FOR UPDATE`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::text = '' OR user_id = $1::text)
		  AND ($2::text = '' OR status = $2::text)
		  AND ($3::text = '' OR id ILIKE '%' || $3::text || '%' OR customer ILIKE '%' || $3::text || '%')
		ORDER BY created_at DESC, id DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Items are stored as JSONB.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, o.Customer, items,
		o.Subtotal, o.Discount, o.DeliveryFee, o.Total,
		o.PromoCode, string(o.Status), string(o.PaymentMethod), int(o.ETA.Minutes()),
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

// Get returns a single order by ID.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

// List returns matching orders, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, f.UserID, string(f.Status), f.Search)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	out, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return out, nil
}

// Update locks the row, applies fn and writes the new status in one
// transaction.
func (r *OrderRepository) Update(ctx context.Context, id string, fn func(o *order.Order) error) (_ *order.Order, rerr error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}
	defer func() {
		if rerr != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	rows, err := tx.Query(ctx, lockOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "lock order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "lock order %q", id)
	}

	if err := fn(&o); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, updateOrderStatusSQL, id, string(o.Status), o.UpdatedAt); err != nil {
		return nil, errors.Wrapf(err, "update order %q", id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o       order.Order
		items   []byte
		status  string
		method  string
		etaMins int
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Customer, &items,
		&o.Subtotal, &o.Discount, &o.DeliveryFee, &o.Total,
		&o.PromoCode, &status, &method, &etaMins,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "scan order")
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return order.Order{}, errors.Wrap(err, "unmarshal order items")
	}
	o.Status = order.Status(status)
	o.PaymentMethod = order.PaymentMethod(method)
	o.ETA = time.Duration(etaMins) * time.Minute
	return o, nil
}
