package orders

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

const orderColumns = `id, user_id, items, customer_info, subtotal, total, coupon_code,
		discount_amount, status, created_at, updated_at`

// Redeemer consumes a coupon use inside the order transaction.
type Redeemer interface {
	Redeem(ctx context.Context, tx *sql.Tx, couponID int64) error
}

type OrderRepository struct {
	db      *sql.DB
	coupons Redeemer
}

func NewOrderRepository(db *sql.DB, coupons Redeemer) *OrderRepository {
	return &OrderRepository{db: db, coupons: coupons}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order        domain.Order
		items        []byte
		customerInfo []byte
		couponCode   sql.NullString
	)
	err := row.Scan(&order.ID, &order.UserID, &items, &customerInfo, &order.Subtotal, &order.Total,
		&couponCode, &order.DiscountAmount, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, errors.Wrap(err, "decode items")
	}
	if err := json.Unmarshal(customerInfo, &order.CustomerInfo); err != nil {
		return nil, errors.Wrap(err, "decode customer info")
	}
	if couponCode.Valid {
		order.CouponCode = &couponCode.String
	}
	return &order, nil
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order, couponID *int64) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return errors.Wrap(err, "encode items")
	}
	customerInfo, err := json.Marshal(order.CustomerInfo)
	if err != nil {
		return errors.Wrap(err, "encode customer info")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if couponID != nil {
		if err := r.coupons.Redeem(ctx, tx, *couponID); err != nil {
			return err
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, items, customer_info, subtotal, total, coupon_code, discount_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, order.UserID, string(items), string(customerInfo), order.Subtotal, order.Total, order.CouponCode,
		order.DiscountAmount, order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return order, err
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

// List returns every order, optionally filtered by status.
func (r *OrderRepository) List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if status == "" {
		return r.query(ctx, `
			SELECT `+orderColumns+`
			FROM orders
			ORDER BY created_at DESC
		`)
	}
	return r.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1
		ORDER BY created_at DESC
	`, status)
}

func (r *OrderRepository) query(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// UpdateContents rewrites the item and customer snapshots together with the
// totals derived from them.
func (r *OrderRepository) UpdateContents(ctx context.Context, order *domain.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return errors.Wrap(err, "encode items")
	}
	customerInfo, err := json.Marshal(order.CustomerInfo)
	if err != nil {
		return errors.Wrap(err, "encode customer info")
	}

	err = r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET items = $2, customer_info = $3, subtotal = $4, total = $5, discount_amount = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, order.ID, string(items), string(customerInfo), order.Subtotal, order.Total, order.DiscountAmount,
	).Scan(&order.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
