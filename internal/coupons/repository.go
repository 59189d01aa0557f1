package coupons

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
	"github.com/lib/pq"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

const couponColumns = `id, code, discount_type, discount_value, min_order_value, max_uses,
		used_count, expires_at, active, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(row rowScanner) (*domain.Coupon, error) {
	var (
		c         domain.Coupon
		maxUses   sql.NullInt64
		expiresAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.MinOrderValue, &maxUses,
		&c.UsedCount, &expiresAt, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if maxUses.Valid {
		n := int(maxUses.Int64)
		c.MaxUses = &n
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		c.ExpiresAt = &t
	}
	return &c, nil
}

// FindActiveByCode matches code case-insensitively. It returns nil when no
// active coupon has that code.
func (r *Repository) FindActiveByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c, err := scanCoupon(r.db.QueryRowContext(ctx, `
		SELECT `+couponColumns+`
		FROM coupons
		WHERE LOWER(code) = LOWER($1) AND active
	`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Coupon, error) {
	c, err := scanCoupon(r.db.QueryRowContext(ctx, `
		SELECT `+couponColumns+`
		FROM coupons
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *Repository) List(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+couponColumns+`
		FROM coupons
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	coupons := []domain.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}

	return coupons, rows.Err()
}

func (r *Repository) Create(ctx context.Context, c *domain.Coupon) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO coupons (code, discount_type, discount_value, min_order_value, max_uses, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, used_count, created_at, updated_at
	`, c.Code, c.DiscountType, c.DiscountValue, c.MinOrderValue, nullInt(c.MaxUses), c.ExpiresAt, c.Active,
	).Scan(&c.ID, &c.UsedCount, &c.CreatedAt, &c.UpdatedAt)
	return mapConstraint(err)
}

// Update writes the admin-editable fields, including used_count so that an
// admin can reset it.
func (r *Repository) Update(ctx context.Context, c *domain.Coupon) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE coupons
		SET code = $2, discount_type = $3, discount_value = $4, min_order_value = $5,
		    max_uses = $6, used_count = $7, expires_at = $8, active = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, c.ID, c.Code, c.DiscountType, c.DiscountValue, c.MinOrderValue, nullInt(c.MaxUses),
		c.UsedCount, c.ExpiresAt, c.Active,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return mapConstraint(err)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Redeem consumes one use of the coupon inside tx. The increment only
// applies while the coupon is active and under its limit, so concurrent
// redemptions cannot overshoot max_uses.
func (r *Repository) Redeem(ctx context.Context, tx *sql.Tx, id int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND active AND (max_uses IS NULL OR used_count < max_uses)
	`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrCouponExhausted
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func mapConstraint(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505":
		return errors.Wrap(domain.ErrConflict, pqErr.Constraint)
	case "23514":
		return domain.NewValidationError("max_uses", "Số lượt tối đa không được nhỏ hơn số lượt đã dùng")
	}
	return err
}
