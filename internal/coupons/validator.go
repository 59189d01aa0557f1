// Package coupons validates and manages discount coupons.
package coupons

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

type Lookup interface {
	FindActiveByCode(ctx context.Context, code string) (*domain.Coupon, error)
}

// Quote is the outcome of a successful validation.
type Quote struct {
	Coupon   *domain.Coupon
	Discount int64
}

// Validator checks a coupon against an order subtotal. It never consumes a
// use; redemption happens when the order is committed.
type Validator struct {
	coupons Lookup
	now     func() time.Time
}

func NewValidator(coupons Lookup) *Validator {
	return &Validator{coupons: coupons, now: time.Now}
}

func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

func (v *Validator) Validate(ctx context.Context, code string, subtotal int64) (*Quote, error) {
	coupon, err := v.coupons.FindActiveByCode(ctx, domain.CanonicalCouponCode(code))
	if err != nil {
		return nil, errors.Wrap(err, "find coupon")
	}
	if coupon == nil || !coupon.Active {
		return nil, domain.ErrCouponInvalid
	}

	if coupon.Expired(v.now()) {
		return nil, domain.ErrCouponExpired
	}

	if coupon.Exhausted() {
		return nil, domain.ErrCouponExhausted
	}

	if coupon.MinOrderValue > 0 && subtotal < coupon.MinOrderValue {
		return nil, &domain.CouponBelowMinimumError{Minimum: coupon.MinOrderValue}
	}

	return &Quote{Coupon: coupon, Discount: coupon.Discount(subtotal)}, nil
}
