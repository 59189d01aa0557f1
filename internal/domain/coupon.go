package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

type Coupon struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	DiscountType  DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	MinOrderValue int64           `json:"min_order_value"`
	MaxUses       *int            `json:"max_uses"`
	UsedCount     int             `json:"used_count"`
	ExpiresAt     *time.Time      `json:"expires_at"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CanonicalCouponCode is the stored form of a coupon code.
func CanonicalCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

func (c *Coupon) Exhausted() bool {
	return c.MaxUses != nil && c.UsedCount >= *c.MaxUses
}

// Discount computes the discount for subtotal, never exceeding it.
// Percentages are rounded half away from zero to a whole currency unit.
func (c *Coupon) Discount(subtotal int64) int64 {
	var discount int64
	switch c.DiscountType {
	case DiscountPercentage:
		discount = decimal.NewFromInt(subtotal).
			Mul(c.DiscountValue).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	case DiscountFixed:
		discount = c.DiscountValue.Round(0).IntPart()
	}

	if discount < 0 {
		return 0
	}
	return min(discount, subtotal)
}
