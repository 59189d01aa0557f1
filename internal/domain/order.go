package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type Category string

const (
	CategoryCourse   Category = "course"
	CategoryDocument Category = "document"
	CategoryEnglish  Category = "english"
	CategoryCoursera Category = "coursera"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCourse, CategoryDocument, CategoryEnglish, CategoryCoursera:
		return true
	}
	return false
}

// ItemID is a cart item identifier. Clients send either a number or a
// string; it is always stored and re-encoded as a string.
type ItemID string

func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ItemID(n.String())
	return nil
}

// CartItem is a cart line snapshot. Price is what the line costs; Quantity
// is carried for display only and does not multiply Price.
type CartItem struct {
	ID       ItemID   `json:"id" validate:"required"`
	Code     string   `json:"code,omitempty" validate:"omitempty,max=50"`
	Name     string   `json:"name" validate:"required,min=1,max=200"`
	Price    int64    `json:"price" validate:"gte=0"`
	Category Category `json:"category" validate:"required,oneof=course document english coursera"`
	Quantity *int     `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Label    string   `json:"label,omitempty" validate:"omitempty,max=200"`
}

// Units is the item quantity, defaulting to one when unset.
func (i CartItem) Units() int64 {
	if i.Quantity == nil {
		return 1
	}
	return int64(*i.Quantity)
}

type CustomerInfo struct {
	Name      string `json:"name" validate:"required,min=1,max=100"`
	StudentID string `json:"studentId" validate:"required,min=1,max=20,alphanum"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Note      string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// Normalize trims the free-text fields. The student id is left as sent so a
// padded id fails the alphanum rule instead of being silently repaired.
func (c CustomerInfo) Normalize() CustomerInfo {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Note = strings.TrimSpace(c.Note)
	return c
}

type Order struct {
	ID             int64        `json:"id"`
	UserID         string       `json:"user_id"`
	Items          []CartItem   `json:"items"`
	CustomerInfo   CustomerInfo `json:"customer_info"`
	Subtotal       int64        `json:"subtotal"`
	Total          int64        `json:"total"`
	CouponCode     *string      `json:"coupon_code"`
	DiscountAmount int64        `json:"discount_amount"`
	Status         OrderStatus  `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Subtotal sums the item prices.
func Subtotal(items []CartItem) int64 {
	var sum int64
	for _, item := range items {
		sum += item.Price
	}
	return sum
}

// Reprice recomputes Subtotal and Total from Items, clamping the discount so
// that Total = Subtotal - DiscountAmount never goes negative.
func (o *Order) Reprice() {
	o.Subtotal = Subtotal(o.Items)
	if o.DiscountAmount > o.Subtotal {
		o.DiscountAmount = o.Subtotal
	}
	if o.DiscountAmount < 0 {
		o.DiscountAmount = 0
	}
	o.Total = o.Subtotal - o.DiscountAmount
}
