package domain

import "time"

// ReceiptRequested is published after an order is persisted. Consumers
// render the invoice and notify the customer and the shop admin.
type ReceiptRequested struct {
	EventID        string       `json:"event_id"`
	OrderID        int64        `json:"order_id"`
	UserID         string       `json:"user_id"`
	Items          []CartItem   `json:"items"`
	CustomerInfo   CustomerInfo `json:"customer_info"`
	Subtotal       int64        `json:"subtotal"`
	DiscountAmount int64        `json:"discount_amount"`
	CouponCode     string       `json:"coupon_code,omitempty"`
	Total          int64        `json:"total"`
	Timestamp      time.Time    `json:"timestamp"`
}
