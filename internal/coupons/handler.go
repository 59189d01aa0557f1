package coupons

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/studyshop/internal/domain"
	"github.com/joao-fontenele/studyshop/internal/httpapi"
	"github.com/joao-fontenele/studyshop/internal/validation"
)

// Store is the persistence the admin endpoints need.
type Store interface {
	List(ctx context.Context) ([]domain.Coupon, error)
	GetByID(ctx context.Context, id int64) (*domain.Coupon, error)
	Create(ctx context.Context, c *domain.Coupon) error
	Update(ctx context.Context, c *domain.Coupon) error
	Delete(ctx context.Context, id int64) error
}

type Handler struct {
	validator *Validator
	store     Store
	check     *validation.Validator
	logger    *slog.Logger
}

func NewHandler(validator *Validator, store Store, logger *slog.Logger) *Handler {
	return &Handler{
		validator: validator,
		store:     store,
		check:     validation.New(),
		logger:    logger,
	}
}

type validateRequest struct {
	CouponCode string `json:"couponCode" validate:"required,max=50"`
	OrderTotal int64  `json:"orderTotal" validate:"gt=0,lte=100000000"`
}

type couponQuote struct {
	Code          string              `json:"code"`
	Discount      int64               `json:"discount"`
	DiscountType  domain.DiscountType `json:"discountType"`
	DiscountValue float64             `json:"discountValue"`
}

func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.check.Struct(req); err != nil {
		h.writeError(w, err)
		return
	}

	quote, err := h.validator.Validate(r.Context(), req.CouponCode, req.OrderTotal)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("coupon validated", "code", quote.Coupon.Code, "discount", quote.Discount)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"coupon": couponQuote{
			Code:          quote.Coupon.Code,
			Discount:      quote.Discount,
			DiscountType:  quote.Coupon.DiscountType,
			DiscountValue: quote.Coupon.DiscountValue.InexactFloat64(),
		},
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.store.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("coupons listed", "count", len(coupons))
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "coupons": coupons})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	coupon, ok := h.load(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "coupon": coupon})
}

type couponInput struct {
	Code          string              `json:"code" validate:"required,max=50"`
	DiscountType  domain.DiscountType `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue decimal.Decimal     `json:"discount_value"`
	MinOrderValue int64               `json:"min_order_value" validate:"gte=0"`
	MaxUses       *int                `json:"max_uses" validate:"omitempty,gt=0"`
	ExpiresAt     *time.Time          `json:"expires_at"`
	Active        *bool               `json:"active"`
}

func (in couponInput) check(v *validation.Validator) error {
	if err := v.Struct(in); err != nil {
		return err
	}
	if !in.DiscountValue.IsPositive() {
		return domain.NewValidationError("discount_value", "Giá trị giảm phải lớn hơn 0")
	}
	if in.DiscountType == domain.DiscountPercentage && in.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return domain.NewValidationError("discount_value", "Phần trăm giảm tối đa là 100")
	}
	return nil
}

func (in couponInput) apply(c *domain.Coupon) {
	c.Code = domain.CanonicalCouponCode(in.Code)
	c.DiscountType = in.DiscountType
	c.DiscountValue = in.DiscountValue
	c.MinOrderValue = in.MinOrderValue
	c.MaxUses = in.MaxUses
	c.ExpiresAt = in.ExpiresAt
	if in.Active != nil {
		c.Active = *in.Active
	}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in couponInput
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	if err := in.check(h.check); err != nil {
		h.writeError(w, err)
		return
	}

	coupon := &domain.Coupon{Active: true}
	in.apply(coupon)

	if err := h.store.Create(r.Context(), coupon); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("coupon created", "coupon_id", coupon.ID, "code", coupon.Code)
	h.writeJSON(w, http.StatusCreated, map[string]any{"success": true, "coupon": coupon})
}

// nullable records whether a JSON field was sent at all, so that an explicit
// null can clear a value while an absent field leaves it untouched.
type nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// updateRequest is a partial update: only the fields present are applied.
type updateRequest struct {
	Code          *string              `json:"code"`
	DiscountType  *domain.DiscountType `json:"discount_type"`
	DiscountValue *decimal.Decimal     `json:"discount_value"`
	MinOrderValue *int64               `json:"min_order_value"`
	MaxUses       nullable[int]        `json:"max_uses"`
	ExpiresAt     nullable[time.Time]  `json:"expires_at"`
	Active        *bool                `json:"active"`
	ResetUsage    bool                 `json:"reset_used_count"`
}

// merge overlays the request on the stored coupon.
func (req updateRequest) merge(c domain.Coupon) couponInput {
	in := couponInput{
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
		MinOrderValue: c.MinOrderValue,
		MaxUses:       c.MaxUses,
		ExpiresAt:     c.ExpiresAt,
		Active:        &c.Active,
	}
	if req.Code != nil {
		in.Code = *req.Code
	}
	if req.DiscountType != nil {
		in.DiscountType = *req.DiscountType
	}
	if req.DiscountValue != nil {
		in.DiscountValue = *req.DiscountValue
	}
	if req.MinOrderValue != nil {
		in.MinOrderValue = *req.MinOrderValue
	}
	if req.MaxUses.Set {
		in.MaxUses = req.MaxUses.Value
	}
	if req.ExpiresAt.Set {
		in.ExpiresAt = req.ExpiresAt.Value
	}
	if req.Active != nil {
		in.Active = req.Active
	}
	return in
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	coupon, ok := h.load(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	in := req.merge(*coupon)
	if err := in.check(h.check); err != nil {
		h.writeError(w, err)
		return
	}

	in.apply(coupon)
	if req.ResetUsage {
		coupon.UsedCount = 0
	}

	if err := h.store.Update(r.Context(), coupon); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("coupon updated", "coupon_id", coupon.ID, "code", coupon.Code, "active", coupon.Active)
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "coupon": coupon})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, domain.NewValidationError("id", "Mã không hợp lệ"))
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("coupon deleted", "coupon_id", id)
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*domain.Coupon, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, domain.NewValidationError("id", "Mã không hợp lệ"))
		return nil, false
	}

	coupon, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	if coupon == nil {
		h.writeError(w, domain.ErrNotFound)
		return nil, false
	}
	return coupon, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	httpapi.WriteJSON(w, h.logger, status, data)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	httpapi.WriteError(w, h.logger, err, "")
}
