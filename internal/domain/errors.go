package domain

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("validation failed")
	ErrCouponInvalid      = errors.New("coupon invalid")
	ErrCouponExpired      = errors.New("coupon expired")
	ErrCouponExhausted    = errors.New("coupon exhausted")
	ErrCouponBelowMinimum = errors.New("coupon below minimum order value")
	ErrPersistenceFailed  = errors.New("persistence failed")
	ErrDeliveryFailed     = errors.New("delivery failed")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries per-field failures. It matches ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// CouponBelowMinimumError matches ErrCouponBelowMinimum and reports the
// minimum order value the coupon requires.
type CouponBelowMinimumError struct {
	Minimum int64
}

func (e *CouponBelowMinimumError) Error() string {
	return fmt.Sprintf("coupon requires a minimum order of %s", FormatVND(e.Minimum))
}

func (e *CouponBelowMinimumError) Is(target error) bool {
	return target == ErrCouponBelowMinimum
}
