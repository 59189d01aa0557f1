// Package httpapi holds the JSON envelope and middleware shared by the
// storefront handlers.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

const MessageInternal = "Không thể xử lý yêu cầu, vui lòng thử lại sau"

type Envelope struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Details []domain.FieldError `json:"details,omitempty"`
}

// Problem maps err onto a status code and user-facing message. Errors the
// caller cannot act on collapse to fallback.
func Problem(err error, fallback string) (int, Envelope) {
	env := Envelope{Success: false}

	var verr *domain.ValidationError
	var minErr *domain.CouponBelowMinimumError
	switch {
	case errors.As(err, &verr):
		env.Error = "Dữ liệu không hợp lệ"
		env.Details = verr.Fields
		return http.StatusBadRequest, env
	case errors.As(err, &minErr):
		env.Error = "Đơn hàng tối thiểu " + domain.FormatVND(minErr.Minimum) + " để sử dụng mã giảm giá này"
		return http.StatusBadRequest, env
	case errors.Is(err, domain.ErrUnauthorized):
		env.Error = "Bạn cần đăng nhập để thực hiện thao tác này"
		return http.StatusUnauthorized, env
	case errors.Is(err, domain.ErrForbidden):
		env.Error = "Bạn không có quyền truy cập"
		return http.StatusForbidden, env
	case errors.Is(err, domain.ErrCouponInvalid):
		env.Error = "Mã giảm giá không hợp lệ hoặc đã bị vô hiệu hóa"
		return http.StatusBadRequest, env
	case errors.Is(err, domain.ErrCouponExpired):
		env.Error = "Mã giảm giá đã hết hạn"
		return http.StatusBadRequest, env
	case errors.Is(err, domain.ErrCouponExhausted):
		env.Error = "Mã giảm giá đã hết lượt sử dụng"
		return http.StatusBadRequest, env
	case errors.Is(err, domain.ErrNotFound):
		env.Error = "Không tìm thấy dữ liệu"
		return http.StatusNotFound, env
	case errors.Is(err, domain.ErrConflict):
		env.Error = "Dữ liệu đã tồn tại"
		return http.StatusConflict, env
	}

	if fallback == "" {
		fallback = MessageInternal
	}
	env.Error = fallback
	return http.StatusInternalServerError, env
}

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// WriteError logs server-side failures and writes the error envelope.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	status, env := Problem(err, fallback)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}
	WriteJSON(w, logger, status, env)
}

// DecodeJSON decodes the request body into v; malformed bodies become
// validation errors.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidationError("body", "Dữ liệu gửi lên không đúng định dạng JSON")
	}
	return nil
}
