package orders

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/joao-fontenele/studyshop/internal/auth"
	"github.com/joao-fontenele/studyshop/internal/domain"
	"github.com/joao-fontenele/studyshop/internal/httpapi"
)

const messageCreateFailed = "Không thể tạo đơn hàng, vui lòng thử lại sau"

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthorized, "")
		return
	}

	var in CreateOrderInput
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		h.writeError(w, err, "")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), identity.UserID, in)
	if err != nil {
		h.writeError(w, err, messageCreateFailed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": order})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, domain.NewValidationError("id", "Mã đơn hàng không hợp lệ"), "")
		return
	}

	order, err := h.service.GetOrder(r.Context(), identity.UserID, identity.IsAdmin(), id)
	if err != nil {
		h.writeError(w, err, "")
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": order})
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	orders, err := h.service.ListOrders(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, err, "")
		return
	}

	h.logger.Info("orders listed", "user_id", identity.UserID, "count", len(orders))
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": orders})
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))

	orders, err := h.service.ListAll(r.Context(), status)
	if err != nil {
		h.writeError(w, err, "")
		return
	}

	h.logger.Info("orders listed", "status", status, "count", len(orders))
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": orders})
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, domain.NewValidationError("id", "Mã đơn hàng không hợp lệ"), "")
		return
	}

	var req updateStatusRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		h.writeError(w, err, "")
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeError(w, err, "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": order})
}

func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, domain.NewValidationError("id", "Mã đơn hàng không hợp lệ"), "")
		return
	}

	var in EditOrderInput
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		h.writeError(w, err, "")
		return
	}

	order, err := h.service.EditOrder(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err, "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": order})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	httpapi.WriteJSON(w, h.logger, status, data)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	httpapi.WriteError(w, h.logger, err, fallback)
}
