package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joao-fontenele/studyshop/internal/domain"
	"github.com/joao-fontenele/studyshop/internal/httpapi"
	"github.com/joao-fontenele/studyshop/internal/validation"
)

type Store interface {
	List(ctx context.Context, category domain.Category, activeOnly bool) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
}

type Handler struct {
	store  Store
	check  *validation.Validator
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		check:  validation.New(),
		logger: logger,
	}
}

// HandleList is the public catalog: active products only.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	category := domain.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		h.writeError(w, domain.NewValidationError("category", "Danh mục không hợp lệ"))
		return
	}

	products, err := h.store.List(r.Context(), category, activeOnly)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("products listed", "category", category, "count", len(products))
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "products": products})
}

type productInput struct {
	Code        string          `json:"code" validate:"required,max=50"`
	Name        string          `json:"name" validate:"required,max=200"`
	Price       int64           `json:"price" validate:"gte=0"`
	Category    domain.Category `json:"category" validate:"required,oneof=course document english coursera"`
	Description string          `json:"description" validate:"max=2000"`
	Active      *bool           `json:"active"`
}

func (in *productInput) apply(p *domain.Product) {
	p.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	p.Name = strings.TrimSpace(in.Name)
	p.Price = in.Price
	p.Category = in.Category
	p.Description = in.Description
	if in.Active != nil {
		p.Active = *in.Active
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*productInput, bool) {
	var in productInput
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		h.writeError(w, err)
		return nil, false
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := h.check.Struct(in); err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return &in, true
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	product := &domain.Product{Active: true}
	in.apply(product)

	if err := h.store.Create(r.Context(), product); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "code", product.Code)
	h.writeJSON(w, http.StatusCreated, map[string]any{"success": true, "product": product})
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	product, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if product == nil {
		h.writeError(w, domain.ErrNotFound)
		return
	}

	in.apply(product)
	if err := h.store.Update(r.Context(), product); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("product updated", "product_id", id)
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "product": product})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("product deleted", "product_id", id)
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, domain.NewValidationError("id", "Mã sản phẩm không hợp lệ"))
		return 0, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	httpapi.WriteJSON(w, h.logger, status, data)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	httpapi.WriteError(w, h.logger, err, "")
}
