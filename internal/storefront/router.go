// Package storefront assembles the storefront HTTP API.
package storefront

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joao-fontenele/studyshop/internal/auth"
	"github.com/joao-fontenele/studyshop/internal/catalog"
	"github.com/joao-fontenele/studyshop/internal/coupons"
	"github.com/joao-fontenele/studyshop/internal/httpapi"
	"github.com/joao-fontenele/studyshop/internal/orders"
)

type Router struct {
	Orders  *orders.Handler
	Coupons *coupons.Handler
	Catalog *catalog.Handler
	Auth    *auth.Authenticator
	Metrics http.Handler
	// Ready reports whether dependencies are reachable.
	Ready  func(ctx context.Context) error
	Logger *slog.Logger
}

func (rt Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httpapi.RequestLogger(rt.Logger))

	r.Get("/healthz", rt.handleHealth)
	if rt.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.Metrics)
	}

	r.Get("/products", rt.Catalog.HandleList)

	r.Group(func(r chi.Router) {
		r.Use(auth.Require(rt.Auth))

		r.Post("/orders", rt.Orders.HandleCreate)
		r.Get("/orders", rt.Orders.HandleListMine)
		r.Get("/orders/{id}", rt.Orders.HandleGet)
		r.Post("/coupons/validate", rt.Coupons.HandleValidate)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Get("/orders", rt.Orders.HandleListAll)
			r.Patch("/orders/{id}/status", rt.Orders.HandleUpdateStatus)
			r.Put("/orders/{id}", rt.Orders.HandleEdit)

			r.Get("/coupons", rt.Coupons.HandleList)
			r.Post("/coupons", rt.Coupons.HandleCreate)
			r.Get("/coupons/{id}", rt.Coupons.HandleGet)
			r.Put("/coupons/{id}", rt.Coupons.HandleUpdate)
			r.Delete("/coupons/{id}", rt.Coupons.HandleDelete)

			r.Get("/products", rt.Catalog.HandleListAll)
			r.Post("/products", rt.Catalog.HandleCreate)
			r.Put("/products/{id}", rt.Catalog.HandleUpdate)
			r.Delete("/products/{id}", rt.Catalog.HandleDelete)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpapi.WriteJSON(w, rt.Logger, http.StatusNotFound, httpapi.Envelope{Error: "Không tìm thấy đường dẫn"})
	})
	return r
}

func (rt Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.Ready(ctx); err != nil {
			rt.Logger.Error("health check failed", "error", err)
			httpapi.WriteJSON(w, rt.Logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	httpapi.WriteJSON(w, rt.Logger, http.StatusOK, map[string]string{"status": "ok"})
}
