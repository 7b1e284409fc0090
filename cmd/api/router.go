package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-laundry/internal/customer"
	"github.com/noah-isme/backend-laundry/internal/extraitem"
	"github.com/noah-isme/backend-laundry/internal/health"
	"github.com/noah-isme/backend-laundry/internal/order"
	"github.com/noah-isme/backend-laundry/internal/quote"
	"github.com/noah-isme/backend-laundry/internal/settings"
)

type httpMiddleware = func(http.Handler) http.Handler

type routes struct {
	Settings   *settings.Handler
	ExtraItems *extraitem.Handler
	Customers  *customer.Handler
	Quotes     *quote.Handler
	Orders     *order.Handler
	Health     health.Handler

	// Global runs on every request, in order. Idempotency guards write
	// routes and QuoteLimit throttles quote previews.
	Global      []httpMiddleware
	Idempotency httpMiddleware
	QuoteLimit  httpMiddleware
	Metrics     http.Handler
	Pprof       http.Handler
}

func passthrough(next http.Handler) http.Handler { return next }

func newRouter(rt routes) chi.Router {
	if rt.Idempotency == nil {
		rt.Idempotency = passthrough
	}
	if rt.QuoteLimit == nil {
		rt.QuoteLimit = passthrough
	}

	r := chi.NewRouter()
	for _, mw := range rt.Global {
		r.Use(mw)
	}
	if rt.Metrics != nil {
		r.Handle("/metrics", rt.Metrics)
	}
	if rt.Pprof != nil {
		r.Mount("/debug/pprof", rt.Pprof)
	}
	r.Get("/health/live", rt.Health.Live)
	r.Get("/health/ready", rt.Health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/settings", rt.Settings.Get)
		v.With(rt.Idempotency).Put("/settings", rt.Settings.Put)

		v.Route("/extra-items", func(e chi.Router) {
			e.Get("/", rt.ExtraItems.List)
			e.Group(func(g chi.Router) {
				g.Use(rt.Idempotency)
				g.Post("/", rt.ExtraItems.Create)
				g.Put("/{id}", rt.ExtraItems.Update)
			})
		})

		v.With(rt.QuoteLimit).Post("/quotes", rt.Quotes.Create)

		v.Route("/customers", func(c chi.Router) {
			c.Get("/{id}", rt.Customers.Get)
			c.Group(func(g chi.Router) {
				g.Use(rt.Idempotency)
				g.Post("/", rt.Customers.Create)
				g.Post("/{id}/credit", rt.Customers.AddCredit)
			})
		})

		v.Route("/orders", func(o chi.Router) {
			o.Get("/", rt.Orders.List)
			o.Get("/{id}", rt.Orders.Get)
			o.Get("/{id}/quote", rt.Orders.Quote)
			o.Group(func(g chi.Router) {
				g.Use(rt.Idempotency)
				g.Post("/", rt.Orders.Create)
				g.Put("/{id}", rt.Orders.Update)
				g.Patch("/{id}/status", rt.Orders.PatchStatus)
			})
		})
	})
	return r
}
