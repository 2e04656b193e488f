// Package server assembles the HTTP surface: the request pipeline in
// front of every route, then the route table.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/handler"
	"kitchen-backoffice/internal/middleware"
)

// Deps holds everything the router mounts
type Deps struct {
	Pipeline  *middleware.Pipeline
	Auth      *handler.AuthHandler
	Locations *handler.LocationHandler
	Pages     *handler.PageHandler
	DB        handler.Database
	// Broker is nil when security events are not published to RabbitMQ
	Broker    handler.Broker
	Responder middleware.ErrorResponder
}

// NewRouter returns the application handler. Every request, including
// unknown routes, passes through the whole pipeline.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(d.Pipeline.Middlewares()...)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not Found"}` + "\n"))
	})

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(d.DB, d.Broker))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Post("/auth/login", d.Auth.AdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePrincipal(domain.PrincipalAdmin, d.Responder))
			r.Post("/auth/logout", d.Auth.AdminLogout)
			r.Get("/auth/me", d.Auth.AdminMe)
			r.Get("/locations", d.Locations.List)
			r.Post("/locations", d.Locations.Create)
		})
	})

	r.With(middleware.RequirePrincipal(domain.PrincipalLocation, d.Responder)).
		Get("/api/locations/{slug}/me", d.Auth.LocationMe)

	r.Route("/{slug}", func(r chi.Router) {
		r.Post("/auth/login", d.Auth.LocationLogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePrincipal(domain.PrincipalLocation, d.Responder))
			r.Post("/auth/logout", d.Auth.LocationLogout)
			r.Get("/calculator", d.Pages.Calculator)
		})
	})

	return r
}
