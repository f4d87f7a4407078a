// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package api assembles the HTTP surface: routing, CORS, authentication
// middleware, and the handler set.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/queqiao-arr/queqiao/internal/api/handlers"
	"github.com/queqiao-arr/queqiao/internal/api/middleware"
	"github.com/queqiao-arr/queqiao/internal/auth"
	"github.com/queqiao-arr/queqiao/internal/database"
	"github.com/queqiao-arr/queqiao/internal/domain"
	"github.com/queqiao-arr/queqiao/internal/models"
	"github.com/queqiao-arr/queqiao/internal/probes"
)

// Dependencies carries everything the router needs, wired once at startup.
type Dependencies struct {
	Config             *domain.Config
	DB                 *database.DB
	AuthService        *auth.Service
	ServiceConfigStore *models.ServiceConfigStore
	ConfigurationStore *models.ConfigurationStore
	DictStore          *models.DictStore
	Prober             *probes.Prober
}

type Server struct {
	deps *Dependencies
	srv  *http.Server
}

func NewServer(deps *Dependencies) *Server {
	return &Server{deps: deps}
}

// Handler builds the full route tree.
func (s *Server) Handler() http.Handler {
	authHandler := handlers.NewAuthHandler(s.deps.AuthService)
	configHandler := handlers.NewConfigHandler(s.deps.ServiceConfigStore, s.deps.ConfigurationStore, s.deps.Prober)
	dictHandler := handlers.NewDictHandler(s.deps.DictStore)
	healthHandler := handlers.NewHealthHandler(s.deps.DB)

	requireAuth := middleware.RequireAuth(s.deps.AuthService)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.deps.Config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}).Handler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Get("/readiness", healthHandler.Readiness)
		r.Get("/version", healthHandler.Version)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.Me)
				r.Post("/refresh", authHandler.Refresh)
				r.Post("/logout", authHandler.Logout)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Delete("/users/{username}", authHandler.DeleteUser)
				})
			})
		})

		r.Route("/config", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", configHandler.List)
			r.Post("/", configHandler.Create)
			r.Post("/test-connection", configHandler.TestConnection)
			r.Post("/test-proxy", configHandler.TestProxy)
			r.Put("/service/{id}", configHandler.UpdateService)
			r.Delete("/service/{id}", configHandler.DeleteService)
			r.Put("/kv/{id}", configHandler.UpdateKV)
			r.Delete("/kv/{id}", configHandler.DeleteKV)
		})

		r.Route("/dict", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/types", dictHandler.ListTypes)
			r.Get("/items", dictHandler.ListItems)
			r.Get("/items/{id}", dictHandler.GetItem)
			r.Get("/options/{code}", dictHandler.Options)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/types", dictHandler.CreateType)
				r.Put("/types/{id}", dictHandler.UpdateType)
				r.Delete("/types/{id}", dictHandler.DeleteType)
				r.Post("/items", dictHandler.CreateItem)
				r.Put("/items/{id}", dictHandler.UpdateItem)
				r.Delete("/items/{id}", dictHandler.DeleteItem)
			})
		})
	})

	return r
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	addr := net.JoinHostPort(s.deps.Config.Host, fmt.Sprintf("%d", s.deps.Config.Port))

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: probe requests bound themselves via the prober.
	}

	log.Info().Str("addr", addr).Msg("http server listening")
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
