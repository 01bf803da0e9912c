// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/blazer82/analytodon-sub001/internal/apidocs" // registers the swagger spec
	"github.com/blazer82/analytodon-sub001/internal/auth"
	"github.com/blazer82/analytodon-sub001/internal/authz"
	"github.com/blazer82/analytodon-sub001/internal/middleware"
)

// Router builds the chi route tree.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	authn         *auth.Middleware
	authz         *authz.Middleware
}

// NewRouter combines the handlers with authentication, the route policy and
// the CORS and rate limit settings.
func NewRouter(handler *Handler, authn *auth.Middleware, authzMiddleware *authz.Middleware, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
		authn:         authn,
		authz:         authzMiddleware,
	}
}

// protected requires a valid token and a matching policy entry.
func (router *Router) protected(r chi.Router) {
	r.Use(APISecurityHeaders())
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.authn.Authenticate)
	r.Use(router.authz.Authorize)
}

// SetupChi returns the HTTP handler for every route.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitAuth())
			r.Use(APISecurityHeaders())
			r.Use(middleware.PrometheusMetrics)

			r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", h.Login)
			r.Post("/register", h.Register)
			r.Post("/verify-email", h.VerifyEmail)
			r.Post("/request-password-reset", h.RequestPasswordReset)
			r.Post("/reset-password", h.ResetPassword)
		})

		// Token rotation runs on every page load of the dashboard.
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(APISecurityHeaders())
			r.Use(middleware.PrometheusMetrics)
			r.Post("/refresh", h.Refresh)
			r.Post("/logout", h.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			router.protected(r)
			r.Get("/session", h.Session)
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitAuth())
			r.Use(APISecurityHeaders())
			r.Use(middleware.PrometheusMetrics)
			r.Post("/unsubscribe", h.Unsubscribe)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			router.protected(r)
			r.Get("/", h.ListUsers)
			r.Get("/me", h.Me)
			r.Patch("/me", h.UpdateMe)
		})
	})

	r.Route("/api/v1/accounts", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			router.protected(r)

			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Post("/connect/callback", h.ConnectCallback)
			r.Get("/{accountID}", h.GetAccount)
			r.Patch("/{accountID}", h.UpdateAccount)
			r.Delete("/{accountID}", h.DeleteAccount)
			r.Post("/{accountID}/connect", h.ConnectAccount)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitStats())
			router.protected(r)
			r.Use(middleware.Compression)

			r.Get("/{accountID}/toots/top", h.TopToots)
			r.Get("/{accountID}/hashtags/top", h.TopHashtags)
			r.Get("/{accountID}/hashtags/over-time", h.HashtagsOverTime)
			r.Get("/{accountID}/hashtags/engagement", h.HashtagEngagement)
			r.Get("/{accountID}/hashtags/most-effective", h.MostEffectiveHashtags)
			r.Get("/{accountID}/{metric}/chart", h.MetricChart)
			r.Get("/{accountID}/{metric}/{period}", h.MetricKPI)

			r.Group(func(r chi.Router) {
				r.Use(router.chiMiddleware.RateLimitExport())
				r.Get("/{accountID}/toots/export", h.ExportTopToots)
				r.Get("/{accountID}/hashtags/export", h.ExportHashtags)
				r.Get("/{accountID}/{metric}/export", h.MetricExport)
			})
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		router.protected(r)
		r.Post("/jobs/{job}", h.RunJob)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
