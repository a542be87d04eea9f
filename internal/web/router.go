// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

// Package web exposes the authentication flows over HTTP using gin.
package web

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/aurweb/aurweb/internal/auth"
	"github.com/aurweb/aurweb/internal/observability"
)

// Dependencies are the services the router dispatches to.
type Dependencies struct {
	Gate          *auth.Gate
	Resolver      *auth.Resolver
	Resets        *auth.ResetService
	Registrations *auth.RegistrationService

	// Metrics is optional.
	Metrics *observability.Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// SecureCookies marks the session cookie Secure.
	SecureCookies bool

	// TrustedProxies are the networks whose X-Forwarded-For is honored.
	// Empty trusts no proxy.
	TrustedProxies []string
}

// NewRouter builds the gin engine serving the login, logout, password reset,
// registration and account routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	switch {
	case deps.Gate == nil:
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("login gate is required")
	case deps.Resolver == nil:
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("resolver is required")
	case deps.Resets == nil:
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("reset service is required")
	case deps.Registrations == nil:
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("registration service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").With("trusted_proxies", deps.TrustedProxies).Wrap(err)
	}
	router.Use(RequestLogger(logger))
	router.Use(gin.Recovery())
	if deps.Metrics != nil {
		router.Use(RequestMetrics(deps.Metrics))
	}
	router.Use(Identity(deps.Resolver, logger))

	h := &handlers{
		gate:          deps.Gate,
		resolver:      deps.Resolver,
		resets:        deps.Resets,
		registrations: deps.Registrations,
		logger:        logger,
		secure:        deps.SecureCookies,
	}

	guest := router.Group("")
	guest.Use(RequireGuest())
	{
		guest.POST("/login", h.login)
		guest.POST("/passreset", h.passreset)
		guest.POST("/register", h.register)
	}

	authed := router.Group("")
	authed.Use(RequireAuth())
	{
		authed.GET("/logout", h.logout)
		authed.POST("/logout", h.logout)
		authed.GET("/account", h.account)
	}

	return router, nil
}
