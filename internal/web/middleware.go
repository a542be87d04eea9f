// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aurweb/aurweb/internal/auth"
	"github.com/aurweb/aurweb/internal/observability"
	"github.com/aurweb/aurweb/pkg/errutil"
)

const principalKey = "aurweb.principal"

// RequestLogger logs one line per completed request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.InfoContext(c.Request.Context(), "request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}

// RequestMetrics counts requests by matched route.
func RequestMetrics(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(route, c.Request.Method, c.Writer.Status())
	}
}

// Identity resolves the AURSID cookie and attaches the principal to the
// request. A session whose user has vanished aborts with 500.
func Identity(resolver *auth.Resolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(CookieName) //nolint:errcheck // absent cookie means anonymous
		principal, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrDataIntegrity) {
				errutil.LogError(logger, "session references a missing user", err)
			} else {
				errutil.LogError(logger, "resolve session failed", err)
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(msgInternal))
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the principal Identity attached, or an anonymous one.
func PrincipalFrom(c *gin.Context) *auth.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*auth.Principal); ok {
			return p
		}
	}
	return auth.Anonymous()
}

// RequireAuth redirects anonymous requests to the login page.
func RequireAuth() gin.HandlerFunc {
	return guard(true)
}

// RequireGuest redirects authenticated requests to the front page.
func RequireGuest() gin.HandlerFunc {
	return guard(false)
}

func guard(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch auth.CheckAccess(PrincipalFrom(c).IsAuthenticated(), required) {
		case auth.DenyAuthRequired:
			c.Redirect(http.StatusSeeOther, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
		case auth.DenyAlreadyAuthenticated:
			c.Redirect(http.StatusSeeOther, "/")
			c.Abort()
		default:
			c.Next()
		}
	}
}
