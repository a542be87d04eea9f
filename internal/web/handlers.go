// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aurweb/aurweb/internal/auth"
	"github.com/aurweb/aurweb/pkg/errutil"
)

type handlers struct {
	gate          *auth.Gate
	resolver      *auth.Resolver
	resets        *auth.ResetService
	registrations *auth.RegistrationService
	logger        *slog.Logger
	secure        bool
}

type loginForm struct {
	User     string `form:"user"`
	Passwd   string `form:"passwd"`
	Remember bool   `form:"remember_me"`
	Next     string `form:"next"`
}

type passresetForm struct {
	User     string `form:"user"`
	ResetKey string `form:"resetkey"`
	Password string `form:"password"`
	Confirm  string `form:"confirm"`
}

type registerForm struct {
	Username string `form:"U"`
	Email    string `form:"E"`
}

type accountResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *handlers) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(msgBadCredentials))
		return
	}

	result, err := h.gate.Login(c.Request.Context(), auth.LoginAttempt{
		Username:   form.User,
		Password:   form.Passwd,
		RemoteAddr: c.ClientIP(),
		Remember:   form.Remember,
	})
	if err != nil {
		errutil.LogError(h.logger, "login failed", err)
		c.JSON(http.StatusInternalServerError, errorBody(msgInternal))
		return
	}
	if !result.OK {
		c.JSON(http.StatusUnauthorized, errorBody(msgBadCredentials))
		return
	}

	setSessionCookie(c, result.Token, result.ExpiresAt, h.secure)
	c.Redirect(http.StatusSeeOther, safeNext(form.Next))
}

func (h *handlers) logout(c *gin.Context) {
	token, _ := c.Cookie(CookieName) //nolint:errcheck // guarded route always has a cookie
	if err := h.resolver.Logout(c.Request.Context(), PrincipalFrom(c), token); err != nil {
		errutil.LogError(h.logger, "logout failed", err)
		c.JSON(http.StatusInternalServerError, errorBody(msgInternal))
		return
	}
	clearSessionCookie(c, h.secure)
	c.Redirect(http.StatusSeeOther, "/")
}

// passreset requests a reset key when none is given, otherwise completes the
// reset.
func (h *handlers) passreset(c *gin.Context) {
	var form passresetForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Missing a required field."))
		return
	}

	ctx := c.Request.Context()
	if form.ResetKey == "" {
		if err := h.resets.RequestReset(ctx, form.User); err != nil {
			respondError(c, h.logger, "password reset request failed", err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/passreset?step=confirm")
		return
	}

	err := h.resets.ResetPassword(ctx, auth.ResetRequest{
		Login:    form.User,
		Key:      form.ResetKey,
		Password: form.Password,
		Confirm:  form.Confirm,
	})
	if err != nil {
		respondError(c, h.logger, "password reset failed", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/passreset?step=complete")
}

func (h *handlers) register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Missing a required field."))
		return
	}

	user, err := h.registrations.Register(c.Request.Context(), auth.RegisterRequest{
		Username:   form.Username,
		Email:      form.Email,
		RemoteAddr: c.ClientIP(),
	})
	if err != nil {
		respondError(c, h.logger, "registration failed", err)
		return
	}
	c.JSON(http.StatusCreated, accountResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	})
}

func (h *handlers) account(c *gin.Context) {
	user := PrincipalFrom(c).User
	c.JSON(http.StatusOK, accountResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	})
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
