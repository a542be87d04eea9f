// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/aurweb/aurweb/pkg/errutil"
)

const (
	msgBadCredentials = "Bad username or password."
	msgInternal       = "Internal server error."
)

// clientErrors maps user-correctable error codes to HTTP statuses.
var clientErrors = map[string]int{
	"RESET_INVALID_LOGIN":      http.StatusBadRequest,
	"RESET_MISSING_FIELD":      http.StatusBadRequest,
	"RESET_PASSWORD_MISMATCH":  http.StatusBadRequest,
	"RESET_PASSWORD_TOO_SHORT": http.StatusBadRequest,
	"RESET_PASSWORD_TOO_LONG":  http.StatusBadRequest,
	"AUTH_PASSWORD_TOO_LONG":   http.StatusBadRequest,
	"AUTH_INVALID_USERNAME":    http.StatusBadRequest,
	"AUTH_INVALID_EMAIL":       http.StatusBadRequest,
	"REGISTER_USERNAME_TAKEN":  http.StatusConflict,
	"REGISTER_EMAIL_TAKEN":     http.StatusConflict,
	"REGISTER_BANNED":          http.StatusForbidden,
}

type errorsResponse struct {
	Errors []string `json:"errors"`
}

func errorBody(messages ...string) errorsResponse {
	return errorsResponse{Errors: messages}
}

// respondError writes the message of a known client error, or logs err and
// writes a generic 500.
func respondError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	if status, ok := clientErrors[errutil.Code(err)]; ok {
		c.JSON(status, errorBody(sentence(publicMessage(err))))
		return
	}
	errutil.LogError(logger, msg, err)
	c.JSON(http.StatusInternalServerError, errorBody(msgInternal))
}

func publicMessage(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Error()
	}
	return err.Error()
}

// sentence capitalizes msg and terminates it with a period.
func sentence(msg string) string {
	if msg == "" {
		return msg
	}
	msg = strings.ToUpper(msg[:1]) + msg[1:]
	if !strings.HasSuffix(msg, ".") {
		msg += "."
	}
	return msg
}
