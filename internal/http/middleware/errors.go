// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the error normalizer: the only place where failures
// are turned into HTTP responses. Handlers record errors with c.Error and
// return; ErrorHandler picks up the last recorded error after the chain has
// run and writes
//
//	{ "message": "...", "stack": "..." | null }
//
// Status selection:
//   - a status already set on the response (anything but 200) wins;
//   - errs.NotFoundError implies 404;
//   - everything else is 500.
//
// Message rewriting, in order:
//   - errs.MalformedIDError  -> "Invalid <field>: <value>"
//   - errs.ValidationError   -> the field messages joined with ", "
//   - errs.DuplicateKeyError -> "<field> already exists" or "Duplicate key error"
//   - anything else          -> the error's own message
//
// The stack is the pkg/errors trace recorded where the error was raised. It
// is only exposed when ErrorOptions.ExposeStack is set, which the caller
// derives once from APP_ENV at startup.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-carparts-backend/internal/errs"
)

// ErrorOptions configures the error normalizer.
type ErrorOptions struct {
	// ExposeStack includes the recorded stack trace in error bodies.
	ExposeStack bool
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Message string  `json:"message"`
	Stack   *string `json:"stack"`
}

// ErrorHandler returns the normalizer middleware. Register it after the
// logging/recovery middleware and before any route.
func ErrorHandler(opts ErrorOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		RespondError(c, c.Errors.Last().Err, opts)
	}
}

// RespondError writes the normalized body for err and aborts the chain.
func RespondError(c *gin.Context, err error, opts ErrorOptions) {
	status := c.Writer.Status()
	if status == http.StatusOK || status == 0 {
		status = StatusFor(err)
	}
	msg := Message(err)
	httpErrors.WithLabelValues(errorKind(err)).Inc()

	log.Error().
		Time("timestamp", time.Now().UTC()).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.RequestURI()).
		Int("status", status).
		Str("error", err.Error()).
		Str("response", msg).
		Msg("request failed")

	body := ErrorBody{Message: msg}
	if opts.ExposeStack {
		s := errs.Stack(err)
		body.Stack = &s
	}
	c.AbortWithStatusJSON(status, body)
}

// StatusFor returns the status implied by err when the response has none.
func StatusFor(err error) int {
	var nf *errs.NotFoundError
	if errors.As(err, &nf) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for err.
func Message(err error) string {
	var (
		mid *errs.MalformedIDError
		ve  *errs.ValidationError
		dk  *errs.DuplicateKeyError
	)
	switch {
	case errors.As(err, &mid):
		return "Invalid " + mid.Field + ": " + mid.Value
	case errors.As(err, &ve):
		return strings.Join(ve.Messages(), ", ")
	case errors.As(err, &dk):
		if dk.Field != "" {
			return dk.Field + " already exists"
		}
		return "Duplicate key error"
	case err == nil:
		return http.StatusText(http.StatusInternalServerError)
	default:
		return err.Error()
	}
}

// NotFound handles requests that match no route.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Status(http.StatusNotFound)
		_ = c.Error(errs.NotFound("Not Found - " + c.Request.URL.RequestURI()))
	}
}

// MethodNotAllowed handles requests whose path exists under another method.
func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Status(http.StatusMethodNotAllowed)
		_ = c.Error(pkgerrors.Errorf("Method Not Allowed - %s %s", c.Request.Method, c.Request.URL.RequestURI()))
	}
}
