// Package middleware holds the Gin middleware of the parts API: request
// correlation, access logging, panic recovery, metrics, security headers,
// idempotency and the error normalizer.
//
// The router installs RequestID, then Logger or RedactingLogger, then
// Recovery, so panic lines and access lines carry the request id.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	// maxQueryLogLength caps the logged query string in bytes.
	maxQueryLogLength = 2048
)

// RequestID reuses the caller's X-Request-ID or mints a UUID, echoes it on
// the response and stores it for the loggers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger writes one access line per request with the raw (truncated) query.
// Use RedactingLogger when queries may carry personal data.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		attachScopedLogger(c)

		c.Next()

		accessLine(c, start).
			Str("query", truncate(c.Request.URL.RawQuery, maxQueryLogLength)).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int64("bytes_in", c.Request.ContentLength).
			Msg("http_request")
	}
}

// Recovery turns a panic into the normalized { message, stack } body with
// status 500. A response that was already written is only aborted.
func Recovery(opts ErrorOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := requestIDOf(c)
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Str("path", routeOf(c)).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.Status(http.StatusInternalServerError)
			RespondError(c, pkgerrors.Errorf("%v", rec), opts)
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or a plain one when no
// access logger ran. Services get the same logger through zerolog.Ctx.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// attachScopedLogger stores a logger carrying the request id, and the part
// id on /carparts/:id routes, in the gin and request contexts.
func attachScopedLogger(c *gin.Context) {
	lc := log.With().Str("request_id", requestIDOf(c))
	if id := c.Param("id"); id != "" {
		lc = lc.Str("part_id", id)
	}
	l := lc.Logger()
	c.Set(loggerKey, &l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
}

// accessLine opens the access event for a finished request. The level
// follows the final status; the error normalizer logs the error details.
func accessLine(c *gin.Context, start time.Time) *zerolog.Event {
	status := c.Writer.Status()
	var ev *zerolog.Event
	switch {
	case status >= 500:
		ev = log.Error()
	case status >= 400:
		ev = log.Warn()
	default:
		ev = log.Info()
	}
	ev = ev.
		Str("request_id", requestIDOf(c)).
		Str("method", c.Request.Method).
		Str("path", routeOf(c)).
		Int("status", status).
		Int("bytes_out", c.Writer.Size()).
		Dur("latency", time.Since(start))
	if id := c.Param("id"); id != "" {
		ev = ev.Str("part_id", id)
	}
	if kinds := errorKinds(c); kinds != "" {
		ev = ev.Str("error_kinds", kinds)
	}
	return ev
}

// requestIDOf prefers the id echoed on the response, then the one RequestID
// stored, then the caller's header.
func requestIDOf(c *gin.Context) string {
	if rid := c.Writer.Header().Get(requestIDHeader); rid != "" {
		return rid
	}
	if v, ok := c.Get(requestIDKey); ok {
		if rid := asString(v); rid != "" {
			return rid
		}
	}
	return c.GetHeader(requestIDHeader)
}

// routeOf returns the matched route template, or the raw path for
// unmatched requests.
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// errorKinds lists the kinds of the errors recorded on c, comma separated.
func errorKinds(c *gin.Context) string {
	if len(c.Errors) == 0 {
		return ""
	}
	kinds := make([]string, 0, len(c.Errors))
	for _, e := range c.Errors {
		kinds = append(kinds, errorKind(e.Err))
	}
	return strings.Join(kinds, ",")
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate cuts s to max bytes plus an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
