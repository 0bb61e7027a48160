// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for unsafe HTTP methods (POST).
// It validates an Idempotency-Key request header, performs a user-defined
// lookup to detect previously completed requests, and annotates the request
// context so downstream handlers can:
//   - read the normalized key (GetIdempotencyKey)
//   - detect replayed requests and the resource they produced (ReplayOf)
//
// A replayed create returns the stored resource instead of inserting a second
// one, so a retried POST /carparts never announces the same part twice.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-carparts-backend/internal/errs"
)

// HeaderIdempotencyKey is the canonical request header that clients use to
// convey an idempotency key for unsafe operations (e.g., POST).
const HeaderIdempotencyKey = "Idempotency-Key"

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey      = "idem.key"
	ctxKeyIdemReplay   = "idem.replay"   // bool: true when a stored result exists
	ctxKeyIdemResource = "idem.resource" // string: id of the stored resource
)

// GetIdempotencyKey returns the validated idempotency key stored in the Gin
// context by IdempotencyValidator. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the middleware found a previously completed
// request for this key and scope.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// ReplayOf returns the resource id recorded for a replayed request.
func ReplayOf(c *gin.Context) (string, bool) {
	if !IsReplay(c) {
		return "", false
	}
	s := c.GetString(ctxKeyIdemResource)
	return s, s != ""
}

// IdempotencyScope returns the scope under which keys for this request are
// stored: the method plus the matched route, e.g. "POST /api/carparts".
func IdempotencyScope(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return c.Request.Method + " " + path
}

// IdempotencyOptions configures header validation behavior for
// IdempotencyValidator. TTL is enforced by the lookup.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative RFC7230-like
	// token pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
}

// IdempotencyLookup answers whether a still-valid result exists for (scope,
// key) at the given time and, if so, which resource it produced.
//
// Return an error only for lookup failures; they do not block processing.
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (resourceID string, exists bool, err error)

// IdempotencyValidator validates the Idempotency-Key header (if present),
// stashes it in the request context, and for POST requests checks for a
// prior completed request via the supplied lookup.
//
// Behavior:
//   - If header is absent: the middleware is a no-op.
//   - If header fails validation: records a ValidationError with status 400
//     for the error normalizer and aborts.
//   - If lookup indicates a replay: sets the replay flag and resource id.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.Status(http.StatusBadRequest)
			_ = c.Error(errs.Validation(errs.FieldError{
				Field:   HeaderIdempotencyKey,
				Message: "invalid Idempotency-Key",
			}))
			c.Abort()
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil && c.Request.Method == http.MethodPost {
			now := time.Now().UTC()
			if id, exists, _ := lookup(c.Request.Context(), IdempotencyScope(c), key, now); exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyIdemResource, id)
			}
		}

		c.Next()
	}
}
