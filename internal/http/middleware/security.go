// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, a hardening middleware that attaches a
// conservative set of HTTP security headers suitable for JSON APIs running
// behind a reverse proxy, plus the cache policy for inventory responses.
//
// Inventory reads are cheap to revalidate (the parts list carries a weak
// ETag), so the default CacheRevalidate policy lets clients keep a copy of GET
// responses but forces them to revalidate, while responses to writes are
// never stored.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CachePolicy selects the Cache-Control headers SecurityHeaders emits.
type CachePolicy int

const (
	// CacheNone emits no cache headers.
	CacheNone CachePolicy = iota
	// CacheRevalidate marks GET/HEAD responses "no-cache" (store, but
	// revalidate with If-None-Match) and all other responses "no-store".
	CacheRevalidate
	// CacheNoStore marks every response "no-store".
	CacheNoStore
)

// SecurityOptions configures HTTP security headers emitted by SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security for HTTPS requests only.
	// Enable only when traffic is HTTPS end-to-end.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days when <= 0.
	HSTSMaxAge time.Duration
	// EnablePolicy adds Permissions-Policy and X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
	// Cache selects the Cache-Control policy.
	Cache CachePolicy
}

// SecurityHeaders returns a Gin middleware that adds security and cache
// headers to each response.
//
// Behavior:
//   - Always sets X-Content-Type-Options: nosniff, X-Frame-Options: DENY and
//     Referrer-Policy: no-referrer.
//   - Optionally sets Permissions-Policy / X-Permitted-Cross-Domain-Policies.
//   - Applies opt.Cache.
//   - Sets Strict-Transport-Security when EnableHSTS and the request is HTTPS.
//   - If X-Request-ID is present, exposes it via Access-Control-Expose-Headers
//     so browser clients can read it.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int64(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int64((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.FormatInt(maxAge, 10) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		switch opt.Cache {
		case CacheRevalidate:
			if m := c.Request.Method; m == http.MethodGet || m == http.MethodHead {
				h.Set("Cache-Control", "no-cache")
			} else {
				setNoStore(h)
			}
		case CacheNoStore:
			setNoStore(h)
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if rid := h.Get(requestIDHeader); rid != "" {
			const hdr = "Access-Control-Expose-Headers"
			cur := h.Get(hdr)
			if cur == "" {
				h.Set(hdr, requestIDHeader)
			} else if !strings.Contains(cur, requestIDHeader) {
				h.Set(hdr, cur+", "+requestIDHeader)
			}
		}

		c.Next()
	}
}

func setNoStore(h http.Header) {
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

// isHTTPS reports whether the incoming request used HTTPS either directly
// (r.TLS != nil) or via a reverse proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
