package middleware

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Search terms are free text and sometimes carry a customer's email or
// phone number; other headers may carry anything. Catalogue parameters
// only ever hold ids and flags and are logged as sent.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so UUID hex groups never look like a phone number.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)

	catalogueParams = map[string]struct{}{"modelId": {}, "inStock": {}}
	alwaysMasked    = []string{"authorization", "cookie", "set-cookie"}
)

// RedactOptions lists extra headers (case-insensitive) whose values are
// replaced with "[REDACTED]" on top of Authorization and the cookies.
type RedactOptions struct {
	MaskHeaders []string
}

// RedactingLogger is Logger with personal data scrubbed: catalogue query
// parameters are kept, every other query value and header value loses
// emails, phone numbers and UUIDs, and masked headers are dropped to
// "[REDACTED]". Bodies are never logged.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := make(map[string]struct{}, len(alwaysMasked)+len(opts.MaskHeaders))
	for _, h := range append(append([]string{}, alwaysMasked...), opts.MaskHeaders...) {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		attachScopedLogger(c)
		query := scrubQuery(c.Request.URL.RawQuery)
		headers := scrubHeaders(c, masked)

		c.Next()

		accessLine(c, start).
			Str("query", query).
			Interface("headers", headers).
			Msg("http_request")
	}
}

// scrubQuery rewrites raw with keys sorted and non-catalogue values scrubbed.
// Unparseable queries are scrubbed as plain text.
func scrubQuery(raw string) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return truncate(scrubText(raw), maxQueryLogLength)
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		_, keep := catalogueParams[k]
		for _, v := range vals[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			if !keep {
				v = scrubText(v)
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return truncate(b.String(), maxQueryLogLength)
}

func scrubHeaders(c *gin.Context, masked map[string]struct{}) map[string]string {
	out := make(map[string]string, len(c.Request.Header))
	for k, vv := range c.Request.Header {
		if _, ok := masked[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = scrubText(strings.Join(vv, ", "))
	}
	return out
}

// scrubText replaces UUIDs, then emails, then phone numbers; the phone
// pattern is the loosest and runs last.
func scrubText(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}
