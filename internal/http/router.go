// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency and error normalization.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - A single error normalizer owns every error body, 404 and 405 included
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/tbourn/go-carparts-backend/internal/config"
	"github.com/tbourn/go-carparts-backend/internal/domain"
	"github.com/tbourn/go-carparts-backend/internal/http/handlers"
	"github.com/tbourn/go-carparts-backend/internal/http/middleware"
	"github.com/tbourn/go-carparts-backend/internal/notify"
	"github.com/tbourn/go-carparts-backend/internal/observability"
	"github.com/tbourn/go-carparts-backend/internal/repo"
	"github.com/tbourn/go-carparts-backend/internal/services"
)

// partRepoShim adapts the repository free functions to the services.PartRepo
// interface expected by the PartService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type partRepoShim struct{}

// FindParts proxies repo.FindParts.
func (partRepoShim) FindParts(ctx context.Context, db *gorm.DB, f repo.PartFilter) ([]domain.Part, error) {
	return repo.FindParts(ctx, db, f)
}

// GetPart proxies repo.GetPart.
func (partRepoShim) GetPart(ctx context.Context, db *gorm.DB, id string) (*domain.Part, error) {
	return repo.GetPart(ctx, db, id)
}

// CreatePart proxies repo.CreatePart.
func (partRepoShim) CreatePart(ctx context.Context, db *gorm.DB, p *domain.Part) (*domain.Part, error) {
	return repo.CreatePart(ctx, db, p)
}

// UpdatePart proxies repo.UpdatePart.
func (partRepoShim) UpdatePart(ctx context.Context, db *gorm.DB, id string, patch repo.PartPatch) (*domain.Part, error) {
	return repo.UpdatePart(ctx, db, id, patch)
}

// DeletePart proxies repo.DeletePart.
func (partRepoShim) DeletePart(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeletePart(ctx, db, id)
}

// CustomerEmails proxies repo.CustomerEmails.
func (partRepoShim) CustomerEmails(ctx context.Context, db *gorm.DB) ([]string, error) {
	return repo.CustomerEmails(ctx, db)
}

// WishlistEmailsForPart proxies repo.WishlistEmailsForPart.
func (partRepoShim) WishlistEmailsForPart(ctx context.Context, db *gorm.DB, partID string) ([]string, error) {
	return repo.WishlistEmailsForPart(ctx, db, partID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), compression, CORS
// and security headers, the error normalizer, idempotency, health, metrics
// and (optionally) Swagger endpoints, and then mounts the parts API under
// cfg.APIBasePath. A nil dispatcher disables notifications.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger or RedactingLogger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. gzip, CORS and security headers
//  8. Error normalizer (renders every error recorded below it)
//  9. Idempotency validator
func RegisterRoutes(r *gin.Engine, db *gorm.DB, dispatcher notify.Dispatcher, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	errOpts := middleware.ErrorOptions{ExposeStack: !cfg.IsProduction()}

	// 1) Trace parts traffic (metrics and health are skipped)
	r.Use(observability.HTTPMiddleware(cfg.OTEL))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging, with redaction unless disabled
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{middleware.HeaderIdempotencyKey},
		}))
	} else {
		r.Use(middleware.Logger())
	}

	// 4) Panic recovery into the normalized error body
	r.Use(middleware.Recovery(errOpts))

	// 5) Global body size limit
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	r.Use(limitBody(maxBody))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compression, CORS posture and security headers
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
		Cache:        middleware.CacheRevalidate,
	}))

	// 8) Error normalizer
	r.Use(middleware.ErrorHandler(errOpts))

	// 9) Idempotency validation for POST retries
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, scope, key string, now time.Time) (string, bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, scope, key, now)
			if err != nil || rec == nil {
				return "", false, nil
			}
			return rec.ResourceID, true, nil
		},
	))

	// Fallbacks; the global chain above (normalizer included) runs first.
	r.NoRoute(middleware.NotFound())
	r.NoMethod(middleware.MethodNotAllowed())

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: service ← repo/db/dispatcher
	partSvc := services.NewPartService(db, partRepoShim{}, dispatcher, cfg.Notify.ShopName)
	h := handlers.New(partSvc, cfg.IdempotencyTTL)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/carparts", h.ListParts)
		api.POST("/carparts", h.CreatePart)
		api.GET("/carparts/:id", h.GetPart)
		api.PUT("/carparts/:id", h.UpdatePart)
		api.DELETE("/carparts/:id", h.DeletePart)
	}
}

// corsMiddleware returns the CORS chain. With no allowlist every origin is
// accepted; otherwise allowed origins are echoed back.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
