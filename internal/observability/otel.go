// Package observability wires OpenTelemetry tracing through the parts API:
// one span per HTTP request (HTTPMiddleware) with the store's queries as
// children (InstrumentDB), exported over OTLP gRPC (SetupOTel).
package observability

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-carparts-backend/internal/config"
)

// serviceInfo identifies this process on every exported span.
type serviceInfo struct {
	Name        string
	Version     string
	Environment string
}

// Replaced in tests.
var (
	newOTLPClient = otlptracegrpc.NewClient

	newOTLPExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newServiceResourceFn = func(ctx context.Context, svc serviceInfo) (*resource.Resource, error) {
		return resource.New(ctx, resource.WithAttributes(
			semconv.ServiceName(svc.Name),
			semconv.ServiceVersion(svc.Version),
			semconv.DeploymentEnvironment(svc.Environment),
		))
	}
)

// untracedPaths are scraped or polled constantly and would drown the
// parts traffic.
var untracedPaths = map[string]struct{}{
	"/metrics": {},
	"/health":  {},
}

// SetupOTel installs the global tracer provider and propagators and returns
// the provider's shutdown. Globals are left untouched on error and when
// tracing is disabled.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, version string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}

	exp, err := newOTLPExporterFn(ctx, newOTLPClient(opts...))
	if err != nil {
		return nil, err
	}
	res, err := newServiceResourceFn(ctx, serviceInfo{
		Name:        cfg.ServiceName,
		Version:     version,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// HTTPMiddleware opens the server span of each request, skipping the
// metrics and health endpoints.
func HTTPMiddleware(cfg config.OTELConfig) gin.HandlerFunc {
	return otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(traceable))
}

func traceable(r *http.Request) bool {
	_, skip := untracedPaths[r.URL.Path]
	return !skip
}

// InstrumentDB makes every GORM query a child span of its request. Bound
// values stay out of span attributes since search terms and email lookups
// pass through them. No-op when tracing is off.
func InstrumentDB(db *gorm.DB, cfg config.OTELConfig) error {
	if !cfg.Enabled || db == nil {
		return nil
	}
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics(), tracing.WithoutQueryVariables()))
}
