// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the store, notification delivery and
// observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Deployment modes recognized by APP_ENV.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Notification delivery modes recognized by NOTIFY_MODE.
const (
	NotifyInline = "inline" // send during the request
	NotifyQueue  = "queue"  // bounded in-process queue
	NotifyAsynq  = "asynq"  // Redis-backed task queue
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// DBConfig selects and locates the store.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH (sqlite file)
	URL    string // DATABASE_URL (postgres)
}

// DSN returns the connection string for the selected driver.
func (d DBConfig) DSN() string {
	if d.Driver == "postgres" {
		return d.URL
	}
	return d.Path
}

// NotifyConfig controls how customer emails are delivered.
type NotifyConfig struct {
	Mode         string        // NOTIFY_MODE: inline|queue|asynq
	Workers      int           // NOTIFY_WORKERS
	QueueSize    int           // NOTIFY_QUEUE_SIZE
	SendTimeout  time.Duration // NOTIFY_SEND_TIMEOUT
	SendRPS      float64       // NOTIFY_SEND_RPS: provider requests per second, 0 = unpaced
	RedisAddr    string        // REDIS_ADDR (asynq)
	ShopName     string        // SHOP_NAME, appears in email bodies
	MailFrom     string        // MAIL_FROM sender address
	ResendAPIKey string        // RESEND_API_KEY; empty logs emails instead of sending
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-carparts-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
	Environment string  // copied from APP_ENV
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // request body cap
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	LogRedact      bool   // mask emails/UUIDs in access logs
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	AppEnv string // APP_ENV: production hides error stacks
	DB     DBConfig
	Notify NotifyConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid
	PurgeInterval  time.Duration // how often expired keys are deleted

	// Observability
	OTEL OTELConfig
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool { return c.AppEnv == EnvProduction }

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "5000"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		LogRedact:      getbool("LOG_REDACT", true),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// App
		AppEnv: strings.ToLower(strings.TrimSpace(getenv("APP_ENV", EnvDevelopment))),
		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "carparts.db"),
			URL:    getenv("DATABASE_URL", ""),
		},
		Notify: NotifyConfig{
			Mode:         strings.ToLower(getenv("NOTIFY_MODE", NotifyQueue)),
			Workers:      getint("NOTIFY_WORKERS", 2),
			QueueSize:    getint("NOTIFY_QUEUE_SIZE", 100),
			SendTimeout:  getdur("NOTIFY_SEND_TIMEOUT", 30*time.Second),
			SendRPS:      getfloat("NOTIFY_SEND_RPS", 2),
			RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
			ShopName:     getenv("SHOP_NAME", "MMJAuto"),
			MailFrom:     getenv("MAIL_FROM", ""),
			ResendAPIKey: getenv("RESEND_API_KEY", ""),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),
		PurgeInterval:  getdur("IDEMPOTENCY_PURGE_INTERVAL", time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-carparts-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.AppEnv == "prod" {
		cfg.AppEnv = EnvProduction
	}
	cfg.OTEL.Environment = cfg.AppEnv

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.URL) == "" {
			return cfg, errors.New("DATABASE_URL must be set when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	switch cfg.Notify.Mode {
	case NotifyInline, NotifyQueue:
	case NotifyAsynq:
		if strings.TrimSpace(cfg.Notify.RedisAddr) == "" {
			return cfg, errors.New("REDIS_ADDR must be set when NOTIFY_MODE=asynq")
		}
	default:
		return cfg, errors.New("NOTIFY_MODE must be one of: inline, queue, asynq")
	}
	if cfg.Notify.Workers < 1 {
		return cfg, errors.New("NOTIFY_WORKERS must be >= 1")
	}
	if cfg.Notify.QueueSize < 1 {
		return cfg, errors.New("NOTIFY_QUEUE_SIZE must be >= 1")
	}
	if cfg.Notify.SendTimeout <= 0 {
		return cfg, errors.New("NOTIFY_SEND_TIMEOUT must be > 0")
	}
	if cfg.Notify.SendRPS < 0 {
		return cfg, errors.New("NOTIFY_SEND_RPS must be >= 0")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.PurgeInterval <= 0 {
		return cfg, errors.New("IDEMPOTENCY_PURGE_INTERVAL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
