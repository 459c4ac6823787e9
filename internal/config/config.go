// Package config loads CSMS configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the complete process configuration, sourced from environment
// variables (optionally preloaded from a .env file in development).
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`
	Debug  bool   `envconfig:"DEBUG" default:"false"`

	// HTTP Control Plane.
	HTTPPort        int           `envconfig:"PORT" default:"8000"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`

	// OCPP Gateway.
	OCPPPort                 int           `envconfig:"OCPP_PORT" default:"9000"`
	OCPPDefaultCallTimeout   time.Duration `envconfig:"OCPP_DEFAULT_CALL_TIMEOUT" default:"30s"`
	OCPPFirmwareCallTimeout  time.Duration `envconfig:"OCPP_FIRMWARE_CALL_TIMEOUT" default:"60s"`
	HeartbeatOnlineWindow    time.Duration `envconfig:"HEARTBEAT_ONLINE_WINDOW" default:"900s"`
	DefaultHeartbeatInterval int           `envconfig:"DEFAULT_HEARTBEAT_INTERVAL_S" default:"7200"`

	// Database.
	DatabaseURL     string        `envconfig:"DATABASE_URL" required:"true"`
	DBMaxOpenConns  int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	DBMaxIdleConns  int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBConnMaxIdleTTL time.Duration `envconfig:"DB_CONN_MAX_IDLE_TTL" default:"5m"`

	// Redis cache.
	RedisURL string `envconfig:"REDIS_URL" default:""`

	// OpenTelemetry tracing (OTLP/gRPC exporter). Unset disables tracing.
	OTELExporterEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:""`
	OTELExporterInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	OTELServiceName      string `envconfig:"OTEL_SERVICE_NAME" default:"csms"`

	// NATS JetStream event bus.
	NATSURL string `envconfig:"NATS_URL" default:""`

	// JWT auth.
	JWTSecretKey             string        `envconfig:"JWT_SECRET_KEY" required:"true"`
	AccessTokenExpireMinutes int           `envconfig:"ACCESS_TOKEN_EXPIRE_MINUTES" default:"30"`
	RefreshTokenExpireDays   int           `envconfig:"REFRESH_TOKEN_EXPIRE_DAYS" default:"7"`

	// Payment callbacks.
	PaymentCallbackSecret string `envconfig:"PAYMENT_CALLBACK_SECRET" default:""`

	// Billplz payment gateway adapter.
	BillplzAPIKey        string `envconfig:"BILLPLZ_API_KEY" default:""`
	BillplzXSignatureKey string `envconfig:"BILLPLZ_X_SIGNATURE_KEY" default:""`
	BillplzCollectionID  string `envconfig:"BILLPLZ_COLLECTION_ID" default:""`
	BillplzBaseURL       string `envconfig:"BILLPLZ_BASE_URL" default:"https://www.billplz.com/api/v3"`

	// OCBC payment gateway adapter.
	OCBCClientID     string `envconfig:"OCBC_CLIENT_ID" default:""`
	OCBCClientSecret string `envconfig:"OCBC_CLIENT_SECRET" default:""`
	OCBCSigningKey   string `envconfig:"OCBC_SIGNING_KEY" default:""`
	OCBCBaseURL      string `envconfig:"OCBC_BASE_URL" default:""`

	// Epay (Halyk Bank) payment gateway adapter.
	EpayTerminalID   string `envconfig:"EPAY_TERMINAL_ID" default:""`
	EpayClientID     string `envconfig:"EPAY_CLIENT_ID" default:""`
	EpayClientSecret string `envconfig:"EPAY_CLIENT_SECRET" default:""`
	EpayOAuthURL     string `envconfig:"EPAY_OAUTH_URL" default:"https://epay-oauth.homebank.kz"`
	EpayAPIBaseURL   string `envconfig:"EPAY_API_BASE_URL" default:"https://epay-api.homebank.kz"`
	EpayWidgetJSURL  string `envconfig:"EPAY_WIDGET_JS_URL" default:"https://epay.homebank.kz/payform/payment-api.js"`

	// Payment gateway callback base URL (the CSMS's own public origin, used to
	// build each gateway's redirect/callback URLs).
	PaymentPublicBaseURL string `envconfig:"PAYMENT_PUBLIC_BASE_URL" default:"http://localhost:8000"`

	// Ticket SLA sweep.
	ReminderCheckMinutes    int `envconfig:"REMINDER_CHECK_MINUTES" default:"15"`
	ReminderCooldownHours   int `envconfig:"REMINDER_COOLDOWN_HOURS" default:"4"`

	// Mailer.
	SMTPHost     string `envconfig:"SMTP_HOST" default:""`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:""`

	// Bootstrap admin.
	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:""`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" default:""`
	AdminName     string `envconfig:"ADMIN_NAME" default:"Administrator"`
}

// Load reads a .env file if present (ignored if absent) then populates Config
// from the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks invariants envconfig's tags cannot express.
func (c *Config) Validate() error {
	if len(c.JWTSecretKey) < 16 {
		return fmt.Errorf("config: JWT_SECRET_KEY must be at least 16 characters")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required")
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: PORT must be between 1 and 65535")
	}
	if c.OCPPPort < 1 || c.OCPPPort > 65535 {
		return fmt.Errorf("config: OCPP_PORT must be between 1 and 65535")
	}
	return nil
}

// CallbacksEnabled reports whether the payment callback secret is configured.
// When false, the callback endpoint must answer 503 rather than 401 (§6/§8
// scenario 6).
func (c *Config) CallbacksEnabled() bool {
	return c.PaymentCallbackSecret != ""
}

// IsDevelopment reports whether APP_ENV is "development" (the default).
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// MailerEnabled reports whether SMTP settings are present; absent settings
// fall back to a logging no-op mailer.
func (c *Config) MailerEnabled() bool {
	return c.SMTPHost != ""
}
