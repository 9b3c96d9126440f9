// Package config defines the configuration structure for the outage risk
// service. Configuration is loaded once at process start and is immutable
// thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> Secret Files (Lowest)
//
// Any missing required value or invalid format fails startup.
package config

import (
	"time"

	"outagewatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"outagewatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	Server        ServerConfig
	Database      DatabaseConfig
	Weather       WeatherConfig
	Email         EmailConfig
	SMS           SMSConfig
	Model         ModelConfig
	Scheduler     SchedulerConfig
	AWS           AWSConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2" validate:"min=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
	AutoMigrate       bool          `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// WeatherConfig configures the current-conditions provider.
type WeatherConfig struct {
	APIKey  SecretString  `envconfig:"OPENWEATHER_API_KEY"`
	BaseURL string        `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org" validate:"url"`
	Timeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s"`
}

// EmailConfig holds email delivery provider credentials.
type EmailConfig struct {
	SendGridAPIKey SecretString `envconfig:"SENDGRID_API_KEY"`
	FromAddress    string       `envconfig:"EMAIL_FROM_ADDRESS" default:"alerts@outagewatch.local" validate:"email"`
	FromName       string       `envconfig:"EMAIL_FROM_NAME" default:"Outage Watch Alerts"`
}

// SMSConfig holds Twilio credentials.
type SMSConfig struct {
	AccountSID SecretString `envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken  SecretString `envconfig:"TWILIO_AUTH_TOKEN"`
	FromNumber string       `envconfig:"TWILIO_FROM_NUMBER"`
	BaseURL    string       `envconfig:"TWILIO_BASE_URL" default:"https://api.twilio.com" validate:"url"`
}

// ModelConfig tunes training and label correlation.
type ModelConfig struct {
	Seed              int64         `envconfig:"MODEL_SEED" default:"42"`
	Trees             int           `envconfig:"MODEL_TREES" default:"100" validate:"min=1,max=1000"`
	ObservationWindow time.Duration `envconfig:"OBSERVATION_WINDOW" default:"6h" validate:"gt=0"`
	CorrelationScope  string        `envconfig:"CORRELATION_SCOPE" default:"global" validate:"oneof=global site"`
	CoordTolerance    float64       `envconfig:"CORRELATION_COORD_TOLERANCE" default:"0.01" validate:"gte=0"`
}

// SchedulerConfig controls background jobs. A zero interval disables the job.
type SchedulerConfig struct {
	RetrainInterval time.Duration `envconfig:"RETRAIN_INTERVAL" default:"0"`
	CollectInterval time.Duration `envconfig:"COLLECT_INTERVAL" default:"15m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region           string `envconfig:"AWS_REGION" default:"us-east-1"`
	AlertEventsQueue string `envconfig:"ALERT_EVENTS_QUEUE_URL" validate:"omitempty,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace  string `envconfig:"METRIC_NAMESPACE" default:"OutageWatch"`
	CloudWatchEnable bool   `envconfig:"METRICS_CLOUDWATCH" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// UsesStubs reports whether vendor clients should be replaced with stubs.
func (c *Config) UsesStubs() bool {
	return c.IsTestMode || c.Environment == localEnv
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSecretResolution indicates a failure when reading a secret file.
	ErrSecretResolution ConfigErrorType = "SECRET_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
