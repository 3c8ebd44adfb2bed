// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// EscalationTimeout is the process-wide deadline before an unacked
	// PUSH/WHATSAPP dispatch falls back (e.g. "30s").
	EscalationTimeout string `mapstructure:"ESCALATION_TIMEOUT"`
	// BindingVerifyNumber is the callback number returned with SMS_BINDING
	// challenges (the number the user confirms from).
	BindingVerifyNumber string `mapstructure:"BINDING_VERIFY_NUMBER"`
	// BindingCodeTTL is how long a binding verification code stays valid (e.g. "5m").
	BindingCodeTTL string `mapstructure:"BINDING_CODE_TTL"`
	// CodeReturnToClient when true enables dev mode: the binding code is returned
	// in the login response instead of being delivered out-of-band. Must not be
	// true when Env is production (startup error).
	CodeReturnToClient bool `mapstructure:"CODE_RETURN_TO_CLIENT"`
	// SMSLocalAPIKey is the API key for SMS Local. SMS delivery stays a logged
	// stub while empty.
	SMSLocalAPIKey string `mapstructure:"SMS_LOCAL_API_KEY"`
	// SMSLocalSender is the optional sender ID for SMS Local.
	SMSLocalSender string `mapstructure:"SMS_LOCAL_SENDER"`
	// SMSLocalBaseURL is the SMS Local API base URL.
	SMSLocalBaseURL string `mapstructure:"SMS_LOCAL_BASE_URL"`
	// SMSLocalDemoPhone is the phone number all simulated SMS traffic is routed
	// to when SMS Local delivery is enabled. The engine has no per-user phone
	// directory.
	SMSLocalDemoPhone string `mapstructure:"SMS_LOCAL_DEMO_PHONE"`

	// Telemetry (optional). When Kafka brokers are set, the server emits telemetry to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events (default notifyd-telemetry).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317); empty disables OTel export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("ESCALATION_TIMEOUT", "30s")
	v.SetDefault("BINDING_VERIFY_NUMBER", "")
	v.SetDefault("BINDING_CODE_TTL", "5m")
	v.SetDefault("CODE_RETURN_TO_CLIENT", false)
	v.SetDefault("SMS_LOCAL_API_KEY", "")
	v.SetDefault("SMS_LOCAL_SENDER", "")
	v.SetDefault("SMS_LOCAL_BASE_URL", "https://www.smslocal.com/dev/bulkV2")
	v.SetDefault("SMS_LOCAL_DEMO_PHONE", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "notifyd-telemetry")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "notifyd-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.CodeReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: CODE_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if _, err := time.ParseDuration(cfg.EscalationTimeout); err != nil {
		return nil, errors.New("config: ESCALATION_TIMEOUT must be a duration (e.g. 30s)")
	}

	return &cfg, nil
}

// EscalationDeadline parses EscalationTimeout as a time.Duration. Returns 30s if unset or invalid.
func (c *Config) EscalationDeadline() time.Duration {
	d, err := time.ParseDuration(c.EscalationTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// BindingCodeDeadline parses BindingCodeTTL as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) BindingCodeDeadline() time.Duration {
	d, err := time.ParseDuration(c.BindingCodeTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
