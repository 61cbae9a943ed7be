// Package config loads the connector configuration from config.toml and
// CONNECTOR_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CONNECTOR_BC_TENANT_ID.
const EnvPrefix = "CONNECTOR"

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Connector   ConnectorConfig
	MS          MSConfig
	BC          BCConfig
	TC          TCConfig
	Redis       RedisConfig
	Idempotency IdempotencyConfig
	Telemetry   TelemetryConfig
	Profiling   ProfilingConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string `validate:"required"`
	Env  string `validate:"oneof=development testing staging production"`
	Port string `validate:"required,numeric"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn warning error"`
	Format string `validate:"oneof=json console"`
	Output string `validate:"required"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64 `validate:"gt=0"`
	RateLimitEnabled  bool
	RateLimitRequests int           `validate:"gt=0"`
	RateLimitWindow   time.Duration `validate:"gt=0"`
	TrustedProxies    []string
}

// ConnectorConfig describes how the outside world reaches this process.
type ConnectorConfig struct {
	BaseURL string `validate:"required,url"`
}

// MSConfig holds the Microsoft identity platform client credentials.
type MSConfig struct {
	BaseURL      string `validate:"required,url"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	Scope        string `validate:"required"`
}

// BCConfig addresses the Business Central company.
type BCConfig struct {
	BaseURL      string `validate:"required,url"`
	TenantID     string `validate:"required"`
	Environment  string `validate:"required"`
	CompanyID    string `validate:"required"`
	CompanyName  string `validate:"required"`
	SharedSecret string `validate:"required"`
	Timeout      time.Duration
}

// TCConfig holds the Tradecloud integration account and webhook secret.
type TCConfig struct {
	BaseURL             string `validate:"required,url"`
	IntegrationUsername string `validate:"required"`
	IntegrationPassword string `validate:"required"`
	WebhookBearerToken  string `validate:"required"`
	Timeout             time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int `validate:"gte=0,lte=65535"`
	Password string
	DB       int `validate:"gte=0"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// IdempotencyConfig selects the webhook de-duplication store.
type IdempotencyConfig struct {
	Enabled bool
	// Backend is "redis" or "memory".
	Backend string        `validate:"oneof=redis memory"`
	TTL     time.Duration `validate:"gt=0"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64 `validate:"gte=0,lte=1"`
	ServiceName       string  `validate:"required"`
	Insecure          bool
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
}

// ProfilingConfig holds Pyroscope settings.
type ProfilingConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	ProfileTypes      []string
}

// Load reads configuration with this priority, highest first:
//  1. CONNECTOR_ environment variables
//  2. config.toml in ".", "./config" or "/app"
//  3. built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return fromViper(v)
}

// LoadFile reads configuration from an explicit file plus the environment.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Connector: ConnectorConfig{
			BaseURL: v.GetString("connector.base_url"),
		},
		MS: MSConfig{
			BaseURL:      v.GetString("ms.base_url"),
			ClientID:     v.GetString("ms.client_id"),
			ClientSecret: v.GetString("ms.client_secret"),
			Scope:        v.GetString("ms.scope"),
		},
		BC: BCConfig{
			BaseURL:      v.GetString("bc.base_url"),
			TenantID:     v.GetString("bc.tenant_id"),
			Environment:  v.GetString("bc.environment"),
			CompanyID:    v.GetString("bc.company_id"),
			CompanyName:  v.GetString("bc.company_name"),
			SharedSecret: v.GetString("bc.shared_secret"),
			Timeout:      v.GetDuration("bc.timeout"),
		},
		TC: TCConfig{
			BaseURL:             v.GetString("tc.base_url"),
			IntegrationUsername: v.GetString("tc.integration_username"),
			IntegrationPassword: v.GetString("tc.integration_password"),
			WebhookBearerToken:  v.GetString("tc.webhook_bearer_token"),
			Timeout:             v.GetDuration("tc.timeout"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Idempotency: IdempotencyConfig{
			Enabled: v.GetBool("idempotency.enabled"),
			Backend: v.GetString("idempotency.backend"),
			TTL:     v.GetDuration("idempotency.ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
		Profiling: ProfilingConfig{
			Enabled:           v.GetBool("profiling.enabled"),
			ServerAddress:     v.GetString("profiling.server_address"),
			ApplicationName:   v.GetString("profiling.application_name"),
			BasicAuthUser:     v.GetString("profiling.basic_auth_user"),
			BasicAuthPassword: v.GetString("profiling.basic_auth_password"),
			ProfileTypes:      v.GetStringSlice("profiling.profile_types"),
		},
	}
	if !v.IsSet("telemetry.sampling_ratio") {
		cfg.Telemetry.SamplingRatio = 1.0
	}

	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "bc-connector"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// Outbound BC round trips happen inside the request.
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 2 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 4 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 300
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.MS.BaseURL == "" {
		cfg.MS.BaseURL = "https://login.microsoftonline.com"
	}
	if cfg.MS.Scope == "" {
		cfg.MS.Scope = "https://api.businesscentral.dynamics.com/.default"
	}
	if cfg.BC.BaseURL == "" {
		cfg.BC.BaseURL = "https://api.businesscentral.dynamics.com/v2.0"
	}
	if cfg.BC.Timeout == 0 {
		cfg.BC.Timeout = 30 * time.Second
	}
	if cfg.TC.BaseURL == "" {
		cfg.TC.BaseURL = "https://api.accp.tradecloud1.com/v2"
	}
	if cfg.TC.Timeout == 0 {
		cfg.TC.Timeout = 30 * time.Second
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Idempotency.Backend == "" {
		cfg.Idempotency.Backend = "memory"
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = cfg.App.Name
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("config: %s failed %q validation", configKey(verrs[0].Namespace()), verrs[0].Tag())
		}
		return fmt.Errorf("config: %w", err)
	}

	if c.Profiling.Enabled && c.Profiling.ServerAddress == "" {
		return fmt.Errorf("config: profiling.server_address is required when profiling is enabled")
	}

	if c.App.Env == "production" {
		for name, u := range map[string]string{
			"connector.base_url": c.Connector.BaseURL,
			"ms.base_url":        c.MS.BaseURL,
			"bc.base_url":        c.BC.BaseURL,
			"tc.base_url":        c.TC.BaseURL,
		} {
			if !strings.HasPrefix(u, "https://") {
				return fmt.Errorf("config: %s must use https in production", name)
			}
		}
		if len(c.BC.SharedSecret) < 16 {
			return fmt.Errorf("config: bc.shared_secret must be at least 16 characters in production")
		}
		if len(c.TC.WebhookBearerToken) < 16 {
			return fmt.Errorf("config: tc.webhook_bearer_token must be at least 16 characters in production")
		}
		if c.Telemetry.Insecure {
			return fmt.Errorf("config: telemetry.insecure must be false in production")
		}
	}
	return nil
}

// configKey turns "Config.BC.TenantID" into "bc.tenantid".
func configKey(namespace string) string {
	return strings.ToLower(strings.TrimPrefix(namespace, "Config."))
}
