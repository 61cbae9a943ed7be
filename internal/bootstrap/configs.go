package bootstrap

import (
	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/infrastructure/businesscentral"
	"github.com/tradecloud/bc-connector/internal/infrastructure/cache"
	"github.com/tradecloud/bc-connector/internal/infrastructure/config"
	"github.com/tradecloud/bc-connector/internal/infrastructure/msauth"
	"github.com/tradecloud/bc-connector/internal/infrastructure/telemetry"
	"github.com/tradecloud/bc-connector/internal/infrastructure/tradecloud"
)

// BusinessCentralConfig maps the bc and connector sections.
func BusinessCentralConfig(cfg *config.Config) *businesscentral.Config {
	return &businesscentral.Config{
		BaseURL:          cfg.BC.BaseURL,
		TenantID:         cfg.BC.TenantID,
		Environment:      cfg.BC.Environment,
		CompanyID:        cfg.BC.CompanyID,
		CompanyName:      cfg.BC.CompanyName,
		SharedSecret:     cfg.BC.SharedSecret,
		ConnectorBaseURL: cfg.Connector.BaseURL,
	}
}

// MSAuthConfig maps the ms section. The tenant comes from bc.
func MSAuthConfig(cfg *config.Config) msauth.Config {
	return msauth.Config{
		BaseURL:      cfg.MS.BaseURL,
		TenantID:     cfg.BC.TenantID,
		ClientID:     cfg.MS.ClientID,
		ClientSecret: cfg.MS.ClientSecret,
		Scope:        cfg.MS.Scope,
		Timeout:      cfg.BC.Timeout,
	}
}

// TradecloudConfig maps the tc section.
func TradecloudConfig(cfg *config.Config) tradecloud.Config {
	return tradecloud.Config{
		BaseURL:             cfg.TC.BaseURL,
		IntegrationUsername: cfg.TC.IntegrationUsername,
		IntegrationPassword: cfg.TC.IntegrationPassword,
		Timeout:             cfg.TC.Timeout,
	}
}

// TelemetryConfig maps the telemetry section.
func TelemetryConfig(cfg *config.Config) telemetry.Config {
	return telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}
}

// ProfilerConfig maps the profiling section. The application name
// defaults to the telemetry service name.
func ProfilerConfig(cfg *config.Config) telemetry.ProfilerConfig {
	name := cfg.Profiling.ApplicationName
	if name == "" {
		name = cfg.Telemetry.ServiceName
	}
	return telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   name,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		ProfileTypes:      cfg.Profiling.ProfileTypes,
	}
}

// StoreOptions maps the idempotency and redis sections. Outside production
// an unreachable Redis falls back to the in-memory store.
func StoreOptions(cfg *config.Config, logger *zap.Logger) cache.StoreOptions {
	return cache.StoreOptions{
		Backend: cfg.Idempotency.Backend,
		Redis: cache.RedisConfig{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		AllowInMemoryFallback: cfg.App.Env != "production",
		Logger:                logger,
	}
}
