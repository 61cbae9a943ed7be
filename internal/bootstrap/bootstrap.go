// Package bootstrap builds the connector's components from a loaded
// configuration. It is shared by the server and the operator CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	appintegration "github.com/tradecloud/bc-connector/internal/application/integration"
	"github.com/tradecloud/bc-connector/internal/domain/integration"
	"github.com/tradecloud/bc-connector/internal/infrastructure/businesscentral"
	"github.com/tradecloud/bc-connector/internal/infrastructure/cache"
	"github.com/tradecloud/bc-connector/internal/infrastructure/config"
	"github.com/tradecloud/bc-connector/internal/infrastructure/httpexec"
	"github.com/tradecloud/bc-connector/internal/infrastructure/logger"
	"github.com/tradecloud/bc-connector/internal/infrastructure/msauth"
	"github.com/tradecloud/bc-connector/internal/infrastructure/telemetry"
	"github.com/tradecloud/bc-connector/internal/infrastructure/tradecloud"
)

// Version is stamped at build time with -ldflags "-X ...bootstrap.Version=...".
var Version = "dev"

// Connector holds the wired components of one connector process.
type Connector struct {
	Config *config.Config
	Logger *zap.Logger

	Telemetry *telemetry.Providers
	Profiler  *telemetry.Profiler
	Metrics   *telemetry.ConnectorMetrics

	BCExecutor *httpexec.Executor
	TCExecutor *httpexec.Executor

	Orders        *businesscentral.PurchaseOrderClient
	Subscriptions *businesscentral.SubscriptionClient
	Reconciler    *businesscentral.Reconciler
	Submitter     *tradecloud.OrderClient

	OrderSync     *appintegration.OrderSyncService
	OrderResponse *appintegration.OrderResponseService
	// Idempotency is nil when de-duplication is disabled.
	Idempotency integration.IdempotencyStore
}

// Options tunes New.
type Options struct {
	// Telemetry starts the OTLP providers and the profiler. The CLI leaves it off.
	Telemetry bool
}

// NewLogger builds the base logger from the log section.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// New wires every component. On error, whatever was started is shut down.
func New(ctx context.Context, cfg *config.Config, base *zap.Logger, opts Options) (_ *Connector, err error) {
	if base == nil {
		base = zap.NewNop()
	}
	c := &Connector{Config: cfg, Logger: base}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
		}
	}()

	if opts.Telemetry {
		if err := c.startTelemetry(ctx); err != nil {
			return nil, err
		}
	}
	log := c.Logger

	bcCfg := BusinessCentralConfig(cfg)
	if err := bcCfg.Validate(); err != nil {
		return nil, err
	}
	credentials, err := msauth.NewClientCredentials(MSAuthConfig(cfg), log.Named("msauth"))
	if err != nil {
		return nil, err
	}
	tcCfg := TradecloudConfig(cfg)
	session, err := tradecloud.NewSession(tcCfg, log.Named("tradecloud"))
	if err != nil {
		return nil, err
	}

	c.BCExecutor = httpexec.New(credentials,
		httpexec.WithHTTPClient(&http.Client{Timeout: timeoutOr(cfg.BC.Timeout)}),
		httpexec.WithLogger(log.Named("bc")),
		httpexec.WithObserver(c.Metrics),
	)
	c.TCExecutor = httpexec.New(session,
		httpexec.WithHTTPClient(&http.Client{Timeout: timeoutOr(cfg.TC.Timeout)}),
		httpexec.WithLogger(log.Named("tc")),
		httpexec.WithObserver(c.Metrics),
	)

	c.Orders = businesscentral.NewPurchaseOrderClient(bcCfg, c.BCExecutor, log.Named("orders"))
	c.Subscriptions = businesscentral.NewSubscriptionClient(bcCfg, c.BCExecutor, log.Named("subscription"))
	c.Reconciler = businesscentral.NewReconciler(c.Orders, log.Named("reconciler"),
		businesscentral.WithMutationObserver(c.Metrics),
	)
	c.Submitter = tradecloud.NewOrderClient(tcCfg, c.TCExecutor, log.Named("tradecloud"))

	if cfg.Idempotency.Enabled {
		c.Idempotency, err = cache.NewIdempotencyStore(ctx, StoreOptions(cfg, log.Named("idempotency")))
		if err != nil {
			return nil, err
		}
	}

	c.OrderSync = appintegration.NewOrderSyncService(c.Orders, c.Submitter, c.Metrics, log.Named("order_sync"))
	c.OrderResponse = appintegration.NewOrderResponseService(appintegration.OrderResponseServiceConfig{
		Reconciler:     c.Reconciler,
		Idempotency:    c.Idempotency,
		IdempotencyTTL: cfg.Idempotency.TTL,
		Metrics:        c.Metrics,
		Logger:         log.Named("order_response"),
	})
	return c, nil
}

func (c *Connector) startTelemetry(ctx context.Context) error {
	cfg := c.Config
	providers, err := telemetry.Setup(ctx, TelemetryConfig(cfg), c.Logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	c.Telemetry = providers

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	c.Logger = providers.Logs.Bridge(c.Logger, level)

	c.Profiler, err = telemetry.NewProfiler(ProfilerConfig(cfg), c.Logger)
	if err != nil {
		return fmt.Errorf("profiler: %w", err)
	}
	if c.Profiler.IsEnabled() {
		providers.Tracer.EnableSpanProfiles()
	}

	if providers.Meter.IsEnabled() {
		c.Metrics, err = telemetry.NewConnectorMetrics(providers.Meter.Meter(telemetry.TracerName), c.Logger)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	return nil
}

// HealthChecks returns the dependency probes served on /health.
func (c *Connector) HealthChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if p, ok := c.Idempotency.(interface{ Ping(context.Context) error }); ok {
		checks["idempotency"] = p.Ping
	}
	return checks
}

// Close releases the idempotency store and flushes telemetry.
func (c *Connector) Close(ctx context.Context) error {
	var errs []error
	if c.Idempotency != nil {
		errs = append(errs, c.Idempotency.Close())
	}
	if c.Profiler != nil {
		errs = append(errs, c.Profiler.Stop())
	}
	errs = append(errs, c.Telemetry.Shutdown(ctx))
	return errors.Join(errs...)
}

func timeoutOr(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
