package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/bootstrap"
	"github.com/tradecloud/bc-connector/internal/infrastructure/config"
	"github.com/tradecloud/bc-connector/internal/infrastructure/telemetry"
	"github.com/tradecloud/bc-connector/internal/interfaces/http/handler"
	"github.com/tradecloud/bc-connector/internal/interfaces/http/middleware"
	"github.com/tradecloud/bc-connector/internal/interfaces/http/router"
)

// subscriptionTimeout bounds the startup subscription and the shutdown unsubscribe.
const subscriptionTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	base, err := bootstrap.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = base.Sync() }()

	ctx := context.Background()
	conn, err := bootstrap.New(ctx, cfg, base, bootstrap.Options{Telemetry: true})
	if err != nil {
		base.Error("Failed to wire connector", zap.Error(err))
		return err
	}
	log := conn.Logger

	log.Info("Starting Business Central connector",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", bootstrap.Version),
		zap.String("connector_base_url", cfg.Connector.BaseURL),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
	}

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.App.Env == "production"

	routerCfg := router.Config{
		Logger:           log,
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   conn.Telemetry.Tracer.IsEnabled(),
		ProfilingEnabled: conn.Profiler.IsEnabled(),
		Security:         security,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		MaxBodySize:      cfg.HTTP.MaxBodySize,
		RateLimiter:      limiter,
	}
	if conn.Telemetry.Meter.IsEnabled() {
		routerCfg.Meter = conn.Telemetry.Meter.Meter("http.server")
	}
	r, err := router.NewRouter(routerCfg)
	if err != nil {
		return err
	}

	checks := map[string]handler.HealthCheck{}
	for name, check := range conn.HealthChecks() {
		checks[name] = check
	}
	r.RegisterSystem(handler.NewSystemHandler(handler.SystemHandlerConfig{
		ConnectorBaseURL: cfg.Connector.BaseURL,
		Version:          bootstrap.Version,
		Subscriptions:    conn.Subscriptions,
		Checks:           checks,
		Logger:           log.Named("system"),
	}))
	r.RegisterWebhooks(
		handler.NewBCWebhookHandler(conn.OrderSync, cfg.BC.SharedSecret, log.Named("bc_webhook")),
		handler.NewTCWebhookHandler(conn.OrderResponse, cfg.TC.WebhookBearerToken, log.Named("tc_webhook")),
	)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        r.Setup(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Listen before subscribing: Business Central validates the notification
	// URL with a handshake while the subscription is being created.
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	go ensureSubscription(ctx, conn, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down server...", zap.String("signal", sig.String()))
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
	}

	return shutdown(srv, conn, log, cfg.HTTP.ShutdownTimeout)
}

func ensureSubscription(ctx context.Context, conn *bootstrap.Connector, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, subscriptionTimeout)
	defer cancel()

	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("ensure_subscription"), func(ctx context.Context) {
		if err := conn.Subscriptions.EnsureSubscription(ctx); err != nil {
			log.Error("Could not ensure Business Central subscription; notifications will not arrive", zap.Error(err))
		}
	})
}

// shutdown stops accepting requests, drops the subscription, then flushes telemetry.
func shutdown(srv *http.Server, conn *bootstrap.Connector, log *zap.Logger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		errs = append(errs, err)
	}

	subCtx, subCancel := context.WithTimeout(context.Background(), subscriptionTimeout)
	defer subCancel()
	if err := conn.Subscriptions.Unsubscribe(subCtx); err != nil {
		log.Warn("Unsubscribe failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := conn.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
