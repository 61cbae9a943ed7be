// Package cli implements connectorctl, the operator command line of the
// connector.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/bootstrap"
	"github.com/tradecloud/bc-connector/internal/infrastructure/config"
	"github.com/tradecloud/bc-connector/internal/infrastructure/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the connectorctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "connectorctl",
		Short: "Operate the Business Central to Tradecloud connector",
		Long: `connectorctl runs single connector operations against the configured
Business Central company and Tradecloud account: managing the change
notification subscription, forwarding one order, or applying a saved
Tradecloud order event.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default: config.toml search path)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log connector activity to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSubscriptionsCommand(opts))
	cmd.AddCommand(NewOrderCommand(opts))
	return cmd
}

// connect loads the configuration and wires the connector without telemetry.
func connect(ctx context.Context, opts *RootOptions) (*bootstrap.Connector, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.LoadFile(opts.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	logCfg := &logger.Config{Level: "warn", Format: "console", Output: "stderr"}
	if opts.Verbose {
		logCfg.Level = "debug"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg, log, bootstrap.Options{})
}

// withConnector runs fn with a wired connector and releases it afterwards.
func withConnector(cmd *cobra.Command, opts *RootOptions, fn func(context.Context, *bootstrap.Connector) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := connect(ctx, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "could not initialize connector", err)
	}
	defer func() {
		if err := conn.Close(context.Background()); err != nil {
			conn.Logger.Warn("Closing connector failed", zap.Error(err))
		}
	}()
	return fn(ctx, conn)
}
