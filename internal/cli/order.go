package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tradecloud/bc-connector/internal/bootstrap"
	"github.com/tradecloud/bc-connector/internal/domain/integration"
)

// NewOrderCommand groups the single-order commands.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Forward or reconcile a single purchase order",
	}
	cmd.AddCommand(newOrderSendCommand(rootOpts))
	cmd.AddCommand(newOrderReconcileCommand(rootOpts))
	return cmd
}

func newOrderSendCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "send <resource>",
		Short:   "Forward the order addressed by a notification resource to Tradecloud",
		Example: `  connectorctl order send "api/v2.0/companies(c0ffee)/purchaseOrders(0a1b2c3d-0000-0000-0000-000000000000)"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnector(cmd, rootOpts, func(ctx context.Context, conn *bootstrap.Connector) error {
				result, err := conn.OrderSync.SendOrder(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitFailure, "sending order failed", err)
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Print(result, func(w io.Writer) error {
					return Table(w, []string{"DOCUMENT", "STATUS", "OUTCOME", "LINES", "DROPPED"}, [][]string{{
						result.DocumentNo, string(result.Status), string(result.Outcome),
						strconv.Itoa(result.Lines), strconv.Itoa(len(result.Diagnostics)),
					}})
				})
			})
		},
	}
}

func newOrderReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <event.json>",
		Short: "Apply a saved Tradecloud order event to Business Central",
		Long: `Apply a saved Tradecloud webhook body ({"eventName": ..., "singleDeliveryOrderEvent": ...})
to the purchase order it names. Use "-" to read the event from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := readEvent(cmd, args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "reading order event failed", err)
			}
			return withConnector(cmd, rootOpts, func(ctx context.Context, conn *bootstrap.Connector) error {
				result, err := conn.OrderResponse.HandleEvent(ctx, envelope)
				if err != nil {
					return WrapExitError(ExitFailure, "reconciling order event failed", err)
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Print(result, func(w io.Writer) error {
					if err := Table(w, []string{"DOCUMENT", "EVENT", "OUTCOME", "UPDATED", "NEW"}, [][]string{{
						result.DocumentNo, result.EventName, string(result.Outcome),
						strconv.Itoa(result.UpdatedLines), strconv.Itoa(result.NewLines),
					}}); err != nil {
						return err
					}
					for _, d := range result.Diagnostics {
						fmt.Fprintf(w, "dropped line %s: %s\n", d.Position, d.Reason)
					}
					return nil
				})
			})
		},
	}
}

func readEvent(cmd *cobra.Command, path string) (*integration.OrderEventEnvelope, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var envelope integration.OrderEventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &envelope, nil
}
