package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradecloud/bc-connector/internal/bootstrap"
	"github.com/tradecloud/bc-connector/internal/domain/integration"
)

// NewSubscriptionsCommand groups the subscription commands.
func NewSubscriptionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subscription", "subs"},
		Short:   "Manage the Business Central change notification subscription",
	}
	cmd.AddCommand(newSubscriptionsListCommand(rootOpts))
	cmd.AddCommand(newSubscriptionsEnsureCommand(rootOpts))
	cmd.AddCommand(newSubscriptionsRemoveCommand(rootOpts))
	return cmd
}

func newSubscriptionsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the subscriptions registered for the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnector(cmd, rootOpts, func(ctx context.Context, conn *bootstrap.Connector) error {
				subs, err := conn.Subscriptions.List(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "listing subscriptions failed", err)
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Print(subs.Value, func(w io.Writer) error {
					return subscriptionTable(w, subs.Value)
				})
			})
		},
	}
}

func newSubscriptionsEnsureCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Adopt or create the connector's purchase order subscription",
		Long: `Adopt the subscription matching the connector's notification URL and
purchase order resource, or create one. Creating a subscription requires the
connector to be reachable at its base URL, because Business Central validates
the notification URL with a handshake.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnector(cmd, rootOpts, func(ctx context.Context, conn *bootstrap.Connector) error {
				if err := conn.Subscriptions.EnsureSubscription(ctx); err != nil {
					return WrapExitError(ExitFailure, "ensuring subscription failed", err)
				}
				sub, _ := conn.Subscriptions.Held()
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Print(sub, func(w io.Writer) error {
					return subscriptionTable(w, []integration.Subscription{sub})
				})
			})
		},
	}
}

func newSubscriptionsRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <subscription-id> <etag>",
		Short: "Delete a subscription",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnector(cmd, rootOpts, func(ctx context.Context, conn *bootstrap.Connector) error {
				if err := conn.Subscriptions.Remove(ctx, args[0], args[1]); err != nil {
					return WrapExitError(ExitFailure, "removing subscription failed", err)
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Print(map[string]string{"removed": args[0]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "removed %s\n", args[0])
					return err
				})
			})
		},
	}
}

func subscriptionTable(w io.Writer, subs []integration.Subscription) error {
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		expires := ""
		if !s.ExpirationDateTime.IsZero() {
			expires = s.ExpirationDateTime.Format(time.RFC3339)
		}
		rows = append(rows, []string{s.SubscriptionID, s.Resource, s.NotificationURL, expires, s.ETag})
	}
	return Table(w, []string{"ID", "RESOURCE", "NOTIFICATION URL", "EXPIRES", "ETAG"}, rows)
}
