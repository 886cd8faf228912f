package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LuisCutz/expo-notifications/internal/config"
)

// send: trigger the configured notification through the selected path.
func sendCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Trigger a notification locally or through the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.app.Observer.Activate(ctx); err != nil {
				return err
			}
			defer c.app.Observer.Deactivate()

			if err := c.app.Send(ctx, ""); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.cfg.DeliveryMode == config.ModeLocal {
				fmt.Fprintln(out, "notification scheduled")
			} else {
				fmt.Fprintln(out, "notification sent from the API")
			}
			if n, ok := c.app.Observer.Last(); ok {
				fmt.Fprintf(out, "received: %s | %s\n", n.Title, n.Body)
			}
			return nil
		},
	}
}
