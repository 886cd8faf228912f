package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LuisCutz/expo-notifications/internal/push"
)

func registerCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register for push notifications and print the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := c.app.Register(cmd.Context())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "registration failed: %s\n", push.ReasonOf(err))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func channelsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "Register, then list the configured notification channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// registration is what configures the channel; its outcome does
			// not matter here
			_, _ = c.app.Register(cmd.Context())

			ids, err := c.app.Registrar.Channels(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "no notification channels")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
}
