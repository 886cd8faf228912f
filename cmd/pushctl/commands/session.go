package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LuisCutz/expo-notifications/internal/logging"
	"github.com/LuisCutz/expo-notifications/internal/session"
)

func signInCmd(c *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "sign-in",
		Short: "Authenticate and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.ValidateCredentials(email, password); err != nil {
				return err
			}
			res := c.app.Session.SignIn(cmd.Context(), email, password)
			if !res.Success {
				if res.Err != nil {
					return res.Err
				}
				return errors.New(res.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed in")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func signOutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sign-out",
		Short: "Clear the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Session.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func statusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and configuration state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.app.Session.Wait(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case st.Err != nil:
				fmt.Fprintf(out, "session:       unavailable (%v)\n", st.Err)
			case st.Value == "":
				fmt.Fprintln(out, "session:       signed out")
			default:
				fmt.Fprintf(out, "session:       signed in (%s)\n", logging.Redact(st.Value))
			}

			cfg := c.cfg
			projectID, ok := cfg.Manifest.ProjectID()
			if !ok {
				projectID = "(missing)"
			}
			fmt.Fprintf(out, "delivery mode: %s\n", cfg.DeliveryMode)
			fmt.Fprintf(out, "project id:    %s\n", projectID)
			fmt.Fprintf(out, "api:           %s\n", cfg.APIBaseURL)
			fmt.Fprintf(out, "device:        physical=%t os=%s permission=%s\n", cfg.Device.Physical, cfg.Device.OS, cfg.Device.Permission)
			for _, w := range cfg.Validate() {
				fmt.Fprintf(out, "warning:       %s\n", w)
			}
			return nil
		},
	}
}
