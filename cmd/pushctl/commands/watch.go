package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LuisCutz/expo-notifications/internal/logging"
	"github.com/LuisCutz/expo-notifications/internal/platform"
)

// watch: keep the push screen active and print notifications as they arrive.
func watchCmd(c *cli) *cobra.Command {
	var simulate time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Attach notification listeners until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			cancel := c.app.Observer.OnChange(func(n platform.Notification) {
				data, _ := json.Marshal(n.Data)
				fmt.Fprintf(out, "%s  %s | %s | %s\n", n.ReceivedAt.Format(time.RFC3339), n.Title, n.Body, data)
			})
			defer cancel()

			token, err := c.app.ActivatePushScreen(ctx)
			if err != nil && !c.app.Observer.Active() {
				return err
			}
			defer c.app.DeactivatePushScreen()
			if err != nil {
				logging.Get().Warn().Err(err).Msg("push registration failed; still listening")
			} else {
				fmt.Fprintf(out, "push token: %s\n", token)
			}

			if simulate > 0 {
				go c.simulate(cmd, simulate)
			}
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().DurationVar(&simulate, "simulate", 0, "emit the configured remote notification at this interval")
	return cmd
}

func (c *cli) simulate(cmd *cobra.Command, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	content := c.cfg.RemoteNotification
	for {
		select {
		case <-cmd.Context().Done():
			return
		case <-t.C:
			c.platform.Emit(platform.Content{Title: content.Title, Body: content.Body, Data: content.Data, Sound: content.Sound})
		}
	}
}
