package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"moversync/internal/notifications"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification utilities",
	}
	notifyCmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			err = notifications.TestNotification(requestContext(cmd), notifications.NewService(cfg))
			if errors.Is(err, notifications.ErrNotConfigured) {
				return fmt.Errorf("%w: set notifications.ntfy_topic or MOVERSYNC_NTFY_TOPIC", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent to %s\n", cfg.Notifications.NtfyTopic)
			return nil
		},
	})
	return notifyCmd
}
