package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hdrconv/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test ntfy notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			topic := cfg.Notifications.NtfyTopic
			if topic == "" {
				fmt.Fprintln(out, "ntfy topic not configured; set notifications.ntfy_topic or HDRCONV_NTFY_TOPIC")
				return nil
			}
			if !cfg.Notifications.Completed && !cfg.Notifications.Errors {
				fmt.Fprintln(out, "Note: completed and error notifications are both disabled")
			}
			if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification to %s: %w", topic, err)
			}
			fmt.Fprintf(out, "Test notification sent to %s\n", topic)
			return nil
		},
	}
}
