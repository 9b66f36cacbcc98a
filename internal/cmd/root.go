// Package cmd implements the relay's command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "wessaal-relay",
	Short: "Wessaal event relay",
	Long: `wessaal-relay bridges a messaging-platform event stream to an HTTP
webhook backend and to browser clients subscribed per instance.

Events are normalized into a stable envelope, forwarded to the webhook
with bounded retries, and fanned out to WebSocket rooms.`,
	Version: "0.1.0",
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (YAML)")
}
