// Package commands implements the kksbot CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kksbot",
		Short: "KKs-Bot - conversational group chat participant",
		Long: `KKs-Bot is a Discord group chat participant that decides per
message whether to act, speak, or stay quiet, tracking the mood of
channels and users along the way.

Examples:
  kksbot serve
  kksbot serve --config ./config.yaml
  kksbot chat
  kksbot config set-keys`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
