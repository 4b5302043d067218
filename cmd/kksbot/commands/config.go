package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kkslabs/kksbot/pkg/kksbot/bot"
)

// newConfigCmd creates the `kksbot config` command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bot configuration and credentials",
		Long: `Manage the KKs-Bot configuration file and the Gemini API keys
stored in the OS keyring.

Examples:
  kksbot config init
  kksbot config show
  kksbot config set-keys
  kksbot config del-keys`,
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(),
		newConfigSetKeysCmd(),
		newConfigDelKeysCmd(),
	)

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml",
		RunE: func(_ *cobra.Command, _ []string) error {
			const path = "config.yaml"
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := bot.SaveConfigToFile(bot.DefaultConfig(), path); err != nil {
				return err
			}
			fmt.Printf("Configuration written to ./%s\n", path)
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			fmt.Printf("name:        %s\n", cfg.Name)
			fmt.Printf("model:       %s\n", cfg.Model)
			fmt.Printf("memory:      %s\n", cfg.Memory.Path)
			fmt.Printf("base chance: %.2f (cooldown %s)\n",
				cfg.Engagement.BaseChance, cfg.Engagement.Cooldown())
			fmt.Printf("discord:     token %s\n", redacted(cfg.Channels.Discord.Token))

			if raw := bot.StoredCredentials(); raw != "" {
				fmt.Printf("keyring:     %d key(s) stored\n", len(strings.Split(raw, ",")))
			} else {
				fmt.Println("keyring:     no keys stored")
			}
			return nil
		},
	}
}

func newConfigSetKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-keys",
		Short: "Store Gemini API keys in the OS keyring",
		RunE: func(_ *cobra.Command, _ []string) error {
			if !bot.KeyringAvailable() {
				return fmt.Errorf("no OS keyring available on this system")
			}

			fmt.Print("Gemini API keys (comma-separated, in rotation order): ")
			reader := bufio.NewReader(os.Stdin)
			line, _ := reader.ReadString('\n')
			line = strings.TrimSpace(line)
			if line == "" {
				return fmt.Errorf("no keys provided")
			}

			if err := bot.StoreCredentials(line); err != nil {
				return fmt.Errorf("storing keys: %w", err)
			}
			fmt.Printf("Stored %d key(s) in the OS keyring.\n", len(strings.Split(line, ",")))
			return nil
		},
	}
}

func newConfigDelKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del-keys",
		Short: "Remove Gemini API keys from the OS keyring",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := bot.DeleteCredentials(); err != nil {
				return fmt.Errorf("deleting keys: %w", err)
			}
			fmt.Println("Keys removed from the OS keyring.")
			return nil
		},
	}
}

func redacted(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
