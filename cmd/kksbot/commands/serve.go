package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kkslabs/kksbot/pkg/kksbot/bot"
	"github.com/kkslabs/kksbot/pkg/kksbot/channels/discord"
)

// newServeCmd creates the `kksbot serve` command that starts the daemon.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the bot connected to Discord",
		Long: `Start KKs-Bot as a daemon, connecting to Discord and processing
messages through the engagement pipeline.

Examples:
  kksbot serve
  kksbot serve --config ./config.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	bot.ResolveCredentials(cfg, logger)

	b, err := bot.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	if cfg.Channels.Discord.Token == "" {
		return fmt.Errorf("no Discord token configured; set channels.discord.token in the config")
	}
	dc := discord.New(cfg.Channels.Discord, logger)
	if err := b.Channels().Register(dc); err != nil {
		return fmt.Errorf("registering Discord channel: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("starting bot: %w", err)
	}

	logger.Info("KKs-Bot running. Press Ctrl+C to stop.", "name", cfg.Name, "model", cfg.Model)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")
	shutdown(b, logger)
	return nil
}

// shutdown stops the bot with a hard timeout.
func shutdown(b *bot.Bot, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
	}
}

// newLogger builds the slog logger from the logging config and the
// --verbose flag.
func newLogger(cmd *cobra.Command, cfg *bot.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}

// resolveConfig loads the config from the --config flag, an auto-discovered
// file, or falls back to defaults.
func resolveConfig(cmd *cobra.Command) (*bot.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	if configPath != "" {
		cfg, err := bot.LoadConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	if found := bot.FindConfigFile(); found != "" {
		cfg, err := bot.LoadConfigFromFile(found)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", found, err)
		}
		slog.Info("config loaded", "path", found)
		return cfg, nil
	}

	slog.Warn("no config file found, using defaults",
		"hint", "run: kksbot config init")
	return bot.DefaultConfig(), nil
}
