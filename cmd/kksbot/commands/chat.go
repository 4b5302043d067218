package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kkslabs/kksbot/pkg/kksbot/bot"
	"github.com/kkslabs/kksbot/pkg/kksbot/channels/repl"
)

// newChatCmd creates the `kksbot chat` command: a local REPL that runs
// the full message pipeline against stdin/stdout.
func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot locally without Discord",
		Long: `Open a local chat session on the terminal. Every line goes
through the same pipeline as a Discord message, including mood tracking
and admin commands.

Examples:
  kksbot chat
  kksbot chat --lurk`,
		RunE: runChat,
	}

	cmd.Flags().Bool("lurk", false, "do not address the bot directly, let the engagement policy decide")
	cmd.Flags().String("user", "local", "display name for typed messages")
	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
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

	lurk, _ := cmd.Flags().GetBool("lurk")
	userName, _ := cmd.Flags().GetString("user")

	rc := repl.New(repl.Config{UserName: userName, Mention: !lurk}, logger)
	if err := b.Channels().Register(rc); err != nil {
		return fmt.Errorf("registering repl channel: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("starting bot: %w", err)
	}

	fmt.Println("chat session started. Ctrl+C to exit.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println()
	shutdown(b, logger)
	return nil
}
