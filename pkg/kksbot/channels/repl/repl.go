// Package repl implements an in-process channel backed by stdin/stdout,
// used by `kksbot chat` to talk to the full message pipeline without a
// Discord connection.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kkslabs/kksbot/pkg/kksbot/channels"
)

// ChatID is the synthetic chat identifier used for the local session.
const ChatID = "repl"

// Config holds REPL channel configuration.
type Config struct {
	// UserName is the display name attached to typed messages.
	UserName string

	// Mention marks every typed line as directly addressing the bot, so
	// the engagement policy always answers.
	Mention bool

	// In and Out default to stdin/stdout; tests inject buffers.
	In  io.Reader
	Out io.Writer
}

// REPL implements channels.Channel over a line-oriented reader/writer.
type REPL struct {
	cfg      Config
	logger   *slog.Logger
	messages chan *channels.IncomingMessage

	connected atomic.Bool
	cancel    context.CancelFunc
}

// New creates a new REPL channel.
func New(cfg Config, logger *slog.Logger) *REPL {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UserName == "" {
		cfg.UserName = "local"
	}
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &REPL{
		cfg:      cfg,
		logger:   logger.With("component", "repl"),
		messages: make(chan *channels.IncomingMessage, 16),
	}
}

// Name returns "repl".
func (r *REPL) Name() string { return "repl" }

// Connect starts the stdin reader goroutine.
func (r *REPL) Connect(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)
	r.connected.Store(true)

	go r.readLoop(ctx)
	return nil
}

// Disconnect stops the reader.
func (r *REPL) Disconnect() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.connected.Store(false)
	return nil
}

// Send prints the bot's reply to the output writer.
func (r *REPL) Send(_ context.Context, _ string, message *channels.OutgoingMessage) error {
	if !r.connected.Load() {
		return channels.ErrChannelDisconnected
	}
	_, err := fmt.Fprintf(r.cfg.Out, "bot> %s\n", message.Content)
	return err
}

// Receive returns the incoming messages channel.
func (r *REPL) Receive() <-chan *channels.IncomingMessage {
	return r.messages
}

// IsConnected returns true while the reader is running.
func (r *REPL) IsConnected() bool { return r.connected.Load() }

func (r *REPL) readLoop(ctx context.Context) {
	defer close(r.messages)

	scanner := bufio.NewScanner(r.cfg.In)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		msg := &channels.IncomingMessage{
			ID:          uuid.NewString(),
			Channel:     "repl",
			From:        "local",
			FromName:    r.cfg.UserName,
			FromAdmin:   true,
			ChatID:      ChatID,
			Content:     line,
			Timestamp:   time.Now(),
			MentionsBot: r.cfg.Mention,
		}

		select {
		case r.messages <- msg:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		r.logger.Error("repl: read error", "error", err)
	}
}

var _ channels.Channel = (*REPL)(nil)
