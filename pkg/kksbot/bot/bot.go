package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kkslabs/kksbot/pkg/kksbot/channels"
)

// quotaApology is posted once when every credential is exhausted while
// answering a direct message.
const quotaApology = "me quede sin energia, despues sigo"

var botMentionPattern = regexp.MustCompile(`<@!?\d+>`)

// Bot is the engagement controller: it consumes messages from all
// registered channels, maintains mood state, and decides per message
// whether to act, speak, or stay quiet.
type Bot struct {
	config     *Config
	channelMgr *channels.Manager
	pool       *CredentialPool
	breaker    *CircuitBreaker
	moods      *MoodStore
	gate       *SilenceGate
	classifier *IntentClassifier
	policy     *EngagementPolicy
	sessions   *SessionStore
	dispatcher *Dispatcher

	lastReplyMu sync.Mutex
	lastReply   map[string]time.Time

	logger *slog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a bot wired to the Gemini backend. Credentials must
// already be resolved on the config.
func New(cfg *Config, logger *slog.Logger) (*Bot, error) {
	return newBot(cfg, GeminiFactory(cfg.Model), nil, logger)
}

// newBot wires the bot with an injectable backend factory and playback
// collaborator.
func newBot(cfg *Config, factory BackendFactory, playback Playback, logger *slog.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	breaker := NewCircuitBreaker(cfg.Breaker.Window(), logger)
	pool := NewCredentialPool(cfg.Credentials, factory, logger)

	var snap Snapshotter
	if cfg.Memory.Path != "" {
		snap = NewFileSnapshot(cfg.Memory.Path)
	}

	b := &Bot{
		config:     cfg,
		channelMgr: channels.NewManager(logger),
		pool:       pool,
		breaker:    breaker,
		moods:      NewMoodStore(snap, logger),
		gate:       NewSilenceGate(cfg.Silence.Window()),
		policy:     NewEngagementPolicy(cfg.Engagement),
		sessions:   NewSessionStore(cfg.Persona, logger),
		dispatcher: NewDispatcher(playback, logger),
		lastReply:  make(map[string]time.Time),
		logger:     logger.With("component", "bot"),
		now:        time.Now,
	}
	b.classifier = NewIntentClassifier(b.generate, logger)
	return b, nil
}

// Channels exposes the channel manager for adapter registration.
func (b *Bot) Channels() *channels.Manager {
	return b.channelMgr
}

// Start probes the credentials, connects all channels, and launches the
// message loop.
func (b *Bot) Start(ctx context.Context) error {
	if !b.channelMgr.HasChannels() {
		return errors.New("no channels registered")
	}

	b.ctx, b.cancel = context.WithCancel(ctx)

	if b.pool.Enabled() {
		b.pool.Probe(b.ctx, b.breaker)
	} else {
		b.logger.Warn("no credentials configured, replies and classification disabled")
	}

	if err := b.channelMgr.Start(b.ctx); err != nil {
		b.cancel()
		return fmt.Errorf("starting channels: %w", err)
	}

	b.wg.Add(1)
	go b.messageLoop()
	b.logger.Info("bot started", "name", b.config.Name, "model", b.config.Model)
	return nil
}

// Stop shuts the bot down and waits for the message loop to drain.
func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.channelMgr.Stop()
	b.wg.Wait()
	b.logger.Info("bot stopped")
}

func (b *Bot) messageLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-b.channelMgr.Messages():
			if !ok {
				return
			}
			b.handleMessage(b.ctx, msg)
		}
	}
}

// handleMessage runs the full decision pipeline for one message.
func (b *Bot) handleMessage(ctx context.Context, msg *channels.IncomingMessage) {
	if msg == nil || msg.FromBot || strings.TrimSpace(msg.Content) == "" {
		return
	}

	// Commands are handled before every other gate so an admin can
	// always bring the bot back with !habla.
	if IsCommand(msg.Content) {
		result := b.HandleCommand(*msg)
		if result.Handled {
			if result.Response != "" {
				b.send(ctx, msg, result.Response, true)
			}
			return
		}
	}

	if b.breaker.Open() {
		return
	}

	addressed := msg.MentionsBot || msg.ReplyToBot

	// Mood tracking runs even while silenced; only output is suppressed.
	mood := b.moods.UpdateChannel(msg.ChatID, msg.Content)
	b.moods.UpdateUser(msg.From, msg.Content, addressed)

	if IsHeated(msg.Content) {
		b.gate.MarkHeated(msg.ChatID)
		b.logger.Info("heated message, auto-silencing", "channel", msg.ChatID)
		return
	}
	if b.gate.Silenced(msg.ChatID) {
		return
	}
	if !b.pool.Enabled() {
		return
	}

	if intent := b.classifier.Classify(ctx, msg.Content); !intent.None() {
		b.logger.Info("dispatching intent", "kind", intent.Kind, "query", intent.Query)
		if line := b.dispatcher.Dispatch(ctx, intent, msg.ChatID); line != "" {
			b.send(ctx, msg, line, addressed)
		} else {
			b.markReplied(msg.ChatID)
		}
		return
	}

	if !b.policy.ShouldRespond(addressed, b.sinceLastReply(msg.ChatID), mood.Label) {
		return
	}

	b.channelMgr.SendTyping(ctx, msg.Channel, msg.ChatID)

	reply, err := b.reply(ctx, msg, mood)
	if err != nil {
		// The apology replaces whatever reply would have been sent,
		// addressed or spontaneous.
		if errors.Is(err, ErrQuotaExceeded) {
			b.send(ctx, msg, quotaApology, addressed)
		}
		b.logger.Error("failed to generate reply", "channel", msg.ChatID, "error", err)
		return
	}
	if reply != "" {
		b.send(ctx, msg, reply, addressed)
	}
}

// reply generates a persona response through the channel session,
// rotating credentials on quota errors.
func (b *Bot) reply(ctx context.Context, msg *channels.IncomingMessage, mood ChannelMood) (string, error) {
	sess := b.sessions.GetOrCreate(msg.ChatID)
	prompt := fmt.Sprintf("%s: %s", msg.FromName, stripMentions(msg.Content))
	system := b.systemInstruction(mood)

	var reply string
	err := runWithRotation(ctx, b.pool, b.breaker, func(be Backend, epoch uint64) error {
		var serr error
		reply, serr = b.sessions.Exchange(ctx, sess, be, epoch, system, prompt)
		return serr
	})
	return reply, err
}

// generate is the single-shot generation used by the intent classifier.
func (b *Bot) generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	var out string
	err := runWithRotation(ctx, b.pool, b.breaker, func(be Backend, _ uint64) error {
		var gerr error
		out, gerr = be.Generate(ctx, systemInstruction, prompt)
		return gerr
	})
	return out, err
}

// systemInstruction renders the persona with the channel mood clause.
func (b *Bot) systemInstruction(mood ChannelMood) string {
	base := b.config.Persona
	switch mood.Label {
	case MoodTense:
		return base + " el ambiente esta tenso, solo intervenis para calmar."
	case MoodRelaxed:
		return base + " el ambiente esta relajado, estas mas suelto."
	default:
		return base
	}
}

func (b *Bot) send(ctx context.Context, msg *channels.IncomingMessage, text string, asReply bool) {
	out := &channels.OutgoingMessage{Content: text}
	if asReply {
		out.ReplyTo = msg.ID
	}
	if err := b.channelMgr.Send(ctx, msg.Channel, msg.ChatID, out); err != nil {
		b.logger.Error("failed to send message", "channel", msg.ChatID, "error", err)
		return
	}
	b.markReplied(msg.ChatID)
}

func (b *Bot) sinceLastReply(channelID string) time.Duration {
	b.lastReplyMu.Lock()
	defer b.lastReplyMu.Unlock()
	last, ok := b.lastReply[channelID]
	if !ok {
		return -1
	}
	return b.now().Sub(last)
}

func (b *Bot) markReplied(channelID string) {
	b.lastReplyMu.Lock()
	defer b.lastReplyMu.Unlock()
	b.lastReply[channelID] = b.now()
}

// stripMentions removes platform mention markup from the prompt text.
func stripMentions(text string) string {
	return strings.TrimSpace(botMentionPattern.ReplaceAllString(text, ""))
}
