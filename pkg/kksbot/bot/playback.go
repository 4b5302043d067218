package bot

import (
	"context"
	"errors"
	"log/slog"
)

// ErrPlaybackUnavailable is returned when no playback collaborator is
// wired in.
var ErrPlaybackUnavailable = errors.New("playback unavailable")

// Playback is the voice/music collaborator the intent dispatcher drives.
// The bot ships without an implementation; deployments plug their own.
type Playback interface {
	Play(ctx context.Context, channelID, query string) error
	Skip(ctx context.Context, channelID string) error
	Stop(ctx context.Context, channelID string) error
	Join(ctx context.Context, channelID string) error
	Leave(ctx context.Context, channelID string) error
}

// Dispatcher routes classified intents to the playback collaborator and
// produces the user-visible confirmation or failure line.
type Dispatcher struct {
	playback Playback
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. playback may be nil.
func NewDispatcher(playback Playback, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		playback: playback,
		logger:   logger.With("component", "playback"),
	}
}

// Dispatch executes an intent and returns the line to post in chat. An
// empty string means nothing should be said.
func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent, channelID string) string {
	if intent.None() {
		return ""
	}

	err := d.run(ctx, intent, channelID)
	if err != nil {
		d.logger.Warn("playback action failed", "intent", intent.Kind, "error", err)
		if errors.Is(err, ErrPlaybackUnavailable) {
			return "no puedo con la musica ahora"
		}
		return "no me salio, proba de nuevo"
	}

	if intent.Kind == IntentPlayMusic {
		return "va, pongo algo"
	}
	return ""
}

func (d *Dispatcher) run(ctx context.Context, intent Intent, channelID string) error {
	if d.playback == nil {
		return ErrPlaybackUnavailable
	}
	switch intent.Kind {
	case IntentPlayMusic:
		return d.playback.Play(ctx, channelID, intent.Query)
	case IntentSkipMusic:
		return d.playback.Skip(ctx, channelID)
	case IntentStopMusic:
		return d.playback.Stop(ctx, channelID)
	case IntentJoinVoice:
		return d.playback.Join(ctx, channelID)
	case IntentLeaveVoice:
		return d.playback.Leave(ctx, channelID)
	}
	return nil
}
