// Package bot implements the conversational-engagement core of kksbot:
// it decides per incoming message whether to dispatch a playback action,
// generate a reply, or stay quiet, while tracking channel and user mood
// and surviving backend quota exhaustion.
package bot

import (
	"time"

	"github.com/kkslabs/kksbot/pkg/kksbot/channels/discord"
)

// Config holds all bot configuration.
type Config struct {
	// Name is the bot name shown in diagnostics.
	Name string `yaml:"name"`

	// Model is the generative model to use (e.g. "gemini-3-flash-preview").
	Model string `yaml:"model"`

	// Persona is the base system instruction; the active channel mood
	// appends its own clause on top of it.
	Persona string `yaml:"persona"`

	// Credentials is the ordered list of backend API keys. Values support
	// ${VAR} expansion; the keyring and KKSBOT_GEMINI_KEYS override it.
	Credentials []string `yaml:"credentials"`

	// Channels configures communication channels.
	Channels ChannelsConfig `yaml:"channels"`

	// Engagement tunes when the bot speaks without being addressed.
	Engagement EngagementConfig `yaml:"engagement"`

	// Silence configures the automatic silence window.
	Silence SilenceConfig `yaml:"silence"`

	// Breaker configures the backend circuit breaker.
	Breaker BreakerConfig `yaml:"breaker"`

	// Memory configures the mood/profile snapshot file.
	Memory MemoryConfig `yaml:"memory"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// ChannelsConfig holds configuration for all channels.
type ChannelsConfig struct {
	Discord discord.Config `yaml:"discord"`
}

// EngagementConfig tunes the spontaneous-reply policy. The hour factors
// scale BaseChance by time of day; a higher factor never lowers the
// resulting probability.
type EngagementConfig struct {
	// BaseChance is the base probability of replying to a message that
	// does not address the bot directly.
	BaseChance float64 `yaml:"base_chance"`

	// CooldownSeconds is the minimum gap between bot replies in a channel.
	CooldownSeconds int `yaml:"cooldown_seconds"`

	// NightFactor applies 00:00-06:59, MorningFactor 07:00-12:59,
	// AfternoonFactor 13:00-18:59, EveningFactor 19:00-23:59.
	NightFactor     float64 `yaml:"night_factor"`
	MorningFactor   float64 `yaml:"morning_factor"`
	AfternoonFactor float64 `yaml:"afternoon_factor"`
	EveningFactor   float64 `yaml:"evening_factor"`
}

// Cooldown returns the configured cooldown as a duration.
func (c EngagementConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// SilenceConfig configures the self-protective silence window.
type SilenceConfig struct {
	// AutoMinutes is how long the bot stays quiet after a heated message.
	AutoMinutes int `yaml:"auto_minutes"`
}

// Window returns the automatic silence window as a duration.
func (c SilenceConfig) Window() time.Duration {
	return time.Duration(c.AutoMinutes) * time.Minute
}

// BreakerConfig configures the circuit breaker that blocks backend calls
// after the whole credential pool is exhausted.
type BreakerConfig struct {
	// WindowSeconds is how long backend calls stay blocked after a trip.
	WindowSeconds int `yaml:"window_seconds"`
}

// Window returns the breaker block window as a duration.
func (c BreakerConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// MemoryConfig configures mood/profile persistence.
type MemoryConfig struct {
	// Path is the JSON snapshot file. The snapshot is rewritten in full
	// after every mood update; in-memory state stays authoritative.
	Path string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the log format ("json", "text").
	Format string `yaml:"format"`
}

// DefaultConfig returns the default bot configuration. The engagement and
// silence numbers reproduce the behavior the bot shipped with: 25% base
// chance scaled by time of day, 15s cooldown, 30 minute auto-silence.
func DefaultConfig() *Config {
	return &Config{
		Name:    "KKs-Bot",
		Model:   "gemini-3-flash-preview",
		Persona: "sos un participante mas del chat. hablas corto, casual, minusculas.",
		Channels: ChannelsConfig{
			Discord: discord.DefaultConfig(),
		},
		Engagement: EngagementConfig{
			BaseChance:      0.25,
			CooldownSeconds: 15,
			NightFactor:     0.1,
			MorningFactor:   0.3,
			AfternoonFactor: 0.25,
			EveningFactor:   0.15,
		},
		Silence: SilenceConfig{
			AutoMinutes: 30,
		},
		Breaker: BreakerConfig{
			WindowSeconds: 60,
		},
		Memory: MemoryConfig{
			Path: "./data/memory.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
