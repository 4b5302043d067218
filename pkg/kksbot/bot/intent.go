package bot

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

// Intent kinds the classifier can produce.
const (
	IntentPlayMusic  = "play_music"
	IntentSkipMusic  = "skip_music"
	IntentStopMusic  = "stop_music"
	IntentJoinVoice  = "join_voice"
	IntentLeaveVoice = "leave_voice"
	IntentNone       = "none"
)

// Intent is a classified actionable request extracted from a message.
type Intent struct {
	Kind  string
	Query string
}

// None reports whether the intent carries no action.
func (i Intent) None() bool {
	return i.Kind == IntentNone || i.Kind == ""
}

// GenerateFunc runs a single-shot generation. The classifier takes a
// function rather than the backend so rotation stays outside it.
type GenerateFunc func(ctx context.Context, systemInstruction, prompt string) (string, error)

// playbackHints gate the classifier: only messages containing one of
// these tokens are worth a backend round-trip.
var playbackHints = []string{
	"musica", "música", "cancion", "canción", "tema", "rola",
	"pon", "play", "salta", "skip", "para", "stop",
	"vente", "sal", "voz",
}

const intentSystemPrompt = `sos un clasificador de intenciones para un bot de chat.
respondes SOLO con un json de una linea, sin explicaciones.
formato: {"intent": "<tipo>", "query": "<texto o null>"}
tipos validos: play_music, skip_music, stop_music, join_voice, leave_voice, none.
"query" solo aplica a play_music: que cancion o artista pidio el usuario.
si el mensaje no pide nada de eso, responde {"intent": "none", "query": null}.`

type intentPayload struct {
	Intent string  `json:"intent"`
	Query  *string `json:"query"`
}

// IntentClassifier extracts playback intents from free-form messages via
// the generative backend. It degrades to IntentNone on every failure so
// classification can never break the pipeline.
type IntentClassifier struct {
	generate GenerateFunc
	logger   *slog.Logger
}

// NewIntentClassifier creates a classifier over the given generation
// function.
func NewIntentClassifier(generate GenerateFunc, logger *slog.Logger) *IntentClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntentClassifier{
		generate: generate,
		logger:   logger.With("component", "intent"),
	}
}

// Classify returns the intent of a message. It never returns an error:
// backend failures, malformed output, and unknown kinds all map to
// IntentNone.
func (c *IntentClassifier) Classify(ctx context.Context, text string) Intent {
	none := Intent{Kind: IntentNone}
	if c.generate == nil || !hintsPlayback(text) {
		return none
	}

	raw, err := c.generate(ctx, intentSystemPrompt, text)
	if err != nil {
		c.logger.Debug("intent classification failed", "error", err)
		return none
	}

	var payload intentPayload
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &payload); err != nil {
		c.logger.Debug("unparseable intent payload", "raw", raw)
		return none
	}

	switch payload.Intent {
	case IntentPlayMusic, IntentSkipMusic, IntentStopMusic, IntentJoinVoice, IntentLeaveVoice:
	default:
		return none
	}

	intent := Intent{Kind: payload.Intent}
	if payload.Intent == IntentPlayMusic && payload.Query != nil {
		intent.Query = strings.TrimSpace(*payload.Query)
	}
	return intent
}

func hintsPlayback(text string) bool {
	lower := strings.ToLower(text)
	for _, hint := range playbackHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// stripCodeFences removes a surrounding markdown code block, which models
// love to wrap JSON in.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 && !strings.HasPrefix(s, "{") {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
