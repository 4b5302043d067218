// Package bot – backend.go wraps the Gemini API behind small interfaces so
// the pipeline, the credential pool, and the tests all talk to the same
// surface: multi-turn chats for replies, single-shot generation for intent
// classification and startup probes.
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// Turn is one entry of a channel transcript, in Gemini role vocabulary.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Transcript roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Chat is a live multi-turn conversation handle bound to one credential.
type Chat interface {
	// Send sends one message and returns the model's reply text.
	Send(ctx context.Context, text string) (string, error)
}

// Backend is a generative backend configured with a single credential.
// The CredentialPool rebuilds it on every rotation.
type Backend interface {
	// StartChat opens a chat seeded with a system instruction and history.
	StartChat(ctx context.Context, systemInstruction string, history []Turn) (Chat, error)

	// Generate runs a single-shot generation outside any chat.
	Generate(ctx context.Context, systemInstruction, prompt string) (string, error)
}

// BackendFactory builds a Backend for one credential. Serve wires the real
// Gemini factory; tests inject fakes.
type BackendFactory func(ctx context.Context, credential string) (Backend, error)

// ErrQuotaExceeded marks a backend failure caused by rate/budget
// exhaustion of the active credential. It is the only error class that
// triggers credential rotation.
var ErrQuotaExceeded = errors.New("backend quota exceeded")

// GeminiFactory returns a BackendFactory for the given model.
func GeminiFactory(model string) BackendFactory {
	return func(ctx context.Context, credential string) (Backend, error) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  credential,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("creating gemini client: %w", err)
		}
		return &geminiBackend{client: client, model: model}, nil
	}
}

type geminiBackend struct {
	client *genai.Client
	model  string
}

func (b *geminiBackend) StartChat(ctx context.Context, systemInstruction string, history []Turn) (Chat, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		contents = append(contents, &genai.Content{
			Role:  t.Role,
			Parts: []*genai.Part{{Text: t.Text}},
		})
	}

	chat, err := b.client.Chats.Create(ctx, b.model, generationConfig(systemInstruction), contents)
	if err != nil {
		return nil, wrapQuota(err)
	}
	return &geminiChat{chat: chat}, nil
}

func (b *geminiBackend) Generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, b.model,
		genai.Text(prompt), generationConfig(systemInstruction))
	if err != nil {
		return "", wrapQuota(err)
	}
	return resp.Text(), nil
}

type geminiChat struct {
	chat *genai.Chat
}

func (c *geminiChat) Send(ctx context.Context, text string) (string, error) {
	resp, err := c.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", wrapQuota(err)
	}
	return resp.Text(), nil
}

func generationConfig(systemInstruction string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}
	return cfg
}

// wrapQuota maps Gemini RESOURCE_EXHAUSTED / HTTP 429 responses to
// ErrQuotaExceeded so the rotation layer can recognize them.
func wrapQuota(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, apiErr.Message)
		}
	}
	return err
}
