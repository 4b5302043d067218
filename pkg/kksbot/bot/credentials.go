package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// CredentialPool holds the Gemini API keys and the Backend built from the
// active one. Rotation advances to the next key and bumps the epoch so
// chat sessions bound to the old client know to recreate themselves.
type CredentialPool struct {
	mu      sync.Mutex
	creds   []string
	idx     int
	epoch   uint64
	factory BackendFactory
	backend Backend
	logger  *slog.Logger
}

// NewCredentialPool creates a pool over the resolved credentials.
func NewCredentialPool(creds []string, factory BackendFactory, logger *slog.Logger) *CredentialPool {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialPool{
		creds:   creds,
		factory: factory,
		logger:  logger.With("component", "credentials"),
	}
}

// Size returns the number of credentials in the pool.
func (p *CredentialPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}

// Enabled reports whether at least one credential is available.
func (p *CredentialPool) Enabled() bool {
	return p.Size() > 0
}

// Epoch returns the current rotation epoch. It changes on every rotation.
func (p *CredentialPool) Epoch() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.epoch
}

// Backend returns the backend for the active credential, building it
// lazily, together with the epoch it belongs to.
func (p *CredentialPool) Backend(ctx context.Context) (Backend, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.creds) == 0 {
		return nil, 0, errors.New("no credentials configured")
	}
	if p.backend == nil {
		be, err := p.factory(ctx, p.creds[p.idx])
		if err != nil {
			return nil, 0, fmt.Errorf("building backend: %w", err)
		}
		p.backend = be
	}
	return p.backend, p.epoch, nil
}

// Rotate advances to the next credential and rebuilds the backend.
// It returns false when there is nothing to rotate to.
func (p *CredentialPool) Rotate(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.creds) < 2 {
		return false
	}
	p.idx = (p.idx + 1) % len(p.creds)
	p.epoch++
	p.backend = nil

	be, err := p.factory(ctx, p.creds[p.idx])
	if err != nil {
		p.logger.Error("failed to build backend after rotation", "index", p.idx, "error", err)
		return true
	}
	p.backend = be
	p.logger.Info("rotated credential", "index", p.idx, "epoch", p.epoch)
	return true
}

// Probe sends one minimal generation per credential at startup, rotating
// past any key that fails. If every credential fails the breaker is
// tripped so the bot starts silent instead of failing per message.
func (p *CredentialPool) Probe(ctx context.Context, breaker *CircuitBreaker) {
	size := p.Size()
	if size == 0 {
		return
	}
	for attempt := 0; attempt < size; attempt++ {
		be, _, err := p.Backend(ctx)
		if err == nil {
			_, err = be.Generate(ctx, "", "ping")
		}
		if err == nil {
			p.logger.Info("credential probe ok", "attempt", attempt+1)
			return
		}
		p.logger.Warn("credential probe failed", "attempt", attempt+1, "error", err)
		if !p.Rotate(ctx) {
			break
		}
	}
	p.logger.Error("every credential failed the startup probe")
	breaker.Trip()
}

// runWithRotation executes fn against the active backend, rotating the
// pool on quota errors. It makes exactly one attempt per credential; if
// every one fails on quota it trips the breaker. Non-quota errors abort
// immediately without rotating.
func runWithRotation(ctx context.Context, pool *CredentialPool, breaker *CircuitBreaker, fn func(be Backend, epoch uint64) error) error {
	if breaker.Open() {
		return ErrBreakerOpen
	}

	attempts := pool.Size()
	if attempts == 0 {
		return errors.New("no credentials configured")
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		be, epoch, err := pool.Backend(ctx)
		if err != nil {
			return err
		}
		err = fn(be, epoch)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrQuotaExceeded) {
			return err
		}
		lastErr = err
		if i < attempts-1 && !pool.Rotate(ctx) {
			break
		}
	}

	breaker.Trip()
	return fmt.Errorf("all credentials exhausted: %w", lastErr)
}
