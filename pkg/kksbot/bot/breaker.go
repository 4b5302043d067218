package bot

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned when the backend is blocked after all
// credentials were exhausted.
var ErrBreakerOpen = errors.New("backend temporarily blocked")

// CircuitBreaker blocks backend usage for a fixed window after every
// credential in the pool has failed with a quota error. While open the
// bot stays silent instead of hammering a dead pool.
type CircuitBreaker struct {
	mu           sync.Mutex
	blockedUntil time.Time
	window       time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// NewCircuitBreaker creates a breaker with the given block window.
func NewCircuitBreaker(window time.Duration, logger *slog.Logger) *CircuitBreaker {
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		window: window,
		now:    time.Now,
		logger: logger.With("component", "breaker"),
	}
}

// Trip opens the breaker for one full window from now.
func (b *CircuitBreaker) Trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blockedUntil = b.now().Add(b.window)
	b.logger.Warn("circuit breaker tripped", "until", b.blockedUntil)
}

// Open reports whether the breaker is currently blocking.
func (b *CircuitBreaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Before(b.blockedUntil)
}

// Reset closes the breaker immediately.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.now().Before(b.blockedUntil) {
		b.logger.Info("circuit breaker reset")
	}
	b.blockedUntil = time.Time{}
}

// Deadline returns when the current block expires. The zero time means
// the breaker is closed.
func (b *CircuitBreaker) Deadline() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blockedUntil
}
