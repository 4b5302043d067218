package bot

import (
	"sync"
	"time"
)

// SilenceGate tracks which channels the bot must stay quiet in. Forced
// silences come from admin commands and can be indefinite or timed.
// Auto silences are triggered by heated messages and always expire.
type SilenceGate struct {
	mu         sync.Mutex
	forced     map[string]time.Time
	auto       map[string]time.Time
	autoWindow time.Duration
	now        func() time.Time
}

// NewSilenceGate creates a gate with the given auto-silence window.
func NewSilenceGate(autoWindow time.Duration) *SilenceGate {
	if autoWindow <= 0 {
		autoWindow = 30 * time.Minute
	}
	return &SilenceGate{
		forced:     make(map[string]time.Time),
		auto:       make(map[string]time.Time),
		autoWindow: autoWindow,
		now:        time.Now,
	}
}

// Force silences a channel. A non-positive duration silences until Resume.
func (g *SilenceGate) Force(channelID string, d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d <= 0 {
		g.forced[channelID] = time.Time{}
		return
	}
	g.forced[channelID] = g.now().Add(d)
}

// Resume clears both forced and auto silence for a channel.
func (g *SilenceGate) Resume(channelID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.forced, channelID)
	delete(g.auto, channelID)
}

// MarkHeated starts (or extends) an auto silence for a channel.
func (g *SilenceGate) MarkHeated(channelID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.auto[channelID] = g.now().Add(g.autoWindow)
}

// Silenced reports whether the bot must stay quiet in a channel. Expired
// entries are cleaned up on the way.
func (g *SilenceGate) Silenced(channelID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()

	if until, ok := g.forced[channelID]; ok {
		if until.IsZero() || now.Before(until) {
			return true
		}
		delete(g.forced, channelID)
	}
	if until, ok := g.auto[channelID]; ok {
		if now.Before(until) {
			return true
		}
		delete(g.auto, channelID)
	}
	return false
}
