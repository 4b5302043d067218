package bot

import (
	"context"
	"log/slog"
	"sync"
)

// maxHistoryTurns bounds the transcript kept per channel. Older turns
// are evicted oldest-first.
const maxHistoryTurns = 12

// maxReplyRunes caps outgoing replies to the Discord message limit.
const maxReplyRunes = 2000

// Session is the conversational state of one channel: a bounded
// transcript plus the live chat handle bound to a credential epoch.
type Session struct {
	mu        sync.Mutex
	channelID string
	history   []Turn
	chat      Chat
	epoch     uint64
}

// SessionStore keeps one Session per channel.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	persona  string
	logger   *slog.Logger
}

// NewSessionStore creates a store rendering chats with the given persona
// as system instruction.
func NewSessionStore(persona string, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		persona:  persona,
		logger:   logger.With("component", "sessions"),
	}
}

// GetOrCreate returns the session for a channel, creating it when absent.
func (s *SessionStore) GetOrCreate(channelID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[channelID]; ok {
		return sess
	}
	sess := &Session{channelID: channelID}
	s.sessions[channelID] = sess
	return sess
}

// Count returns the number of active sessions.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Exchange sends one user message through the channel's chat and records
// both turns. The chat is recreated from the stored transcript whenever
// the credential epoch changed, so rotations never lose context.
func (s *SessionStore) Exchange(ctx context.Context, sess *Session, be Backend, epoch uint64, systemInstruction, text string) (string, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.chat == nil || sess.epoch != epoch {
		history := make([]Turn, len(sess.history))
		copy(history, sess.history)
		chat, err := be.StartChat(ctx, systemInstruction, history)
		if err != nil {
			return "", err
		}
		sess.chat = chat
		sess.epoch = epoch
		s.logger.Debug("recreated chat session", "channel", sess.channelID, "epoch", epoch)
	}

	reply, err := sess.chat.Send(ctx, text)
	if err != nil {
		// Invalidate so the next attempt rebuilds from the transcript.
		sess.chat = nil
		return "", err
	}

	reply = truncateReply(reply)
	sess.record(Turn{Role: RoleUser, Text: text})
	sess.record(Turn{Role: RoleModel, Text: reply})
	return reply, nil
}

// Persona returns the system instruction base for chats.
func (s *SessionStore) Persona() string {
	return s.persona
}

func (sess *Session) record(t Turn) {
	sess.history = append(sess.history, t)
	if len(sess.history) > maxHistoryTurns {
		sess.history = sess.history[len(sess.history)-maxHistoryTurns:]
	}
}

// truncateReply caps a reply at the message size limit, marking the cut.
func truncateReply(text string) string {
	runes := []rune(text)
	if len(runes) <= maxReplyRunes {
		return text
	}
	return string(runes[:maxReplyRunes-1]) + "…"
}
