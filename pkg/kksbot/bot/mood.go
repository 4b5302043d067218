package bot

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Mood score bounds and the threshold at which a label flips away from
// neutral.
const (
	scoreMin      = -5
	scoreMax      = 5
	moodThreshold = 3
)

// Channel mood labels.
const (
	MoodTense   = "tenso"
	MoodRelaxed = "relajado"
	MoodNeutral = "neutral"
)

// User mood labels.
const (
	UserHostile  = "conflictivo"
	UserFriendly = "amigable"
	UserNeutral  = "neutral"
)

// ChannelMood is the aggregated emotional state of one channel.
type ChannelMood struct {
	Score int    `json:"score"`
	Label string `json:"mood"`
}

// UserProfile is the per-user behavioral memory.
type UserProfile struct {
	Score      int    `json:"score"`
	Label      string `json:"mood"`
	Conflicts  int    `json:"conflicts"`
	TalksToBot int    `json:"talks_to_bot"`
	LastSeen   int64  `json:"last_seen"`
}

var laughterTokens = []string{"jaja", "jsjs", "xd", "lol"}

// insultTokens lower the score and count as conflicts.
var insultTokens = []string{"callate", "idiota", "imbecil"}

// absolutistTokens read as escalation and trigger auto-silence, but do
// not move the score on their own.
var absolutistTokens = []string{"nunca", "siempre"}

// MoodStore tracks channel and user mood, persisting after every update.
type MoodStore struct {
	mu       sync.Mutex
	channels map[string]*ChannelMood
	users    map[string]*UserProfile
	snap     Snapshotter
	now      func() time.Time
	logger   *slog.Logger
}

// NewMoodStore creates a store, restoring state from the snapshot. Corrupt
// or missing snapshots degrade to empty state.
func NewMoodStore(snap Snapshotter, logger *slog.Logger) *MoodStore {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mood")

	s := &MoodStore{
		channels: make(map[string]*ChannelMood),
		users:    make(map[string]*UserProfile),
		snap:     snap,
		now:      time.Now,
		logger:   logger,
	}
	if snap != nil {
		data, err := snap.Load()
		if err != nil {
			logger.Warn("failed to load mood snapshot, starting empty", "error", err)
		}
		if data.Channels != nil {
			s.channels = data.Channels
		}
		if data.Users != nil {
			s.users = data.Users
		}
	}
	return s
}

// delta computes the mood adjustment a message causes and whether it
// counts as hostile.
func delta(text string) (score int, hostile bool) {
	lower := strings.ToLower(text)
	for _, tok := range laughterTokens {
		if strings.Contains(lower, tok) {
			score++
			break
		}
	}
	for _, tok := range insultTokens {
		if strings.Contains(lower, tok) {
			score -= 2
			hostile = true
			break
		}
	}
	if strings.Count(text, "!") >= 2 {
		score -= 2
		hostile = true
	}
	return score, hostile
}

// IsHeated reports whether a message reads as aggressive enough to
// trigger auto-silence: heavy exclamation, an insult, or absolutist
// phrasing.
func IsHeated(text string) bool {
	if strings.Count(text, "!") >= 3 {
		return true
	}
	lower := strings.ToLower(text)
	for _, tok := range insultTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	for _, tok := range absolutistTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// UpdateChannel folds one message into the channel mood and returns the
// updated state.
func (s *MoodStore) UpdateChannel(channelID, text string) ChannelMood {
	d, _ := delta(text)

	s.mu.Lock()
	mood, ok := s.channels[channelID]
	if !ok {
		mood = &ChannelMood{Label: MoodNeutral}
		s.channels[channelID] = mood
	}
	mood.Score = clamp(mood.Score + d)
	mood.Label = channelLabel(mood.Score)
	out := *mood
	s.mu.Unlock()

	s.persist()
	return out
}

// UpdateUser folds one message into the author's profile. addressed marks
// messages directed at the bot.
func (s *MoodStore) UpdateUser(userID, text string, addressed bool) UserProfile {
	d, hostile := delta(text)

	s.mu.Lock()
	prof, ok := s.users[userID]
	if !ok {
		prof = &UserProfile{Label: UserNeutral}
		s.users[userID] = prof
	}
	prof.Score = clamp(prof.Score + d)
	prof.Label = userLabel(prof.Score)
	if hostile {
		prof.Conflicts++
	}
	if addressed {
		prof.TalksToBot++
	}
	prof.LastSeen = s.now().Unix()
	out := *prof
	s.mu.Unlock()

	s.persist()
	return out
}

// Channel returns the current mood of a channel, neutral when unknown.
func (s *MoodStore) Channel(channelID string) ChannelMood {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mood, ok := s.channels[channelID]; ok {
		return *mood
	}
	return ChannelMood{Label: MoodNeutral}
}

// User returns the profile of a user, or false when never seen.
func (s *MoodStore) User(userID string) (UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prof, ok := s.users[userID]; ok {
		return *prof, true
	}
	return UserProfile{}, false
}

// persist writes the snapshot best-effort. Persistence failures never
// block the pipeline.
func (s *MoodStore) persist() {
	if s.snap == nil {
		return
	}
	s.mu.Lock()
	data := SnapshotData{
		Users:    make(map[string]*UserProfile, len(s.users)),
		Channels: make(map[string]*ChannelMood, len(s.channels)),
	}
	for k, v := range s.users {
		c := *v
		data.Users[k] = &c
	}
	for k, v := range s.channels {
		c := *v
		data.Channels[k] = &c
	}
	s.mu.Unlock()

	if err := s.snap.Save(data); err != nil {
		s.logger.Warn("failed to persist mood snapshot", "error", err)
	}
}

func clamp(score int) int {
	if score < scoreMin {
		return scoreMin
	}
	if score > scoreMax {
		return scoreMax
	}
	return score
}

func channelLabel(score int) string {
	switch {
	case score <= -moodThreshold:
		return MoodTense
	case score >= moodThreshold:
		return MoodRelaxed
	default:
		return MoodNeutral
	}
}

func userLabel(score int) string {
	switch {
	case score <= -moodThreshold:
		return UserHostile
	case score >= moodThreshold:
		return UserFriendly
	default:
		return UserNeutral
	}
}
