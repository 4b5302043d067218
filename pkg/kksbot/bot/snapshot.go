package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotData is the on-disk shape of the mood memory.
type SnapshotData struct {
	Users    map[string]*UserProfile `json:"users"`
	Channels map[string]*ChannelMood `json:"channels"`
}

// Snapshotter persists and restores mood state across restarts.
type Snapshotter interface {
	Load() (SnapshotData, error)
	Save(data SnapshotData) error
}

// FileSnapshot stores the mood memory as a single JSON file.
type FileSnapshot struct {
	path string
}

// NewFileSnapshot creates a snapshot backed by the given file path.
func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{path: path}
}

// Load reads the snapshot file. A missing file yields empty state.
func (s *FileSnapshot) Load() (SnapshotData, error) {
	data := SnapshotData{
		Users:    make(map[string]*UserProfile),
		Channels: make(map[string]*ChannelMood),
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return data, fmt.Errorf("reading snapshot: %w", err)
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		return SnapshotData{
			Users:    make(map[string]*UserProfile),
			Channels: make(map[string]*ChannelMood),
		}, fmt.Errorf("parsing snapshot: %w", err)
	}
	if data.Users == nil {
		data.Users = make(map[string]*UserProfile)
	}
	if data.Channels == nil {
		data.Channels = make(map[string]*ChannelMood)
	}
	return data, nil
}

// Save writes the snapshot file, creating parent directories as needed.
func (s *FileSnapshot) Save(data SnapshotData) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0600); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
