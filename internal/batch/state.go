package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State tracks progress for resumable batch runs.
type State struct {
	StartedAt       time.Time      `json:"started_at"`
	LastProcessedAt time.Time      `json:"last_processed_at"`
	Processed       []string       `json:"processed"`
	Remaining       int            `json:"remaining"`
	Analysed        int            `json:"analysed"`
	Skipped         int            `json:"skipped"`
	ScamsFound      int            `json:"scams_found"`
	Evidence        map[string]int `json:"evidence"`
	Errors          []string       `json:"errors"`

	path string
	seen map[string]bool
}

// LoadState loads the state at path, or starts a new one if the file does
// not exist.
func LoadState(path string) (*State, error) {
	path = expandHome(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{
				StartedAt: time.Now().UTC(),
				Evidence:  map[string]int{},
				path:      path,
			}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if s.Evidence == nil {
		s.Evidence = map[string]int{}
	}
	s.path = path
	return &s, nil
}

// Save persists the state to disk.
func (s *State) Save() error {
	s.LastProcessedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *State) Path() string { return s.path }

// IsProcessed returns true if the item has already been handled.
func (s *State) IsProcessed(id string) bool {
	if s.seen == nil {
		s.seen = make(map[string]bool, len(s.Processed))
		for _, p := range s.Processed {
			s.seen[p] = true
		}
	}
	return s.seen[id]
}

// MarkProcessed records an item as handled.
func (s *State) MarkProcessed(id string) {
	if s.IsProcessed(id) {
		return
	}
	s.seen[id] = true
	s.Processed = append(s.Processed, id)
}

// AddError records a processing error.
func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
