// Package batch replays a JSONL corpus of messages through the analysis
// pipeline with resumable progress.
package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MikeSquared-Agency/blocksafe/internal/fingerprint"
)

// Item is one line of the input corpus.
type Item struct {
	ID        string                    `json:"id"`
	Message   string                    `json:"message"`
	Mode      string                    `json:"mode,omitempty"`
	SessionID string                    `json:"session_id,omitempty"`
	Voice     *fingerprint.VoiceSignals `json:"voice,omitempty"`
	FollowUps []string                  `json:"follow_ups,omitempty"`
}

// ReadItems parses a JSONL file. Blank lines are skipped, items without an
// id are named after their line number, and malformed lines are reported
// back as errors without stopping the read.
func ReadItems(path string) ([]Item, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return parseItems(f)
}

func parseItems(r io.Reader) ([]Item, []error, error) {
	var (
		items []Item
		bad   []error
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024) // 10MB line buffer
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var it Item
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			bad = append(bad, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if it.ID == "" {
			it.ID = fmt.Sprintf("line-%d", line)
		}
		items = append(items, it)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan: %w", err)
	}
	return items, bad, nil
}
