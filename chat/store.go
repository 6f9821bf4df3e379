package chat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/travofoz/T-5000/errors"
)

// Store persists agent conversation histories as one JSON document per
// (agent name, optional session id) pair. Concurrent sessions for
// different pairs never collide; concurrent writers of the same pair are
// not guarded, which is an accepted limitation.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created lazily
// on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the state file for the given agent and session.
func (s *Store) Path(agentName, sessionID string) string {
	if sessionID != "" {
		safe := strings.NewReplacer("/", "_", "\\", "_").Replace(sessionID)
		return filepath.Join(s.dir, fmt.Sprintf("session_%s_%s_history.json", safe, agentName))
	}
	return filepath.Join(s.dir, fmt.Sprintf("%s_history.json", agentName))
}

// Load reads the stored history for the given agent and session. A missing
// file yields an empty history and no error. Individually malformed
// messages are skipped; the count of skipped records is returned so the
// caller can report it.
func (s *Store) Load(agentName, sessionID string) ([]Message, int, error) {
	path := s.Path(agentName, sessionID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, errors.Wrapf(err, "could not read state file %s", path)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, errors.Wrapf(err, "could not parse state file %s", path)
	}

	var history []Message
	skipped := 0
	for _, entry := range raw {
		var msg Message
		if err := json.Unmarshal(entry, &msg); err != nil {
			fmt.Printf("Warning: skipping invalid message in %s: %v\n", path, err)
			skipped++
			continue
		}
		history = append(history, msg)
	}
	return history, skipped, nil
}

// Save writes the full history atomically: the document goes to a
// temporary file first and is then renamed over the target, so a crash
// mid-write never leaves truncated state behind.
func (s *Store) Save(agentName, sessionID string, history []Message) error {
	if len(history) == 0 {
		return nil
	}
	path := s.Path(agentName, sessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "could not create state directory")
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to serialize history for %s", agentName)
	}

	tmp := fmt.Sprintf("%s.tmp_%d", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write temporary state file")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to replace state file %s", path)
	}
	return nil
}
