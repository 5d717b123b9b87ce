// Package turnlog keeps an append-only record of voice turns. Each turn is
// one JSON line in a local file, which makes the log easy to grep and to
// mine for new training phrases.
package turnlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Record is a single turn written to the log.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	WakeWord   string    `json:"wake_word"`
	Text       string    `json:"text,omitempty"`
	Outcome    string    `json:"outcome"`
	Recovered  bool      `json:"recovered,omitempty"`
	Tag        string    `json:"tag,omitempty"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	Resolved   bool      `json:"resolved"`
	Reply      string    `json:"reply,omitempty"`
}

// FileStore appends records as JSON lines to a file. Safe for concurrent
// use.
type FileStore struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
	now  func() time.Time
}

// NewFileStore creates a FileStore that writes to path on fs. The file and
// its directory are created on the first append.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path, now: time.Now}
}

// Append writes r as one line. A zero Timestamp is set to the current UTC
// time.
func (s *FileStore) Append(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Timestamp.IsZero() {
		r.Timestamp = s.now().UTC()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("turnlog: marshal: %w", err)
	}
	data = append(data, '\n')

	if dir := path.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("turnlog: create dir: %w", err)
		}
	}
	f, err := s.fs.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("turnlog: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("turnlog: write: %w", err)
	}
	return nil
}
