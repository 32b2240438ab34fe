// Package tracker persists the idempotency log: an append-only JSONL
// file keyed by (phase id, pre-hash).
package tracker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/repoforge/repoforge/internal/domain"
)

const logFile = ".repoforge/state/applied.jsonl"

// FileTracker implements domain.IdempotencyTracker over a JSONL file in
// the target repository. There is no deletion API; corrections are new
// entries and lookups take the latest match.
type FileTracker struct {
	repoRoot string
}

func New(repoRoot string) *FileTracker {
	return &FileTracker{repoRoot: repoRoot}
}

func (t *FileTracker) path() string {
	return filepath.Join(t.repoRoot, logFile)
}

func (t *FileTracker) RecordApplied(phase domain.PhaseID, preHash, postHash string) error {
	entry := domain.TrackerEntry{
		Phase:      phase,
		PreHash:    preHash,
		PostHash:   postHash,
		RecordedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(t.path()), 0755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	f, err := os.OpenFile(t.path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening idempotency log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending idempotency entry: %w", err)
	}
	return nil
}

func (t *FileTracker) Lookup(phase domain.PhaseID, preHash string) (string, bool, error) {
	entries, err := t.Entries()
	if err != nil {
		return "", false, err
	}
	// Latest entry wins: scan forward, keep the last match.
	var postHash string
	var found bool
	for _, e := range entries {
		if e.Phase == phase && e.PreHash == preHash {
			postHash, found = e.PostHash, true
		}
	}
	return postHash, found, nil
}

func (t *FileTracker) Entries() ([]domain.TrackerEntry, error) {
	f, err := os.Open(t.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening idempotency log: %w", err)
	}
	defer f.Close()

	var entries []domain.TrackerEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e domain.TrackerEntry
		if err := json.Unmarshal(line, &e); err != nil {
			// A torn trailing write is dead history, not a fatal error.
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading idempotency log: %w", err)
	}
	return entries, nil
}
