// Package approvals persists the approval record audit trail.
package approvals

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/repoforge/repoforge/internal/domain"
)

const logFile = ".repoforge/state/approvals.jsonl"

// FileStore implements domain.ApprovalStore over an append-only JSONL
// file in the target repository.
type FileStore struct {
	repoRoot string
}

func New(repoRoot string) *FileStore {
	return &FileStore{repoRoot: repoRoot}
}

func (s *FileStore) path() string {
	return filepath.Join(s.repoRoot, logFile)
}

func (s *FileStore) Append(record domain.ApprovalRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path()), 0755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	f, err := os.OpenFile(s.path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening approval log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending approval record: %w", err)
	}
	return nil
}

func (s *FileStore) Load() ([]domain.ApprovalRecord, error) {
	f, err := os.Open(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening approval log: %w", err)
	}
	defer f.Close()

	var records []domain.ApprovalRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var r domain.ApprovalRecord
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading approval log: %w", err)
	}
	return records, nil
}
