// Package snapshot captures the pre-phase state of a write-set so a
// failed phase can be rolled back exactly.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/repoforge/repoforge/internal/domain"
)

const snapshotDir = ".repoforge/snapshots"

// Store implements domain.Snapshotter with file copies under
// .repoforge/snapshots/<id>/.
type Store struct{}

func New() *Store {
	return &Store{}
}

type manifest struct {
	Paths  []string `json:"paths"`
	Absent []string `json:"absent"`
}

// Take copies every existing write-set file into the snapshot directory
// and records which paths were absent, so Restore can delete files the
// phase created.
func (s *Store) Take(repoRoot string, paths []string) (domain.Snapshot, error) {
	dir := filepath.Join(repoRoot, snapshotDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}

	m := manifest{}
	for _, p := range paths {
		src := filepath.Join(repoRoot, p)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			m.Absent = append(m.Absent, p)
			continue
		}
		dst := filepath.Join(dir, "files", p)
		if err := copyFile(src, dst); err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("snapshotting %s: %w", p, err)
		}
		m.Paths = append(m.Paths, p)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("writing snapshot manifest: %w", err)
	}

	return &snapshot{repoRoot: repoRoot, dir: dir, manifest: m}, nil
}

type snapshot struct {
	repoRoot string
	dir      string
	manifest manifest
}

func (s *snapshot) Restore() error {
	for _, p := range s.manifest.Paths {
		src := filepath.Join(s.dir, "files", p)
		dst := filepath.Join(s.repoRoot, p)
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("restoring %s: %w", p, err)
		}
	}
	// Files the phase created over previously absent paths are removed.
	for _, p := range s.manifest.Absent {
		if err := os.Remove(filepath.Join(s.repoRoot, p)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return s.Discard()
}

func (s *snapshot) Discard() error {
	return os.RemoveAll(s.dir)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
