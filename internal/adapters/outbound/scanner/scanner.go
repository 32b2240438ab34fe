package scanner

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/repoforge/repoforge/internal/domain"
)

var skipDirs = map[string]bool{
	".git":         true,
	".repoforge":   true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"bin":          true,
	"__pycache__":  true,
}

// FileScanner implements domain.ProjectScanner by walking the filesystem.
type FileScanner struct{}

func New() *FileScanner {
	return &FileScanner{}
}

// Scan walks the repository root and returns the sorted file inventory.
// An unreadable root is an AccessError: nothing downstream can run.
func (s *FileScanner) Scan(repoRoot string) (*domain.ScanResult, error) {
	absPath, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, &domain.AccessError{Path: repoRoot, Err: err}
	}
	if _, err := os.ReadDir(absPath); err != nil {
		return nil, &domain.AccessError{Path: repoRoot, Err: err}
	}

	result := &domain.ScanResult{RootPath: absPath}

	err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] && path != absPath {
				return filepath.SkipDir
			}
			return nil
		}
		relPath, _ := filepath.Rel(absPath, path)
		result.AllFiles = append(result.AllFiles, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil {
		return nil, &domain.AccessError{Path: repoRoot, Err: err}
	}

	// Sorted inventory keeps detection and audit output deterministic.
	sort.Strings(result.AllFiles)
	return result, nil
}
