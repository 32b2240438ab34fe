package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// HashPaths computes a content hash over the given repository-relative
// paths. Paths are sorted first so the hash is order-independent; a
// missing file contributes a distinct absent marker so creation and
// deletion both change the hash.
func HashPaths(repoRoot string, paths []string) (string, error) {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	h := sha256.New()
	for _, p := range sorted {
		fmt.Fprintf(h, "path %s\n", p)
		f, err := os.Open(filepath.Join(repoRoot, p))
		if err != nil {
			if os.IsNotExist(err) {
				io.WriteString(h, "absent\n")
				continue
			}
			return "", fmt.Errorf("hashing %s: %w", p, err)
		}
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", fmt.Errorf("hashing %s: %w", p, err)
		}
		f.Close()
		io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
