// Package gitfs adapts go-git to the primitive versioned-filesystem
// operations the orchestrator is allowed to use: status, stage, untrack,
// diff and ignore checks. Nothing here rewrites history.
package gitfs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/format/index"

	"github.com/repoforge/repoforge/internal/domain"
)

// GitFS implements domain.VersionedFS for one repository.
type GitFS struct {
	repo *git.Repository
	root string
}

// Open opens the repository at root. Fails if root is not a git
// worktree.
func Open(root string) (*GitFS, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("opening git repo at %s: %w", root, err)
	}
	return &GitFS{repo: repo, root: root}, nil
}

// IsRepo reports whether root holds a git repository.
func IsRepo(root string) bool {
	_, err := git.PlainOpen(root)
	return err == nil
}

func (g *GitFS) Status() ([]domain.FileStatus, error) {
	w, err := g.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	st, err := w.Status()
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	out := make([]domain.FileStatus, 0, len(st))
	for path, fs := range st {
		out = append(out, domain.FileStatus{
			Path:      path,
			Staged:    fs.Staging != git.Unmodified && fs.Staging != git.Untracked,
			Modified:  fs.Worktree == git.Modified,
			Untracked: fs.Staging == git.Untracked,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// TrackedFiles lists every path in the index: committed files plus
// anything staged.
func (g *GitFS) TrackedFiles() ([]string, error) {
	idx, err := g.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	paths := make([]string, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		paths = append(paths, e.Name)
	}
	sort.Strings(paths)
	return paths, nil
}

func (g *GitFS) Stage(paths []string) error {
	w, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	for _, p := range paths {
		if _, err := w.Add(p); err != nil {
			return fmt.Errorf("staging %s: %w", p, err)
		}
	}
	return nil
}

// Untrack removes paths from the index while leaving the worktree files
// in place (git rm --cached).
func (g *GitFS) Untrack(paths []string) error {
	idx, err := g.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("reading index: %w", err)
	}
	for _, p := range paths {
		if _, err := idx.Remove(p); err != nil && !errors.Is(err, index.ErrEntryNotFound) {
			return fmt.Errorf("untracking %s: %w", p, err)
		}
	}
	if err := g.repo.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// Diff returns a short status-style summary for the given paths, or for
// the whole worktree when paths is empty.
func (g *GitFS) Diff(paths []string) (string, error) {
	w, err := g.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}
	st, err := w.Status()
	if err != nil {
		return "", fmt.Errorf("reading status: %w", err)
	}

	want := map[string]bool{}
	for _, p := range paths {
		want[p] = true
	}

	var lines []string
	for path, fs := range st {
		if len(want) > 0 && !want[path] {
			continue
		}
		code := string(fs.Worktree)
		if fs.Worktree == git.Unmodified {
			code = string(fs.Staging)
		}
		if code == string(git.Unmodified) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s", code, path))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}

// CheckIgnored evaluates the repository's gitignore patterns against the
// given paths.
func (g *GitFS) CheckIgnored(paths []string) (map[string]bool, error) {
	w, err := g.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	patterns, err := gitignore.ReadPatterns(w.Filesystem, nil)
	if err != nil {
		return nil, fmt.Errorf("reading ignore patterns: %w", err)
	}
	matcher := gitignore.NewMatcher(patterns)

	out := make(map[string]bool, len(paths))
	for _, p := range paths {
		out[p] = matcher.Match(strings.Split(p, "/"), false)
	}
	return out, nil
}

func (g *GitFS) CommitHash() (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return "", fmt.Errorf("getting HEAD: %w", err)
	}
	return head.Hash().String(), nil
}
