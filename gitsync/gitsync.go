// Package gitsync keeps exported files committed to a surrounding git
// working tree when one exists.
//
// Detection is best-effort: an output path whose parent directory is not
// inside a repository simply disables the feature. Nothing in here may fail
// an export.
package gitsync

import (
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/veldt-io/exportd/errors"
)

// Sync is a handle on the working tree containing an export output path.
type Sync struct {
	repo   *git.Repository
	root   string
	logger *zap.SugaredLogger
}

// Detect locates the git working tree containing outputPath's parent
// directory, walking upward like `git status` does. Returns nil when the
// path is not inside a repository or detection fails for any reason;
// callers treat a nil Sync as "feature disabled".
func Detect(outputPath string, logger *zap.SugaredLogger) *Sync {
	dir := filepath.Dir(outputPath)

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if logger != nil {
			logger.Debugw("No git working tree for output path", "path", outputPath)
		}
		return nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		// Bare repository or similar; no working tree to commit into
		if logger != nil {
			logger.Debugw("Repository has no worktree", "path", outputPath, "error", err)
		}
		return nil
	}

	return &Sync{
		repo:   repo,
		root:   wt.Filesystem.Root(),
		logger: logger,
	}
}

// Root returns the working tree root directory.
func (s *Sync) Root() string {
	return s.root
}

// Commit stages outputPath and commits it. A file that did not change since
// the last commit is skipped without error.
func (s *Sync) Commit(outputPath string) error {
	wt, err := s.repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "failed to open worktree")
	}

	rel, err := filepath.Rel(s.root, outputPath)
	if err != nil {
		return errors.Wrapf(err, "output path %s not under worktree %s", outputPath, s.root)
	}

	if _, err := wt.Add(rel); err != nil {
		return errors.Wrapf(err, "failed to stage %s", rel)
	}

	status, err := wt.Status()
	if err != nil {
		return errors.Wrap(err, "failed to read worktree status")
	}
	if status.IsClean() {
		if s.logger != nil {
			s.logger.Debugw("Export unchanged, skipping commit", "file", rel)
		}
		return nil
	}

	hash, err := wt.Commit("auto-export: "+filepath.Base(outputPath), &git.CommitOptions{
		Author: &object.Signature{
			Name:  "exportd",
			Email: "exportd@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to commit %s", rel)
	}

	if s.logger != nil {
		s.logger.Infow("Committed export", "file", rel, "commit", hash.String()[:8])
	}
	return nil
}
