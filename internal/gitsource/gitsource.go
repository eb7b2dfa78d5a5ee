// Package gitsource materializes a collection root from a git URL so the
// extractor can run over repositories it does not have checked out locally.
package gitsource

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/colldocs/internal/errors"
	"git.home.luguber.info/inful/colldocs/internal/logfields"
)

// Prefix marks a collection_path as a git source: "git+<url>[#branch]".
const Prefix = "git+"

// IsGitSource reports whether the collection path denotes a git source.
func IsGitSource(collectionPath string) bool {
	return strings.HasPrefix(collectionPath, Prefix)
}

// Materialize clones the git source into a fresh temp directory and returns
// the local path plus a cleanup func. Plain directory paths are returned
// unchanged with a no-op cleanup.
func Materialize(ctx context.Context, collectionPath string) (string, func(), error) {
	if !IsGitSource(collectionPath) {
		return collectionPath, func() {}, nil
	}

	url := strings.TrimPrefix(collectionPath, Prefix)
	branch := ""
	if i := strings.LastIndex(url, "#"); i >= 0 {
		branch = url[i+1:]
		url = url[:i]
	}

	dir, err := os.MkdirTemp("", "colldocs-src-*")
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal, "failed to create clone workspace")
	}
	cleanup := func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			slog.Warn("Failed to remove clone workspace", logfields.Path(dir), logfields.Error(rmErr))
		}
	}

	opts := &git.CloneOptions{URL: url, Depth: 1}
	if branch != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + branch)
		opts.SingleBranch = true
	}

	slog.Info("Cloning collection source", slog.String("url", url), slog.String("branch", branch), logfields.Path(dir))
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		cleanup()
		return "", nil, errors.Wrap(err, errors.CategoryGit, errors.SeverityFatal, "failed to clone collection source").
			WithContext("url", url)
	}
	if ref, herr := repo.Head(); herr == nil {
		slog.Info("Collection source cloned", slog.String("commit", ref.Hash().String()[:8]), logfields.Path(dir))
	}
	return dir, cleanup, nil
}
