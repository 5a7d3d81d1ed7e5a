// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package git provides a proton.JobGenerator that walks the HEAD tree of a
// local (optionally remote-backed) git repository, yielding one Job per
// blob. It is grounded on the clone/open/checkout sequence used throughout
// the teacher's pkg/resourcehandlers/git package.
package git

import (
	"context"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/gardener/proton/pkg/proton"
)

// Options configures a Source.
type Options struct {
	// LocalPath is where the repository is or will be cloned.
	LocalPath string
	// RemoteURL is cloned into LocalPath if it doesn't already hold a
	// repository. Leave empty to only ever open an existing local repo.
	RemoteURL string
	// Branch names the remote-tracking branch (origin/<Branch>) whose tree
	// is walked. Empty walks the repository's HEAD. Nothing is checked out.
	Branch string
	// Auth is optional, e.g. &http.BasicAuth{Username: "x", Password: token}.
	Auth http.AuthMethod
}

// blobJob is the (path, contents) pair a Source turns into one proton.Job's
// Args.
type blobJob struct {
	Path     string
	Contents []byte
}

// Source lazily walks a git tree. It satisfies proton.JobGenerator: the
// first call to Next opens or clones the repository and resolves the
// requested branch's commit tree; subsequent calls pull entries off an in-memory queue
// built from the tree walk.
type Source struct {
	opts Options

	prepared bool
	entries  []blobJob
	cursor   int
}

// NewSource builds a Source for opts. Cloning/opening is deferred to the
// first Next call so construction never blocks or fails on I/O.
func NewSource(opts Options) *Source {
	return &Source{opts: opts}
}

// Next implements proton.JobGenerator.
func (s *Source) Next(ctx context.Context) (proton.Job, error, bool) {
	if !s.prepared {
		if err := s.prepare(ctx); err != nil {
			return proton.Job{}, proton.NewArgumentError("%v", err), false
		}
		s.prepared = true
	}

	if s.cursor >= len(s.entries) {
		return proton.Job{}, nil, false
	}
	entry := s.entries[s.cursor]
	s.cursor++

	return proton.NewJob([]interface{}{entry.Path, entry.Contents}, nil), nil, true
}

func (s *Source) prepare(ctx context.Context) error {
	repo, err := s.openOrClone(ctx)
	if err != nil {
		return err
	}

	var ref *plumbing.Reference
	if s.opts.Branch != "" {
		ref, err = repo.Reference(plumbing.NewRemoteReferenceName(gogit.DefaultRemoteName, s.opts.Branch), true)
	} else {
		ref, err = repo.Head()
	}
	if err != nil {
		return fmt.Errorf("resolving ref for %s: %w", s.opts.LocalPath, err)
	}

	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return fmt.Errorf("reading commit %s: %w", ref.Hash(), err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("reading tree for commit %s: %w", ref.Hash(), err)
	}

	return tree.Files().ForEach(func(f *object.File) error {
		contents, err := f.Contents()
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.Name, err)
		}
		s.entries = append(s.entries, blobJob{Path: f.Name, Contents: []byte(contents)})
		return nil
	})
}

func (s *Source) openOrClone(ctx context.Context) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpen(s.opts.LocalPath)
	if err == nil {
		return repo, nil
	}
	if err != gogit.ErrRepositoryNotExists {
		return nil, fmt.Errorf("opening %s: %w", s.opts.LocalPath, err)
	}
	if s.opts.RemoteURL == "" {
		return nil, fmt.Errorf("no repository at %s and no RemoteURL to clone", s.opts.LocalPath)
	}
	return gogit.PlainCloneContext(ctx, s.opts.LocalPath, false, &gogit.CloneOptions{
		URL:        s.opts.RemoteURL,
		RemoteName: gogit.DefaultRemoteName,
		Auth:       s.opts.Auth,
	})
}
