// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardener/proton/pkg/proton"
)

func initRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	for name, contents := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
		_, err = wt.Add(name)
		require.NoError(t, err)
	}

	_, err = wt.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func Test_Source_walks_HEAD_tree(t *testing.T) {
	dir := initRepo(t, map[string]string{"README.md": "# hello\nworld\n"})
	s := NewSource(Options{LocalPath: dir})

	job, err, ok := s.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "README.md", job.Args[0])
	assert.Equal(t, []byte("# hello\nworld\n"), job.Args[1])

	_, err, ok = s.Next(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok, "a single-blob repository yields exactly one job")
}

func Test_Source_yields_one_job_per_blob(t *testing.T) {
	dir := initRepo(t, map[string]string{
		"a.md": "a",
		"b.md": "b",
	})
	s := NewSource(Options{LocalPath: dir})

	seen := map[string]string{}
	for {
		job, err, ok := s.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		seen[job.Args[0].(string)] = string(job.Args[1].([]byte))
	}
	assert.Equal(t, map[string]string{"a.md": "a", "b.md": "b"}, seen)
}

func Test_Source_missing_repository_and_no_remote_errors(t *testing.T) {
	s := NewSource(Options{LocalPath: filepath.Join(t.TempDir(), "does-not-exist")})

	_, err, ok := s.Next(context.Background())
	assert.False(t, ok)
	require.Error(t, err)

	var argErr *proton.ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func Test_Source_unknown_branch_errors(t *testing.T) {
	dir := initRepo(t, map[string]string{"README.md": "hi"})
	s := NewSource(Options{LocalPath: dir, Branch: "does-not-exist"})

	_, err, ok := s.Next(context.Background())
	assert.False(t, ok)
	assert.Error(t, err)
}
