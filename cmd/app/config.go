// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gardener/proton/pkg/jobsource/git"
	"github.com/gardener/proton/pkg/jobsource/github"
	"github.com/gardener/proton/pkg/jobtarget/markdown"
	"github.com/gardener/proton/pkg/proton"
)

// resolveJobSource builds the proton.JobGenerator named by --source: either
// a local git repository path, or "github:owner/repo" for a GitHub issue
// listing. This mirrors the teacher's registry.Get(uri) dispatch in spirit,
// minus the general-purpose resource-handler registry: proton only ever has
// two source kinds.
func resolveJobSource(ctx context.Context, o *Options) (proton.JobGenerator, error) {
	uri := strings.TrimSpace(o.Source)
	if uri == "" {
		return nil, proton.NewArgumentError("--source is required")
	}

	if strings.HasPrefix(uri, "github:") {
		ownerRepo := strings.TrimPrefix(uri, "github:")
		owner, repo, ok := strings.Cut(ownerRepo, "/")
		if !ok {
			return nil, proton.NewArgumentError("--source %q must be \"github:owner/repo\"", uri)
		}
		rate := 0.0
		if o.GithubThrottling {
			rate = 1.0
		}
		return github.NewSource(ctx, github.Options{
			Owner:       owner,
			Repo:        repo,
			Host:        o.GithubHost,
			AccessToken: o.GithubOAuthToken,
			CacheDir:    filepath.Join(o.CacheDir, "diskv", hostOrDefault(o.GithubHost)),
			RateLimit:   rate,
		})
	}

	return git.NewSource(git.Options{
		LocalPath: uri,
		Branch:    o.Branch,
	}), nil
}

func hostOrDefault(host string) string {
	if host == "" {
		return "github.com"
	}
	return host
}

// resolveTarget builds the proton.Target named by --target.
func resolveTarget(name string) (*proton.Target, error) {
	switch name {
	case "", "wordcount":
		return proton.NewTarget(markdown.WordCount), nil
	case "frontmatter":
		return proton.NewTarget(markdown.FrontMatter), nil
	default:
		return nil, fmt.Errorf("unknown --target %q: expected \"wordcount\" or \"frontmatter\"", name)
	}
}

// wordCountCombiner reduces WordCountResult answers for "stack" mode,
// summing word counts across every job observed by a stacker.
type wordCountCombiner struct{}

func (wordCountCombiner) Combine(a, b interface{}) interface{} {
	aw, _ := a.(markdown.WordCountResult)
	bw, _ := b.(markdown.WordCountResult)
	return markdown.WordCountResult{Path: "total", Words: aw.Words + bw.Words}
}

func (wordCountCombiner) Absent() interface{} { return nil }

func (wordCountCombiner) IsAbsent(v interface{}) bool { return v == nil }
