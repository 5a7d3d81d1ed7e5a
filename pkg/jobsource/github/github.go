// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package github provides a proton.JobGenerator that lists a repository's
// issues as Jobs, one per issue page, over a rate-limited, disk-cached
// GitHub API client. It is grounded on the teacher's cmd/app/factory.go and
// cmd/app/initilization.go client-construction helpers.
package github

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/google/go-github/v43/github"
	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/peterbourgon/diskv"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"k8s.io/klog/v2"

	"github.com/gardener/proton/pkg/proton"
)

// Options configures a Source.
type Options struct {
	// Owner and Repo identify the repository to list issues from.
	Owner, Repo string
	// Host is the API host; "" defaults to github.com.
	Host string
	// AccessToken authorizes requests; "" uses unauthenticated access.
	AccessToken string
	// CacheDir is the base path for the on-disk HTTP response cache.
	CacheDir string
	// RateLimit bounds outgoing requests per second; 0 disables throttling.
	RateLimit float64
}

// Source lists a repository's issues, one page per Job, as Jobs whose Args
// are [owner, repo, page, issues], issues being that page's []*github.Issue.
type Source struct {
	opts   Options
	client *github.Client

	page     int
	lastPage int
	done     bool
}

// NewSource builds a Source. Client construction (cache, rate limiter,
// optional OAuth transport) happens eagerly since it performs no I/O of its
// own.
func NewSource(ctx context.Context, opts Options) (*Source, error) {
	client, err := buildClient(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("jobsource/github: %w", err)
	}
	return &Source{opts: opts, client: client, page: 1, lastPage: 1}, nil
}

// Next implements proton.JobGenerator: it fetches the issues list lazily,
// one GitHub API page per Job, until the API reports no further pages.
func (s *Source) Next(ctx context.Context) (proton.Job, error, bool) {
	if s.done {
		return proton.Job{}, nil, false
	}

	issues, resp, err := s.client.Issues.ListByRepo(ctx, s.opts.Owner, s.opts.Repo, &github.IssueListByRepoOptions{
		ListOptions: github.ListOptions{Page: s.page, PerPage: 100},
	})
	if err != nil {
		return proton.Job{}, proton.NewArgumentError("listing issues for %s/%s page %d: %v", s.opts.Owner, s.opts.Repo, s.page, err), false
	}

	job := proton.NewJob([]interface{}{s.opts.Owner, s.opts.Repo, s.page, issues}, nil)

	if resp.NextPage == 0 {
		s.done = true
	} else {
		s.page = resp.NextPage
	}
	return job, nil, true
}

func buildClient(ctx context.Context, opts Options) (*github.Client, error) {
	host := opts.Host
	if host == "" {
		host = "https://github.com"
	}

	var base http.RoundTripper = http.DefaultTransport
	if opts.AccessToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AccessToken})
		base = oauth2.NewClient(ctx, ts).Transport
	}

	cachePath := opts.CacheDir
	if cachePath == "" {
		cachePath = filepath.Join(".", "cache", "github")
	}
	flatTransform := func(s string) []string { return []string{} }
	d := diskv.New(diskv.Options{
		BasePath:     cachePath,
		Transform:    flatTransform,
		CacheSizeMax: 1024 * 1024 * 1024,
	})
	cacheTransport := &httpcache.Transport{
		Transport:           withRateLimit(base, opts.RateLimit),
		Cache:               diskcache.NewWithDiskv(d),
		MarkCachedResponses: true,
	}
	httpClient := cacheTransport.Client()

	if host == "https://github.com" {
		return github.NewClient(httpClient), nil
	}
	return github.NewEnterpriseClient(host, "", httpClient)
}

// roundTripperFunc adapts a function to http.RoundTripper.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func withRateLimit(next http.RoundTripper, limit float64) http.RoundTripper {
	if limit <= 0 {
		return next
	}
	limiter := rate.NewLimiter(rate.Limit(limit), 1)
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if err := limiter.Wait(r.Context()); err != nil {
			return nil, err
		}
		klog.V(6).Infof("jobsource/github: HTTP %s %s", r.Method, r.URL)
		return next.RoundTrip(r)
	})
}
