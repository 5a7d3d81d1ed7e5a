// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"

	"github.com/google/go-github/v43/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *github.Client {
	t.Helper()
	client := github.NewClient(nil)
	u, err := url.Parse(baseURL)
	require.NoError(t, err)
	client.BaseURL = u
	return client
}

func Test_withRateLimit_disabled_passes_through(t *testing.T) {
	calls := 0
	inner := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	wrapped := withRateLimit(inner, 0)
	assert.Equal(t, reflect.ValueOf(inner).Pointer(), reflect.ValueOf(wrapped).Pointer(), "zero limit must return next unchanged")

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	_, err := wrapped.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func Test_withRateLimit_enabled_forwards_requests(t *testing.T) {
	calls := 0
	inner := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	wrapped := withRateLimit(inner, 1000)
	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)

	for i := 0; i < 3; i++ {
		_, err := wrapped.RoundTrip(req)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func Test_buildClient_defaults_to_github_dot_com(t *testing.T) {
	client, err := buildClient(context.Background(), Options{CacheDir: t.TempDir()})
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "https://api.github.com/", client.BaseURL.String())
}

func Test_buildClient_enterprise_host(t *testing.T) {
	client, err := buildClient(context.Background(), Options{
		Host:     "https://github.example.com",
		CacheDir: t.TempDir(),
	})
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Contains(t, client.BaseURL.String(), "github.example.com")
}

func Test_Source_Next_paginates_until_last_page(t *testing.T) {
	page := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page++
		if page < 2 {
			w.Header().Set("Link", `<https://example.com/issues?page=2>; rel="next"`)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	s := &Source{
		opts:   Options{Owner: "o", Repo: "r"},
		page:   1,
		client: newTestClient(t, srv.URL+"/"),
	}

	_, err, ok := s.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, s.done, "a Link header with rel=\"next\" must not mark the source done")

	_, err, ok = s.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, s.done, "no further Link header must mark the source done")
}
