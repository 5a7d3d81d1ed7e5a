// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ProtonHomeDir defines the proton home location, used as the default cache
// directory for cached GitHub HTTP responses.
const ProtonHomeDir = ".proton"

func configureFlags(command *cobra.Command, vip *viper.Viper) {
	command.Flags().String("source", "",
		"Job source: a local git repository path, or \"github:owner/repo\" to list issues of a GitHub repository.")
	_ = command.MarkFlagRequired("source")
	_ = vip.BindPFlag("source", command.Flags().Lookup("source"))

	command.Flags().String("branch", "",
		"Remote-tracking branch (origin/<branch>) whose tree is walked when --source is a git repository. Defaults to the repository's HEAD.")
	_ = vip.BindPFlag("branch", command.Flags().Lookup("branch"))

	command.Flags().String("target", "wordcount",
		"Target function applied to every job: \"wordcount\" or \"frontmatter\".")
	_ = vip.BindPFlag("target", command.Flags().Lookup("target"))

	command.Flags().String("mode", "async",
		"Run mode: \"async\" (unordered map), \"sync\" (order-restoring map), or \"stack\" (cumulative word-count reduce).")
	_ = vip.BindPFlag("mode", command.Flags().Lookup("mode"))

	command.Flags().IntP("workers", "w", 0,
		"Number of parallel workers. Defaults to the host's CPU count.")
	_ = vip.BindPFlag("workers", command.Flags().Lookup("workers"))

	command.Flags().String("affinity", "",
		"Pin this process to a CPU core or range, e.g. \"2\" or \"2-5\".")
	_ = vip.BindPFlag("affinity", command.Flags().Lookup("affinity"))

	command.Flags().Bool("low-priority", false,
		"Lower this process's scheduling priority (nice +10).")
	_ = vip.BindPFlag("low-priority", command.Flags().Lookup("low-priority"))

	command.Flags().BoolP("verbose", "v", false,
		"Print per-job progress messages as they are produced.")
	_ = vip.BindPFlag("verbose", command.Flags().Lookup("verbose"))

	command.Flags().StringSlice("ignore-exceptions", []string{},
		"Target error kinds (Go type names) that should not abort the run. Forbidden in \"sync\" mode.")
	_ = vip.BindPFlag("ignore-exceptions", command.Flags().Lookup("ignore-exceptions"))

	command.Flags().String("error-log", "",
		"Path to the error log file. Defaults to proton.DefaultErrorLogPath.")
	_ = vip.BindPFlag("error-log", command.Flags().Lookup("error-log"))

	command.Flags().String("github-oauth-token", "",
		"GitHub personal token authorizing read access, used when --source is \"github:owner/repo\".")
	_ = vip.BindPFlag("github-oauth-token", command.Flags().Lookup("github-oauth-token"))

	command.Flags().String("github-host", "",
		"GitHub Enterprise API host. Defaults to github.com.")
	_ = vip.BindPFlag("github-host", command.Flags().Lookup("github-host"))

	command.Flags().Bool("github-throttling", false,
		"Rate-limit requests to the GitHub API to a conservative, fixed rate.")
	_ = vip.BindPFlag("github-throttling", command.Flags().Lookup("github-throttling"))

	cacheDir := ""
	userHomeDir, err := os.UserHomeDir()
	if err == nil {
		cacheDir = filepath.Join(userHomeDir, ProtonHomeDir)
	}
	command.Flags().String("cache-dir", cacheDir,
		"Cache directory, used for cached GitHub responses.")
	_ = vip.BindPFlag("cache-dir", command.Flags().Lookup("cache-dir"))
}
