// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/gardener/proton/pkg/proton"
)

// DefaultConfigFileName is the default configuration filename under the
// proton home folder.
const DefaultConfigFileName = "config"

// Options holds every flag/config value proton's run command accepts.
type Options struct {
	Source           string   `mapstructure:"source"`
	Branch           string   `mapstructure:"branch"`
	Target           string   `mapstructure:"target"`
	Mode             string   `mapstructure:"mode"`
	Workers          int      `mapstructure:"workers"`
	Affinity         string   `mapstructure:"affinity"`
	LowPriority      bool     `mapstructure:"low-priority"`
	Verbose          bool     `mapstructure:"verbose"`
	IgnoreExceptions []string `mapstructure:"ignore-exceptions"`
	ErrorLogPath     string   `mapstructure:"error-log"`
	GithubOAuthToken string   `mapstructure:"github-oauth-token"`
	GithubHost       string   `mapstructure:"github-host"`
	GithubThrottling bool     `mapstructure:"github-throttling"`
	CacheDir         string   `mapstructure:"cache-dir"`
}

var vip *viper.Viper

// NewCommand creates a new root command and propagates the context to its
// RunE callback closure.
func NewCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proton",
		Short: "Run parallel jobs over a map, ordered-map or stack pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			options, err := NewOptions()
			if err != nil {
				return err
			}

			jobs, err := resolveJobSource(ctx, options)
			if err != nil {
				return err
			}
			target, err := resolveTarget(options.Target)
			if err != nil {
				return err
			}

			ignore := make([]proton.ErrorKind, 0, len(options.IgnoreExceptions))
			for _, k := range options.IgnoreExceptions {
				ignore = append(ignore, proton.ErrorKind(k))
			}

			opts := proton.Options{
				Target:           target,
				Jobs:             jobs,
				IgnoreExceptions: ignore,
				NumWorkers:       options.Workers,
				Affinity:         options.Affinity,
				Verbose:          options.Verbose,
				LowPriority:      options.LowPriority,
				ErrorLogPath:     options.ErrorLogPath,
			}

			return run(ctx, options.Mode, opts)
		},
	}

	Configure(cmd)

	version := NewVersionCmd()
	cmd.AddCommand(version)

	completion := newCompletionCmd()
	cmd.AddCommand(completion)

	klog.InitFlags(nil)
	AddFlags(cmd)

	return cmd
}

// run drives opts to completion under the requested mode, printing a
// one-line summary on success.
func run(ctx context.Context, mode string, opts proton.Options) error {
	switch mode {
	case "", "async":
		m, err := proton.NewAsyncMapper(opts)
		if err != nil {
			return err
		}
		outputs, err := proton.All(ctx, m)
		if err != nil {
			return err
		}
		fmt.Printf("processed %d jobs\n", len(outputs))
		return nil

	case "sync":
		m, err := proton.NewSyncMapper(opts)
		if err != nil {
			return err
		}
		m.Start(ctx)
		count := 0
		for {
			_, err, ok := m.Next()
			if err != nil {
				_ = m.Close()
				return err
			}
			if !ok {
				break
			}
			count++
		}
		if err := m.Close(); err != nil {
			return err
		}
		fmt.Printf("processed %d jobs in order\n", count)
		return nil

	case "stack":
		sc, err := proton.NewStackAsync(opts, wordCountCombiner{})
		if err != nil {
			return err
		}
		total, err := proton.StackAll(ctx, sc)
		if err != nil {
			return err
		}
		fmt.Printf("combined %d jobs: %+v\n", len(total.JobIDs), total.Answer)
		return nil

	default:
		return fmt.Errorf("unknown --mode %q: expected \"async\", \"sync\" or \"stack\"", mode)
	}
}

// Configure configures flags for command.
func Configure(command *cobra.Command) {
	vip = viper.NewWithOptions(viper.KeyDelimiter("::"))
	configureFlags(command, vip)
	configureConfigFile()
}

func configureConfigFile() {
	vip.AutomaticEnv()
	cfgFile := os.Getenv("PROTON_CONFIG")
	if cfgFile == "" {
		userHomeDir, _ := os.UserHomeDir()
		cfgFile = filepath.Join(userHomeDir, ProtonHomeDir, DefaultConfigFileName)
		if _, err := os.Lstat(cfgFile); os.IsNotExist(err) {
			return
		}
	}
	vip.AddConfigPath(filepath.Dir(cfgFile))
	vip.SetConfigName(filepath.Base(cfgFile))
	vip.SetConfigType("yaml")
	if err := vip.ReadInConfig(); err != nil {
		klog.Warningf("non-fatal error loading configuration file %s. No configuration file will be used: %v", cfgFile, err)
		return
	}
	klog.Infof("configuration file %s will be used", cfgFile)
}

// NewOptions creates an Options from flags and configuration file; flags
// override values from the configuration file.
func NewOptions() (*Options, error) {
	loadedOptions := &Options{}
	if err := vip.Unmarshal(loadedOptions); err != nil {
		return nil, err
	}
	return loadedOptions, nil
}

// AddFlags adds go flags to rootCmd.
func AddFlags(rootCmd *cobra.Command) {
	flag.CommandLine.VisitAll(func(gf *flag.Flag) {
		rootCmd.Flags().AddGoFlag(gf)
	})
}
