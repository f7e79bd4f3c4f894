/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"fmt"
	"os"

	"creatorpulse/internal/config"
	"creatorpulse/internal/logger"
	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "creatorpulse",
		Short: "CreatorPulse tracks content sources, detects trends and drafts newsletters.",
		Long: `CreatorPulse syncs the feeds you follow (RSS, YouTube, Reddit, Hacker News,
Google Trends and Google Alerts), detects the keywords trending across them and
asks a language model to draft a newsletter in your voice.

Typical flow:
  creatorpulse sources add rss "Go Blog" https://go.dev/blog/feed.atom
  creatorpulse sync
  creatorpulse draft generate
  creatorpulse draft show <id>`,
		SilenceUsage: true,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.creatorpulse.yaml)")

	rootCmd.AddCommand(NewSourcesCmd())
	rootCmd.AddCommand(NewSyncCmd())
	rootCmd.AddCommand(NewTrendsCmd())
	rootCmd.AddCommand(NewDraftCmd())
	rootCmd.AddCommand(NewPrefsCmd())
	rootCmd.AddCommand(NewNewslettersCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewServeCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so tables and drafts on stdout stay pipeable.
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
}
