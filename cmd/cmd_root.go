// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/bufalari/clientbook/config"
	"github.com/bufalari/clientbook/utils/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootOptions struct {
	EnvFile   string
	DBDriver  string
	DBDSN     string
	LogLevel  string
	LogFormat string
	TraceHTTP bool
}

var rootCmd = &cobra.Command{
	Use:   "clientbook",
	Short: "client records with geocoded addresses",
	Long: `
clientbook keeps a registry of clients with their contact information and
alternative contacts. Addresses are geocoded on creation and every client
carries ready to use navigation links.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(rootOptions.EnvFile)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("db-driver") {
			loaded.DBDriver = rootOptions.DBDriver
		}

		if flags.Changed("db-dsn") {
			loaded.DBDSN = rootOptions.DBDSN
		}

		if flags.Changed("log-level") {
			loaded.LogLevel = rootOptions.LogLevel
		}

		if flags.Changed("log-format") {
			loaded.LogFormat = rootOptions.LogFormat
		}

		loaded.TraceHTTP = rootOptions.TraceHTTP

		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		l, err := logging.New(loaded.LogLevel, loaded.LogFormat, "clientbook")
		if err != nil {
			return err
		}

		zap.RedirectStdLog(l)

		cfg, logger = loaded, l

		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootOptions.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flags.StringVar(&rootOptions.DBDriver, "db-driver", config.DriverDuckDB, "database driver (duckdb or postgres)")
	flags.StringVar(&rootOptions.DBDSN, "db-dsn", config.DefaultDSN, "database file (duckdb) or connection string (postgres)")
	flags.StringVar(&rootOptions.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&rootOptions.LogFormat, "log-format", "console", "log format (console or json)")
	flags.BoolVar(&rootOptions.TraceHTTP, "trace-http", false, "dump geocoding HTTP traffic to stderr")
}
