package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/dbcreds/cmd/dbcreds/commands"
	"github.com/systmms/dbcreds/internal/config"
	dserrors "github.com/systmms/dbcreds/internal/errors"
	"github.com/systmms/dbcreds/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if s := dserrors.Suggestion(err); s != "" {
			fmt.Fprintf(os.Stderr, "  💡 Try: %s\n", s)
		}
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  string
		metricsFile string
		noColor     bool
		debug       bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "dbcreds",
		Short: "Resolve database credentials from AWS Secrets Manager or a local env file",
		Long: `dbcreds resolves database credentials from an AWS Secrets Manager secret
or a local .env file and prints them as a connection string.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// The logger is created once here and shared by every command
			cfg.Path = configFile
			cfg.MetricsFile = metricsFile
			cfg.Logger = logging.New(logging.Options{
				Writer:  cmd.ErrOrStderr(),
				Debug:   debug,
				NoColor: noColor,
			})
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write resolution counters to this Prometheus text file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewSecretCommand(cfg),
		commands.NewLocalCommand(cfg),
	)

	return rootCmd.Execute()
}
