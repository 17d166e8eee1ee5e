package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/dbcreds/internal/config"
	"github.com/systmms/dbcreds/internal/credentials"
)

// NewLocalCommand returns the command that resolves credentials from a local env file
func NewLocalCommand(cfg *config.Config) *cobra.Command {
	var (
		envFile string
		format  string
		reveal  bool
	)

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Resolve credentials from a local env file",
		Long: `Resolve database credentials from a local KEY=VALUE env file.

Recognized keys: DB_USER, DB_PASS and DB_HOST. DB_HOST is used as the
database name; host and port keep their defaults (localhost:1057).

Examples:
  # Read .env (or env_file from dbcreds.yaml)
  dbcreds local

  # Read another file and print JSON
  dbcreds local --env-file .env.development --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			if err := cfg.Load(); err != nil {
				return err
			}
			if envFile == "" {
				envFile = cfg.Definition.EnvFile
			}

			sink, err := newMetricsSink(cfg.Definition.Metrics.Textfile)
			if err != nil {
				return err
			}
			defer sink.flush(cfg.Logger)

			resolver := credentials.NewResolver(cfg.Logger, sink.option())

			cred, err := resolver.FromLocalFile(envFile)
			if err != nil {
				return err
			}
			return printCredential(cmd.OutOrStdout(), resolver, cred, format, reveal)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Env file path (default: env_file from config, or .env)")
	cmd.Flags().StringVar(&format, "format", formatURL, "Output format: url, dsn, json")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the password instead of masking it")

	return cmd
}
