package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/systmms/dbcreds/internal/config"
	"github.com/systmms/dbcreds/internal/credentials"
	dserrors "github.com/systmms/dbcreds/internal/errors"
)

// NewSecretCommand returns the command that resolves credentials from AWS Secrets Manager
func NewSecretCommand(cfg *config.Config) *cobra.Command {
	var (
		format string
		reveal bool
	)

	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Resolve credentials from AWS Secrets Manager",
		Long: `Resolve database credentials from the AWS Secrets Manager secret named by
the SECRET_NAME environment variable (see secret_env_var in dbcreds.yaml).

The secret must be a JSON document with the RDS layout:
  {"username": "...", "password": "...", "masterEndpoint": "...",
   "masterPort": 3306, "database": "..."}

Examples:
  # Print the connection string with the password masked
  SECRET_NAME=prod/db dbcreds secret

  # Print a go-sql-driver/mysql DSN including the password
  SECRET_NAME=prod/db dbcreds secret --format dsn --reveal`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			if err := cfg.Load(); err != nil {
				return err
			}
			def := cfg.Definition

			ctx, cancel := context.WithTimeout(cmd.Context(), def.AWS.Timeout())
			defer cancel()

			store, err := newSecretStore(ctx, def.AWS)
			if err != nil {
				return dserrors.UserError{
					Message:    "Failed to initialize AWS Secrets Manager client",
					Suggestion: "Configure AWS credentials: 'aws configure' or set AWS_PROFILE",
					Err:        err,
				}
			}

			sink, err := newMetricsSink(def.Metrics.Textfile)
			if err != nil {
				return err
			}
			defer sink.flush(cfg.Logger)

			resolver := credentials.NewResolver(cfg.Logger,
				credentials.WithSecretStore(store),
				credentials.WithSecretEnvVar(def.SecretEnvVar),
				sink.option(),
			)

			cred, err := resolver.FromManagedSecret(ctx)
			if err != nil {
				return err
			}
			return printCredential(cmd.OutOrStdout(), resolver, cred, format, reveal)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatURL, "Output format: url, dsn, json")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the password instead of masking it")

	return cmd
}
