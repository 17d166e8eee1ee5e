package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/systmms/dbcreds/internal/config"
	"github.com/systmms/dbcreds/internal/credentials"
	dserrors "github.com/systmms/dbcreds/internal/errors"
	"github.com/systmms/dbcreds/internal/providers"
)

// Output formats accepted by --format
const (
	formatURL  = "url"
	formatDSN  = "dsn"
	formatJSON = "json"
)

const masked = "****"

// newSecretStore builds the store used by the secret command. Tests replace it.
var newSecretStore = func(ctx context.Context, aws config.AWSConfig) (credentials.SecretStore, error) {
	return providers.NewAWSSecretsManagerProvider(ctx, "aws-secretsmanager", aws.ProviderOptions())
}

func validateFormat(format string) error {
	switch format {
	case formatURL, formatDSN, formatJSON:
		return nil
	}
	return dserrors.UserError{
		Message:    fmt.Sprintf("Unknown output format '%s'", format),
		Suggestion: "Use --format url, dsn or json",
	}
}

type credentialJSON struct {
	User     string  `json:"user"`
	Password string  `json:"password"`
	Host     string  `json:"host"`
	Port     int     `json:"port"`
	Database *string `json:"database"`
	Driver   string  `json:"driver"`
	Dialect  string  `json:"dialect"`
	URL      string  `json:"url"`
}

// printCredential writes cred to w in the requested format. The password is
// masked unless reveal is set.
func printCredential(w io.Writer, r *credentials.Resolver, cred credentials.Credential, format string, reveal bool) error {
	switch format {
	case formatDSN:
		render := cred.RedactedDriverDSN
		if reveal {
			render = cred.DriverDSN
		}
		dsn, err := render()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, dsn)
		return err

	case formatJSON:
		out := credentialJSON{
			User:     cred.User(),
			Password: masked,
			Host:     cred.Host(),
			Port:     cred.Port(),
			Driver:   cred.Driver(),
			Dialect:  cred.Dialect(),
			URL:      cred.RedactedConnectionString(),
		}
		if db, ok := cred.Database(); ok {
			out.Database = &db
		}
		if reveal {
			out.Password = cred.Password()
			out.URL = r.ConnectionString(cred)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)

	default:
		url := cred.RedactedConnectionString()
		if reveal {
			url = r.ConnectionString(cred)
		}
		_, err := fmt.Fprintln(w, url)
		return err
	}
}
