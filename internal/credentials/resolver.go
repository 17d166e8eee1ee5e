package credentials

import (
	"context"
	"io"
	"os"

	dserrors "github.com/systmms/dbcreds/internal/errors"
	"github.com/systmms/dbcreds/internal/logging"
	"github.com/systmms/dbcreds/internal/providers"
)

// DefaultSecretEnvVar names the environment variable holding the secret id
const DefaultSecretEnvVar = "SECRET_NAME"

// Keys read from a local env file
const (
	EnvHost = "DB_HOST"
	EnvUser = "DB_USER"
	EnvPass = "DB_PASS"
)

// SecretStore fetches raw secret payloads. A missing secret must be
// reported as a *providers.NotFoundError.
type SecretStore interface {
	Name() string
	GetSecretValue(ctx context.Context, secretID string) ([]byte, error)
}

// Resolver builds Credentials from a managed secret or a local env file
type Resolver struct {
	logger       *logging.Logger
	store        SecretStore
	secretEnvVar string
	lookupEnv    func(string) (string, bool)
	metrics      *Metrics
}

// Option configures a Resolver
type Option func(*Resolver)

// WithSecretStore sets the store used by FromManagedSecret
func WithSecretStore(store SecretStore) Option {
	return func(r *Resolver) {
		r.store = store
	}
}

// WithSecretEnvVar overrides the variable that names the secret
func WithSecretEnvVar(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.secretEnvVar = name
		}
	}
}

// WithLookupEnv replaces os.LookupEnv (for testing)
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(r *Resolver) {
		r.lookupEnv = fn
	}
}

// WithMetrics records every resolution in m
func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver creates a resolver logging to logger. A nil logger discards output.
func NewResolver(logger *logging.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = logging.New(logging.Options{Writer: io.Discard})
	}
	r := &Resolver{
		logger:       logger,
		secretEnvVar: DefaultSecretEnvVar,
		lookupEnv:    os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FromManagedSecret resolves the secret named by the configured environment
// variable. The payload is never logged.
func (r *Resolver) FromManagedSecret(ctx context.Context) (Credential, error) {
	cred, err := r.fromManagedSecret(ctx)
	r.metrics.observe(SourceManagedSecret, err)
	return cred, err
}

func (r *Resolver) fromManagedSecret(ctx context.Context) (Credential, error) {
	secretID, ok := r.lookupEnv(r.secretEnvVar)
	if !ok || secretID == "" {
		r.logger.Error("Did not find the %s environment variable", r.secretEnvVar)
		return Credential{}, &dserrors.ConfigurationError{Message: dserrors.MsgMissingSecretID}
	}
	if r.store == nil {
		r.logger.Error("No secret store configured")
		return Credential{}, &dserrors.ConfigurationError{Message: dserrors.MsgNoSecretStore}
	}

	r.logger.Info("Get the secret name from %s", r.secretEnvVar)

	payload, err := r.store.GetSecretValue(ctx, secretID)
	if err != nil {
		if providers.IsNotFound(err) {
			r.logger.Error("The specified secret does not exist")
			return Credential{}, &dserrors.ConfigurationError{
				Message: dserrors.MsgSecretNotFound,
				Err:     err,
			}
		}
		r.logger.Error("Error retrieving the secret: %s", secretID)
		return Credential{}, &dserrors.ConfigurationError{
			Message: dserrors.MsgSecretRetrieval,
			Field:   secretID,
			Err:     err,
		}
	}

	fields, err := parseSecretPayload(payload)
	if err != nil {
		r.logger.Error("The secret %s is not a valid credentials document", secretID)
		return Credential{}, &dserrors.ConfigurationError{
			Message: dserrors.MsgMalformedPayload,
			Err:     err,
		}
	}
	r.logger.Info("The secret is successfully obtained from %s", r.store.Name())

	cred, err := New(fields)
	if err != nil {
		r.logger.Error("Invalid credentials in secret %s: %v", secretID, err)
		return Credential{}, err
	}
	return cred, nil
}

// FromLocalFile resolves credentials from the env file at path. A file
// that does not exist yields no values, so resolution then fails on the
// missing user.
//
// DB_HOST is stored as the database name and host/port keep their
// defaults. Callers rely on this mapping.
func (r *Resolver) FromLocalFile(path string) (Credential, error) {
	cred, err := r.fromLocalFile(path)
	r.metrics.observe(SourceLocalFile, err)
	return cred, err
}

func (r *Resolver) fromLocalFile(path string) (Credential, error) {
	values, err := readEnvFile(path)
	if err != nil {
		r.logger.Error("Could not read env file %s", path)
		return Credential{}, &dserrors.ConfigurationError{
			Message: dserrors.MsgEnvFileRead,
			Field:   path,
			Err:     err,
		}
	}

	r.logger.Info("Creating credentials for localhost")

	cred, err := New(Fields{
		User:     nonEmpty(values[EnvUser]),
		Password: nonEmpty(values[EnvPass]),
		Database: nonEmpty(values[EnvHost]),
	})
	if err != nil {
		r.logger.Error("Invalid credentials in %s: %v", path, err)
		return Credential{}, err
	}
	return cred, nil
}

// ConnectionString renders cred (see Credential.ConnectionString). The
// rendered string holds the password and is not logged.
func (r *Resolver) ConnectionString(cred Credential) string {
	r.logger.Info("Create URL for database")
	return cred.ConnectionString()
}
