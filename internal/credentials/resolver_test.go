package credentials_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/dbcreds/internal/credentials"
	dserrors "github.com/systmms/dbcreds/internal/errors"
	"github.com/systmms/dbcreds/internal/logging"
	"github.com/systmms/dbcreds/internal/providers"
	"github.com/systmms/dbcreds/tests/fakes"
)

const rdsSecret = `{"username":"a","password":"b","masterEndpoint":"h","masterPort":3306,"database":"d"}`

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

type harness struct {
	fake     *fakes.FakeSecretsManagerClient
	logs     *bytes.Buffer
	resolver *credentials.Resolver
}

func newHarness(t *testing.T, vars map[string]string, opts ...credentials.Option) *harness {
	t.Helper()

	fake := fakes.NewFakeSecretsManagerClient()
	store, err := providers.NewAWSSecretsManagerProvider(context.Background(), "aws-secretsmanager", providers.AWSOptions{},
		providers.WithSecretsManagerClient(fake))
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := logging.New(logging.Options{Writer: &logs, NoColor: true})

	opts = append([]credentials.Option{
		credentials.WithSecretStore(store),
		credentials.WithLookupEnv(env(vars)),
	}, opts...)

	return &harness{
		fake:     fake,
		logs:     &logs,
		resolver: credentials.NewResolver(logger, opts...),
	}
}

func requireConfigError(t *testing.T, err error, msg string) *dserrors.ConfigurationError {
	t.Helper()
	require.Error(t, err)
	ce, ok := dserrors.AsConfigurationError(err)
	require.True(t, ok, "expected ConfigurationError, got %T: %v", err, err)
	assert.Equal(t, msg, ce.Message)
	return ce
}

func TestFromManagedSecret(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{"SECRET_NAME": "prod/db"})
	h.fake.AddSecretString("prod/db", rdsSecret)

	cred, err := h.resolver.FromManagedSecret(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "a", cred.User())
	assert.Equal(t, "b", cred.Password())
	assert.Equal(t, "h", cred.Host())
	assert.Equal(t, 3306, cred.Port())
	db, ok := cred.Database()
	assert.True(t, ok)
	assert.Equal(t, "d", db)
	assert.Equal(t, credentials.DefaultDriver, cred.Driver())
	assert.Equal(t, credentials.DefaultDialect, cred.Dialect())

	assert.Equal(t, []string{"prod/db"}, h.fake.Calls())
	assert.Contains(t, h.logs.String(), "| INFO     |")
	assert.Contains(t, h.logs.String(), "The secret is successfully obtained from aws-secretsmanager")
	assert.NotContains(t, h.logs.String(), `"password"`)
	assert.NotContains(t, h.logs.String(), "ERROR")
}

func TestFromManagedSecretBinaryPayload(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{"SECRET_NAME": "prod/db"})
	h.fake.AddSecretBinary("prod/db", []byte(rdsSecret))

	cred, err := h.resolver.FromManagedSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mysql+pymysql://a:b@h:3306/d", cred.ConnectionString())
}

func TestFromManagedSecretDefaultsForMissingEndpoint(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{"SECRET_NAME": "dev/db"})
	h.fake.AddSecretString("dev/db", `{"username":"a","password":"b"}`)

	cred, err := h.resolver.FromManagedSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credentials.DefaultHost, cred.Host())
	assert.Equal(t, credentials.DefaultPort, cred.Port())
}

func TestFromManagedSecretCustomEnvVar(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{"DB_SECRET_ARN": "arn:aws:secretsmanager:x"},
		credentials.WithSecretEnvVar("DB_SECRET_ARN"))
	h.fake.AddSecretString("arn:aws:secretsmanager:x", rdsSecret)

	_, err := h.resolver.FromManagedSecret(context.Background())
	require.NoError(t, err)
}

func TestFromManagedSecretMissingIdentifier(t *testing.T) {
	t.Parallel()

	for name, vars := range map[string]map[string]string{
		"unset": {},
		"empty": {"SECRET_NAME": ""},
	} {
		vars := vars
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, vars)
			_, err := h.resolver.FromManagedSecret(context.Background())

			requireConfigError(t, err, dserrors.MsgMissingSecretID)
			assert.Empty(t, h.fake.Calls(), "store must not be called")
			assert.Contains(t, h.logs.String(), "| ERROR    |")
		})
	}
}

func TestFromManagedSecretNoStore(t *testing.T) {
	t.Parallel()

	r := credentials.NewResolver(nil, credentials.WithLookupEnv(env(map[string]string{"SECRET_NAME": "x"})))
	_, err := r.FromManagedSecret(context.Background())
	requireConfigError(t, err, dserrors.MsgNoSecretStore)
}

func TestFromManagedSecretStoreErrors(t *testing.T) {
	t.Parallel()

	denied := &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "no"}

	tests := []struct {
		name      string
		setup     func(*fakes.FakeSecretsManagerClient)
		wantMsg   string
		wantField string
	}{
		{
			name:    "not found",
			setup:   func(*fakes.FakeSecretsManagerClient) {},
			wantMsg: dserrors.MsgSecretNotFound,
		},
		{
			name:      "access denied",
			setup:     func(f *fakes.FakeSecretsManagerClient) { f.AddError("prod/db", denied) },
			wantMsg:   dserrors.MsgSecretRetrieval,
			wantField: "prod/db",
		},
		{
			name:      "transport",
			setup:     func(f *fakes.FakeSecretsManagerClient) { f.AddError("prod/db", errors.New("connection reset")) },
			wantMsg:   dserrors.MsgSecretRetrieval,
			wantField: "prod/db",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, map[string]string{"SECRET_NAME": "prod/db"})
			tt.setup(h.fake)

			_, err := h.resolver.FromManagedSecret(context.Background())
			ce := requireConfigError(t, err, tt.wantMsg)
			assert.Equal(t, tt.wantField, ce.Field)
			assert.NotNil(t, ce.Unwrap(), "cause must be preserved")
			assert.Contains(t, h.logs.String(), "| ERROR    |")
		})
	}
}

func TestFromManagedSecretMalformedPayload(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{"SECRET_NAME": "prod/db"})
	h.fake.AddSecretString("prod/db", `{'username': 'a', 'password': 'topsecret'}`)

	_, err := h.resolver.FromManagedSecret(context.Background())
	requireConfigError(t, err, dserrors.MsgMalformedPayload)
	assert.NotContains(t, h.logs.String(), "topsecret")
}

func TestFromManagedSecretMissingPassword(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]string{"SECRET_NAME": "prod/db"})
	h.fake.AddSecretString("prod/db", `{"username":"a"}`)

	_, err := h.resolver.FromManagedSecret(context.Background())
	ce := requireConfigError(t, err, dserrors.MsgMissingField)
	assert.Equal(t, "password", ce.Field)
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFromLocalFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		user    string
		pass    string
		db      string
		hasDB   bool
	}{
		{
			name:    "all keys",
			content: "DB_HOST=analytics\nDB_USER=admin\nDB_PASS=s3cret\n",
			user:    "admin", pass: "s3cret", db: "analytics", hasDB: true,
		},
		{
			name:    "quoted values and comments",
			content: "# local dev\nDB_USER=\"admin\"\nDB_PASS='p#ss word'\nDB_HOST=orders # inline\n",
			user:    "admin", pass: "p#ss word", db: "orders", hasDB: true,
		},
		{
			name:    "no host",
			content: "DB_USER=admin\nDB_PASS=s3cret\n",
			user:    "admin", pass: "s3cret",
		},
		{
			name:    "export prefix",
			content: "export DB_USER=admin\nexport DB_PASS=s3cret\n",
			user:    "admin", pass: "s3cret",
		},
		{
			name:    "dollar sign is not expanded",
			content: "DB_USER=admin\nDB_PASS=pa$HOME-x\nDB_HOST=db\n",
			user:    "admin", pass: "pa$HOME-x", db: "db", hasDB: true,
		},
		{
			name:    "braced reference to another key is literal",
			content: "DB_USER=admin\nDB_PASS=${DB_USER}x\n",
			user:    "admin", pass: "${DB_USER}x",
		},
		{
			name:    "dollar sign in double quotes",
			content: "DB_USER=admin\nDB_PASS=\"pa$USER $\"\n",
			user:    "admin", pass: "pa$USER $",
		},
		{
			name:    "dollar sign in single quotes",
			content: "DB_USER=admin\nDB_PASS='pa$USER'\n",
			user:    "admin", pass: "pa$USER",
		},
		{
			name:    "trailing dollar sign",
			content: "DB_USER=admin\nDB_PASS=s3cret$\n",
			user:    "admin", pass: "s3cret$",
		},
		{
			name:    "escaped dollar sign keeps its backslash",
			content: "DB_USER=admin\nDB_PASS=pa\\$HOME\n",
			user:    "admin", pass: "pa\\$HOME",
		},
		{
			name:    "equals signs in value",
			content: "DB_USER=admin\nDB_PASS=a=b=c\n",
			user:    "admin", pass: "a=b=c",
		},
		{
			name:    "backslash in unquoted value",
			content: "DB_USER=admin\nDB_PASS=c:\\tmp\\n\n",
			user:    "admin", pass: "c:\\tmp\\n",
		},
		{
			name:    "comment line with quote does not swallow next line",
			content: "# it's = 'local\nDB_USER=admin\nDB_PASS=pa$HOME\n",
			user:    "admin", pass: "pa$HOME",
		},
		{
			name:    "crlf line endings",
			content: "DB_USER=admin\r\nDB_PASS=pa$HOME\r\n",
			user:    "admin", pass: "pa$HOME",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, nil)
			cred, err := h.resolver.FromLocalFile(writeEnvFile(t, tt.content))
			require.NoError(t, err)

			assert.Equal(t, tt.user, cred.User())
			assert.Equal(t, tt.pass, cred.Password())
			assert.Equal(t, "localhost", cred.Host())
			assert.Equal(t, 1057, cred.Port())

			db, ok := cred.Database()
			assert.Equal(t, tt.hasDB, ok)
			assert.Equal(t, tt.db, db)

			assert.Contains(t, h.logs.String(), "Creating credentials for localhost")
			assert.NotContains(t, h.logs.String(), tt.pass)
		})
	}
}

func TestFromLocalFileMissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   string
		wantField string
	}{
		{name: "no user", content: "DB_PASS=s3cret\n", wantField: "user"},
		{name: "empty user", content: "DB_USER=\nDB_PASS=s3cret\n", wantField: "user"},
		{name: "no password", content: "DB_USER=admin\nDB_HOST=x\n", wantField: "password"},
		{name: "empty file", content: "", wantField: "user"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, nil)
			_, err := h.resolver.FromLocalFile(writeEnvFile(t, tt.content))

			ce := requireConfigError(t, err, dserrors.MsgMissingField)
			assert.Equal(t, tt.wantField, ce.Field)
			assert.Contains(t, h.logs.String(), "| ERROR    |")
		})
	}
}

func TestFromLocalFileNonexistent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	_, err := h.resolver.FromLocalFile(filepath.Join(t.TempDir(), "missing.env"))

	ce := requireConfigError(t, err, dserrors.MsgMissingField)
	assert.Equal(t, "user", ce.Field)
}

func TestFromLocalFileUnreadable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	h := newHarness(t, nil)
	_, err := h.resolver.FromLocalFile(dir)

	ce := requireConfigError(t, err, dserrors.MsgEnvFileRead)
	assert.Equal(t, dir, ce.Field)
}

func TestResolverConnectionStringLogsWithoutSecret(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	cred, err := credentials.New(credentials.Fields{
		User:     credentials.Some("u"),
		Password: credentials.Some("verysecret"),
		Host:     credentials.Some("h"),
		Database: credentials.Some("db"),
	})
	require.NoError(t, err)

	got := h.resolver.ConnectionString(cred)
	assert.Equal(t, "mysql+pymysql://u:verysecret@h:1057/db", got)
	assert.Contains(t, h.logs.String(), "Create URL for database")
	assert.NotContains(t, h.logs.String(), "verysecret")
}

func TestResolverMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := credentials.NewMetrics(reg)
	require.NoError(t, err)

	h := newHarness(t, map[string]string{"SECRET_NAME": "prod/db"}, credentials.WithMetrics(m))
	h.fake.AddSecretString("prod/db", rdsSecret)

	_, err = h.resolver.FromManagedSecret(context.Background())
	require.NoError(t, err)
	_, err = h.resolver.FromLocalFile(writeEnvFile(t, ""))
	require.Error(t, err)

	counter := m.Resolutions()
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(credentials.SourceManagedSecret, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(credentials.SourceLocalFile, "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(counter.WithLabelValues(credentials.SourceLocalFile, "success")))

	again, err := credentials.NewMetrics(reg)
	require.NoError(t, err)
	assert.Same(t, counter, again.Resolutions())
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *credentials.Metrics
	assert.Nil(t, m.Resolutions())

	h := newHarness(t, nil, credentials.WithMetrics(nil))
	_, err := h.resolver.FromLocalFile(writeEnvFile(t, "DB_USER=a\nDB_PASS=b\n"))
	require.NoError(t, err)
}
