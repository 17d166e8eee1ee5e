package config

import (
	"os"
	"time"

	"github.com/systmms/dbcreds/internal/credentials"
	dserrors "github.com/systmms/dbcreds/internal/errors"
	"github.com/systmms/dbcreds/internal/logging"
	"github.com/systmms/dbcreds/internal/providers"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given
const DefaultPath = "dbcreds.yaml"

const (
	defaultEnvFile   = ".env"
	defaultTimeoutMs = 30000
)

// Config holds the runtime configuration
type Config struct {
	Path string
	// MetricsFile overrides metrics.textfile from the file (--metrics-file)
	MetricsFile string
	Logger      *logging.Logger
	Definition  *Definition
}

// Definition represents the dbcreds.yaml structure
type Definition struct {
	SecretEnvVar string        `yaml:"secret_env_var,omitempty"`
	EnvFile      string        `yaml:"env_file,omitempty"`
	AWS          AWSConfig     `yaml:"aws,omitempty"`
	Metrics      MetricsConfig `yaml:"metrics,omitempty"`
}

// AWSConfig configures the Secrets Manager client
type AWSConfig struct {
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	TimeoutMs       int    `yaml:"timeout_ms,omitempty"`
}

// MetricsConfig controls where resolution counters are written. Counters are
// only collected when Textfile is set; the file uses the Prometheus text
// format read by node_exporter's textfile collector.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Defaults returns the definition used when no config file exists
func Defaults() *Definition {
	def := &Definition{}
	def.applyDefaults()
	return def
}

func (d *Definition) applyDefaults() {
	if d.SecretEnvVar == "" {
		d.SecretEnvVar = credentials.DefaultSecretEnvVar
	}
	if d.EnvFile == "" {
		d.EnvFile = defaultEnvFile
	}
	if d.AWS.Region == "" {
		d.AWS.Region = providers.DefaultRegion
	}
	if d.AWS.TimeoutMs == 0 {
		d.AWS.TimeoutMs = defaultTimeoutMs
	}
}

// Timeout returns the per-call timeout for the secret store
func (a AWSConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutMs) * time.Millisecond
}

// ProviderOptions maps the AWS section onto provider options
func (a AWSConfig) ProviderOptions() providers.AWSOptions {
	return providers.AWSOptions{
		Region:          a.Region,
		Endpoint:        a.Endpoint,
		AccessKeyID:     a.AccessKeyID,
		SecretAccessKey: a.SecretAccessKey,
	}
}

// Load reads the configuration file. A missing file at DefaultPath yields
// the defaults; a missing file at any other path is an error.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			if c.Path == DefaultPath {
				c.Definition = Defaults()
				c.applyOverrides()
				return nil
			}
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Check the --config path or omit it to use defaults",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.AWS.TimeoutMs < 0 {
		return dserrors.ConfigError{
			Field:      "aws.timeout_ms",
			Value:      def.AWS.TimeoutMs,
			Message:    "timeout must not be negative",
			Suggestion: "Remove the field to use the default of 30000",
		}
	}

	def.applyDefaults()
	c.Definition = &def
	c.applyOverrides()
	return nil
}

func (c *Config) applyOverrides() {
	if c.MetricsFile != "" {
		c.Definition.Metrics.Textfile = c.MetricsFile
	}
}
