package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Messages carried by ConfigurationError. Callers match on these rather than
// on the rendered error string, which may include a wrapped cause.
const (
	MsgMissingSecretID    = "missing secret identifier"
	MsgSecretNotFound     = "secret does not exist"
	MsgSecretRetrieval    = "error retrieving secret"
	MsgMalformedPayload   = "malformed secret payload"
	MsgMissingField       = "missing required credential field"
	MsgInvalidField       = "invalid credential field"
	MsgEnvFileRead        = "error reading env file"
	MsgUnsupportedDialect = "unsupported dialect"
	MsgNoSecretStore      = "no secret store configured"
)

// ConfigurationError is returned by every failed credential resolution.
type ConfigurationError struct {
	Message string
	Field   string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// AsConfigurationError unwraps err to a *ConfigurationError if it holds one.
func AsConfigurationError(err error) (*ConfigurationError, bool) {
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a problem in the dbcreds.yaml file
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// Suggestion returns a hint for the user based on the failure of a
// credential resolution, or "" when there is nothing useful to add.
func Suggestion(err error) string {
	ce, ok := AsConfigurationError(err)
	if !ok {
		return ""
	}

	switch ce.Message {
	case MsgMissingSecretID:
		return "Export the secret name, e.g. 'export SECRET_NAME=prod/db'"
	case MsgSecretNotFound:
		return "Verify the secret name and region. List secrets with: 'aws secretsmanager list-secrets'"
	case MsgSecretRetrieval:
		if ce.Err != nil && strings.Contains(ce.Err.Error(), "AccessDenied") {
			return "Check IAM permissions for secretsmanager:GetSecretValue"
		}
		return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
	case MsgMissingField:
		return "Set DB_USER and DB_PASS in the env file"
	}
	return ""
}
