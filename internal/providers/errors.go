package providers

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when the store has no secret under the key
type NotFoundError struct {
	Provider string
	Key      string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("secret '%s' not found in %s", e.Key, e.Provider)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// ClientError wraps any other failure reported by the store client.
// Code is the service error code when the store returned one.
type ClientError struct {
	Provider string
	Key      string
	Code     string
	Err      error
}

func (e *ClientError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error for '%s' (%s): %v", e.Provider, e.Key, e.Code, e.Err)
	}
	return fmt.Sprintf("%s error for '%s': %v", e.Provider, e.Key, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the secret does not exist
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
