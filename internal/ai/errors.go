package ai

import "fmt"

// ConfigurationError indicates a required credential or setting is missing
// or inconsistent. It is always raised before any network call is made.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// ExternalServiceError wraps a failed or malformed response from an
// embedding or completion provider. The core never retries these; they
// propagate to the caller.
type ExternalServiceError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
