package errs

import "fmt"

// NotFoundError covers unknown hosts, unpublished sites and missing objects.
// It maps to a 404 and is never retried.
type NotFoundError struct {
	Err error
}

func (t NotFoundError) Error() string {
	return fmt.Sprintf("not found: %v", t.Err)
}

// InvalidCredentialError is a bad or expired preview token. The request falls
// back to published-mode semantics, never to draft content.
type InvalidCredentialError struct {
	Err error
}

func (t InvalidCredentialError) Error() string {
	return fmt.Sprintf("invalid credential: %v", t.Err)
}

// ConflictError signals a publish that lost the race on (site_id, version).
// The caller retries the whole operation from a fresh read.
type ConflictError struct {
	Err error
}

func (t ConflictError) Error() string {
	return fmt.Sprintf("conflict: %v", t.Err)
}

type RetryableError struct {
	Err error
}

func (t RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %v", t.Err)
}

// ConfigError is a per-request fatal misconfiguration, e.g. a theme with no
// backend mapping.
type ConfigError struct {
	Err error
}

func (t ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", t.Err)
}
