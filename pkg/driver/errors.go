package driver

import (
	"errors"
	"fmt"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
)

// Standard driver errors. Engine code matches on these with errors.Is; the
// typed wrappers below carry the backend context.
var (
	// ErrConnectFailed is returned when a connection attempt fails.
	ErrConnectFailed = errors.New("connection failed")

	// ErrConnectTimeout is returned when a connection attempt exceeds the
	// configured connect timeout.
	ErrConnectTimeout = errors.New("connection timed out")

	// ErrUnsupported is returned when an operation is not supported by the
	// database.
	ErrUnsupported = errors.New("operation not supported by this database")

	// ErrClosed is returned when attempting to use a closed connection.
	ErrClosed = errors.New("connection is closed")

	// ErrPoolExhausted is returned when no pooled connection becomes
	// available within the acquire timeout.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrStatementTimeout is returned when a statement exceeds the
	// configured statement timeout.
	ErrStatementTimeout = errors.New("statement timed out")

	// ErrCancelled is returned when a statement is cancelled by the caller.
	ErrCancelled = errors.New("operation cancelled")

	// ErrQueryFailed is returned when the backend rejects a statement.
	ErrQueryFailed = errors.New("query failed")

	// ErrIntegrityViolation is returned when a statement violates a
	// constraint (unique, foreign key, check, not null).
	ErrIntegrityViolation = errors.New("integrity constraint violation")

	// ErrSchemaUnavailable is returned when introspection fails or the
	// backend has no catalog to introspect.
	ErrSchemaUnavailable = errors.New("schema information unavailable")

	// ErrInvalidConfig is returned when the connection configuration is
	// invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDriverNotFound is returned when no driver is registered for the
	// requested database type.
	ErrDriverNotFound = errors.New("driver not found")
)

// ConnectionError wraps a failed connection attempt with the target address.
type ConnectionError struct {
	Database dbcapabilities.DatabaseID
	Host     string
	Port     int
	Cause    error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("failed to connect to %s: %v", e.Database, e.Cause)
	}
	return fmt.Sprintf("failed to connect to %s at %s:%d: %v", e.Database, e.Host, e.Port, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is matches ErrConnectFailed in addition to the wrapped cause.
func (e *ConnectionError) Is(target error) bool {
	if errors.Is(target, ErrConnectFailed) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(db dbcapabilities.DatabaseID, host string, port int, cause error) *ConnectionError {
	return &ConnectionError{
		Database: db,
		Host:     host,
		Port:     port,
		Cause:    cause,
	}
}

// QueryError wraps a backend statement failure. Message preserves the
// backend's own error text verbatim; Kind carries the taxonomy sentinel
// (ErrQueryFailed, ErrIntegrityViolation, ErrStatementTimeout, ErrCancelled).
type QueryError struct {
	Database dbcapabilities.DatabaseID
	Kind     error
	Message  string
	// Backend-native error code when available, e.g. "23505" or "1062".
	Code  string
	Cause error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s (code %s)", e.Database, e.Message, e.Code)
	}
	return fmt.Sprintf("[%s] %s", e.Database, e.Message)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is matches the taxonomy kind in addition to the wrapped cause.
func (e *QueryError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewQueryError creates a new QueryError. An empty message falls back to the
// cause's text so the backend message is always present.
func NewQueryError(db dbcapabilities.DatabaseID, kind error, code string, cause error) *QueryError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &QueryError{
		Database: db,
		Kind:     kind,
		Message:  msg,
		Code:     code,
		Cause:    cause,
	}
}

// UnsupportedError is returned when an operation is not supported by the
// database.
type UnsupportedError struct {
	Database  dbcapabilities.DatabaseID
	Operation string
	Reason    string
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s does not support %s: %s", e.Database, e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s does not support %s", e.Database, e.Operation)
}

// Is matches ErrUnsupported.
func (e *UnsupportedError) Is(target error) bool {
	return errors.Is(target, ErrUnsupported)
}

// NewUnsupportedError creates a new UnsupportedError.
func NewUnsupportedError(db dbcapabilities.DatabaseID, operation, reason string) *UnsupportedError {
	return &UnsupportedError{
		Database:  db,
		Operation: operation,
		Reason:    reason,
	}
}

// ConfigError is returned when a connection configuration is invalid.
type ConfigError struct {
	Database dbcapabilities.DatabaseID
	Field    string
	Reason   string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration for %s: field %q: %s", e.Database, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.Database, e.Reason)
}

// Is matches ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return errors.Is(target, ErrInvalidConfig)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(db dbcapabilities.DatabaseID, field, reason string) *ConfigError {
	return &ConfigError{
		Database: db,
		Field:    field,
		Reason:   reason,
	}
}

// WrapQuery wraps a backend error as a plain QueryFailed unless it is
// already a QueryError.
func WrapQuery(db dbcapabilities.DatabaseID, err error) error {
	if err == nil {
		return nil
	}

	// Don't double-wrap
	var qErr *QueryError
	if errors.As(err, &qErr) {
		return err
	}

	return NewQueryError(db, ErrQueryFailed, "", err)
}

// IsRetryable reports whether an error indicates a transient connection
// level failure that reconnect logic may retry. Statement-level failures
// (query errors, integrity violations, cancellations) are never retryable.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrCancelled),
		errors.Is(err, ErrIntegrityViolation),
		errors.Is(err, ErrUnsupported),
		errors.Is(err, ErrInvalidConfig):
		return false
	case errors.Is(err, ErrConnectFailed),
		errors.Is(err, ErrConnectTimeout),
		errors.Is(err, ErrClosed),
		errors.Is(err, ErrStatementTimeout):
		return true
	}
	return false
}

// IsUnsupported checks if an error indicates an unsupported operation.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsConnectionError checks if an error is a connection failure.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectFailed) || errors.Is(err, ErrConnectTimeout)
}

// IsIntegrityViolation checks if an error is a constraint violation.
func IsIntegrityViolation(err error) bool {
	return errors.Is(err, ErrIntegrityViolation)
}

// IsCancelled checks if an error is a caller cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
