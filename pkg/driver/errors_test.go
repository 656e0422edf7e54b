package driver

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
)

func TestConnectionErrorMatchesSentinel(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewConnectionError(dbcapabilities.PostgreSQL, "db.local", 5432, cause)

	assert.True(t, errors.Is(err, ErrConnectFailed))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "db.local:5432")

	var connErr *ConnectionError
	assert.True(t, errors.As(err, &connErr))
	assert.Equal(t, dbcapabilities.PostgreSQL, connErr.Database)
}

func TestQueryErrorPreservesBackendMessage(t *testing.T) {
	cause := errors.New(`ERROR: duplicate key value violates unique constraint "users_pkey"`)
	err := NewQueryError(dbcapabilities.PostgreSQL, ErrIntegrityViolation, "23505", cause)

	assert.True(t, errors.Is(err, ErrIntegrityViolation))
	assert.False(t, errors.Is(err, ErrQueryFailed))
	assert.Contains(t, err.Error(), "users_pkey")
	assert.Contains(t, err.Error(), "23505")
	assert.Equal(t, cause.Error(), err.Message)
}

func TestUnsupportedError(t *testing.T) {
	err := NewUnsupportedError(dbcapabilities.Redis, "transactions", "no transactional command surface")
	assert.True(t, errors.Is(err, ErrUnsupported))
	assert.True(t, IsUnsupported(err))
	assert.Contains(t, err.Error(), "redis")
}

func TestWrapQueryDoesNotDoubleWrap(t *testing.T) {
	inner := NewQueryError(dbcapabilities.MySQL, ErrQueryFailed, "1064", errors.New("syntax error"))

	// Errors already carrying a QueryError anywhere in the chain pass
	// through untouched.
	chained := fmt.Errorf("exec: %w", inner)
	assert.Same(t, error(chained), WrapQuery(dbcapabilities.MySQL, chained))
	assert.Same(t, error(inner), WrapQuery(dbcapabilities.MySQL, inner))

	plain := WrapQuery(dbcapabilities.MySQL, errors.New("boom"))
	assert.True(t, errors.Is(plain, ErrQueryFailed))

	assert.Nil(t, WrapQuery(dbcapabilities.MySQL, nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrConnectFailed))
	assert.True(t, IsRetryable(ErrConnectTimeout))
	assert.True(t, IsRetryable(ErrClosed))
	assert.True(t, IsRetryable(ErrStatementTimeout))
	assert.False(t, IsRetryable(ErrCancelled))
	assert.False(t, IsRetryable(ErrIntegrityViolation))
	assert.False(t, IsRetryable(ErrUnsupported))
	assert.False(t, IsRetryable(errors.New("arbitrary")))

	wrapped := NewConnectionError(dbcapabilities.Redis, "h", 6379, errors.New("refused"))
	assert.True(t, IsRetryable(wrapped))
}
