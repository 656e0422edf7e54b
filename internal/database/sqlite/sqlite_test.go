package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
)

func TestDSN(t *testing.T) {
	cfg := driver.Config{Database: dbcapabilities.SQLite, DatabaseName: "/data/app.db"}
	dsn := DSN(cfg)
	assert.Contains(t, dsn, "file:/data/app.db")
	assert.Contains(t, dsn, "_busy_timeout=5000")
}

func TestDSNParamsOverrideDefaults(t *testing.T) {
	cfg := driver.Config{
		Database:     dbcapabilities.SQLite,
		DatabaseName: "app.db",
		Params:       map[string]string{"_busy_timeout": "100", "mode": "ro"},
	}
	dsn := DSN(cfg)
	assert.Contains(t, dsn, "_busy_timeout=100")
	assert.Contains(t, dsn, "mode=ro")
}

func TestMapErrorConstraint(t *testing.T) {
	cause := sqlite3.Error{
		Code:         sqlite3.ErrConstraint,
		ExtendedCode: sqlite3.ErrConstraintUnique,
	}
	err := mapError(cause)

	assert.ErrorIs(t, err, driver.ErrIntegrityViolation)

	var qErr *driver.QueryError
	require.True(t, errors.As(err, &qErr))
	assert.Equal(t, fmt.Sprint(int(sqlite3.ErrConstraintUnique)), qErr.Code)
}

func TestMapErrorInterrupt(t *testing.T) {
	err := mapError(sqlite3.Error{Code: sqlite3.ErrInterrupt})
	assert.ErrorIs(t, err, driver.ErrCancelled)
}

func TestMapErrorOtherCodes(t *testing.T) {
	err := mapError(sqlite3.Error{Code: sqlite3.ErrError})
	assert.ErrorIs(t, err, driver.ErrQueryFailed)
	assert.NotErrorIs(t, err, driver.ErrIntegrityViolation)
}

func TestConnectRequiresPath(t *testing.T) {
	_, err := New().Connect(context.Background(), driver.Config{Database: dbcapabilities.SQLite})
	assert.ErrorIs(t, err, driver.ErrInvalidConfig)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"users"`, quoteIdent("users"))
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}

func TestConnectionFields(t *testing.T) {
	fields := New().ConnectionFields()
	var hasPath bool
	for _, f := range fields {
		if f.Key == "database_name" {
			hasPath = true
			assert.Equal(t, driver.FieldFilePath, f.Type)
		}
		assert.NotEqual(t, "host", f.Key, "file-backed engine has no host field")
	}
	assert.True(t, hasPath)
}
