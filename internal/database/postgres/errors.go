package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
)

// SQLSTATE codes the adapter classifies specially.
const (
	sqlstateQueryCanceled = "57014"
)

// mapError classifies a pgx error into the engine taxonomy. The server's
// message text is preserved verbatim on the QueryError.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := driver.ErrQueryFailed
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			kind = driver.ErrIntegrityViolation
		case pgErr.Code == sqlstateQueryCanceled:
			kind = driver.ErrCancelled
		}
		return driver.NewQueryError(dbcapabilities.PostgreSQL, kind, pgErr.Code, err)
	}

	return driver.WrapQuery(dbcapabilities.PostgreSQL, err)
}
