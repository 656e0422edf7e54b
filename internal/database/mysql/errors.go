package mysql

import (
	"errors"
	"strconv"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
)

// Server error numbers the adapter classifies specially.
const (
	errDupEntry           = 1062
	errBadNull            = 1048
	errRowIsReferenced    = 1451
	errNoReferencedRow    = 1452
	errRowIsReferenced2   = 1217
	errNoReferencedRow2   = 1216
	errCheckViolated      = 3819
	errQueryInterrupted   = 1317
	errLockWaitTimeout    = 1205
	errDupUnique          = 1169
	errForeignDuplicateKy = 1557
)

var integrityNumbers = map[uint16]struct{}{
	errDupEntry:           {},
	errBadNull:            {},
	errRowIsReferenced:    {},
	errNoReferencedRow:    {},
	errRowIsReferenced2:   {},
	errNoReferencedRow2:   {},
	errCheckViolated:      {},
	errDupUnique:          {},
	errForeignDuplicateKy: {},
}

// mapError classifies a go-sql-driver error into the engine taxonomy. The
// server's message text stays verbatim on the QueryError.
func mapError(db dbcapabilities.DatabaseID, err error) error {
	if err == nil {
		return nil
	}

	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		kind := driver.ErrQueryFailed
		if _, ok := integrityNumbers[myErr.Number]; ok {
			kind = driver.ErrIntegrityViolation
		} else if myErr.Number == errQueryInterrupted {
			kind = driver.ErrCancelled
		}
		return driver.NewQueryError(db, kind, strconv.Itoa(int(myErr.Number)), err)
	}

	if errors.Is(err, gomysql.ErrInvalidConn) {
		return driver.NewConnectionError(db, "", 0, err)
	}
	return err
}
