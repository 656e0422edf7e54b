// Package mariadb exposes the MariaDB adapter. MariaDB is wire-compatible
// with MySQL; the implementation lives in the mysql package and this driver
// only carries the MariaDB identity and capability descriptor.
package mariadb

import (
	"github.com/samurmaykrr/zqlz/internal/database/mysql"
	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
)

// New returns the MariaDB driver.
func New() *mysql.Driver { return mysql.NewFor(dbcapabilities.MariaDB) }
