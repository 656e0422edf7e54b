package mariadb

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
)

func TestMariaDBIdentity(t *testing.T) {
	d := New()
	assert.Equal(t, dbcapabilities.MariaDB, d.ID())
	assert.Equal(t, "MariaDB", d.Capabilities().Name)
	assert.Equal(t, dbcapabilities.DialectMySQL, d.Capabilities().Dialect, "shares the MySQL dialect")
	assert.Equal(t, 3306, d.Capabilities().DefaultPort)
}
