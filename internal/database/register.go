// Package database wires every backend adapter into a driver registry.
package database

import (
	"github.com/samurmaykrr/zqlz/internal/database/clickhouse"
	"github.com/samurmaykrr/zqlz/internal/database/mariadb"
	"github.com/samurmaykrr/zqlz/internal/database/mongodb"
	"github.com/samurmaykrr/zqlz/internal/database/mssql"
	"github.com/samurmaykrr/zqlz/internal/database/mysql"
	"github.com/samurmaykrr/zqlz/internal/database/postgres"
	"github.com/samurmaykrr/zqlz/internal/database/redis"
	"github.com/samurmaykrr/zqlz/internal/database/sqlite"
	"github.com/samurmaykrr/zqlz/pkg/driver"
)

// RegisterAll registers every built-in adapter on the given registry.
func RegisterAll(reg *driver.Registry) {
	reg.Register(postgres.New())
	reg.Register(mysql.New())
	reg.Register(mariadb.New())
	reg.Register(mssql.New())
	reg.Register(sqlite.New())
	reg.Register(clickhouse.New())
	reg.Register(mongodb.New())
	reg.Register(redis.New())
}

// Register registers every built-in adapter on the default registry.
func Register() {
	RegisterAll(driver.DefaultRegistry())
}
