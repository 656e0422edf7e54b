// Package driver defines the contracts between the engine and its database
// backends: the Driver factory, the Connection session surface, transaction
// and cancellation handles, connection configuration, the driver registry,
// and the shared error taxonomy.
//
// Backends live under internal/database and register themselves into the
// default registry. Engine code never imports a backend package directly;
// it resolves drivers by dbcapabilities.DatabaseID:
//
//	d, ok := driver.Get(dbcapabilities.PostgreSQL)
//	if !ok {
//	    return driver.ErrDriverNotFound
//	}
//	conn, err := d.Connect(ctx, cfg)
//
// Errors follow a two-layer scheme: sentinel errors (ErrConnectFailed,
// ErrPoolExhausted, ...) for errors.Is matching, and typed wrappers
// (ConnectionError, QueryError, UnsupportedError) carrying backend context.
// QueryError.Message always preserves the backend's error text verbatim.
package driver
