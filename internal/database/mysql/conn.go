package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/samurmaykrr/zqlz/internal/database/sqlcommon"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/schema"
)

// Conn is one MySQL session. The shared database/sql plumbing lives in
// sqlcommon; this layer adds the catalog surface and KILL QUERY cancellation.
type Conn struct {
	*sqlcommon.Conn
	drv *Driver

	// Server-side session ID, used by KILL QUERY. Zero when the lookup
	// failed; cancellation degrades to unsupported then.
	sessionID atomic.Int64
}

// loadSessionID records the server's connection ID for out-of-band KILL.
func (c *Conn) loadSessionID(ctx context.Context) {
	var id int64
	if err := c.DB().QueryRowContext(ctx, "SELECT CONNECTION_ID()").Scan(&id); err == nil {
		c.sessionID.Store(id)
	}
}

// Introspector returns the catalog surface.
func (c *Conn) Introspector() schema.Introspector { return &introspector{conn: c} }

// CancelHandle returns the KILL QUERY handle, or nil when the session ID is
// unknown.
func (c *Conn) CancelHandle() driver.CancelHandle {
	if c.sessionID.Load() == 0 {
		return nil
	}
	return &cancelHandle{conn: c}
}

// cancelHandle cancels the running statement by opening a short-lived second
// session and issuing KILL QUERY against the primary session's ID.
type cancelHandle struct {
	conn *Conn
}

func (h *cancelHandle) Cancel(ctx context.Context) error {
	id := h.conn.sessionID.Load()
	if id == 0 {
		return driver.NewUnsupportedError(h.conn.Type(), "cancel", "server session id unknown")
	}

	dsn, err := DSN(h.conn.Config())
	if err != nil {
		return err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return driver.WrapQuery(h.conn.Type(), err)
	}
	defer db.Close()

	// KILL does not accept bind parameters.
	if _, err := db.ExecContext(ctx, fmt.Sprintf("KILL QUERY %d", id)); err != nil {
		return driver.WrapQuery(h.conn.Type(), err)
	}
	return nil
}
