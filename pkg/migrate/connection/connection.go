// Package connection supplies the database primitives the migration engine
// consumes : dialing, connectivity probes, batch reads and batch writes.
// The engine itself only sees the Provider and Session interfaces.
package connection

import (
	"context"

	"github.com/snowferry/snowferry/pkg/migrate/config"
)

// Row is a single source row in column order. Values pass through to the
// target untouched.
type Row []any

// Cursor is an opaque continuation token owned by the Provider. Callers only
// thread it back into the next FetchBatch call; a nil Cursor means "start of
// table".
type Cursor any

// Session is an authenticated, usable handle to one database endpoint.
// A Session may be shared by many workers concurrently.
type Session interface {
	Ping(ctx context.Context) error
	Close() error
}

// Provider yields sessions and the batch level read/write primitives.
type Provider interface {
	// Connect dials the endpoint and returns a usable session.
	Connect(ctx context.Context, ep config.Endpoint) (Session, error)
	// TestConnection is a lightweight connectivity check.
	TestConnection(ctx context.Context, sess Session) error
	// FetchBatch returns up to size rows of table starting at cur, the cursor
	// for the following batch, and whether the table is exhausted. A batch may
	// be non empty and exhausted at the same time.
	FetchBatch(ctx context.Context, sess Session, table string, cur Cursor, size int) (rows []Row, next Cursor, exhausted bool, err error)
	// InsertBatch appends rows to table. Append semantics only, no dedup.
	InsertBatch(ctx context.Context, sess Session, table string, rows []Row) error
}

// Stager is an alternate bulk-load path used by InsertBatch for targets that
// load faster through an external stage (CSV spill + COPY INTO).
type Stager interface {
	Load(ctx context.Context, sess Session, table string, cols []string, rows []Row) error
}
