package migrate

import (
	"context"

	"github.com/snowferry/snowferry/pkg/migrate/connection"
)

// batchCursor tracks one table's read position. It is owned by exactly one
// table migrator, advances monotonically and is never reused across tables.
// The position itself is an opaque token from the Provider; the engine only
// looks at the exhausted flag.
type batchCursor struct {
	table     string
	pos       connection.Cursor
	exhausted bool
}

// next fetches the following batch and advances the cursor. Every source row
// is returned in exactly one batch, assuming no interleaved writer on the
// source table (stated precondition, not enforced).
func (c *batchCursor) next(ctx context.Context, p connection.Provider, sess connection.Session, size int) ([]connection.Row, error) {
	rows, next, exhausted, err := p.FetchBatch(ctx, sess, c.table, c.pos, size)
	if err != nil {
		return nil, err
	}
	c.pos = next
	c.exhausted = exhausted
	return rows, nil
}
