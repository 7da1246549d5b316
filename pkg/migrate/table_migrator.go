package migrate

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/snowferry/snowferry/pkg/migrate/connection"
)

// tableMigrator drives one table's full migration : read a batch, write it,
// repeat until the source is exhausted. Exactly one migrator mutates a given
// TableResult.
type tableMigrator struct {
	provider  connection.Provider
	source    connection.Session
	target    connection.Session
	table     string
	batchSize int
	progress  *tracker
	stop      <-chan struct{}
	log       zerolog.Logger
}

func (m *tableMigrator) migrate(ctx context.Context) {
	// admitted after a cancel : never start, the table stays pending
	select {
	case <-m.stop:
		return
	default:
	}
	m.progress.setStatus(m.table, StatusRunning)
	m.log.Info().Str("table", m.table).Msg("table migration started")

	cur := &batchCursor{table: m.table}
	for !cur.exhausted {
		// cancellation is checked at batch boundaries only, a batch is
		// never torn
		select {
		case <-m.stop:
			m.progress.setStatus(m.table, StatusCancelled)
			m.log.Info().Str("table", m.table).Msg("table migration cancelled")
			return
		default:
		}

		rows, err := cur.next(ctx, m.provider, m.source, m.batchSize)
		if err != nil {
			m.finishErr(&ReadError{Table: m.table, Err: err})
			return
		}
		if len(rows) == 0 {
			break
		}
		if err := m.provider.InsertBatch(ctx, m.target, m.table, rows); err != nil {
			m.finishErr(&WriteError{Table: m.table, Err: err})
			return
		}
		m.progress.record(m.table, len(rows))
	}

	m.progress.setStatus(m.table, StatusSucceeded)
	m.log.Info().Str("table", m.table).Msg("table migration succeeded")
}

func (m *tableMigrator) finishErr(err error) {
	// a parent context cancellation surfaces as an error from the in-flight
	// provider call; that is a cancel, not a table failure
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		m.progress.setStatus(m.table, StatusCancelled)
		m.log.Info().Str("table", m.table).Msg("table migration cancelled")
		return
	}
	m.progress.fail(m.table, err)
	m.log.Error().Err(err).Str("table", m.table).Msg("table migration failed")
}
