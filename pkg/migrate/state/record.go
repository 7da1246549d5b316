package state

import (
	"github.com/snowferry/snowferry/pkg/migrate"
)

// RecordReport writes a finished run's per-table outcomes and aggregate
// status to the run history. runErr is the whole-job error, if any.
func RecordReport(m Manager, rep *migrate.Report, runErr error) {
	if m == nil {
		return
	}
	for _, name := range rep.Order {
		tr := rep.Tables[name]
		switch tr.Status {
		case migrate.StatusSucceeded:
			m.PassedTableRun(rep.RunID, name, tr.RowsMigrated)
		case migrate.StatusFailed:
			m.FailedTableRun(rep.RunID, name, tr.Error)
		case migrate.StatusCancelled:
			m.CancelledTableRun(rep.RunID, name, tr.RowsMigrated)
		}
	}
	switch {
	case runErr != nil:
		m.FailedRunLog(rep.RunID, rep.RowsMigrated, runErr)
	case rep.Overall == migrate.StatusFailed:
		m.FailedRunLog(rep.RunID, rep.RowsMigrated, rep.Err())
	case rep.Overall == migrate.StatusCancelled:
		m.CancelledRunLog(rep.RunID, rep.RowsMigrated)
	default:
		m.PassedRunLog(rep.RunID, rep.RowsMigrated)
	}
}
