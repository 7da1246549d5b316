package migrate

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Status of one table's migration.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// TableResult : outcome of one table's migration. Mutated only by its owning
// table migrator, immutable once terminal.
type TableResult struct {
	Table        string    `json:"table"`
	Status       Status    `json:"status"`
	RowsMigrated int64     `json:"rows_migrated"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// TimeTaken is the wall time of the table's migration, zero until terminal.
func (r TableResult) TimeTaken() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Report : point-in-time view of a whole job. Snapshots are copies, callers
// must re-poll for updates.
type Report struct {
	RunID           string                 `json:"run_id"`
	Overall         Status                 `json:"overall_status"`
	Tables          map[string]TableResult `json:"tables"`
	Order           []string               `json:"table_order"`
	RowsMigrated    int64                  `json:"rows_migrated"`
	TablesSucceeded int                    `json:"tables_succeeded"`
	TablesFailed    int                    `json:"tables_failed"`
	TablesCancelled int                    `json:"tables_cancelled"`
	TablesRunning   int                    `json:"tables_running"`
	TablesPending   int                    `json:"tables_pending"`
	StartedAt       time.Time              `json:"started_at,omitempty"`
	FinishedAt      time.Time              `json:"finished_at,omitempty"`
}

// Done reports whether the run has finished. Set by the orchestrator once
// every admitted table has reached a terminal status.
func (r *Report) Done() bool {
	return !r.FinishedAt.IsZero()
}

// Err collects the error details of failed tables, nil when none failed.
func (r *Report) Err() error {
	var ferr error
	for _, name := range r.Order {
		tr := r.Tables[name]
		if tr.Status == StatusFailed {
			ferr = multierror.Append(ferr, fmt.Errorf("%s : %s", tr.Table, tr.Error))
		}
	}
	return ferr
}

// Summary is a one line human readable progress string.
func (r *Report) Summary() string {
	terminal := r.TablesSucceeded + r.TablesFailed + r.TablesCancelled
	return fmt.Sprintf("%d/%d tables done (%d failed), %d rows migrated",
		terminal, len(r.Order), r.TablesFailed, r.RowsMigrated)
}

// deriveOverall folds per table statuses into the aggregate one.
func deriveOverall(tables map[string]TableResult) Status {
	var failed, cancelled, succeeded, pending int
	for _, tr := range tables {
		switch tr.Status {
		case StatusFailed:
			failed++
		case StatusCancelled:
			cancelled++
		case StatusSucceeded:
			succeeded++
		case StatusPending:
			pending++
		}
	}
	switch {
	case failed > 0:
		return StatusFailed
	case cancelled > 0:
		return StatusCancelled
	case succeeded == len(tables):
		return StatusSucceeded
	case pending == len(tables):
		return StatusPending
	default:
		return StatusRunning
	}
}
