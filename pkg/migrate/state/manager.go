// Package state persists run history around engine runs. The engine itself
// never touches it; the CLI and the API server write records before and after
// calling the orchestrator.
package state

import "time"

type RunLogState string

const (
	Started   RunLogState = "STARTED"
	Success   RunLogState = "SUCCESS"
	Aborted   RunLogState = "ABORTED"
	Failed    RunLogState = "FAILED"
	Cancelled RunLogState = "CANCELLED"
)

type Base struct {
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

type RunLog struct {
	RunID                 string      `json:"run_id" db:"run_id" gorm:"primaryKey;type:varchar(36)"`
	TotalTablesForThisRun int         `json:"total_tables_for_run" db:"total_tables_for_run"`
	RowsMigrated          int64       `json:"rows_migrated" db:"rows_migrated"`
	Status                RunLogState `json:"status" db:"status" gorm:"type:varchar(50)"`
	ErrMsg                string      `json:"err_msg" db:"err_msg"`
	Base
}

type TableRunLog struct {
	ParentRunID string      `json:"parent_run_id" db:"parent_run_id" gorm:"type:varchar(36);index"`
	TableName   string      `json:"table_name" db:"table_name" gorm:"type:varchar(255)"`
	RowsWritten int64       `json:"rows_written_target"`
	Status      RunLogState `gorm:"type:varchar(50)"`
	ErrMsg      string      `json:"err_msg"`
	Base
}

type Manager interface {
	// This should sort by most recent first
	GetLastRun() *RunLog
	// GetRunLog : get a specific run log
	GetRunLog(runID string) *RunLog
	GetTableRunLogs(runID string) []*TableRunLog
	// InitRunLog : start a run log
	InitRunLog(runID string, totalTableCount int)
	FailedRunLog(runID string, rowsMigrated int64, err error)
	PassedRunLog(runID string, rowsMigrated int64)
	CancelledRunLog(runID string, rowsMigrated int64)
	InitTableRunLog(runID string, tableName string)
	FailedTableRun(runID string, tableName string, errMsg string)
	PassedTableRun(runID string, tableName string, rowsWritten int64)
	CancelledTableRun(runID string, tableName string, rowsWritten int64)
	DidTableFailForRun(runID string) bool
	// OnShutDownEv marks an interrupted run and its open tables as aborted.
	OnShutDownEv()
}
